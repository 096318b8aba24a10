package models

// Format is one row of Calibre's data table: a downloadable rendition of
// a book. Filename is the on-record name, which may lack its extension or
// not exist verbatim on disk; resolution against the content store is the
// file resolver's job.
type Format struct {
	Format   string `bun:"format" json:"format"`
	Size     int64  `bun:"size" json:"size"`
	Filename string `bun:"filename" json:"filename"`
}
