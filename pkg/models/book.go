package models

// Book is a read-only projection of a row in the Calibre books table.
// Timestamps are carried as the TEXT values Calibre stores; nothing here
// is ever written back.
type Book struct {
	ID           int      `bun:"id" json:"id"`
	Title        string   `bun:"title" json:"title"`
	AuthorSort   string   `bun:"author_sort" json:"author_sort"`
	Path         string   `bun:"path" json:"path"`
	SeriesIndex  *float64 `bun:"series_index" json:"series_index,omitempty"`
	ISBN         string   `bun:"isbn" json:"isbn,omitempty"`
	PubDate      string   `bun:"pubdate" json:"pubdate,omitempty"`
	LastModified string   `bun:"last_modified" json:"last_modified"`
	HasCover     bool     `bun:"has_cover" json:"has_cover"`
	UUID         string   `bun:"uuid" json:"uuid"`

	// Comments is only populated by the detail projection.
	Comments string `bun:"-" json:"comments,omitempty"`

	// Enrichment, attached by explicit dependent lookups.
	Authors []Author `bun:"-" json:"authors"`
	Tags    []Tag    `bun:"-" json:"tags"`
	Series  *Series  `bun:"-" json:"series,omitempty"`
	Formats []Format `bun:"-" json:"formats"`
}
