package models

// Series is the zero-or-one series a book belongs to, including the
// book's position within it.
type Series struct {
	Name  string   `bun:"name" json:"name"`
	Sort  string   `bun:"sort" json:"sort"`
	Index *float64 `bun:"series_index" json:"index,omitempty"`
}
