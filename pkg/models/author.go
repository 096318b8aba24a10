package models

// Author is one entry of a book's ordered author list.
type Author struct {
	Name string `bun:"name" json:"name"`
	Sort string `bun:"sort" json:"sort"`
}
