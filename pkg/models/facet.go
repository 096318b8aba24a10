package models

// Facet rows are grouped browse listings. BookCount is always at least 1:
// the queries producing these use inner joins, so a facet value with no
// books never appears.

type AuthorFacet struct {
	Name      string `bun:"name" json:"name"`
	Sort      string `bun:"sort" json:"sort"`
	BookCount int    `bun:"book_count" json:"book_count"`
}

type SeriesFacet struct {
	Name      string `bun:"name" json:"name"`
	Sort      string `bun:"sort" json:"sort"`
	BookCount int    `bun:"book_count" json:"book_count"`
}

type TagFacet struct {
	Name      string `bun:"name" json:"name"`
	BookCount int    `bun:"book_count" json:"book_count"`
}
