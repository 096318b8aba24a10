package models

// Stats is the aggregate snapshot served by /api/stats.
type Stats struct {
	TotalBooks   int            `json:"total_books"`
	TotalAuthors int            `json:"total_authors"`
	Formats      map[string]int `json:"formats"`
}
