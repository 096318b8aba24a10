package models

type Tag struct {
	Name string `bun:"name" json:"name"`
}
