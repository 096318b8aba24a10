package opds

import (
	"github.com/labstack/echo/v4"

	"github.com/foliolib/folio/pkg/catalog"
	"github.com/foliolib/folio/pkg/database"
	"github.com/foliolib/folio/pkg/files"
)

// RegisterRoutes registers all OPDS routes.
func RegisterRoutes(e *echo.Echo, db *database.DB) {
	h := &handler{
		db:             db,
		opdsService:    NewService(),
		catalogService: catalog.NewService(),
		resolver:       files.NewResolver(db.BooksPath),
	}

	// Root navigation feed
	e.GET("/catalog", h.root)

	// Acquisition and navigation feeds
	e.GET("/catalog/books", h.books)
	e.GET("/catalog/authors", h.authors)
	e.GET("/catalog/series", h.series)
	e.GET("/catalog/tags", h.tags)
	e.GET("/catalog/book/:id", h.bookDetail)

	// Binary endpoints
	e.GET("/catalog/cover/:id", h.cover)
	e.GET("/download/:id/:format", h.download)
}
