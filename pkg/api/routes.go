package api

import (
	"github.com/labstack/echo/v4"

	"github.com/foliolib/folio/pkg/catalog"
	"github.com/foliolib/folio/pkg/database"
	"github.com/foliolib/folio/pkg/files"
)

// RegisterRoutes registers the JSON API routes.
func RegisterRoutes(e *echo.Echo, db *database.DB) {
	h := &handler{
		db:             db,
		catalogService: catalog.NewService(),
		resolver:       files.NewResolver(db.BooksPath),
	}

	g := e.Group("/api")
	g.GET("/books", h.listBooks)
	g.GET("/book/:id", h.retrieveBook)
	g.GET("/stats", h.stats)
	g.GET("/health", h.health)
	g.GET("/connection-stats", h.connectionStats)
	g.GET("/diagnose", h.diagnose)
}
