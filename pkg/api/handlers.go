// Package api exposes the JSON debugging surface alongside the OPDS
// feeds: raw book listings, catalog stats, and operational diagnostics.
package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/foliolib/folio/pkg/catalog"
	"github.com/foliolib/folio/pkg/database"
	"github.com/foliolib/folio/pkg/errcodes"
	"github.com/foliolib/folio/pkg/files"
	"github.com/foliolib/folio/pkg/models"
)

type handler struct {
	db             *database.DB
	catalogService *catalog.Service
	resolver       *files.Resolver
}

func optionalInt(c echo.Context, name string) *int {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func optionalString(c echo.Context, name string) *string {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	return &raw
}

type listBooksResponse struct {
	Books  []*models.Book `json:"books"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// listBooks returns a JSON page of books. The total counts every match,
// not just the page, so clients can paginate without probing.
func (h *handler) listBooks(c echo.Context) error {
	ctx := c.Request().Context()

	opts := catalog.ListBooksOptions{
		Search: optionalString(c, "search"),
		Author: optionalString(c, "author"),
		Series: optionalString(c, "series"),
		Tag:    optionalString(c, "tag"),
		Limit:  optionalInt(c, "limit"),
		Offset: optionalInt(c, "offset"),
	}

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return errcodes.StoreUnavailable("Catalog is temporarily unavailable")
	}
	defer release()

	books, err := h.catalogService.ListBooks(ctx, conn, opts)
	if err != nil {
		return errors.WithStack(err)
	}
	total, err := h.catalogService.CountBooks(ctx, conn, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, listBooksResponse{
		Books:  books,
		Total:  total,
		Limit:  catalog.ClampLimit(opts.Limit, catalog.DefaultBookLimit),
		Offset: catalog.ClampOffset(opts.Offset),
	})
}

// retrieveBook returns one book with its description.
func (h *handler) retrieveBook(c echo.Context) error {
	ctx := c.Request().Context()

	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return errcodes.StoreUnavailable("Catalog is temporarily unavailable")
	}
	defer release()

	book, err := h.catalogService.RetrieveBook(ctx, conn, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, book)
}

// stats returns catalog totals and the per-format breakdown.
func (h *handler) stats(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return errcodes.StoreUnavailable("Catalog is temporarily unavailable")
	}
	defer release()

	stats, err := h.catalogService.Stats(ctx, conn)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, stats)
}

// health reports whether the catalog answers queries. Degraded state is a
// 503 with the same shape so probes can alert on either.
func (h *handler) health(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":    "error",
			"database":  "unavailable",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
	defer release()

	if !h.db.Healthy(ctx, conn) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":    "error",
			"database":  "unavailable",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}

	stats, err := h.catalogService.Stats(ctx, conn)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status":    "error",
			"database":  "degraded",
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":      "ok",
		"database":    "connected",
		"total_books": stats.TotalBooks,
		"connections": h.db.ConnStats(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// connectionStats reports the connection lifecycle counters.
func (h *handler) connectionStats(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"strategy":      "per_request",
		"database_path": h.db.CatalogPath,
		"books_path":    h.db.BooksPath,
		"connections":   h.db.ConnStats(),
	})
}

type diagnosisTest struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// diagnose runs the startup checks on demand: catalog reachability, the
// content-store mount, and file resolution for one real book.
func (h *handler) diagnose(c echo.Context) error {
	ctx := c.Request().Context()

	tests := []diagnosisTest{}
	recommendations := []string{}

	// Catalog check
	dbTest := diagnosisTest{Name: "database", Status: "ok"}
	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		dbTest.Status = "error"
		dbTest.Message = err.Error()
		recommendations = append(recommendations, "Check that the catalog file exists and is readable: "+h.db.CatalogPath)
	} else {
		defer release()
		stats, err := h.catalogService.Stats(ctx, conn)
		if err != nil {
			dbTest.Status = "error"
			dbTest.Message = err.Error()
			recommendations = append(recommendations, "The catalog file may be corrupt or locked: "+h.db.CatalogPath)
		} else {
			dbTest.Message = strconv.Itoa(stats.TotalBooks) + " books in catalog"
		}
	}
	tests = append(tests, dbTest)

	// Content-store check
	fsTest := diagnosisTest{Name: "filesystem", Status: "ok"}
	if info, err := os.Stat(h.db.BooksPath); err != nil || !info.IsDir() {
		fsTest.Status = "error"
		fsTest.Message = "content store not readable: " + h.db.BooksPath
		recommendations = append(recommendations, "Mount the book directory at "+h.db.BooksPath)
	} else {
		fsTest.Message = h.db.BooksPath
	}
	tests = append(tests, fsTest)

	// Sample resolution check
	sampleTest := diagnosisTest{Name: "sample_book", Status: "skipped"}
	if dbTest.Status == "ok" && fsTest.Status == "ok" {
		sampleTest = h.diagnoseSampleBook(c)
		if sampleTest.Status == "error" {
			recommendations = append(recommendations, "Book files are missing from the content store; check the mount matches the catalog")
		}
	}
	tests = append(tests, sampleTest)

	status := "ok"
	for _, test := range tests {
		if test.Status == "error" {
			status = "error"
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":          status,
		"tests":           tests,
		"recommendations": recommendations,
	})
}

func (h *handler) diagnoseSampleBook(c echo.Context) diagnosisTest {
	ctx := c.Request().Context()
	test := diagnosisTest{Name: "sample_book", Status: "ok"}

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		test.Status = "error"
		test.Message = err.Error()
		return test
	}
	defer release()

	one := 1
	books, err := h.catalogService.ListBooks(ctx, conn, catalog.ListBooksOptions{Limit: &one})
	if err != nil {
		test.Status = "error"
		test.Message = err.Error()
		return test
	}
	if len(books) == 0 {
		test.Status = "skipped"
		test.Message = "catalog is empty"
		return test
	}

	book := books[0]
	if len(book.Formats) == 0 {
		test.Status = "skipped"
		test.Message = "sample book has no formats"
		return test
	}

	format := book.Formats[0]
	path, err := h.resolver.Resolve(book.ID, book.Path, format.Filename, format.Format, format.Filename)
	if err != nil {
		test.Status = "error"
		test.Message = err.Error()
		return test
	}

	test.Message = path
	return test
}
