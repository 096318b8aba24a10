package opds

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/foliolib/folio/pkg/catalog"
	"github.com/foliolib/folio/pkg/database"
	"github.com/foliolib/folio/pkg/errcodes"
	"github.com/foliolib/folio/pkg/files"
)

type handler struct {
	db             *database.DB
	opdsService    *Service
	catalogService *catalog.Service
	resolver       *files.Resolver
}

// getBaseURL returns the externally visible base URL for feed links.
func getBaseURL(c echo.Context) string {
	scheme := "http"
	if c.Request().TLS != nil {
		scheme = "https"
	}
	// Check for X-Forwarded-Proto header (for reverse proxies)
	if proto := c.Request().Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// Check for X-Forwarded-Prefix header (set by reverse proxies that strip path prefixes)
	prefix := c.Request().Header.Get("X-Forwarded-Prefix")

	return scheme + "://" + c.Request().Host + prefix
}

// optionalInt parses a query parameter into an optional int. Malformed
// values read as absent so callers fall back to their defaults.
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

// optionalString returns a query parameter as an optional string.
func optionalString(c echo.Context, name string) *string {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	return &raw
}

func listBooksOptions(c echo.Context) catalog.ListBooksOptions {
	return catalog.ListBooksOptions{
		Search: optionalString(c, "search"),
		Author: optionalString(c, "author"),
		Series: optionalString(c, "series"),
		Tag:    optionalString(c, "tag"),
		Limit:  optionalInt(c, "limit"),
		Offset: optionalInt(c, "offset"),
	}
}

// root handles the root navigation feed.
func (h *handler) root(c echo.Context) error {
	feed := h.opdsService.BuildRootFeed(getBaseURL(c))
	return respondXML(c, feed)
}

// books handles the paginated book listing feed.
func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return errcodes.StoreUnavailable("Catalog is temporarily unavailable")
	}
	defer release()

	feed, err := h.opdsService.BuildBooksFeed(ctx, conn, getBaseURL(c), listBooksOptions(c))
	if err != nil {
		return errors.WithStack(err)
	}

	return respondXML(c, feed)
}

// authors handles the author navigation feed.
func (h *handler) authors(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return errcodes.StoreUnavailable("Catalog is temporarily unavailable")
	}
	defer release()

	feed, err := h.opdsService.BuildAuthorsFeed(ctx, conn, getBaseURL(c), optionalInt(c, "limit"), optionalInt(c, "offset"))
	if err != nil {
		return errors.WithStack(err)
	}

	return respondXML(c, feed)
}

// series handles the series navigation feed.
func (h *handler) series(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return errcodes.StoreUnavailable("Catalog is temporarily unavailable")
	}
	defer release()

	feed, err := h.opdsService.BuildSeriesFeed(ctx, conn, getBaseURL(c), optionalInt(c, "limit"), optionalInt(c, "offset"))
	if err != nil {
		return errors.WithStack(err)
	}

	return respondXML(c, feed)
}

// tags handles the tag navigation feed.
func (h *handler) tags(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, conn, release, err := h.db.Acquire(ctx)
	if err != nil {
		return errcodes.StoreUnavailable("Catalog is temporarily unavailable")
	}
	defer release()

	feed, err := h.opdsService.BuildTagsFeed(ctx, conn, getBaseURL(c), optionalInt(c, "limit"), optionalInt(c, "offset"))
	if err != nil {
		return errors.WithStack(err)
	}

	return respondXML(c, feed)
}

// bookDetail handles the single-book acquisition feed.
func (h *handler) bookDetail(c echo.Context) error {
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

	feed, err := h.opdsService.BuildBookDetailFeed(ctx, conn, getBaseURL(c), bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return respondXML(c, feed)
}

// cover serves a book's cover image.
func (h *handler) cover(c echo.Context) error {
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
	// Done with the catalog; free the connection before the image streams.
	release()

	path, mimeType, err := h.resolver.ResolveCover(book.ID, book.Path)
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentType, mimeType)
	return c.File(path)
}

// download streams a book file in the requested format. The connection is
// released before the file is served so a slow client download never
// holds a catalog connection.
func (h *handler) download(c echo.Context) error {
	ctx := c.Request().Context()

	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}
	formatCode := strings.ToUpper(c.Param("format"))
	if formatCode == "" {
		return errcodes.ValidationError("Format is required")
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
	// Done with the catalog; free the connection before the file streams.
	release()

	var recordedName string
	found := false
	available := make([]string, 0, len(book.Formats))
	for _, format := range book.Formats {
		code := strings.ToUpper(format.Format)
		available = append(available, code)
		if code == formatCode {
			recordedName = format.Filename
			found = true
		}
	}
	if !found {
		if len(available) == 0 {
			return errcodes.NotFoundReason("No formats available for this book")
		}
		return errcodes.NotFoundReason(
			"Format " + formatCode + " not available for this book. Available formats: " + strings.Join(available, ", "))
	}

	path, err := h.resolver.Resolve(book.ID, book.Path, recordedName, formatCode, recordedName)
	if err != nil {
		return errors.WithStack(err)
	}

	filename := files.DownloadFilename(book.Title, book.ID, formatCode)
	c.Response().Header().Set(echo.HeaderContentType, files.MimeTypeForFormat(formatCode))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)

	return c.File(path)
}

// respondXML sends an XML response with the correct content type.
func respondXML(c echo.Context, data interface{}) error {
	c.Response().Header().Set(echo.HeaderContentType, MimeTypeAtom+"; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)

	// Write XML declaration
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return errors.WithStack(err)
	}

	// Encode the feed
	encoder := xml.NewEncoder(c.Response())
	encoder.Indent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return errors.WithStack(err)
	}

	return nil
}
