// Package catalog reads book metadata out of a Calibre catalog. All
// methods take a bun.IDB so callers decide the connection scope; request
// handlers pass a connection acquired for the duration of the request.
package catalog

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/foliolib/folio/pkg/encoding"
	"github.com/foliolib/folio/pkg/errcodes"
	"github.com/foliolib/folio/pkg/models"
)

const (
	// DefaultBookLimit is the page size for book listings.
	DefaultBookLimit = 20
	// DefaultFacetLimit is the page size for author, series, and tag listings.
	DefaultFacetLimit = 50
	// MaxLimit caps any client-supplied page size.
	MaxLimit = 100
)

// Service exposes read operations over the catalog.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// ListBooksOptions filters and paginates a book listing. Search matches
// title or author sort with a substring; Author, Series, and Tag require
// an exact link through the corresponding join table. Filters compose
// with AND.
type ListBooksOptions struct {
	Search *string
	Author *string
	Series *string
	Tag    *string
	Limit  *int
	Offset *int
}

// ClampLimit resolves a client-supplied limit against a default, keeping
// the result within [1, MaxLimit].
func ClampLimit(limit *int, def int) int {
	v := def
	if limit != nil {
		v = *limit
	}
	if v < 1 {
		v = 1
	}
	if v > MaxLimit {
		v = MaxLimit
	}
	return v
}

// ClampOffset resolves a client-supplied offset, flooring at zero.
func ClampOffset(offset *int) int {
	if offset != nil && *offset > 0 {
		return *offset
	}
	return 0
}

// applyBookFilters adds the WHERE clauses for ListBooksOptions. ListBooks
// and CountBooks both go through here, so a listing and its count can
// never disagree about which rows qualify.
func applyBookFilters(q *bun.SelectQuery, opts ListBooksOptions) *bun.SelectQuery {
	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + *opts.Search + "%"
		q = q.Where("(b.title LIKE ? OR b.author_sort LIKE ?)", pattern, pattern)
	}
	if opts.Author != nil && *opts.Author != "" {
		q = q.Where(
			"EXISTS (SELECT 1 FROM books_authors_link bal JOIN authors a ON bal.author = a.id WHERE bal.book = b.id AND a.name = ?)",
			*opts.Author,
		)
	}
	if opts.Series != nil && *opts.Series != "" {
		q = q.Where(
			"EXISTS (SELECT 1 FROM books_series_link bsl JOIN series s ON bsl.series = s.id WHERE bsl.book = b.id AND s.name = ?)",
			*opts.Series,
		)
	}
	if opts.Tag != nil && *opts.Tag != "" {
		q = q.Where(
			"EXISTS (SELECT 1 FROM books_tags_link btl JOIN tags t ON btl.tag = t.id WHERE btl.book = b.id AND t.name = ?)",
			*opts.Tag,
		)
	}
	return q
}

// ListBooks returns a page of books, newest modifications first, with
// authors, tags, series, and formats attached.
func (s *Service) ListBooks(ctx context.Context, idb bun.IDB, opts ListBooksOptions) ([]*models.Book, error) {
	books := []*models.Book{}

	q := idb.NewSelect().
		TableExpr("books AS b").
		ColumnExpr("b.id, b.title, b.author_sort, b.path, b.series_index, b.isbn, b.pubdate, b.last_modified, b.has_cover, b.uuid")
	q = applyBookFilters(q, opts)
	q = q.
		OrderExpr("b.last_modified DESC").
		OrderExpr("b.id ASC").
		Limit(ClampLimit(opts.Limit, DefaultBookLimit)).
		Offset(ClampOffset(opts.Offset))

	if err := q.Scan(ctx, &books); err != nil {
		return nil, errors.WithStack(err)
	}

	for _, book := range books {
		if err := s.attachRelations(ctx, idb, book); err != nil {
			return nil, err
		}
	}

	return books, nil
}

// CountBooks returns the total number of books matching the same filters
// as ListBooks, ignoring pagination.
func (s *Service) CountBooks(ctx context.Context, idb bun.IDB, opts ListBooksOptions) (int, error) {
	var count int

	q := idb.NewSelect().
		TableExpr("books AS b").
		ColumnExpr("COUNT(b.id)")
	q = applyBookFilters(q, opts)

	if err := q.Scan(ctx, &count); err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}

// RetrieveBook returns a single book with its description attached. A
// missing id yields a not-found error rather than a nil book.
func (s *Service) RetrieveBook(ctx context.Context, idb bun.IDB, id int) (*models.Book, error) {
	book := &models.Book{}

	err := idb.NewSelect().
		TableExpr("books AS b").
		ColumnExpr("b.id, b.title, b.author_sort, b.path, b.series_index, b.isbn, b.pubdate, b.last_modified, b.has_cover, b.uuid").
		Where("b.id = ?", id).
		Scan(ctx, book)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	if err := s.attachRelations(ctx, idb, book); err != nil {
		return nil, err
	}

	var comments string
	err = idb.NewSelect().
		TableExpr("comments AS c").
		ColumnExpr("c.text").
		Where("c.book = ?", id).
		Scan(ctx, &comments)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}
	book.Comments = encoding.Normalize(comments)

	return book, nil
}

func (s *Service) attachRelations(ctx context.Context, idb bun.IDB, book *models.Book) error {
	book.Title = encoding.Normalize(book.Title)
	book.AuthorSort = encoding.Normalize(book.AuthorSort)

	authors, err := s.bookAuthors(ctx, idb, book.ID)
	if err != nil {
		return err
	}
	book.Authors = authors

	tags, err := s.bookTags(ctx, idb, book.ID)
	if err != nil {
		return err
	}
	book.Tags = tags

	series, err := s.bookSeries(ctx, idb, book.ID)
	if err != nil {
		return err
	}
	book.Series = series

	formats, err := s.bookFormats(ctx, idb, book.ID)
	if err != nil {
		return err
	}
	book.Formats = formats

	return nil
}

// bookAuthors preserves the link-table insertion order, which is the
// author credit order Calibre displays.
func (s *Service) bookAuthors(ctx context.Context, idb bun.IDB, bookID int) ([]models.Author, error) {
	authors := []models.Author{}

	err := idb.NewSelect().
		TableExpr("authors AS a").
		ColumnExpr("a.name, a.sort").
		Join("JOIN books_authors_link AS bal ON bal.author = a.id").
		Where("bal.book = ?", bookID).
		OrderExpr("bal.id ASC").
		Scan(ctx, &authors)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for i := range authors {
		authors[i].Name = encoding.Normalize(authors[i].Name)
		authors[i].Sort = encoding.Normalize(authors[i].Sort)
	}

	return authors, nil
}

func (s *Service) bookTags(ctx context.Context, idb bun.IDB, bookID int) ([]models.Tag, error) {
	tags := []models.Tag{}

	err := idb.NewSelect().
		TableExpr("tags AS t").
		ColumnExpr("t.name").
		Join("JOIN books_tags_link AS btl ON btl.tag = t.id").
		Where("btl.book = ?", bookID).
		OrderExpr("t.name ASC").
		Scan(ctx, &tags)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for i := range tags {
		tags[i].Name = encoding.Normalize(tags[i].Name)
	}

	return tags, nil
}

func (s *Service) bookSeries(ctx context.Context, idb bun.IDB, bookID int) (*models.Series, error) {
	series := []models.Series{}

	err := idb.NewSelect().
		TableExpr("series AS s").
		ColumnExpr("s.name, s.sort, b.series_index AS series_index").
		Join("JOIN books_series_link AS bsl ON bsl.series = s.id").
		Join("JOIN books AS b ON bsl.book = b.id").
		Where("b.id = ?", bookID).
		Scan(ctx, &series)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(series) == 0 {
		return nil, nil
	}

	first := series[0]
	first.Name = encoding.Normalize(first.Name)
	first.Sort = encoding.Normalize(first.Sort)
	return &first, nil
}

func (s *Service) bookFormats(ctx context.Context, idb bun.IDB, bookID int) ([]models.Format, error) {
	formats := []models.Format{}

	err := idb.NewSelect().
		TableExpr("data AS d").
		ColumnExpr("d.format, d.uncompressed_size AS size, d.name AS filename").
		Where("d.book = ?", bookID).
		OrderExpr("d.format ASC").
		Scan(ctx, &formats)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return formats, nil
}
