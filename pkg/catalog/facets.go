package catalog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/foliolib/folio/pkg/encoding"
	"github.com/foliolib/folio/pkg/models"
)

// Facet listings use inner joins, so an author, series, or tag with no
// linked books never appears and every count is at least one.

// ListAuthorFacets returns authors with their book counts, ordered by
// sort name.
func (s *Service) ListAuthorFacets(ctx context.Context, idb bun.IDB, limit, offset *int) ([]models.AuthorFacet, error) {
	facets := []models.AuthorFacet{}

	err := idb.NewSelect().
		TableExpr("authors AS a").
		ColumnExpr("a.name, a.sort, COUNT(b.id) AS book_count").
		Join("JOIN books_authors_link AS bal ON bal.author = a.id").
		Join("JOIN books AS b ON bal.book = b.id").
		GroupExpr("a.id, a.name, a.sort").
		OrderExpr("a.sort ASC").
		Limit(ClampLimit(limit, DefaultFacetLimit)).
		Offset(ClampOffset(offset)).
		Scan(ctx, &facets)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for i := range facets {
		facets[i].Name = encoding.Normalize(facets[i].Name)
		facets[i].Sort = encoding.Normalize(facets[i].Sort)
	}

	return facets, nil
}

// CountAuthorFacets returns the number of authors that have at least one
// book.
func (s *Service) CountAuthorFacets(ctx context.Context, idb bun.IDB) (int, error) {
	var count int

	err := idb.NewSelect().
		TableExpr("authors AS a").
		ColumnExpr("COUNT(DISTINCT a.id)").
		Join("JOIN books_authors_link AS bal ON bal.author = a.id").
		Scan(ctx, &count)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}

// ListSeriesFacets returns series with their book counts, ordered by
// sort name.
func (s *Service) ListSeriesFacets(ctx context.Context, idb bun.IDB, limit, offset *int) ([]models.SeriesFacet, error) {
	facets := []models.SeriesFacet{}

	err := idb.NewSelect().
		TableExpr("series AS s").
		ColumnExpr("s.name, s.sort, COUNT(b.id) AS book_count").
		Join("JOIN books_series_link AS bsl ON bsl.series = s.id").
		Join("JOIN books AS b ON bsl.book = b.id").
		GroupExpr("s.id, s.name, s.sort").
		OrderExpr("s.sort ASC").
		Limit(ClampLimit(limit, DefaultFacetLimit)).
		Offset(ClampOffset(offset)).
		Scan(ctx, &facets)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for i := range facets {
		facets[i].Name = encoding.Normalize(facets[i].Name)
		facets[i].Sort = encoding.Normalize(facets[i].Sort)
	}

	return facets, nil
}

// CountSeriesFacets returns the number of series that have at least one
// book.
func (s *Service) CountSeriesFacets(ctx context.Context, idb bun.IDB) (int, error) {
	var count int

	err := idb.NewSelect().
		TableExpr("series AS s").
		ColumnExpr("COUNT(DISTINCT s.id)").
		Join("JOIN books_series_link AS bsl ON bsl.series = s.id").
		Scan(ctx, &count)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}

// ListTagFacets returns tags with their book counts, ordered by name.
func (s *Service) ListTagFacets(ctx context.Context, idb bun.IDB, limit, offset *int) ([]models.TagFacet, error) {
	facets := []models.TagFacet{}

	err := idb.NewSelect().
		TableExpr("tags AS t").
		ColumnExpr("t.name, COUNT(b.id) AS book_count").
		Join("JOIN books_tags_link AS btl ON btl.tag = t.id").
		Join("JOIN books AS b ON btl.book = b.id").
		GroupExpr("t.id, t.name").
		OrderExpr("t.name ASC").
		Limit(ClampLimit(limit, DefaultFacetLimit)).
		Offset(ClampOffset(offset)).
		Scan(ctx, &facets)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for i := range facets {
		facets[i].Name = encoding.Normalize(facets[i].Name)
	}

	return facets, nil
}

// CountTagFacets returns the number of tags that have at least one book.
func (s *Service) CountTagFacets(ctx context.Context, idb bun.IDB) (int, error) {
	var count int

	err := idb.NewSelect().
		TableExpr("tags AS t").
		ColumnExpr("COUNT(DISTINCT t.id)").
		Join("JOIN books_tags_link AS btl ON btl.tag = t.id").
		Scan(ctx, &count)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return count, nil
}
