package catalog

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/foliolib/folio/pkg/models"
)

// Stats aggregates catalog totals and a per-format breakdown.
func (s *Service) Stats(ctx context.Context, idb bun.IDB) (*models.Stats, error) {
	stats := &models.Stats{Formats: map[string]int{}}

	err := idb.NewSelect().
		TableExpr("books").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &stats.TotalBooks)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = idb.NewSelect().
		TableExpr("authors").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &stats.TotalAuthors)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rows := []struct {
		Format string `bun:"format"`
		Count  int    `bun:"count"`
	}{}
	err = idb.NewSelect().
		TableExpr("data AS d").
		ColumnExpr("d.format, COUNT(*) AS count").
		GroupExpr("d.format").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	for _, row := range rows {
		stats.Formats[row.Format] = row.Count
	}

	return stats, nil
}
