package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/foliolib/folio/pkg/errcodes"
	"github.com/foliolib/folio/pkg/testutils"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func seedCatalog(t *testing.T, db *bun.DB) (first, second, third int) {
	t.Helper()

	first = testutils.InsertBook(t, db, testutils.BookFixture{
		Title:        "The Hobbit",
		AuthorSort:   "Tolkien, J. R. R.",
		Path:         "J. R. R. Tolkien/The Hobbit (1)",
		Authors:      []string{"J. R. R. Tolkien"},
		Series:       "Middle Earth",
		SeriesIndex:  1,
		Tags:         []string{"Fantasy", "Classic"},
		Formats:      []testutils.FormatFixture{{Format: "EPUB", Size: 1024, Name: "The Hobbit - J. R. R. Tolkien"}},
		LastModified: "2024-03-01 00:00:00+00:00",
		UUID:         "0f9ab1f2-0000-4000-8000-000000000001",
		HasCover:     true,
	})
	second = testutils.InsertBook(t, db, testutils.BookFixture{
		Title:        "The Fellowship of the Ring",
		AuthorSort:   "Tolkien, J. R. R.",
		Path:         "J. R. R. Tolkien/The Fellowship of the Ring (2)",
		Authors:      []string{"J. R. R. Tolkien"},
		Series:       "Middle Earth",
		SeriesIndex:  2,
		Tags:         []string{"Fantasy"},
		Formats: []testutils.FormatFixture{
			{Format: "EPUB", Size: 2048, Name: "The Fellowship of the Ring - J. R. R. Tolkien"},
			{Format: "PDF", Size: 4096, Name: "The Fellowship of the Ring - J. R. R. Tolkien"},
		},
		LastModified: "2024-02-01 00:00:00+00:00",
	})
	third = testutils.InsertBook(t, db, testutils.BookFixture{
		Title:        "Snow Crash",
		AuthorSort:   "Stephenson, Neal",
		Path:         "Neal Stephenson/Snow Crash (3)",
		Authors:      []string{"Neal Stephenson"},
		Tags:         []string{"Science Fiction"},
		Formats:      []testutils.FormatFixture{{Format: "EPUB", Size: 512, Name: "Snow Crash - Neal Stephenson"}},
		Comments:     "<p>Hiro lives in a <b>storage unit</b>.</p>",
		LastModified: "2024-01-01 00:00:00+00:00",
	})
	return first, second, third
}

func TestListBooksOrdering(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	first, second, third := seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	books, err := svc.ListBooks(ctx, db, ListBooksOptions{})
	require.NoError(t, err)
	require.Len(t, books, 3)

	// Newest modification first
	assert.Equal(t, first, books[0].ID)
	assert.Equal(t, second, books[1].ID)
	assert.Equal(t, third, books[2].ID)
}

func TestListBooksOrderingTieBreak(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	svc := NewService()
	ctx := context.Background()

	sameStamp := "2024-05-01 00:00:00+00:00"
	a := testutils.InsertBook(t, db, testutils.BookFixture{Title: "A", LastModified: sameStamp})
	b := testutils.InsertBook(t, db, testutils.BookFixture{Title: "B", LastModified: sameStamp})

	books, err := svc.ListBooks(ctx, db, ListBooksOptions{})
	require.NoError(t, err)
	require.Len(t, books, 2)

	// Equal timestamps fall back to ascending id
	assert.Equal(t, a, books[0].ID)
	assert.Equal(t, b, books[1].ID)
}

func TestListBooksEnrichment(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	books, err := svc.ListBooks(ctx, db, ListBooksOptions{})
	require.NoError(t, err)
	require.Len(t, books, 3)

	hobbit := books[0]
	require.Len(t, hobbit.Authors, 1)
	assert.Equal(t, "J. R. R. Tolkien", hobbit.Authors[0].Name)
	require.NotNil(t, hobbit.Series)
	assert.Equal(t, "Middle Earth", hobbit.Series.Name)
	// Tags come back name-sorted
	require.Len(t, hobbit.Tags, 2)
	assert.Equal(t, "Classic", hobbit.Tags[0].Name)
	assert.Equal(t, "Fantasy", hobbit.Tags[1].Name)

	fellowship := books[1]
	require.Len(t, fellowship.Formats, 2)
	assert.Equal(t, "EPUB", fellowship.Formats[0].Format)
	assert.Equal(t, "PDF", fellowship.Formats[1].Format)

	snowCrash := books[2]
	assert.Nil(t, snowCrash.Series)
}

func TestListBooksSearchMatchesCount(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	opts := ListBooksOptions{Search: strPtr("Tolkien")}

	books, err := svc.ListBooks(ctx, db, opts)
	require.NoError(t, err)
	total, err := svc.CountBooks(ctx, db, opts)
	require.NoError(t, err)

	assert.Len(t, books, 2)
	assert.Equal(t, 2, total)
}

func TestListBooksFacetFilters(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	_, _, third := seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	byAuthor, err := svc.ListBooks(ctx, db, ListBooksOptions{Author: strPtr("Neal Stephenson")})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, third, byAuthor[0].ID)

	bySeries, err := svc.ListBooks(ctx, db, ListBooksOptions{Series: strPtr("Middle Earth")})
	require.NoError(t, err)
	assert.Len(t, bySeries, 2)

	byTag, err := svc.ListBooks(ctx, db, ListBooksOptions{Tag: strPtr("Science Fiction")})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, third, byTag[0].ID)

	// Filters compose with AND
	none, err := svc.ListBooks(ctx, db, ListBooksOptions{
		Author: strPtr("Neal Stephenson"),
		Series: strPtr("Middle Earth"),
	})
	require.NoError(t, err)
	assert.Empty(t, none)

	noneTotal, err := svc.CountBooks(ctx, db, ListBooksOptions{
		Author: strPtr("Neal Stephenson"),
		Series: strPtr("Middle Earth"),
	})
	require.NoError(t, err)
	assert.Zero(t, noneTotal)
}

func TestListBooksPaginationDisjoint(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	pageOne, err := svc.ListBooks(ctx, db, ListBooksOptions{Limit: intPtr(2), Offset: intPtr(0)})
	require.NoError(t, err)
	pageTwo, err := svc.ListBooks(ctx, db, ListBooksOptions{Limit: intPtr(2), Offset: intPtr(2)})
	require.NoError(t, err)

	require.Len(t, pageOne, 2)
	require.Len(t, pageTwo, 1)

	seen := map[int]bool{}
	for _, book := range append(pageOne, pageTwo...) {
		assert.False(t, seen[book.ID], "book %d appeared twice", book.ID)
		seen[book.ID] = true
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultBookLimit, ClampLimit(nil, DefaultBookLimit))
	assert.Equal(t, 5, ClampLimit(intPtr(5), DefaultBookLimit))
	assert.Equal(t, 1, ClampLimit(intPtr(0), DefaultBookLimit))
	assert.Equal(t, 1, ClampLimit(intPtr(-3), DefaultBookLimit))
	assert.Equal(t, MaxLimit, ClampLimit(intPtr(500), DefaultBookLimit))
}

func TestClampOffset(t *testing.T) {
	assert.Equal(t, 0, ClampOffset(nil))
	assert.Equal(t, 0, ClampOffset(intPtr(-1)))
	assert.Equal(t, 40, ClampOffset(intPtr(40)))
}

func TestRetrieveBook(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	_, _, third := seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	book, err := svc.RetrieveBook(ctx, db, third)
	require.NoError(t, err)
	assert.Equal(t, "Snow Crash", book.Title)
	assert.Equal(t, "<p>Hiro lives in a <b>storage unit</b>.</p>", book.Comments)
}

func TestRetrieveBookNotFound(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	svc := NewService()
	ctx := context.Background()

	_, err := svc.RetrieveBook(ctx, db, 9999)
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 404, cerr.HTTPCode)
}

func TestListAuthorFacets(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	facets, err := svc.ListAuthorFacets(ctx, db, nil, nil)
	require.NoError(t, err)
	require.Len(t, facets, 2)

	// Ordered by sort name
	assert.Equal(t, "J. R. R. Tolkien", facets[0].Name)
	assert.Equal(t, 2, facets[0].BookCount)
	assert.Equal(t, "Neal Stephenson", facets[1].Name)
	assert.Equal(t, 1, facets[1].BookCount)

	total, err := svc.CountAuthorFacets(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestFacetsExcludeUnlinked(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	// An author with no books must not appear
	_, err := db.Exec(`INSERT INTO authors (name, sort) VALUES ('Ghost Writer', 'Ghost Writer')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tags (name) VALUES ('Unused')`)
	require.NoError(t, err)

	authorFacets, err := svc.ListAuthorFacets(ctx, db, nil, nil)
	require.NoError(t, err)
	for _, facet := range authorFacets {
		assert.NotEqual(t, "Ghost Writer", facet.Name)
		assert.GreaterOrEqual(t, facet.BookCount, 1)
	}

	tagFacets, err := svc.ListTagFacets(ctx, db, nil, nil)
	require.NoError(t, err)
	for _, facet := range tagFacets {
		assert.NotEqual(t, "Unused", facet.Name)
	}
}

func TestListSeriesAndTagFacets(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	seriesFacets, err := svc.ListSeriesFacets(ctx, db, nil, nil)
	require.NoError(t, err)
	require.Len(t, seriesFacets, 1)
	assert.Equal(t, "Middle Earth", seriesFacets[0].Name)
	assert.Equal(t, 2, seriesFacets[0].BookCount)

	tagFacets, err := svc.ListTagFacets(ctx, db, nil, nil)
	require.NoError(t, err)
	require.Len(t, tagFacets, 3)
	assert.Equal(t, "Classic", tagFacets[0].Name)
	assert.Equal(t, "Fantasy", tagFacets[1].Name)
	assert.Equal(t, 2, tagFacets[1].BookCount)
	assert.Equal(t, "Science Fiction", tagFacets[2].Name)
}

func TestStats(t *testing.T) {
	db := testutils.NewCatalogDB(t)
	seedCatalog(t, db)
	svc := NewService()
	ctx := context.Background()

	stats, err := svc.Stats(ctx, db)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalBooks)
	assert.Equal(t, 2, stats.TotalAuthors)
	assert.Equal(t, 3, stats.Formats["EPUB"])
	assert.Equal(t, 1, stats.Formats["PDF"])
}
