// Package testutils builds Calibre-shaped catalogs for tests. The schema
// here is the subset of Calibre's metadata.db that the server reads.
package testutils

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var schema = []string{
	`CREATE TABLE books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT 'Unknown',
		sort TEXT,
		author_sort TEXT,
		path TEXT NOT NULL DEFAULT '',
		series_index REAL NOT NULL DEFAULT 1.0,
		isbn TEXT DEFAULT '',
		pubdate TEXT,
		last_modified TEXT NOT NULL DEFAULT '2000-01-01 00:00:00+00:00',
		has_cover BOOL DEFAULT 0,
		uuid TEXT
	)`,
	`CREATE TABLE authors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		sort TEXT
	)`,
	`CREATE TABLE books_authors_link (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book INTEGER NOT NULL,
		author INTEGER NOT NULL
	)`,
	`CREATE TABLE series (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		sort TEXT
	)`,
	`CREATE TABLE books_series_link (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book INTEGER NOT NULL,
		series INTEGER NOT NULL
	)`,
	`CREATE TABLE tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE books_tags_link (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book INTEGER NOT NULL,
		tag INTEGER NOT NULL
	)`,
	`CREATE TABLE data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book INTEGER NOT NULL,
		format TEXT NOT NULL,
		uncompressed_size INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book INTEGER NOT NULL,
		text TEXT NOT NULL
	)`,
}

// NewCatalogDB opens an in-memory catalog with the Calibre schema.
func NewCatalogDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// In-memory SQLite is per-connection; a pool of one keeps every
	// query on the connection that saw the schema.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	createSchema(t, db)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// NewCatalogFile writes a catalog file into dir and returns its path.
func NewCatalogFile(t *testing.T, dir string) (string, *bun.DB) {
	t.Helper()

	path := filepath.Join(dir, "metadata.db")
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	createSchema(t, db)

	t.Cleanup(func() {
		db.Close()
	})

	return path, db
}

func createSchema(t *testing.T, db *bun.DB) {
	t.Helper()
	for _, ddl := range schema {
		_, err := db.Exec(ddl)
		require.NoError(t, err)
	}
}

// FormatFixture describes one row in the data table.
type FormatFixture struct {
	Format string
	Size   int64
	Name   string
}

// BookFixture describes a book and its relations.
type BookFixture struct {
	Title        string
	AuthorSort   string
	Path         string
	Authors      []string
	Series       string
	SeriesIndex  float64
	Tags         []string
	Formats      []FormatFixture
	Comments     string
	ISBN         string
	PubDate      string
	LastModified string
	HasCover     bool
	UUID         string
}

// InsertBook inserts a book fixture with all of its relations and returns
// the book id. Authors, series, and tags are created on first use and
// reused by name after that.
func InsertBook(t *testing.T, db *bun.DB, fixture BookFixture) int {
	t.Helper()
	ctx := context.Background()

	lastModified := fixture.LastModified
	if lastModified == "" {
		lastModified = "2024-01-01 00:00:00+00:00"
	}
	seriesIndex := fixture.SeriesIndex
	if seriesIndex == 0 {
		seriesIndex = 1.0
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO books (title, author_sort, path, series_index, isbn, pubdate, last_modified, has_cover, uuid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fixture.Title, fixture.AuthorSort, fixture.Path, seriesIndex,
		fixture.ISBN, fixture.PubDate, lastModified, fixture.HasCover, fixture.UUID)
	require.NoError(t, err)
	bookID64, err := res.LastInsertId()
	require.NoError(t, err)
	bookID := int(bookID64)

	for _, name := range fixture.Authors {
		authorID := upsertNamed(t, db, "authors", name)
		_, err = db.ExecContext(ctx, `INSERT INTO books_authors_link (book, author) VALUES (?, ?)`, bookID, authorID)
		require.NoError(t, err)
	}

	if fixture.Series != "" {
		seriesID := upsertNamed(t, db, "series", fixture.Series)
		_, err = db.ExecContext(ctx, `INSERT INTO books_series_link (book, series) VALUES (?, ?)`, bookID, seriesID)
		require.NoError(t, err)
	}

	for _, name := range fixture.Tags {
		tagID := upsertNamed(t, db, "tags", name)
		_, err = db.ExecContext(ctx, `INSERT INTO books_tags_link (book, tag) VALUES (?, ?)`, bookID, tagID)
		require.NoError(t, err)
	}

	for _, format := range fixture.Formats {
		_, err = db.ExecContext(ctx,
			`INSERT INTO data (book, format, uncompressed_size, name) VALUES (?, ?, ?, ?)`,
			bookID, format.Format, format.Size, format.Name)
		require.NoError(t, err)
	}

	if fixture.Comments != "" {
		_, err = db.ExecContext(ctx, `INSERT INTO comments (book, text) VALUES (?, ?)`, bookID, fixture.Comments)
		require.NoError(t, err)
	}

	return bookID
}

func upsertNamed(t *testing.T, db *bun.DB, table, name string) int {
	t.Helper()
	ctx := context.Background()

	var id int
	err := db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id
	}
	require.ErrorIs(t, err, sql.ErrNoRows)

	var res sql.Result
	if table == "tags" {
		res, err = db.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	} else {
		res, err = db.ExecContext(ctx, `INSERT INTO `+table+` (name, sort) VALUES (?, ?)`, name, name)
	}
	require.NoError(t, err)
	id64, err := res.LastInsertId()
	require.NoError(t, err)
	return int(id64)
}
