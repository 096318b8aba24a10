package database

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/foliolib/folio/pkg/config"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// catalogCandidates is the search order for the catalog file. The local
// relative path wins over the container mount so that a bind-mounted
// working copy takes precedence.
var catalogCandidates = []string{
	"books/metadata.db",
	"/books/metadata.db",
	"metadata.db",
}

// Locate finds the catalog file and the content-store root. Candidates
// are probed in order and the first valid one wins; if none validates,
// the configured path is returned as-is so that startup fails with a
// useful error from Validate.
func Locate(cfg *config.Config) (catalogPath, booksPath string) {
	log := logger.New()

	catalogPath = cfg.DatabaseFilePath
	for _, candidate := range catalogCandidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if err := Validate(candidate); err != nil {
			log.Warn("skipping invalid catalog candidate", logger.Data{"path": candidate, "error": err.Error()})
			continue
		}
		catalogPath = candidate
		break
	}

	// The content store sits next to the catalog file; the configured
	// path is the fallback when that directory is not readable.
	booksPath = cfg.BooksPath
	if dir := filepath.Dir(catalogPath); isDir(dir) {
		booksPath = dir
	}

	return catalogPath, booksPath
}

func isDir(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

var (
	validateMu     sync.Mutex
	validateByPath = map[string]error{}
)

// Validate checks that a path is a well-formed Calibre catalog: a
// non-empty SQLite file that has a books table and answers a count query.
// Results are memoized for the process lifetime, so the probe in Locate
// and the one in New share a single check per path.
func Validate(path string) error {
	validateMu.Lock()
	defer validateMu.Unlock()

	if err, ok := validateByPath[path]; ok {
		return err
	}
	err := validateCatalog(path)
	validateByPath[path] = err
	return err
}

func validateCatalog(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "catalog file missing")
	}
	if info.Size() == 0 {
		return errors.New("catalog file is empty")
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer sqldb.Close()

	var name string
	err = sqldb.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='books'").Scan(&name)
	if err != nil {
		return errors.Wrap(err, "catalog has no books table")
	}

	var count int
	if err := sqldb.QueryRow("SELECT COUNT(*) FROM books").Scan(&count); err != nil {
		return errors.Wrap(err, "catalog probe query failed")
	}

	return nil
}
