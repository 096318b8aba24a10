package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"time"

	"github.com/foliolib/folio/pkg/config"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type key int

const ctxKey key = 0

func WithLogging(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey, true)
}

type logQueryHook struct {
	log logger.Logger
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	enabled, ok := ctx.Value(ctxKey).(bool)
	if !ok || !enabled {
		return
	}

	qh.log.Debug(event.Query)
}

// DB wraps the bun handle over the Calibre catalog together with the
// resolved paths and per-request connection counters. The catalog is
// never written.
type DB struct {
	*bun.DB

	CatalogPath string
	BooksPath   string

	queryTimeout time.Duration

	stats Stats
}

// New locates and validates the catalog file, then opens it through a
// connector that retries SQLITE_BUSY, since Calibre itself may hold the
// database while we read.
func New(cfg *config.Config) (*DB, error) {
	catalogPath, booksPath := Locate(cfg)

	if err := Validate(catalogPath); err != nil {
		return nil, errors.Wrapf(err, "catalog validation failed: %s", catalogPath)
	}

	drv := sqliteshim.Driver()
	drvCtx, ok := drv.(interface {
		OpenConnector(name string) (driver.Connector, error)
	})
	if !ok {
		return nil, errors.New("sqlite driver does not support OpenConnector")
	}
	connector, err := drvCtx.OpenConnector(catalogPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	retryConnector := newRetryConnector(connector, cfg.DatabaseMaxRetries)
	sqldb := sql.OpenDB(retryConnector)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if cfg.DatabaseDebug {
		db.AddQueryHook(&logQueryHook{logger.NewWithLevel("debug")})
	}

	// Retry until the catalog answers a trivial probe.
	for i := 0; i < cfg.DatabaseConnectRetryCount; i++ {
		_, err = db.Exec("SELECT 1")
		if err != nil {
			time.Sleep(cfg.DatabaseConnectRetryDelay)
			continue
		}
		break
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	applyPragmas(db, cfg)

	return &DB{
		DB:           db,
		CatalogPath:  catalogPath,
		BooksPath:    booksPath,
		queryTimeout: cfg.ConnectionTimeout,
	}, nil
}

// applyPragmas configures SQLite for concurrent reads. The catalog may be
// mounted read-only, in which case these fail; that is not an error.
func applyPragmas(db *bun.DB, cfg *config.Config) {
	log := logger.New()

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("pragma skipped (catalog is read-only)", logger.Data{"pragma": pragma, "error": err.Error()})
		}
	}

	busyTimeoutMs := cfg.DatabaseBusyTimeout.Milliseconds()
	if _, err := db.Exec("PRAGMA busy_timeout=?", busyTimeoutMs); err != nil {
		log.Debug("busy_timeout pragma skipped", logger.Data{"error": err.Error()})
	}
}

// Acquire checks a connection out of the pool for the duration of one
// request. The returned context bounds every query on the connection by
// the configured timeout. The release function must be deferred; it is
// idempotent, so handlers that finish with the catalog before streaming
// a file can also call it early.
func (db *DB) Acquire(ctx context.Context) (context.Context, bun.Conn, func(), error) {
	cancel := func() {}
	if db.queryTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, db.queryTimeout)
	}

	conn, err := db.DB.Conn(ctx)
	if err != nil {
		cancel()
		db.stats.RecordError()
		return ctx, bun.Conn{}, nil, errors.WithStack(err)
	}
	db.stats.RecordCreated()

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			if err := conn.Close(); err != nil {
				logger.New().Err(err).Warn("connection release error")
				return
			}
			db.stats.RecordClosed()
		})
	}

	return ctx, conn, release, nil
}

// ConnStats returns a snapshot of the connection counters.
func (db *DB) ConnStats() StatsSnapshot {
	return db.stats.Snapshot()
}

// Healthy reports whether the catalog currently answers a trivial probe
// on the given connection.
func (db *DB) Healthy(ctx context.Context, idb bun.IDB) bool {
	var one int
	err := idb.NewSelect().ColumnExpr("1").Scan(ctx, &one)
	return err == nil && one == 1
}
