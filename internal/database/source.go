package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jengzang/simplegis/internal/models"
)

// Source types accepted by Open
const (
	TypeSQLite   = "sqlite3"
	TypePostgres = "pg"
	TypeCSV      = "csv"
)

// Source is a long-lived handle on the data a query runs against. It must be
// safe for concurrent Execute calls, each returning an independent cursor.
type Source interface {
	Execute(ctx context.Context, query string) (Cursor, error)
	Kind() string
	Close() error
}

// Cursor walks the rows of one executed query. Close is idempotent and must
// be called on every path.
type Cursor interface {
	Next() bool
	Row() models.Row
	Err() error
	Close() error
}

// SQLBacked is implemented by sources that sit on a database/sql pool
type SQLBacked interface {
	DB() *sql.DB
}

// Config holds database configuration
type Config struct {
	Type     string
	Path     string // file path or DSN
	ReadOnly bool

	CacheSize    int // sqlite PRAGMA cache_size
	MaxOpenConns int
	MaxIdleConns int

	CSV CSVOptions
}

// Open builds the Source selected by cfg.Type
func Open(cfg Config) (Source, error) {
	var (
		src Source
		err error
	)
	switch cfg.Type {
	case TypeSQLite, "sqlite", "":
		src, err = OpenSQLite(cfg.Path, cfg.ReadOnly, cfg.CacheSize)
	case TypePostgres, "postgres":
		src, err = OpenPostgres(cfg.Path, cfg.ReadOnly, cfg.MaxOpenConns, cfg.MaxIdleConns)
	case TypeCSV:
		src, err = OpenCSV(cfg.Path, cfg.CSV, cfg.ReadOnly, cfg.CacheSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("source opened", "type", src.Kind(), "read_only", cfg.ReadOnly)
	return src, nil
}
