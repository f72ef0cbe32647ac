package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"modernc.org/sqlite"

	"github.com/jengzang/simplegis/internal/spatial"
)

// DefaultCacheSize mirrors PRAGMA cache_size=-100000 (about 100MB of pages)
const DefaultCacheSize = -100000

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions makes geodistance(lat1, lon1, lat2, lon2) and
// geohash(lat, lon, precision) callable from every sqlite connection opened
// by this process
func registerFunctions() error {
	registerOnce.Do(func() {
		if registerErr = sqlite.RegisterDeterministicScalarFunction("geodistance", 4, geodistance); registerErr != nil {
			return
		}
		registerErr = sqlite.RegisterDeterministicScalarFunction("geohash", 3, geohash)
	})
	return registerErr
}

func geodistance(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	var f [4]float64
	for i, a := range args {
		n, ok, err := sqlNumber("geodistance", i, a)
		if err != nil || !ok {
			return nil, err
		}
		f[i] = n
	}
	return spatial.HaversineDistance(f[0], f[1], f[2], f[3]), nil
}

func geohash(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	var f [3]float64
	for i, a := range args {
		n, ok, err := sqlNumber("geohash", i, a)
		if err != nil || !ok {
			return nil, err
		}
		f[i] = n
	}
	return spatial.Geohash(f[0], f[1], int(f[2])), nil
}

// sqlNumber converts a function argument to float64. ok is false for NULL.
func sqlNumber(fn string, i int, a driver.Value) (float64, bool, error) {
	switch v := a.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return float64(v), true, nil
	case float64:
		return v, true, nil
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n, true, nil
		}
	}
	return 0, false, fmt.Errorf("%s: argument %d is not numeric", fn, i+1)
}

// SQLiteSource serves queries from a sqlite database file
type SQLiteSource struct {
	db       *sql.DB
	path     string
	readOnly bool
	kind     string
	cleanup  func() error
}

// OpenSQLite opens the database at path. Per-connection pragmas go through
// the DSN so every pooled connection gets them.
func OpenSQLite(path string, readOnly bool, cacheSize int) (*SQLiteSource, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("failed to register sql functions: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(path, readOnly, cacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	slog.Debug("sqlite database opened", "path", path, "read_only", readOnly)
	return &SQLiteSource{db: db, path: path, readOnly: readOnly, kind: TypeSQLite}, nil
}

func sqliteDSN(path string, readOnly bool, cacheSize int) string {
	q := url.Values{}
	if cacheSize != 0 {
		q.Add("_pragma", fmt.Sprintf("cache_size(%d)", cacheSize))
	}
	q.Add("_pragma", "busy_timeout(5000)")
	if readOnly {
		q.Add("_pragma", "query_only(1)")
	}
	return path + "?" + q.Encode()
}

// Execute runs query and returns a cursor over its rows
func (s *SQLiteSource) Execute(ctx context.Context, query string) (Cursor, error) {
	if s.readOnly {
		if err := CheckReadOnly(query); err != nil {
			return nil, sourceErr(err)
		}
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, sourceErr(err)
	}
	return newSQLCursor(rows, nil)
}

// Kind returns the source type
func (s *SQLiteSource) Kind() string { return s.kind }

// DB exposes the pool for admin tooling
func (s *SQLiteSource) DB() *sql.DB { return s.db }

// Close closes the database connection
func (s *SQLiteSource) Close() error {
	err := s.db.Close()
	if s.cleanup != nil {
		if cerr := s.cleanup(); err == nil {
			err = cerr
		}
	}
	return err
}

// Transaction executes a function within a database transaction
func Transaction(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
