package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresSource serves queries from a PostgreSQL server
type PostgresSource struct {
	db       *sql.DB
	readOnly bool
}

// OpenPostgres connects using a lib/pq DSN or URL
func OpenPostgres(dsn string, readOnly bool, maxOpen, maxIdle int) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresSource{db: db, readOnly: readOnly}, nil
}

// Execute runs query. In read-only mode each query gets its own READ ONLY
// transaction which the cursor rolls back when closed.
func (s *PostgresSource) Execute(ctx context.Context, query string) (Cursor, error) {
	if !s.readOnly {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, sourceErr(err)
		}
		return newSQLCursor(rows, nil)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, sourceErr(fmt.Errorf("failed to begin read-only transaction: %w", err))
	}
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return nil, sourceErr(err)
	}
	return newSQLCursor(rows, tx.Rollback)
}

// Kind returns the source type
func (s *PostgresSource) Kind() string { return TypePostgres }

// DB exposes the pool for admin tooling
func (s *PostgresSource) DB() *sql.DB { return s.db }

// Close closes the pool
func (s *PostgresSource) Close() error { return s.db.Close() }
