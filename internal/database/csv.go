package database

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CSVTable is the table name a CSV file is loaded into
const CSVTable = "csv"

// CSVOptions describes the CSV dialect
type CSVOptions struct {
	Delimiter string // single character, "," when empty
	Header    bool   // first record holds the column names
	Numeric   bool   // store fields that parse as numbers as INTEGER/REAL
}

// OpenCSV loads the file at path into a temporary sqlite database and
// serves it through a SQLiteSource. The temporary file is removed on Close.
func OpenCSV(path string, opts CSVOptions, readOnly bool, cacheSize int) (*SQLiteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	tmp, err := os.CreateTemp("", "simplegis-csv-*.db")
	if err != nil {
		return nil, fmt.Errorf("failed to create csv database: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	remove := func() error { return os.Remove(tmpPath) }

	rows, err := loadCSV(f, tmpPath, opts)
	if err != nil {
		remove()
		return nil, err
	}

	src, err := OpenSQLite(tmpPath, readOnly, cacheSize)
	if err != nil {
		remove()
		return nil, err
	}
	src.kind = TypeCSV
	src.cleanup = remove

	slog.Info("csv loaded", "path", path, "rows", rows)
	return src, nil
}

// loadCSV creates the csv table in the database at dbPath and fills it
func loadCSV(r io.Reader, dbPath string, opts CSVOptions) (int, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != "" {
		d, size := utf8.DecodeRuneInString(opts.Delimiter)
		if size != len(opts.Delimiter) {
			return 0, fmt.Errorf("csv delimiter must be a single character, got %q", opts.Delimiter)
		}
		reader.Comma = d
	}

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, errors.New("csv file is empty")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read csv: %w", err)
	}

	cols := first
	var pending []string
	if !opts.Header {
		cols = make([]string, len(first))
		for i := range first {
			cols[i] = "c" + strconv.Itoa(i+1)
		}
		pending = first
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open csv database: %w", err)
	}
	defer db.Close()

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(CSVTable), strings.Join(quoted, ", "))
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(CSVTable),
		strings.TrimSuffix(strings.Repeat("?,", len(cols)), ","))

	count := 0
	err = Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(create); err != nil {
			return fmt.Errorf("failed to create csv table: %w", err)
		}
		stmt, err := tx.Prepare(insert)
		if err != nil {
			return fmt.Errorf("failed to prepare csv insert: %w", err)
		}
		defer stmt.Close()

		record := pending
		for {
			if record != nil {
				args := make([]interface{}, len(record))
				for i, field := range record {
					args[i] = csvField(field, opts.Numeric)
				}
				if _, err := stmt.Exec(args...); err != nil {
					return fmt.Errorf("failed to insert csv record %d: %w", count+1, err)
				}
				count++
			}
			record, err = reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read csv: %w", err)
			}
		}
	})
	return count, err
}

// csvField converts numeric-looking fields when requested
func csvField(s string, numeric bool) interface{} {
	if !numeric {
		return s
	}
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
