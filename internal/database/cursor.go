package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/simplegis/internal/models"
)

// sqlCursor adapts *sql.Rows to Cursor
type sqlCursor struct {
	rows    *sql.Rows
	cols    []string
	points  []bool // column holds a composite point
	row     models.Row
	err     error
	release func() error
	closed  bool
}

func newSQLCursor(rows *sql.Rows, release func() error) (*sqlCursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		if release != nil {
			release()
		}
		return nil, sourceErr(fmt.Errorf("failed to read columns: %w", err))
	}

	points := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, t := range types {
			points[i] = strings.EqualFold(t.DatabaseTypeName(), "POINT")
		}
	}

	return &sqlCursor{rows: rows, cols: cols, points: points, release: release}, nil
}

func (c *sqlCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}

	dest := make([]interface{}, len(c.cols))
	ptrs := make([]interface{}, len(c.cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = fmt.Errorf("failed to scan row: %w", err)
		return false
	}

	vals := make([]models.Value, len(dest))
	for i, d := range dest {
		vals[i] = toValue(d, c.points[i])
	}
	c.row = models.NewRow(c.cols, vals)
	return true
}

func (c *sqlCursor) Row() models.Row { return c.row }

func (c *sqlCursor) Err() error { return sourceErr(c.err) }

func (c *sqlCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rows.Close()
	if c.release != nil {
		if rerr := c.release(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) && err == nil {
			err = rerr
		}
	}
	return err
}

// toValue maps a driver value onto the closed scalar variant
func toValue(d interface{}, point bool) models.Value {
	switch v := d.(type) {
	case nil:
		return models.Null()
	case bool:
		return models.Bool(v)
	case int64:
		return models.Int(v)
	case int:
		return models.Int(int64(v))
	case int32:
		return models.Int(int64(v))
	case float64:
		return models.Float(v)
	case float32:
		return models.Float(float64(v))
	case []byte:
		return textValue(string(v), point)
	case string:
		return textValue(v, point)
	case time.Time:
		return models.Text(v.Format(time.RFC3339Nano))
	}
	return models.Text(fmt.Sprint(d))
}

// textValue decodes PostgreSQL point literals "(x,y)". x is the longitude.
func textValue(s string, point bool) models.Value {
	if point {
		if p, ok := models.ParsePoint(s); ok {
			return models.Point(p.Lon, p.Lat)
		}
	}
	return models.Text(s)
}
