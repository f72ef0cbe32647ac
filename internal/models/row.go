package models

import (
	"bytes"
	"encoding/json"
)

// Row is an ordered column name to Value mapping produced by a cursor step
type Row struct {
	cols []string
	vals map[string]Value
}

// NewRow builds a row from parallel column and value slices. Later
// duplicates of a column name overwrite earlier ones in place.
func NewRow(cols []string, vals []Value) Row {
	r := Row{vals: make(map[string]Value, len(cols))}
	for i, c := range cols {
		var v Value
		if i < len(vals) {
			v = vals[i]
		}
		r.Set(c, v)
	}
	return r
}

// Len returns the number of columns
func (r Row) Len() int { return len(r.cols) }

// Columns returns the column names in order
func (r Row) Columns() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// Get returns the value stored under col
func (r Row) Get(col string) (Value, bool) {
	v, ok := r.vals[col]
	return v, ok
}

// Has reports whether col is present
func (r Row) Has(col string) bool {
	_, ok := r.vals[col]
	return ok
}

// Set stores v under col, appending the column if it is new
func (r *Row) Set(col string, v Value) {
	if r.vals == nil {
		r.vals = make(map[string]Value)
	}
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}
	r.vals[col] = v
}

// Delete removes col and returns its previous value
func (r *Row) Delete(col string) (Value, bool) {
	v, ok := r.vals[col]
	if !ok {
		return Value{}, false
	}
	delete(r.vals, col)
	for i, c := range r.cols {
		if c == col {
			r.cols = append(r.cols[:i:i], r.cols[i+1:]...)
			break
		}
	}
	return v, true
}

// Equal compares column order and values
func (r Row) Equal(o Row) bool {
	if len(r.cols) != len(o.cols) {
		return false
	}
	for i, c := range r.cols {
		if o.cols[i] != c || !r.vals[c].Equal(o.vals[c]) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the row as a JSON object preserving column order
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := r.writeFields(&buf, nil); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeFields writes "k":v pairs without braces, leaving out the columns
// in skip
func (r Row) writeFields(buf *bytes.Buffer, skip map[string]bool) error {
	n := 0
	for _, c := range r.cols {
		if skip[c] {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
		k, err := json.Marshal(c)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.vals[c].MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(v)
	}
	return nil
}
