package xrecord

import (
	"database/sql"
	"fmt"
)

// Row is one record of a result set: column names with raw values. Rows
// from the same result set share their column index.
type Row struct {
	cols *columnSet
	vals []any
}

type columnSet struct {
	names []string
	idx   map[string]int // normalized name -> first position
}

func newColumnSet(names []string) *columnSet {
	cs := &columnSet{names: append([]string(nil), names...), idx: make(map[string]int, len(names))}
	for i, n := range names {
		lc := normalizeColAscii(n)
		if _, ok := cs.idx[lc]; !ok {
			cs.idx[lc] = i
		}
	}
	return cs
}

// NewRow pairs column names with values. Missing trailing values read as null.
func NewRow(columns []string, values []any) Row {
	return Row{cols: newColumnSet(columns), vals: values}
}

// Columns returns the column names of the row.
func (r Row) Columns() []string {
	if r.cols == nil {
		return nil
	}
	return r.cols.names
}

// Get returns the raw value of column name (case-insensitive). ok is false
// when the row has no such column.
func (r Row) Get(name string) (v any, ok bool) {
	if r.cols == nil {
		return nil, false
	}
	i, ok := r.cols.idx[normalizeColAscii(name)]
	if !ok {
		return nil, false
	}
	if i < len(r.vals) {
		return r.vals[i], true
	}
	return nil, true
}

// ReadRows drains rows into memory. It does not close rows.
func ReadRows(rows *sql.Rows) ([]Row, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("xrecord: query returned zero columns")
	}
	cs := newColumnSet(names)
	var out []Row
	for rows.Next() {
		vals := make([]any, len(names))
		dests := make([]any, len(names))
		for i := range vals {
			dests[i] = &vals[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		out = append(out, Row{cols: cs, vals: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
