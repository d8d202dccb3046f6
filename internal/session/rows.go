package session

import (
	"fmt"
	"slices"
)

// Row is one record of a RowSet, keyed by column.
type Row map[string]Value

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v.clone()
	}
	return out
}

// RowSet is an ordered list of fixed-shape rows that never drops below one row.
// Rows are addressed by position; removing a row shifts every later row down by one.
type RowSet struct {
	columns []string
	rows    []Row
}

func newRowSet(columns []string) *RowSet {
	rs := &RowSet{columns: slices.Clone(columns)}
	rs.rows = []Row{rs.emptyRow()}
	return rs
}

func (rs *RowSet) emptyRow() Row {
	row := make(Row, len(rs.columns))
	for _, c := range rs.columns {
		row[c] = Value{}
	}
	return row
}

// Columns returns the column keys in declaration order.
func (rs *RowSet) Columns() []string {
	return slices.Clone(rs.columns)
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	return len(rs.rows)
}

// Row returns a copy of the row at position i.
func (rs *RowSet) Row(i int) (Row, bool) {
	if i < 0 || i >= len(rs.rows) {
		return nil, false
	}
	return rs.rows[i].clone(), true
}

// Add appends an empty row and returns its position.
func (rs *RowSet) Add() int {
	rs.rows = append(rs.rows, rs.emptyRow())
	return len(rs.rows) - 1
}

// Remove deletes the row at position i. Removing the only row, or a position
// out of range, is a no-op and returns false.
func (rs *RowSet) Remove(i int) bool {
	if len(rs.rows) <= 1 || i < 0 || i >= len(rs.rows) {
		return false
	}
	rs.rows = slices.Delete(rs.rows, i, i+1)
	return true
}

// Set stores v in column col of row i.
func (rs *RowSet) Set(i int, col string, v Value) error {
	if i < 0 || i >= len(rs.rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(rs.rows))
	}
	if !slices.Contains(rs.columns, col) {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	rs.rows[i][col] = v
	return nil
}

// Replace swaps the whole row at position i. Columns missing from row are reset.
func (rs *RowSet) Replace(i int, row Row) error {
	if i < 0 || i >= len(rs.rows) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, i, len(rs.rows))
	}
	next := rs.emptyRow()
	for k, v := range row {
		if !slices.Contains(rs.columns, k) {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, k)
		}
		next[k] = v.clone()
	}
	rs.rows[i] = next
	return nil
}

func (rs *RowSet) snapshot() []Row {
	out := make([]Row, len(rs.rows))
	for i, r := range rs.rows {
		out[i] = r.clone()
	}
	return out
}
