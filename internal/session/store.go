package session

import (
	"maps"
	"slices"
)

// Store holds the current value of every field of a session.
type Store struct {
	values map[string]Value
	rows   map[string]*RowSet
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		values: make(map[string]Value),
		rows:   make(map[string]*RowSet),
	}
}

// Set stores v under key verbatim.
func (s *Store) Set(key string, v Value) {
	s.values[key] = v.clone()
}

// Get returns the value stored under key, or the empty value.
func (s *Store) Get(key string) Value {
	return s.values[key].clone()
}

// Clear resets key to the empty value.
func (s *Store) Clear(key string) {
	delete(s.values, key)
}

// Declare registers a row set with the given columns, seeded with one empty row.
// Declaring an existing key returns the existing set.
func (s *Store) Declare(key string, columns []string) *RowSet {
	if rs, ok := s.rows[key]; ok {
		return rs
	}
	rs := newRowSet(columns)
	s.rows[key] = rs
	return rs
}

// Rows returns the row set registered under key.
func (s *Store) Rows(key string) (*RowSet, bool) {
	rs, ok := s.rows[key]
	return rs, ok
}

// Snapshot returns an immutable copy of every value and row.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		values: make(map[string]Value, len(s.values)),
		rows:   make(map[string][]Row, len(s.rows)),
	}
	for k, v := range s.values {
		snap.values[k] = v.clone()
	}
	for k, rs := range s.rows {
		snap.rows[k] = rs.snapshot()
	}
	return snap
}

// Snapshot is a point-in-time copy of a Store. It is safe to share.
type Snapshot struct {
	values map[string]Value
	rows   map[string][]Row
}

// Get returns the value for key, or the empty value.
func (s Snapshot) Get(key string) Value {
	return s.values[key].clone()
}

// Rows returns a copy of the rows of the named set.
func (s Snapshot) Rows(key string) []Row {
	src := s.rows[key]
	out := make([]Row, len(src))
	for i, r := range src {
		out[i] = r.clone()
	}
	return out
}

// Keys returns the sorted keys of all set values.
func (s Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}
