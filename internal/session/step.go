package session

import (
	"errors"
	"fmt"
)

// FieldSpec declares one field collected by a step or one column of a row set.
type FieldSpec struct {
	Key      string
	Label    string
	Kind     Kind
	Required bool
}

// Step is one unit of a flow: a prompt and the fields it collects.
type Step struct {
	ID     string
	Prompt string
	Fields []FieldSpec
	// RowSet names a row set of the flow that must be complete before leaving the step.
	RowSet string
}

// RowSetSpec declares a dynamic row set and the shape of its rows.
type RowSetSpec struct {
	Key     string
	Label   string
	Columns []FieldSpec
}

// ColumnKeys returns the column keys in order.
func (r RowSetSpec) ColumnKeys() []string {
	keys := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		keys[i] = c.Key
	}
	return keys
}

// Flow is a named, ordered list of steps fixed when the flow is built.
type Flow struct {
	Name    string
	Steps   []Step
	RowSets []RowSetSpec
}

// RowSet returns the declaration of the named row set.
func (f *Flow) RowSet(key string) (RowSetSpec, bool) {
	for _, rs := range f.RowSets {
		if rs.Key == key {
			return rs, true
		}
	}
	return RowSetSpec{}, false
}

// Field returns the declaration of a scalar field by key.
func (f *Flow) Field(key string) (FieldSpec, bool) {
	for _, st := range f.Steps {
		for _, fs := range st.Fields {
			if fs.Key == key {
				return fs, true
			}
		}
	}
	return FieldSpec{}, false
}

// Check verifies the flow is well formed.
func (f *Flow) Check() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", f.Name)
	}

	seen := make(map[string]bool)
	var errs []error
	for i, st := range f.Steps {
		if len(st.Fields) == 0 && st.RowSet == "" {
			errs = append(errs, fmt.Errorf("step %d (%s) collects nothing", i, st.ID))
		}
		for _, fs := range st.Fields {
			if fs.Key == "" {
				errs = append(errs, fmt.Errorf("step %d (%s) has a field without key", i, st.ID))
				continue
			}
			if seen[fs.Key] {
				errs = append(errs, fmt.Errorf("field %q declared twice", fs.Key))
			}
			seen[fs.Key] = true
		}
		if st.RowSet != "" {
			if _, ok := f.RowSet(st.RowSet); !ok {
				errs = append(errs, fmt.Errorf("step %d (%s) references unknown row set %q", i, st.ID, st.RowSet))
			}
		}
	}
	for _, rs := range f.RowSets {
		if len(rs.Columns) == 0 {
			errs = append(errs, fmt.Errorf("row set %q has no columns", rs.Key))
		}
	}

	return errors.Join(errs...)
}
