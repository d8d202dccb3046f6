package session

import (
	"fmt"
	"strings"
)

// Problem describes one field that blocks advancing or submitting.
type Problem struct {
	Field string
	// Row is the row position for row set columns, -1 for scalar fields.
	Row    int
	Reason string
}

// String formats the problem for display.
func (p Problem) String() string {
	if p.Row >= 0 {
		return fmt.Sprintf("%s (row %d): %s", p.Field, p.Row+1, p.Reason)
	}
	return fmt.Sprintf("%s: %s", p.Field, p.Reason)
}

// Verdict is the outcome of a validation check.
type Verdict struct {
	Problems []Problem
}

// OK reports whether the check passed.
func (v Verdict) OK() bool {
	return len(v.Problems) == 0
}

// For returns the problems concerning field.
func (v Verdict) For(field string) []Problem {
	var out []Problem
	for _, p := range v.Problems {
		if p.Field == field {
			out = append(out, p)
		}
	}
	return out
}

// Err returns a *ValidationError for a failed verdict and nil otherwise.
func (v Verdict) Err() error {
	if v.OK() {
		return nil
	}
	return &ValidationError{Problems: v.Problems}
}

// ValidationError reports missing or malformed fields.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// CanAdvance checks the fields collected by step, and every row of its row set.
func CanAdvance(flow *Flow, step Step, snap Snapshot) Verdict {
	var v Verdict
	for _, fs := range step.Fields {
		if reason := checkValue(fs, snap.Get(fs.Key)); reason != "" {
			v.Problems = append(v.Problems, Problem{Field: fs.Key, Row: -1, Reason: reason})
		}
	}
	if step.RowSet != "" {
		v.Problems = append(v.Problems, checkRows(flow, step.RowSet, snap)...)
	}
	return v
}

// CanSubmit checks every step of the flow and every row of every row set.
func CanSubmit(flow *Flow, snap Snapshot) Verdict {
	var v Verdict
	for _, st := range flow.Steps {
		for _, fs := range st.Fields {
			if reason := checkValue(fs, snap.Get(fs.Key)); reason != "" {
				v.Problems = append(v.Problems, Problem{Field: fs.Key, Row: -1, Reason: reason})
			}
		}
	}
	for _, rs := range flow.RowSets {
		v.Problems = append(v.Problems, checkRows(flow, rs.Key, snap)...)
	}
	return v
}

func checkRows(flow *Flow, key string, snap Snapshot) []Problem {
	spec, ok := flow.RowSet(key)
	if !ok {
		return []Problem{{Field: key, Row: -1, Reason: "unknown row set"}}
	}
	rows := snap.Rows(key)
	if len(rows) == 0 {
		return []Problem{{Field: key, Row: -1, Reason: "at least one row is required"}}
	}

	var problems []Problem
	for i, row := range rows {
		for _, col := range spec.Columns {
			if reason := checkValue(col, row[col.Key]); reason != "" {
				problems = append(problems, Problem{Field: key + "." + col.Key, Row: i, Reason: reason})
			}
		}
	}
	return problems
}

// checkValue returns why v does not satisfy spec, or "" when it does.
func checkValue(spec FieldSpec, v Value) string {
	if v.IsEmpty() {
		if spec.Required {
			return "is required"
		}
		return ""
	}
	if v.Kind() != spec.Kind {
		return fmt.Sprintf("expected %s, got %s", spec.Kind, v.Kind())
	}

	switch spec.Kind {
	case KindNumber:
		if _, err := v.Float(); err != nil {
			return "must be a number"
		}
	case KindDate:
		if _, err := v.Time(); err != nil {
			return "must be a date (YYYY-MM-DD)"
		}
	case KindCoordinates:
		c, _ := v.Coordinates()
		if !c.Valid() {
			return "must be finite coordinates within range"
		}
	}
	return ""
}
