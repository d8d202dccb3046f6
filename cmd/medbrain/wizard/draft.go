package wizard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/medbrain/internal/attachment"
	"github.com/mrsinham/medbrain/internal/session"
)

// Draft holds the answers of a flow for YAML serialization.
//
//	flow: prescription
//	fields:
//	  author: Dr. Rao
//	  date: "2024-03-18"
//	  location: "12.97,77.59"
//	  document: ./scan.png
//	rows:
//	  items:
//	    - {name: Amoxicillin, dosage: 500mg, duration: 7 days}
type Draft struct {
	Flow   string                         `yaml:"flow"`
	Fields map[string]string              `yaml:"fields,omitempty"`
	Rows   map[string][]map[string]string `yaml:"rows,omitempty"`
}

var defaultAttachmentOptions = attachment.Options{}

// Resolver turns the text typed for a field into a session value.
type Resolver func(fs session.FieldSpec, raw string) (session.Value, error)

// ResolveWith returns a Resolver that loads file fields as attachments
// relative to dir, and parses every other kind from its text.
func ResolveWith(dir string, opts attachment.Options) Resolver {
	return func(fs session.FieldSpec, raw string) (session.Value, error) {
		if fs.Kind != session.KindFile {
			return session.Of(fs.Kind, raw)
		}
		path := raw
		if dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		a, err := attachment.Load(path, opts)
		if err != nil {
			return session.Value{}, err
		}
		return session.File(a.Ref()), nil
	}
}

// LoadDraft reads a draft from a YAML file.
func LoadDraft(path string) (*Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading draft: %w", err)
	}

	var d Draft
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing draft %s: %w", path, err)
	}
	return &d, nil
}

// SaveDraft writes d to path as YAML.
func SaveDraft(d *Draft, path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	return nil
}

// DraftFrom captures the answers of snap. File fields are written as the path
// they were loaded from when known, else as the file name.
func DraftFrom(flow *session.Flow, snap session.Snapshot, paths map[string]string) *Draft {
	d := &Draft{
		Flow:   flow.Name,
		Fields: make(map[string]string),
	}

	for _, st := range flow.Steps {
		for _, fs := range st.Fields {
			v := snap.Get(fs.Key)
			if v.IsEmpty() {
				continue
			}
			if p, ok := paths[fs.Key]; ok && fs.Kind == session.KindFile {
				d.Fields[fs.Key] = p
				continue
			}
			d.Fields[fs.Key] = v.String()
		}
	}

	for _, rs := range flow.RowSets {
		var rows []map[string]string
		for _, row := range snap.Rows(rs.Key) {
			m := make(map[string]string, len(rs.Columns))
			for _, c := range rs.Columns {
				if s := row[c.Key].String(); s != "" {
					m[c.Key] = s
				}
			}
			if len(m) > 0 {
				rows = append(rows, m)
			}
		}
		if len(rows) > 0 {
			if d.Rows == nil {
				d.Rows = make(map[string][]map[string]string)
			}
			d.Rows[rs.Key] = rows
		}
	}
	return d
}

// Fill copies d into s and advances through every step, leaving s ready to
// submit. Unknown keys and values that fail to resolve are all reported.
func Fill(s *session.Session, d *Draft, resolve Resolver) error {
	flow := s.Flow()
	if d.Flow != "" && d.Flow != flow.Name {
		return fmt.Errorf("draft is for flow %q, not %q", d.Flow, flow.Name)
	}

	var errs []error
	for key, raw := range d.Fields {
		fs, ok := flow.Field(key)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", session.ErrUnknownField, key))
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		v, err := resolve(fs, raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if err := s.Set(key, v); err != nil {
			errs = append(errs, err)
		}
	}

	for set, rows := range d.Rows {
		spec, ok := flow.RowSet(set)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", session.ErrUnknownRowSet, set))
			continue
		}
		for i, cells := range rows {
			if err := fillRow(s, spec, i, cells); err != nil {
				errs = append(errs, fmt.Errorf("%s row %d: %w", set, i+1, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	return advanceAll(s)
}

func fillRow(s *session.Session, spec session.RowSetSpec, i int, cells map[string]string) error {
	for i >= s.RowCount(spec.Key) {
		if _, err := s.AddRow(spec.Key); err != nil {
			return err
		}
	}

	row := make(session.Row, len(cells))
	for _, c := range spec.Columns {
		raw := strings.TrimSpace(cells[c.Key])
		if raw == "" {
			continue
		}
		v, err := session.Of(c.Kind, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", c.Key, err)
		}
		row[c.Key] = v
	}
	for k := range cells {
		if !containsColumn(spec, k) {
			return fmt.Errorf("%w: %q", session.ErrUnknownColumn, k)
		}
	}
	return s.ReplaceRow(spec.Key, i, row)
}

func containsColumn(spec session.RowSetSpec, key string) bool {
	for _, c := range spec.Columns {
		if c.Key == key {
			return true
		}
	}
	return false
}

// advanceAll moves s past every remaining step.
func advanceAll(s *session.Session) error {
	for s.State() == session.StateAtStep {
		verdict, err := s.Advance()
		if err != nil {
			return err
		}
		if err := verdict.Err(); err != nil {
			return err
		}
	}
	return nil
}
