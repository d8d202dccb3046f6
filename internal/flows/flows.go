// Package flows holds the built-in flow definitions and the senders that turn
// a completed session into a call to the matching service.
package flows

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/medbrain/internal/session"
)

// Built-in flow names.
const (
	Prescription = "prescription"
	Quiz         = "quiz"
	Profile      = "profile"
)

//go:embed flows.yaml
var definitions []byte

type fileYAML struct {
	Flows []flowYAML `yaml:"flows"`
}

type flowYAML struct {
	Name    string       `yaml:"name"`
	Steps   []stepYAML   `yaml:"steps"`
	RowSets []rowSetYAML `yaml:"row_sets"`
}

type stepYAML struct {
	ID     string      `yaml:"id"`
	Prompt string      `yaml:"prompt"`
	Fields []fieldYAML `yaml:"fields"`
	RowSet string      `yaml:"row_set"`
}

type rowSetYAML struct {
	Key     string      `yaml:"key"`
	Label   string      `yaml:"label"`
	Columns []fieldYAML `yaml:"columns"`
}

type fieldYAML struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Kind     string `yaml:"kind"`
	Required bool   `yaml:"required"`
}

func (f fieldYAML) spec() (session.FieldSpec, error) {
	kind, err := session.ParseKind(f.Kind)
	if err != nil {
		return session.FieldSpec{}, fmt.Errorf("field %q: %w", f.Key, err)
	}
	label := f.Label
	if label == "" {
		label = f.Key
	}
	return session.FieldSpec{Key: f.Key, Label: label, Kind: kind, Required: f.Required}, nil
}

// Names returns the built-in flow names, sorted.
func Names() []string {
	defs, err := parse(definitions)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns a fresh copy of the built-in flow called name.
func Load(name string) (*session.Flow, error) {
	defs, err := parse(definitions)
	if err != nil {
		return nil, err
	}
	f, ok := defs[name]
	if !ok {
		return nil, fmt.Errorf("unknown flow %q", name)
	}
	return f, nil
}

// Parse reads flow definitions from YAML and checks each one.
func Parse(data []byte) (map[string]*session.Flow, error) {
	return parse(data)
}

func parse(data []byte) (map[string]*session.Flow, error) {
	var file fileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing flow definitions: %w", err)
	}

	out := make(map[string]*session.Flow, len(file.Flows))
	for _, fy := range file.Flows {
		if _, dup := out[fy.Name]; dup {
			return nil, fmt.Errorf("flow %q defined twice", fy.Name)
		}
		f, err := fy.flow()
		if err != nil {
			return nil, err
		}
		out[fy.Name] = f
	}
	return out, nil
}

func (fy flowYAML) flow() (*session.Flow, error) {
	f := &session.Flow{Name: fy.Name}

	for _, sy := range fy.Steps {
		st := session.Step{ID: sy.ID, Prompt: sy.Prompt, RowSet: sy.RowSet}
		for _, fd := range sy.Fields {
			spec, err := fd.spec()
			if err != nil {
				return nil, fmt.Errorf("flow %q step %q: %w", fy.Name, sy.ID, err)
			}
			st.Fields = append(st.Fields, spec)
		}
		f.Steps = append(f.Steps, st)
	}

	for _, ry := range fy.RowSets {
		rs := session.RowSetSpec{Key: ry.Key, Label: ry.Label}
		for _, c := range ry.Columns {
			spec, err := c.spec()
			if err != nil {
				return nil, fmt.Errorf("flow %q row set %q: %w", fy.Name, ry.Key, err)
			}
			rs.Columns = append(rs.Columns, spec)
		}
		f.RowSets = append(f.RowSets, rs)
	}

	if err := f.Check(); err != nil {
		return nil, fmt.Errorf("flow %q: %w", fy.Name, err)
	}
	return f, nil
}
