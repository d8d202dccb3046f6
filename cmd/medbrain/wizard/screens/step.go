package screens

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
	"github.com/mrsinham/medbrain/internal/session"
)

// StepScreen collects the scalar fields of one flow step
type StepScreen struct {
	form      *huh.Form
	helpPanel *components.HelpPanel
	step      session.Step
	index     int
	total     int
	notes     []string
	width     int
	height    int
	done      bool
	back      bool
	cancelled bool

	// String versions for form binding (huh binds to strings)
	values map[string]*string
}

// NewStepScreen creates a screen for step, prefilled with initial values.
// Notes are shown above the form, e.g. validation problems or a locator failure.
func NewStepScreen(flow string, step session.Step, index, total int, initial map[string]string, notes []string) *StepScreen {
	s := &StepScreen{
		helpPanel: components.NewHelpPanel(flow),
		step:      step,
		index:     index,
		total:     total,
		notes:     notes,
		values:    make(map[string]*string, len(step.Fields)),
	}

	fields := make([]huh.Field, 0, len(step.Fields))
	for _, fs := range step.Fields {
		v := initial[fs.Key]
		s.values[fs.Key] = &v

		title := fs.Label
		if fs.Required {
			title += " *"
		}
		input := huh.NewInput().
			Key(fs.Key).
			Title(title).
			Value(s.values[fs.Key]).
			Validate(ValidateField(fs))
		if p := placeholder(fs.Kind); p != "" {
			input = input.Placeholder(p)
		}
		fields = append(fields, input)
	}

	s.form = huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(false).
		WithShowErrors(true)

	if len(step.Fields) > 0 {
		s.helpPanel.SetField(step.Fields[0].Key)
	}
	return s
}

func placeholder(k session.Kind) string {
	switch k {
	case session.KindDate:
		return "YYYY-MM-DD"
	case session.KindCoordinates:
		return "lat,lng"
	case session.KindFile:
		return "path/to/file (optional)"
	}
	return ""
}

// ValidateField returns the input validator of a field.
func ValidateField(fs session.FieldSpec) func(string) error {
	return func(raw string) error {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			if fs.Required {
				return fmt.Errorf("%s is required", strings.ToLower(fs.Label))
			}
			return nil
		}

		switch fs.Kind {
		case session.KindNumber:
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return errors.New("must be a number")
			}
		case session.KindDate:
			if _, err := time.Parse(session.DateLayout, raw); err != nil {
				return errors.New("must be a date as YYYY-MM-DD")
			}
		case session.KindCoordinates:
			v, err := session.Of(session.KindCoordinates, raw)
			if err != nil {
				return err
			}
			if c, _ := v.Coordinates(); !c.Valid() {
				return errors.New("latitude must be within ±90 and longitude within ±180")
			}
		case session.KindFile:
			info, err := os.Stat(raw)
			if err != nil {
				return errors.New("file not found")
			}
			if info.IsDir() {
				return errors.New("must be a file, not a directory")
			}
		}
		return nil
	}
}

// Init implements tea.Model
func (s *StepScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *StepScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, tea.Quit
		case "esc":
			s.back = true
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.helpPanel.SetSize(msg.Width/2, msg.Height/2)
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	// Update help panel based on focused field
	if focused := s.form.GetFocusedField(); focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}

	if s.form.State == huh.StateCompleted {
		s.done = true
	}

	return s, cmd
}

// View implements tea.Model
func (s *StepScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	parts := []string{
		components.TitleStyle.Render(s.step.Prompt),
		components.StepCounter(s.index, s.total),
	}
	for _, n := range s.notes {
		parts = append(parts, components.ErrorStyle.Render("• "+n))
	}
	parts = append(parts,
		"",
		s.form.View(),
		"",
		s.helpPanel.View(),
		"",
		components.HintStyle.Render("Tab: Next field | Enter: Continue | Esc: Back | Ctrl+C: Quit"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Values returns the trimmed text of every field.
func (s *StepScreen) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = strings.TrimSpace(*v)
	}
	return out
}

// Step returns the step the screen collects.
func (s *StepScreen) Step() session.Step {
	return s.step
}

// Done returns true if the form was completed
func (s *StepScreen) Done() bool {
	return s.done
}

// Back returns true if the user asked for the previous step
func (s *StepScreen) Back() bool {
	return s.back
}

// Cancelled returns true if the user cancelled
func (s *StepScreen) Cancelled() bool {
	return s.cancelled
}
