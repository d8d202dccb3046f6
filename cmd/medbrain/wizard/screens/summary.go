package screens

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
	"github.com/mrsinham/medbrain/internal/session"
)

// SummaryAction represents the action selected on the summary screen
type SummaryAction int

const (
	// SummaryActionBack returns to the last step
	SummaryActionBack SummaryAction = iota
	// SummaryActionSubmit sends the session
	SummaryActionSubmit
	// SummaryActionSaveDraft saves the answers to a YAML draft
	SummaryActionSaveDraft
	// SummaryActionCancel exits the wizard
	SummaryActionCancel
)

const (
	actionBack      = "back"
	actionSubmit    = "submit"
	actionSaveDraft = "save_draft"
	actionCancel    = "cancel"
)

var (
	summaryPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(1, 2)

	summarySectionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true)

	summaryLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	summaryValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Bold(true)

	summaryEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

// SummaryScreen displays every answer of a session before it is submitted
type SummaryScreen struct {
	form      *huh.Form
	flow      *session.Flow
	snap      session.Snapshot
	verdict   session.Verdict
	lastErr   error
	action    string
	done      bool
	cancelled bool
	width     int
	height    int
}

// NewSummaryScreen creates the summary of snap. A failed verdict hides the
// submit action; lastErr is the error of a previous failed submission.
func NewSummaryScreen(flow *session.Flow, snap session.Snapshot, verdict session.Verdict, lastErr error, canSaveDraft bool) *SummaryScreen {
	s := &SummaryScreen{
		flow:    flow,
		snap:    snap,
		verdict: verdict,
		lastErr: lastErr,
		action:  actionSubmit,
	}

	var opts []huh.Option[string]
	if verdict.OK() {
		label := "Submit"
		if lastErr != nil {
			label = "Retry submission"
		}
		opts = append(opts, huh.NewOption(label, actionSubmit))
	} else {
		s.action = actionBack
	}
	if canSaveDraft {
		opts = append(opts, huh.NewOption("Save answers to YAML", actionSaveDraft))
	}
	opts = append(opts,
		huh.NewOption("Back to edit", actionBack),
		huh.NewOption("Cancel and exit", actionCancel),
	)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("action").
				Title("Select an action").
				Options(opts...).
				Value(&s.action),
		),
	).WithShowHelp(false)

	return s
}

// Init implements tea.Model
func (s *SummaryScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update implements tea.Model
func (s *SummaryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, tea.Quit
		case "esc":
			// Esc goes back instead of cancelling
			s.action = actionBack
			s.done = true
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.done = true
	}

	return s, cmd
}

// View implements tea.Model
func (s *SummaryScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	title := components.TitleStyle.Render("Review your answers")

	var sections []string
	for _, st := range s.flow.Steps {
		sections = append(sections, s.renderStep(st))
	}
	panel := summaryPanelStyle.Render(strings.Join(sections, "\n\n"))

	parts := []string{title, panel}
	for _, p := range s.verdict.Problems {
		parts = append(parts, components.ErrorStyle.Render("• "+p.String()))
	}
	if s.lastErr != nil {
		parts = append(parts, components.ErrorStyle.Render("Last submission failed: "+s.lastErr.Error()))
	}
	parts = append(parts,
		"",
		s.form.View(),
		"",
		components.HintStyle.Render("Enter: Select | Esc: Back"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s *SummaryScreen) renderStep(st session.Step) string {
	var sb strings.Builder
	sb.WriteString(summarySectionStyle.Render(st.Prompt))

	for _, fs := range st.Fields {
		sb.WriteString("\n  ")
		sb.WriteString(summaryLabelStyle.Render(fs.Label + ":"))
		sb.WriteString(" ")
		sb.WriteString(renderValue(s.snap.Get(fs.Key)))
	}

	if st.RowSet != "" {
		spec, _ := s.flow.RowSet(st.RowSet)
		for i, row := range s.snap.Rows(st.RowSet) {
			cells := make([]string, 0, len(spec.Columns))
			for _, c := range spec.Columns {
				cells = append(cells, row[c.Key].String())
			}
			sb.WriteString(fmt.Sprintf("\n  %d. ", i+1))
			sb.WriteString(summaryValueStyle.Render(strings.Join(cells, " | ")))
		}
	}
	return sb.String()
}

func renderValue(v session.Value) string {
	if v.IsEmpty() {
		return summaryEmptyStyle.Render("(not set)")
	}
	if ref, ok := v.File(); ok {
		return summaryValueStyle.Render(fmt.Sprintf("%s (%s)", ref.Name, ref.MediaType))
	}
	return summaryValueStyle.Render(v.String())
}

// Action returns the selected action
func (s *SummaryScreen) Action() SummaryAction {
	switch s.action {
	case actionSubmit:
		return SummaryActionSubmit
	case actionSaveDraft:
		return SummaryActionSaveDraft
	case actionCancel:
		return SummaryActionCancel
	default:
		return SummaryActionBack
	}
}

// Done returns true if an action was selected
func (s *SummaryScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user cancelled
func (s *SummaryScreen) Cancelled() bool {
	return s.cancelled
}
