package screens

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
	"github.com/mrsinham/medbrain/internal/session"
)

// SubmittedMsg is sent when a session submission returns
type SubmittedMsg struct {
	Result session.Result
	Err    error // Set when nothing was applied
}

// LocatedMsg is sent when the device location lookup returns
type LocatedMsg struct {
	Coordinates session.Coordinates
	Err         error
}

// CompletionMsg describes a successful submission
type CompletionMsg struct {
	Title    string
	Fields   []Field
	Hints    []string
	Duration time.Duration
}

// Field is one labelled line of the completion summary
type Field struct {
	Label string
	Value string
}

// ErrorMsg is sent when an error ends the wizard
type ErrorMsg struct {
	Error error
}

var (
	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	progressElapsedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	cancelHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// ProgressScreen shows a spinner while a call is in flight
type ProgressScreen struct {
	title     string
	spinner   spinner.Model
	startTime time.Time
	cancelled bool
	width     int
	height    int
}

// NewProgressScreen creates a progress screen with title
func NewProgressScreen(title string) *ProgressScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &ProgressScreen{
		title:     title,
		spinner:   sp,
		startTime: time.Now(),
	}
}

// Init implements tea.Model
func (s *ProgressScreen) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update implements tea.Model
func (s *ProgressScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, tea.Quit
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	case spinner.TickMsg:
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd
	}

	return s, nil
}

// View implements tea.Model
func (s *ProgressScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	elapsed := time.Since(s.startTime)

	var sb strings.Builder
	sb.WriteString(s.spinner.View())
	sb.WriteString(" ")
	sb.WriteString(components.TitleStyle.UnsetMarginBottom().Render(s.title))
	sb.WriteString("\n\n")
	sb.WriteString(progressElapsedStyle.Render(fmt.Sprintf("Elapsed: %.1fs", elapsed.Seconds())))
	sb.WriteString("\n\n")
	sb.WriteString(cancelHintStyle.Render("Press Ctrl+C to cancel"))

	return sb.String()
}

// Cancelled returns true if the user cancelled
func (s *ProgressScreen) Cancelled() bool {
	return s.cancelled
}

// Completion screen styles
var (
	completionSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true)

	completionLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	completionValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Bold(true)

	completionHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244")).
				Italic(true)

	completionButtonFocusedStyle = lipgloss.NewStyle().
					Background(lipgloss.Color("33")).
					Foreground(lipgloss.Color("255")).
					Padding(0, 2).
					Bold(true)
)

// CompletionScreen displays the outcome of a successful submission
type CompletionScreen struct {
	msg    CompletionMsg
	done   bool
	width  int
	height int
}

// NewCompletionScreen creates a new completion screen
func NewCompletionScreen(msg CompletionMsg) *CompletionScreen {
	return &CompletionScreen{msg: msg}
}

// Init implements tea.Model
func (s *CompletionScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *CompletionScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "enter", "q":
			s.done = true
			return s, tea.Quit
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	return s, nil
}

// View implements tea.Model
func (s *CompletionScreen) View() string {
	var sb strings.Builder

	sb.WriteString(completionSuccessStyle.Render("✓ " + s.msg.Title))
	sb.WriteString("\n\n")

	fields := append([]Field(nil), s.msg.Fields...)
	if s.msg.Duration > 0 {
		fields = append(fields, Field{"Duration", fmt.Sprintf("%.1fs", s.msg.Duration.Seconds())})
	}
	for _, f := range fields {
		sb.WriteString("  ")
		sb.WriteString(completionLabelStyle.Render(f.Label + ":"))
		sb.WriteString(" ")
		sb.WriteString(completionValueStyle.Render(f.Value))
		sb.WriteString("\n")
	}

	if len(s.msg.Hints) > 0 {
		sb.WriteString("\n")
		sb.WriteString(components.TitleStyle.Render("Next steps:"))
		sb.WriteString("\n")
		for _, h := range s.msg.Hints {
			sb.WriteString("  • ")
			sb.WriteString(components.CommandStyle.Render(h))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(completionButtonFocusedStyle.Render("Exit"))
	sb.WriteString("\n\n")
	sb.WriteString(completionHintStyle.Render("Press Enter or q to exit"))

	return sb.String()
}

// Done returns true if the user is finished
func (s *CompletionScreen) Done() bool {
	return s.done
}

// ErrorScreen displays an error that ended the wizard
type ErrorScreen struct {
	err    error
	done   bool
	width  int
	height int
}

var (
	errorTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	errorHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)
)

// NewErrorScreen creates a new error screen
func NewErrorScreen(err error) *ErrorScreen {
	return &ErrorScreen{
		err: err,
	}
}

// Init implements tea.Model
func (s *ErrorScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *ErrorScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "enter", "q":
			s.done = true
			return s, tea.Quit
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
	}

	return s, nil
}

// View implements tea.Model
func (s *ErrorScreen) View() string {
	var sb strings.Builder

	sb.WriteString(errorTitleStyle.Render("✗ Something went wrong"))
	sb.WriteString("\n\n")

	sb.WriteString(components.TitleStyle.Render("Error:"))
	sb.WriteString("\n")
	sb.WriteString("  ")
	sb.WriteString(errorMessageStyle.Render(s.err.Error()))
	sb.WriteString("\n\n")

	sb.WriteString(errorHintStyle.Render("Press Enter or q to exit"))

	return sb.String()
}

// Done returns true if the user is finished
func (s *ErrorScreen) Done() bool {
	return s.done
}

// Error returns the error
func (s *ErrorScreen) Error() error {
	return s.err
}
