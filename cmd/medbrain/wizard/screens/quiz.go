package screens

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
	"github.com/mrsinham/medbrain/internal/session"
)

// RevealTickMsg reveals the next prompt character of generation Gen
type RevealTickMsg struct {
	Gen uint64
}

var (
	quizPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	quizCursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	quizResultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// QuizScreen asks the questions of a session one at a time, typing each
// prompt out, then submits the answers
type QuizScreen struct {
	sess       *session.Session
	input      textinput.Model
	spinner    spinner.Model
	timeout    time.Duration
	submitting bool
	result     session.Result
	problem    string
	done       bool
	cancelled  bool
	width      int
	height     int
}

// NewQuizScreen creates a quiz over sess
func NewQuizScreen(sess *session.Session, timeout time.Duration) *QuizScreen {
	in := textinput.New()
	in.Placeholder = "Type your answer"
	in.Prompt = "> "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return &QuizScreen{
		sess:    sess,
		input:   in,
		spinner: sp,
		timeout: timeout,
	}
}

// tick schedules the next character of generation gen.
func (s *QuizScreen) tick(gen uint64) tea.Cmd {
	return tea.Tick(s.sess.Reveal().Interval(), func(time.Time) tea.Msg {
		return RevealTickMsg{Gen: gen}
	})
}

// Init implements tea.Model
func (s *QuizScreen) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, s.tick(s.sess.Reveal().Generation()))
}

// Update implements tea.Model
func (s *QuizScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RevealTickMsg:
		// Ticks of an older prompt stop here
		if s.sess.Reveal().Tick(msg.Gen) {
			return s, s.tick(msg.Gen)
		}
		return s, nil

	case SubmittedMsg:
		s.submitting = false
		switch {
		case msg.Err != nil:
			s.problem = msg.Err.Error()
		case msg.Result.Status == session.StatusFailed:
			s.problem = "Prediction failed: " + msg.Result.Err.Error() + ". Press Enter to retry."
		default:
			s.result = msg.Result
		}
		return s, nil

	case spinner.TickMsg:
		if !s.submitting {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.input.Width = max(20, msg.Width-4)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, tea.Quit
		case "esc":
			if s.submitting {
				return s, nil
			}
			if s.result.Status == session.StatusSucceeded {
				s.done = true
				return s, tea.Quit
			}
			return s, s.back()
		case "tab":
			s.sess.Reveal().Skip()
			return s, nil
		case "enter":
			return s, s.answer()
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// answer records the typed answer and moves on, submitting after the last question.
func (s *QuizScreen) answer() tea.Cmd {
	if s.submitting {
		return nil
	}
	if s.result.Status == session.StatusSucceeded {
		s.done = true
		return tea.Quit
	}
	if s.sess.State() == session.StateReady {
		return s.submit()
	}

	step, _, _, ok := s.sess.Current()
	if !ok || len(step.Fields) == 0 {
		return nil
	}
	fs := step.Fields[0]

	raw := strings.TrimSpace(s.input.Value())
	v, err := session.Of(fs.Kind, raw)
	if err != nil {
		s.problem = err.Error()
		return nil
	}
	if err := s.sess.Set(fs.Key, v); err != nil {
		s.problem = err.Error()
		return nil
	}

	verdict, err := s.sess.Advance()
	if err != nil {
		s.problem = err.Error()
		return nil
	}
	if !verdict.OK() {
		s.problem = verdict.Problems[0].String()
		return nil
	}

	s.problem = ""
	if s.sess.State() == session.StateReady {
		s.input.Reset()
		return s.submit()
	}
	s.loadAnswer()
	return s.tick(s.sess.Reveal().Generation())
}

// back returns to the previous question.
func (s *QuizScreen) back() tea.Cmd {
	if !s.sess.Back() {
		s.cancelled = true
		return tea.Quit
	}
	s.problem = ""
	s.loadAnswer()
	return s.tick(s.sess.Reveal().Generation())
}

// loadAnswer shows the stored answer of the active question.
func (s *QuizScreen) loadAnswer() {
	s.input.Reset()
	if step, _, _, ok := s.sess.Current(); ok && len(step.Fields) > 0 {
		s.input.SetValue(s.sess.Get(step.Fields[0].Key).String())
	}
}

func (s *QuizScreen) submit() tea.Cmd {
	s.submitting = true
	s.problem = ""
	sess, timeout := s.sess, s.timeout
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		r, err := sess.Submit(ctx)
		return SubmittedMsg{Result: r, Err: err}
	})
}

// View implements tea.Model
func (s *QuizScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	parts := []string{components.TitleStyle.Render("MedBrain Symptom Checker")}

	switch {
	case s.result.Status == session.StatusSucceeded:
		parts = append(parts,
			components.SubtitleStyle.Render("Predicted Disease:"),
			quizResultStyle.Render(s.result.RecordID),
			"",
			components.HintStyle.Render("This is not a diagnosis. Please consult a doctor."),
			components.HintStyle.Render("Press Enter to exit"),
		)

	case s.submitting:
		parts = append(parts, s.spinner.View()+" Predicting...")

	case s.sess.State() == session.StateReady:
		parts = append(parts, "All questions answered.", components.HintStyle.Render("Enter: Submit | Esc: Back"))

	default:
		_, index, total, _ := s.sess.Current()
		prompt := quizPromptStyle.Render(s.sess.Reveal().Text())
		if !s.sess.Reveal().Done() {
			prompt += quizCursorStyle.Render("▌")
		}
		parts = append(parts,
			components.StepCounter(index, total),
			prompt,
			"",
			s.input.View(),
			"",
			components.HintStyle.Render("Enter: Answer | Tab: Show whole question | Esc: Back | Ctrl+C: Quit"),
		)
	}

	if s.problem != "" {
		parts = append(parts, "", components.ErrorStyle.Render(s.problem))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Result returns the latest submission result
func (s *QuizScreen) Result() session.Result {
	return s.result
}

// Done returns true if the user left after the prediction
func (s *QuizScreen) Done() bool {
	return s.done
}

// Cancelled returns true if the user cancelled
func (s *QuizScreen) Cancelled() bool {
	return s.cancelled
}
