package screens

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
)

// Asker answers health questions. It always returns text to show, even when
// it also returns an error.
type Asker interface {
	AskOrFallback(ctx context.Context, question string) (string, error)
}

// AnswerMsg carries the reply to the pending question
type AnswerMsg struct {
	Text string
	Err  error
}

type chatMessage struct {
	text   string
	isUser bool
}

var (
	chatUserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("33")).
			Padding(0, 1)

	chatBotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")).
			Background(lipgloss.Color("252")).
			Padding(0, 1)

	chatEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)
)

// ChatScreen is a question and answer conversation with the health assistant
type ChatScreen struct {
	asker    Asker
	timeout  time.Duration
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	messages []chatMessage
	pending  bool
	done     bool
	width    int
	height   int
}

// NewChatScreen creates a chat backed by asker
func NewChatScreen(asker Asker, timeout time.Duration) *ChatScreen {
	in := textinput.New()
	in.Placeholder = "Describe your symptoms..."
	in.Prompt = "> "
	in.CharLimit = 500
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Ellipsis
	sp.Style = spinnerStyle

	s := &ChatScreen{
		asker:    asker,
		timeout:  timeout,
		viewport: viewport.New(80, 16),
		input:    in,
		spinner:  sp,
	}
	s.refresh()
	return s
}

// Init implements tea.Model
func (s *ChatScreen) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (s *ChatScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.viewport.Width = msg.Width
		s.viewport.Height = max(4, msg.Height-7)
		s.input.Width = max(20, msg.Width-4)
		s.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			s.done = true
			return s, tea.Quit
		case "enter":
			return s, s.ask()
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			s.viewport, cmd = s.viewport.Update(msg)
			return s, cmd
		}

	case AnswerMsg:
		s.pending = false
		s.messages = append(s.messages, chatMessage{text: msg.Text})
		s.refresh()
		return s, nil

	case spinner.TickMsg:
		if !s.pending {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		s.refresh()
		return s, cmd
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	cmds = append(cmds, cmd)

	return s, tea.Batch(cmds...)
}

// ask sends the typed question. Blank questions are ignored, and so is a
// question typed while another one is pending.
func (s *ChatScreen) ask() tea.Cmd {
	q := strings.TrimSpace(s.input.Value())
	if q == "" || s.pending {
		return nil
	}

	s.messages = append(s.messages, chatMessage{text: q, isUser: true})
	s.input.Reset()
	s.pending = true
	s.refresh()

	asker, timeout := s.asker, s.timeout
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		text, err := asker.AskOrFallback(ctx, q)
		return AnswerMsg{Text: text, Err: err}
	})
}

// refresh renders the conversation into the viewport.
func (s *ChatScreen) refresh() {
	width := s.viewport.Width
	bubble := max(20, width*4/5)

	var lines []string
	if len(s.messages) == 0 {
		lines = append(lines, chatEmptyStyle.Render("Start a conversation with your healthcare assistant"))
	}
	for _, m := range s.messages {
		if m.isUser {
			lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Right, chatUserStyle.Width(bubble).Render(m.text)))
		} else {
			lines = append(lines, chatBotStyle.Width(bubble).Render(m.text))
		}
		lines = append(lines, "")
	}
	if s.pending {
		lines = append(lines, chatBotStyle.Render(s.spinner.View()))
	}

	s.viewport.SetContent(strings.Join(lines, "\n"))
	s.viewport.GotoBottom()
}

// View implements tea.Model
func (s *ChatScreen) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		components.TitleStyle.Render("MedBrain Assistant"),
		s.viewport.View(),
		s.input.View(),
		components.HintStyle.Render("Enter: Send | ↑/↓: Scroll | Esc: Quit"),
	)
}

// Transcript returns the conversation so far, one "you:"/"assistant:" line per message.
func (s *ChatScreen) Transcript() []string {
	out := make([]string, len(s.messages))
	for i, m := range s.messages {
		who := "assistant: "
		if m.isUser {
			who = "you: "
		}
		out[i] = who + m.text
	}
	return out
}

// Pending reports whether a question is waiting for its answer
func (s *ChatScreen) Pending() bool {
	return s.pending
}

// Done returns true if the user left the chat
func (s *ChatScreen) Done() bool {
	return s.done
}
