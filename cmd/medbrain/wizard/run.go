package wizard

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/screens"
	"github.com/mrsinham/medbrain/internal/client"
	"github.com/mrsinham/medbrain/internal/poll"
	"github.com/mrsinham/medbrain/internal/session"
)

// RunQuiz asks the questions of sess and returns the prediction. A quiz left
// before a prediction returns the zero Result.
func RunQuiz(sess *session.Session, timeout time.Duration) (session.Result, error) {
	defer sess.Close()

	q := screens.NewQuizScreen(sess, timeout)
	finalModel, err := tea.NewProgram(q, tea.WithAltScreen()).Run()
	if err != nil {
		return session.Result{}, fmt.Errorf("running quiz: %w", err)
	}

	if fq, ok := finalModel.(*screens.QuizScreen); ok && !fq.Cancelled() {
		return fq.Result(), nil
	}
	return session.Result{}, nil
}

// RunChat runs a conversation with asker and returns its transcript.
func RunChat(asker screens.Asker, timeout time.Duration) ([]string, error) {
	c := screens.NewChatScreen(asker, timeout)
	finalModel, err := tea.NewProgram(c, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("running chat: %w", err)
	}

	if fc, ok := finalModel.(*screens.ChatScreen); ok {
		return fc.Transcript(), nil
	}
	return nil, nil
}

// RunRecords shows the record list, refetching it every interval until the
// user leaves. load fetches the full record when one is opened.
func RunRecords(fetch func(context.Context) ([]client.Record, error), load func(id string) (client.Record, error), interval time.Duration, logger zerolog.Logger) error {
	var refresher *poll.Refresher[[]client.Record]
	rs := screens.NewRecordsScreen(func() { refresher.Refresh() }, load)
	p := tea.NewProgram(rs, tea.WithAltScreen())

	refresher = poll.New(interval, fetch, func(u poll.Update[[]client.Record]) {
		// Send blocks until the program reads it, so hand it off
		go p.Send(screens.RecordsMsg{Update: u, At: time.Now()})
	}, logger)

	refresher.Start()
	defer refresher.Stop(2 * time.Second)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running records: %w", err)
	}
	return nil
}
