// Package wizard provides the interactive TUI that walks a session through
// its steps, submits it, and the standalone quiz, chat and records screens.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/screens"
	"github.com/mrsinham/medbrain/internal/geo"
	"github.com/mrsinham/medbrain/internal/session"
)

// Phase represents the current phase/screen of the wizard.
type Phase int

const (
	PhaseStep Phase = iota
	PhaseRows
	PhaseLocating
	PhaseSummary
	PhaseSaveDraft
	PhaseSubmitting
	PhaseComplete
	PhaseError
)

// Options configures a wizard.
type Options struct {
	// Locator prefills coordinate fields. Nil means manual entry only.
	Locator geo.Locator
	// Resolve converts typed text to field values.
	Resolve Resolver
	// Complete describes a successful submission on the completion screen.
	Complete func(session.Result) screens.CompletionMsg
	// AllowDraft offers saving the answers to a YAML draft from the summary.
	AllowDraft bool
	// Timeout bounds the submission and location calls.
	Timeout time.Duration
}

// Wizard is the main orchestrator for the wizard interface.
type Wizard struct {
	sess *session.Session
	opts Options

	// Current phase
	phase Phase

	// Screen instances
	stepScreen       *screens.StepScreen
	rowsScreen       *screens.RowsScreen
	summaryScreen    *screens.SummaryScreen
	progressScreen   *screens.ProgressScreen
	completionScreen *screens.CompletionScreen
	errorScreen      *screens.ErrorScreen

	// Save draft form
	saveDraftForm *huh.Form
	draftPath     string
	draftSaved    string

	// Paths typed for file fields, by key
	paths map[string]string
	// Coordinate fields the locator already ran for
	located map[string]bool
	// Key of the field being located
	locating string
	// Error of the last failed submission
	lastErr error
	started time.Time

	// Window size
	width  int
	height int

	// Final state
	cancelled bool
	finished  bool
	result    session.Result
	err       error
}

// NewWizard creates a wizard positioned on the active step of sess.
func NewWizard(sess *session.Session, opts Options) *Wizard {
	if opts.Resolve == nil {
		opts.Resolve = ResolveWith("", defaultAttachmentOptions)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Complete == nil {
		opts.Complete = defaultCompletion
	}

	w := &Wizard{
		sess:    sess,
		opts:    opts,
		paths:   make(map[string]string),
		located: make(map[string]bool),
	}
	w.enterStep(nil)
	return w
}

func defaultCompletion(r session.Result) screens.CompletionMsg {
	msg := screens.CompletionMsg{Title: "Submitted"}
	if r.RecordID != "" {
		msg.Fields = []screens.Field{{Label: "Reference", Value: r.RecordID}}
	}
	return msg
}

// Init implements tea.Model.
func (w *Wizard) Init() tea.Cmd {
	return w.initPhase()
}

// initPhase returns the Init command of the active screen.
func (w *Wizard) initPhase() tea.Cmd {
	switch w.phase {
	case PhaseStep:
		return w.stepScreen.Init()
	case PhaseRows:
		return w.rowsScreen.Init()
	case PhaseLocating:
		return tea.Batch(w.progressScreen.Init(), w.locate())
	case PhaseSummary:
		return w.summaryScreen.Init()
	case PhaseSaveDraft:
		return w.saveDraftForm.Init()
	}
	return nil
}

// Update implements tea.Model.
func (w *Wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle window size for all phases
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		w.width = wsm.Width
		w.height = wsm.Height
	}

	switch w.phase {
	case PhaseStep:
		return w.updateStep(msg)
	case PhaseRows:
		return w.updateRows(msg)
	case PhaseLocating:
		return w.updateLocating(msg)
	case PhaseSummary:
		return w.updateSummary(msg)
	case PhaseSaveDraft:
		return w.updateSaveDraft(msg)
	case PhaseSubmitting:
		return w.updateSubmitting(msg)
	case PhaseComplete:
		return w.updateComplete(msg)
	case PhaseError:
		return w.updateError(msg)
	}

	return w, nil
}

// View implements tea.Model.
func (w *Wizard) View() string {
	switch w.phase {
	case PhaseStep:
		return w.stepScreen.View()
	case PhaseRows:
		return w.rowsScreen.View()
	case PhaseLocating, PhaseSubmitting:
		return w.progressScreen.View()
	case PhaseSummary:
		return w.summaryScreen.View()
	case PhaseSaveDraft:
		return w.viewSaveDraft()
	case PhaseComplete:
		return w.completionScreen.View()
	case PhaseError:
		return w.errorScreen.View()
	}

	return ""
}

// enterStep builds the screen of the active step, or the summary once every
// step is done.
func (w *Wizard) enterStep(notes []string) {
	step, index, total, ok := w.sess.Current()
	if !ok {
		w.transitionToSummary()
		return
	}

	if step.RowSet != "" {
		spec, _ := w.sess.Flow().RowSet(step.RowSet)
		w.phase = PhaseRows
		w.rowsScreen = screens.NewRowsScreen(w.sess.Flow().Name, w.sess, spec, step.Prompt, index, total, notes)
		return
	}

	// Look the position up once per coordinate field
	if w.opts.Locator != nil {
		snap := w.sess.Snapshot()
		for _, fs := range step.Fields {
			if fs.Kind == session.KindCoordinates && !w.located[fs.Key] && snap.Get(fs.Key).IsEmpty() {
				w.phase = PhaseLocating
				w.locating = fs.Key
				w.progressScreen = screens.NewProgressScreen("Finding your location...")
				return
			}
		}
	}

	w.phase = PhaseStep
	w.stepScreen = screens.NewStepScreen(w.sess.Flow().Name, step, index, total, w.initialValues(step), notes)
}

// initialValues returns the text to show for each field of step.
func (w *Wizard) initialValues(step session.Step) map[string]string {
	snap := w.sess.Snapshot()
	out := make(map[string]string, len(step.Fields))
	for _, fs := range step.Fields {
		if p, ok := w.paths[fs.Key]; ok {
			out[fs.Key] = p
			continue
		}
		if v := snap.Get(fs.Key); !v.IsEmpty() {
			out[fs.Key] = v.String()
		}
	}
	return out
}

// locate runs the locator for the field being located.
func (w *Wizard) locate() tea.Cmd {
	loc, timeout := w.opts.Locator, w.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		c, err := loc.Locate(ctx)
		return screens.LocatedMsg{Coordinates: c, Err: err}
	}
}

// updateLocating waits for the location lookup.
func (w *Wizard) updateLocating(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m, ok := msg.(screens.LocatedMsg); ok {
		w.located[w.locating] = true
		var notes []string
		if m.Err != nil {
			notes = append(notes, locateNote(m.Err))
		} else if err := w.sess.Set(w.locating, session.Coords(m.Coordinates.Lat, m.Coordinates.Lng)); err != nil {
			notes = append(notes, err.Error())
		}
		w.enterStep(notes)
		return w, w.initPhase()
	}

	model, cmd := w.progressScreen.Update(msg)
	if ps, ok := model.(*screens.ProgressScreen); ok {
		w.progressScreen = ps
	}
	if w.progressScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}
	return w, cmd
}

func locateNote(err error) string {
	switch {
	case errors.Is(err, geo.ErrPermissionDenied):
		return "Location access was denied. Enter the coordinates manually."
	case errors.Is(err, geo.ErrUnavailable):
		return "Your location is unavailable. Enter the coordinates manually."
	default:
		return fmt.Sprintf("Could not find your location (%v). Enter the coordinates manually.", err)
	}
}

// updateStep handles updates of a field step.
func (w *Wizard) updateStep(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.stepScreen.Update(msg)
	if ss, ok := model.(*screens.StepScreen); ok {
		w.stepScreen = ss
	}

	if w.stepScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.stepScreen.Back() {
		return w.back()
	}

	if w.stepScreen.Done() {
		if notes := w.applyStep(w.stepScreen.Step(), w.stepScreen.Values()); len(notes) > 0 {
			w.enterStep(notes)
			return w, w.initPhase()
		}
		return w.advance()
	}

	return w, cmd
}

// applyStep stores the typed values of step in the session and returns the
// problems found.
func (w *Wizard) applyStep(step session.Step, values map[string]string) []string {
	var notes []string
	for _, fs := range step.Fields {
		raw := values[fs.Key]
		if raw == "" {
			delete(w.paths, fs.Key)
			if err := w.sess.Clear(fs.Key); err != nil {
				notes = append(notes, err.Error())
			}
			continue
		}

		// An unchanged path keeps the attachment already loaded
		if fs.Kind == session.KindFile && w.paths[fs.Key] == raw && !w.sess.Get(fs.Key).IsEmpty() {
			continue
		}

		v, err := w.opts.Resolve(fs, raw)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: %v", fs.Label, err))
			continue
		}
		if err := w.sess.Set(fs.Key, v); err != nil {
			notes = append(notes, err.Error())
			continue
		}
		if fs.Kind == session.KindFile {
			w.paths[fs.Key] = raw
		}
	}
	return notes
}

// advance validates the active step and moves to the next one.
func (w *Wizard) advance() (tea.Model, tea.Cmd) {
	verdict, err := w.sess.Advance()
	if err != nil {
		return w.fail(err)
	}

	var notes []string
	for _, p := range verdict.Problems {
		notes = append(notes, p.String())
	}
	w.enterStep(notes)
	return w, w.initPhase()
}

// back returns to the previous step, or cancels from the first one.
func (w *Wizard) back() (tea.Model, tea.Cmd) {
	if !w.sess.Back() {
		w.cancelled = true
		return w, tea.Quit
	}
	w.enterStep(nil)
	return w, w.initPhase()
}

// updateRows handles updates of a row set step.
func (w *Wizard) updateRows(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.rowsScreen.Update(msg)
	if rs, ok := model.(*screens.RowsScreen); ok {
		w.rowsScreen = rs
	}

	if w.rowsScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.rowsScreen.Back() {
		return w.back()
	}

	if w.rowsScreen.Done() {
		return w.advance()
	}

	return w, cmd
}

// transitionToSummary moves to the summary screen.
func (w *Wizard) transitionToSummary() {
	w.phase = PhaseSummary
	w.summaryScreen = screens.NewSummaryScreen(
		w.sess.Flow(),
		w.sess.Snapshot(),
		w.sess.CanSubmit(),
		w.lastErr,
		w.opts.AllowDraft,
	)
}

// updateSummary handles updates in the summary phase.
func (w *Wizard) updateSummary(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.summaryScreen.Update(msg)
	if ss, ok := model.(*screens.SummaryScreen); ok {
		w.summaryScreen = ss
	}

	if w.summaryScreen.Cancelled() {
		w.cancelled = true
		return w, tea.Quit
	}

	if w.summaryScreen.Done() {
		switch w.summaryScreen.Action() {
		case screens.SummaryActionBack:
			return w.back()

		case screens.SummaryActionSubmit:
			return w.startSubmit()

		case screens.SummaryActionSaveDraft:
			return w.transitionToSaveDraft()

		case screens.SummaryActionCancel:
			w.cancelled = true
			return w, tea.Quit
		}
	}

	return w, cmd
}

// transitionToSaveDraft shows the save draft dialog.
func (w *Wizard) transitionToSaveDraft() (tea.Model, tea.Cmd) {
	w.phase = PhaseSaveDraft
	w.draftPath = w.sess.Flow().Name + "-draft.yaml"

	w.saveDraftForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("draft_path").
				Title("Save answers to").
				Description("Enter the path for the YAML draft file").
				Value(&w.draftPath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("path is required")
					}
					return nil
				}),
		),
	).WithShowHelp(false)

	return w, w.saveDraftForm.Init()
}

// updateSaveDraft handles updates in the save draft phase.
func (w *Wizard) updateSaveDraft(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			// Go back to summary
			w.transitionToSummary()
			return w, w.initPhase()
		case "ctrl+c":
			w.cancelled = true
			return w, tea.Quit
		}
	}

	form, cmd := w.saveDraftForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		w.saveDraftForm = f
	}

	if w.saveDraftForm.State == huh.StateCompleted {
		d := DraftFrom(w.sess.Flow(), w.sess.Snapshot(), w.paths)
		if err := SaveDraft(d, w.draftPath); err != nil {
			return w.fail(err)
		}
		w.draftSaved = w.draftPath

		// Go back to summary
		w.transitionToSummary()
		return w, w.initPhase()
	}

	return w, cmd
}

// viewSaveDraft renders the save draft dialog.
func (w *Wizard) viewSaveDraft() string {
	title := components.TitleStyle.Render("Save Answers")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		w.saveDraftForm.View(),
		"",
		"Enter: Save | Esc: Back",
	)
}

// startSubmit sends the session in the background.
func (w *Wizard) startSubmit() (tea.Model, tea.Cmd) {
	w.phase = PhaseSubmitting
	w.progressScreen = screens.NewProgressScreen("Submitting...")
	w.started = time.Now()

	sess, timeout := w.sess, w.opts.Timeout
	return w, tea.Batch(w.progressScreen.Init(), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		r, err := sess.Submit(ctx)
		return screens.SubmittedMsg{Result: r, Err: err}
	})
}

// updateSubmitting waits for the submission outcome.
func (w *Wizard) updateSubmitting(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m, ok := msg.(screens.SubmittedMsg); ok {
		if m.Err != nil {
			return w.fail(m.Err)
		}
		w.result = m.Result
		if m.Result.Status == session.StatusFailed {
			// The session is ready to submit again
			w.lastErr = m.Result.Err
			w.transitionToSummary()
			return w, w.initPhase()
		}

		w.lastErr = nil
		done := w.opts.Complete(m.Result)
		done.Duration = time.Since(w.started)
		if w.draftSaved != "" {
			done.Fields = append(done.Fields, screens.Field{Label: "Draft", Value: w.draftSaved})
		}
		w.phase = PhaseComplete
		w.completionScreen = screens.NewCompletionScreen(done)
		return w, nil
	}

	model, cmd := w.progressScreen.Update(msg)
	if ps, ok := model.(*screens.ProgressScreen); ok {
		w.progressScreen = ps
	}

	if w.progressScreen.Cancelled() {
		// Closing the session cancels the call and drops its result
		w.sess.Close()
		w.cancelled = true
		return w, tea.Quit
	}

	return w, cmd
}

// fail moves to the error screen.
func (w *Wizard) fail(err error) (tea.Model, tea.Cmd) {
	w.err = err
	w.phase = PhaseError
	w.errorScreen = screens.NewErrorScreen(err)
	return w, nil
}

// updateComplete handles updates in the completion phase.
func (w *Wizard) updateComplete(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.completionScreen.Update(msg)
	if cs, ok := model.(*screens.CompletionScreen); ok {
		w.completionScreen = cs
	}

	if w.completionScreen.Done() {
		w.finished = true
		return w, tea.Quit
	}

	return w, cmd
}

// updateError handles updates in the error phase.
func (w *Wizard) updateError(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := w.errorScreen.Update(msg)
	if es, ok := model.(*screens.ErrorScreen); ok {
		w.errorScreen = es
	}

	if w.errorScreen.Done() {
		w.finished = true
		return w, tea.Quit
	}

	return w, cmd
}

// Phase returns the current phase.
func (w *Wizard) Phase() Phase {
	return w.phase
}

// Run walks sess through the wizard and returns the submission result.
// A cancelled wizard returns the zero Result and no error.
func Run(sess *session.Session, opts Options) (session.Result, error) {
	defer sess.Close()

	w := NewWizard(sess, opts)
	p := tea.NewProgram(w, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return session.Result{}, fmt.Errorf("running wizard: %w", err)
	}

	// Check final state
	if fw, ok := finalModel.(*Wizard); ok {
		if fw.cancelled {
			return session.Result{}, nil
		}
		if fw.err != nil {
			return session.Result{}, fw.err
		}
		return fw.result, nil
	}

	return session.Result{}, nil
}
