package wizard

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/screens"
	"github.com/mrsinham/medbrain/internal/attachment"
	"github.com/mrsinham/medbrain/internal/flows"
	"github.com/mrsinham/medbrain/internal/geo"
	"github.com/mrsinham/medbrain/internal/session"
)

func readySession(t *testing.T) *session.Session {
	t.Helper()
	s := newSession(t, flows.Prescription, nil)
	if err := Fill(s, prescriptionDraft(), ResolveWith("", attachment.Options{})); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	return s
}

// atLocationStep returns a session whose details step is done.
func atLocationStep(t *testing.T) *session.Session {
	t.Helper()
	s := newSession(t, flows.Prescription, nil)
	for k, v := range map[string]session.Value{
		"author":       session.Text("Dr. Rao"),
		"organization": session.Text("City Hospital"),
		"date":         session.Date("2024-03-18"),
	} {
		if err := s.Set(k, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}
	verdict, err := s.Advance()
	if err != nil || !verdict.OK() {
		t.Fatalf("Advance failed: %v %v", err, verdict.Problems)
	}
	return s
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewWizard_ReadySessionOpensSummary(t *testing.T) {
	w := NewWizard(readySession(t), Options{})
	if w.Phase() != PhaseSummary {
		t.Errorf("Expected PhaseSummary, got %d", w.Phase())
	}
}

func TestNewWizard_FirstStep(t *testing.T) {
	w := NewWizard(newSession(t, flows.Prescription, nil), Options{})
	if w.Phase() != PhaseStep {
		t.Fatalf("Expected PhaseStep, got %d", w.Phase())
	}
	if got := w.stepScreen.Step().ID; got != "details" {
		t.Errorf("Expected step details, got %s", got)
	}
}

func TestWizard_EscOnFirstStepCancels(t *testing.T) {
	w := NewWizard(newSession(t, flows.Prescription, nil), Options{})
	w.Update(key("esc"))
	if !w.cancelled {
		t.Error("Expected wizard to be cancelled")
	}
}

func TestWizard_EscGoesBack(t *testing.T) {
	s := atLocationStep(t)
	w := NewWizard(s, Options{})
	if got := w.stepScreen.Step().ID; got != "location" {
		t.Fatalf("Expected step location, got %s", got)
	}

	w.Update(key("esc"))
	if w.cancelled {
		t.Fatal("Expected wizard not to be cancelled")
	}
	if w.Phase() != PhaseStep {
		t.Fatalf("Expected PhaseStep, got %d", w.Phase())
	}
	if got := w.stepScreen.Step().ID; got != "details" {
		t.Errorf("Expected step details, got %s", got)
	}
	// Answers survive going back
	if got := w.initialValues(w.stepScreen.Step())["author"]; got != "Dr. Rao" {
		t.Errorf("Expected author Dr. Rao, got %q", got)
	}
}

func TestWizard_LocatorFillsCoordinates(t *testing.T) {
	s := atLocationStep(t)
	w := NewWizard(s, Options{Locator: geo.Static{Lat: 48.85, Lng: 2.35}})
	if w.Phase() != PhaseLocating {
		t.Fatalf("Expected PhaseLocating, got %d", w.Phase())
	}

	w.Update(screens.LocatedMsg{Coordinates: session.Coordinates{Lat: 48.85, Lng: 2.35}})

	if w.Phase() != PhaseStep {
		t.Fatalf("Expected PhaseStep, got %d", w.Phase())
	}
	c, ok := s.Get("location").Coordinates()
	if !ok || c.Lat != 48.85 || c.Lng != 2.35 {
		t.Errorf("Expected location 48.85,2.35, got %+v (ok=%v)", c, ok)
	}
	if got := w.initialValues(w.stepScreen.Step())["location"]; got == "" {
		t.Error("Expected location to be prefilled")
	}
}

func TestWizard_LocatorFailureFallsBackToManualEntry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"denied", geo.ErrPermissionDenied},
		{"unavailable", geo.ErrUnavailable},
		{"other", errors.New("timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := atLocationStep(t)
			w := NewWizard(s, Options{Locator: geo.Denied{}})
			w.Update(screens.LocatedMsg{Err: tt.err})

			if w.Phase() != PhaseStep {
				t.Fatalf("Expected PhaseStep, got %d", w.Phase())
			}
			if !s.Get("location").IsEmpty() {
				t.Error("Expected location to stay empty")
			}
			if !w.located["location"] {
				t.Error("Expected location lookup not to run again")
			}

			// Coming back to the step does not look the position up again
			w.back()
			w.advance()
			if w.Phase() == PhaseLocating {
				t.Error("Expected no second location lookup")
			}
		})
	}
}

func TestLocateNote(t *testing.T) {
	if got := locateNote(geo.ErrPermissionDenied); got != "Location access was denied. Enter the coordinates manually." {
		t.Errorf("Unexpected note for denied: %s", got)
	}
	if got := locateNote(geo.ErrUnavailable); got != "Your location is unavailable. Enter the coordinates manually." {
		t.Errorf("Unexpected note for unavailable: %s", got)
	}
}

func TestWizard_FailedSubmissionReturnsToSummary(t *testing.T) {
	w := NewWizard(readySession(t), Options{})
	w.startSubmit()
	if w.Phase() != PhaseSubmitting {
		t.Fatalf("Expected PhaseSubmitting, got %d", w.Phase())
	}

	sendErr := errors.New("server said no")
	w.Update(screens.SubmittedMsg{Result: session.Result{Status: session.StatusFailed, Err: sendErr}})

	if w.Phase() != PhaseSummary {
		t.Fatalf("Expected PhaseSummary, got %d", w.Phase())
	}
	if !errors.Is(w.lastErr, sendErr) {
		t.Errorf("Expected last error %v, got %v", sendErr, w.lastErr)
	}
}

func TestWizard_SuccessfulSubmissionCompletes(t *testing.T) {
	var got session.Result
	w := NewWizard(readySession(t), Options{
		Complete: func(r session.Result) screens.CompletionMsg {
			got = r
			return screens.CompletionMsg{Title: "Prescription saved"}
		},
	})
	w.startSubmit()
	w.draftSaved = "prescription-draft.yaml"
	w.Update(screens.SubmittedMsg{Result: session.Result{Status: session.StatusSucceeded, RecordID: "rec-9"}})

	if w.Phase() != PhaseComplete {
		t.Fatalf("Expected PhaseComplete, got %d", w.Phase())
	}
	if got.RecordID != "rec-9" {
		t.Errorf("Expected record rec-9, got %s", got.RecordID)
	}
	if w.result.RecordID != "rec-9" {
		t.Errorf("Expected wizard result rec-9, got %s", w.result.RecordID)
	}

	w.Update(key("q"))
	if !w.finished {
		t.Error("Expected wizard to finish after leaving the completion screen")
	}
}

func TestWizard_SubmissionErrorShowsErrorScreen(t *testing.T) {
	w := NewWizard(readySession(t), Options{})
	w.startSubmit()
	w.Update(screens.SubmittedMsg{Err: session.ErrSessionClosed})

	if w.Phase() != PhaseError {
		t.Fatalf("Expected PhaseError, got %d", w.Phase())
	}
	if !errors.Is(w.err, session.ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed, got %v", w.err)
	}
}

func TestWizard_CancelWhileSubmittingClosesSession(t *testing.T) {
	s := readySession(t)
	w := NewWizard(s, Options{})
	w.startSubmit()
	w.Update(key("ctrl+c"))

	if !w.cancelled {
		t.Error("Expected wizard to be cancelled")
	}
	if !s.Closed() {
		t.Error("Expected session to be closed")
	}
}

func TestWizard_ApplyStepReportsProblems(t *testing.T) {
	s := atLocationStep(t)
	w := NewWizard(s, Options{})
	step, _, _, _ := s.Current()

	notes := w.applyStep(step, map[string]string{"location": "north"})
	if len(notes) != 1 {
		t.Fatalf("Expected 1 note, got %d: %v", len(notes), notes)
	}

	notes = w.applyStep(step, map[string]string{"location": "1.5,2.5"})
	if len(notes) != 0 {
		t.Fatalf("Expected no notes, got %v", notes)
	}
	if got := s.Get("location").String(); got == "" {
		t.Error("Expected location to be set")
	}
}

func TestWizard_DefaultTimeout(t *testing.T) {
	w := NewWizard(readySession(t), Options{})
	if w.opts.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", w.opts.Timeout)
	}
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		name    string
		fs      session.FieldSpec
		input   string
		wantErr bool
	}{
		{"required empty", session.FieldSpec{Label: "Name", Kind: session.KindText, Required: true}, "  ", true},
		{"optional empty", session.FieldSpec{Label: "Name", Kind: session.KindText}, "", false},
		{"number ok", session.FieldSpec{Label: "Age", Kind: session.KindNumber}, "42", false},
		{"number bad", session.FieldSpec{Label: "Age", Kind: session.KindNumber}, "forty", true},
		{"date ok", session.FieldSpec{Label: "Date", Kind: session.KindDate}, "2024-03-18", false},
		{"date bad", session.FieldSpec{Label: "Date", Kind: session.KindDate}, "18/03/2024", true},
		{"coords ok", session.FieldSpec{Label: "Loc", Kind: session.KindCoordinates}, "12.9, 77.5", false},
		{"coords out of range", session.FieldSpec{Label: "Loc", Kind: session.KindCoordinates}, "91,0", true},
		{"coords malformed", session.FieldSpec{Label: "Loc", Kind: session.KindCoordinates}, "12.9", true},
		{"file missing", session.FieldSpec{Label: "Doc", Kind: session.KindFile}, "/does/not/exist.png", true},
		{"file is dir", session.FieldSpec{Label: "Doc", Kind: session.KindFile}, t.TempDir(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := screens.ValidateField(tt.fs)(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
