package flows

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/internal/auth"
	"github.com/mrsinham/medbrain/internal/client"
	"github.com/mrsinham/medbrain/internal/session"
)

var testIdentity = auth.Identity{Subject: "u1", FullName: "Ada Lovelace", Email: "ada@example.com", Age: 36, Token: "token"}

type fakeRecords struct {
	calls atomic.Int32
	got   client.PrescriptionDraft
	err   error
}

func (f *fakeRecords) CreatePrescription(_ context.Context, d client.PrescriptionDraft) (client.Record, error) {
	f.calls.Add(1)
	f.got = d
	if f.err != nil {
		return client.Record{}, f.err
	}
	return client.Record{ID: "abc123"}, nil
}

type fakePredictor struct {
	calls atomic.Int32
	got   client.Symptoms
}

func (f *fakePredictor) Predict(_ context.Context, s client.Symptoms) (string, error) {
	f.calls.Add(1)
	f.got = s
	return "Influenza", nil
}

type fakeProfile struct {
	got map[string]any
}

func (f *fakeProfile) UpdateProfile(_ context.Context, fields map[string]any) error {
	f.got = fields
	return nil
}

func newSession(t *testing.T, name string, sender session.Sender) *session.Session {
	t.Helper()
	f, err := Load(name)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", name, err)
	}
	s, err := session.New(f, session.Options{Identity: testIdentity, Sender: sender, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func advanceAll(t *testing.T, s *session.Session) {
	t.Helper()
	for s.State() == session.StateAtStep {
		v, err := s.Advance()
		if err != nil {
			t.Fatalf("Advance() error = %v", err)
		}
		if !v.OK() {
			t.Fatalf("Advance() refused: %v", v.Err())
		}
	}
}

func TestBuiltInFlows(t *testing.T) {
	names := Names()
	if strings.Join(names, ",") != "prescription,profile,quiz" {
		t.Errorf("Unexpected flow names %v", names)
	}

	quiz, err := Load(Quiz)
	if err != nil {
		t.Fatalf("Load(quiz) error = %v", err)
	}
	wantPrompts := []string{
		"What's your age?",
		"Write your gender (Male/Female)",
		"Write your country",
		"Write the first symptom",
		"Write the second symptom",
		"Write the third symptom",
	}
	if len(quiz.Steps) != len(wantPrompts) {
		t.Fatalf("Expected %d quiz steps, got %d", len(wantPrompts), len(quiz.Steps))
	}
	for i, p := range wantPrompts {
		if quiz.Steps[i].Prompt != p {
			t.Errorf("Expected prompt %d %q, got %q", i, p, quiz.Steps[i].Prompt)
		}
	}

	rx, _ := Load(Prescription)
	items, ok := rx.RowSet("items")
	if !ok {
		t.Fatal("Expected items row set")
	}
	if strings.Join(items.ColumnKeys(), ",") != "name,dosage,duration" {
		t.Errorf("Unexpected medicine columns %v", items.ColumnKeys())
	}
	if doc, _ := rx.Field("document"); doc.Required {
		t.Error("Expected document to be optional")
	}

	if _, err := Load("unknown"); err == nil {
		t.Error("Expected error for unknown flow")
	}
}

func TestLoadReturnsFreshCopy(t *testing.T) {
	a, _ := Load(Quiz)
	a.Steps[0].Prompt = "changed"
	b, _ := Load(Quiz)
	if b.Steps[0].Prompt == "changed" {
		t.Error("Expected Load to return an independent flow")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown kind", "flows:\n  - name: a\n    steps:\n      - id: s\n        fields:\n          - {key: x, kind: colour}\n", "unknown field kind"},
		{"duplicate flow", "flows:\n  - name: a\n    steps:\n      - id: s\n        fields: [{key: x}]\n  - name: a\n    steps:\n      - id: s\n        fields: [{key: x}]\n", "defined twice"},
		{"unknown row set", "flows:\n  - name: a\n    steps:\n      - id: s\n        row_set: rows\n", "unknown row set"},
		{"no steps", "flows:\n  - name: a\n", "no steps"},
		{"bad yaml", "flows: [", "parsing flow definitions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPrescriptionSender(t *testing.T) {
	rec := &fakeRecords{}
	s := newSession(t, Prescription, PrescriptionSender(rec))

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.Set("author", session.Text("Dr. A")))
	must(s.Set("organization", session.Text("City Hospital")))
	must(s.Set("date", session.Date("2024-01-01T10:00:00Z")))
	must(s.Set("location", session.Coords(40.0, -73.0)))
	must(s.SetCell("items", 0, "name", session.Text("Aspirin")))
	must(s.SetCell("items", 0, "dosage", session.Text("500mg")))
	must(s.SetCell("items", 0, "duration", session.Text("7 days")))
	must(s.Set("document", session.File(&session.FileRef{Name: "scan.png", DataURL: "data:image/png;base64,AAAA"})))
	advanceAll(t, s)

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.Status != session.StatusSucceeded || res.RecordID != "abc123" {
		t.Errorf("Expected success with abc123, got %+v", res)
	}
	if s.State() != session.StateDone {
		t.Errorf("Expected done, got %s", s.State())
	}

	d := rec.got
	if d.DoctorName != "Dr. A" || d.HospitalName != "City Hospital" {
		t.Errorf("Unexpected draft names %+v", d)
	}
	if d.Date != "2024-01-01" {
		t.Errorf("Expected calendar date, got %q", d.Date)
	}
	if d.Location != (client.Location{Lat: 40, Lng: -73}) {
		t.Errorf("Unexpected location %+v", d.Location)
	}
	if len(d.Medicines) != 1 || d.Medicines[0] != (client.Medicine{Name: "Aspirin", Dosage: "500mg", Duration: "7 days"}) {
		t.Errorf("Unexpected medicines %+v", d.Medicines)
	}
	if d.Document == nil || d.Document.Name != "scan.png" {
		t.Errorf("Expected document to be attached, got %+v", d.Document)
	}
}

func TestPrescriptionSender_FailureRollsBack(t *testing.T) {
	rec := &fakeRecords{err: &client.StatusError{Op: "create prescription", StatusCode: 500}}
	s := newSession(t, Prescription, PrescriptionSender(rec))
	_ = s.Set("author", session.Text("Dr. A"))
	_ = s.Set("organization", session.Text("City"))
	_ = s.Set("date", session.Date("2024-01-01"))
	_ = s.Set("location", session.Coords(1, 2))
	_ = s.ReplaceRow("items", 0, session.Row{
		"name": session.Text("X"), "dosage": session.Text("1"), "duration": session.Text("2d"),
	})
	advanceAll(t, s)

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	var se *client.StatusError
	if res.Status != session.StatusFailed || !errors.As(res.Err, &se) {
		t.Errorf("Expected failed result with StatusError, got %+v", res)
	}
	if s.State() != session.StateReady {
		t.Errorf("Expected ready_to_submit, got %s", s.State())
	}
	if rec.got.Document != nil {
		t.Error("Expected no document without attachment")
	}
}

func TestQuizSender(t *testing.T) {
	p := &fakePredictor{}
	s := newSession(t, Quiz, QuizSender(p))

	answers := map[string]session.Value{
		"age": session.Number("30"), "gender": session.Text("Male"), "country": session.Text("India"),
		"symptom1": session.Text("fever"), "symptom2": session.Text("cough"), "symptom3": session.Text("fatigue"),
	}
	for s.State() == session.StateAtStep {
		step, _, _, _ := s.Current()
		key := step.Fields[0].Key
		if err := s.Set(key, answers[key]); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Advance(); err != nil {
			t.Fatal(err)
		}
	}

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.RecordID != "Influenza" {
		t.Errorf("Expected Influenza, got %q", res.RecordID)
	}
	if p.calls.Load() != 1 {
		t.Errorf("Expected one prediction, got %d", p.calls.Load())
	}
	want := client.Symptoms{Age: "30", Gender: "Male", Country: "India", Symptom1: "fever", Symptom2: "cough", Symptom3: "fatigue"}
	if p.got != want {
		t.Errorf("Expected %+v, got %+v", want, p.got)
	}
}

func TestProfileSender(t *testing.T) {
	pu := &fakeProfile{}
	s := newSession(t, Profile, ProfileSender(pu))

	if err := PrefillProfile(s, testIdentity); err != nil {
		t.Fatalf("PrefillProfile() error = %v", err)
	}
	if got := s.Get("fullName").String(); got != "Ada Lovelace" {
		t.Errorf("Expected prefilled name, got %q", got)
	}
	_ = s.Set("height", session.Number("170"))
	_ = s.Set("allergies", session.Text("penicillin"))
	_ = s.Set("city", session.Text("  "))
	advanceAll(t, s)

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if pu.got["fullName"] != "Ada Lovelace" || pu.got["allergies"] != "penicillin" {
		t.Errorf("Unexpected profile fields %v", pu.got)
	}
	if pu.got["height"] != 170.0 || pu.got["age"] != 36.0 {
		t.Errorf("Expected numbers as JSON numbers, got %v", pu.got)
	}
	if _, ok := pu.got["city"]; ok {
		t.Error("Expected blank fields to be omitted")
	}
}
