package session

import (
	"strings"
	"testing"
)

func TestReveal_ProgressesOneRuneAtATime(t *testing.T) {
	r := NewReveal(0)
	if r.Interval() != DefaultRevealInterval {
		t.Errorf("Expected default interval, got %v", r.Interval())
	}

	gen := r.Restart("héllo")
	var ticks int
	for r.Tick(gen) {
		ticks++
	}
	ticks++ // final tick returned false

	if ticks != 5 {
		t.Errorf("Expected 5 ticks, got %d", ticks)
	}
	if r.Text() != "héllo" || !r.Done() {
		t.Errorf("Expected full prompt, got %q", r.Text())
	}
	if r.Tick(gen) {
		t.Error("Expected ticks past the end to stop")
	}
}

func TestReveal_NeverInterleavesPrompts(t *testing.T) {
	r := NewReveal(0)
	old := r.Restart("What's your age?")
	r.Tick(old)
	r.Tick(old)

	cur := r.Restart("Write your country")
	// Interleave ticks from both generations
	for i := 0; i < 40; i++ {
		r.Tick(old)
		r.Tick(cur)
	}

	if r.Text() != "Write your country" {
		t.Errorf("Expected only the latest prompt, got %q", r.Text())
	}
	if strings.Contains(r.Text(), "age") {
		t.Errorf("Found characters of the stale prompt in %q", r.Text())
	}
}

func TestReveal_StopAndSkip(t *testing.T) {
	r := NewReveal(0)
	gen := r.Restart("abc")
	r.Skip()
	if r.Text() != "abc" {
		t.Errorf("Expected skip to reveal everything, got %q", r.Text())
	}
	r.Stop()
	if r.Tick(gen) || r.Text() != "" {
		t.Errorf("Expected stopped reveal to stay empty, got %q", r.Text())
	}
}
