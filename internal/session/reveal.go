package session

import (
	"sync"
	"time"
)

// DefaultRevealInterval is the delay between two revealed characters.
const DefaultRevealInterval = 50 * time.Millisecond

// Reveal replays a prompt one character at a time.
// Every Restart starts a new generation; ticks carrying an older generation are ignored,
// so characters of two prompts never interleave.
type Reveal struct {
	mu       sync.Mutex
	interval time.Duration
	gen      uint64
	prompt   []rune
	shown    int
}

// NewReveal creates a reveal ticking at interval.
func NewReveal(interval time.Duration) *Reveal {
	if interval <= 0 {
		interval = DefaultRevealInterval
	}
	return &Reveal{interval: interval}
}

// Interval returns the tick interval.
func (r *Reveal) Interval() time.Duration {
	return r.interval
}

// Restart cancels the running animation and starts revealing prompt.
// It returns the generation token to pass to Tick.
func (r *Reveal) Restart(prompt string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.prompt = []rune(prompt)
	r.shown = 0
	return r.gen
}

// Tick reveals the next character if gen is the current generation.
// It reports whether the caller should schedule another tick.
func (r *Reveal) Tick(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || r.shown >= len(r.prompt) {
		return false
	}
	r.shown++
	return r.shown < len(r.prompt)
}

// Stop cancels the running animation and reveals nothing more.
func (r *Reveal) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	r.prompt = nil
	r.shown = 0
}

// Skip shows the whole prompt at once.
func (r *Reveal) Skip() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shown = len(r.prompt)
}

// Generation returns the current generation token.
func (r *Reveal) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.gen
}

// Text returns the part of the prompt revealed so far.
func (r *Reveal) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return string(r.prompt[:r.shown])
}

// Done reports whether the full prompt is visible.
func (r *Reveal) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.shown >= len(r.prompt)
}
