package session

import (
	"context"
	"sync"
)

// Status is the outcome tag of a submission attempt.
type Status int

const (
	StatusNone Status = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "none"
	}
}

// Result is the outcome of the latest submission attempt.
type Result struct {
	Status Status
	// RecordID is what the service returned: a record id, or a prediction label.
	RecordID string
	Err      error
}

// Sender encodes a validated snapshot and performs the single outbound call.
// It returns the identifier assigned by the remote service, which may be empty.
type Sender interface {
	Send(ctx context.Context, snap Snapshot) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, snap Snapshot) (string, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, snap Snapshot) (string, error) {
	return f(ctx, snap)
}

// controller guards the single in-flight submission of a session.
type controller struct {
	sender Sender

	mu       sync.Mutex
	inFlight bool
	last     Result
}

// acquire claims the in-flight slot. It fails when a submission is pending.
func (c *controller) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return false
	}
	c.inFlight = true
	return true
}

// pending marks the claimed submission as started.
func (c *controller) pending() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = Result{Status: StatusPending}
}

// release frees the slot and records r as the latest result.
func (c *controller) release(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
	c.last = r
}

// abandon frees the slot and leaves the latest result untouched.
func (c *controller) abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
}

func (c *controller) result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}
