package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrsinham/medbrain/internal/auth"
)

// Options configures a new Session.
type Options struct {
	// Identity is the signed-in user. It must be authenticated.
	Identity auth.Identity
	// Sender performs the terminal submission.
	Sender Sender
	// Logger receives transition and submission events.
	Logger zerolog.Logger
	// RevealInterval is the typewriter delay. Zero means DefaultRevealInterval.
	RevealInterval time.Duration
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Session is one run of a flow: its field values, step position, latest
// submission result and reveal animation. It lives in memory only.
type Session struct {
	id       string
	flow     *Flow
	identity auth.Identity
	logger   zerolog.Logger

	mu     sync.Mutex
	store  *Store
	seq    *Sequencer
	reveal *Reveal
	ctrl   controller
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// New opens a session over flow for an authenticated identity.
func New(flow *Flow, opts Options) (*Session, error) {
	if err := flow.Check(); err != nil {
		return nil, fmt.Errorf("invalid flow: %w", err)
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("flow %q: no sender configured", flow.Name)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if !opts.Identity.Authenticated(now()) {
		return nil, auth.ErrUnauthenticated
	}

	id := uuid.NewString()
	logger := opts.Logger.With().Str("session", id).Str("flow", flow.Name).Logger()

	s := &Session{
		id:       id,
		flow:     flow,
		identity: opts.Identity,
		logger:   logger,
		store:    NewStore(),
		seq:      NewSequencer(flow, logger),
		reveal:   NewReveal(opts.RevealInterval),
		ctrl:     controller{sender: opts.Sender},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, rs := range flow.RowSets {
		s.store.Declare(rs.Key, rs.ColumnKeys())
	}

	// Restart the reveal on every step change
	s.seq.OnStep(func(step Step) {
		s.reveal.Restart(step.Prompt)
	})
	s.reveal.Restart(flow.Steps[0].Prompt)

	logger.Debug().Msg("session opened")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Flow returns the flow the session runs.
func (s *Session) Flow() *Flow { return s.flow }

// Identity returns the identity the session was opened for.
func (s *Session) Identity() auth.Identity { return s.identity }

// Reveal returns the prompt animation of the session.
func (s *Session) Reveal() *Reveal { return s.reveal }

// editable returns why the fields cannot be edited right now, or nil. Callers hold s.mu.
func (s *Session) editable() error {
	if s.closed {
		return ErrSessionClosed
	}
	switch s.seq.State() {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateDone:
		return ErrSessionDone
	}
	return nil
}

// Set stores v under a field key declared by the flow.
func (s *Session) Set(key string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if _, ok := s.flow.Field(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	s.store.Set(key, v)
	return nil
}

// Clear resets a field to the empty value.
func (s *Session) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	s.store.Clear(key)
	return nil
}

// Get returns the current value of a field.
func (s *Session) Get(key string) Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Get(key)
}

// rows returns the named row set for editing. Callers hold s.mu.
func (s *Session) rows(set string) (*RowSet, error) {
	if err := s.editable(); err != nil {
		return nil, err
	}
	rs, ok := s.store.Rows(set)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRowSet, set)
	}
	return rs, nil
}

// AddRow appends an empty row to a row set and returns its position.
func (s *Session) AddRow(set string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.rows(set)
	if err != nil {
		return 0, err
	}
	return rs.Add(), nil
}

// RemoveRow deletes the row at position i. It reports false when the set kept
// its last row or i was out of range.
func (s *Session) RemoveRow(set string, i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.rows(set)
	if err != nil {
		return false, err
	}
	return rs.Remove(i), nil
}

// SetCell stores v in column col of row i.
func (s *Session) SetCell(set string, i int, col string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.rows(set)
	if err != nil {
		return err
	}
	return rs.Set(i, col, v)
}

// ReplaceRow swaps the whole row at position i.
func (s *Session) ReplaceRow(set string, i int, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, err := s.rows(set)
	if err != nil {
		return err
	}
	return rs.Replace(i, row)
}

// RowCount returns the number of rows of a row set.
func (s *Session) RowCount(set string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rs, ok := s.store.Rows(set); ok {
		return rs.Len()
	}
	return 0
}

// Snapshot returns an immutable copy of every field.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Snapshot()
}

// State returns the sequencer state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seq.State()
}

// Current returns the active step, its position and the number of steps.
func (s *Session) Current() (step Step, index, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step, ok = s.seq.Current()
	return step, s.seq.Index(), s.seq.Len(), ok
}

// IsLast reports whether the active step is the final one.
func (s *Session) IsLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seq.IsLast()
}

// Advance validates the active step and moves past it.
func (s *Session) Advance() (Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Verdict{}, ErrSessionClosed
	}
	return s.seq.Advance(s.store.Snapshot())
}

// Back rewinds one step, or returns from ready_to_submit to the last step.
func (s *Session) Back() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.seq.Back()
}

// CanSubmit validates every field of the session.
func (s *Session) CanSubmit() Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CanSubmit(s.flow, s.store.Snapshot())
}

// Result returns the latest submission result.
func (s *Session) Result() Result {
	return s.ctrl.result()
}

// Submit validates the session and sends it once.
//
// The returned error is non-nil only when nothing was applied: a submission
// already pending, a session not ready, failed validation, or a session closed
// before the response arrived. A failed send is reported in Result.Err and
// leaves the session ready to submit again.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	if !s.ctrl.acquire() {
		return s.ctrl.result(), ErrSubmissionInFlight
	}

	snap, sessCtx, err := s.beginSubmit()
	if err != nil {
		s.ctrl.abandon()
		return Result{}, err
	}
	s.ctrl.pending()
	s.logger.Info().Msg("submitting")

	// Closing the session cancels the call
	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sessCtx, cancel)
	recordID, sendErr := s.ctrl.sender.Send(callCtx, snap)
	stop()
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.ctrl.abandon()
		s.logger.Debug().Msg("discarding submission result of closed session")
		return Result{}, ErrSessionClosed
	}

	if sendErr != nil {
		if err := s.seq.fail(); err != nil {
			s.logger.Error().Err(err).Msg("rolling back submission")
		}
		r := Result{Status: StatusFailed, Err: sendErr}
		s.ctrl.release(r)
		s.logger.Warn().Err(sendErr).Msg("submission failed")
		return r, nil
	}

	if err := s.seq.succeed(); err != nil {
		s.logger.Error().Err(err).Msg("completing submission")
	}
	r := Result{Status: StatusSucceeded, RecordID: recordID}
	s.ctrl.release(r)
	s.logger.Info().Str("record_id", recordID).Msg("submission succeeded")
	return r, nil
}

// beginSubmit checks the preconditions and enters the submitting state.
func (s *Session) beginSubmit() (Snapshot, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Snapshot{}, nil, ErrSessionClosed
	}
	switch state := s.seq.State(); state {
	case StateReady:
	case StateDone:
		return Snapshot{}, nil, ErrSessionDone
	default:
		return Snapshot{}, nil, fmt.Errorf("%w: state is %s", ErrNotReady, state)
	}

	snap := s.store.Snapshot()
	if err := CanSubmit(s.flow, snap).Err(); err != nil {
		return Snapshot{}, nil, err
	}
	if err := s.seq.begin(); err != nil {
		return Snapshot{}, nil, err
	}
	return snap, s.ctx, nil
}

// Close ends the session. Pending calls are cancelled and their results dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.reveal.Stop()
	s.logger.Debug().Msg("session closed")
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
