// Package poll runs a fetch on a fixed interval and hands back only results
// newer than the last one delivered.
package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Update is the outcome of one fetch.
type Update[T any] struct {
	Seq   uint64
	Value T
	Err   error
}

// Stats counts fetches by outcome.
type Stats struct {
	Fetched   uint64
	Delivered uint64
	Dropped   uint64
}

// Refresher fetches immediately on Start and then every interval. A result is
// delivered only if no newer fetch has been delivered already, and never after
// Stop has been called.
type Refresher[T any] struct {
	interval time.Duration
	fetch    func(context.Context) (T, error)
	deliver  func(Update[T])
	logger   zerolog.Logger

	started uint32
	seq     atomic.Uint64
	kickCh  chan struct{}
	stopCh  chan chan struct{}

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	applied uint64
	stats   Stats
	fetches sync.WaitGroup
}

// New creates a refresher. deliver is called with the refresher's lock held
// and must not block.
func New[T any](interval time.Duration, fetch func(context.Context) (T, error), deliver func(Update[T]), logger zerolog.Logger) *Refresher[T] {
	return &Refresher[T]{
		interval: interval,
		fetch:    fetch,
		deliver:  deliver,
		logger:   logger,
		kickCh:   make(chan struct{}, 1),
		stopCh:   make(chan chan struct{}, 1),
	}
}

// Started returns true iff the refresher is running.
func (r *Refresher[T]) Started() bool {
	return atomic.LoadUint32(&r.started) != 0
}

// Start begins polling if it is not already doing so.
func (r *Refresher[T]) Start() {
	if atomic.SwapUint32(&r.started, 1) == 1 {
		return
	}

	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(context.Background())
	ctx := r.ctx
	r.mu.Unlock()

	go func() {
		defer atomic.StoreUint32(&r.started, 0)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.spawn(ctx)
		for {
			select {
			case ch := <-r.stopCh:
				ch <- struct{}{}
				return
			case <-ticker.C:
				r.spawn(ctx)
			case <-r.kickCh:
				r.spawn(ctx)
				ticker.Reset(r.interval)
			}
		}
	}()
}

// Refresh requests a fetch now. It is a no-op when the refresher is stopped.
func (r *Refresher[T]) Refresh() {
	if !r.Started() {
		return
	}
	select {
	case r.kickCh <- struct{}{}:
	default:
	}
}

// Stop cancels pending fetches and waits up to wait for them to return.
func (r *Refresher[T]) Stop(wait time.Duration) {
	if !r.Started() {
		return
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	deadline := time.After(wait)
	ch := make(chan struct{})
	r.stopCh <- ch
	select {
	case <-ch:
	case <-deadline:
		return
	}

	done := make(chan struct{})
	go func() {
		r.fetches.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-deadline:
	}
}

// Stats returns the fetch counters.
func (r *Refresher[T]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// spawn runs one fetch in the background.
func (r *Refresher[T]) spawn(ctx context.Context) {
	seq := r.seq.Add(1)
	r.fetches.Add(1)
	go func() {
		defer r.fetches.Done()
		v, err := r.fetch(ctx)
		r.complete(ctx, Update[T]{Seq: seq, Value: v, Err: err})
	}()
}

func (r *Refresher[T]) complete(ctx context.Context, u Update[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Fetched++
	if ctx.Err() != nil || u.Seq <= r.applied {
		r.stats.Dropped++
		r.logger.Debug().Uint64("seq", u.Seq).Uint64("applied", r.applied).Msg("dropping stale refresh")
		return
	}
	r.applied = u.Seq
	r.stats.Delivered++
	if u.Err != nil {
		r.logger.Warn().Err(u.Err).Uint64("seq", u.Seq).Msg("refresh failed")
	}
	r.deliver(u)
}
