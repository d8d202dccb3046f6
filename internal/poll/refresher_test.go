package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type collector[T any] struct {
	mu      sync.Mutex
	updates []Update[T]
}

func (c *collector[T]) deliver(u Update[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *collector[T]) all() []Update[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Update[T](nil), c.updates...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRefresher_PollsOnInterval(t *testing.T) {
	var calls atomic.Int32
	c := &collector[int]{}
	r := New(10*time.Millisecond, func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, c.deliver, zerolog.Nop())

	r.Start()
	waitFor(t, func() bool { return len(c.all()) >= 3 })
	r.Stop(time.Second)

	updates := c.all()
	for i := 1; i < len(updates); i++ {
		if updates[i].Seq <= updates[i-1].Seq {
			t.Errorf("Expected increasing sequence, got %d after %d", updates[i].Seq, updates[i-1].Seq)
		}
	}
	if r.Started() {
		t.Error("Expected refresher to be stopped")
	}
}

func TestRefresher_DropsStaleResult(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := &collector[string]{}
	r := New(time.Hour, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			<-release
			return "first", nil
		}
		return "second", nil
	}, c.deliver, zerolog.Nop())

	r.Start()
	waitFor(t, func() bool { return calls.Load() == 1 })
	r.Refresh()
	waitFor(t, func() bool { return len(c.all()) == 1 })

	close(release)
	waitFor(t, func() bool { return r.Stats().Fetched == 2 })
	r.Stop(time.Second)

	updates := c.all()
	if len(updates) != 1 || updates[0].Value != "second" {
		t.Errorf("Expected only the newer result, got %+v", updates)
	}
	if s := r.Stats(); s.Dropped != 1 || s.Delivered != 1 {
		t.Errorf("Expected 1 delivered and 1 dropped, got %+v", s)
	}
}

func TestRefresher_NoDeliveryAfterStop(t *testing.T) {
	started := make(chan struct{})
	c := &collector[int]{}
	r := New(time.Hour, func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	}, c.deliver, zerolog.Nop())

	r.Start()
	<-started
	r.Stop(time.Second)

	if n := len(c.all()); n != 0 {
		t.Errorf("Expected no deliveries after stop, got %d", n)
	}
	if s := r.Stats(); s.Dropped != 1 {
		t.Errorf("Expected cancelled fetch to be dropped, got %+v", s)
	}
}

func TestRefresher_DeliversErrors(t *testing.T) {
	boom := errors.New("boom")
	c := &collector[int]{}
	r := New(time.Hour, func(context.Context) (int, error) {
		return 0, boom
	}, c.deliver, zerolog.Nop())

	r.Start()
	waitFor(t, func() bool { return len(c.all()) == 1 })
	r.Stop(time.Second)

	if !errors.Is(c.all()[0].Err, boom) {
		t.Errorf("Expected boom, got %v", c.all()[0].Err)
	}
}

func TestRefresher_RefreshWhenStoppedIsNoop(t *testing.T) {
	var calls atomic.Int32
	r := New(time.Hour, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, nil
	}, func(Update[int]) {}, zerolog.Nop())

	r.Refresh()
	r.Stop(time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("Expected no fetch, got %d", calls.Load())
	}
}
