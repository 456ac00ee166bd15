package worker

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrBusy is returned when every chain slot is taken
var ErrBusy = errors.New("scheduler busy")

// ErrClosed is returned once the scheduler is shutting down
var ErrClosed = errors.New("scheduler closed")

// Scheduler runs accepted chains in the background with a bound on how many
// run at once. Each scheduled function gets the scheduler's context, which
// outlives the request that scheduled it.
type Scheduler struct {
	ctx     context.Context
	cancel  context.CancelFunc
	group   errgroup.Group
	onPanic func(v any)

	mu     sync.Mutex
	closed bool
}

// NewScheduler creates a scheduler allowing limit concurrent runs
func NewScheduler(parent context.Context, limit int) *Scheduler {
	if limit <= 0 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Scheduler{ctx: ctx, cancel: cancel}
	s.group.SetLimit(limit)
	return s
}

// OnPanic sets the function told about a scheduled run that panicked. The
// panic is contained either way. Call it before the first Schedule.
func (s *Scheduler) OnPanic(fn func(v any)) {
	s.onPanic = fn
}

// Schedule starts fn in the background without blocking
func (s *Scheduler) Schedule(fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.group.TryGo(func() error {
		defer func() {
			if r := recover(); r != nil && s.onPanic != nil {
				s.onPanic(r)
			}
		}()
		fn(s.ctx)
		return nil
	}) {
		return ErrBusy
	}
	return nil
}

// Shutdown stops accepting work and waits for running functions. When ctx
// ends first, running functions see their context cancelled and Shutdown
// still waits for them to return.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	// Runs admitted before this point are all covered by Wait below
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
