package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockResult struct {
	err error
}

func (r *mockResult) GetError() error {
	return r.err
}

type mockJob struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32
}

func (j *mockJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		timer := time.NewTimer(j.duration)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return &mockResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &mockResult{err: errors.New("job error")}
	}
	return &mockResult{}
}

func TestNewPool(t *testing.T) {
	if p := NewPool(5); p.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p.workers)
	}
	if p := NewPool(0); p.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p.workers)
	}
	if p := NewPool(-1); p.workers != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p.workers)
	}
}

func TestPool_Execution(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var executed int32
	count := 10

	for i := 0; i < count; i++ {
		pool.Submit(&mockJob{executed: &executed})
	}

	results := pool.Wait()

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != int32(count) {
		t.Errorf("expected %d executed jobs, got %d", count, executed)
	}
}

func TestPool_ManyMoreJobsThanBuffer(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	count := 100
	for i := 0; i < count; i++ {
		pool.Submit(&mockJob{})
	}

	if results := pool.Wait(); len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 10
	pool := NewPool(workers)
	pool.Start()

	var current, maxConcurrent, completed int32
	var mu sync.Mutex

	totalJobs := 50
	for i := 0; i < totalJobs; i++ {
		pool.Submit(jobFunc(func(ctx context.Context) Result {
			curr := atomic.AddInt32(&current, 1)
			mu.Lock()
			if curr > maxConcurrent {
				maxConcurrent = curr
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			atomic.AddInt32(&completed, 1)
			return &mockResult{}
		}))
	}

	pool.Wait()

	if atomic.LoadInt32(&completed) != int32(totalJobs) {
		t.Errorf("expected %d completed jobs, got %d", totalJobs, completed)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxConcurrent > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", maxConcurrent, workers)
	}
}

func TestPool_ErrorHandling(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&mockJob{shouldErr: true})
	pool.Submit(&mockJob{shouldErr: false})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	failed := 0
	for _, res := range results {
		if res.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 error, got %d", failed)
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	done := make(chan bool)
	go func() {
		done <- pool.Submit(&mockJob{})
	}()

	select {
	case accepted := <-done:
		if accepted {
			t.Error("Submit after shutdown should be rejected")
		}
	case <-time.After(time.Second):
		t.Fatal("Submit after shutdown blocked")
	}
}

func TestPool_ShutdownCancelsRunningJobs(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(jobFunc(func(ctx context.Context) Result {
		close(started)
		<-ctx.Done()
		return &mockResult{err: ctx.Err()}
	}))

	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown timed out")
	}

	results := pool.Results()
	if len(results) != 1 || !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("expected one cancelled result, got %v", results)
	}
}

// jobFunc adapts a function to Job
type jobFunc func(ctx context.Context) Result

func (f jobFunc) Execute(ctx context.Context) Result { return f(ctx) }
