package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers. Results are drained as they
// arrive, so submitting never deadlocks on an unread result channel.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	collected  []Result
	collectMu  sync.Mutex
	collectEnd chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	queueOnce  sync.Once
	closeOnce  sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs see a context derived from
// parent; cancelling parent stops the pool.
func NewPoolWithContext(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		collectEnd: make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	go p.collect()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

func (p *Pool) collect() {
	defer close(p.collectEnd)
	for result := range p.results {
		p.collectMu.Lock()
		p.collected = append(p.collected, result)
		p.collectMu.Unlock()
	}
}

// Submit queues a job. It returns false when the pool is shutting down.
// Submit must not be called after Wait.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes the queue, waits for queued jobs to finish and returns all
// results in completion order
func (p *Pool) Wait() []Result {
	p.queueOnce.Do(func() { close(p.jobQueue) })
	p.wg.Wait()
	p.closeResults()
	<-p.collectEnd
	p.cancelFunc()

	return p.Results()
}

// Shutdown stops the pool without running queued jobs. Jobs already running
// see their context cancelled.
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collectEnd
}

// Results returns the results collected so far
func (p *Pool) Results() []Result {
	p.collectMu.Lock()
	defer p.collectMu.Unlock()
	return append([]Result(nil), p.collected...)
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
