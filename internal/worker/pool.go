// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"sync"
)

// Job is a unit of work executed by the pool.
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of one job.
type Result interface {
	Err() error
}

// Pool runs jobs on a fixed number of workers. Job completion order is not
// defined; callers that need input order carry an index in their results.
type Pool struct {
	workers  int
	jobQueue chan Job
	ctx      context.Context
	cancel   context.CancelFunc

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []Result
}

// NewPool returns a pool of the given size. The pool stops accepting and
// executing work when parent is cancelled.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, workers*2),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
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
			// Results land in a slice, not a channel, so a worker can
			// never stall behind an unread result while Submit still
			// has jobs to queue.
			res := job.Execute(p.ctx)
			p.mu.Lock()
			p.results = append(p.results, res)
			p.mu.Unlock()
		}
	}
}

// Submit queues a job. Dropped silently after cancellation.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it, and returns all
// results. Call exactly once, after the last Submit.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	return p.results
}

// Shutdown cancels outstanding work and releases the workers.
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}
