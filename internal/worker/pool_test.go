// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeResult implements Result.
type fakeResult struct {
	err error
}

func (r *fakeResult) Err() error { return r.err }

// fakeJob implements Job.
type fakeJob struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32
}

func (j *fakeJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &fakeResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &fakeResult{err: errors.New("job error")}
	}
	return &fakeResult{}
}

func TestNewPoolDefaultsWorkers(t *testing.T) {
	for _, n := range []int{0, -3} {
		p := NewPool(context.Background(), n)
		if p.workers != 1 {
			t.Errorf("NewPool(%d): workers = %d, want 1", n, p.workers)
		}
	}
}

func TestPoolExecutesAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed int32
	const count = 10
	for i := 0; i < count; i++ {
		pool.Submit(&fakeJob{executed: &executed})
	}

	results := pool.Wait()
	if len(results) != count {
		t.Errorf("got %d results, want %d", len(results), count)
	}
	if got := atomic.LoadInt32(&executed); got != count {
		t.Errorf("executed %d jobs, want %d", got, count)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var current, peak int32
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		pool.Submit(jobFunc(func(ctx context.Context) Result {
			n := atomic.AddInt32(&current, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return &fakeResult{}
		}))
	}
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	if peak > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", peak, workers)
	}
}

// jobFunc adapts a function to the Job interface.
type jobFunc func(ctx context.Context) Result

func (f jobFunc) Execute(ctx context.Context) Result { return f(ctx) }

func TestPoolLargeBatchDoesNotDeadlock(t *testing.T) {
	// Far more jobs than the queue buffers, all submitted before Wait.
	pool := NewPool(context.Background(), 2)
	pool.Start()

	var executed int32
	const count = 100
	done := make(chan []Result)
	go func() {
		for i := 0; i < count; i++ {
			pool.Submit(&fakeJob{executed: &executed})
		}
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		if len(results) != count {
			t.Errorf("got %d results, want %d", len(results), count)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("pool deadlocked on a batch larger than its buffers")
	}
}

func TestPoolReportsJobErrors(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(&fakeJob{shouldErr: true})
	pool.Submit(&fakeJob{})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	failed := 0
	for _, res := range results {
		if res.Err() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("got %d failed results, want 1", failed)
	}
}

func TestPoolSubmitAfterShutdownDoesNotBlock(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		pool.Submit(&fakeJob{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after Shutdown")
	}
}

func TestPoolParentCancellationStopsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 2)
	pool.Start()

	var executed int32
	for i := 0; i < 4; i++ {
		pool.Submit(&fakeJob{duration: 200 * time.Millisecond, executed: &executed})
	}
	cancel()

	results := pool.Wait()
	for _, res := range results {
		if res.Err() != nil && !errors.Is(res.Err(), context.Canceled) {
			t.Errorf("unexpected error %v", res.Err())
		}
	}
}
