// Package pool provides a bounded-concurrency worker pool. At most
// maxParallel submitted units run at once; the rest queue behind a semaphore
// channel. Each unit gets only what its closure carries — the pool shares no
// state between units, so a slow or failing unit cannot corrupt its
// neighbours beyond occupying its slot.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the terminal outcome of one unit of work.
type Result struct {
	Output   string
	Err      error
	TimedOut bool
	Started  time.Time
	Finished time.Time
}

// Work is a single unit of work. It receives a context cancelled on pool
// shutdown and returns free-text output or an error.
type Work func(ctx context.Context) (string, error)

// Handle tracks a submitted unit until Wait collects it.
type Handle struct {
	done   chan struct{}
	result Result
}

// Pool runs submitted work with bounded concurrency.
type Pool struct {
	sem    chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New constructs a pool running at most maxParallel units concurrently.
// Values below 1 are clamped to 1.
func New(maxParallel int) *Pool {
	if maxParallel < 1 {
		maxParallel = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    make(chan struct{}, maxParallel),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit enqueues a unit of work and returns immediately. After Shutdown it
// returns an error and no work is started.
func (p *Pool) Submit(w Work) (*Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool is shut down")
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	h := &Handle{done: make(chan struct{})}
	go func() {
		defer p.inflight.Done()
		defer close(h.done)

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-p.ctx.Done():
			h.result = Result{Err: p.ctx.Err()}
			return
		}

		h.result.Started = time.Now()
		out, err := w(p.ctx)
		h.result.Finished = time.Now()
		h.result.Output = out
		h.result.Err = err
	}()
	return h, nil
}

// Wait blocks until the unit completes or the timeout elapses. A timeout of
// zero waits forever. On timeout the unit is reported as a failed, timed-out
// result; the goroutine itself is left to finish in the background (there is
// no mid-step preemption at this layer).
func (p *Pool) Wait(h *Handle, timeout time.Duration) Result {
	if timeout <= 0 {
		<-h.done
		return h.result
	}
	select {
	case <-h.done:
		return h.result
	case <-time.After(timeout):
		return Result{
			Err:      fmt.Errorf("work timed out after %s", timeout),
			TimedOut: true,
		}
	}
}

// Shutdown stops accepting submissions. With wait set it drains in-flight
// work; otherwise running units are cancelled through their context.
func (p *Pool) Shutdown(wait bool) {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	if wait {
		p.inflight.Wait()
	} else {
		p.cancel()
	}
}
