package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitReturnsOutput(t *testing.T) {
	p := New(2)
	defer p.Shutdown(true)

	h, err := p.Submit(func(ctx context.Context) (string, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := p.Wait(h, 0)
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Output != "done" {
		t.Errorf("expected output 'done', got %q", r.Output)
	}
}

func TestBoundedConcurrency(t *testing.T) {
	p := New(2)
	defer p.Shutdown(true)

	var active, peak int64
	var mu sync.Mutex
	block := make(chan struct{})

	var handles []*Handle
	for i := 0; i < 6; i++ {
		h, err := p.Submit(func(ctx context.Context) (string, error) {
			n := atomic.AddInt64(&active, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			<-block
			atomic.AddInt64(&active, -1)
			return "", nil
		})
		if err != nil {
			t.Fatal(err)
		}
		handles = append(handles, h)
	}

	time.Sleep(50 * time.Millisecond)
	close(block)
	for _, h := range handles {
		p.Wait(h, 0)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("expected at most 2 concurrent units, saw %d", peak)
	}
}

func TestWaitTimeoutReportsTimedOut(t *testing.T) {
	p := New(1)
	defer p.Shutdown(false)

	h, _ := p.Submit(func(ctx context.Context) (string, error) {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return "", nil
	})
	r := p.Wait(h, 50*time.Millisecond)
	if !r.TimedOut {
		t.Fatal("expected timed-out result")
	}
	if r.Err == nil {
		t.Fatal("timed-out result should carry an error")
	}
}

func TestErrorsPropagateWithoutAffectingOthers(t *testing.T) {
	p := New(2)
	defer p.Shutdown(true)

	bad, _ := p.Submit(func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})
	good, _ := p.Submit(func(ctx context.Context) (string, error) {
		return "fine", nil
	})

	if r := p.Wait(bad, 0); r.Err == nil {
		t.Error("expected error from failing unit")
	}
	if r := p.Wait(good, 0); r.Err != nil || r.Output != "fine" {
		t.Errorf("failing unit corrupted its neighbour: %+v", r)
	}
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := New(1)
	p.Shutdown(true)
	if _, err := p.Submit(func(ctx context.Context) (string, error) { return "", nil }); err == nil {
		t.Fatal("expected error submitting to a shut-down pool")
	}
}

func TestShutdownWaitDrains(t *testing.T) {
	p := New(2)
	var done int64
	for i := 0; i < 4; i++ {
		p.Submit(func(ctx context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&done, 1)
			return "", nil
		})
	}
	p.Shutdown(true)
	if n := atomic.LoadInt64(&done); n != 4 {
		t.Errorf("expected 4 drained units, got %d", n)
	}
}

func TestMaxParallelClampedToOne(t *testing.T) {
	p := New(0)
	defer p.Shutdown(true)
	h, err := p.Submit(func(ctx context.Context) (string, error) { return "ok", nil })
	if err != nil {
		t.Fatal(err)
	}
	if r := p.Wait(h, 0); r.Output != "ok" {
		t.Errorf("expected clamped pool to still run work, got %+v", r)
	}
}
