package manager

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPendingCompletesOnce(t *testing.T) {
	p := newPending[int]()
	if p.Ready() {
		t.Fatalf("new pending should not be ready")
	}
	if !p.complete(1, nil) {
		t.Fatalf("first completion should win")
	}
	if p.complete(2, errors.New("late")) {
		t.Fatalf("second completion should be ignored")
	}
	v, err := p.Get()
	if v != 1 || err != nil {
		t.Fatalf("Get = %d, %v", v, err)
	}
	select {
	case <-p.Done():
	default:
		t.Fatalf("Done should be closed")
	}
}

func TestPendingWaitHonorsContext(t *testing.T) {
	p := newPending[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	go p.complete("late", nil)
	if v, err := p.Wait(testCtx(t)); err != nil || v != "late" {
		t.Fatalf("Wait = %q, %v", v, err)
	}
}

func TestFailedPending(t *testing.T) {
	p := failedPending[int](ErrQueueFull)
	if !p.Ready() {
		t.Fatalf("failed pending should be ready")
	}
	if _, err := p.Get(); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
