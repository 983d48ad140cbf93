package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestTrackAndRelease(t *testing.T) {
	r := NewInFlightRegistry()

	ctx, release := r.Track(context.Background(), "req-1")
	if n := r.Len(); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
	if ids := r.RequestIDs(); len(ids) != 1 || ids[0] != "req-1" {
		t.Errorf("RequestIDs = %v, want [req-1]", ids)
	}

	release()
	release()

	if n := r.Len(); n != 0 {
		t.Errorf("Len after release = %d, want 0", n)
	}
	if ctx.Err() == nil {
		t.Error("stream context still live after release")
	}
	if cause := context.Cause(ctx); errors.Is(cause, ErrShuttingDown) {
		t.Errorf("released stream reports shutdown cause")
	}
}

func TestTrackReusedRequestID(t *testing.T) {
	r := NewInFlightRegistry()

	_, releaseA := r.Track(context.Background(), "same")
	ctxB, releaseB := r.Track(context.Background(), "same")
	defer releaseB()

	if n := r.Len(); n != 2 {
		t.Fatalf("Len = %d, want 2", n)
	}
	releaseA()
	if n := r.Len(); n != 1 {
		t.Errorf("Len = %d, want 1 after releasing the first", n)
	}
	if ctxB.Err() != nil {
		t.Error("releasing one stream cancelled another with the same request ID")
	}
}

func TestCancelAllUsesShutdownCause(t *testing.T) {
	r := NewInFlightRegistry()

	var ctxs []context.Context
	var releases []func()
	for _, id := range []string{"a", "b", "c"} {
		ctx, release := r.Track(context.Background(), id)
		ctxs = append(ctxs, ctx)
		releases = append(releases, release)
	}

	if n := r.CancelAll(); n != 3 {
		t.Errorf("CancelAll = %d, want 3", n)
	}
	for i, ctx := range ctxs {
		if !errors.Is(context.Cause(ctx), ErrShuttingDown) {
			t.Errorf("stream %d cause = %v, want ErrShuttingDown", i, context.Cause(ctx))
		}
	}
	if n := r.Len(); n != 0 {
		t.Errorf("Len after CancelAll = %d, want 0", n)
	}

	// Releasing after a shutdown is harmless.
	for _, release := range releases {
		release()
	}
	if n := r.CancelAll(); n != 0 {
		t.Errorf("second CancelAll = %d, want 0", n)
	}
}

func TestParentCancellationReachesStream(t *testing.T) {
	r := NewInFlightRegistry()
	parent, cancel := context.WithCancel(context.Background())

	ctx, release := r.Track(parent, "req")
	defer release()

	cancel()
	<-ctx.Done()
	if r.Len() != 1 {
		t.Error("parent cancellation must not unregister the stream by itself")
	}
}

func TestInFlightRegistryConcurrentAccess(t *testing.T) {
	r := NewInFlightRegistry()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release := r.Track(context.Background(), NewRequestID())
			_ = r.Len()
			_ = r.RequestIDs()
			release()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.CancelAll()
	}()
	wg.Wait()

	if n := r.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}
