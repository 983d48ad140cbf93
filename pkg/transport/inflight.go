package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrShuttingDown is the cancellation cause of streams ended by CancelAll.
var ErrShuttingDown = errors.New("gateway shutting down")

// InFlightRegistry tracks open streaming completions so a stopping server
// can end them instead of waiting until their heartbeats stop. Entries are
// keyed internally; request IDs are only carried along, since clients may
// reuse them.
type InFlightRegistry struct {
	mu      sync.Mutex
	next    uint64
	streams map[uint64]inFlightStream
}

type inFlightStream struct {
	requestID string
	cancel    context.CancelCauseFunc
}

// NewInFlightRegistry creates an empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{streams: make(map[uint64]inFlightStream)}
}

// Track registers a stream and returns the context it must run under. The
// release function unregisters the stream and cancels that context; call it
// when the stream ends.
func (r *InFlightRegistry) Track(parent context.Context, requestID string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)

	r.mu.Lock()
	key := r.next
	r.next++
	r.streams[key] = inFlightStream{requestID: requestID, cancel: cancel}
	r.mu.Unlock()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.streams, key)
			r.mu.Unlock()
			cancel(context.Canceled)
		})
	}
}

// CancelAll cancels every tracked stream with ErrShuttingDown and returns
// how many there were.
func (r *InFlightRegistry) CancelAll() int {
	r.mu.Lock()
	streams := r.streams
	r.streams = make(map[uint64]inFlightStream)
	r.mu.Unlock()

	for _, s := range streams {
		s.cancel(ErrShuttingDown)
	}
	return len(streams)
}

// RequestIDs lists the request IDs of the tracked streams in no particular
// order.
func (r *InFlightRegistry) RequestIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.streams))
	for _, s := range r.streams {
		ids = append(ids, s.requestID)
	}
	return ids
}

// Len returns the number of tracked streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}
