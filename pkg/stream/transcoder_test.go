package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/dialekt/pkg/api"
)

type eventKind int

const (
	kindChunk eventKind = iota
	kindError
	kindDone
)

type recorded struct {
	kind  eventKind
	chunk *api.ChatCompletionChunk
	err   *api.APIError
}

// recordingSink collects everything written to it. heartbeat, when set,
// receives a signal for each heartbeat chunk.
type recordingSink struct {
	mu        sync.Mutex
	events    []recorded
	heartbeat chan struct{}
	failAfter int
}

func (s *recordingSink) record(r recorded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.events) >= s.failAfter {
		return errors.New("client went away")
	}
	s.events = append(s.events, r)
	return nil
}

func (s *recordingSink) WriteChunk(_ context.Context, chunk *api.ChatCompletionChunk) error {
	if err := s.record(recorded{kind: kindChunk, chunk: chunk}); err != nil {
		return err
	}
	if s.heartbeat != nil && isHeartbeat(chunk) {
		select {
		case s.heartbeat <- struct{}{}:
		default:
		}
	}
	return nil
}

func (s *recordingSink) WriteError(_ context.Context, apiErr *api.APIError) error {
	return s.record(recorded{kind: kindError, err: apiErr})
}

func (s *recordingSink) WriteDone(context.Context) error {
	return s.record(recorded{kind: kindDone})
}

func (s *recordingSink) snapshot() []recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recorded(nil), s.events...)
}

func isHeartbeat(c *api.ChatCompletionChunk) bool {
	return len(c.Choices) == 1 && c.Choices[0].Delta.IsEmpty() && c.Choices[0].FinishReason == nil && c.Usage == nil
}

func testMeta() Meta {
	return Meta{ID: "chatcmpl-stream", Model: "qwen/x", Created: 1700000001}
}

func TestRunSuccess(t *testing.T) {
	sink := &recordingSink{}
	resp := textResponse(textChoice(0, "Hello world", "stop"))
	resp.ID = "other-id"

	tr := NewTranscoder(Config{HeartbeatInterval: time.Hour})
	got, err := tr.Run(context.Background(), testMeta(), func(context.Context) (*api.ChatCompletionResponse, error) {
		return resp, nil
	}, sink)
	require.NoError(t, err)
	assert.Same(t, resp, got)

	events := sink.snapshot()
	// initial role, decomposition (role, 2 fragments, finish), done
	require.Len(t, events, 6)
	assert.Equal(t, api.RoleAssistant, events[0].chunk.Choices[0].Delta.Role)
	assert.Equal(t, "Hello ", *events[2].chunk.Choices[0].Delta.Content)
	assert.Equal(t, "world", *events[3].chunk.Choices[0].Delta.Content)
	assert.Equal(t, "stop", *events[4].chunk.Choices[0].FinishReason)
	assert.Equal(t, kindDone, events[5].kind)

	for _, e := range events[:5] {
		assert.Equal(t, "chatcmpl-stream", e.chunk.ID, "chunks carry the stream id")
		assert.Equal(t, "qwen/x", e.chunk.Model)
		assert.Equal(t, int64(1700000001), e.chunk.Created)
	}
}

func TestRunHeartbeatsWhileBackendRuns(t *testing.T) {
	sink := &recordingSink{heartbeat: make(chan struct{}, 1)}
	var beats atomic.Int32

	tr := NewTranscoder(Config{
		HeartbeatInterval: 5 * time.Millisecond,
		OnHeartbeat:       func() { beats.Add(1) },
	})
	_, err := tr.Run(context.Background(), testMeta(), func(ctx context.Context) (*api.ChatCompletionResponse, error) {
		select {
		case <-sink.heartbeat:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return textResponse(textChoice(0, "done", "stop")), nil
	}, sink)
	require.NoError(t, err)

	events := sink.snapshot()
	require.Equal(t, kindDone, events[len(events)-1].kind, "[DONE] is last")

	heartbeats := 0
	decomposing := false
	for _, e := range events[1 : len(events)-1] {
		require.Equal(t, kindChunk, e.kind)
		if isHeartbeat(e.chunk) {
			assert.False(t, decomposing, "heartbeat after decomposition started")
			heartbeats++
			continue
		}
		decomposing = true
	}
	assert.GreaterOrEqual(t, heartbeats, 1)
	assert.Equal(t, int32(heartbeats), beats.Load())
}

func TestRunBackendError(t *testing.T) {
	sink := &recordingSink{}
	backendErr := api.NewRateLimitedError("slow down", 3*time.Second)

	tr := NewTranscoder(Config{HeartbeatInterval: time.Hour})
	got, err := tr.Run(context.Background(), testMeta(), func(context.Context) (*api.ChatCompletionResponse, error) {
		return nil, backendErr
	}, sink)

	assert.Nil(t, got)
	assert.Equal(t, backendErr, err)

	events := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, kindChunk, events[0].kind)
	assert.Equal(t, kindError, events[1].kind)
	assert.Equal(t, api.ErrorTypeRateLimited, events[1].err.Type)
	assert.Equal(t, kindDone, events[2].kind)
}

func TestRunPlainErrorBecomesServerError(t *testing.T) {
	sink := &recordingSink{}

	_, err := NewTranscoder(Config{}).Run(context.Background(), testMeta(), func(context.Context) (*api.ChatCompletionResponse, error) {
		return nil, errors.New("boom")
	}, sink)
	require.Error(t, err)

	events := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, api.ErrorTypeServerError, events[1].err.Type)
	assert.Equal(t, kindDone, events[2].kind)
}

func TestRunIncludeUsage(t *testing.T) {
	sink := &recordingSink{}
	resp := textResponse(textChoice(0, "ok", "stop"))
	resp.Usage = &api.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}

	meta := testMeta()
	meta.IncludeUsage = true
	_, err := NewTranscoder(Config{HeartbeatInterval: time.Hour}).Run(context.Background(), meta,
		func(context.Context) (*api.ChatCompletionResponse, error) { return resp, nil }, sink)
	require.NoError(t, err)

	events := sink.snapshot()
	usage := events[len(events)-2].chunk
	require.NotNil(t, usage.Usage)
	assert.Equal(t, 4, usage.Usage.TotalTokens)
	assert.Empty(t, usage.Choices)
	assert.NotNil(t, usage.Choices, "choices encodes as []")
	assert.Equal(t, kindDone, events[len(events)-1].kind)
}

func TestRunSinkFailureStopsProducer(t *testing.T) {
	sink := &recordingSink{failAfter: 1}
	backendCancelled := make(chan struct{})

	tr := NewTranscoder(Config{HeartbeatInterval: time.Millisecond, BufferSize: 1})
	_, err := tr.Run(context.Background(), testMeta(), func(ctx context.Context) (*api.ChatCompletionResponse, error) {
		<-ctx.Done()
		close(backendCancelled)
		return nil, ctx.Err()
	}, sink)
	require.Error(t, err)

	select {
	case <-backendCancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("backend call was not cancelled")
	}
	assert.Len(t, sink.snapshot(), 1)
}

func TestRunClientCancellation(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := NewTranscoder(Config{HeartbeatInterval: time.Hour}).Run(ctx, testMeta(),
			func(ctx context.Context) (*api.ChatCompletionResponse, error) {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			}, sink)
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	for _, e := range sink.snapshot() {
		assert.NotEqual(t, kindDone, e.kind, "no [DONE] on a cancelled stream")
	}
}
