package stream

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/debug"
)

const (
	// DefaultHeartbeatInterval is used when Config.HeartbeatInterval is zero.
	DefaultHeartbeatInterval = 5 * time.Second

	// DefaultBufferSize is used when Config.BufferSize is zero.
	DefaultBufferSize = 8
)

// Sink receives the synthesized stream. WriteDone is always the last call
// on a stream that was not cancelled.
type Sink interface {
	WriteChunk(ctx context.Context, chunk *api.ChatCompletionChunk) error
	WriteError(ctx context.Context, apiErr *api.APIError) error
	WriteDone(ctx context.Context) error
}

// CompleteFunc performs the backend call and returns the converted response.
type CompleteFunc func(ctx context.Context) (*api.ChatCompletionResponse, error)

// Meta identifies the stream. Every chunk carries the same id, model and
// created timestamp, including those sent before the backend answered.
type Meta struct {
	ID           string
	Model        string
	Created      int64
	IncludeUsage bool
}

// Config controls the transcoder.
type Config struct {
	// HeartbeatInterval is the spacing of empty-delta chunks while the
	// backend call is outstanding. Default: 5s.
	HeartbeatInterval time.Duration

	// BufferSize is the capacity of the channel between the producer and
	// the sink writer. Default: 8.
	BufferSize int

	// OnHeartbeat, when set, is called for every heartbeat sent.
	OnHeartbeat func()
}

// Transcoder turns one backend call into an SSE chunk sequence.
type Transcoder struct {
	cfg Config
}

// NewTranscoder creates a Transcoder, applying defaults to zero fields.
func NewTranscoder(cfg Config) *Transcoder {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	return &Transcoder{cfg: cfg}
}

// item is one unit handed from the producer to the writer.
type item struct {
	chunk  *api.ChatCompletionChunk
	apiErr *api.APIError
}

// Run streams one completion to sink. The sequence is: a role chunk, a
// heartbeat every interval until complete returns, then the decomposed
// response (or a single error chunk), an optional usage chunk, and finally
// WriteDone.
//
// Run returns the completed response when the backend succeeded. A backend
// failure is rendered into the stream and also returned. A sink failure or
// cancellation of ctx stops both sides and is returned.
func (t *Transcoder) Run(ctx context.Context, meta Meta, complete CompleteFunc, sink Sink) (*api.ChatCompletionResponse, error) {
	g, gctx := errgroup.WithContext(ctx)
	items := make(chan item, t.cfg.BufferSize)

	var res outcome
	g.Go(func() error {
		defer close(items)
		return t.produce(gctx, meta, complete, items, &res)
	})
	g.Go(func() error {
		return write(gctx, items, sink)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res.resp, res.err
}

// outcome is the result of the backend call.
type outcome struct {
	resp *api.ChatCompletionResponse
	err  error
}

// produce emits chunks into items and records the backend outcome in res.
// It returns an error only when the stream itself must stop.
func (t *Transcoder) produce(ctx context.Context, meta Meta, complete CompleteFunc, items chan<- item, res *outcome) error {
	if err := send(ctx, items, item{chunk: roleChunk(meta)}); err != nil {
		return err
	}

	result := make(chan outcome, 1)
	go func() {
		resp, err := complete(ctx)
		result <- outcome{resp: resp, err: err}
	}()

	ticker := time.NewTicker(t.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := send(ctx, items, item{chunk: heartbeatChunk(meta)}); err != nil {
				return err
			}
			if t.cfg.OnHeartbeat != nil {
				t.cfg.OnHeartbeat()
			}
			debug.Log("stream", "heartbeat", "id", meta.ID)

		case out := <-result:
			ticker.Stop()
			if out.err != nil {
				debug.Log("stream", "backend failed", "id", meta.ID, "error", out.err)
				if err := send(ctx, items, item{apiErr: asAPIError(out.err)}); err != nil {
					return err
				}
				*res = out
				return nil
			}
			if err := t.emitResponse(ctx, meta, out.resp, items); err != nil {
				return err
			}
			*res = out
			return nil
		}
	}
}

func (t *Transcoder) emitResponse(ctx context.Context, meta Meta, resp *api.ChatCompletionResponse, items chan<- item) error {
	stamped := *resp
	stamped.ID, stamped.Model, stamped.Created = meta.ID, meta.Model, meta.Created

	dec := NewDecomposer(&stamped)
	chunks := 0
	for {
		chunk, ok := dec.Next()
		if !ok {
			break
		}
		if err := send(ctx, items, item{chunk: chunk}); err != nil {
			return err
		}
		chunks++
	}

	if meta.IncludeUsage && resp.Usage != nil {
		usage := *resp.Usage
		if err := send(ctx, items, item{chunk: usageChunk(meta, &usage)}); err != nil {
			return err
		}
	}
	debug.Log("stream", "decomposed", "id", meta.ID, "choices", len(resp.Choices), "chunks", chunks)
	return nil
}

// write drains items into sink and finishes with WriteDone.
func write(ctx context.Context, items <-chan item, sink Sink) error {
	for it := range items {
		var err error
		if it.apiErr != nil {
			err = sink.WriteError(ctx, it.apiErr)
		} else {
			err = sink.WriteChunk(ctx, it.chunk)
		}
		if err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return sink.WriteDone(ctx)
}

// send blocks until the writer accepts it or ctx is cancelled.
func send(ctx context.Context, items chan<- item, it item) error {
	select {
	case items <- it:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func asAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError(err.Error())
}

func newChunk(meta Meta, choices []api.ChunkChoice) *api.ChatCompletionChunk {
	return &api.ChatCompletionChunk{
		ID:      meta.ID,
		Object:  api.ObjectChatCompletionChunk,
		Created: meta.Created,
		Model:   meta.Model,
		Choices: choices,
	}
}

func roleChunk(meta Meta) *api.ChatCompletionChunk {
	return newChunk(meta, []api.ChunkChoice{{Index: 0, Delta: api.Delta{Role: api.RoleAssistant}}})
}

func heartbeatChunk(meta Meta) *api.ChatCompletionChunk {
	return newChunk(meta, []api.ChunkChoice{{Index: 0}})
}

func usageChunk(meta Meta, usage *api.Usage) *api.ChatCompletionChunk {
	chunk := newChunk(meta, []api.ChunkChoice{})
	chunk.Usage = usage
	return chunk
}
