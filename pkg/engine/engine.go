package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/backend"
	"github.com/rhuss/dialekt/pkg/convert"
	"github.com/rhuss/dialekt/pkg/debug"
	"github.com/rhuss/dialekt/pkg/observability"
	"github.com/rhuss/dialekt/pkg/stream"
	"github.com/rhuss/dialekt/pkg/toolcall"
	"github.com/rhuss/dialekt/pkg/transport"
)

const (
	modeJSON   = "json"
	modeStream = "stream"
)

// Engine orchestrates request processing between the transport layer
// and the completions backend. It implements transport.ChatCompleter and
// transport.ModelLister.
type Engine struct {
	backend    backend.Backend
	dialects   *toolcall.Registry
	transcoder *stream.Transcoder
	cfg        Config
}

// Ensure Engine implements the transport interfaces at compile time.
var (
	_ transport.ChatCompleter = (*Engine)(nil)
	_ transport.ModelLister   = (*Engine)(nil)
)

// New creates a new Engine. The backend must not be nil.
func New(b backend.Backend, cfg Config) (*Engine, error) {
	if b == nil {
		return nil, fmt.Errorf("engine: backend must not be nil")
	}
	if cfg.Validation == (api.ValidationConfig{}) {
		cfg.Validation = api.DefaultValidationConfig()
	}

	streamCfg := cfg.Stream
	onHeartbeat := streamCfg.OnHeartbeat
	streamCfg.OnHeartbeat = func() {
		observability.HeartbeatsTotal.Inc()
		if onHeartbeat != nil {
			onHeartbeat()
		}
	}

	return &Engine{
		backend:    b,
		dialects:   cfg.dialects(),
		transcoder: stream.NewTranscoder(streamCfg),
		cfg:        cfg,
	}, nil
}

// CreateChatCompletion handles a streaming or non-streaming chat completion.
// Errors returned before anything was written are rendered by the transport
// as HTTP errors. On the streaming path, backend failures are reported
// in-stream by the transcoder.
func (e *Engine) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w transport.ResponseWriter) error {
	// Apply default model if the request omits it.
	if req.Model == "" && e.cfg.DefaultModel != "" {
		req.Model = e.cfg.DefaultModel
	}

	mode := modeJSON
	if req.Stream {
		mode = modeStream
	}

	if apiErr := api.ValidateChatRequest(req, e.cfg.Validation); apiErr != nil {
		e.recordOutcome(req.Model, "", mode, apiErr)
		return apiErr
	}

	dialect := e.dialects.ForModel(req.Model)
	debug.Log("convert", "dialect selected", "model", req.Model, "dialect", dialect.Name())

	backendReq, err := convert.Request(req, dialect)
	if err != nil {
		e.recordOutcome(req.Model, dialect.Name(), mode, err)
		return err
	}

	// Responses are read with the declared parameter types.
	complete := e.completeFunc(backendReq, toolcall.WithFunctions(dialect, req.FunctionDefinitions()), req.Model)

	if !req.Stream {
		resp, err := complete(ctx)
		if err != nil {
			e.recordOutcome(req.Model, dialect.Name(), mode, err)
			return err
		}
		e.recordOutcome(req.Model, dialect.Name(), mode, nil)
		return w.WriteResponse(ctx, resp)
	}

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	meta := stream.Meta{
		ID:           api.NewCompletionID(),
		Model:        req.Model,
		Created:      time.Now().Unix(),
		IncludeUsage: req.IncludeUsage(),
	}
	_, err = e.transcoder.Run(ctx, meta, complete, w)
	e.recordOutcome(req.Model, dialect.Name(), mode, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("stream ended with error",
			"completion_id", meta.ID,
			"model", req.Model,
			"error", err.Error(),
		)
	}
	return err
}

// completeFunc returns the backend round trip used by both paths: call the
// backend, record its metrics and convert the result for the client.
func (e *Engine) completeFunc(backendReq *backend.ChatRequest, dialect toolcall.Dialect, model string) stream.CompleteFunc {
	return func(ctx context.Context) (*api.ChatCompletionResponse, error) {
		start := time.Now()
		resp, err := e.backend.Complete(ctx, backendReq)
		elapsed := time.Since(start)
		if err != nil {
			observability.ObserveBackend(model, string(transport.AsAPIError(err).Type), elapsed)
			return nil, err
		}
		observability.ObserveBackend(model, "ok", elapsed)
		recordUsage(model, resp)

		if len(resp.Choices) == 0 {
			return nil, api.NewUpstreamError(502, "backend produced no choices", "")
		}

		out := convert.Response(resp, dialect, model)
		for _, c := range out.Choices {
			if n := len(c.Message.ToolCalls); n > 0 {
				observability.ToolCallsExtractedTotal.WithLabelValues(dialect.Name()).Add(float64(n))
			}
		}
		return out, nil
	}
}

// ListModels returns the backend's model listing in OpenAI format.
func (e *Engine) ListModels(ctx context.Context) (*api.ModelList, error) {
	infos, err := e.backend.ListModels(ctx)
	if err != nil {
		return nil, err
	}

	list := &api.ModelList{Object: api.ObjectList, Data: make([]api.Model, 0, len(infos))}
	for _, m := range infos {
		list.Data = append(list.Data, api.Model{
			ID:      m.ID,
			Object:  api.ObjectModel,
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		})
	}
	return list, nil
}

func recordUsage(model string, resp *backend.ChatResponse) {
	if resp.Usage != nil {
		observability.ObserveTokens(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	if resp.WordCount != nil {
		observability.ObserveWords(model, resp.WordCount.Input, resp.WordCount.Output)
	}
	if resp.Price != nil {
		observability.ObserveCost(model, resp.Price.Currency, resp.Price.Total)
	}
}

func (e *Engine) recordOutcome(model, dialect, mode string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
	default:
		errType := string(transport.AsAPIError(err).Type)
		outcome = "error"
		observability.ErrorsTotal.WithLabelValues(errType).Inc()
	}
	observability.CompletionsTotal.WithLabelValues(model, dialect, mode, outcome).Inc()
}
