package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/debug"
	"github.com/rhuss/dialekt/pkg/transport"
)

// Adapter serves the OpenAI chat-completions API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	completer transport.ChatCompleter
	models    transport.ModelLister // nil disables GET /v1/models
	inflight  *transport.InFlightRegistry
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr            string
	MaxBodySize     int64
	ShutdownTimeout int // seconds
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxBodySize:     10 << 20, // 10 MB
		ShutdownTimeout: 30,
	}
}

// NewAdapter creates an HTTP adapter with the given ChatCompleter and options.
// The ModelLister is optional; when nil, GET /v1/models is not routed.
// Middleware is applied to the ChatCompleter in the given order.
func NewAdapter(completer transport.ChatCompleter, models transport.ModelLister, cfg Config, middlewares ...transport.Middleware) *Adapter {
	// Apply middleware chain to the completer.
	if len(middlewares) > 0 {
		completer = transport.Chain(middlewares...)(completer)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		completer: completer,
		models:    models,
		inflight:  transport.NewInFlightRegistry(),
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletion)
	if models != nil {
		a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	}
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Handle registers an additional handler on the adapter's mux, e.g. the
// metrics endpoint.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Route returns the pattern that serves r, or "" when no route matches.
func (a *Adapter) Route(r *http.Request) string {
	_, pattern := a.mux.Handler(r)
	return pattern
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// CancelStreams ends every in-flight stream. It returns the number of
// streams cancelled.
func (a *Adapter) CancelStreams() int {
	return a.inflight.CancelAll()
}

// httpRequestIDMiddleware stores the request ID in the request context and
// echoes it as X-Request-ID. A well-formed client ID is kept, anything else
// is replaced by a generated one.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !transport.ValidRequestID(id) {
			id = transport.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// handleChatCompletion handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	// Validate Content-Type.
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	// Limit body size.
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	// Decode request.
	var req api.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteAPIError(w, api.NewSerializationError("invalid JSON: "+err.Error()))
		return
	}

	if req.Stream {
		a.handleStreaming(w, r, &req)
		return
	}

	// Non-streaming: create ResponseWriter and dispatch.
	rw := newSSEResponseWriter(w)
	if err := a.completer.CreateChatCompletion(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleStreaming handles stream: true. The stream is tracked in the
// in-flight registry until the completer returns.
func (a *Adapter) handleStreaming(w http.ResponseWriter, r *http.Request, req *api.ChatCompletionRequest) {
	ctx, release := a.inflight.Track(r.Context(), transport.RequestIDFromContext(r.Context()))
	defer release()

	rw := newSSEResponseWriter(w)
	if err := a.completer.CreateChatCompletion(ctx, req, rw); err != nil {
		if errors.Is(context.Cause(ctx), transport.ErrShuttingDown) {
			debug.Log("transport", "stream ended by shutdown", "request_id", transport.RequestIDFromContext(ctx))
		}
		a.writeHandlerError(w, rw, err)
	}
}

// handleListModels handles GET /v1/models.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	list, err := a.models.ListModels(r.Context())
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// writeHandlerError writes an error returned by the handler. If streaming
// has already started, the error becomes an SSE error event followed by
// [DONE], unless the stream was already completed. Otherwise it writes a
// standard JSON error response.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	if rw.hasStartedStreaming() {
		if rw.isCompleted() || errors.Is(err, context.Canceled) {
			return
		}
		ctx := context.Background()
		if rw.WriteError(ctx, transport.AsAPIError(err)) == nil {
			rw.WriteDone(ctx)
		}
		return
	}

	if rw.isCompleted() {
		return
	}

	// The client is gone.
	if errors.Is(err, context.Canceled) {
		return
	}

	// No streaming started; return JSON error.
	transport.WriteAPIError(w, transport.AsAPIError(err))
}
