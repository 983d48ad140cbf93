package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rhuss/dialekt/pkg/api"
)

// recordingWriter is a minimal ResponseWriter for testing middleware.
type recordingWriter struct {
	chunks   []*api.ChatCompletionChunk
	errs     []*api.APIError
	done     bool
	response *api.ChatCompletionResponse
}

func (w *recordingWriter) WriteChunk(_ context.Context, chunk *api.ChatCompletionChunk) error {
	w.chunks = append(w.chunks, chunk)
	return nil
}

func (w *recordingWriter) WriteError(_ context.Context, apiErr *api.APIError) error {
	w.errs = append(w.errs, apiErr)
	return nil
}

func (w *recordingWriter) WriteDone(_ context.Context) error {
	w.done = true
	return nil
}

func (w *recordingWriter) WriteResponse(_ context.Context, resp *api.ChatCompletionResponse) error {
	w.response = resp
	return nil
}

func (w *recordingWriter) Flush() error { return nil }

var (
	_ ResponseWriter = (*recordingWriter)(nil)
	_ ChatCompleter  = ChatCompleterFunc(nil)
)

func failWith(err error) ChatCompleter {
	return ChatCompleterFunc(func(context.Context, *api.ChatCompletionRequest, ResponseWriter) error {
		return err
	})
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestChainOrder(t *testing.T) {
	var trace []string
	tag := func(name string) Middleware {
		return func(next ChatCompleter) ChatCompleter {
			return ChatCompleterFunc(func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
				trace = append(trace, ">"+name)
				defer func() { trace = append(trace, "<"+name) }()
				return next.CreateChatCompletion(ctx, req, w)
			})
		}
	}
	h := Chain(tag("outer"), tag("inner"))(ChatCompleterFunc(func(context.Context, *api.ChatCompletionRequest, ResponseWriter) error {
		trace = append(trace, "handler")
		return nil
	}))

	if err := h.CreateChatCompletion(context.Background(), &api.ChatCompletionRequest{}, &recordingWriter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ">outer >inner handler <inner <outer"
	if got := strings.Join(trace, " "); got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}

func TestChainEmpty(t *testing.T) {
	w := &recordingWriter{}
	resp := &api.ChatCompletionResponse{ID: "chatcmpl-x"}
	h := Chain()(ChatCompleterFunc(func(ctx context.Context, _ *api.ChatCompletionRequest, w ResponseWriter) error {
		return w.WriteResponse(ctx, resp)
	}))

	if err := h.CreateChatCompletion(context.Background(), &api.ChatCompletionRequest{}, w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.response != resp {
		t.Error("response did not reach the writer")
	}
}

func TestRecoveryHidesPanicValue(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(bufferLogger(&buf))(ChatCompleterFunc(func(context.Context, *api.ChatCompletionRequest, ResponseWriter) error {
		panic("secret backend token leaked")
	}))

	ctx := ContextWithRequestID(context.Background(), "req-panic")
	err := h.CreateChatCompletion(ctx, &api.ChatCompletionRequest{Model: "qwen/qwen3-coder"}, &recordingWriter{})

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if strings.Contains(apiErr.Message, "secret") {
		t.Errorf("panic value reached the client: %q", apiErr.Message)
	}

	logged := buf.String()
	for _, want := range []string{"panic in chat completion", "secret backend token leaked", "request_id=req-panic", "stack="} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %q in:\n%s", want, logged)
		}
	}
}

func TestRecoveryPassesErrorsThrough(t *testing.T) {
	want := api.NewInvalidRequestError("model", "model is required")
	err := Recovery(nil)(failWith(want)).CreateChatCompletion(context.Background(), &api.ChatCompletionRequest{}, &recordingWriter{})
	if err != want {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen []string
	h := RequestID()(ChatCompleterFunc(func(ctx context.Context, _ *api.ChatCompletionRequest, _ ResponseWriter) error {
		seen = append(seen, RequestIDFromContext(ctx))
		return nil
	}))

	h.CreateChatCompletion(context.Background(), &api.ChatCompletionRequest{}, &recordingWriter{})
	h.CreateChatCompletion(context.Background(), &api.ChatCompletionRequest{}, &recordingWriter{})
	h.CreateChatCompletion(ContextWithRequestID(context.Background(), "from-adapter"), &api.ChatCompletionRequest{}, &recordingWriter{})

	for _, id := range seen[:2] {
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("generated id %q is not a UUID", id)
		}
	}
	if seen[0] == seen[1] {
		t.Errorf("generated ids collide: %q", seen[0])
	}
	if seen[2] != "from-adapter" {
		t.Errorf("existing id replaced: got %q", seen[2])
	}
}

func TestValidRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"trace-42", true},
		{uuid.NewString(), true},
		{"a/b:c=d", true},
		{"", false},
		{"has space", false},
		{"line\nbreak", false},
		{"ünicode", false},
		{strings.Repeat("x", maxRequestIDLen), true},
		{strings.Repeat("x", maxRequestIDLen+1), false},
	}
	for _, tt := range tests {
		if got := ValidRequestID(tt.id); got != tt.want {
			t.Errorf("ValidRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantMsg   string
		wantAttrs []string
	}{
		{
			name:      "success",
			wantLevel: "level=INFO",
			wantMsg:   "chat completion served",
		},
		{
			name:      "client error",
			err:       api.NewToolEmbeddingError("tools[0].type", "unsupported tool type"),
			wantLevel: "level=WARN",
			wantMsg:   "chat completion failed",
			wantAttrs: []string{"status=400", "error_type=tool_embedding_error"},
		},
		{
			name:      "upstream failure",
			err:       api.NewTransportError("connection refused"),
			wantLevel: "level=ERROR",
			wantMsg:   "chat completion failed",
			wantAttrs: []string{"status=502", "error_type=transport_error"},
		},
		{
			name:      "plain error",
			err:       fmt.Errorf("boom"),
			wantLevel: "level=ERROR",
			wantMsg:   "chat completion failed",
			wantAttrs: []string{"status=500", "error_type=server_error"},
		},
		{
			name:      "client gone",
			err:       fmt.Errorf("writing chunk: %w", context.Canceled),
			wantLevel: "level=INFO",
			wantMsg:   "chat completion cancelled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := Logging(bufferLogger(&buf))(failWith(tt.err))

			ctx := ContextWithRequestID(context.Background(), "req-log")
			req := &api.ChatCompletionRequest{
				Model:    "moonshotai/kimi-k2",
				Stream:   true,
				Messages: []api.Message{{Role: api.RoleUser, Content: api.NewTextContent("hi")}},
			}
			err := h.CreateChatCompletion(ctx, req, &recordingWriter{})
			if err != tt.err {
				t.Errorf("error changed by logging: %v", err)
			}

			out := buf.String()
			want := append([]string{
				tt.wantLevel, tt.wantMsg,
				"request_id=req-log", "model=moonshotai/kimi-k2", "provider=moonshotai",
				"stream=true", "messages=1", "tools=0",
			}, tt.wantAttrs...)
			for _, w := range want {
				if !strings.Contains(out, w) {
					t.Errorf("log missing %q in:\n%s", w, out)
				}
			}
		})
	}
}
