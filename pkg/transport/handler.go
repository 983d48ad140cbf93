package transport

import (
	"context"

	"github.com/rhuss/dialekt/pkg/api"
)

// ChatCompleter handles the create-chat-completion operation. The
// implementation receives a request and writes the result (SSE chunks or a
// complete response) to the ResponseWriter. An error returned before
// anything was written is rendered as an HTTP error response.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error
}

// ChatCompleterFunc is an adapter that allows using an ordinary function
// as a ChatCompleter.
type ChatCompleterFunc func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error

// CreateChatCompletion calls f(ctx, req, w).
func (f ChatCompleterFunc) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// ModelLister lists the models reachable through the gateway.
type ModelLister interface {
	ListModels(ctx context.Context) (*api.ModelList, error)
}

// ResponseWriter abstracts streaming and non-streaming output for the handler.
// The transport layer creates a ResponseWriter for each request and provides
// it to the handler.
//
// WriteResponse and the streaming methods are mutually exclusive on a single
// writer instance. Once WriteDone has been called every further write
// returns an error.
type ResponseWriter interface {
	// WriteChunk sends one chat.completion.chunk as an SSE data event.
	WriteChunk(ctx context.Context, chunk *api.ChatCompletionChunk) error

	// WriteError sends an error as an SSE data event. It is used once a
	// stream has started and an HTTP error status can no longer be sent.
	WriteError(ctx context.Context, apiErr *api.APIError) error

	// WriteDone sends the [DONE] sentinel and completes the stream.
	WriteDone(ctx context.Context) error

	// WriteResponse sends a complete non-streaming response. Returns an error
	// if streaming has already started on this writer.
	WriteResponse(ctx context.Context, resp *api.ChatCompletionResponse) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
