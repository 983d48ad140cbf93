// Package transport defines the handler interfaces and middleware chain for
// the dialekt HTTP/SSE transport layer.
//
// The transport layer bridges OpenAI chat-completion clients and the
// processing engine. It deserializes incoming requests into the types
// defined in pkg/api, dispatches them for processing, and serializes results
// back to the client either as a JSON body or as a text/event-stream.
//
// # Handler Interfaces
//
// Two handler interfaces define the contract between the transport layer and
// the engine:
//
//   - ChatCompleter handles POST /v1/chat/completions.
//   - ModelLister handles GET /v1/models.
//
// The ResponseWriter interface abstracts streaming and non-streaming output,
// allowing the handler to emit SSE chunks or a complete JSON response without
// knowing the underlying transport protocol.
//
// # Middleware
//
// The middleware chain wraps ChatCompleter with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
//
// # Errors
//
// HTTPStatusFromError renders the typed error taxonomy of pkg/api as HTTP
// status codes. Once a stream has started, errors are written as an SSE
// error chunk followed by [DONE] instead.
package transport
