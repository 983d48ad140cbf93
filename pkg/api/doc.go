// Package api defines the client-facing protocol types for the dialekt gateway.
//
// The types mirror the OpenAI Chat Completions wire format so that existing
// client libraries work unchanged: requests, messages with string-or-array
// content, tool calls, complete responses, and streaming chunks.
//
// The package performs no I/O. Besides the wire types it provides the content
// model (normalizing the two content encodings), the error taxonomy shared by
// every layer, ID generation, and request validation.
//
// Core types:
//   - [ChatCompletionRequest]: inbound request
//   - [Message] and [Content]: role-tagged messages with dual content encoding
//   - [ToolCall] and [Arguments]: tool calls whose arguments accept a JSON value
//     or a JSON-encoded string and always serialize as a string
//   - [ChatCompletionResponse] and [ChatCompletionChunk]: outbound shapes
//   - [APIError]: typed error with a stable [ErrorType]
package api
