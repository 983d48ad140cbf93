// Package convert translates between the OpenAI chat-completions shape and
// the canonical backend shape.
//
// Requests lose their tools field on the way out: tool definitions become a
// leading system preamble, earlier tool calls and tool results become message
// content in the dialect of the target model family. Responses go the other
// way: tool-call markup in the completion text is parsed back into
// structured tool calls.
package convert
