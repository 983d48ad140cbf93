// Package engine implements the core orchestration logic for dialekt.
// The Engine struct implements transport.ChatCompleter, bridging incoming
// OpenAI chat-completion requests to a canonical completions backend. It
// validates requests, selects the tool-call dialect of the requested model,
// converts in both directions, and either writes a complete response or
// hands the result to the stream transcoder.
package engine
