// Package stream synthesizes an OpenAI chat-completion SSE stream from a
// single non-streaming backend completion.
//
// The Decomposer turns one complete response into the delta chunks a
// streaming client expects. The Transcoder runs the backend call, keeps the
// connection alive with heartbeat chunks while it is outstanding, and hands
// the decomposition to a Sink through a bounded channel.
package stream
