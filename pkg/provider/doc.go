// Package provider identifies the model family behind a model identifier.
//
// Model identifiers are namespaced by family ("qwen/qwen3-coder",
// "moonshotai/kimi-k2"). The family decides which tool-call dialect the
// gateway speaks with the backend, see package toolcall.
package provider
