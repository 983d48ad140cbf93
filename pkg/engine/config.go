package engine

import (
	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/stream"
	"github.com/rhuss/dialekt/pkg/toolcall"
)

// Config holds configuration for the core engine.
type Config struct {
	// DefaultModel is used when the request omits the model field.
	// Empty string means a model is always required in the request.
	DefaultModel string

	// Validation bounds the accepted request size.
	Validation api.ValidationConfig

	// Stream configures the SSE transcoder (heartbeat interval, buffer).
	Stream stream.Config

	// Dialects selects the tool-call dialect per model. Nil uses the
	// built-in provider table.
	Dialects *toolcall.Registry
}

func (c Config) dialects() *toolcall.Registry {
	if c.Dialects == nil {
		return toolcall.NewRegistry()
	}
	return c.Dialects
}
