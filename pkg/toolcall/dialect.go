package toolcall

import (
	"slices"
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/debug"
	"github.com/rhuss/dialekt/pkg/provider"
)

// Dialect formats and parses one model family's tool-call convention.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Dialect interface {
	// Name returns the dialect identifier (e.g., "qwen", "moonshot").
	Name() string

	// FormatToolCalls renders calls as the markup the model family emits.
	FormatToolCalls(calls []api.ToolCall) string

	// ParseToolCalls recovers tool calls from text. It returns nil when the
	// text contains no recognizable markup.
	ParseToolCalls(text string) []api.ToolCall

	// ExtractToolCalls is ParseToolCalls that also returns the text with the
	// recognized markup removed. When no calls are found the text is
	// returned unchanged.
	ExtractToolCalls(text string) ([]api.ToolCall, string)

	// FormatToolResponse renders the result of a tool call as message text.
	FormatToolResponse(toolCallID, content string) string

	// BuildSystemPreamble renders tool definitions and calling instructions
	// for a leading system message. It returns "" when no preamble is
	// needed.
	BuildSystemPreamble(defs []api.FunctionDefinition, choice *api.ToolChoice) string
}

// base carries the behavior shared by all dialects. The concrete dialects
// embed it and supply formatting plus their scanner preference order.
type base struct {
	name         string
	scanners     []scanner
	instructions string
	params       paramTypes
}

func (b *base) Name() string { return b.name }

func (b *base) ParseToolCalls(text string) []api.ToolCall {
	calls, _ := b.ExtractToolCalls(text)
	return calls
}

func (b *base) ExtractToolCalls(text string) ([]api.ToolCall, string) {
	for _, sc := range b.scanners {
		spans := sc.scan(text, b.params)

		var calls []api.ToolCall
		for _, sp := range spans {
			calls = append(calls, sp.calls...)
		}
		if len(calls) == 0 {
			continue
		}

		debug.Log("dialect", "tool calls extracted",
			"dialect", b.name, "scanner", sc.name, "count", len(calls))
		cleaned := cleanupRemnants(removeSpans(text, spans))
		return finalize(calls), strings.TrimSpace(cleaned)
	}
	return nil, text
}

func (b *base) FormatToolResponse(toolCallID, content string) string {
	return formatToolOutput(toolCallID, content)
}

func (b *base) BuildSystemPreamble(defs []api.FunctionDefinition, choice *api.ToolChoice) string {
	return buildPreamble(defs, choice, b.instructions)
}

// WithFunctions returns d bound to the declared functions. Key/value
// arguments of a declared parameter are then read as its JSON-Schema type
// instead of being inferred from the text.
func WithFunctions(d Dialect, defs []api.FunctionDefinition) Dialect {
	params := paramTypesOf(defs)
	if len(params) == 0 {
		return d
	}
	switch v := d.(type) {
	case *JSON:
		c := *v
		c.params = params
		return &c
	case *Qwen:
		c := *v
		c.params = params
		return &c
	case *Zai:
		c := *v
		c.params = params
		return &c
	case *Moonshot:
		c := *v
		c.params = params
		return &c
	}
	return d
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry maps providers to dialects. It is read-only after construction.
type Registry struct {
	byProvider map[provider.Provider]Dialect
	byName     map[string]Dialect
	names      []string
	fallback   Dialect
}

// NewRegistry returns a registry with the built-in provider table.
func NewRegistry() *Registry {
	jsonDialect := NewJSON()
	qwen := NewQwen()
	zai := NewZai()
	moonshot := NewMoonshot()

	r := &Registry{
		byProvider: map[provider.Provider]Dialect{
			provider.Anthropic:  jsonDialect,
			provider.OpenAI:     jsonDialect,
			provider.Google:     jsonDialect,
			provider.Unknown:    jsonDialect,
			provider.Qwen:       qwen,
			provider.Zai:        zai,
			provider.MoonshotAI: moonshot,
		},
		byName:   make(map[string]Dialect),
		fallback: jsonDialect,
	}
	for _, d := range []Dialect{jsonDialect, qwen, zai, moonshot} {
		r.byName[d.Name()] = d
		r.names = append(r.names, d.Name())
	}
	return r
}

// For returns the dialect of a provider, the json dialect for unmapped ones.
func (r *Registry) For(p provider.Provider) Dialect {
	if d, ok := r.byProvider[p]; ok {
		return d
	}
	return r.fallback
}

// ForModel returns the dialect for a model identifier.
func (r *Registry) ForModel(model string) Dialect {
	return r.For(provider.FromModel(model))
}

// Lookup returns the dialect with the given name.
func (r *Registry) Lookup(name string) (Dialect, bool) {
	d, ok := r.byName[strings.ToLower(name)]
	return d, ok
}

// Names lists the registered dialect names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

var defaultRegistry = NewRegistry()

// For returns the dialect of a provider from the built-in table.
func For(p provider.Provider) Dialect {
	return defaultRegistry.For(p)
}

// ForModel returns the dialect for a model identifier from the built-in table.
func ForModel(model string) Dialect {
	return defaultRegistry.ForModel(model)
}

// Lookup returns a built-in dialect by name.
func Lookup(name string) (Dialect, bool) {
	return defaultRegistry.Lookup(name)
}

// Names lists the built-in dialect names.
func Names() []string {
	return defaultRegistry.Names()
}
