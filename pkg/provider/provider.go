package provider

import "strings"

// Provider is the model family a model identifier belongs to.
type Provider int

const (
	Unknown Provider = iota
	Anthropic
	OpenAI
	Zai
	MoonshotAI
	Qwen
	Google
)

var names = map[Provider]string{
	Unknown:    "unknown",
	Anthropic:  "anthropic",
	OpenAI:     "openai",
	Zai:        "z-ai",
	MoonshotAI: "moonshotai",
	Qwen:       "qwen",
	Google:     "google",
}

// prefixes maps lower-cased model id namespaces to providers.
var prefixes = map[string]Provider{
	"anthropic":  Anthropic,
	"openai":     OpenAI,
	"z-ai":       Zai,
	"zai":        Zai,
	"zai-org":    Zai,
	"moonshotai": MoonshotAI,
	"moonshot":   MoonshotAI,
	"qwen":       Qwen,
	"google":     Google,
}

// All lists every known provider, Unknown last.
func All() []Provider {
	return []Provider{Anthropic, OpenAI, Zai, MoonshotAI, Qwen, Google, Unknown}
}

// FromModel derives the provider from the part of model before its first
// "/", case-insensitively. Identifiers without a namespace or with an
// unrecognized one yield Unknown.
func FromModel(model string) Provider {
	prefix, _, found := strings.Cut(model, "/")
	if !found {
		return Unknown
	}
	if p, ok := prefixes[strings.ToLower(strings.TrimSpace(prefix))]; ok {
		return p
	}
	return Unknown
}

// String returns the canonical namespace of the provider.
func (p Provider) String() string {
	if s, ok := names[p]; ok {
		return s
	}
	return names[Unknown]
}
