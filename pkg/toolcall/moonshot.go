package toolcall

import (
	"fmt"
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
)

const (
	moonshotSectionBegin = "<|tool_calls_section_begin|>"
	moonshotSectionEnd   = "<|tool_calls_section_end|>"
	moonshotCallBegin    = "<|tool_call_begin|>"
	moonshotArgBegin     = "<|tool_call_argument_begin|>"
	moonshotCallEnd      = "<|tool_call_end|>"
)

const moonshotInstructions = `To call functions, emit a single tool call section. Inside it, write one entry per call with the function name, a colon and the zero-based position of the call, followed by the arguments as a JSON object:
<|tool_calls_section_begin|><|tool_call_begin|>{function-name}:{index}<|tool_call_argument_begin|>{args-json-object}<|tool_call_end|><|tool_calls_section_end|>`

// Moonshot uses the token-delimited section format of the Kimi models.
type Moonshot struct {
	base
}

// NewMoonshot returns the moonshot dialect.
func NewMoonshot() *Moonshot {
	return &Moonshot{base: base{
		name:         "moonshot",
		scanners:     []scanner{moonshotScanner, jsonScanner},
		instructions: moonshotInstructions,
	}}
}

// FormatToolCalls renders all calls in one section, each tagged with its
// position.
func (d *Moonshot) FormatToolCalls(calls []api.ToolCall) string {
	if len(calls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(moonshotSectionBegin)
	for i, tc := range calls {
		fmt.Fprintf(&b, "%s%s:%d%s%s%s",
			moonshotCallBegin, displayName(tc), i, moonshotArgBegin,
			tc.Function.Arguments.String(), moonshotCallEnd)
	}
	b.WriteString(moonshotSectionEnd)
	return b.String()
}
