package toolcall

import (
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
)

const qwenInstructions = `For each function call, return a json object with function name and arguments within <tool_call></tool_call> XML tags:
<tool_call>
{"name": <function-name>, "arguments": <args-json-object>}
</tool_call>`

// Qwen wraps each call's {name, arguments} object in its own <tool_call> tag.
type Qwen struct {
	base
}

// NewQwen returns the qwen dialect.
func NewQwen() *Qwen {
	return &Qwen{base: base{
		name:         "qwen",
		scanners:     []scanner{taggedScanner, jsonScanner, moonshotScanner},
		instructions: qwenInstructions,
	}}
}

// FormatToolCalls renders one <tool_call> block per call.
func (d *Qwen) FormatToolCalls(calls []api.ToolCall) string {
	blocks := make([]string, 0, len(calls))
	for _, tc := range calls {
		blocks = append(blocks, "<tool_call>\n"+marshalText(toWireCall(tc))+"\n</tool_call>")
	}
	return strings.Join(blocks, "\n")
}
