package toolcall

import "github.com/rhuss/dialekt/pkg/api"

const jsonInstructions = `To call functions, respond with a JSON array of objects, each with the function name and its arguments, wrapped in <tool_calls></tool_calls> tags:
<tool_calls>
[{"name": <function-name>, "arguments": <args-json-object>}]
</tool_calls>`

// JSON is the default dialect: a JSON array of {name, arguments} objects in
// a <tool_calls> envelope. It serves Anthropic, OpenAI, Google and unknown
// model families.
type JSON struct {
	base
}

// NewJSON returns the json dialect.
func NewJSON() *JSON {
	return &JSON{base: base{
		name:         "json",
		scanners:     []scanner{jsonScanner, moonshotScanner},
		instructions: jsonInstructions,
	}}
}

// FormatToolCalls renders calls as one <tool_calls> envelope.
func (d *JSON) FormatToolCalls(calls []api.ToolCall) string {
	if len(calls) == 0 {
		return ""
	}
	wire := make([]wireCall, 0, len(calls))
	for _, tc := range calls {
		wire = append(wire, toWireCall(tc))
	}
	return "<tool_calls>\n" + marshalText(wire) + "\n</tool_calls>"
}
