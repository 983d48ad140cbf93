package toolcall

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
)

// wireCall is the {name, arguments} object used by the json and qwen forms.
type wireCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func toWireCall(tc api.ToolCall) wireCall {
	return wireCall{
		Name:      displayName(tc),
		Arguments: json.RawMessage(tc.Function.Arguments.String()),
	}
}

// displayName returns the function name, or the call id when it is empty.
func displayName(tc api.ToolCall) string {
	if tc.Function.Name != "" {
		return tc.Function.Name
	}
	return tc.ID
}

// marshalText encodes v as compact JSON without HTML escaping, so that
// markup characters inside arguments stay readable to the model.
func marshalText(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

type toolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
}

// formatToolOutput renders a tool result envelope. The form is the same for
// every dialect since no model family has a trained convention for it.
func formatToolOutput(toolCallID, content string) string {
	return "<tool_output>" + marshalText(toolOutput{ToolCallID: toolCallID, Content: content}) + "</tool_output>"
}

// EnvelopeToolCalls wraps dialect markup in a <tool_calls> envelope unless
// it already is one.
func EnvelopeToolCalls(markup string) string {
	trimmed := strings.TrimSpace(markup)
	if strings.HasPrefix(trimmed, "<tool_calls>") && strings.HasSuffix(trimmed, "</tool_calls>") {
		return trimmed
	}
	return "<tool_calls>\n" + trimmed + "\n</tool_calls>"
}
