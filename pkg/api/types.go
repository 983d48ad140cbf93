package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Roles, objects, finish reasons
// ---------------------------------------------------------------------------

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	ObjectList                = "list"
	ObjectModel               = "model"
)

const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// ToolTypeFunction is the only supported tool kind.
const ToolTypeFunction = "function"

// ---------------------------------------------------------------------------
// Tool calls
// ---------------------------------------------------------------------------

// Arguments holds tool-call arguments as a compact JSON value.
//
// On input both a JSON value and a JSON-encoded string are accepted. A string
// that does not itself contain valid JSON is kept as a JSON string value. On
// output arguments are always emitted as a JSON-encoded string, which is what
// OpenAI clients expect.
type Arguments json.RawMessage

// NewArguments marshals v into Arguments.
func NewArguments(v any) (Arguments, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Arguments(data), nil
}

// RawArguments interprets s the way a JSON-encoded string on the wire is
// interpreted: valid JSON is used as is, anything else becomes a string value.
func RawArguments(s string) Arguments {
	trimmed := bytes.TrimSpace([]byte(s))
	if len(trimmed) == 0 {
		return Arguments("{}")
	}
	if json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return Arguments(buf.Bytes())
		}
	}
	data, _ := json.Marshal(s)
	return Arguments(data)
}

// String returns the JSON text of the arguments, "{}" when empty.
func (a Arguments) String() string {
	if len(a) == 0 {
		return "{}"
	}
	return string(a)
}

// Value decodes the arguments into a generic Go value.
func (a Arguments) Value() (any, error) {
	var v any
	if err := json.Unmarshal([]byte(a.String()), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Equal reports whether two argument values are semantically equal, ignoring
// key order and whitespace.
func (a Arguments) Equal(b Arguments) bool {
	va, errA := a.Value()
	vb, errB := b.Value()
	if errA != nil || errB != nil {
		return a.String() == b.String()
	}
	ja, _ := json.Marshal(va)
	jb, _ := json.Marshal(vb)
	return bytes.Equal(ja, jb)
}

// MarshalJSON always emits the string form.
func (a Arguments) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a JSON value or a JSON-encoded string.
func (a *Arguments) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Arguments("{}")
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("arguments: %w", err)
		}
		*a = RawArguments(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	*a = Arguments(buf.Bytes())
	return nil
}

// FunctionCall is the function part of a tool call.
type FunctionCall struct {
	Name      string    `json:"name"`
	Arguments Arguments `json:"arguments"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// ---------------------------------------------------------------------------
// Tool definitions and tool_choice
// ---------------------------------------------------------------------------

// FunctionDefinition describes a function the model may call.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Tool is a declared tool. Only Type "function" is supported.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// ToolChoice represents a tool selection strategy. It can be a simple string
// value ("auto", "required", "none") or a structured function selection.
type ToolChoice struct {
	String   string              `json:"-"`
	Function *ToolChoiceFunction `json:"-"`
}

// ToolChoiceFunction specifies a particular function to call by name.
type ToolChoiceFunction struct {
	Type     string           `json:"type"`
	Function ToolChoiceTarget `json:"function"`
}

// ToolChoiceTarget names the forced function.
type ToolChoiceTarget struct {
	Name string `json:"name"`
}

var (
	// ToolChoiceAuto lets the model decide whether to use a tool.
	ToolChoiceAuto = ToolChoice{String: "auto"}
	// ToolChoiceRequired forces the model to use a tool.
	ToolChoiceRequired = ToolChoice{String: "required"}
	// ToolChoiceNone prevents the model from using any tool.
	ToolChoiceNone = ToolChoice{String: "none"}
)

// NewToolChoiceFunction creates a ToolChoice that selects a specific function by name.
func NewToolChoiceFunction(name string) ToolChoice {
	return ToolChoice{
		Function: &ToolChoiceFunction{
			Type:     ToolTypeFunction,
			Function: ToolChoiceTarget{Name: name},
		},
	}
}

// FunctionName returns the forced function name, or "" for string choices.
func (tc *ToolChoice) FunctionName() string {
	if tc == nil || tc.Function == nil {
		return ""
	}
	return tc.Function.Function.Name
}

// IsNone reports whether tool use is disabled.
func (tc *ToolChoice) IsNone() bool {
	return tc != nil && tc.Function == nil && tc.String == "none"
}

// IsRequired reports whether the model must call a tool, either any tool or
// a named function.
func (tc *ToolChoice) IsRequired() bool {
	if tc == nil {
		return false
	}
	return tc.String == "required" || tc.Function != nil
}

// MarshalJSON serializes ToolChoice as either a JSON string or a JSON object.
func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	if tc.String != "" {
		return json.Marshal(tc.String)
	}
	if tc.Function != nil {
		return json.Marshal(tc.Function)
	}
	return nil, fmt.Errorf("ToolChoice has neither string value nor function")
}

// UnmarshalJSON deserializes ToolChoice from either a JSON string or a JSON object.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	// Try string first.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		tc.String = s
		tc.Function = nil
		return nil
	}

	// Try structured object.
	var f ToolChoiceFunction
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("tool_choice must be a string or object: %w", err)
	}
	tc.String = ""
	tc.Function = &f
	return nil
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// Message is a role-tagged chat message. A nil Content serializes as null
// and is distinct from empty content.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    *Content    `json:"content"`
	Name       string      `json:"name,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// StreamOptions controls streaming behavior.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// ChatCompletionRequest is the request body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	Model               string         `json:"model"`
	Messages            []Message      `json:"messages"`
	Temperature         *float64       `json:"temperature,omitempty"`
	MaxTokens           *int           `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
	StreamOptions       *StreamOptions `json:"stream_options,omitempty"`
	Tools               []Tool         `json:"tools,omitempty"`
	ToolChoice          *ToolChoice    `json:"tool_choice,omitempty"`
	User                string         `json:"user,omitempty"`
}

// EffectiveMaxTokens returns max_tokens, falling back to the
// max_completion_tokens alias.
func (r *ChatCompletionRequest) EffectiveMaxTokens() *int {
	if r.MaxTokens != nil {
		return r.MaxTokens
	}
	return r.MaxCompletionTokens
}

// IncludeUsage reports whether a streaming client asked for a usage chunk.
func (r *ChatCompletionRequest) IncludeUsage() bool {
	return r.StreamOptions != nil && r.StreamOptions.IncludeUsage
}

// FunctionDefinitions returns the function definitions of all declared tools
// in declaration order.
func (r *ChatCompletionRequest) FunctionDefinitions() []FunctionDefinition {
	if len(r.Tools) == 0 {
		return nil
	}
	defs := make([]FunctionDefinition, 0, len(r.Tools))
	for _, t := range r.Tools {
		defs = append(defs, t.Function)
	}
	return defs
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion alternative of a non-streaming response.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatCompletionResponse is the non-streaming response body.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Delta is the partial message carried by a streaming chunk. An empty Delta
// serializes as {} and is used for heartbeats.
type Delta struct {
	Role      MessageRole `json:"role,omitempty"`
	Content   *string     `json:"content,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
}

// IsEmpty reports whether the delta carries nothing.
func (d Delta) IsEmpty() bool {
	return d.Role == "" && d.Content == nil && len(d.ToolCalls) == 0
}

// ChunkChoice is one choice within a streaming chunk. FinishReason is null
// on every chunk except the one that terminates the choice.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE data payload of a streaming response.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ---------------------------------------------------------------------------
// Models
// ---------------------------------------------------------------------------

// Model describes one model available through the gateway.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the response body of GET /v1/models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
