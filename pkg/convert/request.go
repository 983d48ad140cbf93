package convert

import (
	"fmt"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/backend"
	"github.com/rhuss/dialekt/pkg/debug"
	"github.com/rhuss/dialekt/pkg/toolcall"
)

// Request builds the canonical backend request. It fails with a tool
// embedding error when a tool has a type other than "function" or a tool
// message carries no tool_call_id. The output never carries tools: they are
// expressed as message content in the given dialect.
func Request(req *api.ChatCompletionRequest, dialect toolcall.Dialect) (*backend.ChatRequest, error) {
	for i, tool := range req.Tools {
		if tool.Type != api.ToolTypeFunction {
			return nil, api.NewToolEmbeddingError(fmt.Sprintf("tools[%d].type", i),
				fmt.Sprintf("unsupported tool type %q: only function tools are supported", tool.Type))
		}
	}

	out := &backend.ChatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.EffectiveMaxTokens(),
		Messages:    make([]backend.Message, 0, len(req.Messages)+1),
	}

	if preamble := dialect.BuildSystemPreamble(req.FunctionDefinitions(), req.ToolChoice); preamble != "" {
		out.Messages = append(out.Messages, backend.Message{
			Role:    api.RoleSystem,
			Content: []api.ContentPart{api.TextPart(preamble)},
		})
	}

	for i := range req.Messages {
		msg, err := convertMessage(&req.Messages[i], i, dialect)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, msg)
	}

	debug.Log("convert", "request converted",
		"model", req.Model, "dialect", dialect.Name(),
		"messages", len(out.Messages), "tools", len(req.Tools))
	return out, nil
}

func convertMessage(msg *api.Message, index int, dialect toolcall.Dialect) (backend.Message, error) {
	switch msg.Role {
	case api.RoleTool:
		// The backend has no tool role; results go back as user content.
		if msg.ToolCallID == "" {
			return backend.Message{}, api.NewToolEmbeddingError(
				fmt.Sprintf("messages[%d].tool_call_id", index),
				"tool message has no tool_call_id to correlate its result with")
		}
		return backend.Message{
			Role:    api.RoleUser,
			Content: []api.ContentPart{api.TextPart(dialect.FormatToolResponse(msg.ToolCallID, msg.Content.String()))},
		}, nil

	case api.RoleAssistant:
		parts := cloneParts(api.Normalize(msg.Content))
		if len(msg.ToolCalls) > 0 {
			markup := dialect.FormatToolCalls(positional(msg.ToolCalls))
			parts = append(parts, api.TextPart(toolcall.EnvelopeToolCalls(markup)))
		}
		return backend.Message{Role: api.RoleAssistant, Content: parts}, nil

	default:
		return backend.Message{Role: msg.Role, Content: cloneParts(api.Normalize(msg.Content))}, nil
	}
}

// positional returns the calls with dense indices from zero.
func positional(calls []api.ToolCall) []api.ToolCall {
	out := make([]api.ToolCall, len(calls))
	for i, tc := range calls {
		tc.Index = i
		out[i] = tc
	}
	return out
}

// cloneParts copies parts so that appending never writes into the request.
// The result is never nil, so that empty content encodes as [].
func cloneParts(parts []api.ContentPart) []api.ContentPart {
	out := make([]api.ContentPart, len(parts), len(parts)+1)
	copy(out, parts)
	return out
}
