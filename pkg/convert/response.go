package convert

import (
	"strings"
	"time"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/backend"
	"github.com/rhuss/dialekt/pkg/toolcall"
)

// Response reshapes a canonical completion into an OpenAI response. Tool-call
// markup found in a choice's text is parsed with the dialect, removed from
// the visible content and reported as tool calls. Content becomes null when
// nothing but markup was present. The model argument, when set, replaces the
// backend's model id so that clients see the id they asked for.
func Response(resp *backend.ChatResponse, dialect toolcall.Dialect, model string) *api.ChatCompletionResponse {
	out := &api.ChatCompletionResponse{
		ID:      resp.ID,
		Object:  api.ObjectChatCompletion,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: make([]api.Choice, 0, len(resp.Choices)),
	}
	if out.ID == "" {
		out.ID = api.NewCompletionID()
	}
	if out.Created == 0 {
		out.Created = time.Now().Unix()
	}
	if model != "" {
		out.Model = model
	}

	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, convertChoice(c, dialect))
	}

	if resp.Usage != nil {
		out.Usage = &api.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out
}

func convertChoice(c backend.Choice, dialect toolcall.Dialect) api.Choice {
	msg := api.Message{Role: api.RoleAssistant}
	text := c.Message.Content.String()

	calls, cleaned := dialect.ExtractToolCalls(text)
	if len(calls) > 0 {
		msg.ToolCalls = calls
		if strings.TrimSpace(cleaned) != "" {
			msg.Content = api.NewTextContent(cleaned)
		}
		return api.Choice{Index: c.Index, Message: msg, FinishReason: api.FinishReasonToolCalls}
	}

	if c.Message.Content != nil {
		msg.Content = api.NewTextContent(text)
	}
	return api.Choice{Index: c.Index, Message: msg, FinishReason: NormalizeFinishReason(c.FinishReason)}
}

// NormalizeFinishReason maps upstream terminal reasons onto the OpenAI set.
// Reasons meaning "the model ended its turn" become "stop", token limits
// become "length" and native tool-use reasons become "tool_calls". Unknown
// reasons pass through unchanged.
func NormalizeFinishReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "", "stop", "end_turn", "stop_sequence", "eos", "eos_token", "end", "complete", "completed":
		return api.FinishReasonStop
	case "length", "max_tokens", "max_length", "max_output_tokens":
		return api.FinishReasonLength
	case "tool_calls", "tool_use", "function_call":
		return api.FinishReasonToolCalls
	case "content_filter", "safety":
		return api.FinishReasonContentFilter
	default:
		return reason
	}
}
