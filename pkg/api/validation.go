package api

import (
	"fmt"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages int
	MaxTools    int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages: 2048,
		MaxTools:    128,
	}
}

// ValidateChatRequest checks a ChatCompletionRequest for validity. It returns
// an *APIError describing the first validation failure, or nil if the request
// is valid.
//
// Tool types are not checked here. A non-function tool is rejected by the
// request converter with a tool embedding error.
func ValidateChatRequest(req *ChatCompletionRequest, cfg ValidationConfig) *APIError {
	if req.Model == "" {
		return NewInvalidRequestError("model", "model is required")
	}

	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one message")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d", cfg.MaxMessages))
	}

	for i := range req.Messages {
		if err := ValidateMessage(&req.Messages[i], i); err != nil {
			return err
		}
	}

	if cfg.MaxTools > 0 && len(req.Tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools",
			fmt.Sprintf("tools exceeds maximum of %d", cfg.MaxTools))
	}

	for i, tool := range req.Tools {
		if tool.Function.Name == "" {
			return NewInvalidRequestError(fmt.Sprintf("tools[%d].function.name", i), "function name is required")
		}
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	if req.MaxCompletionTokens != nil && *req.MaxCompletionTokens <= 0 {
		return NewInvalidRequestError("max_completion_tokens", "max_completion_tokens must be positive")
	}

	if req.ToolChoice != nil {
		if err := validateToolChoice(req); err != nil {
			return err
		}
	}

	return nil
}

// ValidateMessage checks the role-specific requirements of a single message.
// The index is used to build the param path in errors.
func ValidateMessage(msg *Message, index int) *APIError {
	param := fmt.Sprintf("messages[%d]", index)

	switch msg.Role {
	case RoleSystem, RoleUser:
		if IsEmpty(msg.Content) {
			return NewInvalidRequestError(param+".content",
				fmt.Sprintf("%s messages must have non-empty content", msg.Role))
		}
	case RoleAssistant:
		if msg.Content == nil && len(msg.ToolCalls) == 0 {
			return NewInvalidRequestError(param+".content",
				"assistant messages must have content or tool_calls")
		}
	case RoleTool:
		if msg.Content == nil {
			return NewInvalidRequestError(param+".content", "tool messages must have content")
		}
		if msg.ToolCallID == "" {
			return NewInvalidRequestError(param+".tool_call_id", "tool messages must have a tool_call_id")
		}
	case "":
		return NewInvalidRequestError(param+".role", "role is required")
	default:
		return NewInvalidRequestError(param+".role",
			fmt.Sprintf("invalid role %q: must be system, user, assistant or tool", msg.Role))
	}
	return nil
}

func validateToolChoice(req *ChatCompletionRequest) *APIError {
	tc := req.ToolChoice

	if tc.Function != nil {
		name := tc.FunctionName()
		if name == "" {
			return NewInvalidRequestError("tool_choice", "tool_choice function name is required")
		}
		for _, tool := range req.Tools {
			if tool.Function.Name == name {
				return nil
			}
		}
		return NewInvalidRequestError("tool_choice",
			fmt.Sprintf("tool_choice references unknown tool %q", name))
	}

	switch tc.String {
	case "auto", "none":
		return nil
	case "required":
		if len(req.Tools) == 0 {
			return NewInvalidRequestError("tool_choice", "tool_choice 'required' needs at least one tool")
		}
		return nil
	default:
		return NewInvalidRequestError("tool_choice",
			fmt.Sprintf("invalid tool_choice %q: must be auto, none or required", tc.String))
	}
}
