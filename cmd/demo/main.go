package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/backend"
	"github.com/rhuss/dialekt/pkg/convert"
	"github.com/rhuss/dialekt/pkg/stream"
	"github.com/rhuss/dialekt/pkg/toolcall"
)

func main() {
	fmt.Println("=== dialekt tool-call dialect demo ===")
	fmt.Println()

	// 1. Build a request declaring one function tool
	req := &api.ChatCompletionRequest{
		Model: "z-ai/glm-4.6",
		Messages: []api.Message{
			{Role: api.RoleUser, Content: api.NewTextContent("What is the weather in Paris?")},
		},
		Tools: []api.Tool{{
			Type: api.ToolTypeFunction,
			Function: api.FunctionDefinition{
				Name:        "get_weather",
				Description: "Current weather for a location",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}},"required":["location"]}`),
			},
		}},
		ToolChoice: &api.ToolChoiceAuto,
	}

	// 2. Validate request
	if err := api.ValidateChatRequest(req, api.DefaultValidationConfig()); err != nil {
		fmt.Printf("Validation FAILED: %v\n", err)
		return
	}
	fmt.Println("[1] Request validated successfully")

	// 3. Convert to the canonical backend request
	dialect := toolcall.ForModel(req.Model)
	canonical, err := convert.Request(req, dialect)
	if err != nil {
		fmt.Printf("Conversion FAILED: %v\n", err)
		return
	}
	fmt.Printf("\n[2] Canonical request (dialect %q):\n", dialect.Name())
	for _, m := range canonical.Messages {
		fmt.Printf("    --- %s ---\n%s\n", m.Role, indent(api.Render(m.Content)))
	}

	// 4. The same call written in every dialect
	call := api.ToolCall{
		ID:       api.NewToolCallID(),
		Type:     api.ToolTypeFunction,
		Function: api.FunctionCall{Name: "get_weather", Arguments: api.RawArguments(`{"location":"Paris","unit":"celsius"}`)},
	}
	fmt.Println("\n[3] One call, four dialects:")
	for _, name := range toolcall.Names() {
		d, _ := toolcall.Lookup(name)
		fmt.Printf("    --- %s ---\n%s\n", name, indent(d.FormatToolCalls([]api.ToolCall{call})))
	}

	// 5. Extract calls from a backend completion
	completion := &backend.ChatResponse{
		ID:      "backend-1",
		Created: 1700000000,
		Model:   req.Model,
		Choices: []backend.Choice{{
			Message: backend.ResponseMessage{
				Role:    api.RoleAssistant,
				Content: api.NewTextContent("Let me check.\n" + dialect.FormatToolCalls([]api.ToolCall{call})),
			},
			FinishReason: "stop",
		}},
		Usage: &backend.Usage{PromptTokens: 42, CompletionTokens: 17, TotalTokens: 59},
	}
	resp := convert.Response(completion, toolcall.WithFunctions(dialect, req.FunctionDefinitions()), req.Model)
	data, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Printf("\n[4] Client response:\n%s\n", data)

	// 6. The same response as a chunk sequence
	fmt.Println("\n[5] Streaming chunks:")
	for _, chunk := range stream.NewDecomposer(resp).All() {
		line, _ := json.Marshal(chunk.Choices)
		fmt.Printf("    %s\n", line)
	}

	// 7. Error taxonomy
	fmt.Println("\n[6] Error examples:")
	badReq := &api.ChatCompletionRequest{Model: "", Messages: nil}
	if err := api.ValidateChatRequest(badReq, api.DefaultValidationConfig()); err != nil {
		fmt.Printf("    Missing model: %v\n", err)
	}
	badTool := *req
	badTool.Tools = []api.Tool{{Type: "retrieval", Function: api.FunctionDefinition{Name: "search"}}}
	if _, err := convert.Request(&badTool, dialect); err != nil {
		fmt.Printf("    Unsupported tool: %v\n", err)
	}

	fmt.Println("\n=== demo complete ===")
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
