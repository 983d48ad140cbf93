// Command mock-backend runs a deterministic canonical completions server
// for manual and integration testing of the gateway. Tool calls are
// answered in the markup of the requested model's dialect, so the gateway's
// extraction path runs end to end.
//
// Behavior:
//   - a system message declaring tools makes the first declared function
//     be called, with a "location" argument taken from the user text
//   - a trailing <tool_output> answers with text quoting the tool content
//   - model ids ending in "-429", "-503" or "-500" return that error status
//   - otherwise the user's text is echoed back
//
// Configuration:
//
//	MOCK_PORT  - Listen port (default: 9090)
//	MOCK_DELAY - Delay before every completion, e.g. "12s" (default: none)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/backend"
	"github.com/rhuss/dialekt/pkg/toolcall"
)

var mockModels = []backend.ModelInfo{
	{ID: "qwen/qwen3-coder", Object: "model", Created: 1700000000, OwnedBy: "qwen"},
	{ID: "z-ai/glm-4.6", Object: "model", Created: 1700000000, OwnedBy: "z-ai"},
	{ID: "moonshotai/kimi-k2", Object: "model", Created: 1700000000, OwnedBy: "moonshotai"},
	{ID: "openai/gpt-oss-120b", Object: "model", Created: 1700000000, OwnedBy: "openai"},
}

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	var delay time.Duration
	if v := os.Getenv("MOCK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid MOCK_DELAY", "value", v, "error", err)
			os.Exit(1)
		}
		delay = d
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/chat/completions", &completionHandler{delay: delay})
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port, "delay", delay)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type completionHandler struct {
	delay time.Duration
}

func (h *completionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req backend.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	if status := failureStatus(req.Model); status != 0 {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "2")
		}
		writeError(w, status, fmt.Sprintf("mock failure %d", status))
		return
	}

	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-r.Context().Done():
			return
		}
	}

	resp := respond(&req)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// failureStatus maps the model suffixes -429, -503 and -500 to statuses.
func failureStatus(model string) int {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError} {
		if strings.HasSuffix(model, fmt.Sprintf("-%d", status)) {
			return status
		}
	}
	return 0
}

func respond(req *backend.ChatRequest) *backend.ChatResponse {
	var system, last string
	for _, m := range req.Messages {
		text := api.Render(m.Content)
		if m.Role == api.RoleSystem {
			system += text
		}
		last = text
	}

	var text string
	switch {
	case strings.Contains(last, "<tool_output>"):
		text = "Here is what the tool returned: " + toolOutputContent(last)
	case declaredFunction(system) != "":
		text = toolCallMarkup(req.Model, declaredFunction(system), last)
	default:
		text = "You said: " + last
	}

	inWords, outWords := len(strings.Fields(last)), len(strings.Fields(text))
	return &backend.ChatResponse{
		ID:      "mock-" + fmt.Sprint(time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []backend.Choice{{
			Message:      backend.ResponseMessage{Role: api.RoleAssistant, Content: api.NewTextContent(text)},
			FinishReason: "stop",
		}},
		Usage: &backend.Usage{
			PromptTokens:     inWords * 2,
			CompletionTokens: outWords * 2,
			TotalTokens:      (inWords + outWords) * 2,
		},
		WordCount: &backend.WordCount{Input: inWords, Output: outWords, Total: inWords + outWords},
		Price: &backend.Price{
			Input:    float64(inWords) * 0.00001,
			Output:   float64(outWords) * 0.00003,
			Total:    float64(inWords)*0.00001 + float64(outWords)*0.00003,
			Currency: "USD",
		},
	}
}

// declaredFunction returns the first function name of the tool preamble.
// Each signature sits on its own line between <tools> and </tools>.
func declaredFunction(system string) string {
	_, rest, found := strings.Cut(system, "<tools>")
	if !found {
		return ""
	}
	block, _, _ := strings.Cut(rest, "</tools>")
	for _, line := range strings.Split(block, "\n") {
		if !gjson.Valid(line) {
			continue
		}
		if name := gjson.Get(line, "function.name").String(); name != "" {
			return name
		}
	}
	return ""
}

// toolCallMarkup renders one call in the dialect of model.
func toolCallMarkup(model, function, userText string) string {
	args, _ := api.NewArguments(map[string]string{"location": lastWord(userText)})
	call := api.ToolCall{
		ID:       api.NewToolCallID(),
		Type:     api.ToolTypeFunction,
		Function: api.FunctionCall{Name: function, Arguments: args},
	}
	return "Let me check. " + toolcall.ForModel(model).FormatToolCalls([]api.ToolCall{call})
}

func toolOutputContent(text string) string {
	_, rest, _ := strings.Cut(text, "<tool_output>")
	body, _, _ := strings.Cut(rest, "</tool_output>")
	return gjson.Get(body, "content").String()
}

func lastWord(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	return strings.Trim(words[len(words)-1], "?!.,")
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   mockModels,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "mock_error"},
	})
}
