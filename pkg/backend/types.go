package backend

import "github.com/rhuss/dialekt/pkg/api"

// ChatRequest is the canonical request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

// Message is a canonical message. Content always uses the array encoding.
type Message struct {
	Role    api.MessageRole   `json:"role"`
	Content []api.ContentPart `json:"content"`
}

// ChatResponse is the canonical completion.
type ChatResponse struct {
	ID        string     `json:"id"`
	Object    string     `json:"object"`
	Created   int64      `json:"created"`
	Model     string     `json:"model"`
	Choices   []Choice   `json:"choices"`
	Usage     *Usage     `json:"usage,omitempty"`
	Price     *Price     `json:"price,omitempty"`
	WordCount *WordCount `json:"word_count,omitempty"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message of a choice. The backend may
// answer with either content encoding, or with null.
type ResponseMessage struct {
	Role    api.MessageRole `json:"role"`
	Content *api.Content    `json:"content"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Price reports the cost of a completion.
type Price struct {
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency,omitempty"`
}

// WordCount reports the number of words in prompt and completion.
type WordCount struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// ModelInfo describes a model offered by the backend.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// modelsResponse is the body of the backend's model listing.
type modelsResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}
