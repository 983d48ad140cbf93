package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/debug"
)

// Backend abstracts the completions backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// Complete sends one canonical request and returns the full completion.
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ListModels returns the models the backend offers.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases backend resources (HTTP clients, connections).
	Close() error
}

const (
	defaultCompletionsPath = "/v1/chat/completions"
	defaultModelsPath      = "/v1/models"
	defaultTimeout         = 120 * time.Second
)

// Config holds the backend client configuration.
type Config struct {
	// BaseURL is the backend root, e.g. "http://llm.internal:8080".
	BaseURL string

	// CompletionsPath is appended to BaseURL for completions.
	// Default: "/v1/chat/completions".
	CompletionsPath string

	// ModelsPath is appended to BaseURL for the model listing.
	// Default: "/v1/models".
	ModelsPath string

	// Timeout bounds a single backend call. Default: 120s.
	Timeout time.Duration

	// Credentials supplies the bearer token. Nil sends no Authorization header.
	Credentials TokenSource

	// RequestsPerSecond paces outbound requests. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Default: 1.
	Burst int

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// If nil, a client with Timeout is created.
	HTTPClient *http.Client
}

// Client performs HTTP requests against the completions backend.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	completionsPath string
	modelsPath      string
	credentials     TokenSource
	limiter         *rate.Limiter
}

var _ Backend = (*Client)(nil)

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	// Normalize: remove trailing slash from base URL.
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CompletionsPath == "" {
		cfg.CompletionsPath = defaultCompletionsPath
	}
	if cfg.ModelsPath == "" {
		cfg.ModelsPath = defaultModelsPath
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient:      httpClient,
		baseURL:         baseURL,
		completionsPath: "/" + strings.TrimLeft(cfg.CompletionsPath, "/"),
		modelsPath:      "/" + strings.TrimLeft(cfg.ModelsPath, "/"),
		credentials:     cfg.Credentials,
		limiter:         limiter,
	}
}

// Complete performs one non-streaming completion.
func (c *Client) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, api.NewSerializationError(fmt.Sprintf("failed to marshal backend request: %s", err.Error()))
	}

	url := c.baseURL + c.completionsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if err := c.authorize(ctx, httpReq); err != nil {
		return nil, err
	}

	debug.Log("backend", "request", "method", http.MethodPost, "url", url,
		"model", req.Model, "messages", len(req.Messages))
	debug.Raw("backend", string(body))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := MapHTTPError(httpResp)
		debug.Log("backend", "error response", "status", httpResp.StatusCode, "type", apiErr.Type)
		return nil, apiErr
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewSerializationError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	debug.Log("backend", "response", "id", chatResp.ID, "choices", len(chatResp.Choices))
	return &chatResp, nil
}

// ListModels returns available models from the backend.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	url := c.baseURL + c.modelsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	if err := c.authorize(ctx, httpReq); err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var modelsResp modelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&modelsResp); err != nil {
		return nil, api.NewSerializationError(fmt.Sprintf("failed to parse models response: %s", err.Error()))
	}
	return modelsResp.Data, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// wait blocks until the outbound limiter admits a request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return MapNetworkError(err)
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.credentials == nil {
		return nil
	}
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return api.NewServerError(fmt.Sprintf("failed to obtain backend credentials: %s", err.Error()))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
