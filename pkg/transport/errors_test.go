package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rhuss/dialekt/pkg/api"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        *api.APIError
		wantStatus int
	}{
		{"serialization -> 400", api.NewSerializationError("bad json"), http.StatusBadRequest},
		{"tool_embedding -> 400", api.NewToolEmbeddingError("tools[0].type", "x"), http.StatusBadRequest},
		{"invalid_request -> 400", api.NewInvalidRequestError("model", "x"), http.StatusBadRequest},
		{"unauthorized -> 401", api.NewUnauthorizedError("x", ""), http.StatusUnauthorized},
		{"forbidden -> 403", api.NewForbiddenError("x", ""), http.StatusForbidden},
		{"not_found -> 404", api.NewNotFoundError("x"), http.StatusNotFound},
		{"rate_limited -> 429", api.NewRateLimitedError("x", 0), http.StatusTooManyRequests},
		{"service_unavailable -> 503", api.NewServiceUnavailableError("x", ""), http.StatusServiceUnavailable},
		{"upstream 500 -> 502", api.NewUpstreamError(500, "x", ""), http.StatusBadGateway},
		{"upstream 400 passes through", api.NewUpstreamError(400, "x", ""), http.StatusBadRequest},
		{"upstream 422 passes through", api.NewUpstreamError(422, "x", ""), http.StatusUnprocessableEntity},
		{"transport -> 502", api.NewTransportError("x"), http.StatusBadGateway},
		{"server_error -> 500", api.NewServerError("x"), http.StatusInternalServerError},
		{"unknown type -> 500", &api.APIError{Type: api.ErrorType("unknown")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTTPStatusFromError(tt.err)
			if got != tt.wantStatus {
				t.Errorf("HTTPStatusFromError(%q) = %d, want %d", tt.err.Type, got, tt.wantStatus)
			}
		})
	}
}

func TestAsAPIError(t *testing.T) {
	wrapped := fmt.Errorf("calling backend: %w", api.NewTransportError("refused"))
	if got := AsAPIError(wrapped); got.Type != api.ErrorTypeTransport {
		t.Errorf("AsAPIError(wrapped).Type = %q, want %q", got.Type, api.ErrorTypeTransport)
	}
	if got := AsAPIError(errors.New("boom")); got.Type != api.ErrorTypeServerError || got.Message != "boom" {
		t.Errorf("AsAPIError(plain) = %+v, want server_error boom", got)
	}
}

func TestWriteErrorResponseRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, api.NewRateLimitedError("slow down", 1500*time.Millisecond))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want %q", got, "2")
	}
}

func TestWriteErrorResponseHidesUpstreamBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, api.NewUpstreamError(500, "unexpected backend error (HTTP 500)", "stack trace"))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	var raw map[string]map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, key := range []string{"body", "Body", "status_code", "StatusCode"} {
		if _, ok := raw["error"][key]; ok {
			t.Errorf("error response exposes %q", key)
		}
	}
}

func TestWriteErrorResponse(t *testing.T) {
	apiErr := api.NewInvalidRequestError("model", "is required")
	rec := httptest.NewRecorder()

	WriteErrorResponse(rec, apiErr, http.StatusBadRequest)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	ct := rec.Header().Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var resp api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error type = %q, want %q", resp.Error.Type, api.ErrorTypeInvalidRequest)
	}
	if resp.Error.Param != "model" {
		t.Errorf("error param = %q, want %q", resp.Error.Param, "model")
	}
	if resp.Error.Message != "is required" {
		t.Errorf("error message = %q, want %q", resp.Error.Message, "is required")
	}
}

func TestWriteAPIError(t *testing.T) {
	tests := []struct {
		name       string
		apiErr     *api.APIError
		wantStatus int
	}{
		{
			"invalid_request",
			api.NewInvalidRequestError("model", "is required"),
			http.StatusBadRequest,
		},
		{
			"not_found",
			api.NewNotFoundError("model not found"),
			http.StatusNotFound,
		},
		{
			"upstream",
			api.NewUpstreamError(503, "backend overloaded", ""),
			http.StatusBadGateway,
		},
		{
			"server_error",
			api.NewServerError("internal failure"),
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAPIError(rec, tt.apiErr)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp api.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}

			if resp.Error.Type != tt.apiErr.Type {
				t.Errorf("error type = %q, want %q", resp.Error.Type, tt.apiErr.Type)
			}
		})
	}
}
