package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rhuss/dialekt/pkg/api"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// MapHTTPError converts an HTTP response with a non-2xx status code into
// an APIError. The body is kept on the error and, when it is a JSON error
// document, its message is used as the error message.
func MapHTTPError(resp *http.Response) *api.APIError {
	body := readErrorBody(resp.Body)
	message := ExtractErrorMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if message == "" {
			message = "backend rejected the credentials"
		}
		return api.NewUnauthorizedError(message, body)

	case http.StatusForbidden:
		if message == "" {
			message = "backend denied access"
		}
		return api.NewForbiddenError(message, body)

	case http.StatusNotFound:
		if message == "" {
			message = "backend resource not found"
		}
		err := api.NewNotFoundError(message)
		err.StatusCode = http.StatusNotFound
		err.Body = body
		return err

	case http.StatusTooManyRequests:
		if message == "" {
			message = "backend rate limit exceeded"
		}
		err := api.NewRateLimitedError(message, ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
		err.Body = body
		return err

	case http.StatusServiceUnavailable:
		if message == "" {
			message = "backend unavailable"
		}
		return api.NewServiceUnavailableError(message, body)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected backend error (HTTP %d)", resp.StatusCode)
		}
		return api.NewUpstreamError(resp.StatusCode, message, body)
	}
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into an APIError with a descriptive message. The
// original error stays reachable through errors.Is and errors.As.
func MapNetworkError(err error) *api.APIError {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, context.Canceled):
		apiErr = api.NewTransportError("backend request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		apiErr = api.NewTransportError("backend request timed out")
	default:
		apiErr = api.NewTransportError(fmt.Sprintf("backend connection error: %s", err.Error()))
	}
	apiErr.Cause = err
	return apiErr
}

// ExtractErrorMessage returns the message of a JSON error body. It accepts
// {"error":{"message":...}}, {"error":"..."}, {"message":...} and
// {"detail":...}.
func ExtractErrorMessage(body string) string {
	if body == "" || !gjson.Valid(body) {
		return ""
	}
	for _, path := range []string{"error.message", "error", "message", "detail"} {
		if r := gjson.Get(body, path); r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	return ""
}

// ParseRetryAfter interprets a Retry-After header given as delay seconds or
// as an HTTP date. It returns zero when the header is absent or invalid.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

func readErrorBody(r io.Reader) string {
	if r == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
