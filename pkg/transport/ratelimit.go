package transport

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/rhuss/dialekt/pkg/api"
)

// RateLimit returns middleware that admits at most rps chat completions per
// second, with bursts of up to burst. A request over the limit fails with a
// rate_limited error whose retry hint is the wait until a slot frees up.
// A non-positive rps disables the limit.
func RateLimit(rps float64, burst int) Middleware {
	if rps <= 0 {
		return func(next ChatCompleter) ChatCompleter { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next ChatCompleter) ChatCompleter {
		return ChatCompleterFunc(func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
			r := limiter.Reserve()
			if delay := r.Delay(); delay > 0 {
				r.Cancel()
				return api.NewRateLimitedError("gateway request rate exceeded", delay)
			}
			return next.CreateChatCompletion(ctx, req, w)
		})
	}
}
