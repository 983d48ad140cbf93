package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/provider"
)

// Logging writes one access log line per chat completion. Successful
// requests log at INFO, client errors at WARN and everything mapped to a
// 5xx status at ERROR. Requests whose client went away log at INFO.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatCompleter) ChatCompleter {
		return ChatCompleterFunc(func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) error {
			start := time.Now()
			err := next.CreateChatCompletion(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("model", req.Model),
				slog.String("provider", provider.FromModel(req.Model).String()),
				slog.Bool("stream", req.Stream),
				slog.Int("messages", len(req.Messages)),
				slog.Int("tools", len(req.Tools)),
				slog.Duration("duration", time.Since(start)),
			}

			switch {
			case err == nil:
				logger.LogAttrs(ctx, slog.LevelInfo, "chat completion served", attrs...)
			case errors.Is(err, context.Canceled):
				logger.LogAttrs(ctx, slog.LevelInfo, "chat completion cancelled", attrs...)
			default:
				apiErr := AsAPIError(err)
				status := HTTPStatusFromError(apiErr)
				attrs = append(attrs,
					slog.Int("status", status),
					slog.String("error_type", string(apiErr.Type)),
					slog.String("error", apiErr.Message),
				)
				level := slog.LevelWarn
				if status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.LogAttrs(ctx, level, "chat completion failed", attrs...)
			}
			return err
		})
	}
}
