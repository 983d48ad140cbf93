package transport

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/dialekt/pkg/api"
)

// Recovery turns a panic below it into a server_error. The panic value and
// stack are logged, never sent to the client.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatCompleter) ChatCompleter {
		return ChatCompleterFunc(func(ctx context.Context, req *api.ChatCompletionRequest, w ResponseWriter) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				logger.ErrorContext(ctx, "panic in chat completion",
					slog.String("request_id", RequestIDFromContext(ctx)),
					slog.String("model", req.Model),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = api.NewServerError("internal server error")
			}()
			return next.CreateChatCompletion(ctx, req, w)
		})
	}
}
