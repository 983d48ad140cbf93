package transport

// Middleware decorates a ChatCompleter. Request IDs, panic recovery,
// request logging and admission control are all middleware.
type Middleware func(ChatCompleter) ChatCompleter

// Chain folds middlewares into one. The first argument ends up outermost,
// so Chain(a, b)(h) behaves as a(b(h)).
func Chain(middlewares ...Middleware) Middleware {
	return func(h ChatCompleter) ChatCompleter {
		wrapped := h
		for i := range middlewares {
			wrapped = middlewares[len(middlewares)-1-i](wrapped)
		}
		return wrapped
	}
}
