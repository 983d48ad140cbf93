package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute labels requests no route claims.
const unmatchedRoute = "unmatched"

// RouteFunc names the route that serves a request, e.g. the ServeMux
// pattern "POST /v1/chat/completions". It returns "" for unknown paths.
type RouteFunc func(*http.Request) string

// MetricsMiddleware records dialekt_requests_total and
// dialekt_request_duration_seconds per route, and the number of requests
// being served in dialekt_http_requests_in_flight. Routes come from route
// so that arbitrary paths cannot grow the label set.
func MetricsMiddleware(next http.Handler, route RouteFunc) http.Handler {
	measured := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		label := unmatchedRoute
		if route != nil {
			if p := route(r); p != "" {
				label = p
			}
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		RequestsTotal.WithLabelValues(r.Method, label, statusClass(rec.code())).Inc()
		RequestDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())
	})
	return promhttp.InstrumentHandlerInFlight(HTTPInFlight, measured)
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// code returns the recorded status; a handler that wrote nothing answered 200.
func (w *statusRecorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Flush keeps SSE streams flowing through the recorder.
func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
