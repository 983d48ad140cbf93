// Package debug provides category-based debug logging for the gateway.
//
// Categories select WHAT is logged (DIALEKT_DEBUG or logging.debug), the
// level selects HOW MUCH (DIALEKT_LOG_LEVEL or logging.level):
//
//	debug.Log("backend", "request sent", "url", url)
//	debug.Raw("backend", string(body)) // TRACE only
//
// Categories: backend, convert, dialect, stream, transport, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// LevelTrace sits below slog.LevelDebug. Full backend bodies are only
// written at this level.
const LevelTrace = slog.LevelDebug - 4

// categoryAll enables every category.
const categoryAll = "all"

var known = []string{categoryAll, "backend", "convert", "dialect", "stream", "transport", "config"}

// enabled holds the active category set. It is swapped as a whole by Init.
var enabled atomic.Pointer[map[string]bool]

// rawOut receives Raw output.
var rawOut io.Writer = os.Stderr

func init() {
	set := parseCategories(os.Getenv("DIALEKT_DEBUG"))
	enabled.Store(&set)
}

// Init installs the default slog logger and the category set. DIALEKT_DEBUG
// and DIALEKT_LOG_LEVEL take precedence over the configured values. format
// is "json" or "text".
func Init(configCategories, configLevel, format string) {
	cats := cmp.Or(os.Getenv("DIALEKT_DEBUG"), configCategories)
	set := parseCategories(cats)
	enabled.Store(&set)

	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cmp.Or(os.Getenv("DIALEKT_LOG_LEVEL"), configLevel)),
		ReplaceAttr: nameTraceLevel,
	}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// Known lists the accepted category names.
func Known() []string {
	return slices.Clone(known)
}

// Enabled reports whether debug output is active for category.
func Enabled(category string) bool {
	set := *enabled.Load()
	return set[categoryAll] || set[category]
}

// Log emits a DEBUG record tagged with category, if the category is on.
func Log(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a TRACE record tagged with category, if the category is on.
func Trace(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceEnabled reports whether category is on and the logger accepts TRACE.
func TraceEnabled(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes text unformatted, for copy-paste-ready bodies. It needs both
// the category and the TRACE level.
func Raw(category, text string) {
	if !TraceEnabled(category) {
		return
	}
	fmt.Fprintln(rawOut, text)
}

// ParseLevel converts a level name to a slog.Level. Unknown names mean INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// nameTraceLevel prints LevelTrace as "TRACE" instead of "DEBUG-4".
func nameTraceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

func parseCategories(s string) map[string]bool {
	set := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.ToLower(strings.TrimSpace(cat)); cat != "" {
			set[cat] = true
		}
	}
	return set
}
