// Package debug configures the process logger and provides
// category-gated debug logging for keygate.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): KEYGATE_DEBUG env or logging.debug config
//   - Levels (HOW MUCH detail): KEYGATE_LOG_LEVEL env or logging.level config
//
// Usage:
//
//	debug.Log("storage", "get", "backend", "redis", "key", key)
//
// Categories: auth, storage, transport, config, all.
// Levels: DEBUG, INFO, WARN, ERROR.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
)

// categories holds the set of enabled debug categories.
var categories atomic.Pointer[map[string]bool]

func init() {
	// Available before Init runs.
	setCategories(parseCategories(os.Getenv("KEYGATE_DEBUG")))
}

// Options selects the logger installed by Init.
type Options struct {
	Level      string // DEBUG, INFO, WARN, ERROR
	Format     string // "text" or "json"
	Categories string // comma-separated
	Output     io.Writer
}

// Init installs the default slog logger and the enabled categories.
// Environment overrides the supplied options.
func Init(opts Options) *slog.Logger {
	cats := os.Getenv("KEYGATE_DEBUG")
	if cats == "" {
		cats = opts.Categories
	}
	setCategories(parseCategories(cats))

	level := os.Getenv("KEYGATE_LOG_LEVEL")
	if level == "" {
		level = opts.Level
	}
	// Enabled categories are useless above DEBUG.
	slogLevel := ParseLevel(level)
	if cats != "" && slogLevel > slog.LevelDebug {
		slogLevel = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits a debug message for the given category.
// If the category is not enabled, this is a no-op.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	m := *categories.Load()
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

func setCategories(m map[string]bool) {
	categories.Store(&m)
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
