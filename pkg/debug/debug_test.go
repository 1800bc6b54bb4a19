package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// withCategories installs s for the duration of the test.
func withCategories(t *testing.T, s string) {
	t.Helper()
	orig := categories.Load()
	t.Cleanup(func() { categories.Store(orig) })
	setCategories(parseCategories(s))
}

// restoreDefault puts the original default logger back after the test.
func restoreDefault(t *testing.T) {
	t.Helper()
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
}

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "auth", map[string]bool{"auth": true}},
		{"multiple", "auth,storage", map[string]bool{"auth": true, "storage": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " auth , storage ", map[string]bool{"auth": true, "storage": true}},
		{"uppercase normalized", "AUTH,Storage", map[string]bool{"auth": true, "storage": true}},
		{"empty segments", "auth,,storage", map[string]bool{"auth": true, "storage": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	withCategories(t, "auth,storage")

	if !Enabled("auth") {
		t.Error("auth should be enabled")
	}
	if !Enabled("storage") {
		t.Error("storage should be enabled")
	}
	if Enabled("transport") {
		t.Error("transport should not be enabled")
	}
}

func TestEnabled_All(t *testing.T) {
	withCategories(t, "all")

	for _, cat := range []string{"auth", "storage", "transport", "config"} {
		if !Enabled(cat) {
			t.Errorf("%s should be enabled with all", cat)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitJSONFormat(t *testing.T) {
	restoreDefault(t)
	withCategories(t, "")
	t.Setenv("KEYGATE_DEBUG", "")
	t.Setenv("KEYGATE_LOG_LEVEL", "")

	var buf bytes.Buffer
	logger := Init(Options{Level: "WARN", Format: "json", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "kept" || entry["k"] != "v" {
		t.Errorf("entry = %v", entry)
	}
	if slog.Default() != logger {
		t.Error("Init did not install the default logger")
	}
}

func TestInitEnvOverridesOptions(t *testing.T) {
	restoreDefault(t)
	withCategories(t, "")
	t.Setenv("KEYGATE_DEBUG", "storage")
	t.Setenv("KEYGATE_LOG_LEVEL", "ERROR")

	var buf bytes.Buffer
	Init(Options{Level: "INFO", Categories: "auth", Output: &buf})

	if !Enabled("storage") || Enabled("auth") {
		t.Errorf("categories = %v, want [storage]", Categories())
	}

	// Categories force DEBUG so their output is visible.
	Log("storage", "probe", "key", "x")
	if !strings.Contains(buf.String(), "probe") || !strings.Contains(buf.String(), "debug=storage") {
		t.Errorf("debug output = %q", buf.String())
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	restoreDefault(t)
	withCategories(t, "")

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	Log("auth", "test message", "key", "value")
	if buf.Len() != 0 {
		t.Errorf("disabled category produced output: %q", buf.String())
	}
}

func TestCategoriesSorted(t *testing.T) {
	withCategories(t, "storage,auth")

	got := strings.Join(Categories(), ",")
	if got != "auth,storage" {
		t.Errorf("Categories() = %q, want auth,storage", got)
	}
}
