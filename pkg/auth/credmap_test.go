package auth

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestDecodeCredentialMap(t *testing.T) {
	m, skipped, err := DecodeCredentialMap([]byte(`{
		"sk-a": {"GEMINI_PROJECT_ID": "p"},
		"sk-b": "not an object",
		"sk-c": 42,
		"sk-d": {"GCP_SERVICE_ACCOUNT": null}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 2 {
		t.Errorf("decoded %d entries, want 2", len(m))
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %v, want 2 entries", skipped)
	}

	d, ok := m.Lookup("sk-d")
	if !ok {
		t.Fatal("sk-d missing")
	}
	if d.HasServiceAccount() {
		t.Error("null service account reported as present")
	}
	if d.ProjectID != nil {
		t.Errorf("ProjectID = %v, want nil", *d.ProjectID)
	}
}

func TestDecodeCredentialMapRejectsNonObject(t *testing.T) {
	for _, in := range []string{`[]`, `"x"`, `not json`, `{"a":`} {
		if _, _, err := DecodeCredentialMap([]byte(in)); err == nil {
			t.Errorf("DecodeCredentialMap(%q) succeeded, want error", in)
		}
	}
}

func TestDecodeCredentialMapNull(t *testing.T) {
	m, _, err := DecodeCredentialMap([]byte(`null`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Errorf("m = %v, want nil map", m)
	}

	if fb := ParseFallbackMap("null", quietLogger()); fb == nil || len(fb) != 0 {
		t.Errorf("ParseFallbackMap(null) = %v, want empty non-nil map", fb)
	}
}

func TestDecodeCredentialMapLenientProjectID(t *testing.T) {
	m, skipped, err := DecodeCredentialMap([]byte(`{
		"k1": {"GEMINI_PROJECT_ID": 123456},
		"k2": {"GEMINI_PROJECT_ID": true},
		"k3": {"GEMINI_PROJECT_ID": null},
		"k4": {"GEMINI_PROJECT_ID": "proj-4"}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}

	tests := []struct {
		key  string
		want string
		set  bool
	}{
		{"k1", "123456", true},
		{"k2", "true", true},
		{"k3", "", false},
		{"k4", "proj-4", true},
	}
	for _, tt := range tests {
		p, ok := m.Lookup(tt.key)
		if !ok {
			t.Errorf("%s missing from map", tt.key)
			continue
		}
		if (p.ProjectID != nil) != tt.set {
			t.Errorf("%s: ProjectID set = %v, want %v", tt.key, p.ProjectID != nil, tt.set)
			continue
		}
		if tt.set && *p.ProjectID != tt.want {
			t.Errorf("%s: ProjectID = %q, want %q", tt.key, *p.ProjectID, tt.want)
		}
	}
}

func TestParseFallbackMap(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	tests := []struct {
		name    string
		raw     string
		want    int
		warning bool
	}{
		{"empty", "", 0, false},
		{"whitespace", "  \n", 0, false},
		{"invalid", "{broken", 0, true},
		{"valid", `{"sk-a": {}}`, 1, false},
		{"malformed entry", `{"sk-a": {}, "sk-b": []}`, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Reset()
			m := ParseFallbackMap(tt.raw, logger)
			if m == nil {
				t.Fatal("nil map")
			}
			if len(m) != tt.want {
				t.Errorf("len = %d, want %d", len(m), tt.want)
			}
			if got := strings.Contains(logs.String(), "level=WARN"); got != tt.warning {
				t.Errorf("warning logged = %v, want %v (%s)", got, tt.warning, logs.String())
			}
		})
	}
}

func TestParseFallbackMapNeverLogsKeys(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	ParseFallbackMap(`{"sk-secret-value": [], "sk-other": {}}`, logger)

	if strings.Contains(logs.String(), "sk-secret-value") {
		t.Errorf("log output leaks credential: %s", logs.String())
	}
}

func TestCredentialMapEncodeRoundTrip(t *testing.T) {
	proj := "p"
	m := CredentialMap{
		"sk-a": {ServiceAccount: []byte(`{"k":"v"}`), ProjectID: &proj},
		"sk-b": {},
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, skipped, err := DecodeCredentialMap(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(skipped) != 0 || len(got) != 2 {
		t.Fatalf("got %d entries, %d skipped", len(got), len(skipped))
	}
	if got["sk-a"].ServiceAccountText() != `{"k":"v"}` || *got["sk-a"].ProjectID != "p" {
		t.Errorf("sk-a = %+v", got["sk-a"])
	}
	if got["sk-b"].HasServiceAccount() || got["sk-b"].ProjectID != nil {
		t.Errorf("sk-b gained fields: %+v", got["sk-b"])
	}

	var nilMap CredentialMap
	if data, _ := nilMap.Encode(); string(data) != "{}" {
		t.Errorf("nil map encodes to %q, want {}", data)
	}
}

func TestServiceAccountTextCompacts(t *testing.T) {
	p := ProviderConfig{ServiceAccount: []byte("{\n  \"a\": 1\n}")}
	if got := p.ServiceAccountText(); got != `{"a":1}` {
		t.Errorf("ServiceAccountText = %q", got)
	}
}

func TestEnvironmentContext(t *testing.T) {
	if _, ok := EnvironmentFromContext(context.Background()); ok {
		t.Error("empty context reported an environment")
	}

	env := Environment{Secret: "s", ProjectID: "p"}
	got, ok := EnvironmentFromContext(WithEnvironment(context.Background(), env))
	if !ok || got != env {
		t.Errorf("got %+v, %v", got, ok)
	}
}
