package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/rhuss/keygate/pkg/api"
	"github.com/rhuss/keygate/pkg/auth"
)

func TestHealthAndInfoArePublic(t *testing.T) {
	resp := do(t, "GET", "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health status = %d, want 200", resp.StatusCode)
	}

	resp = do(t, "GET", "/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/ status = %d, want 200", resp.StatusCode)
	}
	var info map[string]string
	json.NewDecoder(resp.Body).Decode(&info)
	if info["version"] != "integration" {
		t.Errorf("info = %v", info)
	}
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", api.CodeMissingAuthorization},
		{"wrong scheme", "Token abc", api.CodeInvalidAuthorizationFormat},
		{"scheme only", "Bearer", api.CodeInvalidAuthorizationFormat},
		{"unknown key", "Bearer sk-nobody", api.CodeInvalidAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("POST", testEnv.Keygate.URL+"/v1/chat/completions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
			apiErr := decodeError(t, resp)
			if apiErr.Type != api.ErrorTypeAuthentication || apiErr.Code != tt.code {
				t.Errorf("error = %+v, want code %q", apiErr, tt.code)
			}
		})
	}
}

func TestStaticSecretForwardsWithDefaultProject(t *testing.T) {
	resetRedis(t)

	resp := do(t, "GET", "/v1/models", masterSecret)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"object":"list","data":[]}` {
		t.Errorf("body = %q", body)
	}

	last, _ := testEnv.Recorder.Last()
	if last.Authorization != "" {
		t.Errorf("Authorization forwarded upstream: %q", last.Authorization)
	}
	if last.Project != "default-proj" {
		t.Errorf("project = %q, want default-proj", last.Project)
	}
	if last.Path != "/v1/models" {
		t.Errorf("path = %q", last.Path)
	}

	// The static path never consults the store.
	if testEnv.Redis.Exists(keyPrefix + auth.DefaultMapKey) {
		t.Error("static request seeded the credential map")
	}
}

func TestDynamicKeySeedsStoreAndClearsToken(t *testing.T) {
	resetRedis(t)
	testEnv.Redis.Set(keyPrefix+auth.DefaultTokenKey, "ya29.stale")

	resp := do(t, "POST", "/v1/chat/completions", "sk-tenant-a")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	last, _ := testEnv.Recorder.Last()
	if last.Project != "proj-a" {
		t.Errorf("project = %q, want proj-a", last.Project)
	}

	if !testEnv.Redis.Exists(keyPrefix + auth.DefaultMapKey) {
		t.Fatal("credential map was not seeded")
	}
	seeded, err := testEnv.Redis.Get(keyPrefix + auth.DefaultMapKey)
	if err != nil {
		t.Fatalf("reading seeded map: %v", err)
	}
	m, _, err := auth.DecodeCredentialMap([]byte(seeded))
	if err != nil || len(m) != 2 {
		t.Errorf("seeded map = %q (%v)", seeded, err)
	}

	if testEnv.Redis.Exists(keyPrefix + auth.DefaultTokenKey) {
		t.Error("cached token survived a dynamic-key request")
	}
}

func TestCachedMapTakesPrecedenceOverFallback(t *testing.T) {
	resetRedis(t)
	testEnv.Redis.Set(keyPrefix+auth.DefaultMapKey, `{"sk-rotated": {"GEMINI_PROJECT_ID": "proj-rotated"}}`)

	resp := do(t, "GET", "/v1/models", "sk-tenant-b")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("fallback-only key: status = %d, want 401", resp.StatusCode)
	}

	resp = do(t, "GET", "/v1/models", "sk-rotated")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rotated key: status = %d, want 200", resp.StatusCode)
	}
	last, _ := testEnv.Recorder.Last()
	if last.Project != "proj-rotated" {
		t.Errorf("project = %q, want proj-rotated", last.Project)
	}
}

func TestStoreOutageStillAuthenticatesFromFallback(t *testing.T) {
	resetRedis(t)
	testEnv.Redis.SetError("ERR injected outage")
	defer testEnv.Redis.SetError("")

	resp := do(t, "GET", "/v1/models", "sk-tenant-b")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	last, _ := testEnv.Recorder.Last()
	if last.Project != "proj-b" {
		t.Errorf("project = %q, want proj-b", last.Project)
	}
}

func TestRepeatedDynamicRequests(t *testing.T) {
	resetRedis(t)

	for i := 0; i < 3; i++ {
		resp := do(t, "GET", "/v1/models", "sk-tenant-b")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, resp.StatusCode)
		}
	}
}
