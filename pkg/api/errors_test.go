package api

import (
	"encoding/json"
	"testing"
)

func TestAPIErrorInterface(t *testing.T) {
	var _ error = &APIError{}
}

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with code",
			&APIError{Type: ErrorTypeAuthentication, Code: CodeInvalidAPIKey, Message: "Invalid API key"},
			"authentication_error: Invalid API key (code: invalid_api_key)",
		},
		{
			"without code",
			&APIError{Type: ErrorTypeServerError, Message: "internal failure"},
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewAuthenticationError(t *testing.T) {
	err := NewAuthenticationError(CodeMissingAuthorization, "Missing Authorization header")
	if err.Type != ErrorTypeAuthentication {
		t.Errorf("Type = %q, want %q", err.Type, ErrorTypeAuthentication)
	}
	if err.Code != CodeMissingAuthorization {
		t.Errorf("Code = %q, want %q", err.Code, CodeMissingAuthorization)
	}
}

func TestErrorResponseWireFormat(t *testing.T) {
	resp := ErrorResponse{Error: NewAuthenticationError(CodeInvalidAPIKey, "Invalid API key")}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"error":{"message":"Invalid API key","type":"authentication_error","code":"invalid_api_key"}}`
	if string(data) != want {
		t.Errorf("body = %s, want %s", data, want)
	}
}

func TestErrorResponseOmitsEmptyCode(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: NewNotFoundError("no upstream configured")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["error"]["code"]; ok {
		t.Errorf("code present in %s, want omitted", data)
	}
}
