package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ProviderConfig is the downstream identity activated by a tenant key.
// Both fields are optional and checked independently.
type ProviderConfig struct {
	// ServiceAccount is the raw service-account JSON payload. Nil means absent.
	ServiceAccount json.RawMessage `json:"GCP_SERVICE_ACCOUNT,omitempty"`

	// ProjectID is the provider project. Nil means absent.
	ProjectID *string `json:"GEMINI_PROJECT_ID,omitempty"`
}

// UnmarshalJSON decodes a provider entry. A project id that is not a JSON
// string is kept as its compact JSON text.
func (p *ProviderConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		ServiceAccount json.RawMessage `json:"GCP_SERVICE_ACCOUNT"`
		ProjectID      json.RawMessage `json:"GEMINI_PROJECT_ID"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ServiceAccount = raw.ServiceAccount
	p.ProjectID = nil

	id := bytes.TrimSpace(raw.ProjectID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		// Absent.
	case id[0] == '"':
		var s string
		if err := json.Unmarshal(id, &s); err != nil {
			return err
		}
		p.ProjectID = &s
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, id); err != nil {
			return err
		}
		s := buf.String()
		p.ProjectID = &s
	}
	return nil
}

// HasServiceAccount reports whether a non-null payload is present.
func (p ProviderConfig) HasServiceAccount() bool {
	return len(p.ServiceAccount) > 0 && !bytes.Equal(bytes.TrimSpace(p.ServiceAccount), []byte("null"))
}

// ServiceAccountText returns the payload as compact JSON text.
func (p ProviderConfig) ServiceAccountText() string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, p.ServiceAccount); err != nil {
		return string(p.ServiceAccount)
	}
	return buf.String()
}

// CredentialMap maps an issued tenant key to its provider configuration.
type CredentialMap map[string]ProviderConfig

// Lookup returns the configuration for key.
func (m CredentialMap) Lookup(key string) (ProviderConfig, bool) {
	p, ok := m[key]
	return p, ok
}

// Encode serializes the map in the format DecodeCredentialMap reads.
func (m CredentialMap) Encode() ([]byte, error) {
	if m == nil {
		m = CredentialMap{}
	}
	return json.Marshal(m)
}

// DecodeCredentialMap parses a JSON object of key -> provider config.
// The top level must be an object or null. A literal null decodes to a nil
// map, which callers treat as absent. Entries that are not JSON objects are
// skipped and returned as the second value so callers can log them.
func DecodeCredentialMap(data []byte) (CredentialMap, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decoding credential map: %w", err)
	}
	if raw == nil {
		return nil, nil, nil
	}

	m := make(CredentialMap, len(raw))
	var skipped []string
	for key, entry := range raw {
		trimmed := bytes.TrimSpace(entry)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			skipped = append(skipped, key)
			continue
		}
		var p ProviderConfig
		if err := json.Unmarshal(trimmed, &p); err != nil {
			skipped = append(skipped, key)
			continue
		}
		m[key] = p
	}
	return m, skipped, nil
}

// ParseFallbackMap parses the configured fallback map. Empty or
// unparseable input yields an empty map; parsing never fails.
func ParseFallbackMap(raw string, logger *slog.Logger) CredentialMap {
	if logger == nil {
		logger = slog.Default()
	}
	if len(bytes.TrimSpace([]byte(raw))) == 0 {
		return CredentialMap{}
	}

	m, skipped, err := DecodeCredentialMap([]byte(raw))
	if err != nil {
		logger.Warn("fallback credential map is not valid JSON, using empty map", "error", err)
		return CredentialMap{}
	}
	if m == nil {
		return CredentialMap{}
	}
	if len(skipped) > 0 {
		logger.Warn("fallback credential map has malformed entries", "skipped", len(skipped))
	}
	return m
}
