package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/keygate/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, KEYGATE_CONFIG env, ./config.yaml, /etc/keygate/config.yaml)
//  3. Environment variable overrides, then legacy names
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. KEYGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/keygate/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("KEYGATE_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/keygate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
// Legacy names apply only when the KEYGATE_ name is unset.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KEYGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := envOrLegacy("KEYGATE_SECRET", "OPENAI_API_KEY"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := envOrLegacy("KEYGATE_CREDENTIAL_MAP", "GEMINI_PROJECT_MAP"); v != "" {
		cfg.Auth.CredentialMap = v
	}
	if v := envOrLegacy("KEYGATE_SERVICE_ACCOUNT", "GCP_SERVICE_ACCOUNT"); v != "" {
		cfg.Auth.ServiceAccount = v
	}
	if v := envOrLegacy("KEYGATE_PROJECT_ID", "GEMINI_PROJECT_ID"); v != "" {
		cfg.Auth.ProjectID = v
	}
	if v := os.Getenv("KEYGATE_PUBLIC_PATHS"); v != "" {
		cfg.Auth.PublicPaths = splitList(v)
	}

	if v := os.Getenv("KEYGATE_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("KEYGATE_STORAGE_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Storage.MaxSize = size
		}
	}
	if v := os.Getenv("KEYGATE_REDIS_URL"); v != "" {
		cfg.Storage.Redis.URL = v
	}
	if v := os.Getenv("KEYGATE_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}

	if v := os.Getenv("KEYGATE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("KEYGATE_UPSTREAM_URL"); v != "" {
		cfg.Upstream.URL = v
	}

	if v := os.Getenv("KEYGATE_OTLP_ENDPOINT"); v != "" {
		cfg.Observability.Tracing.Endpoint = v
		cfg.Observability.Tracing.Enabled = true
	}
}

// envOrLegacy returns the value of name, falling back to legacy when name
// is unset.
func envOrLegacy(name, legacy string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return os.Getenv(legacy)
}

// splitList parses a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []struct {
		name  string
		file  string
		value *string
	}{
		{"auth.secret_file", cfg.Auth.SecretFile, &cfg.Auth.Secret},
		{"auth.credential_map_file", cfg.Auth.CredentialMapFile, &cfg.Auth.CredentialMap},
		{"auth.service_account_file", cfg.Auth.ServiceAccountFile, &cfg.Auth.ServiceAccount},
		{"storage.redis.url_file", cfg.Storage.Redis.URLFile, &cfg.Storage.Redis.URL},
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.value = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
