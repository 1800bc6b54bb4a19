// Package config provides unified configuration for the keygate service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (KEYGATE_ prefix)
//  4. Legacy env var names from earlier deployments
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Config holds all configuration for the keygate service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LoggingConfig selects the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR, default: INFO
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// AuthConfig holds the gate settings.
type AuthConfig struct {
	// Secret is the static API secret. Empty disables authentication.
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret

	// CredentialMap is the fallback JSON map of tenant key -> provider config,
	// used to seed the store.
	CredentialMap     string `yaml:"credential_map"`
	CredentialMapFile string `yaml:"credential_map_file"` // _file variant for credential_map

	MapKey      string   `yaml:"map_key"`      // default: "GEMINI_PROJECT_MAP"
	TokenKey    string   `yaml:"token_key"`    // default: "gemini_token"
	PublicPaths []string `yaml:"public_paths"` // default: ["/", "/health"]

	// ServiceAccount and ProjectID are the process-wide provider defaults
	// used by static-secret requests.
	ServiceAccount     string `yaml:"service_account"`
	ServiceAccountFile string `yaml:"service_account_file"` // _file variant for service_account
	ProjectID          string `yaml:"project_id"`
}

// StorageConfig holds credential store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory", "redis", or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 1024
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	URLFile   string        `yaml:"url_file"`   // _file variant for url
	KeyPrefix string        `yaml:"key_prefix"` // default: "keygate:"
	TTL       time.Duration `yaml:"ttl"`        // 0 means no expiry
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// UpstreamConfig holds the reverse proxy target.
type UpstreamConfig struct {
	URL string `yaml:"url"` // empty disables proxying
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // default: false
	Endpoint     string  `yaml:"endpoint"`      // OTLP gRPC endpoint, default: "localhost:4317"
	ServiceName  string  `yaml:"service_name"`  // default: "keygate"
	SamplingRate float64 `yaml:"sampling_rate"` // default: 1.0
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			MapKey:      "GEMINI_PROJECT_MAP",
			TokenKey:    "gemini_token",
			PublicPaths: []string{"/", "/health"},
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 1024,
			Redis: RedisConfig{
				KeyPrefix: "keygate:",
			},
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Endpoint:     "localhost:4317",
				ServiceName:  "keygate",
				SamplingRate: 1.0,
			},
		},
	}
}
