package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "redis", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"redis\", or \"postgres\", got %q", c.Storage.Type))
	}

	if c.Storage.Type == "memory" && c.Storage.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("storage.max_size must be > 0, got %d", c.Storage.MaxSize))
	}
	if c.Storage.Type == "redis" && c.Storage.Redis.URL == "" {
		errs = append(errs, fmt.Errorf("storage.redis.url or storage.redis.url_file is required when storage.type is \"redis\""))
	}
	if c.Storage.Type == "postgres" && c.Storage.Postgres.DSN == "" {
		errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
	}

	// Store keys must be usable and must not collide.
	if c.Auth.MapKey == "" {
		errs = append(errs, fmt.Errorf("auth.map_key must not be empty"))
	}
	if c.Auth.TokenKey == "" {
		errs = append(errs, fmt.Errorf("auth.token_key must not be empty"))
	}
	if c.Auth.MapKey != "" && c.Auth.MapKey == c.Auth.TokenKey {
		errs = append(errs, fmt.Errorf("auth.map_key and auth.token_key must differ, both are %q", c.Auth.MapKey))
	}

	for i, p := range c.Auth.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, fmt.Errorf("auth.public_paths[%d] must start with \"/\", got %q", i, p))
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	if m := c.Observability.Metrics; m.Enabled {
		if !strings.HasPrefix(m.Path, "/") {
			errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", m.Path))
		}
		if m.Path == "/" || m.Path == "/health" || slices.Contains(c.Auth.PublicPaths, m.Path) {
			errs = append(errs, fmt.Errorf("observability.metrics.path %q collides with a built-in or public path", m.Path))
		}
	}

	if t := c.Observability.Tracing; t.Enabled {
		if t.Endpoint == "" {
			errs = append(errs, fmt.Errorf("observability.tracing.endpoint is required when tracing is enabled"))
		}
		if t.SamplingRate < 0 || t.SamplingRate > 1 {
			errs = append(errs, fmt.Errorf("observability.tracing.sampling_rate must be between 0 and 1, got %v", t.SamplingRate))
		}
	}

	return errors.Join(errs...)
}
