// Command server runs the keygate authentication gate.
//
// Configuration is read from a YAML file (see pkg/config) with
// environment variable overrides:
//
//	KEYGATE_CONFIG         - Config file path
//	KEYGATE_PORT           - Listen port (default: 8080)
//	KEYGATE_SECRET         - Static API secret; empty disables authentication
//	KEYGATE_CREDENTIAL_MAP - Fallback credential map JSON
//	KEYGATE_STORAGE        - Store type: "memory", "redis", or "postgres"
//	KEYGATE_REDIS_URL      - Redis URL for storage type "redis"
//	KEYGATE_POSTGRES_DSN   - PostgreSQL DSN for storage type "postgres"
//	KEYGATE_UPSTREAM_URL   - Upstream to forward authenticated requests to
//	KEYGATE_OTLP_ENDPOINT  - OTLP gRPC collector; enables tracing
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rhuss/keygate/pkg/auth"
	"github.com/rhuss/keygate/pkg/config"
	"github.com/rhuss/keygate/pkg/debug"
	"github.com/rhuss/keygate/pkg/observability"
	"github.com/rhuss/keygate/pkg/storage"
	"github.com/rhuss/keygate/pkg/storage/memory"
	"github.com/rhuss/keygate/pkg/storage/postgres"
	"github.com/rhuss/keygate/pkg/storage/redis"
	transporthttp "github.com/rhuss/keygate/pkg/transport/http"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	debug.Init(debug.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Categories: cfg.Logging.Debug,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:      cfg.Observability.Tracing.Enabled,
		Endpoint:     cfg.Observability.Tracing.Endpoint,
		ServiceName:  cfg.Observability.Tracing.ServiceName,
		SamplingRate: cfg.Observability.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.Storage.Type, err)
	}
	defer store.Close()

	gate := auth.NewGate(store,
		auth.WithPublicPaths(cfg.Auth.PublicPaths...),
		auth.WithMapKey(cfg.Auth.MapKey),
		auth.WithTokenKey(cfg.Auth.TokenKey),
		auth.WithFallbackMap(cfg.Auth.CredentialMap),
	)

	base := auth.Environment{
		Secret:         cfg.Auth.Secret,
		ServiceAccount: cfg.Auth.ServiceAccount,
		ProjectID:      cfg.Auth.ProjectID,
	}
	if base.Secret == "" {
		slog.Warn("no API secret configured, authentication is disabled")
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithVersion(version),
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithMetricsPath(cfg.Observability.Metrics.Path))
	} else {
		opts = append(opts, transporthttp.WithMetricsPath(""))
	}
	if cfg.Upstream.URL != "" {
		proxy, err := transporthttp.NewUpstreamProxy(cfg.Upstream.URL, slog.Default())
		if err != nil {
			return err
		}
		opts = append(opts, transporthttp.WithUpstream(proxy))
	}

	srv := transporthttp.NewServer(gate, base, opts...)

	slog.Info("keygate starting",
		"version", version,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Type,
		"upstream", cfg.Upstream.URL,
		"auth_enabled", base.Secret != "",
		"public_paths", cfg.Auth.PublicPaths,
		"debug", debug.Categories(),
	)
	return srv.Run(ctx)
}

// openStore creates the configured backend and wraps it with tracing and
// metrics.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	var (
		s   storage.Store
		err error
	)

	switch cfg.Type {
	case "memory":
		s, err = memory.New(cfg.MaxSize)
	case "redis":
		s, err = redis.New(ctx, redis.Config{
			URL:       cfg.Redis.URL,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		})
	case "postgres":
		s, err = postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("storage enabled", "type", cfg.Type)
	return storage.Instrument(s, cfg.Type), nil
}
