// Command server runs the dialekt chat-completions gateway.
//
// Configuration is read from a YAML file (-config, DIALEKT_CONFIG,
// ./config.yaml or /etc/dialekt/config.yaml) with DIALEKT_* environment
// overrides. The only required setting is the backend URL:
//
//	DIALEKT_BACKEND_URL - canonical completions backend (required)
//	DIALEKT_MODEL       - default model when requests omit one
//	DIALEKT_PORT        - listen port (default: 8080)
//	DIALEKT_DEBUG       - debug categories (backend,convert,dialect,stream,transport,config|all)
//	DIALEKT_LOG_LEVEL   - ERROR, WARN, INFO, DEBUG or TRACE
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/rhuss/dialekt/pkg/api"
	"github.com/rhuss/dialekt/pkg/backend"
	"github.com/rhuss/dialekt/pkg/config"
	"github.com/rhuss/dialekt/pkg/debug"
	"github.com/rhuss/dialekt/pkg/engine"
	"github.com/rhuss/dialekt/pkg/stream"
	transporthttp "github.com/rhuss/dialekt/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
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

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

	client := backend.NewClient(backend.Config{
		BaseURL:           cfg.Backend.URL,
		CompletionsPath:   cfg.Backend.CompletionsPath,
		ModelsPath:        cfg.Backend.ModelsPath,
		Timeout:           cfg.Backend.Timeout,
		Credentials:       credentials(cfg.Backend),
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	})
	defer client.Close()

	eng, err := engine.New(client, engine.Config{
		DefaultModel: cfg.Backend.DefaultModel,
		Validation: api.ValidationConfig{
			MaxMessages: cfg.Server.MaxMessages,
			MaxTools:    cfg.Server.MaxTools,
		},
		Stream: stream.Config{
			HeartbeatInterval: cfg.Stream.HeartbeatInterval,
			BufferSize:        cfg.Stream.BufferSize,
		},
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithIdleTimeout(cfg.Server.IdleTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithRateLimit(cfg.Server.RequestsPerSecond, cfg.Server.Burst),
		transporthttp.WithLogger(slog.Default()),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, transporthttp.WithCORSOrigins(cfg.Server.CORSOrigins...))
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transporthttp.WithMetrics(cfg.Observability.Metrics.Path))
	}

	srv := transporthttp.NewServer(eng, eng, opts...)

	slog.Info("gateway configured",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
		"auth", cfg.Backend.Auth,
		"model", cfg.Backend.DefaultModel,
		"heartbeat", cfg.Stream.HeartbeatInterval,
		"metrics", cfg.Observability.Metrics.Enabled,
	)

	return srv.ListenAndServe()
}

// credentials returns the token source for the configured backend auth mode.
func credentials(cfg config.BackendConfig) backend.TokenSource {
	switch cfg.Auth {
	case config.AuthAPIKey:
		return backend.StaticToken(cfg.APIKey)
	case config.AuthJWT:
		return backend.NewJWTSource([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTTTL)
	default:
		// An API key without an explicit auth mode is still sent.
		if cfg.APIKey != "" {
			return backend.StaticToken(cfg.APIKey)
		}
		return nil
	}
}
