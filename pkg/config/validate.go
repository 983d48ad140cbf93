package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/rhuss/dialekt/pkg/debug"
)

// Validate checks the configuration for required fields and valid values.
// All failures are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	// backend.url is required and must be absolute.
	if c.Backend.URL == "" {
		errs = append(errs, fmt.Errorf("backend.url is required"))
	} else if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url must be an absolute URL, got %q", c.Backend.URL))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	switch c.Backend.Auth {
	case AuthNone:
	case AuthAPIKey:
		if c.Backend.APIKey == "" {
			errs = append(errs, fmt.Errorf("backend.api_key or backend.api_key_file is required when backend.auth is %q", AuthAPIKey))
		}
	case AuthJWT:
		if c.Backend.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("backend.jwt_secret or backend.jwt_secret_file is required when backend.auth is %q", AuthJWT))
		}
		if c.Backend.JWTTTL <= 0 {
			errs = append(errs, fmt.Errorf("backend.jwt_ttl must be > 0, got %v", c.Backend.JWTTTL))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.auth must be \"none\", \"apikey\", or \"jwt\", got %q", c.Backend.Auth))
	}

	if c.Server.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("server.requests_per_second must be >= 0, got %v", c.Server.RequestsPerSecond))
	}
	if c.Backend.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("backend.requests_per_second must be >= 0, got %v", c.Backend.RequestsPerSecond))
	}

	if c.Stream.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("stream.heartbeat_interval must be > 0, got %v", c.Stream.HeartbeatInterval))
	}
	if c.Stream.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("stream.buffer_size must be > 0, got %d", c.Stream.BufferSize))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}
	known := debug.Known()
	for _, cat := range splitCategories(c.Logging.Debug) {
		if !slices.Contains(known, cat) {
			errs = append(errs, fmt.Errorf("logging.debug: unknown category %q", cat))
		}
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}

func splitCategories(s string) []string {
	var out []string
	for _, cat := range strings.Split(s, ",") {
		if cat = strings.TrimSpace(strings.ToLower(cat)); cat != "" {
			out = append(out, cat)
		}
	}
	return out
}
