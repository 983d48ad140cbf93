// Package config provides unified configuration for the dialekt gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (DIALEKT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Backend authentication modes.
const (
	AuthNone   = "none"
	AuthAPIKey = "apikey"
	AuthJWT    = "jwt"
)

// Config holds all configuration for the dialekt gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Stream        StreamConfig        `yaml:"stream"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 0 (streams may run long)
	IdleTimeout     time.Duration `yaml:"idle_timeout"`     // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
	CORSOrigins     []string      `yaml:"cors_origins"`     // empty disables CORS
	MaxMessages     int           `yaml:"max_messages"`     // default: 2048
	MaxTools        int           `yaml:"max_tools"`        // default: 128

	// RequestsPerSecond limits inbound chat completions. Zero disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// BackendConfig holds the canonical completions backend settings.
type BackendConfig struct {
	URL               string        `yaml:"url"`              // required
	CompletionsPath   string        `yaml:"completions_path"` // default: /v1/chat/completions
	ModelsPath        string        `yaml:"models_path"`      // default: /v1/models
	Auth              string        `yaml:"auth"`             // "none", "apikey" or "jwt", default: "none"
	APIKey            string        `yaml:"api_key"`
	APIKeyFile        string        `yaml:"api_key_file"` // _file variant for api_key
	JWTSecret         string        `yaml:"jwt_secret"`
	JWTSecretFile     string        `yaml:"jwt_secret_file"` // _file variant for jwt_secret
	JWTIssuer         string        `yaml:"jwt_issuer"`      // default: "dialekt"
	JWTTTL            time.Duration `yaml:"jwt_ttl"`         // default: 5m
	Timeout           time.Duration `yaml:"timeout"`         // default: 120s
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	DefaultModel      string        `yaml:"default_model"`
}

// StreamConfig holds SSE transcoder settings.
type StreamConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // default: 5s
	BufferSize        int           `yaml:"buffer_size"`        // default: 8
}

// LoggingConfig holds log output settings. DIALEKT_LOG_LEVEL and
// DIALEKT_DEBUG take precedence at startup.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
			MaxMessages:     2048,
			MaxTools:        128,
		},
		Backend: BackendConfig{
			CompletionsPath: "/v1/chat/completions",
			ModelsPath:      "/v1/models",
			Auth:            AuthNone,
			JWTIssuer:       "dialekt",
			JWTTTL:          5 * time.Minute,
			Timeout:         120 * time.Second,
		},
		Stream: StreamConfig{
			HeartbeatInterval: 5 * time.Second,
			BufferSize:        8,
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
		},
	}
}
