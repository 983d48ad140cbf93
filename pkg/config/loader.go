package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/dialekt/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, DIALEKT_CONFIG env, ./config.yaml, /etc/dialekt/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. DIALEKT_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/dialekt/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("DIALEKT_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/dialekt/config.yaml",
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

// applyEnvOverrides maps DIALEKT_* environment variables to config fields.
// Malformed numbers and durations are reported instead of ignored.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"DIALEKT_BACKEND_URL":      &cfg.Backend.URL,
		"DIALEKT_BACKEND_AUTH":     &cfg.Backend.Auth,
		"DIALEKT_API_KEY":          &cfg.Backend.APIKey,
		"DIALEKT_JWT_SECRET":       &cfg.Backend.JWTSecret,
		"DIALEKT_JWT_ISSUER":       &cfg.Backend.JWTIssuer,
		"DIALEKT_MODEL":            &cfg.Backend.DefaultModel,
		"DIALEKT_COMPLETIONS_PATH": &cfg.Backend.CompletionsPath,
		"DIALEKT_LOG_FORMAT":       &cfg.Logging.Format,
	}
	for name, field := range strs {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("DIALEKT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DIALEKT_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if v := os.Getenv("DIALEKT_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DIALEKT_REQUESTS_PER_SECOND: %w", err)
		}
		cfg.Backend.RequestsPerSecond = rps
	}

	durations := map[string]*time.Duration{
		"DIALEKT_HEARTBEAT_INTERVAL": &cfg.Stream.HeartbeatInterval,
		"DIALEKT_BACKEND_TIMEOUT":    &cfg.Backend.Timeout,
	}
	for name, field := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*field = d
		}
	}

	// DIALEKT_CORS_ORIGINS: comma-separated list of allowed origins.
	if v := os.Getenv("DIALEKT_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	return nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// backend.api_key_file -> backend.api_key
	if cfg.Backend.APIKeyFile != "" && cfg.Backend.APIKey == "" {
		val, err := readSecretFile(cfg.Backend.APIKeyFile)
		if err != nil {
			return fmt.Errorf("backend.api_key_file: %w", err)
		}
		cfg.Backend.APIKey = val
	}

	// backend.jwt_secret_file -> backend.jwt_secret
	if cfg.Backend.JWTSecretFile != "" && cfg.Backend.JWTSecret == "" {
		val, err := readSecretFile(cfg.Backend.JWTSecretFile)
		if err != nil {
			return fmt.Errorf("backend.jwt_secret_file: %w", err)
		}
		cfg.Backend.JWTSecret = val
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
