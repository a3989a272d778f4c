package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are ignored; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	return load(path, false)
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention WARDEN_SECTION_FIELD (e.g., WARDEN_SERVER_LISTEN_ADDRESS) and
// take precedence over the file.
//
// The loading sequence is:
//  1. Parse YAML from file
//  2. Apply environment variable overrides
//  3. Apply default values (policies inherit overridden trust settings)
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	return load(path, true)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func load(path string, env bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if env {
		applyEnvOverrides(cfg)
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies WARDEN_* environment variables. Values that fail
// to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Engine overrides
	envString("WARDEN_ENGINE_ON_DUPLICATE", &cfg.Engine.OnDuplicate)
	envBool("WARDEN_ENGINE_DENIAL_ERRORS", &cfg.Engine.DenialErrors)
	envDuration("WARDEN_ENGINE_CONFIRM_TIMEOUT", &cfg.Engine.ConfirmTimeout)

	// Trust overrides
	if val := os.Getenv("WARDEN_TRUST_ORIGINS"); val != "" {
		cfg.Trust.Origins = splitList(val)
	}
	envString("WARDEN_TRUST_MATCH", &cfg.Trust.Match)
	envString("WARDEN_TRUST_REMEMBER", &cfg.Trust.Remember)

	// Rate limit overrides
	envInt("WARDEN_RATE_LIMIT_THRESHOLD", &cfg.RateLimit.Threshold)
	envDuration("WARDEN_RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)

	// Notify overrides
	envString("WARDEN_NOTIFY_MODE", &cfg.Notify.Mode)
	envBool("WARDEN_NOTIFY_DEFAULT_ANSWER", &cfg.Notify.DefaultAnswer)

	// Server overrides
	envBool("WARDEN_SERVER_ENABLED", &cfg.Server.Enabled)
	envString("WARDEN_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envBool("WARDEN_SERVER_AUTH_ENABLED", &cfg.Server.Auth.Enabled)
	if val := os.Getenv("WARDEN_SERVER_AUTH_TOKEN"); val != "" {
		cfg.Server.Auth.Tokens = append(cfg.Server.Auth.Tokens, TokenConfig{Name: "env", Token: val})
	}

	// Evidence overrides
	envBool("WARDEN_EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	envString("WARDEN_EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	envString("WARDEN_EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	envString("WARDEN_EVIDENCE_SQLITE_DRIVER", &cfg.Evidence.SQLite.Driver)
	envInt("WARDEN_EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)

	// Telemetry overrides
	envString("WARDEN_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("WARDEN_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("WARDEN_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("WARDEN_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("WARDEN_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("WARDEN_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
