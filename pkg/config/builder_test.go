package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with a valid configuration
// protecting one rate limited operation.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{
		Operations: []OperationConfig{
			{
				Owner:     "cloud",
				Operation: "setVariable",
				Policies:  []PolicyConfig{{Kind: "rate_limit", Channel: "cloud"}},
			},
		},
	}
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build applies defaults to anything added since construction and returns
// the Config.
func (b *ConfigBuilder) Build() *Config {
	ApplyDefaults(&b.cfg)
	return &b.cfg
}

// WithOperation appends an operation binding.
func (b *ConfigBuilder) WithOperation(op OperationConfig) *ConfigBuilder {
	b.cfg.Operations = append(b.cfg.Operations, op)
	return b
}

// WithoutOperations clears the policy table.
func (b *ConfigBuilder) WithoutOperations() *ConfigBuilder {
	b.cfg.Operations = nil
	return b
}

// WithTrustOrigins sets the top-level allow-list.
func (b *ConfigBuilder) WithTrustOrigins(origins ...string) *ConfigBuilder {
	b.cfg.Trust.Origins = origins
	return b
}

// WithRateLimit sets the top-level rate limit.
func (b *ConfigBuilder) WithRateLimit(threshold int, window time.Duration) *ConfigBuilder {
	b.cfg.RateLimit = RateLimitConfig{Threshold: threshold, Window: window}
	return b
}

// WithEvidenceBackend sets the evidence backend.
func (b *ConfigBuilder) WithEvidenceBackend(backend string) *ConfigBuilder {
	b.cfg.Evidence.Enabled = true
	b.cfg.Evidence.Backend = backend
	return b
}

// WithServer enables the HTTP server on addr.
func (b *ConfigBuilder) WithServer(addr string) *ConfigBuilder {
	b.cfg.Server.Enabled = true
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithLogLevel sets the log level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithTracing enables tracing with the given sampler.
func (b *ConfigBuilder) WithTracing(sampler string, ratio float64) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = true
	b.cfg.Telemetry.Tracing.Sampler = sampler
	b.cfg.Telemetry.Tracing.SampleRatio = ratio
	return b
}

// MinimalConfig returns the smallest valid configuration.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(n int) *int { return &n }
