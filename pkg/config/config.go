package config

import "time"

// Config is the root configuration structure for Warden.
// It holds the policy table, engine behaviour, presentation settings and the
// supporting evidence, HTTP and telemetry sections.
type Config struct {
	// Engine controls how operations are installed and how denials are
	// reported to the host.
	Engine EngineConfig `yaml:"engine"`

	// Trust is the default allow-list for trust_gate policies.
	Trust TrustConfig `yaml:"trust"`

	// RateLimit holds the default threshold and window for rate_limit
	// policies that do not set their own.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Operations is the policy table: one entry per wrapped operation.
	Operations []OperationConfig `yaml:"operations"`

	// Notify selects how notifications and confirmations reach the user.
	Notify NotifyConfig `yaml:"notify"`

	// Extension describes the registration metadata exposed to the host.
	Extension ExtensionConfig `yaml:"extension"`

	// Server contains the HTTP surface configuration.
	Server ServerConfig `yaml:"server"`

	// Evidence contains configuration for the decision audit trail.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains interception engine settings.
type EngineConfig struct {
	// OnDuplicate selects what installing an already installed operation
	// does: "error" fails the install, "ignore" leaves the first wrapper.
	// Default: "error"
	OnDuplicate string `yaml:"on_duplicate"`

	// DenialErrors makes wrappers return the denial cause as an error
	// instead of a nil error.
	// Default: false
	DenialErrors bool `yaml:"denial_errors"`

	// ConfirmTimeout bounds how long a confirmation may wait for an answer.
	// Expiry counts as a denial. Zero waits indefinitely.
	// Default: 0
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
}

// TrustConfig is the default trust gate configuration.
type TrustConfig struct {
	// Origins are the trusted resource prefixes (or substrings).
	Origins []string `yaml:"origins"`

	// Match is "prefix" or "substring".
	// Default: "prefix"
	Match string `yaml:"match"`

	// Remember is "none" to prompt on every untrusted call, or "session" to
	// remember approved references until the process exits.
	// Default: "none"
	Remember string `yaml:"remember"`
}

// RateLimitConfig is a threshold per window.
type RateLimitConfig struct {
	// Threshold is the number of calls allowed per window.
	// Default: 10
	Threshold int `yaml:"threshold"`

	// Window is the window duration.
	// Default: 1s
	Window time.Duration `yaml:"window"`
}

// OperationConfig binds a policy chain to one operation of one owner.
type OperationConfig struct {
	// Owner names the host object.
	Owner string `yaml:"owner"`

	// Operation is the operation name on the owner.
	Operation string `yaml:"operation"`

	// Result is the value returned for suppressed calls: "absent" or "false".
	// Default: "absent"
	Result string `yaml:"result"`

	// Policies run in order; the first denial wins.
	Policies []PolicyConfig `yaml:"policies"`
}

// PolicyConfig configures one step in a policy chain. Which fields apply
// depends on Kind.
type PolicyConfig struct {
	// Kind is "rate_limit", "validate" or "trust_gate".
	Kind string `yaml:"kind"`

	// Channel is the rate limit channel. Operations sharing a channel share
	// one window. Default: the operation name.
	Channel string `yaml:"channel"`

	// Threshold and Window override the rate_limit defaults.
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`

	// Arg is the zero-based index of the argument inspected by validate and
	// trust_gate policies.
	Arg int `yaml:"arg"`

	// Field selects an entry when the argument is a map.
	Field string `yaml:"field"`

	// Constraint is the validate policy's check.
	Constraint ConstraintConfig `yaml:"constraint"`

	// Origins, Match and Remember override the trust defaults.
	Origins  []string `yaml:"origins"`
	Match    string   `yaml:"match"`
	Remember string   `yaml:"remember"`

	// Prompt is the confirmation question; %s is replaced with the resource.
	Prompt string `yaml:"prompt"`
}

// ConstraintConfig is the declarative form of a value constraint.
type ConstraintConfig struct {
	// Type is "number", "integer", "string" or "bool".
	Type string `yaml:"type"`

	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`

	// Enum lists the accepted values.
	Enum []any `yaml:"enum"`

	// Pattern is a regular expression strings must match.
	Pattern string `yaml:"pattern"`

	MinLength *int `yaml:"min_length"`
	MaxLength *int `yaml:"max_length"`
}

// IsZero reports whether no check is configured.
func (c ConstraintConfig) IsZero() bool {
	return c.Type == "" && c.Min == nil && c.Max == nil && len(c.Enum) == 0 &&
		c.Pattern == "" && c.MinLength == nil && c.MaxLength == nil
}

// NotifyConfig selects the notification sink.
type NotifyConfig struct {
	// Mode is "log" (headless), "terminal" (prompt on stdin/stderr) or
	// "static" (fixed answers, for simulations).
	// Default: "log"
	Mode string `yaml:"mode"`

	// DefaultAnswer is the answer given by "log" and "static" sinks.
	// Default: false
	DefaultAnswer bool `yaml:"default_answer"`
}

// ExtensionConfig is the registration metadata of the engine.
type ExtensionConfig struct {
	// ID is the alphanumeric extension identifier.
	// Default: "warden"
	ID string `yaml:"id"`

	// Name is the display name.
	// Default: "Warden"
	Name string `yaml:"name"`

	// Capabilities are the blocks advertised to the host.
	Capabilities []CapabilityConfig `yaml:"capabilities"`
}

// CapabilityConfig is one advertised block.
type CapabilityConfig struct {
	Opcode string `yaml:"opcode"`

	// Kind is "command", "reporter", "boolean" or "hat".
	Kind string `yaml:"kind"`

	Text string `yaml:"text"`
}

// ServerConfig contains configuration for the HTTP surface.
type ServerConfig struct {
	// Enabled starts the HTTP server in "warden run".
	Enabled bool `yaml:"enabled"`

	// ListenAddress is "host:port".
	// Default: "127.0.0.1:8787"
	ListenAddress string `yaml:"listen_address"`

	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Default: 60s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Auth protects the /v1 routes with API tokens.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures token authentication of the HTTP API.
type AuthConfig struct {
	// Enabled requires a valid token on every /v1 request.
	Enabled bool `yaml:"enabled"`

	Tokens []TokenConfig `yaml:"tokens"`
}

// TokenConfig is one accepted API token.
type TokenConfig struct {
	Name     string `yaml:"name"`
	Token    string `yaml:"token"`
	Disabled bool   `yaml:"disabled"`
}

// EvidenceConfig contains configuration for decision records.
type EvidenceConfig struct {
	// Enabled turns decision recording on.
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Retention RetentionConfig `yaml:"retention"`
	Query     QueryConfig     `yaml:"query"`
}

// SQLiteConfig contains SQLite storage settings.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/warden.db"
	Path string `yaml:"path"`

	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// JournalMode is the SQLite journal mode.
	// Default: "WAL"
	JournalMode string `yaml:"journal_mode"`

	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains settings for the asynchronous recorder.
type RecorderConfig struct {
	// AsyncBuffer is the queue length; zero records synchronously.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains pruning settings.
type RetentionConfig struct {
	// Days is how long records are kept. Zero keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a standard five-field cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the number of stored records. Zero means no cap.
	MaxRecords int64 `yaml:"max_records"`

	// ArchivePath, if set, is a directory that receives a JSON export of
	// every batch before it is pruned.
	ArchivePath string `yaml:"archive_path"`
}

// QueryConfig contains query limits.
type QueryConfig struct {
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json", "text" or "console".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks tokens and URL credentials in log values.
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns adds custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled records metrics and serves them on Path.
	Enabled bool `yaml:"enabled"`

	// Default: "/metrics"
	Path string `yaml:"path"`

	// Default: "warden"
	Namespace string `yaml:"namespace"`

	// Subsystem is an optional metric name infix.
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are the histogram buckets in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// MaxCardinality caps distinct owner/operation label pairs.
	// Default: 1000
	MaxCardinality int `yaml:"max_cardinality"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the "ratio" sampler.
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter is "otlp".
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Default: "warden"
	ServiceName string `yaml:"service_name"`

	// Default: "dev"
	ServiceVersion string `yaml:"service_version"`

	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter settings.
type OTLPConfig struct {
	Insecure bool `yaml:"insecure"`

	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	Headers map[string]string `yaml:"headers"`
}
