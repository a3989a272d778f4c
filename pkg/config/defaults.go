package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultOnDuplicate = "error"

	// Trust defaults
	DefaultTrustMatch    = "prefix"
	DefaultTrustRemember = "none"

	// Rate limit defaults
	DefaultRateLimitThreshold = 10
	DefaultRateLimitWindow    = time.Second

	// Operation defaults
	DefaultOperationResult = "absent"

	// Notify defaults
	DefaultNotifyMode = "log"

	// Extension defaults
	DefaultExtensionID   = "warden"
	DefaultExtensionName = "Warden"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8787"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second

	// Evidence defaults
	DefaultEvidenceBackend              = "memory"
	DefaultEvidenceSQLitePath           = "data/warden.db"
	DefaultEvidenceSQLiteDriver         = "sqlite"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteJournalMode    = "WAL"
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second
	DefaultEvidenceRetentionDays        = 30
	DefaultEvidenceRetentionSchedule    = "0 3 * * *"
	DefaultEvidenceQueryDefaultLimit    = 100
	DefaultEvidenceQueryMaxLimit        = 10000

	// Telemetry defaults
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "json"
	DefaultMetricsPath           = "/metrics"
	DefaultMetricsNamespace      = "warden"
	DefaultMetricsMaxCardinality = 1000
	DefaultTracingSampler        = "always"
	DefaultTracingExporter       = "otlp"
	DefaultTracingEndpoint       = "localhost:4317"
	DefaultTracingServiceName    = "warden"
	DefaultTracingServiceVersion = "dev"
	DefaultTracingOTLPTimeout    = 10 * time.Second
)

// DefaultDurationBuckets are the histogram buckets for policy evaluation and
// call latency, in seconds. Confirmation waits can take many seconds.
var DefaultDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// ApplyDefaults fills every unset field with its default value. Policies
// inherit the top-level trust and rate_limit settings they do not override.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.OnDuplicate == "" {
		cfg.Engine.OnDuplicate = DefaultOnDuplicate
	}

	// Trust defaults
	if cfg.Trust.Match == "" {
		cfg.Trust.Match = DefaultTrustMatch
	}
	if cfg.Trust.Remember == "" {
		cfg.Trust.Remember = DefaultTrustRemember
	}

	// Rate limit defaults
	if cfg.RateLimit.Threshold == 0 {
		cfg.RateLimit.Threshold = DefaultRateLimitThreshold
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}

	// Policy table defaults
	for i := range cfg.Operations {
		op := &cfg.Operations[i]
		if op.Result == "" {
			op.Result = DefaultOperationResult
		}
		for j := range op.Policies {
			applyPolicyDefaults(cfg, &op.Policies[j])
		}
	}

	// Notify defaults
	if cfg.Notify.Mode == "" {
		cfg.Notify.Mode = DefaultNotifyMode
	}

	// Extension defaults
	if cfg.Extension.ID == "" {
		cfg.Extension.ID = DefaultExtensionID
	}
	if cfg.Extension.Name == "" {
		cfg.Extension.Name = DefaultExtensionName
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	applyEvidenceDefaults(&cfg.Evidence)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyPolicyDefaults(cfg *Config, p *PolicyConfig) {
	switch p.Kind {
	case "rate_limit":
		if p.Threshold == 0 {
			p.Threshold = cfg.RateLimit.Threshold
		}
		if p.Window == 0 {
			p.Window = cfg.RateLimit.Window
		}
	case "trust_gate":
		if p.Origins == nil {
			p.Origins = append([]string(nil), cfg.Trust.Origins...)
		}
		if p.Match == "" {
			p.Match = cfg.Trust.Match
		}
		if p.Remember == "" {
			p.Remember = cfg.Trust.Remember
		}
	}
}

func applyEvidenceDefaults(cfg *EvidenceConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultEvidenceBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultEvidenceSQLiteDriver
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if cfg.SQLite.MaxIdleConns == 0 {
		cfg.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if cfg.SQLite.JournalMode == "" {
		cfg.SQLite.JournalMode = DefaultEvidenceSQLiteJournalMode
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if cfg.Recorder.AsyncBuffer == 0 {
		cfg.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if cfg.Recorder.WriteTimeout == 0 {
		cfg.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultEvidenceRetentionDays
	}
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = DefaultEvidenceRetentionSchedule
	}
	if cfg.Query.DefaultLimit == 0 {
		cfg.Query.DefaultLimit = DefaultEvidenceQueryDefaultLimit
	}
	if cfg.Query.MaxLimit == 0 {
		cfg.Query.MaxLimit = DefaultEvidenceQueryMaxLimit
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.DurationBuckets) == 0 {
		cfg.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Metrics.MaxCardinality == 0 {
		cfg.Metrics.MaxCardinality = DefaultMetricsMaxCardinality
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.ServiceVersion == "" {
		cfg.Tracing.ServiceVersion = DefaultTracingServiceVersion
	}
	if cfg.Tracing.OTLP.Timeout == 0 {
		cfg.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}
