package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "operations[0].policies[1].kind").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateTrust("trust", cfg.Trust.Match, cfg.Trust.Remember)...)
	errs = append(errs, validateWindow("rate_limit", cfg.RateLimit.Threshold, int64(cfg.RateLimit.Window))...)
	errs = append(errs, validateOperations(cfg.Operations)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateExtension(&cfg.Extension)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError
	if !oneOf(cfg.OnDuplicate, "error", "ignore") {
		errs = append(errs, FieldError{
			Field:   "engine.on_duplicate",
			Message: fmt.Sprintf("must be one of: error, ignore (got %q)", cfg.OnDuplicate),
		})
	}
	if cfg.ConfirmTimeout < 0 {
		errs = append(errs, FieldError{Field: "engine.confirm_timeout", Message: "must not be negative"})
	}
	return errs
}

func validateTrust(prefix, match, remember string) []FieldError {
	var errs []FieldError
	if !oneOf(match, "prefix", "substring", "contains") {
		errs = append(errs, FieldError{
			Field:   prefix + ".match",
			Message: fmt.Sprintf("must be one of: prefix, substring (got %q)", match),
		})
	}
	if !oneOf(remember, "none", "session") {
		errs = append(errs, FieldError{
			Field:   prefix + ".remember",
			Message: fmt.Sprintf("must be one of: none, session (got %q)", remember),
		})
	}
	return errs
}

func validateWindow(prefix string, threshold int, window int64) []FieldError {
	var errs []FieldError
	if threshold <= 0 {
		errs = append(errs, FieldError{Field: prefix + ".threshold", Message: "must be positive"})
	}
	if window <= 0 {
		errs = append(errs, FieldError{Field: prefix + ".window", Message: "must be positive"})
	}
	return errs
}

func validateOperations(ops []OperationConfig) []FieldError {
	var errs []FieldError

	type opKey struct{ owner, op string }
	seen := make(map[opKey]int)
	channels := make(map[string]PolicyConfig)
	channelField := make(map[string]string)

	for i, op := range ops {
		field := fmt.Sprintf("operations[%d]", i)

		if op.Owner == "" {
			errs = append(errs, FieldError{Field: field + ".owner", Message: "is required"})
		}
		if op.Operation == "" {
			errs = append(errs, FieldError{Field: field + ".operation", Message: "is required"})
		}
		if op.Owner != "" && op.Operation != "" {
			k := opKey{op.Owner, op.Operation}
			if prev, ok := seen[k]; ok {
				errs = append(errs, FieldError{
					Field:   field,
					Message: fmt.Sprintf("duplicate binding for %s.%s (first defined at operations[%d])", op.Owner, op.Operation, prev),
				})
			} else {
				seen[k] = i
			}
		}
		if !oneOf(op.Result, "absent", "undefined", "nil", "false", "bool", "boolean") {
			errs = append(errs, FieldError{
				Field:   field + ".result",
				Message: fmt.Sprintf("must be one of: absent, false (got %q)", op.Result),
			})
		}
		if len(op.Policies) == 0 {
			errs = append(errs, FieldError{Field: field + ".policies", Message: "at least one policy is required"})
		}

		for j, p := range op.Policies {
			pfield := fmt.Sprintf("%s.policies[%d]", field, j)
			errs = append(errs, validatePolicy(pfield, p)...)

			if p.Kind != "rate_limit" {
				continue
			}
			ch := p.Channel
			if ch == "" {
				ch = op.Operation
			}
			if prev, ok := channels[ch]; ok {
				if prev.Threshold != p.Threshold || prev.Window != p.Window {
					errs = append(errs, FieldError{
						Field: pfield,
						Message: fmt.Sprintf("channel %q already configured at %s with threshold %d window %s",
							ch, channelField[ch], prev.Threshold, prev.Window),
					})
				}
				continue
			}
			channels[ch] = p
			channelField[ch] = pfield
		}
	}

	return errs
}

func validatePolicy(field string, p PolicyConfig) []FieldError {
	var errs []FieldError

	switch p.Kind {
	case "rate_limit":
		errs = append(errs, validateWindow(field, p.Threshold, int64(p.Window))...)
	case "validate":
		if p.Arg < 0 {
			errs = append(errs, FieldError{Field: field + ".arg", Message: "must not be negative"})
		}
		errs = append(errs, validateConstraint(field+".constraint", p.Constraint)...)
	case "trust_gate":
		if p.Arg < 0 {
			errs = append(errs, FieldError{Field: field + ".arg", Message: "must not be negative"})
		}
		errs = append(errs, validateTrust(field, p.Match, p.Remember)...)
		if p.Prompt != "" && strings.Count(p.Prompt, "%s") != 1 {
			errs = append(errs, FieldError{Field: field + ".prompt", Message: "must contain exactly one %s placeholder"})
		}
	case "":
		errs = append(errs, FieldError{Field: field + ".kind", Message: "is required"})
	default:
		errs = append(errs, FieldError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("must be one of: rate_limit, validate, trust_gate (got %q)", p.Kind),
		})
	}

	return errs
}

func validateConstraint(field string, c ConstraintConfig) []FieldError {
	var errs []FieldError

	if c.IsZero() {
		return append(errs, FieldError{Field: field, Message: "at least one check is required"})
	}
	if c.Type != "" && !oneOf(c.Type, "number", "integer", "string", "bool", "boolean") {
		errs = append(errs, FieldError{
			Field:   field + ".type",
			Message: fmt.Sprintf("must be one of: number, integer, string, bool (got %q)", c.Type),
		})
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		errs = append(errs, FieldError{
			Field:   field + ".min",
			Message: fmt.Sprintf("min (%g) must not exceed max (%g)", *c.Min, *c.Max),
		})
	}
	if c.Pattern != "" {
		if _, err := regexp.Compile(c.Pattern); err != nil {
			errs = append(errs, FieldError{Field: field + ".pattern", Message: fmt.Sprintf("invalid regular expression: %v", err)})
		}
	}
	if c.MinLength != nil && *c.MinLength < 0 {
		errs = append(errs, FieldError{Field: field + ".min_length", Message: "must not be negative"})
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		errs = append(errs, FieldError{Field: field + ".min_length", Message: "must not exceed max_length"})
	}

	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	if !oneOf(cfg.Mode, "log", "terminal", "static") {
		return []FieldError{{
			Field:   "notify.mode",
			Message: fmt.Sprintf("must be one of: log, terminal, static (got %q)", cfg.Mode),
		}}
	}
	return nil
}

func validateExtension(cfg *ExtensionConfig) []FieldError {
	var errs []FieldError
	if !extensionIDPattern.MatchString(cfg.ID) {
		errs = append(errs, FieldError{
			Field:   "extension.id",
			Message: fmt.Sprintf("must be lowercase alphanumeric (got %q)", cfg.ID),
		})
	}
	for i, c := range cfg.Capabilities {
		field := fmt.Sprintf("extension.capabilities[%d]", i)
		if c.Opcode == "" {
			errs = append(errs, FieldError{Field: field + ".opcode", Message: "is required"})
		}
		if !oneOf(c.Kind, "command", "reporter", "boolean", "hat") {
			errs = append(errs, FieldError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("must be one of: command, reporter, boolean, hat (got %q)", c.Kind),
			})
		}
	}
	return errs
}

var extensionIDPattern = regexp.MustCompile(`^[a-z0-9]+$`)

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return errs
	}
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address format (expected host:port): %v", err),
		})
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 || cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server", Message: "timeouts must not be negative"})
	}
	return append(errs, validateAuth(&cfg.Auth)...)
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return errs
	}
	if len(cfg.Tokens) == 0 {
		errs = append(errs, FieldError{Field: "server.auth.tokens", Message: "at least one token is required when auth is enabled"})
	}
	names := make(map[string]bool)
	for i, t := range cfg.Tokens {
		field := fmt.Sprintf("server.auth.tokens[%d]", i)
		if t.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "is required"})
		} else if names[t.Name] {
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate token name %q", t.Name)})
		}
		names[t.Name] = true
		if len(t.Token) < minTokenLength {
			errs = append(errs, FieldError{Field: field + ".token", Message: fmt.Sprintf("must be at least %d characters", minTokenLength)})
		}
	}
	return errs
}

const minTokenLength = 16

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	if !oneOf(cfg.Backend, "memory", "sqlite") {
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("must be one of: memory, sqlite (got %q)", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.path", Message: "is required for sqlite backend"})
		}
		if !oneOf(cfg.SQLite.Driver, "sqlite", "sqlite3") {
			errs = append(errs, FieldError{
				Field:   "evidence.sqlite.driver",
				Message: fmt.Sprintf("must be one of: sqlite, sqlite3 (got %q)", cfg.SQLite.Driver),
			})
		}
		if !oneOf(strings.ToUpper(cfg.SQLite.JournalMode), "WAL", "DELETE", "TRUNCATE", "MEMORY", "OFF") {
			errs = append(errs, FieldError{
				Field:   "evidence.sqlite.journal_mode",
				Message: fmt.Sprintf("unsupported journal mode %q", cfg.SQLite.JournalMode),
			})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "evidence.sqlite.max_idle_conns", Message: "must not exceed max_open_conns"})
		}
	}
	if cfg.Recorder.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "evidence.recorder.async_buffer", Message: "must not be negative"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.days", Message: "must not be negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention.max_records", Message: "must not be negative"})
	}
	if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "evidence.retention.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	if cfg.Query.DefaultLimit <= 0 {
		errs = append(errs, FieldError{Field: "evidence.query.default_limit", Message: "must be positive"})
	}
	if cfg.Query.MaxLimit < cfg.Query.DefaultLimit {
		errs = append(errs, FieldError{Field: "evidence.query.max_limit", Message: "must be at least default_limit"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !oneOf(strings.ToLower(cfg.Logging.Level), "debug", "info", "warn", "warning", "error") {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level),
		})
	}
	if !oneOf(strings.ToLower(cfg.Logging.Format), "json", "text", "console") {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be one of: json, text, console (got %q)", cfg.Logging.Format),
		})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "must be strictly increasing"})
			break
		}
	}

	if cfg.Tracing.Enabled {
		if !oneOf(cfg.Tracing.Sampler, "always", "never", "ratio") {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("must be one of: always, never, ratio (got %q)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.Sampler == "ratio" && (cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1) {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
		}
		if cfg.Tracing.Exporter != "otlp" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("must be otlp (got %q)", cfg.Tracing.Exporter),
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "is required when tracing is enabled"})
		}
	}

	return errs
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
