package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
trust:
  origins:
    - "https://gandi-main.ccw.site/"
rate_limit:
  threshold: 10
  window: 1s
operations:
  - owner: cloud
    operation: setVariable
    policies:
      - kind: rate_limit
        channel: cloud
  - owner: leaderboard
    operation: submitScore
    policies:
      - kind: validate
        arg: 0
        constraint:
          type: number
          min: 0
          max: 1000000
  - owner: runtime
    operation: loadExtension
    result: "false"
    policies:
      - kind: trust_gate
        arg: 0
evidence:
  enabled: true
  backend: sqlite
  sqlite:
    path: ./warden.db
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.Operations) != 3 {
		t.Fatalf("operations = %d, want 3", len(cfg.Operations))
	}

	score := cfg.Operations[1].Policies[0]
	if score.Constraint.Type != "number" || *score.Constraint.Min != 0 || *score.Constraint.Max != 1000000 {
		t.Errorf("constraint = %+v", score.Constraint)
	}

	gate := cfg.Operations[2]
	if gate.Result != "false" {
		t.Errorf("result = %q, want false", gate.Result)
	}
	if got := gate.Policies[0].Origins; len(got) != 1 || got[0] != "https://gandi-main.ccw.site/" {
		t.Errorf("trust_gate origins = %v, want inherited allow-list", got)
	}

	if cfg.Evidence.SQLite.JournalMode != "WAL" {
		t.Errorf("journal_mode = %q, want WAL default", cfg.Evidence.SQLite.JournalMode)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "operations: [",
			wantErr: "failed to parse configuration file",
		},
		{
			name: "unknown policy kind",
			content: `
operations:
  - owner: cloud
    operation: setVariable
    policies:
      - kind: quota
`,
			wantErr: "operations[0].policies[0].kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfig_ValidationError(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
engine:
  on_duplicate: replace
operations:
  - owner: cloud
    policies: []
`))

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("got %d field errors, want 3: %v", len(verr.Errors), verr)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("WARDEN_TRUST_ORIGINS", "https://a.example/, https://b.example/")
	t.Setenv("WARDEN_RATE_LIMIT_THRESHOLD", "3")
	t.Setenv("WARDEN_ENGINE_CONFIRM_TIMEOUT", "30s")
	t.Setenv("WARDEN_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("WARDEN_EVIDENCE_SQLITE_DRIVER", "sqlite3")
	t.Setenv("WARDEN_SERVER_ENABLED", "not-a-bool")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if got := cfg.Operations[2].Policies[0].Origins; len(got) != 2 || got[1] != "https://b.example/" {
		t.Errorf("trust_gate origins = %v, want overridden allow-list", got)
	}
	if cfg.RateLimit.Threshold != 3 {
		t.Errorf("threshold = %d, want 3", cfg.RateLimit.Threshold)
	}
	if cfg.Engine.ConfirmTimeout != 30*time.Second {
		t.Errorf("confirm_timeout = %s, want 30s", cfg.Engine.ConfirmTimeout)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Telemetry.Logging.Level)
	}
	if cfg.Evidence.SQLite.Driver != "sqlite3" {
		t.Errorf("driver = %q, want sqlite3", cfg.Evidence.SQLite.Driver)
	}
	if cfg.Server.Enabled {
		t.Error("unparseable override should be ignored")
	}
}

func TestLoadConfig_IgnoresEnvironment(t *testing.T) {
	t.Setenv("WARDEN_RATE_LIMIT_THRESHOLD", "3")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.RateLimit.Threshold != 10 {
		t.Errorf("threshold = %d, want 10 from file", cfg.RateLimit.Threshold)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Operations[0].Policies[0].Threshold != 10 {
		t.Errorf("threshold = %d, want 10", cfg.Operations[0].Policies[0].Threshold)
	}
}
