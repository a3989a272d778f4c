package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/warden/pkg/evidence"
)

func resetEvidenceFlags(t *testing.T) {
	t.Helper()
	orig := evidenceFlags
	evidenceFlags.backend = ""
	evidenceFlags.timeRange = ""
	evidenceFlags.invocationID = ""
	evidenceFlags.owner = ""
	evidenceFlags.operation = ""
	evidenceFlags.state = ""
	evidenceFlags.policy = ""
	evidenceFlags.cause = ""
	evidenceFlags.limit = 0
	evidenceFlags.offset = 0
	evidenceFlags.sortBy = ""
	evidenceFlags.sortOrder = ""
	evidenceFlags.format = "text"
	evidenceFlags.output = ""
	evidenceFlags.pretty = false
	evidenceFlags.days = -1
	evidenceFlags.maxRecords = -1
	evidenceFlags.archive = ""
	t.Cleanup(func() { evidenceFlags = orig })
}

// recordMixed replays testdata/mixed.yaml into a fresh SQLite store and
// returns the directory holding it.
func recordMixed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	base := mustRead(t, "testdata/warden.yaml")
	writeConfig(t, base+fmt.Sprintf(`
evidence:
  enabled: true
  backend: sqlite
  sqlite:
    path: %q
  recorder:
    async_buffer: 100
`, filepath.Join(dir, "warden.db")))

	resetSimulateFlags(t)
	simulateFlags.record = true
	captureOutput(t)
	if err := simulateScenario(simulateCmd, []string{"testdata/mixed.yaml"}); err != nil {
		t.Fatalf("simulateScenario() error = %v", err)
	}
	return dir
}

func queryRecords(t *testing.T, setup func()) []evidence.DecisionRecord {
	t.Helper()
	resetEvidenceFlags(t)
	evidenceFlags.format = "json"
	if setup != nil {
		setup()
	}
	buf := captureOutput(t)

	if err := queryEvidence(evidenceQueryCmd, nil); err != nil {
		t.Fatalf("queryEvidence() error = %v", err)
	}

	var records []evidence.DecisionRecord
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	return records
}

// ==================================================================
// Query
// ==================================================================

func TestEvidenceQuery_Filters(t *testing.T) {
	recordMixed(t)

	tests := []struct {
		name  string
		setup func()
		want  int
	}{
		{"all", nil, 4},
		{"denied", func() { evidenceFlags.state = "denied" }, 2},
		{"forwarded", func() { evidenceFlags.state = "forwarded" }, 2},
		{"by owner", func() { evidenceFlags.owner = "runtime" }, 2},
		{"by policy", func() { evidenceFlags.policy = "validate" }, 1},
		{"user cancelled", func() { evidenceFlags.cause = "user_cancelled" }, 1},
		{"in range", func() { evidenceFlags.timeRange = "2025-01-01T00:00:00Z/2025-01-02T00:00:00Z" }, 4},
		{"out of range", func() { evidenceFlags.timeRange = "2025-02-01T00:00:00Z/2025-02-02T00:00:00Z" }, 0},
		{"limited", func() { evidenceFlags.limit = 3 }, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := queryRecords(t, tt.setup)
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestEvidenceQuery_Text(t *testing.T) {
	recordMixed(t)
	resetEvidenceFlags(t)
	buf := captureOutput(t)

	evidenceFlags.state = "denied"
	if err := queryEvidence(evidenceQueryCmd, nil); err != nil {
		t.Fatalf("queryEvidence() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"STARTED", "leaderboard.submitScore", "runtime.loadExtension", "declined", "Showing 2 of 2 records"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestEvidenceQuery_InvalidFlags(t *testing.T) {
	recordMixed(t)

	tests := []struct {
		name  string
		setup func()
	}{
		{"bad state", func() { evidenceFlags.state = "blocked" }},
		{"bad time range", func() { evidenceFlags.timeRange = "2025-01-01" }},
		{"bad start", func() { evidenceFlags.timeRange = "yesterday/2025-01-02T00:00:00Z" }},
		{"limit too large", func() { evidenceFlags.limit = 1000000 }},
		{"bad format", func() { evidenceFlags.format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEvidenceFlags(t)
			captureOutput(t)
			tt.setup()
			if err := queryEvidence(evidenceQueryCmd, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// ==================================================================
// Export, verify and prune
// ==================================================================

func TestEvidenceExport_CSV(t *testing.T) {
	dir := recordMixed(t)
	resetEvidenceFlags(t)
	captureOutput(t)

	path := filepath.Join(dir, "decisions.csv")
	evidenceFlags.format = "csv"
	evidenceFlags.output = path
	evidenceFlags.state = "denied"

	if err := exportEvidence(evidenceExportCmd, nil); err != nil {
		t.Fatalf("exportEvidence() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(mustRead(t, path)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), strings.Join(lines, "\n"))
	}
}

func TestEvidenceExport_JSON(t *testing.T) {
	recordMixed(t)
	resetEvidenceFlags(t)
	buf := captureOutput(t)

	evidenceFlags.format = "json"
	if err := exportEvidence(evidenceExportCmd, nil); err != nil {
		t.Fatalf("exportEvidence() error = %v", err)
	}

	var records []evidence.DecisionRecord
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if len(records) != 4 {
		t.Errorf("got %d records, want 4", len(records))
	}
}

func TestEvidenceVerify(t *testing.T) {
	recordMixed(t)
	resetEvidenceFlags(t)
	buf := captureOutput(t)

	if err := verifyEvidence(evidenceVerifyCmd, nil); err != nil {
		t.Fatalf("verifyEvidence() error = %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Digest integrity: 4/4 valid") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestEvidencePrune(t *testing.T) {
	dir := recordMixed(t)
	resetEvidenceFlags(t)
	buf := captureOutput(t)

	// The records are dated 2025-01-01, well past a one day retention.
	evidenceFlags.days = 1
	evidenceFlags.archive = filepath.Join(dir, "archive")
	if err := pruneEvidence(evidencePruneCmd, nil); err != nil {
		t.Fatalf("pruneEvidence() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Pruned 4 records") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	if records := queryRecords(t, nil); len(records) != 0 {
		t.Errorf("got %d records after prune, want 0", len(records))
	}

	archived, err := filepath.Glob(filepath.Join(dir, "archive", "*.json"))
	if err != nil || len(archived) == 0 {
		t.Errorf("no archive written (err = %v)", err)
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := parseTimeRange("2025-01-01T00:00:00Z/2025-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("parseTimeRange() error = %v", err)
	}
	if got := end.Sub(start).Hours(); got != 24 {
		t.Errorf("range = %vh, want 24h", got)
	}

	for _, bad := range []string{"", "2025-01-01T00:00:00Z", "a/b", "2025-01-01T00:00:00Z/b"} {
		if _, _, err := parseTimeRange(bad); err == nil {
			t.Errorf("parseTimeRange(%q) expected error", bad)
		}
	}
}
