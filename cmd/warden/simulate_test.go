package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"mercator-hq/warden/pkg/cli"
)

func resetSimulateFlags(t *testing.T) {
	t.Helper()
	orig := simulateFlags
	simulateFlags.format = "text"
	simulateFlags.interactive = false
	simulateFlags.record = false
	simulateFlags.failOnDeny = false
	simulateFlags.progress = false
	simulateFlags.start = "2025-01-01T00:00:00Z"
	t.Cleanup(func() { simulateFlags = orig })
}

// simulationSummary is the subset of the JSON result the tests inspect.
type simulationSummary struct {
	Scenario  string `json:"scenario"`
	Forwarded int    `json:"forwarded"`
	Denied    int    `json:"denied"`
	Failed    int    `json:"failed"`
	Calls     []struct {
		Index  int    `json:"index"`
		State  string `json:"state"`
		Policy string `json:"policy"`
	} `json:"calls"`
}

func simulateJSON(t *testing.T, scenario string) simulationSummary {
	t.Helper()
	resetSimulateFlags(t)
	useConfig(t, "testdata/warden.yaml")
	buf := captureOutput(t)

	simulateFlags.format = "json"
	if err := simulateScenario(simulateCmd, []string{scenario}); err != nil {
		t.Fatalf("simulateScenario() error = %v", err)
	}

	var got simulationSummary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	return got
}

// ==================================================================
// Rate limit burst
// ==================================================================

func TestSimulate_Burst(t *testing.T) {
	got := simulateJSON(t, "testdata/burst.yaml")

	if got.Scenario != "burst" {
		t.Errorf("scenario = %q, want burst", got.Scenario)
	}
	if len(got.Calls) != 11 {
		t.Fatalf("calls = %d, want 11", len(got.Calls))
	}
	if got.Forwarded != 10 || got.Denied != 1 || got.Failed != 0 {
		t.Errorf("forwarded/denied/failed = %d/%d/%d, want 10/1/0", got.Forwarded, got.Denied, got.Failed)
	}

	last := got.Calls[10]
	if last.State != "denied" || last.Policy != "rate_limit" {
		t.Errorf("11th call = %s by %q, want denied by rate_limit", last.State, last.Policy)
	}
}

// ==================================================================
// Validation and trust
// ==================================================================

func TestSimulate_Mixed(t *testing.T) {
	got := simulateJSON(t, "testdata/mixed.yaml")

	want := []struct {
		state  string
		policy string
	}{
		{"denied", "validate"},
		{"forwarded", ""},
		{"forwarded", ""},
		{"denied", "trust_gate"},
	}
	if len(got.Calls) != len(want) {
		t.Fatalf("calls = %d, want %d", len(got.Calls), len(want))
	}
	for i, w := range want {
		c := got.Calls[i]
		if c.State != w.state || c.Policy != w.policy {
			t.Errorf("call %d = %s/%q, want %s/%q", c.Index, c.State, c.Policy, w.state, w.policy)
		}
	}
}

func TestSimulate_TextSummary(t *testing.T) {
	resetSimulateFlags(t)
	useConfig(t, "testdata/warden.yaml")
	buf := captureOutput(t)

	if err := simulateScenario(simulateCmd, []string{"testdata/mixed.yaml"}); err != nil {
		t.Fatalf("simulateScenario() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"CALL", "leaderboard.submitScore", "runtime.loadExtension", "4 calls: 2 forwarded, 2 denied, 0 failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestSimulate_FailOnDeny(t *testing.T) {
	resetSimulateFlags(t)
	useConfig(t, "testdata/warden.yaml")
	captureOutput(t)

	simulateFlags.failOnDeny = true
	err := simulateScenario(simulateCmd, []string{"testdata/burst.yaml"})

	var denied *cli.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("error = %v, want *cli.DeniedError", err)
	}
	if denied.Denied != 1 || denied.Total != 11 {
		t.Errorf("DeniedError = %+v, want 1 of 11", denied)
	}
	if code := cli.ExitCode(err); code != cli.ExitDenied {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitDenied)
	}
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		scenario string
		setup    func()
		wantCode int
	}{
		{
			name:     "missing scenario",
			config:   "testdata/warden.yaml",
			scenario: "testdata/nope.yaml",
			wantCode: cli.ExitFailure,
		},
		{
			name:     "invalid config",
			config:   "testdata/invalid.yaml",
			scenario: "testdata/burst.yaml",
			wantCode: cli.ExitConfig,
		},
		{
			name:     "bad start",
			config:   "testdata/warden.yaml",
			scenario: "testdata/burst.yaml",
			setup:    func() { simulateFlags.start = "yesterday" },
			wantCode: cli.ExitFailure,
		},
		{
			name:     "bad format",
			config:   "testdata/warden.yaml",
			scenario: "testdata/burst.yaml",
			setup:    func() { simulateFlags.format = "xml" },
			wantCode: cli.ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetSimulateFlags(t)
			useConfig(t, tt.config)
			captureOutput(t)
			if tt.setup != nil {
				tt.setup()
			}

			err := simulateScenario(simulateCmd, []string{tt.scenario})
			if err == nil {
				t.Fatal("expected error")
			}
			if code := cli.ExitCode(err); code != tt.wantCode {
				t.Errorf("ExitCode(%v) = %d, want %d", err, code, tt.wantCode)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{"score", `"score"`},
		{42, "42"},
		{false, "false"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := formatArgs([]any{"score", 1}); got != `"score", 1` {
		t.Errorf("formatArgs() = %q", got)
	}
}
