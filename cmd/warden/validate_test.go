package main

import (
	"strings"
	"testing"

	"mercator-hq/warden/pkg/cli"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		wantCode int
		want     []string
	}{
		{
			name:     "valid",
			config:   "testdata/warden.yaml",
			wantCode: cli.ExitOK,
			want:     []string{"✓ Configuration valid (3 operations, 3 policies, 3 wrapped)"},
		},
		{
			name:     "unknown policy kind",
			config:   "testdata/invalid.yaml",
			wantCode: cli.ExitConfig,
			want:     []string{"✗ Configuration invalid", "operations[0].policies[0].kind"},
		},
		{
			name:     "operation missing on host",
			config:   "testdata/unknown_operation.yaml",
			wantCode: cli.ExitConfig,
			want:     []string{"✗ Configuration invalid (1 problems)", "deleteEverything"},
		},
		{
			name:     "missing file",
			config:   "testdata/nope.yaml",
			wantCode: cli.ExitConfig,
			want:     []string{"✗ Configuration invalid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, tt.config)
			buf := captureOutput(t)
			validateFlags.watch = false

			err := validateConfig(validateCmd, nil)
			if code := cli.ExitCode(err); code != tt.wantCode {
				t.Errorf("ExitCode(%v) = %d, want %d", err, code, tt.wantCode)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}
