package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// useConfig points --config at path for the duration of the test.
func useConfig(t *testing.T, path string) {
	t.Helper()
	orig := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = orig })
}

// writeConfig writes body to a temporary config file and selects it.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	useConfig(t, path)
	return path
}

// captureOutput redirects command output to a buffer.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	orig := out
	buf := &bytes.Buffer{}
	out = buf
	t.Cleanup(func() { out = orig })
	return buf
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
