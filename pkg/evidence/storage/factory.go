package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
)

// New creates the backend selected by the evidence configuration. The
// directory of a SQLite database is created if needed.
func New(cfg config.EvidenceConfig) (evidence.Storage, error) {
	switch cfg.Backend {
	case "", backendMemory:
		return NewMemoryStorage(), nil
	case backendSQLite:
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, evidence.NewStorageError(backendSQLite, "open", err)
			}
		}
		return NewSQLiteStorage(SQLiteConfigFrom(cfg.SQLite))
	default:
		return nil, fmt.Errorf("unknown evidence backend %q", cfg.Backend)
	}
}
