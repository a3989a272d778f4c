package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the decision table. Times are stored as Unix nanoseconds
// so both SQLite drivers round-trip them identically.
const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    invocation_id TEXT NOT NULL,

    owner TEXT NOT NULL,
    operation TEXT NOT NULL,

    state TEXT NOT NULL,
    policy TEXT,
    reason TEXT,
    cause_kind TEXT,
    steps TEXT,

    resource TEXT,
    asked INTEGER NOT NULL DEFAULT 0,
    answer TEXT,

    error TEXT,

    started_at INTEGER NOT NULL,
    duration INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,

    digest TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_started_at ON decisions(started_at);
CREATE INDEX IF NOT EXISTS idx_decisions_target ON decisions(owner, operation);
CREATE INDEX IF NOT EXISTS idx_decisions_state ON decisions(state);
CREATE INDEX IF NOT EXISTS idx_decisions_invocation_id ON decisions(invocation_id);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertDecision = `
INSERT INTO decisions (
    id, invocation_id,
    owner, operation,
    state, policy, reason, cause_kind, steps,
    resource, asked, answer,
    error,
    started_at, duration, recorded_at,
    digest
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `id, invocation_id, owner, operation, state, policy, reason, cause_kind, steps,
    resource, asked, answer, error, started_at, duration, recorded_at, digest`

// sortColumns maps Query.SortBy values to columns.
var sortColumns = map[string]string{
	"started_at":  "started_at",
	"recorded_at": "recorded_at",
	"duration":    "duration",
}
