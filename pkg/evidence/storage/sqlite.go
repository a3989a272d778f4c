package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver, registered as "sqlite"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
)

const backendSQLite = "sqlite"

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is "sqlite" (modernc.org/sqlite) or "sqlite3"
	// (github.com/mattn/go-sqlite3).
	// Default: "sqlite"
	Driver string

	// Default: 10
	MaxOpenConns int

	// Default: 5
	MaxIdleConns int

	// JournalMode is applied to every connection.
	// Default: "WAL"
	JournalMode string

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         config.DefaultEvidenceSQLitePath,
		Driver:       config.DefaultEvidenceSQLiteDriver,
		MaxOpenConns: config.DefaultEvidenceSQLiteMaxOpenConns,
		MaxIdleConns: config.DefaultEvidenceSQLiteMaxIdleConns,
		JournalMode:  config.DefaultEvidenceSQLiteJournalMode,
		BusyTimeout:  config.DefaultEvidenceSQLiteBusyTimeout,
	}
}

// SQLiteConfigFrom converts the YAML section into a SQLiteConfig.
func SQLiteConfigFrom(cfg config.SQLiteConfig) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         cfg.Path,
		Driver:       cfg.Driver,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		JournalMode:  cfg.JournalMode,
		BusyTimeout:  cfg.BusyTimeout,
	}
}

// SQLiteStorage implements evidence.Storage on a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	insert *sql.Stmt
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStorage opens or creates the database and its schema.
func NewSQLiteStorage(cfg *SQLiteConfig) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	c := *cfg
	if c.Driver == "" {
		c.Driver = config.DefaultEvidenceSQLiteDriver
	}
	if c.JournalMode == "" {
		c.JournalMode = config.DefaultEvidenceSQLiteJournalMode
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = config.DefaultEvidenceSQLiteBusyTimeout
	}
	if c.Path == "" {
		return nil, evidence.NewStorageError(backendSQLite, "open", errors.New("database path is empty"))
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	db, err := sql.Open(c.Driver, dsn(&c))
	if err != nil {
		return nil, evidence.NewStorageError(backendSQLite, "open", err)
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: &c,
		logger: logger,
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", c.Path,
		"driver", c.Driver,
		"journal_mode", c.JournalMode,
		"max_open_conns", c.MaxOpenConns,
	)
	return s, nil
}

// dsn builds a data source name carrying the per-connection pragmas in the
// parameter syntax of the selected driver.
func dsn(c *SQLiteConfig) string {
	ms := c.BusyTimeout.Milliseconds()
	if c.Driver == "sqlite3" {
		return fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=%s", c.Path, ms, c.JournalMode)
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)", c.Path, ms, c.JournalMode)
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError(backendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return evidence.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return evidence.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertDecision)
	if err != nil {
		return evidence.NewStorageError(backendSQLite, "prepare", err)
	}
	s.insert = stmt
	return nil
}

// Store persists a decision record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.DecisionRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return evidence.NewStorageError(backendSQLite, "store", evidence.ErrClosed)
	}

	_, err := s.insert.ExecContext(ctx,
		record.ID, record.InvocationID,
		record.Owner, record.Operation,
		record.State, nullable(record.Policy), nullable(record.Reason), nullable(record.CauseKind), strings.Join(record.Steps, ","),
		nullable(record.Resource), record.Asked, nullable(record.Answer),
		nullable(record.Error),
		record.StartedAt.UnixNano(), int64(record.Duration), record.RecordedAt.UnixNano(),
		record.Digest,
	)
	if err != nil {
		return evidence.NewStorageError(backendSQLite, "store", err)
	}
	return nil
}

// Query retrieves records matching the filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, evidence.NewStorageError(backendSQLite, "query", evidence.ErrClosed)
	}

	sqlQuery, args := s.selectStatement(query)
	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	records := []*evidence.DecisionRecord{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, evidence.NewStorageError(backendSQLite, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError(backendSQLite, "query", err)
	}
	return records, nil
}

// QueryStream delivers matching records on a channel.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.DecisionRecord, <-chan error, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, nil, evidence.NewStorageError(backendSQLite, "query_stream", evidence.ErrClosed)
	}

	recordsCh := make(chan *evidence.DecisionRecord, 100)
	errCh := make(chan error, 1)
	sqlQuery, args := s.selectStatement(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- evidence.NewStorageError(backendSQLite, "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- evidence.NewStorageError(backendSQLite, "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError(backendSQLite, "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, evidence.NewStorageError(backendSQLite, "count", evidence.ErrClosed)
	}

	where, args := buildWhereClause(query)
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM decisions"+where, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Delete removes matching records and returns how many were deleted.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, evidence.NewStorageError(backendSQLite, "delete", evidence.ErrClosed)
	}

	where, args := buildWhereClause(query)
	result, err := s.db.ExecContext(ctx, "DELETE FROM decisions"+where, args...)
	if err != nil {
		return 0, evidence.NewStorageError(backendSQLite, "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError(backendSQLite, "delete", err)
	}
	return count, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return evidence.NewStorageError(backendSQLite, "ping", evidence.ErrClosed)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return evidence.NewStorageError(backendSQLite, "ping", err)
	}
	return nil
}

// Close releases the prepared statement and the database handle.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.insert != nil {
		s.insert.Close()
	}
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError(backendSQLite, "close", err)
	}

	s.logger.Info("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) selectStatement(query *evidence.Query) (string, []any) {
	where, args := buildWhereClause(query)

	sortBy := "started_at"
	if col, ok := sortColumns[query.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if strings.EqualFold(query.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	stmt := "SELECT " + selectColumns + " FROM decisions" + where +
		fmt.Sprintf(" ORDER BY %s %s, id %s", sortBy, sortOrder, sortOrder)

	limit := config.DefaultEvidenceQueryDefaultLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	stmt += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return stmt, args
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(query *evidence.Query) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if query.StartTime != nil {
		add("started_at >= ?", query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		add("started_at <= ?", query.EndTime.UnixNano())
	}
	if query.InvocationID != "" {
		add("invocation_id = ?", query.InvocationID)
	}
	if query.Owner != "" {
		add("owner = ?", query.Owner)
	}
	if query.Operation != "" {
		add("operation = ?", query.Operation)
	}
	if query.State != "" {
		add("state = ?", query.State)
	}
	if query.Policy != "" {
		add("policy = ?", query.Policy)
	}
	if query.CauseKind != "" {
		add("cause_kind = ?", query.CauseKind)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*evidence.DecisionRecord, error) {
	var record evidence.DecisionRecord
	var policy, reason, causeKind, resource, answer, errText sql.NullString
	var steps string
	var startedAt, duration, recordedAt int64

	err := rows.Scan(
		&record.ID, &record.InvocationID,
		&record.Owner, &record.Operation,
		&record.State, &policy, &reason, &causeKind, &steps,
		&resource, &record.Asked, &answer,
		&errText,
		&startedAt, &duration, &recordedAt,
		&record.Digest,
	)
	if err != nil {
		return nil, err
	}

	record.Policy = policy.String
	record.Reason = reason.String
	record.CauseKind = causeKind.String
	record.Resource = resource.String
	record.Answer = answer.String
	record.Error = errText.String
	if steps != "" {
		record.Steps = strings.Split(steps, ",")
	}
	record.StartedAt = time.Unix(0, startedAt).UTC()
	record.Duration = time.Duration(duration)
	record.RecordedAt = time.Unix(0, recordedAt).UTC()

	return &record, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
