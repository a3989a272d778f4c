package evidence

import (
	"context"
	"io"
	"time"
)

// Decision states as stored in DecisionRecord.State.
const (
	StateForwarded = "forwarded"
	StateDenied    = "denied"
	StatePending   = "pending"
)

// Confirmation answers as stored in DecisionRecord.Answer.
const (
	AnswerApproved = "approved"
	AnswerDeclined = "declined"
	AnswerFailed   = "failed"
)

// DecisionRecord is the audit entry for one intercepted invocation. It
// captures what was decided and why, never the call arguments.
type DecisionRecord struct {
	// Identity
	ID           string `json:"id"`            // UUID v4
	InvocationID string `json:"invocation_id"` // From the engine

	// Target
	Owner     string `json:"owner"`
	Operation string `json:"operation"`

	// Decision
	State     string   `json:"state"`                // forwarded, denied, pending
	Policy    string   `json:"policy,omitempty"`     // Kind of the denying step
	Reason    string   `json:"reason,omitempty"`     // Denial reason
	CauseKind string   `json:"cause_kind,omitempty"` // policy, user_cancelled, error
	Steps     []string `json:"steps,omitempty"`      // Step kinds evaluated, in order

	// Confirmation
	Resource string `json:"resource,omitempty"` // Reference the user was asked about
	Asked    bool   `json:"asked"`
	Answer   string `json:"answer,omitempty"` // approved, declined, failed

	// Errors reported by the original or by the engine
	Error string `json:"error,omitempty"`

	// Timing
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`

	// Digest is a SHA-256 over the decision fields.
	Digest string `json:"digest"`
}

// Query defines filter parameters for decision records.
type Query struct {
	// Time range on StartedAt
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive

	// Filters
	InvocationID string `json:"invocation_id,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Operation    string `json:"operation,omitempty"`
	State        string `json:"state,omitempty"`
	Policy       string `json:"policy,omitempty"`
	CauseKind    string `json:"cause_kind,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "started_at", "recorded_at", "duration"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage is implemented by decision record backends. Implementations must
// be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *DecisionRecord) error

	// Query returns records matching the filters. An empty slice means no
	// match.
	Query(ctx context.Context, query *Query) ([]*DecisionRecord, error)

	// QueryStream is like Query but delivers records on a channel. Both
	// channels are closed when the query completes; errCh carries at most
	// one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *DecisionRecord, <-chan error, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes records matching the filters and reports how many.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// Exporter writes decision records in some format.
type Exporter interface {
	Export(ctx context.Context, records []*DecisionRecord, w io.Writer) error
	ExportStream(ctx context.Context, recordsCh <-chan *DecisionRecord, w io.Writer) error
}
