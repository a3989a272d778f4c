package query

import (
	"fmt"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
)

const (
	// DefaultLimit is used when a query sets no limit.
	DefaultLimit = config.DefaultEvidenceQueryDefaultLimit

	// MaxLimit is the largest limit a query may request.
	MaxLimit = config.DefaultEvidenceQueryMaxLimit
)

// ValidSortFields contains the fields a query may sort by.
var ValidSortFields = map[string]bool{
	"started_at":  true,
	"recorded_at": true,
	"duration":    true,
}

// ValidSortOrders contains the valid sort orders.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

var validStates = map[string]bool{
	evidence.StateForwarded: true,
	evidence.StateDenied:    true,
	evidence.StatePending:   true,
}

var validCauseKinds = map[string]bool{
	"policy":         true,
	"user_cancelled": true,
	"error":          true,
}

// Limits bounds query pagination.
type Limits struct {
	Default int
	Max     int
}

// LimitsFrom converts the YAML section into Limits.
func LimitsFrom(cfg config.QueryConfig) Limits {
	l := Limits{Default: cfg.DefaultLimit, Max: cfg.MaxLimit}
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Max <= 0 {
		l.Max = MaxLimit
	}
	return l
}

// Validate checks a query against the default limits.
func Validate(q *evidence.Query) error {
	return Limits{Default: DefaultLimit, Max: MaxLimit}.Validate(q)
}

// Validate checks a query and returns a *evidence.QueryError describing the
// first problem.
func (l Limits) Validate(q *evidence.Query) error {
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > l.Max {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", l.Max, q.Limit))
	}
	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	if q.State != "" && !validStates[q.State] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid state: %s (must be 'forwarded', 'denied', or 'pending')", q.State))
	}
	if q.CauseKind != "" && !validCauseKinds[q.CauseKind] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid cause kind: %s", q.CauseKind))
	}
	return nil
}

// ApplyDefaults fills in the limit and sort of a query.
func (l Limits) ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = l.Default
	}
	if q.SortBy == "" {
		q.SortBy = "started_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// ApplyDefaults fills in a query using the default limits.
func ApplyDefaults(q *evidence.Query) {
	Limits{Default: DefaultLimit, Max: MaxLimit}.ApplyDefaults(q)
}
