package query

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"mercator-hq/warden/pkg/evidence"
)

// FromValues builds a query from URL parameters, as sent to
// GET /v1/decisions. Times are RFC 3339.
//
//	?owner=cloud&state=denied&since=2025-11-20T00:00:00Z&limit=50
func FromValues(v url.Values) (*evidence.Query, error) {
	q := &evidence.Query{
		InvocationID: v.Get("invocation_id"),
		Owner:        v.Get("owner"),
		Operation:    v.Get("operation"),
		State:        v.Get("state"),
		Policy:       v.Get("policy"),
		CauseKind:    v.Get("cause"),
		SortBy:       v.Get("sort_by"),
		SortOrder:    v.Get("sort_order"),
	}

	var err error
	if q.StartTime, err = parseTime(v, "since"); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTime(v, "until"); err != nil {
		return nil, err
	}
	if q.Limit, err = parseInt(v, "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = parseInt(v, "offset"); err != nil {
		return nil, err
	}
	return q, nil
}

func parseTime(v url.Values, key string) (*time.Time, error) {
	s := v.Get(key)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &t, nil
}

func parseInt(v url.Values, key string) (int, error) {
	s := v.Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
