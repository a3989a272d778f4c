package query

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
)

func TestValidate(t *testing.T) {
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name    string
		query   evidence.Query
		wantErr bool
	}{
		{name: "empty", query: evidence.Query{}},
		{name: "full", query: evidence.Query{
			StartTime: &early, EndTime: &late, State: "denied", CauseKind: "user_cancelled",
			Limit: 50, Offset: 10, SortBy: "duration", SortOrder: "asc",
		}},
		{name: "negative limit", query: evidence.Query{Limit: -1}, wantErr: true},
		{name: "limit too large", query: evidence.Query{Limit: MaxLimit + 1}, wantErr: true},
		{name: "negative offset", query: evidence.Query{Offset: -5}, wantErr: true},
		{name: "bad sort field", query: evidence.Query{SortBy: "owner"}, wantErr: true},
		{name: "bad sort order", query: evidence.Query{SortOrder: "up"}, wantErr: true},
		{name: "inverted range", query: evidence.Query{StartTime: &late, EndTime: &early}, wantErr: true},
		{name: "bad state", query: evidence.Query{State: "blocked"}, wantErr: true},
		{name: "bad cause", query: evidence.Query{CauseKind: "timeout"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			err := Validate(&q)
			if tt.wantErr {
				var qe *evidence.QueryError
				if !errors.As(err, &qe) {
					t.Fatalf("Validate() = %v, want *QueryError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	l := LimitsFrom(config.QueryConfig{DefaultLimit: 25, MaxLimit: 50})

	if err := l.Validate(&evidence.Query{Limit: 51}); err == nil {
		t.Error("limit above configured max accepted")
	}

	q := &evidence.Query{}
	l.ApplyDefaults(q)
	if q.Limit != 25 || q.SortBy != "started_at" || q.SortOrder != "desc" {
		t.Errorf("ApplyDefaults() = %+v", q)
	}

	if d := LimitsFrom(config.QueryConfig{}); d.Default != DefaultLimit || d.Max != MaxLimit {
		t.Errorf("LimitsFrom(zero) = %+v", d)
	}
}

func TestFromValues(t *testing.T) {
	v := url.Values{}
	v.Set("owner", "cloud")
	v.Set("state", "denied")
	v.Set("cause", "policy")
	v.Set("since", "2025-11-20T00:00:00Z")
	v.Set("limit", "50")

	q, err := FromValues(v)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	if q.Owner != "cloud" || q.State != "denied" || q.CauseKind != "policy" || q.Limit != 50 {
		t.Errorf("query = %+v", q)
	}
	if q.StartTime == nil || q.StartTime.Day() != 20 || q.EndTime != nil {
		t.Errorf("time range = %v - %v", q.StartTime, q.EndTime)
	}

	for _, bad := range []string{"limit=ten", "offset=x", "since=yesterday", "until=2025"} {
		v, _ := url.ParseQuery(bad)
		if _, err := FromValues(v); err == nil {
			t.Errorf("FromValues(%s) succeeded", bad)
		}
	}
}
