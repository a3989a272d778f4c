// Package query validates and completes decision record queries before
// they reach a storage backend.
//
// The HTTP API and the CLI both go through FromValues or a hand-built
// evidence.Query, then Limits.Validate and Limits.ApplyDefaults:
//
//	limits := query.LimitsFrom(cfg.Evidence.Query)
//	q, err := query.FromValues(r.URL.Query())
//	if err == nil {
//	    err = limits.Validate(q)
//	}
//	limits.ApplyDefaults(q)
package query
