// Package storage provides the decision record backends.
//
// # Backends
//
//   - MemoryStorage: records live in a map and vanish on exit
//   - SQLiteStorage: a single database file, with either the pure Go driver
//     (modernc.org/sqlite, driver name "sqlite") or the cgo driver
//     (github.com/mattn/go-sqlite3, driver name "sqlite3")
//
// Both backends filter, sort and paginate identically: newest first by
// started_at unless the query says otherwise, ties broken by record ID, and
// at most 100 records when the query sets no limit.
//
// # Usage
//
//	store, err := storage.New(cfg.Evidence)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &evidence.Query{
//	    State: evidence.StateDenied,
//	    Limit: 20,
//	})
package storage
