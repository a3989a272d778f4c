package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
)

const backendMemory = "memory"

// MemoryStorage implements evidence.Storage in memory. Records are lost when
// the process exits.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*evidence.DecisionRecord
	closed  bool
}

// NewMemoryStorage creates an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.DecisionRecord),
	}
}

// Store keeps a copy of the record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return evidence.NewStorageError(backendMemory, "store", evidence.ErrClosed)
	}

	s.records[record.ID] = copyRecord(record)
	return nil
}

// Query returns copies of the matching records, sorted and paginated the
// same way as the SQLite backend.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, evidence.NewStorageError(backendMemory, "query", evidence.ErrClosed)
	}

	return s.query(query), nil
}

func (s *MemoryStorage) query(query *evidence.Query) []*evidence.DecisionRecord {
	results := []*evidence.DecisionRecord{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			results = append(results, copyRecord(record))
		}
	}
	sortRecords(results, query.SortBy, query.SortOrder)

	if query.Offset >= len(results) {
		return []*evidence.DecisionRecord{}
	}
	results = results[query.Offset:]

	limit := config.DefaultEvidenceQueryDefaultLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	if limit < len(results) {
		results = results[:limit]
	}
	return results
}

// QueryStream delivers the Query result on a channel.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.DecisionRecord, <-chan error, error) {
	records, err := s.Query(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *evidence.DecisionRecord, 100)
	errCh := make(chan error, 1)
	go func() {
		defer close(recordsCh)
		defer close(errCh)
		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()
	return recordsCh, errCh, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, evidence.NewStorageError(backendMemory, "count", evidence.ErrClosed)
	}

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes matching records.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, evidence.NewStorageError(backendMemory, "delete", evidence.ErrClosed)
	}

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping fails only after Close.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return evidence.NewStorageError(backendMemory, "ping", evidence.ErrClosed)
	}
	return nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.DecisionRecord)
	s.closed = true
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// GetByID returns a copy of one record, or nil.
func (s *MemoryStorage) GetByID(id string) *evidence.DecisionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	return copyRecord(record)
}

func matchesQuery(record *evidence.DecisionRecord, query *evidence.Query) bool {
	if query.StartTime != nil && record.StartedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.StartedAt.After(*query.EndTime) {
		return false
	}

	filters := []struct{ want, got string }{
		{query.InvocationID, record.InvocationID},
		{query.Owner, record.Owner},
		{query.Operation, record.Operation},
		{query.State, record.State},
		{query.Policy, record.Policy},
		{query.CauseKind, record.CauseKind},
	}
	for _, f := range filters {
		if f.want != "" && f.want != f.got {
			return false
		}
	}
	return true
}

func sortRecords(records []*evidence.DecisionRecord, sortBy, order string) {
	key := func(r *evidence.DecisionRecord) int64 {
		switch sortBy {
		case "recorded_at":
			return r.RecordedAt.UnixNano()
		case "duration":
			return int64(r.Duration)
		default:
			return r.StartedAt.UnixNano()
		}
	}
	asc := strings.EqualFold(order, "asc")

	sort.SliceStable(records, func(i, j int) bool {
		ki, kj := key(records[i]), key(records[j])
		if ki == kj {
			if asc {
				return records[i].ID < records[j].ID
			}
			return records[i].ID > records[j].ID
		}
		if asc {
			return ki < kj
		}
		return ki > kj
	})
}

func copyRecord(record *evidence.DecisionRecord) *evidence.DecisionRecord {
	c := *record
	if record.Steps != nil {
		c.Steps = append([]string(nil), record.Steps...)
	}
	return &c
}
