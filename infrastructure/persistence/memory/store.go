// Package memory is an in-process Store used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"publication-backend/infrastructure/persistence/store"

	"go.uber.org/zap"
)

// Store keeps records in a map guarded by a mutex. A transaction holds the
// write lock while it checks every condition and then applies every op.
type Store struct {
	mu      sync.RWMutex
	records map[store.Key]store.Record
	logger  *zap.Logger
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		records: make(map[store.Key]store.Record),
		logger:  logger,
	}
}

// TransactWrite implements store.Store
func (s *Store) TransactWrite(ctx context.Context, ops []store.WriteOp) error {
	if err := store.CheckTransaction(ops); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		current, exists := s.records[op.Target()]
		if err := store.Evaluate(op, current, exists); err != nil {
			s.logger.Debug("Transaction condition failed",
				zap.String("pk", op.Target().PartitionKey),
				zap.String("sk", op.Target().SortKey),
				zap.Error(err))
			return err
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case store.OpPut:
			s.records[op.Record.Key()] = cloneRecord(op.Record)
		case store.OpDelete:
			delete(s.records, op.Key)
		}
	}

	s.logger.Debug("Transaction applied", zap.Int("items", len(ops)))
	return nil
}

// Get implements store.Store
func (s *Store) Get(ctx context.Context, key store.Key) (store.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	return cloneRecord(record), ok, nil
}

// Query implements store.Store
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var matches []store.Record
	for _, record := range s.records {
		k, projected := record.IndexKey(q.Index)
		if projected && store.MatchesPrefix(k, q.PartitionKey, q.SortKeyPrefix) {
			matches = append(matches, cloneRecord(record))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		a, _ := matches[i].IndexKey(q.Index)
		b, _ := matches[j].IndexKey(q.Index)
		if a.SortKey != b.SortKey {
			return (a.SortKey < b.SortKey) != q.Descending
		}
		return matches[i].SK0 < matches[j].SK0
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

// Len returns the number of stored records, guards included
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneRecord(r store.Record) store.Record {
	if r.Data != nil {
		r.Data = append([]byte(nil), r.Data...)
	}
	return r
}
