package relationtuple

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests, development, and
// single-instance deployments. The map is keyed by the canonical tuple
// string, which makes writes idempotent by construction.
type MemoryStore struct {
	mu     sync.RWMutex
	tuples map[string]Tuple
}

// NewMemoryStore creates an empty in-memory tuple store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tuples: make(map[string]Tuple)}
}

// WriteTuple inserts the tuple; inserting an existing tuple is a no-op.
func (s *MemoryStore) WriteTuple(ctx context.Context, tuple Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tuples[tuple.String()] = tuple
	return nil
}

// WriteTuples inserts multiple tuples under one lock acquisition.
func (s *MemoryStore) WriteTuples(ctx context.Context, tuples []Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tuples {
		s.tuples[t.String()] = t
	}
	return nil
}

// DeleteTuple removes the tuple; absence is not an error.
func (s *MemoryStore) DeleteTuple(ctx context.Context, tuple Tuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tuples, tuple.String())
	return nil
}

// DeleteTuples removes every tuple matching the filter. An empty filter is
// rejected.
func (s *MemoryStore) DeleteTuples(ctx context.Context, filter Filter) error {
	if filter.Empty() {
		return &ValidationError{Reason: "delete filter must set at least one field"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tuples {
		if filter.Matches(t) {
			delete(s.tuples, key)
		}
	}
	return nil
}

// ReadTuples returns every tuple matching the filter, sorted canonically so
// repeated reads are reproducible.
func (s *MemoryStore) ReadTuples(ctx context.Context, filter Filter) ([]Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Tuple
	for _, t := range s.tuples {
		if filter.Matches(t) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result, nil
}

// TupleExists reports whether the exact tuple is present.
func (s *MemoryStore) TupleExists(ctx context.Context, tuple Tuple) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tuples[tuple.String()]
	return ok, nil
}

// ReadSubjectTuples returns every tuple whose subject equals the reference.
func (s *MemoryStore) ReadSubjectTuples(ctx context.Context, subject SubjectRef) ([]Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Tuple
	for _, t := range s.tuples {
		if t.Subject.Equal(subject) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].String() < result[j].String()
	})
	return result, nil
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)
