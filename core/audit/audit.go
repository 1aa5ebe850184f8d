// Package audit records authorization decisions and administrative changes
// for compliance and explainability. Paired with the tuple store's reverse
// index it answers "what can this subject reach, and why was this decision
// made".
package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Event is one recorded decision or administrative action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`    // e.g. "check.decision", "namespace.reload"
	Subject   string    `json:"subject"` // canonical subject reference
	Action    string    `json:"action"`  // permission or operation name
	Resource  string    `json:"resource"`
	Status    string    `json:"status"` // "allowed", "denied", "error"
	Message   string    `json:"message,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter selects events; zero fields match anything.
type Filter struct {
	Type    string
	Subject string
	Status  string
	Limit   int
}

// Store persists audit events.
type Store interface {
	// SaveEvent persists one event.
	SaveEvent(ctx context.Context, event *Event) error

	// ListEvents returns events matching the filter, newest first.
	ListEvents(ctx context.Context, filter Filter) ([]Event, error)
}

// MemoryStore keeps events in memory, for tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveEvent appends the event.
func (s *MemoryStore) SaveEvent(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *event)
	return nil
}

// ListEvents returns matching events, newest first.
func (s *MemoryStore) ListEvents(ctx context.Context, filter Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Event
	for _, e := range s.events {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Subject != "" && e.Subject != filter.Subject {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)
