package audit

import (
	"context"
	"sync"

	id "comply/pkg/domain"
)

// MemoryStore keeps audit events in memory for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByOrg(_ context.Context, orgID id.OrgID, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].OrgID != orgID {
			continue
		}
		events = append(events, s.events[i])
		if limit > 0 && len(events) == limit {
			break
		}
	}
	return events, nil
}
