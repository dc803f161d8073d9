// README: In-memory notification store; local fallback and test double.
package notify

import (
	"context"
	"sync"

	"ryde/internal/types"
)

type MemStore struct {
	mu      sync.Mutex
	records []*Notification
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemStore) ListByUser(_ context.Context, userID types.ID, limit int) ([]*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Notification
	for i := len(s.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.records[i].UserID == userID {
			cp := *s.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemStore) MarkRead(_ context.Context, userID, id types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.records {
		if n.ID == id && n.UserID == userID && !n.Read {
			n.Read = true
			return true, nil
		}
	}
	return false, nil
}
