// README: In-memory rating store; local fallback and test double.
package rating

import (
	"context"
	"sync"

	"ryde/internal/types"
)

type MemStore struct {
	mu      sync.Mutex
	ratings []*Rating
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Create(_ context.Context, r *Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.ratings = append(s.ratings, &cp)
	return nil
}

func (s *MemStore) ByRide(_ context.Context, rideID types.ID) ([]*Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Rating
	for _, r := range s.ratings {
		if r.RideID == rideID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
