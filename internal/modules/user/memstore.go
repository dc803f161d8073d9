// README: In-memory profile store; local fallback and test double.
package user

import (
	"context"
	"sync"

	"ryde/internal/types"
)

type MemStore struct {
	mu       sync.Mutex
	profiles map[types.ID]*Profile
}

func NewMemStore() *MemStore {
	return &MemStore{profiles: make(map[types.ID]*Profile)}
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) Put(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

func (s *MemStore) ApplyRating(_ context.Context, id types.ID, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.RatingAvg = (p.RatingAvg*float64(p.RatingTotal) + float64(score)) / float64(p.RatingTotal+1)
	p.RatingTotal++
	return nil
}

func (s *MemStore) IncrementFine(_ context.Context, id types.ID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.PaymentFine += amount
	return nil
}

func (s *MemStore) IncrementTrips(_ context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.Trips++
	return nil
}
