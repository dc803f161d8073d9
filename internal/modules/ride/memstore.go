// README: In-memory ride store; mirrors the SQL conditional-write semantics.
package ride

import (
	"context"
	"sync"
	"time"

	"ryde/internal/types"
)

// MemStore keeps every ride behind one mutex so each conditional write is as
// atomic as its SQL counterpart. Used as the local fallback and by tests.
type MemStore struct {
	mu    sync.Mutex
	rides map[types.ID]*Ride
}

func NewMemStore() *MemStore {
	return &MemStore{rides: make(map[types.ID]*Ride)}
}

func (s *MemStore) Create(_ context.Context, r *Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneRide(r)
	s.rides[r.ID] = cp
	return nil
}

func (s *MemStore) Get(_ context.Context, id types.ID) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRide(r), nil
}

func (s *MemStore) ActiveByRider(_ context.Context, riderID types.ID) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Ride
	for _, r := range s.rides {
		if r.RiderID != riderID || Terminal(r.Status) {
			continue
		}
		if best == nil || r.RequestedAt.After(best.RequestedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneRide(best), nil
}

func (s *MemStore) ActiveByDriver(_ context.Context, driverID types.ID) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Ride
	for _, r := range s.rides {
		if r.DriverID == nil || *r.DriverID != driverID || Terminal(r.Status) {
			continue
		}
		if best == nil || r.RequestedAt.After(best.RequestedAt) {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return cloneRide(best), nil
}

func (s *MemStore) SetInvited(_ context.Context, id types.ID, drivers []types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.InvitedDrivers = append([]types.ID(nil), drivers...)
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) Claim(_ context.Context, id types.ID, driverID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != StatusPending || r.DriverID != nil || !invited(r, driverID) {
		return false, nil
	}
	for _, inv := range r.InvitedDrivers {
		if inv != driverID {
			r.ExcludedDrivers = append(r.ExcludedDrivers, inv)
		}
	}
	r.InvitedDrivers = []types.ID{driverID}
	d := driverID
	r.DriverID = &d
	r.Status = StatusAccepted
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) Decline(_ context.Context, id types.ID, driverID types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != StatusPending || !invited(r, driverID) {
		return false, nil
	}
	kept := r.InvitedDrivers[:0]
	for _, inv := range r.InvitedDrivers {
		if inv != driverID {
			kept = append(kept, inv)
		}
	}
	r.InvitedDrivers = kept
	r.ExcludedDrivers = append(r.ExcludedDrivers, driverID)
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) UpdateStatus(_ context.Context, id types.ID, from, to Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) SetPayment(_ context.Context, id types.ID, ps PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return ErrNotFound
	}
	r.PaymentStatus = ps
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) MarkRated(_ context.Context, id types.ID, side types.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok || r.Status != StatusCompleted {
		return false, nil
	}
	if side == types.RoleDriver {
		if r.RatedByDriver {
			return false, nil
		}
		r.RatedByDriver = true
	} else {
		if r.RatedByRider {
			return false, nil
		}
		r.RatedByRider = true
	}
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemStore) ExpirePending(_ context.Context, cutoff time.Time) ([]*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Ride
	for _, r := range s.rides {
		if r.Status == StatusPending && r.RequestedAt.Before(cutoff) {
			r.Status = StatusRejected
			r.UpdatedAt = time.Now()
			out = append(out, cloneRide(r))
		}
	}
	return out, nil
}

func cloneRide(r *Ride) *Ride {
	cp := *r
	if r.DriverID != nil {
		d := *r.DriverID
		cp.DriverID = &d
	}
	cp.Stops = append([]types.Place(nil), r.Stops...)
	cp.InvitedDrivers = append([]types.ID(nil), r.InvitedDrivers...)
	cp.ExcludedDrivers = append([]types.ID(nil), r.ExcludedDrivers...)
	return &cp
}
