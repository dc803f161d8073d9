// README: Rating settlement; the per-ride flag arbitrates exactly-once.
package rating

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ryde/internal/modules/ride"
	"ryde/internal/modules/user"
	"ryde/internal/types"
)

var (
	ErrBadScore        = errors.New("score out of range")
	ErrRideNotEligible = errors.New("ride not eligible for rating")
	ErrAlreadyRated    = errors.New("side already rated this ride")
	ErrUnauthorized    = errors.New("actor not a party to this ride")
)

type Service struct {
	store Store
	rides ride.Store
	users user.Store
	log   *slog.Logger
}

func NewService(store Store, rides ride.Store, users user.Store, log *slog.Logger) *Service {
	return &Service{store: store, rides: rides, users: users, log: log}
}

type SubmitCommand struct {
	RideID  types.ID
	Actor   types.Actor
	Score   int
	Comment string
}

// Submit rates the counterparty of a completed ride. The conditional flag
// flip on the ride is the arbiter: it lands exactly once per side, so the
// ratee's aggregate is never applied twice even under concurrent retries.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*Rating, error) {
	if cmd.Score < 1 || cmd.Score > 5 {
		return nil, ErrBadScore
	}

	r, err := s.rides.Get(ctx, cmd.RideID)
	if err != nil {
		return nil, err
	}

	ratee, err := counterparty(r, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if r.Status != ride.StatusCompleted {
		return nil, ErrRideNotEligible
	}

	ok, err := s.rides.MarkRated(ctx, cmd.RideID, cmd.Actor.Role)
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh, err := s.rides.Get(ctx, cmd.RideID)
		if err != nil {
			return nil, err
		}
		if fresh.Status != ride.StatusCompleted {
			return nil, ErrRideNotEligible
		}
		return nil, ErrAlreadyRated
	}

	rec := &Rating{
		ID:        types.ID(uuid.NewString()),
		RideID:    cmd.RideID,
		RaterID:   cmd.Actor.ID,
		RateeID:   ratee,
		Side:      cmd.Actor.Role,
		Score:     cmd.Score,
		Comment:   cmd.Comment,
		CreatedAt: time.Now(),
	}

	// The flag already landed; record and aggregate failures are logged
	// rather than unwound so a retry cannot double-count.
	if err := s.store.Create(ctx, rec); err != nil {
		s.log.Error("rating record write failed", "ride_id", cmd.RideID, "err", err)
	}
	if err := s.users.ApplyRating(ctx, ratee, cmd.Score); err != nil {
		s.log.Error("rating aggregate update failed", "user_id", ratee, "err", err)
	}
	return rec, nil
}

func counterparty(r *ride.Ride, a types.Actor) (types.ID, error) {
	switch a.Role {
	case types.RoleRider:
		if r.RiderID != a.ID || r.DriverID == nil {
			return "", ErrUnauthorized
		}
		return *r.DriverID, nil
	case types.RoleDriver:
		if r.DriverID == nil || *r.DriverID != a.ID {
			return "", ErrUnauthorized
		}
		return r.RiderID, nil
	default:
		return "", ErrUnauthorized
	}
}
