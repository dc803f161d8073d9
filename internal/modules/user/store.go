package user

import (
	"context"
	"errors"

	"ryde/internal/types"
)

var ErrNotFound = errors.New("user not found")

// Store persists profile aggregates. ApplyRating folds one score into the
// running (total, avg) pair in a single conditional write.
type Store interface {
	Get(ctx context.Context, id types.ID) (*Profile, error)
	Put(ctx context.Context, p *Profile) error
	ApplyRating(ctx context.Context, id types.ID, score int) error
	IncrementFine(ctx context.Context, id types.ID, amount int64) error
	IncrementTrips(ctx context.Context, id types.ID) error
}
