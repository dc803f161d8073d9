package rating

import (
	"context"

	"ryde/internal/types"
)

type Store interface {
	Create(ctx context.Context, r *Rating) error
	ByRide(ctx context.Context, rideID types.ID) ([]*Rating, error)
}
