package location

import (
	"context"
	"errors"

	"ryde/internal/types"
)

var ErrNotFound = errors.New("driver not tracked")

// Index is the live driver directory queried by matching. Nearby returns
// records ordered by distance ascending; it does not filter by availability
// or vehicle, that is the caller's job.
type Index interface {
	Upsert(ctx context.Context, rec DriverRecord) error
	SetPosition(ctx context.Context, id types.ID, pos types.Point) error
	SetAvailability(ctx context.Context, id types.ID, av Availability) error
	Get(ctx context.Context, id types.ID) (*DriverRecord, error)
	Nearby(ctx context.Context, origin types.Point, radiusKm float64, limit int) ([]DriverDistance, error)
}
