// README: Ride store contract; conditional writes arbitrate every race.
package ride

import (
	"context"
	"time"

	"ryde/internal/types"
)

// Store persists rides. Every mutating method that can race returns a bool
// reporting whether the conditional write landed; false means the
// precondition no longer held and nothing changed.
type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)

	// ActiveByRider and ActiveByDriver return the party's single
	// non-terminal ride, or ErrNotFound when none exists.
	ActiveByRider(ctx context.Context, riderID types.ID) (*Ride, error)
	ActiveByDriver(ctx context.Context, driverID types.ID) (*Ride, error)

	// SetInvited replaces the invited set; legal only while pending.
	SetInvited(ctx context.Context, id types.ID, drivers []types.ID) (bool, error)

	// Claim binds the driver and flips pending to accepted in one
	// conditional write. The predicate requires status pending, no bound
	// driver and membership of the invited set, so an uninvited claim
	// never transiently occupies the accepted slot. Losing invitees move
	// to the excluded set as part of the same write.
	Claim(ctx context.Context, id types.ID, driverID types.ID) (bool, error)

	// Decline moves the driver from invited to excluded while pending.
	Decline(ctx context.Context, id types.ID, driverID types.ID) (bool, error)

	// UpdateStatus performs a compare-and-set on status.
	UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error)

	SetPayment(ctx context.Context, id types.ID, ps PaymentStatus) error

	// MarkRated flips the per-side rated flag; false when already rated
	// or the ride is not completed.
	MarkRated(ctx context.Context, id types.ID, side types.Role) (bool, error)

	// ExpirePending flips rides stuck in pending since before the cutoff
	// to rejected and returns them.
	ExpirePending(ctx context.Context, cutoff time.Time) ([]*Ride, error)
}
