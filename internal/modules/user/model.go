// README: User profile aggregates consumed by dispatch and rating settlement.
package user

import "ryde/internal/types"

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

// Profile carries the per-user aggregates the core mutates: the running
// rating pair, the rider's fine counter and the driver's lifetime trips.
// Registration data (names, credentials, documents) lives elsewhere.
type Profile struct {
	ID            types.ID
	Role          types.Role
	AccountStatus AccountStatus

	// Aggregate rating; updated incrementally, never recomputed.
	RatingTotal int64
	RatingAvg   float64

	PaymentFine int64
	Trips       int64

	// PushToken is the external device token for offline delivery.
	PushToken string
}
