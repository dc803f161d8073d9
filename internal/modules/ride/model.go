// README: Ride aggregate, status machine and payment states.
package ride

import (
	"time"

	"ryde/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusArrived   Status = "arrived"
	StatusProgress  Status = "progress"
	StatusPaused    Status = "paused"
	StatusPanic     Status = "panic"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Ride is the dispatch and lifecycle aggregate. DriverID is nil exactly
// while status is pending; a driver never sits in both the invited and
// excluded sets once a decline or lost race is processed.
type Ride struct {
	ID       types.ID
	RiderID  types.ID
	DriverID *types.ID
	Status   Status

	Pickup  types.Place
	Dropoff types.Place
	Stops   []types.Place

	Seats      int
	Wheelchair bool

	InvitedDrivers  []types.ID
	ExcludedDrivers []types.ID

	Fare          int64
	PaymentStatus PaymentStatus

	// Route estimate captured at request time; zero when the oracle was
	// unavailable.
	EstimatedDistanceM int64
	EstimatedDurationS int64

	RatedByRider  bool
	RatedByDriver bool

	RequestedAt time.Time
	UpdatedAt   time.Time
}

// AllowedTransitions represents the ride state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusCancelled, StatusRejected},
	StatusAccepted: {StatusArrived, StatusCancelled},
	StatusArrived:  {StatusProgress, StatusCancelled},
	StatusProgress: {StatusPaused, StatusPanic, StatusCompleted},
	StatusPaused:   {StatusProgress, StatusPanic},
	StatusPanic:    {StatusProgress, StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func Terminal(s Status) bool {
	_, ok := AllowedTransitions[s]
	return !ok
}

// ActiveStatuses are the non-terminal statuses; a rider or driver may hold
// at most one ride in any of them.
var ActiveStatuses = []Status{
	StatusPending, StatusAccepted, StatusArrived,
	StatusProgress, StatusPaused, StatusPanic,
}

func invited(r *Ride, driverID types.ID) bool {
	for _, id := range r.InvitedDrivers {
		if id == driverID {
			return true
		}
	}
	return false
}
