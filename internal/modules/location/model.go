// README: Driver presence records tracked by the geo index.
package location

import (
	"time"

	"ryde/internal/types"
)

type Availability string

const (
	AvailabilityOnline  Availability = "online"
	AvailabilityOffline Availability = "offline"
	AvailabilityOnTrip  Availability = "on_trip"
	AvailabilityAway    Availability = "away"
)

type Vehicle struct {
	Seats      int
	Wheelchair bool
}

// DriverRecord is one driver's matching-relevant state: last known position,
// availability, vehicle attributes and the account-active flag.
type DriverRecord struct {
	ID           types.ID
	Position     types.Point
	Availability Availability
	Vehicle      Vehicle
	Active       bool
	UpdatedAt    time.Time
}

// DriverDistance pairs a record with its distance from a query origin.
type DriverDistance struct {
	DriverRecord
	DistanceKm float64
}

// Update is the wire form of a position report published to the broker.
type Update struct {
	DriverID   types.ID    `json:"driver_id"`
	Position   types.Point `json:"position"`
	RecordedAt time.Time   `json:"recorded_at"`
}
