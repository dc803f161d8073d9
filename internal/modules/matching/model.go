// README: Candidate driver selection for ride dispatch.
package matching

import "ryde/internal/types"

// Constraints narrows the candidate pool by vehicle attributes.
type Constraints struct {
	MinSeats   int
	Wheelchair bool
}

// Candidate is a driver eligible for an invite, ordered by proximity.
type Candidate struct {
	DriverID   types.ID
	Position   types.Point
	DistanceKm float64
}

// oversampleFactor widens the raw index query so that post-filtering still
// fills the invite list.
const oversampleFactor = 4
