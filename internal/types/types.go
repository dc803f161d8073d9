// README: Common identifiers and value objects shared across modules.
package types

// ID is an opaque entity identifier (users, rides, ratings).
type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Zero reports whether the point is the unset (0,0) value.
func (p Point) Zero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// Role identifies which side of a ride an actor is on.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// Actor is the authenticated caller identity handed to every core operation.
// Credential verification happens at the transport boundary; modules trust it.
type Actor struct {
	ID   ID
	Role Role
}

// Place is a coordinate with its human-readable address.
type Place struct {
	Point   Point  `json:"point"`
	Address string `json:"address"`
}
