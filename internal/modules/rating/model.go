// README: Post-ride ratings; one per side per completed ride.
package rating

import (
	"time"

	"ryde/internal/types"
)

type Rating struct {
	ID        types.ID
	RideID    types.ID
	RaterID   types.ID
	RateeID   types.ID
	Side      types.Role
	Score     int
	Comment   string
	CreatedAt time.Time
}
