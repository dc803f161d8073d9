// README: JSON views and error-to-status mapping.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ryde/internal/modules/location"
	"ryde/internal/modules/rating"
	"ryde/internal/modules/ride"
	"ryde/internal/types"
)

type placeView struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type rideView struct {
	ID              types.ID    `json:"ride_id"`
	RiderID         types.ID    `json:"rider_id"`
	DriverID        *types.ID   `json:"driver_id,omitempty"`
	Status          string      `json:"status"`
	Pickup          placeView   `json:"pickup"`
	Dropoff         placeView   `json:"dropoff"`
	Stops           []placeView `json:"stops,omitempty"`
	Seats           int         `json:"seats"`
	Wheelchair      bool        `json:"wheelchair"`
	InvitedDrivers  []types.ID  `json:"invited_drivers,omitempty"`
	Fare            int64       `json:"fare"`
	PaymentStatus   string      `json:"payment_status"`
	EstimatedMeters int64       `json:"estimated_distance_m,omitempty"`
	EstimatedSecs   int64       `json:"estimated_duration_s,omitempty"`
	RatedByRider    bool        `json:"rated_by_rider"`
	RatedByDriver   bool        `json:"rated_by_driver"`
}

func viewRide(r *ride.Ride) rideView {
	v := rideView{
		ID:              r.ID,
		RiderID:         r.RiderID,
		DriverID:        r.DriverID,
		Status:          string(r.Status),
		Pickup:          viewPlace(r.Pickup),
		Dropoff:         viewPlace(r.Dropoff),
		Seats:           r.Seats,
		Wheelchair:      r.Wheelchair,
		InvitedDrivers:  r.InvitedDrivers,
		Fare:            r.Fare,
		PaymentStatus:   string(r.PaymentStatus),
		EstimatedMeters: r.EstimatedDistanceM,
		EstimatedSecs:   r.EstimatedDurationS,
		RatedByRider:    r.RatedByRider,
		RatedByDriver:   r.RatedByDriver,
	}
	for _, s := range r.Stops {
		v.Stops = append(v.Stops, viewPlace(s))
	}
	return v
}

func viewPlace(p types.Place) placeView {
	return placeView{Lat: p.Point.Lat, Lng: p.Point.Lng, Address: p.Address}
}

// writeRideError maps the service's sentinel errors to status codes. The
// distinctions matter to clients: "already taken" means stop showing the
// invite, "not found" means drop the ride entirely.
func writeRideError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ride.ErrBadRequest), errors.Is(err, location.ErrBadPosition), errors.Is(err, rating.ErrBadScore):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ride.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ride.ErrUnauthorized), errors.Is(err, rating.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ride.ErrAlreadyClaimed),
		errors.Is(err, ride.ErrRideNotPending),
		errors.Is(err, ride.ErrNotInvited),
		errors.Is(err, ride.ErrActiveRide),
		errors.Is(err, ride.ErrConflict),
		errors.Is(err, rating.ErrAlreadyRated),
		errors.Is(err, rating.ErrRideNotEligible):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
