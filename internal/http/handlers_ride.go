// README: Ride dispatch and lifecycle handlers.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ryde/internal/modules/rating"
	"ryde/internal/modules/ride"
	"ryde/internal/types"
)

type placeReq struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

func (p placeReq) place() types.Place {
	return types.Place{Point: types.Point{Lat: p.Lat, Lng: p.Lng}, Address: p.Address}
}

type requestRideReq struct {
	Pickup     placeReq   `json:"pickup"`
	Dropoff    placeReq   `json:"dropoff"`
	Stops      []placeReq `json:"stops"`
	Seats      int        `json:"seats"`
	Wheelchair bool       `json:"wheelchair"`
}

func (s *Server) handleRequestRide(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != types.RoleRider {
		c.JSON(http.StatusForbidden, gin.H{"error": "only riders may request rides"})
		return
	}
	var req requestRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cmd := ride.RequestCommand{
		RiderID:    actor.ID,
		Pickup:     req.Pickup.place(),
		Dropoff:    req.Dropoff.place(),
		Seats:      req.Seats,
		Wheelchair: req.Wheelchair,
	}
	for _, stop := range req.Stops {
		cmd.Stops = append(cmd.Stops, stop.place())
	}
	r, err := s.rides.Request(c.Request.Context(), cmd)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewRide(r))
}

func (s *Server) handleGetRide(c *gin.Context) {
	r, err := s.rides.Get(c.Request.Context(), types.ID(c.Param("id")), actorFrom(c))
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewRide(r))
}

func (s *Server) handleAcceptInvite(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != types.RoleDriver {
		c.JSON(http.StatusForbidden, gin.H{"error": "only drivers may accept invites"})
		return
	}
	r, err := s.rides.Accept(c.Request.Context(), ride.AcceptCommand{
		RideID:   types.ID(c.Param("id")),
		DriverID: actor.ID,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewRide(r))
}

func (s *Server) handleDeclineInvite(c *gin.Context) {
	r, err := s.rides.Decline(c.Request.Context(), ride.DeclineCommand{
		RideID: types.ID(c.Param("id")),
		Actor:  actorFrom(c),
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewRide(r))
}

func (s *Server) handleArrive(c *gin.Context)   { s.transition(c, s.rides.Arrive) }
func (s *Server) handleStart(c *gin.Context)    { s.transition(c, s.rides.Start) }
func (s *Server) handleComplete(c *gin.Context) { s.transition(c, s.rides.Complete) }
func (s *Server) handlePause(c *gin.Context)    { s.transition(c, s.rides.Pause) }
func (s *Server) handleResume(c *gin.Context)   { s.transition(c, s.rides.Resume) }
func (s *Server) handlePanic(c *gin.Context)    { s.transition(c, s.rides.Panic) }

func (s *Server) transition(c *gin.Context, op func(ctx context.Context, cmd ride.TransitionCommand) (*ride.Ride, error)) {
	r, err := op(c.Request.Context(), ride.TransitionCommand{
		RideID: types.ID(c.Param("id")),
		Actor:  actorFrom(c),
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewRide(r))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancel(c *gin.Context) {
	var req cancelReq
	_ = c.ShouldBindJSON(&req)
	r, err := s.rides.Cancel(c.Request.Context(), ride.CancelCommand{
		RideID: types.ID(c.Param("id")),
		Actor:  actorFrom(c),
		Reason: req.Reason,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewRide(r))
}

type submitRatingReq struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

func (s *Server) handleSubmitRating(c *gin.Context) {
	var req submitRatingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rec, err := s.ratings.Submit(c.Request.Context(), rating.SubmitCommand{
		RideID:  types.ID(c.Param("id")),
		Actor:   actorFrom(c),
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"rating_id": rec.ID,
		"ride_id":   rec.RideID,
		"score":     rec.Score,
	})
}
