// README: Driver-side handlers for location, availability and profile.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ryde/internal/modules/location"
	"ryde/internal/notify"
	"ryde/internal/types"
)

type reportLocationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (s *Server) handleReportLocation(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != types.RoleDriver {
		c.JSON(http.StatusForbidden, gin.H{"error": "only drivers report locations"})
		return
	}
	var req reportLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	err := s.locations.Report(c.Request.Context(), actor.ID, types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type availabilityReq struct {
	Availability string `json:"availability"`
}

func (s *Server) handleSetAvailability(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != types.RoleDriver {
		c.JSON(http.StatusForbidden, gin.H{"error": "only drivers set availability"})
		return
	}
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	err := s.locations.SetAvailability(c.Request.Context(), actor.ID, location.Availability(req.Availability))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type registerDriverReq struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Seats      int     `json:"seats"`
	Wheelchair bool    `json:"wheelchair"`
	Active     bool    `json:"active"`
}

func (s *Server) handleRegisterDriver(c *gin.Context) {
	actor := actorFrom(c)
	if actor.Role != types.RoleDriver {
		c.JSON(http.StatusForbidden, gin.H{"error": "only drivers register"})
		return
	}
	var req registerDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	err := s.locations.Register(c.Request.Context(), location.DriverRecord{
		ID:           actor.ID,
		Position:     types.Point{Lat: req.Lat, Lng: req.Lng},
		Availability: location.AvailabilityOffline,
		Vehicle:      location.Vehicle{Seats: req.Seats, Wheelchair: req.Wheelchair},
		Active:       req.Active,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type notificationView struct {
	ID        types.ID  `json:"id"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListNotifications(c *gin.Context) {
	actor := actorFrom(c)
	records, err := s.notifications.ListByUser(c.Request.Context(), actor.ID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]notificationView, 0, len(records))
	for _, n := range records {
		out = append(out, viewNotification(n))
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func viewNotification(n *notify.Notification) notificationView {
	return notificationView{
		ID:        n.ID,
		Event:     n.Event,
		Payload:   rawPayload(n.Payload),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	actor := actorFrom(c)
	id := types.ID(c.Param("id"))
	ok, err := s.notifications.MarkRead(c.Request.Context(), actor.ID, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// payload is stored as JSON; pass it through untouched
func rawPayload(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
