// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ryde/internal/infra"
	"ryde/internal/modules/location"
	"ryde/internal/modules/rating"
	"ryde/internal/modules/ride"
	"ryde/internal/notify"
	"ryde/internal/ws"
)

type ServerDeps struct {
	Rides         *ride.Service
	Ratings       *rating.Service
	Locations     *location.Service
	Notifications notify.Store
	Hub           *ws.Hub
	Verifier      infra.TokenVerifier
	Logger        *slog.Logger
}

type Server struct {
	rides         *ride.Service
	ratings       *rating.Service
	locations     *location.Service
	notifications notify.Store
	hub           *ws.Hub
	verifier      infra.TokenVerifier
	log           *slog.Logger
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		rides:         deps.Rides,
		ratings:       deps.Ratings,
		locations:     deps.Locations,
		notifications: deps.Notifications,
		hub:           deps.Hub,
		verifier:      deps.Verifier,
		log:           deps.Logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), metricsMiddleware())

	r.GET("/health", func(c *gin.Context) { c.String(200, "OK") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", s.authenticate())
	{
		rides := api.Group("/rides")
		rides.POST("", s.handleRequestRide)
		rides.GET("/:id", s.handleGetRide)
		rides.POST("/:id/accept", s.handleAcceptInvite)
		rides.POST("/:id/decline", s.handleDeclineInvite)
		rides.POST("/:id/arrive", s.handleArrive)
		rides.POST("/:id/start", s.handleStart)
		rides.POST("/:id/complete", s.handleComplete)
		rides.POST("/:id/cancel", s.handleCancel)
		rides.POST("/:id/pause", s.handlePause)
		rides.POST("/:id/resume", s.handleResume)
		rides.POST("/:id/panic", s.handlePanic)
		rides.POST("/:id/rating", s.handleSubmitRating)

		api.PUT("/driver/location", s.handleReportLocation)
		api.PUT("/driver/availability", s.handleSetAvailability)
		api.PUT("/driver/profile", s.handleRegisterDriver)

		api.GET("/notifications", s.handleListNotifications)
		api.POST("/notifications/:id/read", s.handleMarkNotificationRead)

		api.GET("/ws", s.handleWS)
	}
	return r
}

func (s *Server) handleWS(c *gin.Context) {
	actor := actorFrom(c)
	if err := s.hub.Serve(c.Writer, c.Request, actor); err != nil {
		s.log.Warn("ws upgrade failed", "user_id", actor.ID, "err", err)
	}
}
