// README: Auth, logging and metrics middleware for the API gateway.
package http

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ryde/internal/observability"
	"ryde/internal/types"
)

const actorKey = "actor"

// authenticate resolves the caller to an Actor. With a verifier configured
// it requires a bearer token; without one (local development) it trusts the
// X-User-ID and X-User-Role headers.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.verifier == nil {
			id := c.GetHeader("X-User-ID")
			if id == "" {
				c.AbortWithStatusJSON(401, gin.H{"error": "missing identity headers"})
				return
			}
			role := types.RoleRider
			if c.GetHeader("X-User-Role") == string(types.RoleDriver) {
				role = types.RoleDriver
			}
			c.Set(actorKey, types.Actor{ID: types.ID(id), Role: role})
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing bearer token"})
			return
		}
		actor, err := s.verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid token"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) types.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(types.Actor)
	return actor
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observability.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, statusClass(c.Writer.Status())).Inc()
		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func statusClass(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
