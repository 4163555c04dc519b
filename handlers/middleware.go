package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"policyassist-backend/logger"
	"policyassist-backend/models"
	"policyassist-backend/session"
)

// SessionCookie carries the opaque session ID
const SessionCookie = "session"

const (
	sessionIDKey = "session_id"
	requesterKey = "requester"
)

// SessionResolver looks up the session behind a cookie value
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (*session.Session, error)
}

func errorBody(code, message string) gin.H {
	return gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// RequireSession rejects requests without a live session and stores the
// resolved requester on the context
func RequireSession(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("NOT_AUTHENTICATED", "Not authenticated"))
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("NOT_AUTHENTICATED", "Session expired or unknown"))
			return
		}
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "session lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody("SESSION_UNAVAILABLE", "Session store unavailable"))
			return
		}

		requester := sess.Requester()
		c.Set(sessionIDKey, id)
		c.Set(requesterKey, requester)
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
			Username:   requester.Username,
			Department: requester.Department,
			Role:       string(requester.Role),
		}))
		c.Next()
	}
}

// RequireHR must run after RequireSession
func RequireHR() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requesterFrom(c).IsHR() {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody("FORBIDDEN", "HR role required"))
			return
		}
		c.Next()
	}
}

func requesterFrom(c *gin.Context) models.Requester {
	if v, ok := c.Get(requesterKey); ok {
		if r, ok := v.(models.Requester); ok {
			return r
		}
	}
	return models.Requester{}
}

// RequestLogger logs one line per request through slog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
