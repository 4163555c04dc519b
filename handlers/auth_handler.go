package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"policyassist-backend/service"
)

// Authenticator is the login surface of service.AuthService
type Authenticator interface {
	Login(ctx context.Context, req service.LoginRequest) (*service.LoginResult, error)
	Logout(ctx context.Context, id string) error
}

type AuthHandler struct {
	auth         Authenticator
	secureCookie bool
	cookieMaxAge time.Duration
}

func NewAuthHandler(auth Authenticator, secureCookie bool, maxAge time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie, cookieMaxAge: maxAge}
}

// LoginRequest is the body of POST /api/login. "user" and "pass" are
// accepted as aliases.
type LoginRequest struct {
	Username   string `json:"username"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Pass       string `json:"pass"`
	Department string `json:"department"`
	Country    string `json:"country"`
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", err.Error()))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginRequest{
		Username:   firstSet(req.Username, req.User),
		Password:   firstSet(req.Password, req.Pass),
		Department: req.Department,
		Country:    req.Country,
	})
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, errorBody("INVALID_CREDENTIALS", "Invalid credentials, check username/password"))
		return
	}
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "login failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, errorBody("LOGIN_UNAVAILABLE", "Login is temporarily unavailable"))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, result.SessionID, int(h.cookieMaxAge.Seconds()), "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message":    "Welcome " + result.Session.Username,
			"username":   result.Session.Username,
			"role":       result.Role,
			"department": result.Session.Department,
			"country":    result.Session.Country,
		},
	})
}

// Logout handles POST /api/logout. It succeeds without a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		if err := h.auth.Logout(c.Request.Context(), id); err != nil {
			slog.WarnContext(c.Request.Context(), "failed to delete session", "error", err)
		}
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    requesterFrom(c),
	})
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
