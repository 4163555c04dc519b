// Package session stores logged-in requester identities keyed by an opaque
// session ID carried in a cookie. Sessions expire after a fixed TTL.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"policyassist-backend/models"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Session is the identity resolved at login
type Session struct {
	Username   string    `json:"username"`
	Roles      []string  `json:"roles"`
	Department string    `json:"department"`
	Country    string    `json:"country,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Requester converts the session into the identity a query runs under
func (s Session) Requester() models.Requester {
	return models.NewRequester(s.Username, s.Department, models.DeriveRole(s.Roles...), s.Country)
}

type Store interface {
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

func newID() string {
	return uuid.NewString()
}
