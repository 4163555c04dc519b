package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a demo account able to open a session
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize password hash
	Roles        []string  `json:"roles"`
	Department   string    `json:"department"`
	Country      string    `json:"country,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
