package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"policyassist-backend/models"
	"policyassist-backend/repository"
	"policyassist-backend/session"
)

// UserLookup finds demo users by username
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthService verifies demo credentials and manages sessions
type AuthService struct {
	users    UserLookup
	sessions session.Store
}

func NewAuthService(users UserLookup, sessions session.Store) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// LoginRequest represents a demo login. Department and Country override the
// values stored on the user when set.
type LoginRequest struct {
	Username   string
	Password   string
	Department string
	Country    string
}

// LoginResult represents the result of a successful login
type LoginResult struct {
	SessionID string
	Session   session.Session
	Role      models.Role
}

// Login checks the password and opens a session. An email address is
// accepted and matched by its local part.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if local, _, found := strings.Cut(username, "@"); found {
		username = local
	}
	if username == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess := session.Session{
		Username:   user.Username,
		Roles:      user.Roles,
		Department: strings.ToLower(firstNonEmpty(req.Department, user.Department)),
		Country:    strings.ToLower(firstNonEmpty(req.Country, user.Country)),
	}
	id, err := s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &LoginResult{
		SessionID: id,
		Session:   sess,
		Role:      models.DeriveRole(user.Roles...),
	}, nil
}

// Resolve returns the session behind id, or session.ErrNotFound
func (s *AuthService) Resolve(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, session.ErrNotFound
	}
	return s.sessions.Get(ctx, id)
}

func (s *AuthService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.sessions.Delete(ctx, id)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
