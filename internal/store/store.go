package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already registered")
)

// User is the persistent identity record. Every request works on its own
// snapshot; records are never shared between callers.
type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email,omitempty"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	IsActive       bool   `json:"is_active"`
	HashedPassword string `json:"-"`
}

// Session is a server-side proof of a login event. Sessions are created and
// deleted, never updated in place.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserStore defines the interface for user storage operations
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, skip, limit int) ([]*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
}

// SessionStore defines the interface for session storage operations
type SessionStore interface {
	Create(ctx context.Context, userID int64, createdAt, expiresAt time.Time) (*Session, error)
	GetByID(ctx context.Context, sessionID string) (*Session, error)
	// ListByUser returns the user's sessions ordered by creation time,
	// oldest first.
	ListByUser(ctx context.Context, userID int64) ([]*Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
