package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/accountd-io/accountd/internal/store"
)

// SessionManager creates, evicts and looks up server-side sessions while
// enforcing the per-user concurrent session cap.
type SessionManager struct {
	sessions   store.SessionStore
	sessionTTL time.Duration
	maxPerUser int
}

// NewSessionManager creates a SessionManager. maxPerUser is the concurrent
// session cap enforced on login.
func NewSessionManager(sessions store.SessionStore, sessionTTL time.Duration, maxPerUser int) *SessionManager {
	return &SessionManager{
		sessions:   sessions,
		sessionTTL: sessionTTL,
		maxPerUser: maxPerUser,
	}
}

// Login creates a new session for the user. When the user already holds the
// maximum number of sessions, the oldest ones are deleted first so the cap
// holds after the insert.
//
// The read-evict-insert sequence is not atomic: concurrent logins for the
// same user can transiently exceed the cap by a small margin. The cap is a
// best-effort bound, exact under sequential load.
func (m *SessionManager) Login(ctx context.Context, user *store.User) (*store.Session, error) {
	current, err := m.sessions.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions for user %d: %w", user.ID, err)
	}

	for len(current) >= m.maxPerUser {
		oldest := current[0]
		if err := m.sessions.Delete(ctx, oldest.ID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
			return nil, fmt.Errorf("evicting session %s: %w", oldest.ID, err)
		}
		log.Printf("Evicted oldest session %s for user %d (cap %d)", oldest.ID, user.ID, m.maxPerUser)
		current = current[1:]
	}

	now := time.Now()
	session, err := m.sessions.Create(ctx, user.ID, now, now.Add(m.sessionTTL))
	if err != nil {
		return nil, fmt.Errorf("creating session for user %d: %w", user.ID, err)
	}
	return session, nil
}

// Logout deletes every session the user holds, not just the one named by
// the current cookie. A login cookie anywhere ends the login everywhere.
func (m *SessionManager) Logout(ctx context.Context, user *store.User) error {
	deleted, err := m.sessions.DeleteByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("deleting sessions for user %d: %w", user.ID, err)
	}
	if deleted == 0 {
		return ErrNoActiveSession
	}
	return nil
}

// Lookup returns the session with the given identifier.
func (m *SessionManager) Lookup(ctx context.Context, sessionID string) (*store.Session, error) {
	session, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("looking up session %s: %w", sessionID, err)
	}
	return session, nil
}

// PurgeOlderThan deletes sessions created before now minus age. It is meant
// for periodic maintenance, not for request paths.
func (m *SessionManager) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	deleted, err := m.sessions.DeleteOlderThan(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("purging sessions older than %s: %w", age, err)
	}
	return deleted, nil
}
