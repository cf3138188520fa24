package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLSessionStore implements SessionStore for SQLite and PostgreSQL
type SQLSessionStore struct {
	db     *sql.DB
	dbType string
}

// NewSessionStore creates a new SQLSessionStore
func NewSessionStore(db *sql.DB, dbType string) *SQLSessionStore {
	return &SQLSessionStore{db: db, dbType: dbType}
}

// Create inserts a new session with a store-assigned identifier
func (s *SQLSessionStore) Create(ctx context.Context, userID int64, createdAt, expiresAt time.Time) (*Session, error) {
	const op = "store.sessions.Create"

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	}

	query := `INSERT INTO sessions (session_id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	if s.dbType == "postgres" {
		query = `INSERT INTO sessions (session_id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	}

	_, err := s.db.ExecContext(ctx, query, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// GetByID retrieves a session by its identifier
func (s *SQLSessionStore) GetByID(ctx context.Context, sessionID string) (*Session, error) {
	const op = "store.sessions.GetByID"

	query := `SELECT session_id, user_id, created_at, expires_at FROM sessions WHERE session_id = ?`
	if s.dbType == "postgres" {
		query = `SELECT session_id, user_id, created_at, expires_at FROM sessions WHERE session_id = $1`
	}

	session := &Session{}
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

// ListByUser returns all sessions for a user, oldest first
func (s *SQLSessionStore) ListByUser(ctx context.Context, userID int64) ([]*Session, error) {
	const op = "store.sessions.ListByUser"

	query := `SELECT session_id, user_id, created_at, expires_at FROM sessions
		WHERE user_id = ? ORDER BY created_at ASC`
	if s.dbType == "postgres" {
		query = `SELECT session_id, user_id, created_at, expires_at FROM sessions
		WHERE user_id = $1 ORDER BY created_at ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session := &Session{}
		if err := rows.Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// Delete removes a single session
func (s *SQLSessionStore) Delete(ctx context.Context, sessionID string) error {
	const op = "store.sessions.Delete"

	query := `DELETE FROM sessions WHERE session_id = ?`
	if s.dbType == "postgres" {
		query = `DELETE FROM sessions WHERE session_id = $1`
	}

	result, err := s.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}
	return nil
}

// DeleteByUser removes every session belonging to a user and reports how
// many were deleted
func (s *SQLSessionStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	const op = "store.sessions.DeleteByUser"

	query := `DELETE FROM sessions WHERE user_id = ?`
	if s.dbType == "postgres" {
		query = `DELETE FROM sessions WHERE user_id = $1`
	}

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

// DeleteOlderThan removes sessions created before the cutoff
func (s *SQLSessionStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "store.sessions.DeleteOlderThan"

	query := `DELETE FROM sessions WHERE created_at < ?`
	if s.dbType == "postgres" {
		query = `DELETE FROM sessions WHERE created_at < $1`
	}

	result, err := s.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}
