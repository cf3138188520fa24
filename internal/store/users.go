package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// SQLUserStore implements UserStore for SQLite and PostgreSQL
type SQLUserStore struct {
	db     *sql.DB
	dbType string
}

// NewUserStore creates a new SQLUserStore
func NewUserStore(db *sql.DB, dbType string) *SQLUserStore {
	return &SQLUserStore{db: db, dbType: dbType}
}

// Create stores a new user and assigns its id. An empty email is persisted
// as NULL so the unique index only applies to users that set one.
func (s *SQLUserStore) Create(ctx context.Context, user *User) error {
	const op = "store.users.Create"

	email := sql.NullString{String: user.Email, Valid: user.Email != ""}

	if s.dbType == "postgres" {
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO users (email, username, display_name, is_active, hashed_password)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			email, user.Username, user.DisplayName, user.IsActive, user.HashedPassword,
		).Scan(&user.ID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, translateUniqueViolation(err))
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, username, display_name, is_active, hashed_password)
		 VALUES (?, ?, ?, ?, ?)`,
		email, user.Username, user.DisplayName, user.IsActive, user.HashedPassword,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateUniqueViolation(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (s *SQLUserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	const op = "store.users.GetByID"

	query := `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users WHERE id = ?`
	if s.dbType == "postgres" {
		query = `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users WHERE id = $1`
	}

	return s.scanUser(op, s.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a user by username
func (s *SQLUserStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	const op = "store.users.GetByUsername"

	query := `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users WHERE username = ?`
	if s.dbType == "postgres" {
		query = `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users WHERE username = $1`
	}

	return s.scanUser(op, s.db.QueryRowContext(ctx, query, username))
}

// GetByEmail retrieves a user by email
func (s *SQLUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	const op = "store.users.GetByEmail"

	query := `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users WHERE email = ?`
	if s.dbType == "postgres" {
		query = `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users WHERE email = $1`
	}

	return s.scanUser(op, s.db.QueryRowContext(ctx, query, email))
}

// List returns users ordered by id with skip/limit pagination
func (s *SQLUserStore) List(ctx context.Context, skip, limit int) ([]*User, error) {
	const op = "store.users.List"

	query := `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users ORDER BY id LIMIT ? OFFSET ?`
	if s.dbType == "postgres" {
		query = `SELECT id, email, username, display_name, is_active, hashed_password
		FROM users ORDER BY id LIMIT $1 OFFSET $2`
	}

	rows, err := s.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		var email sql.NullString
		if err := rows.Scan(&user.ID, &email, &user.Username, &user.DisplayName,
			&user.IsActive, &user.HashedPassword); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.Email = email.String
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// Update persists all mutable fields of the user
func (s *SQLUserStore) Update(ctx context.Context, user *User) error {
	const op = "store.users.Update"

	email := sql.NullString{String: user.Email, Valid: user.Email != ""}

	query := `UPDATE users SET email = ?, username = ?, display_name = ?, is_active = ?, hashed_password = ?
		WHERE id = ?`
	if s.dbType == "postgres" {
		query = `UPDATE users SET email = $1, username = $2, display_name = $3, is_active = $4, hashed_password = $5
		WHERE id = $6`
	}

	result, err := s.db.ExecContext(ctx, query,
		email, user.Username, user.DisplayName, user.IsActive, user.HashedPassword, user.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, translateUniqueViolation(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// Delete removes a user record
func (s *SQLUserStore) Delete(ctx context.Context, id int64) error {
	const op = "store.users.Delete"

	query := `DELETE FROM users WHERE id = ?`
	if s.dbType == "postgres" {
		query = `DELETE FROM users WHERE id = $1`
	}

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

func (s *SQLUserStore) scanUser(op string, row *sql.Row) (*User, error) {
	user := &User{}
	var email sql.NullString
	err := row.Scan(&user.ID, &email, &user.Username, &user.DisplayName,
		&user.IsActive, &user.HashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.Email = email.String
	return user, nil
}

// translateUniqueViolation maps driver-specific unique-constraint errors to
// the store sentinels so callers never see raw driver errors.
func translateUniqueViolation(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		if strings.Contains(sqliteErr.Error(), "users.email") {
			return ErrDuplicateEmail
		}
		if strings.Contains(sqliteErr.Error(), "users.username") {
			return ErrDuplicateUsername
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "email") {
			return ErrDuplicateEmail
		}
		if strings.Contains(pqErr.Constraint, "username") {
			return ErrDuplicateUsername
		}
	}

	return err
}
