package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/accountd-io/accountd/internal/store"
)

// NewUser is the registration input. Email and DisplayName are optional;
// an absent display name defaults to the username.
type NewUser struct {
	Email       string `json:"email,omitempty"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Password    string `json:"password"`
}

// Patch is a partial update: nil fields are left untouched. The field set is
// closed over exactly the mutable attributes, so nothing else can be written
// through an update.
type Patch struct {
	Email       *string `json:"new_email,omitempty"`
	Username    *string `json:"new_username,omitempty"`
	DisplayName *string `json:"new_display_name,omitempty"`
	Password    *string `json:"new_password,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// AccountService orchestrates registration, credential verification, update
// and deletion, enforcing uniqueness and ownership invariants.
type AccountService struct {
	users    store.UserStore
	sessions store.SessionStore
	hasher   *PasswordHasher
}

// NewAccountService creates an AccountService.
func NewAccountService(users store.UserStore, sessions store.SessionStore, hasher *PasswordHasher) *AccountService {
	return &AccountService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
	}
}

// Register creates a new active user after validating the candidate's shape
// and pre-checking email and username uniqueness. The pre-check leaves a
// narrow race window; the unique indexes backstop it.
func (s *AccountService) Register(ctx context.Context, candidate NewUser) (*store.User, error) {
	if err := ValidateUsername(candidate.Username); err != nil {
		return nil, err
	}
	if candidate.Email != "" {
		if err := ValidateEmail(candidate.Email); err != nil {
			return nil, err
		}
	}
	if err := ValidatePassword(candidate.Password); err != nil {
		return nil, err
	}
	if candidate.DisplayName != "" {
		if err := ValidateDisplayName(candidate.DisplayName); err != nil {
			return nil, err
		}
	}

	if candidate.Email != "" {
		if _, err := s.users.GetByEmail(ctx, candidate.Email); err == nil {
			return nil, &ConflictError{Field: "email"}
		} else if !errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("checking email uniqueness: %w", err)
		}
	}
	if _, err := s.users.GetByUsername(ctx, candidate.Username); err == nil {
		return nil, &ConflictError{Field: "username"}
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("checking username uniqueness: %w", err)
	}

	displayName := candidate.DisplayName
	if displayName == "" {
		displayName = candidate.Username
	}

	hashed, err := s.hasher.Hash(candidate.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		Email:          candidate.Email,
		Username:       candidate.Username,
		DisplayName:    displayName,
		IsActive:       true,
		HashedPassword: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translateConflict(err)
	}
	return user, nil
}

// VerifyCredentials checks a username/password pair. The distinct internal
// causes (unknown user, wrong password) both unwrap to ErrUnauthorized so
// the boundary cannot be used for username enumeration.
func (s *AccountService) VerifyCredentials(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: username %q: %w", ErrUnauthorized, username, ErrUserNotFound)
		}
		return nil, fmt.Errorf("looking up user %q: %w", username, err)
	}

	if !s.hasher.Verify(user.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID returns the user with the given id.
func (s *AccountService) GetByID(ctx context.Context, id int64) (*store.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user %d: %w", id, err)
	}
	return user, nil
}

// List returns users with skip/limit pagination.
func (s *AccountService) List(ctx context.Context, skip, limit int) ([]*store.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.users.List(ctx, skip, limit)
}

// Update applies a partial update to the user. Changed email and username
// are re-checked for uniqueness against all other users, so writing back an
// unchanged value never self-conflicts. The password is re-hashed only when
// the patch carries one.
func (s *AccountService) Update(ctx context.Context, userID int64, patch Patch) (*store.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user %d: %w", userID, err)
	}

	if patch.Email != nil && *patch.Email != "" {
		if err := ValidateEmail(*patch.Email); err != nil {
			return nil, err
		}
		other, err := s.users.GetByEmail(ctx, *patch.Email)
		if err == nil && other.ID != userID {
			return nil, &ConflictError{Field: "email"}
		} else if err != nil && !errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("checking email uniqueness: %w", err)
		}
		user.Email = *patch.Email
	}

	if patch.Username != nil && *patch.Username != "" {
		if err := ValidateUsername(*patch.Username); err != nil {
			return nil, err
		}
		other, err := s.users.GetByUsername(ctx, *patch.Username)
		if err == nil && other.ID != userID {
			return nil, &ConflictError{Field: "username"}
		} else if err != nil && !errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("checking username uniqueness: %w", err)
		}
		user.Username = *patch.Username
	}

	if patch.DisplayName != nil && *patch.DisplayName != "" {
		if err := ValidateDisplayName(*patch.DisplayName); err != nil {
			return nil, err
		}
		user.DisplayName = *patch.DisplayName
	}

	if patch.Password != nil && *patch.Password != "" {
		if err := ValidatePassword(*patch.Password); err != nil {
			return nil, err
		}
		hashed, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user.HashedPassword = hashed
	}

	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, translateConflict(err)
	}
	return user, nil
}

// Delete removes the user and cascades to their sessions: a deleted account
// must not leave live login proofs behind.
func (s *AccountService) Delete(ctx context.Context, userID int64) (*store.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user %d: %w", userID, err)
	}

	deleted, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("deleting sessions for user %d: %w", userID, err)
	}
	if deleted > 0 {
		log.Printf("Deleted %d sessions for removed user %d", deleted, userID)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("deleting user %d: %w", userID, err)
	}
	return user, nil
}

// translateConflict maps the store's duplicate sentinels (the unique-index
// backstop behind the pre-checks) into field-tagged conflicts.
func translateConflict(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		return &ConflictError{Field: "email"}
	case errors.Is(err, store.ErrDuplicateUsername):
		return &ConflictError{Field: "username"}
	default:
		return err
	}
}
