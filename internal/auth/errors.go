package auth

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the base kind for every authentication failure. The
// specific sentinels below all unwrap to it, so callers can branch on the
// class with errors.Is while logs keep the precise cause.
var ErrUnauthorized = errors.New("not authorized")

var (
	ErrUnauthenticated    = fmt.Errorf("%w: no credentials presented", ErrUnauthorized)
	ErrTokenInvalid       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token has expired", ErrUnauthorized)
	ErrSessionNotFound    = fmt.Errorf("%w: session not found", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

	// ErrIdentityMismatch means the session and token resolved to different
	// users. That is not a routine auth failure: it signals the two identity
	// tracks have desynchronized, so it gets its own sentinel for logging
	// even though the boundary still answers 401.
	ErrIdentityMismatch = fmt.Errorf("%w: session user does not match token user", ErrUnauthorized)
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrNoActiveSession = errors.New("no sessions to delete")
	ErrValidation      = errors.New("validation failed")
	ErrInactiveUser    = errors.New("inactive user")
)

// ConflictError reports a uniqueness violation on registration or update,
// tagged with the offending field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " is already taken"
}
