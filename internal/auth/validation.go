package auth

import (
	"fmt"
	"regexp"
)

var (
	usernameRegex = regexp.MustCompile(`^\w+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateUsername checks the username shape: word characters only, 3-255.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 255 {
		return fmt.Errorf("%w: username must be 3-255 characters", ErrValidation)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username may only contain letters, digits and underscores", ErrValidation)
	}
	return nil
}

// ValidateEmail checks an email's format and length.
func ValidateEmail(email string) error {
	if len(email) > 255 || !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

// ValidatePassword checks password length bounds.
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 255 {
		return fmt.Errorf("%w: password must be 8-255 characters", ErrValidation)
	}
	return nil
}

// ValidateDisplayName checks display name length bounds.
func ValidateDisplayName(name string) error {
	if len(name) < 3 || len(name) > 255 {
		return fmt.Errorf("%w: display name must be 3-255 characters", ErrValidation)
	}
	return nil
}
