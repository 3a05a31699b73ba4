package model

import (
	"errors"
	"time"
)

// Validation errors for registration payloads.
var (
	ErrEmptyUsername    = errors.New("username cannot be empty")
	ErrUsernameTooLong  = errors.New("username cannot exceed 64 characters")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong  = errors.New("password cannot exceed 72 characters")
)

// Credential policy constants. The upper password bound is the bcrypt
// input limit.
const (
	MaxUsernameLength = 64
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// User represents a registered account. PasswordHash is excluded from
// JSON so the digest can never leak into a response, whatever shape the
// payload takes.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credentials is the request payload for registering a user.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the registration payload.
func (c *Credentials) Validate() error {
	if c.Username == "" {
		return ErrEmptyUsername
	}

	if len(c.Username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}

	if c.Password == "" {
		return ErrEmptyPassword
	}

	if len(c.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	if len(c.Password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	return nil
}
