package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6

	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the subset of a User that may leave the server.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}

// Credentials is the shape shared by registration and login requests.
type Credentials struct {
	Username string
	Password string
}

// Normalize trims surrounding whitespace from the username. Passwords are
// taken verbatim.
func (c Credentials) Normalize() Credentials {
	c.Username = strings.TrimSpace(c.Username)
	return c
}

// Validate reports the first violated length constraint. Minimums count
// characters; the password maximum counts bytes.
func (c Credentials) Validate() error {
	if utf8.RuneCountInString(c.Username) < MinUsernameLength {
		return NewValidationError("username", "username must be at least 3 characters")
	}
	if utf8.RuneCountInString(c.Password) < MinPasswordLength {
		return NewValidationError("password", "password must be at least 6 characters")
	}
	if len(c.Password) > MaxPasswordBytes {
		return NewValidationError("password", "password must be at most 72 bytes")
	}
	return nil
}
