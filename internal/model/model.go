// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the access level assigned to a user.
type Role string

const (
	// RoleDefault is a regular user with standard permissions.
	RoleDefault Role = "DEFAULT"
	// RoleAdmin is a user with administrative privileges.
	RoleAdmin Role = "ADMIN"
)

// User represents an account stored on the server. The password is kept
// only as a bcrypt hash.
type User struct {
	ID        uuid.UUID // PK
	Username  string    // unique, lowercase
	Email     string    // unique
	PwdHash   string    // bcrypt(password), salt and cost embedded
	Name      string
	LastName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshToken is the single currently-valid refresh credential for a user.
// The signed token is stored verbatim so that lookup by token value and
// signature verification act as two independent checks.
type RefreshToken struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
}

// TokenPair collects issued credentials (refresh empty on rotation-only issue).
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime, seconds
}
