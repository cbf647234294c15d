package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleAdmin operates across every workshop: users, workshops and all
	// tenant data. Bypasses workshop scoping.
	RoleAdmin Role = "admin"

	// RoleManager runs one workshop. Default role for self-service signup.
	RoleManager Role = "manager"

	// RoleWorker belongs to one workshop. Scoped exactly like a manager.
	RoleWorker Role = "worker"
)

// ValidRoles is the set of valid user roles.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleWorker}

// IsValidRole returns true if r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User is a persisted account.
type User struct {
	ID             int64     `db:"id" json:"user_id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Email          string    `db:"email" json:"email"`
	HashedPassword string    `db:"hashed_password" json:"-"` // never serialised
	Role           Role      `db:"role" json:"role"`
	WorkshopID     int64     `db:"workshop_id" json:"workshop_id"`
	TokenVersion   int       `db:"token_version" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UserPatch carries a partial update. Nil fields are left untouched.
type UserPatch struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	Role       *Role   `json:"role"`
	WorkshopID *int64  `json:"workshop_id"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Role == nil && p.WorkshopID == nil
}

// NormalizeEmail lower-cases and trims an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidUser)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email %q is not a valid address", ErrInvalidUser, email)
	}
	return email, nil
}

// Sentinel errors for auth operations.
var (
	// ErrUnauthorized is wrapped by every identity resolution failure.
	ErrUnauthorized = errors.New("unauthorized")

	ErrMissingToken       = errors.New("missing bearer token")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenStale         = errors.New("token has been revoked")
	ErrMissingSecret      = errors.New("token signing secret is not configured")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrWrongPassword      = errors.New("old password is incorrect")
	ErrPasswordChanged    = errors.New("password was changed concurrently")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidUser        = errors.New("invalid user")
	ErrInvalidRole        = errors.New("invalid role")
	ErrLastAdmin          = errors.New("cannot remove the last admin")

	ErrForbidden        = errors.New("insufficient permissions")
	ErrNoWorkshop       = errors.New("no workshop assigned")
	ErrWorkshopRequired = errors.New("workshop_id is required")
)
