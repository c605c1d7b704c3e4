package models

import (
	"fmt"
	"time"
)

// Role is the authorization role assigned to a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleIssuer Role = "issuer"
	RoleUser   Role = "user"
)

// ParseRole validates a role string against the known role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleIssuer, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is an account that can authenticate against the service.
// Usernames are stored lowercased; uniqueness is case-insensitive.
type User struct {
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// Profile is the externally visible view of a user. It never carries the
// password hash.
type Profile struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile projects the user into its external representation.
func (u *User) Profile() Profile {
	return Profile{
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
