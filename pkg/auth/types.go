package auth

import (
	"fmt"
	"time"
)

// Role is a user's role. The set is closed: any other value is rejected at
// write time, never coerced.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// ErrInvalidRole is returned when a write carries a role outside the closed set.
type ErrInvalidRole struct {
	Role Role
}

func (e ErrInvalidRole) Error() string {
	return fmt.Sprintf("invalid role %q: must be one of user, moderator, admin", e.Role)
}

// ReservedUsername cannot be registered; it collides with the /users/me route.
const ReservedUsername = "me"

// User represents a registered account
type User struct {
	ID               int64     `json:"-"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	Bio              string    `json:"bio,omitempty"`
	FirstName        string    `json:"first_name,omitempty"`
	LastName         string    `json:"last_name,omitempty"`
	ConfirmationCode string    `json:"-"`
	IsSuperuser      bool      `json:"-"`
	IsStaff          bool      `json:"-"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

// IsUser reports whether the stored role is the plain user role.
func (u *User) IsUser() bool {
	return u.Role == RoleUser
}

// IsModerator reports whether the stored role is moderator.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// IsAdmin reports whether the user has admin privileges: either the admin
// role or the superuser flag, independent of the stored role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser
}
