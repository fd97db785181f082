package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// DefaultBio is stored whenever a member leaves the bio empty.
const DefaultBio = "no bio"

// MaxBioLength caps the free-text bio field.
const MaxBioLength = 500

// User represents a member of the organization. NIS is the organizational
// identity key; Password holds the raw credential (the system deliberately
// stores credentials unhashed, see DESIGN.md).
type User struct {
	NIS       string
	Username  string
	FullName  string
	Role      Role
	Position  string
	Bio       string
	PhotoURL  *string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Sanitize returns a copy safe to hand to clients and session storage:
// the credential is stripped, everything else is kept.
func (u *User) Sanitize() *User {
	if u == nil {
		return nil
	}
	copied := *u
	copied.Password = ""
	return &copied
}
