package user

import (
	"time"

	"github.com/homeworkhelper/api/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

var Roles = []string{RoleStudent, RoleAdmin}

type User struct {
	ID         string    `json:"id"`
	UID        string    `json:"uid,omitempty"` // identity provider subject
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	LastActive time.Time `json:"lastActive"` // UTC
	CreatedAt  time.Time `json:"createdAt"`  // UTC
	UpdatedAt  time.Time `json:"updatedAt"`  // UTC
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Identity is the verified caller of a request.
type Identity struct {
	UID   string
	Email string
	Admin bool
}

// Anonymous reports whether no identity was established (guest).
func (id Identity) Anonymous() bool { return id.UID == "" }

func (id Identity) Role() string {
	if id.Admin {
		return RoleAdmin
	}
	return RoleStudent
}

// SetRole holds the information needed to grant a role to a user.
type SetRole struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,role"`
	UID   string `json:"uid"`
}

func (sr *SetRole) Clean() {
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	sr.Role = core.CleanString(sr.Role, true /* lower */)
	sr.UID = core.CleanString(sr.UID)
}
