package model

import (
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

var ValidRoles = []string{string(RoleAdmin), string(RoleModerator), string(RoleUser)}

// RoleAssignment is one row of the role store. A user may hold the same role
// more than once; nothing enforces uniqueness.
type RoleAssignment struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// HasRole reports whether the assignment set contains role.
func HasRole(roles []RoleAssignment, role Role) bool {
	for _, r := range roles {
		if r.Role == role {
			return true
		}
	}
	return false
}
