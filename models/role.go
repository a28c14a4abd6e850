package models

import (
	"fmt"
	"strings"
)

// Role is a user's permission level. Roles form a total order: admin > editor > viewer.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Rank returns the position of the role in the hierarchy. Unknown roles rank 0
// and therefore satisfy no requirement.
func (r Role) Rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r.Rank() > 0 }

// AtLeast reports whether r satisfies the required role. An empty requirement is
// satisfied by any valid role; an unknown one by none.
func (r Role) AtLeast(required Role) bool {
	if required == "" {
		return r.Valid()
	}
	return r.Valid() && required.Valid() && r.Rank() >= required.Rank()
}

// ParseRole normalises s and returns the matching role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// UserStatus is the account lifecycle state.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusPending  UserStatus = "pending"
)
