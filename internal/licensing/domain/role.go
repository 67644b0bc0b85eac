package domain

import "strings"

type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// ParseRole normalises a role string. Unknown roles are kept as-is so
// tenants can carry app-specific roles (e.g. "surveyor"); they are simply
// never elevated.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Elevated reports whether the role may manage projects, team and delegations.
func (r Role) Elevated() bool {
	return r == RoleOwner || r == RoleManager
}

func (r Role) String() string { return string(r) }
