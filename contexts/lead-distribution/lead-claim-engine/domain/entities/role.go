package entities

import "strings"

type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleEditor  Role = "editor"
	RoleMember  Role = "member"
)

func ParseRole(value string) Role {
	return Role(strings.ToLower(strings.TrimSpace(value)))
}

func (r Role) CanClaim() bool {
	return r == RoleOwner || r == RoleManager || r == RoleEditor
}

func (r Role) CanRelease() bool {
	return r == RoleOwner || r == RoleManager
}

func (r Role) CanAdminister() bool {
	return r == RoleOwner
}

func (r Role) IsMember() bool {
	switch r {
	case RoleOwner, RoleManager, RoleEditor, RoleMember:
		return true
	default:
		return false
	}
}
