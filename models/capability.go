package models

// Capability is an action a role may perform within its organization
type Capability string

const (
	CapOrgRead      Capability = "org:read"
	CapOrgUpdate    Capability = "org:update"
	CapOrgDelete    Capability = "org:delete"
	CapMemberRead   Capability = "member:read"
	CapMemberCreate Capability = "member:create"
	CapMemberUpdate Capability = "member:update"
	CapMemberDelete Capability = "member:delete"
)

// RoleCapabilities is the role -> capability table. Outline operations are not
// listed: any member may perform them.
var RoleCapabilities = map[MemberRole]map[Capability]bool{
	RoleOwner: {
		CapOrgRead:      true,
		CapOrgUpdate:    true,
		CapOrgDelete:    true,
		CapMemberRead:   true,
		CapMemberCreate: true,
		CapMemberUpdate: true,
		CapMemberDelete: true,
	},
	RoleMember: {
		CapMemberRead: true,
	},
}

// Can reports whether the role grants capability c
func (r MemberRole) Can(c Capability) bool {
	return RoleCapabilities[r][c]
}
