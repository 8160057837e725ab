package domain

// Identity is the opaque external id of a chat participant.
type Identity string

// String returns the raw id.
func (i Identity) String() string {
	return string(i)
}

// Role classifies an identity against the static directory.
type Role string

const (
	RoleUser           Role = "USER"
	RolePrimaryAdmin   Role = "PRIMARY_ADMIN"
	RoleSecondaryAdmin Role = "SECONDARY_ADMIN"
	RoleSuperAdmin     Role = "SUPER_ADMIN"
)

// IsAdmin reports whether the role belongs to any admin tier.
func (r Role) IsAdmin() bool {
	return r == RolePrimaryAdmin || r == RoleSecondaryAdmin || r == RoleSuperAdmin
}
