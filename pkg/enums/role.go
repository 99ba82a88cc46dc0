package enums

import "slices"

// Role is a pharmacy staff role used for authorization and notification routing.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RolePharmacist       Role = "PHARMACIST"
	RoleInventoryManager Role = "INVENTORY_MANAGER"
	RoleProcurement      Role = "PROCUREMENT"
	RoleSystem           Role = "SYSTEM"
)

var validRoles = []Role{
	RoleAdmin,
	RolePharmacist,
	RoleInventoryManager,
	RoleProcurement,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the role can be assigned to staff. SYSTEM is internal only.
func (r Role) IsValid() bool {
	return slices.Contains(validRoles, r)
}

// ParseRole converts raw input into Role.
func ParseRole(value string) (Role, error) {
	return parse(validRoles, "role", value)
}
