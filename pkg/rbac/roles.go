package rbac

// Role is a user's position in the platform hierarchy.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleStaff      Role = "STAFF"
	RoleStoreAdmin Role = "STORE_ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var roleLevels = map[Role]int{
	RoleCustomer:   1,
	RoleStaff:      2,
	RoleStoreAdmin: 3,
	RoleSuperAdmin: 4,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// HasRole reports whether userRole is at or above requiredRole in the
// hierarchy. Unknown roles on either side never match.
func HasRole(userRole, requiredRole Role) bool {
	have, ok := roleLevels[userRole]
	if !ok {
		return false
	}
	need, ok := roleLevels[requiredRole]
	if !ok {
		return false
	}
	return have >= need
}
