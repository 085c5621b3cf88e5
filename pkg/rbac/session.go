package rbac

// Session is the acting user of a request, passed explicitly to every check.
type Session struct {
	UserID  uint
	Role    Role
	StoreID *uint
}

func (s *Session) IsSuperAdmin() bool {
	return s != nil && s.Role == RoleSuperAdmin
}

// CheckResourcePermission combines the role check with tenant scoping. When
// resourceStoreID is set, a non-SuperAdmin session must belong to that store.
func CheckResourcePermission(s *Session, resource Resource, action Action, resourceStoreID *uint) bool {
	return RequirePermission(s, resource, action, resourceStoreID) == nil
}

// RequirePermission is the fail-fast form of CheckResourcePermission.
func RequirePermission(s *Session, resource Resource, action Action, resourceStoreID *uint) error {
	if s == nil {
		return ErrUnauthenticated
	}
	if s.Role == RoleSuperAdmin {
		return nil
	}
	if !HasPermission(s.Role, resource, action) {
		return &PermissionDeniedError{Resource: resource, Action: action}
	}
	if resourceStoreID != nil {
		if s.StoreID == nil || *s.StoreID != *resourceStoreID {
			return &PermissionDeniedError{Resource: resource, Action: action, CrossTenant: true}
		}
	}
	return nil
}

// RequireRole fails unless the session's role is at or above required.
func RequireRole(s *Session, required Role) error {
	if s == nil {
		return ErrUnauthenticated
	}
	if !HasRole(s.Role, required) {
		return &InsufficientRoleError{Have: s.Role, Need: required}
	}
	return nil
}

// StoreScope returns the store an operation acts on. Store-bound users act on
// their own store and may not name another one. A SuperAdmin has no binding
// and must name the store explicitly.
func StoreScope(s *Session, requested *uint) (uint, error) {
	if s == nil {
		return 0, ErrUnauthenticated
	}
	if s.Role == RoleSuperAdmin {
		if requested == nil || *requested == 0 {
			return 0, ErrNoStoreAssigned
		}
		return *requested, nil
	}
	if s.StoreID == nil {
		return 0, ErrNoStoreAssigned
	}
	if requested != nil && *requested != 0 && *requested != *s.StoreID {
		return 0, &PermissionDeniedError{Resource: ResourceStores, Action: ActionRead, CrossTenant: true}
	}
	return *s.StoreID, nil
}
