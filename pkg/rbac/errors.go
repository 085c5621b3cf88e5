package rbac

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrNoStoreAssigned = errors.New("user is not assigned to a store")
)

type PermissionDeniedError struct {
	Resource Resource
	Action   Action
	// CrossTenant is set when the role allows the action but the resource
	// belongs to another store.
	CrossTenant bool
}

func (e *PermissionDeniedError) Error() string {
	if e.CrossTenant {
		return fmt.Sprintf("permission denied: %s on %s belongs to another store", e.Action, e.Resource)
	}
	return fmt.Sprintf("permission denied: cannot %s %s", e.Action, e.Resource)
}

func (e *PermissionDeniedError) Code() string { return "PERMISSION_DENIED" }

type InsufficientRoleError struct {
	Have Role
	Need Role
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("insufficient role: %s required, have %s", e.Need, e.Have)
}

func (e *InsufficientRoleError) Code() string { return "INSUFFICIENT_ROLE" }
