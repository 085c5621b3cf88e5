package rbac

type Resource string

const (
	ResourceStores        Resource = "stores"
	ResourceDomains       Resource = "domains"
	ResourceProducts      Resource = "products"
	ResourceCategories    Resource = "categories"
	ResourceAttributes    Resource = "attributes"
	ResourceBrands        Resource = "brands"
	ResourceInventory     Resource = "inventory"
	ResourceOrders        Resource = "orders"
	ResourceCustomers     Resource = "customers"
	ResourceImports       Resource = "imports"
	ResourceSubscriptions Resource = "subscriptions"
	ResourceIntegrations  Resource = "integrations"
	ResourceUsers         Resource = "users"
	ResourceAnalytics     Resource = "analytics"
	ResourceSettings      Resource = "settings"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage grants create, read, update and delete.
	ActionManage Action = "manage"
)

var (
	crud      = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
	readOnly  = []Action{ActionRead}
	manageAll = []Action{ActionManage}
)

// permissionTable is the whole access matrix. SuperAdmin is not listed: it
// passes every check. Anything absent is denied.
var permissionTable = map[Role]map[Resource][]Action{
	RoleStoreAdmin: {
		ResourceStores:        {ActionRead, ActionUpdate},
		ResourceDomains:       manageAll,
		ResourceProducts:      manageAll,
		ResourceCategories:    manageAll,
		ResourceAttributes:    manageAll,
		ResourceBrands:        manageAll,
		ResourceInventory:     manageAll,
		ResourceOrders:        manageAll,
		ResourceCustomers:     manageAll,
		ResourceImports:       manageAll,
		ResourceSubscriptions: {ActionRead, ActionUpdate},
		ResourceIntegrations:  manageAll,
		ResourceUsers:         manageAll,
		ResourceAnalytics:     readOnly,
		ResourceSettings:      manageAll,
	},
	RoleStaff: {
		ResourceStores:     readOnly,
		ResourceDomains:    readOnly,
		ResourceProducts:   {ActionCreate, ActionRead, ActionUpdate},
		ResourceCategories: readOnly,
		ResourceAttributes: readOnly,
		ResourceBrands:     readOnly,
		ResourceInventory:  {ActionRead, ActionUpdate},
		ResourceOrders:     {ActionRead, ActionUpdate},
		ResourceCustomers:  readOnly,
		ResourceImports:    {ActionCreate, ActionRead},
		ResourceAnalytics:  readOnly,
	},
	RoleCustomer: {
		ResourceStores:     readOnly,
		ResourceProducts:   readOnly,
		ResourceCategories: readOnly,
		ResourceBrands:     readOnly,
		ResourceOrders:     {ActionCreate, ActionRead},
	},
}

// HasPermission reports whether role may perform action on resource.
func HasPermission(role Role, resource Resource, action Action) bool {
	if role == RoleSuperAdmin {
		return true
	}
	resources, ok := permissionTable[role]
	if !ok {
		return false
	}
	for _, allowed := range resources[resource] {
		if allowed == action {
			return true
		}
		if allowed == ActionManage && isCRUD(action) {
			return true
		}
	}
	return false
}

func isCRUD(action Action) bool {
	for _, a := range crud {
		if a == action {
			return true
		}
	}
	return false
}

// PermissionsFor returns a copy of the role's grants with manage expanded,
// for display in the dashboard.
func PermissionsFor(role Role) map[Resource][]Action {
	out := make(map[Resource][]Action)
	for resource, actions := range permissionTable[role] {
		var expanded []Action
		for _, a := range actions {
			if a == ActionManage {
				expanded = append(expanded, crud...)
				continue
			}
			expanded = append(expanded, a)
		}
		out[resource] = expanded
	}
	return out
}
