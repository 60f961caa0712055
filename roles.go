package authclient

// UserRole is the global role carried in token claims. The console uses it
// to gate which admin surfaces are rendered at all; fine-grained checks go
// through TokenClaims.HasPrivilege.
type UserRole string

const (
	RoleViewer   UserRole = "viewer"
	RoleOperator UserRole = "operator"
	RoleAdmin    UserRole = "admin"
	RoleOwner    UserRole = "owner"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleViewer, RoleOperator, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

// CanView checks if this role can see console resources
func (r UserRole) CanView() bool {
	return r.IsValid()
}

// CanEdit checks if this role can modify existing records
func (r UserRole) CanEdit() bool {
	switch r {
	case RoleOperator, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

// CanManageAccounts checks if this role can create or suspend accounts
func (r UserRole) CanManageAccounts() bool {
	switch r {
	case RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleViewer:   0,
		RoleOperator: 1,
		RoleAdmin:    2,
		RoleOwner:    3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}
