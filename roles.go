package identity

// Role is a user role drawn from a closed enum.
type Role string

const (
	// RoleAdmin has full access and is activated at creation.
	RoleAdmin Role = "ADMIN"
	// RoleNoter is a field agent account, self-serve.
	RoleNoter Role = "NOTER"
	// RoleFarmer is a grower account, self-serve.
	RoleFarmer Role = "FARMER"
	// RoleBuyer is a produce buyer account, self-serve.
	RoleBuyer Role = "BUYER"
)

// IsValid checks if the role is one of the predefined valid roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleNoter, RoleFarmer, RoleBuyer:
		return true
	default:
		return false
	}
}

// SelfServe reports whether holders of this role must complete email
// verification before their account activates. Roles outside this subset
// are provisioned by staff and activate immediately.
func (r Role) SelfServe() bool {
	switch r {
	case RoleNoter, RoleFarmer, RoleBuyer:
		return true
	default:
		return false
	}
}

// GetAllRoles returns the closed enum.
func GetAllRoles() []Role {
	return []Role{RoleAdmin, RoleNoter, RoleFarmer, RoleBuyer}
}

// ParseRole safely parses a string into a Role.
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	return role, role.IsValid()
}

// AccessGate is the precondition check for privileged operations. When the
// check fails the guarded operation is never invoked.
type AccessGate interface {
	Check(actorRoles, requiredRoles []Role) bool
}

// NewAccessGate returns the default set-intersection gate.
func NewAccessGate() AccessGate {
	return roleGate{}
}

type roleGate struct{}

// Check passes when the actor holds at least one of the required roles.
// An empty requirement always passes.
func (roleGate) Check(actorRoles, requiredRoles []Role) bool {
	if len(requiredRoles) == 0 {
		return true
	}
	for _, required := range requiredRoles {
		for _, held := range actorRoles {
			if held == required {
				return true
			}
		}
	}
	return false
}
