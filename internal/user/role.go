package user

// Role is the capability level assigned to a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// clearance maps roles to an ordered capability level. Anonymous callers and
// unknown roles sit at level zero.
func (r Role) clearance() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	default:
		return 0
	}
}

// Can reports whether the role carries at least the capabilities of required.
// An unknown role can do nothing.
func (r Role) Can(required Role) bool {
	return r.clearance() > 0 && r.clearance() >= required.clearance()
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}
