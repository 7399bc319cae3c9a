package domain

type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// Actor is the authenticated caller as asserted by the API gateway.
type Actor struct {
	UserID string
	Role   Role
}

// Elevated reports whether the actor may read resources owned by other users.
func (a Actor) Elevated() bool {
	return a.Role == RoleAdmin
}
