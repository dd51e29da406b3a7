package domain

// Role is the coarse permission level of a user.
type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// Principal is the verified caller of an operation. It is passed explicitly to every
// service call instead of being read from shared state.
type Principal struct {
	UserID    string
	Role      Role
	SessionID string
}

// IsAdmin reports whether the caller has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanOrganize reports whether the caller may create and manage events.
func (p Principal) CanOrganize() bool { return p.Role == RoleOrganizer || p.Role == RoleAdmin }
