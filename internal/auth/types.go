package auth

import "time"

// Role is a house-scoped authorisation tier.
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
	RoleOwner  Role = "OWNER"
)

// Level returns the role's rank. Unknown roles rank 0, below every real role.
func (r Role) Level() int {
	switch r {
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// Satisfies reports whether r meets the required role. An unknown required
// role is treated as MEMBER.
func (r Role) Satisfies(required Role) bool {
	need := required.Level()
	if need == 0 {
		need = RoleMember.Level()
	}
	return r.Level() >= need
}

// Status is the lifecycle state of a membership.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
)

// Membership links a non-owner user to a house.
type Membership struct {
	HouseID   string     `json:"house_id"`
	UserID    string     `json:"user_id"`
	Role      Role       `json:"role"`
	Status    Status     `json:"status"`
	InvitedBy string     `json:"invited_by,omitempty"`
	JoinedAt  *time.Time `json:"joined_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
