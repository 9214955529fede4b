package auth

// Action names a class of house-scoped operation.
type Action string

const (
	ActionRead          Action = "read"           // list or fetch rooms, devices, rules, history
	ActionOperate       Action = "operate"        // dispatch a command
	ActionConfigure     Action = "configure"      // edit devices, endpoints, rules, schedules, rooms
	ActionManageMembers Action = "manage_members" // invite, change role, remove
	ActionDeleteHouse   Action = "delete_house"
)

// actionRoles maps each action to the minimum role it needs. This table is
// the single source of truth for thresholds.
var actionRoles = map[Action]Role{
	ActionRead:          RoleMember,
	ActionOperate:       RoleMember,
	ActionConfigure:     RoleAdmin,
	ActionManageMembers: RoleOwner,
	ActionDeleteHouse:   RoleOwner,
}

// RequiredRole returns the minimum role for action. Unknown actions require
// OWNER so a missing table entry fails closed.
func RequiredRole(action Action) Role {
	if r, ok := actionRoles[action]; ok {
		return r
	}
	return RoleOwner
}
