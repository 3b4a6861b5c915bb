// Package authz maps roles to the actions they may perform. Every handler
// authorization decision goes through this table so role capabilities live
// in one place instead of being scattered across route handlers.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "cases.*")
//   - "resource.action" - Specific action (e.g., "cases.read")
package authz

import (
	"strings"

	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// Roles known to the system.
const (
	RoleWorker     = "worker"
	RoleTeamLeader = "team_leader"
	RoleSupervisor = "supervisor"
	RoleClinician  = "clinician"
	RoleAdmin      = "admin"
)

// rolePermissions is the single source of truth for what each role may do.
var rolePermissions = map[string][]string{
	RoleWorker: {
		"checkins.submit",
		"checkins.read.own",
		"schedules.read.own",
		"warmups.complete",
		"rehabilitation.progress",
		"rehabilitation.read.own",
		"appointments.read.own",
		"appointments.respond",
		"notifications.*",
		"profile.*",
	},
	RoleTeamLeader: {
		"cases.create",
		"cases.read.team",
		"incidents.report",
		"incidents.read.team",
		"schedules.read.team",
		"checkins.read.team",
		"notifications.*",
		"profile.*",
	},
	RoleSupervisor: {
		"cases.create",
		"cases.read",
		"cases.assign_whs",
		"cases.close",
		"incidents.*",
		"schedules.*",
		"checkins.*",
		"teams.read",
		"notifications.*",
		"profile.*",
	},
	RoleClinician: {
		"cases.read",
		"cases.update_status",
		"cases.assign_clinician",
		"cases.close",
		"appointments.*",
		"rehabilitation.*",
		"transcriptions.*",
		"checkins.read.team",
		"notifications.*",
		"profile.*",
	},
	RoleAdmin: {
		"*",
	},
}

// Can reports whether the role is allowed to perform the action.
// Supports wildcard grants:
//   - "*" matches everything
//   - "cases.*" matches "cases.read", "cases.close", etc.
func Can(role, action string) bool {
	if action == "" {
		return true
	}

	for _, p := range rolePermissions[role] {
		if p == "*" {
			return true
		}
		if p == action {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(action, prefix+".") {
				return true
			}
		}
	}
	return false
}

// CanAny reports whether the role is allowed to perform any of the actions.
func CanAny(role string, actions ...string) bool {
	for _, a := range actions {
		if Can(role, a) {
			return true
		}
	}
	return false
}

// Require returns a Forbidden error unless the role may perform the action.
func Require(role, action string) error {
	if !Can(role, action) {
		return errors.Forbidden("you do not have permission to perform this action")
	}
	return nil
}

// IsValidRole reports whether the role is one the system knows.
func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// Permissions returns the permission grants for a role.
func Permissions(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
