package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role   string
		action string
		want   bool
	}{
		// Workers manage their own day-to-day obligations only.
		{authz.RoleWorker, "checkins.submit", true},
		{authz.RoleWorker, "rehabilitation.progress", true},
		{authz.RoleWorker, "appointments.respond", true},
		{authz.RoleWorker, "cases.create", false},
		{authz.RoleWorker, "schedules.create", false},
		{authz.RoleWorker, "incidents.report", false},

		// Team leaders open cases and report incidents for their crew.
		{authz.RoleTeamLeader, "cases.create", true},
		{authz.RoleTeamLeader, "cases.read.team", true},
		{authz.RoleTeamLeader, "incidents.report", true},
		{authz.RoleTeamLeader, "cases.assign_whs", false},
		{authz.RoleTeamLeader, "schedules.create", false},

		// Supervisors run schedules and escalation.
		{authz.RoleSupervisor, "cases.assign_whs", true},
		{authz.RoleSupervisor, "cases.close", true},
		{authz.RoleSupervisor, "schedules.create", true},
		{authz.RoleSupervisor, "schedules.deactivate", true},
		{authz.RoleSupervisor, "incidents.close", true},
		{authz.RoleSupervisor, "checkins.read.team", true},
		{authz.RoleSupervisor, "cases.update_status", false},
		{authz.RoleSupervisor, "rehabilitation.create", false},

		// Clinicians own the clinical lifecycle.
		{authz.RoleClinician, "cases.update_status", true},
		{authz.RoleClinician, "cases.assign_clinician", true},
		{authz.RoleClinician, "appointments.schedule", true},
		{authz.RoleClinician, "rehabilitation.create", true},
		{authz.RoleClinician, "transcriptions.create", true},
		{authz.RoleClinician, "schedules.create", false},
		{authz.RoleClinician, "incidents.report", false},

		// Admin matches everything.
		{authz.RoleAdmin, "cases.sweep", true},
		{authz.RoleAdmin, "teams.create", true},
		{authz.RoleAdmin, "anything.at_all", true},

		// Unknown roles get nothing.
		{"contractor", "checkins.submit", false},
	}

	for _, tt := range tests {
		t.Run(tt.role+" "+tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, authz.Can(tt.role, tt.action))
		})
	}
}

func TestCanAny(t *testing.T) {
	assert.True(t, authz.CanAny(authz.RoleTeamLeader, "cases.read", "cases.read.team"))
	assert.False(t, authz.CanAny(authz.RoleWorker, "cases.read", "cases.read.team"))
}

func TestRequire(t *testing.T) {
	assert.NoError(t, authz.Require(authz.RoleClinician, "appointments.schedule"))

	err := authz.Require(authz.RoleWorker, "appointments.schedule")
	var appErr *errors.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestIsValidRole(t *testing.T) {
	for _, role := range []string{"worker", "team_leader", "supervisor", "clinician", "admin"} {
		assert.True(t, authz.IsValidRole(role), role)
	}
	assert.False(t, authz.IsValidRole("contractor"))
	assert.False(t, authz.IsValidRole(""))
}
