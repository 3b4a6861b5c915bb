package database_test

import (
	stderrors "errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name        string
		err         *pq.Error
		wantCode    string
		wantMessage string
		wantDetail  string
	}{
		{
			name:        "second active exception",
			err:         &pq.Error{Code: "23505", Constraint: "uq_worker_exceptions_one_active"},
			wantCode:    "CONFLICT",
			wantMessage: "this worker already has an active exception",
		},
		{
			name:        "single slot double booking",
			err:         &pq.Error{Code: "23505", Constraint: "uq_worker_schedules_single_slot"},
			wantCode:    "CONFLICT",
			wantMessage: "the worker is already booked for this time slot",
		},
		{
			name:        "recurring slot double booking",
			err:         &pq.Error{Code: "23505", Constraint: "uq_worker_schedules_recurring_slot"},
			wantCode:    "CONFLICT",
			wantMessage: "the worker is already booked for this time slot",
		},
		{
			name:        "duplicate daily checkin",
			err:         &pq.Error{Code: "23505", Constraint: "uq_daily_checkins_checkin_per_day"},
			wantCode:    "CONFLICT",
			wantMessage: "a check-in for this date has already been submitted",
		},
		{
			name:        "second active rehab plan",
			err:         &pq.Error{Code: "23505", Constraint: "uq_rehabilitation_plans_active_plan"},
			wantCode:    "CONFLICT",
			wantMessage: "the case already has an active rehabilitation plan",
		},
		{
			name:        "duplicate email",
			err:         &pq.Error{Code: "23505", Constraint: "uq_users_email"},
			wantCode:    "CONFLICT",
			wantMessage: "a user with this email already exists",
		},
		{
			name:       "schedule mode check",
			err:        &pq.Error{Code: "23514", Constraint: "chk_worker_schedules_schedule_mode"},
			wantCode:   "VALIDATION_ERROR",
			wantDetail: "schedule",
		},
		{
			name:       "appointment date check",
			err:        &pq.Error{Code: "23514", Constraint: "chk_appointments_appointment_date"},
			wantCode:   "VALIDATION_ERROR",
			wantDetail: "appointment_date",
		},
		{
			name:       "readiness check",
			err:        &pq.Error{Code: "23514", Constraint: "chk_daily_checkins_readiness"},
			wantCode:   "VALIDATION_ERROR",
			wantDetail: "predicted_readiness",
		},
		{
			name:        "foreign key violation",
			err:         &pq.Error{Code: "23503"},
			wantCode:    "BAD_REQUEST",
			wantMessage: "referenced record does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := database.MapPQError(tt.err)

			var appErr *errors.AppError
			require.ErrorAs(t, mapped, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, appErr.Message)
			}
			if tt.wantDetail != "" {
				assert.Contains(t, appErr.Details, tt.wantDetail)
			}
		})
	}
}

func TestMapPQError_PassesUnknownErrorsThrough(t *testing.T) {
	plain := stderrors.New("connection reset")
	assert.Equal(t, plain, database.MapPQError(plain))

	unknown := &pq.Error{Code: "57014"} // query_canceled
	assert.Equal(t, error(unknown), database.MapPQError(unknown))
}
