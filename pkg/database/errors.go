package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful
// messages. Errors it does not recognise are returned unchanged.
func MapPQError(err error) error {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return err
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return err
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "schedule_mode"):
		return errors.Validation(map[string]string{
			"schedule": "exactly one of scheduled_date or day_of_week must be set",
		})

	case strings.Contains(constraint, "time_order"):
		return errors.Validation(map[string]string{
			"end_time": "must be after start_time",
		})

	case strings.Contains(constraint, "checkin_window"):
		return errors.Validation(map[string]string{
			"checkin_window": "both window bounds are required when daily check-in is enabled",
		})

	case strings.Contains(constraint, "exception_type"):
		return errors.Validation(map[string]string{
			"exception_type": "must be one of: transfer, accident, injury, medical_leave, other",
		})

	case strings.Contains(constraint, "appointment_date"):
		return errors.Validation(map[string]string{
			"appointment_date": "cannot be in the past unless the appointment is completed, cancelled or declined",
		})

	case strings.Contains(constraint, "notification_type"):
		return errors.Validation(map[string]string{
			"type": "is not a valid notification type",
		})

	case strings.Contains(constraint, "readiness"):
		return errors.Validation(map[string]string{
			"predicted_readiness": "must be one of: Green, Yellow, Red",
		})

	case strings.Contains(constraint, "score"):
		return errors.Validation(map[string]string{
			"scores": "must be between 0 and 10",
		})

	case strings.Contains(constraint, "role_valid"):
		return errors.Validation(map[string]string{
			"role": "must be one of: worker, team_leader, supervisor, clinician, admin",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "one_active"):
		return "this worker already has an active exception"
	case strings.Contains(constraint, "single_slot") || strings.Contains(constraint, "recurring_slot"):
		return "the worker is already booked for this time slot"
	case strings.Contains(constraint, "checkin_per_day"):
		return "a check-in for this date has already been submitted"
	case strings.Contains(constraint, "completion"):
		return "this exercise has already been recorded for that day"
	case strings.Contains(constraint, "active_plan"):
		return "the case already has an active rehabilitation plan"
	case strings.Contains(constraint, "team_leader"):
		return "this user already leads another team"
	case strings.Contains(constraint, "email"):
		return "a user with this email already exists"
	default:
		return "a record with these values already exists"
	}
}
