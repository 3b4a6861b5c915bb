package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// Schedule kinds. A row stores either a one-off shift or a recurring weekly
// pattern; the kind is carried explicitly on the struct and mapped onto the
// scheduled_date / day_of_week nullability split at the SQL boundary.
const (
	ScheduleKindSingleDate = "single_date"
	ScheduleKindRecurring  = "recurring"
)

// Schedule represents a worker's shift: one calendar date, or a weekly
// pattern bounded by an optional effective/expiry date range.
type Schedule struct {
	ID                   string     `db:"id" json:"id"`
	WorkerID             string     `db:"worker_id" json:"worker_id"`
	TeamID               *string    `db:"team_id" json:"team_id,omitempty"`
	ScheduledDate        *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	DayOfWeek            *int       `db:"day_of_week" json:"day_of_week,omitempty"`
	EffectiveDate        *time.Time `db:"effective_date" json:"effective_date,omitempty"`
	ExpiryDate           *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	StartTime            string     `db:"start_time" json:"start_time"`
	EndTime              string     `db:"end_time" json:"end_time"`
	RequiresDailyCheckin bool       `db:"requires_daily_checkin" json:"requires_daily_checkin"`
	CheckinWindowStart   *string    `db:"checkin_window_start" json:"checkin_window_start,omitempty"`
	CheckinWindowEnd     *string    `db:"checkin_window_end" json:"checkin_window_end,omitempty"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	CreatedBy            *string    `db:"created_by" json:"created_by,omitempty"`
	ApprovedBy           *string    `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// Kind reports which variant the schedule is.
func (s *Schedule) Kind() string {
	if s.ScheduledDate != nil {
		return ScheduleKindSingleDate
	}
	return ScheduleKindRecurring
}

// Validate checks the variant shape before any write. Exactly one of
// scheduled_date and day_of_week must be set, times must be ordered, and a
// check-in requirement needs both window bounds.
func (s *Schedule) Validate() error {
	details := make(map[string]string)

	single := s.ScheduledDate != nil
	recurring := s.DayOfWeek != nil
	if single == recurring {
		details["schedule"] = "exactly one of scheduled_date and day_of_week must be set"
	}
	if recurring && (*s.DayOfWeek < 0 || *s.DayOfWeek > 6) {
		details["day_of_week"] = "must be between 0 and 6"
	}
	if s.StartTime == "" || s.EndTime == "" {
		details["times"] = "start_time and end_time are required"
	} else if s.EndTime <= s.StartTime {
		details["end_time"] = "must be after start_time"
	}
	if s.EffectiveDate != nil && s.ExpiryDate != nil && s.ExpiryDate.Before(*s.EffectiveDate) {
		details["expiry_date"] = "must not be before effective_date"
	}
	if s.RequiresDailyCheckin && (s.CheckinWindowStart == nil || s.CheckinWindowEnd == nil) {
		details["checkin_window"] = "both window bounds are required when daily check-in is enabled"
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// ScheduleRepository handles worker schedule persistence
type ScheduleRepository struct {
	db *database.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create creates a new schedule
func (r *ScheduleRepository) Create(ctx context.Context, s *Schedule) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO worker_schedules (
			id, worker_id, team_id, scheduled_date, day_of_week, effective_date, expiry_date,
			start_time, end_time, requires_daily_checkin, checkin_window_start, checkin_window_end,
			is_active, created_by, approved_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, $13, $14)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.WorkerID, s.TeamID, s.ScheduledDate, s.DayOfWeek, s.EffectiveDate, s.ExpiryDate,
		s.StartTime, s.EndTime, s.RequiresDailyCheckin, s.CheckinWindowStart, s.CheckinWindowEnd,
		s.CreatedBy, s.ApprovedBy,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	s.IsActive = true
	return nil
}

// GetByID gets a schedule by ID
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*Schedule, error) {
	var s Schedule

	query := `
		SELECT id, worker_id, team_id, scheduled_date, day_of_week, effective_date, expiry_date,
		       start_time, end_time, requires_daily_checkin, checkin_window_start, checkin_window_end,
		       is_active, created_by, approved_by, created_at, updated_at
		FROM worker_schedules
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &s, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("schedule")
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// ListForWorker lists a worker's active schedules
func (r *ScheduleRepository) ListForWorker(ctx context.Context, workerID string) ([]*Schedule, error) {
	var schedules []*Schedule

	query := `
		SELECT id, worker_id, team_id, scheduled_date, day_of_week, effective_date, expiry_date,
		       start_time, end_time, requires_daily_checkin, checkin_window_start, checkin_window_end,
		       is_active, created_by, approved_by, created_at, updated_at
		FROM worker_schedules
		WHERE worker_id = $1 AND is_active
		ORDER BY scheduled_date NULLS LAST, day_of_week NULLS LAST, start_time
	`
	if err := r.db.SelectContext(ctx, &schedules, query, workerID); err != nil {
		return nil, err
	}

	return schedules, nil
}

// ListEffectiveForDate lists the schedules that generate obligations on a
// given date. Schedules are never mutated when an exception opens: a worker
// with an active exception covering the date is excluded here, at read
// time. When the exception closes the schedules simply reappear.
func (r *ScheduleRepository) ListEffectiveForDate(ctx context.Context, teamID *string, date time.Time) ([]*Schedule, error) {
	var schedules []*Schedule

	dow := int(date.Weekday())

	query := `
		SELECT s.id, s.worker_id, s.team_id, s.scheduled_date, s.day_of_week, s.effective_date, s.expiry_date,
		       s.start_time, s.end_time, s.requires_daily_checkin, s.checkin_window_start, s.checkin_window_end,
		       s.is_active, s.created_by, s.approved_by, s.created_at, s.updated_at
		FROM worker_schedules s
		WHERE s.is_active
		  AND ($1::uuid IS NULL OR s.team_id = $1)
		  AND (
			s.scheduled_date = $2
			OR (
				s.day_of_week = $3
				AND (s.effective_date IS NULL OR s.effective_date <= $2)
				AND (s.expiry_date IS NULL OR s.expiry_date >= $2)
			)
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM worker_exceptions e
			WHERE e.user_id = s.worker_id
			  AND e.is_active
			  AND e.start_date <= $2
			  AND (e.end_date IS NULL OR e.end_date >= $2)
		  )
		ORDER BY s.start_time
	`
	if err := r.db.SelectContext(ctx, &schedules, query, teamID, date, dow); err != nil {
		return nil, err
	}

	return schedules, nil
}

// CountSuspendedByException counts the worker's active schedules hidden by
// an exception covering the given period. Schedules are never disabled at
// write time, so this is the "reactivated schedules" figure reported when a
// case closes.
func (r *ScheduleRepository) CountSuspendedByException(ctx context.Context, workerID string, startDate time.Time, endDate *time.Time) (int, error) {
	var count int

	query := `
		SELECT COUNT(*)
		FROM worker_schedules s
		WHERE s.worker_id = $1 AND s.is_active
		  AND (
			(s.scheduled_date IS NOT NULL
				AND s.scheduled_date >= $2
				AND ($3::date IS NULL OR s.scheduled_date <= $3))
			OR (s.day_of_week IS NOT NULL
				AND (s.expiry_date IS NULL OR s.expiry_date >= $2)
				AND ($3::date IS NULL OR s.effective_date IS NULL OR s.effective_date <= $3))
		  )
	`
	if err := r.db.GetContext(ctx, &count, query, workerID, startDate, endDate); err != nil {
		return 0, err
	}

	return count, nil
}

// Deactivate deactivates a schedule
func (r *ScheduleRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE worker_schedules SET is_active = FALSE WHERE id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("schedule")
	}

	return nil
}
