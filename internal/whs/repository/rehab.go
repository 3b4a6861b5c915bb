package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// RehabPlan represents a rehabilitation program attached to a case. At most
// one active plan per case, enforced by a partial unique index.
type RehabPlan struct {
	ID           string    `db:"id" json:"id"`
	ExceptionID  string    `db:"exception_id" json:"exception_id"`
	ClinicianID  *string   `db:"clinician_id" json:"clinician_id,omitempty"`
	Name         string    `db:"name" json:"name"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	DurationDays int       `db:"duration_days" json:"duration_days"`
	Status       string    `db:"status" json:"status"` // active, completed, cancelled
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields
	Exercises []*RehabExercise `db:"-" json:"exercises,omitempty"`
}

// RehabExercise is an ordered exercise within a plan
type RehabExercise struct {
	ID          string    `db:"id" json:"id"`
	PlanID      string    `db:"plan_id" json:"plan_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// RehabProgress summarises a plan's completion state as daysCompleted over
// durationDays.
type RehabProgress struct {
	PlanID        string  `json:"plan_id"`
	DurationDays  int     `json:"duration_days"`
	DaysCompleted int     `json:"days_completed"`
	Percentage    float64 `json:"percentage"`
}

// RehabRepository handles rehabilitation persistence
type RehabRepository struct {
	db *database.DB
}

// NewRehabRepository creates a new rehabilitation repository
func NewRehabRepository(db *database.DB) *RehabRepository {
	return &RehabRepository{db: db}
}

// CreatePlan creates a plan and its exercises in one transaction
func (r *RehabRepository) CreatePlan(ctx context.Context, plan *RehabPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.Status == "" {
		plan.Status = "active"
	}

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO rehabilitation_plans (id, exception_id, clinician_id, name, start_date, duration_days, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		if err := tx.QueryRowContext(ctx, query,
			plan.ID, plan.ExceptionID, plan.ClinicianID, plan.Name, plan.StartDate, plan.DurationDays, plan.Status,
		).Scan(&plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return err
		}

		for i, ex := range plan.Exercises {
			if ex.ID == "" {
				ex.ID = uuid.New().String()
			}
			ex.PlanID = plan.ID
			if ex.SortOrder == 0 {
				ex.SortOrder = i
			}

			exQuery := `
				INSERT INTO rehabilitation_exercises (id, plan_id, name, description, sort_order)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING created_at
			`
			if err := tx.QueryRowContext(ctx, exQuery,
				ex.ID, ex.PlanID, ex.Name, ex.Description, ex.SortOrder,
			).Scan(&ex.CreatedAt); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetPlanByID gets a plan with its exercises
func (r *RehabRepository) GetPlanByID(ctx context.Context, id string) (*RehabPlan, error) {
	var plan RehabPlan

	query := `
		SELECT id, exception_id, clinician_id, name, start_date, duration_days, status, created_at, updated_at
		FROM rehabilitation_plans
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &plan, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("rehabilitation_plan")
	}
	if err != nil {
		return nil, err
	}

	exQuery := `
		SELECT id, plan_id, name, description, sort_order, created_at
		FROM rehabilitation_exercises
		WHERE plan_id = $1
		ORDER BY sort_order
	`
	if err := r.db.SelectContext(ctx, &plan.Exercises, exQuery, id); err != nil {
		return nil, err
	}

	return &plan, nil
}

// GetActivePlanForException gets the case's active plan, if any
func (r *RehabRepository) GetActivePlanForException(ctx context.Context, exceptionID string) (*RehabPlan, error) {
	var plan RehabPlan

	query := `
		SELECT id, exception_id, clinician_id, name, start_date, duration_days, status, created_at, updated_at
		FROM rehabilitation_plans
		WHERE exception_id = $1 AND status = 'active'
	`
	err := r.db.GetContext(ctx, &plan, query, exceptionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

// RecordCompletions records a worker's exercise completions for a date.
// Duplicate completions for the same day are ignored.
func (r *RehabRepository) RecordCompletions(ctx context.Context, planID, userID string, exerciseIDs []string, date time.Time) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO rehabilitation_plan_completions (id, plan_id, exercise_id, user_id, completion_date)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT ON CONSTRAINT uq_rehabilitation_plan_completions_completion DO NOTHING
		`
		for _, exerciseID := range exerciseIDs {
			if _, err := tx.ExecContext(ctx, query, uuid.New().String(), planID, exerciseID, userID, date); err != nil {
				return database.MapPQError(err)
			}
		}
		return nil
	})
}

// Progress computes the plan's completion percentage. A day counts as
// completed when every exercise in the plan has a completion row for it.
func (r *RehabRepository) Progress(ctx context.Context, planID string) (*RehabProgress, error) {
	plan, err := r.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	var daysCompleted int
	query := `
		SELECT COUNT(*)
		FROM (
			SELECT completion_date
			FROM rehabilitation_plan_completions
			WHERE plan_id = $1
			GROUP BY completion_date
			HAVING COUNT(DISTINCT exercise_id) >= (
				SELECT COUNT(*) FROM rehabilitation_exercises WHERE plan_id = $1
			)
		) d
	`
	if err := r.db.GetContext(ctx, &daysCompleted, query, planID); err != nil {
		return nil, err
	}

	progress := &RehabProgress{
		PlanID:        planID,
		DurationDays:  plan.DurationDays,
		DaysCompleted: daysCompleted,
	}
	if plan.DurationDays > 0 {
		progress.Percentage = float64(daysCompleted) / float64(plan.DurationDays) * 100
	}

	return progress, nil
}

// UpdatePlanStatus moves a plan to completed or cancelled
func (r *RehabRepository) UpdatePlanStatus(ctx context.Context, id, newStatus string) error {
	query := `UPDATE rehabilitation_plans SET status = $2 WHERE id = $1 AND status = 'active'`
	result, err := r.db.ExecContext(ctx, query, id, newStatus)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("rehabilitation_plan")
	}

	return nil
}
