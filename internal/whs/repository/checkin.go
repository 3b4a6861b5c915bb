package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
)

// Checkin represents a worker's daily wellbeing check-in. One row per
// worker per date; the readiness value is computed externally and persisted.
type Checkin struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	CheckInDate        time.Time `db:"check_in_date" json:"check_in_date"`
	PainScore          int       `db:"pain_score" json:"pain_score"`
	FatigueScore       int       `db:"fatigue_score" json:"fatigue_score"`
	SleepScore         int       `db:"sleep_score" json:"sleep_score"`
	StressScore        int       `db:"stress_score" json:"stress_score"`
	PredictedReadiness *string   `db:"predicted_readiness" json:"predicted_readiness,omitempty"` // Green, Yellow, Red
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields
	WorkerName *string `db:"worker_name" json:"worker_name,omitempty"`
}

// CheckinRepository handles daily check-in persistence
type CheckinRepository struct {
	db *database.DB
}

// NewCheckinRepository creates a new check-in repository
func NewCheckinRepository(db *database.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// Upsert writes a daily check-in. One row per worker per date: a
// resubmission for the same date replaces the scores on the existing row,
// keeping its id, so a worker can correct today's entry.
func (r *CheckinRepository) Upsert(ctx context.Context, c *Checkin) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query := `
		INSERT INTO daily_checkins (
			id, user_id, check_in_date, pain_score, fatigue_score, sleep_score, stress_score, predicted_readiness
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, check_in_date) DO UPDATE SET
			pain_score = EXCLUDED.pain_score,
			fatigue_score = EXCLUDED.fatigue_score,
			sleep_score = EXCLUDED.sleep_score,
			stress_score = EXCLUDED.stress_score,
			predicted_readiness = EXCLUDED.predicted_readiness,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.UserID, c.CheckInDate, c.PainScore, c.FatigueScore, c.SleepScore, c.StressScore, c.PredictedReadiness,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetForUserDate gets a worker's check-in for a date, if any
func (r *CheckinRepository) GetForUserDate(ctx context.Context, userID string, date time.Time) (*Checkin, error) {
	var c Checkin

	query := `
		SELECT id, user_id, check_in_date, pain_score, fatigue_score, sleep_score, stress_score,
		       predicted_readiness, created_at, updated_at
		FROM daily_checkins
		WHERE user_id = $1 AND check_in_date = $2
	`
	err := r.db.GetContext(ctx, &c, query, userID, date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListForUser lists a worker's recent check-ins
func (r *CheckinRepository) ListForUser(ctx context.Context, userID string, limit int) ([]*Checkin, error) {
	if limit <= 0 {
		limit = 30
	}

	var checkins []*Checkin

	query := `
		SELECT id, user_id, check_in_date, pain_score, fatigue_score, sleep_score, stress_score,
		       predicted_readiness, created_at, updated_at
		FROM daily_checkins
		WHERE user_id = $1
		ORDER BY check_in_date DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &checkins, query, userID, limit); err != nil {
		return nil, err
	}

	return checkins, nil
}

// ListForTeamDate lists a team's check-ins for a date
func (r *CheckinRepository) ListForTeamDate(ctx context.Context, teamID string, date time.Time) ([]*Checkin, error) {
	var checkins []*Checkin

	query := `
		SELECT c.id, c.user_id, c.check_in_date, c.pain_score, c.fatigue_score, c.sleep_score, c.stress_score,
		       c.predicted_readiness, c.created_at, c.updated_at,
		       CONCAT(u.first_name, ' ', u.last_name) as worker_name
		FROM daily_checkins c
		JOIN users u ON c.user_id = u.id
		JOIN team_members m ON m.user_id = c.user_id
		WHERE m.team_id = $1 AND c.check_in_date = $2
		ORDER BY u.last_name, u.first_name
	`
	if err := r.db.SelectContext(ctx, &checkins, query, teamID, date); err != nil {
		return nil, err
	}

	return checkins, nil
}

// RecordWarmUp marks the worker's warm-up as completed for a date
func (r *CheckinRepository) RecordWarmUp(ctx context.Context, userID string, date time.Time) error {
	query := `
		INSERT INTO warm_ups (id, user_id, warm_up_date, completed)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, warm_up_date) DO UPDATE SET completed = TRUE
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New().String(), userID, date)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}
