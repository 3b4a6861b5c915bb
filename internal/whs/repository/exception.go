package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// Exception represents a worker's temporary exemption from check-in and
// schedule obligations. Viewed through its lifecycle status it is a "case".
// The status itself lives inside the notes JSON; this layer only moves the
// raw text, derivation belongs to the status package.
type Exception struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	TeamID        *string    `db:"team_id" json:"team_id,omitempty"`
	ExceptionType string     `db:"exception_type" json:"exception_type"` // transfer, accident, injury, medical_leave, other
	Reason        string     `db:"reason" json:"reason"`
	StartDate     time.Time  `db:"start_date" json:"start_date"`
	EndDate       *time.Time `db:"end_date" json:"end_date,omitempty"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	AssignedToWHS bool       `db:"assigned_to_whs" json:"assigned_to_whs"`
	ClinicianID   *string    `db:"clinician_id" json:"clinician_id,omitempty"`
	DeactivatedAt *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy     *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	// Joined fields
	WorkerName         *string `db:"worker_name" json:"worker_name,omitempty"`
	HasActiveRehabPlan bool    `db:"has_active_rehab_plan" json:"has_active_rehab_plan"`
}

// NotesText returns the notes column as a plain string.
func (e *Exception) NotesText() string {
	if e.Notes == nil {
		return ""
	}
	return *e.Notes
}

// ExceptionListParams holds parameters for listing exceptions
type ExceptionListParams struct {
	UserID        *string
	TeamID        *string
	ClinicianID   *string
	ActiveOnly    bool
	AssignedToWHS *bool
	Limit         int
}

const exceptionColumns = `
	e.id, e.user_id, e.team_id, e.exception_type, e.reason, e.start_date, e.end_date,
	e.is_active, e.assigned_to_whs, e.clinician_id, e.deactivated_at, e.notes,
	e.created_by, e.created_at, e.updated_at,
	CONCAT(u.first_name, ' ', u.last_name) as worker_name,
	EXISTS (
		SELECT 1 FROM rehabilitation_plans p
		WHERE p.exception_id = e.id AND p.status = 'active'
	) as has_active_rehab_plan`

// ExceptionRepository handles worker exception persistence
type ExceptionRepository struct {
	db *database.DB
}

// NewExceptionRepository creates a new exception repository
func NewExceptionRepository(db *database.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create creates a new active exception. A second active exception for the
// same worker violates the partial unique index and surfaces as a conflict;
// concurrent creates race on that index and exactly one wins.
func (r *ExceptionRepository) Create(ctx context.Context, e *Exception) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	query := `
		INSERT INTO worker_exceptions (
			id, user_id, team_id, exception_type, reason, start_date, end_date,
			is_active, assigned_to_whs, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		e.ID, e.UserID, e.TeamID, e.ExceptionType, e.Reason, e.StartDate, e.EndDate,
		e.AssignedToWHS, e.Notes, e.CreatedBy,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	e.IsActive = true
	return nil
}

// GetByID gets an exception by ID
func (r *ExceptionRepository) GetByID(ctx context.Context, id string) (*Exception, error) {
	var e Exception

	query := `
		SELECT ` + exceptionColumns + `
		FROM worker_exceptions e
		JOIN users u ON e.user_id = u.id
		WHERE e.id = $1
	`
	err := r.db.GetContext(ctx, &e, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("exception")
	}
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// GetActiveForUser gets the user's active exception, if any
func (r *ExceptionRepository) GetActiveForUser(ctx context.Context, userID string) (*Exception, error) {
	var e Exception

	query := `
		SELECT ` + exceptionColumns + `
		FROM worker_exceptions e
		JOIN users u ON e.user_id = u.id
		WHERE e.user_id = $1 AND e.is_active
	`
	err := r.db.GetContext(ctx, &e, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// List lists exceptions with filters
func (r *ExceptionRepository) List(ctx context.Context, params ExceptionListParams) ([]*Exception, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM worker_exceptions e
		JOIN users u ON e.user_id = u.id
		WHERE 1=1
	`
	args := []interface{}{}

	if params.UserID != nil {
		args = append(args, *params.UserID)
		query += " AND e.user_id = $" + itoa(len(args))
	}
	if params.TeamID != nil {
		args = append(args, *params.TeamID)
		query += " AND e.team_id = $" + itoa(len(args))
	}
	if params.ClinicianID != nil {
		args = append(args, *params.ClinicianID)
		query += " AND e.clinician_id = $" + itoa(len(args))
	}
	if params.ActiveOnly {
		query += " AND e.is_active"
	}
	if params.AssignedToWHS != nil {
		args = append(args, *params.AssignedToWHS)
		query += " AND e.assigned_to_whs = $" + itoa(len(args))
	}

	query += " ORDER BY e.created_at DESC"

	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += " LIMIT $" + itoa(len(args))
	}

	var exceptions []*Exception
	if err := r.db.SelectContext(ctx, &exceptions, query, args...); err != nil {
		return nil, err
	}

	return exceptions, nil
}

// UpdateNotes replaces the notes text of an exception. An inactive case is
// historical and immutable except for this column.
func (r *ExceptionRepository) UpdateNotes(ctx context.Context, id, notes string) error {
	query := `UPDATE worker_exceptions SET notes = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, notes)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("exception")
	}

	return nil
}

// AssignToWHS marks the exception as escalated to a WHS case manager
func (r *ExceptionRepository) AssignToWHS(ctx context.Context, id string) error {
	query := `UPDATE worker_exceptions SET assigned_to_whs = TRUE WHERE id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("exception")
	}

	return nil
}

// AssignClinician assigns a clinician to the case
func (r *ExceptionRepository) AssignClinician(ctx context.Context, id, clinicianID string) error {
	query := `UPDATE worker_exceptions SET clinician_id = $2 WHERE id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, id, clinicianID)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("exception")
	}

	return nil
}

// Close deactivates the exception and stamps deactivated_at
func (r *ExceptionRepository) Close(ctx context.Context, id string) error {
	query := `
		UPDATE worker_exceptions
		SET is_active = FALSE, deactivated_at = NOW()
		WHERE id = $1 AND is_active
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("exception")
	}

	return nil
}

// DeactivateExpired closes every active exception whose end date has
// passed, via the SQL function also exposed to infrastructure cron.
// Returns the number of exceptions closed.
func (r *ExceptionRepository) DeactivateExpired(ctx context.Context) (int, error) {
	var affected int
	if err := r.db.GetContext(ctx, &affected, `SELECT deactivate_expired_exceptions()`); err != nil {
		return 0, err
	}
	return affected, nil
}
