package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// Incident represents a reported workplace incident. Escalating it to WHS
// links it to a worker exception (the case opened from it).
type Incident struct {
	ID           string     `db:"id" json:"id"`
	WorkerID     string     `db:"worker_id" json:"worker_id"`
	TeamID       *string    `db:"team_id" json:"team_id,omitempty"`
	ExceptionID  *string    `db:"exception_id" json:"exception_id,omitempty"`
	IncidentDate time.Time  `db:"incident_date" json:"incident_date"`
	IncidentType string     `db:"incident_type" json:"incident_type"`
	Description  string     `db:"description" json:"description"`
	Severity     *string    `db:"severity" json:"severity,omitempty"`
	Status       string     `db:"status" json:"status"` // open, assigned, closed
	ReportedBy   *string    `db:"reported_by" json:"reported_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	// Joined fields
	WorkerName *string `db:"worker_name" json:"worker_name,omitempty"`
}

// IncidentListParams holds parameters for listing incidents
type IncidentListParams struct {
	WorkerID *string
	TeamID   *string
	Status   *string
	Limit    int
}

// IncidentRepository handles incident persistence
type IncidentRepository struct {
	db *database.DB
}

// NewIncidentRepository creates a new incident repository
func NewIncidentRepository(db *database.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create creates a new incident
func (r *IncidentRepository) Create(ctx context.Context, i *Incident) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.Status == "" {
		i.Status = "open"
	}

	query := `
		INSERT INTO incidents (
			id, worker_id, team_id, incident_date, incident_type, description, severity, status, reported_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		i.ID, i.WorkerID, i.TeamID, i.IncidentDate, i.IncidentType, i.Description, i.Severity, i.Status, i.ReportedBy,
	).Scan(&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets an incident by ID
func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*Incident, error) {
	var i Incident

	query := `
		SELECT i.id, i.worker_id, i.team_id, i.exception_id, i.incident_date, i.incident_type,
		       i.description, i.severity, i.status, i.reported_by, i.created_at, i.updated_at,
		       CONCAT(u.first_name, ' ', u.last_name) as worker_name
		FROM incidents i
		JOIN users u ON i.worker_id = u.id
		WHERE i.id = $1
	`
	err := r.db.GetContext(ctx, &i, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("incident")
	}
	if err != nil {
		return nil, err
	}

	return &i, nil
}

// List lists incidents with filters
func (r *IncidentRepository) List(ctx context.Context, params IncidentListParams) ([]*Incident, error) {
	query := `
		SELECT i.id, i.worker_id, i.team_id, i.exception_id, i.incident_date, i.incident_type,
		       i.description, i.severity, i.status, i.reported_by, i.created_at, i.updated_at,
		       CONCAT(u.first_name, ' ', u.last_name) as worker_name
		FROM incidents i
		JOIN users u ON i.worker_id = u.id
		WHERE 1=1
	`
	args := []interface{}{}

	if params.WorkerID != nil {
		args = append(args, *params.WorkerID)
		query += " AND i.worker_id = $" + itoa(len(args))
	}
	if params.TeamID != nil {
		args = append(args, *params.TeamID)
		query += " AND i.team_id = $" + itoa(len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		query += " AND i.status = $" + itoa(len(args))
	}

	query += " ORDER BY i.incident_date DESC, i.created_at DESC"

	if params.Limit > 0 {
		args = append(args, params.Limit)
		query += " LIMIT $" + itoa(len(args))
	}

	var incidents []*Incident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, err
	}

	return incidents, nil
}

// AssignToWHS marks the incident as escalated and links the case opened for it
func (r *IncidentRepository) AssignToWHS(ctx context.Context, id, exceptionID string) error {
	query := `
		UPDATE incidents SET status = 'assigned', exception_id = $2
		WHERE id = $1 AND status = 'open'
	`
	result, err := r.db.ExecContext(ctx, query, id, exceptionID)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("incident")
	}

	return nil
}

// Close closes an incident
func (r *IncidentRepository) Close(ctx context.Context, id string) error {
	query := `UPDATE incidents SET status = 'closed' WHERE id = $1 AND status <> 'closed'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("incident")
	}

	return nil
}
