package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// Appointment represents a clinician consultation booked against a case.
// The schema rejects dates in the past unless the row is already terminal
// (completed, cancelled, declined).
type Appointment struct {
	ID                 string     `db:"id" json:"id"`
	ExceptionID        string     `db:"exception_id" json:"exception_id"`
	ClinicianID        string     `db:"clinician_id" json:"clinician_id"`
	WorkerID           string     `db:"worker_id" json:"worker_id"`
	AppointmentDate    time.Time  `db:"appointment_date" json:"appointment_date"`
	StartTime          *string    `db:"start_time" json:"start_time,omitempty"`
	Location           *string    `db:"location" json:"location,omitempty"`
	Status             string     `db:"status" json:"status"` // pending, confirmed, completed, cancelled, declined
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`

	// Joined fields
	WorkerName    *string `db:"worker_name" json:"worker_name,omitempty"`
	ClinicianName *string `db:"clinician_name" json:"clinician_name,omitempty"`
}

// AppointmentRepository handles appointment persistence
type AppointmentRepository struct {
	db *database.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *database.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create creates a new appointment
func (r *AppointmentRepository) Create(ctx context.Context, a *Appointment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = "pending"
	}

	query := `
		INSERT INTO appointments (
			id, exception_id, clinician_id, worker_id, appointment_date, start_time, location, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.ExceptionID, a.ClinicianID, a.WorkerID, a.AppointmentDate, a.StartTime, a.Location, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets an appointment by ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	var a Appointment

	query := `
		SELECT a.id, a.exception_id, a.clinician_id, a.worker_id, a.appointment_date, a.start_time,
		       a.location, a.status, a.cancellation_reason, a.created_at, a.updated_at,
		       CONCAT(w.first_name, ' ', w.last_name) as worker_name,
		       CONCAT(c.first_name, ' ', c.last_name) as clinician_name
		FROM appointments a
		JOIN users w ON a.worker_id = w.id
		JOIN users c ON a.clinician_id = c.id
		WHERE a.id = $1
	`
	err := r.db.GetContext(ctx, &a, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("appointment")
	}
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// ListForClinician lists a clinician's upcoming appointments
func (r *AppointmentRepository) ListForClinician(ctx context.Context, clinicianID string) ([]*Appointment, error) {
	var appointments []*Appointment

	query := `
		SELECT a.id, a.exception_id, a.clinician_id, a.worker_id, a.appointment_date, a.start_time,
		       a.location, a.status, a.cancellation_reason, a.created_at, a.updated_at,
		       CONCAT(w.first_name, ' ', w.last_name) as worker_name
		FROM appointments a
		JOIN users w ON a.worker_id = w.id
		WHERE a.clinician_id = $1
		ORDER BY a.appointment_date, a.start_time NULLS LAST
	`
	if err := r.db.SelectContext(ctx, &appointments, query, clinicianID); err != nil {
		return nil, err
	}

	return appointments, nil
}

// ListForWorker lists a worker's appointments
func (r *AppointmentRepository) ListForWorker(ctx context.Context, workerID string) ([]*Appointment, error) {
	var appointments []*Appointment

	query := `
		SELECT a.id, a.exception_id, a.clinician_id, a.worker_id, a.appointment_date, a.start_time,
		       a.location, a.status, a.cancellation_reason, a.created_at, a.updated_at,
		       CONCAT(c.first_name, ' ', c.last_name) as clinician_name
		FROM appointments a
		JOIN users c ON a.clinician_id = c.id
		WHERE a.worker_id = $1
		ORDER BY a.appointment_date DESC
	`
	if err := r.db.SelectContext(ctx, &appointments, query, workerID); err != nil {
		return nil, err
	}

	return appointments, nil
}

// UpdateStatus moves an appointment to a new status. Cancellations carry a
// reason; other statuses clear it.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id, newStatus string, cancellationReason *string) error {
	query := `
		UPDATE appointments SET status = $2, cancellation_reason = $3
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, newStatus, cancellationReason)
	if err != nil {
		return database.MapPQError(err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("appointment")
	}

	return nil
}
