package service

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/internal/whs/events"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// ScheduleAppointmentInput holds the fields for booking an appointment
type ScheduleAppointmentInput struct {
	ExceptionID     string    `json:"exception_id" validate:"required,uuid"`
	WorkerID        string    `json:"worker_id" validate:"required,uuid"`
	AppointmentDate time.Time `json:"appointment_date" validate:"required"`
	StartTime       *string   `json:"start_time,omitempty"`
	Location        *string   `json:"location,omitempty"`
}

// AppointmentService manages clinician appointments. Dates in the past are
// rejected before the write; the schema enforces the same rule with a
// terminal-status carve-out for historical rows.
type AppointmentService struct {
	appointments *repository.AppointmentRepository
	events       *events.Publisher
	logger       *logger.Logger
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(appointments *repository.AppointmentRepository, events *events.Publisher, log *logger.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		events:       events,
		logger:       log,
	}
}

// Schedule books an appointment against a case
func (s *AppointmentService) Schedule(ctx context.Context, input ScheduleAppointmentInput, clinicianID string) (*repository.Appointment, error) {
	if input.AppointmentDate.Before(today()) {
		return nil, errors.Validation(map[string]string{
			"appointment_date": "cannot be in the past",
		})
	}

	a := &repository.Appointment{
		ExceptionID:     input.ExceptionID,
		ClinicianID:     clinicianID,
		WorkerID:        input.WorkerID,
		AppointmentDate: input.AppointmentDate,
		StartTime:       input.StartTime,
		Location:        input.Location,
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID).
		Str("exception_id", a.ExceptionID).
		Str("worker_id", a.WorkerID).
		Msg("appointment scheduled")

	s.events.PublishAppointmentScheduled(ctx, a)

	return a, nil
}

// Get returns an appointment by ID
func (s *AppointmentService) Get(ctx context.Context, id string) (*repository.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListForClinician lists a clinician's appointments
func (s *AppointmentService) ListForClinician(ctx context.Context, clinicianID string) ([]*repository.Appointment, error) {
	return s.appointments.ListForClinician(ctx, clinicianID)
}

// ListForWorker lists a worker's appointments
func (s *AppointmentService) ListForWorker(ctx context.Context, workerID string) ([]*repository.Appointment, error) {
	return s.appointments.ListForWorker(ctx, workerID)
}

// Respond records a worker's answer to a pending appointment
func (s *AppointmentService) Respond(ctx context.Context, id, workerID, response string) (*repository.Appointment, error) {
	if response != "confirmed" && response != "declined" {
		return nil, errors.BadRequest("response must be confirmed or declined")
	}

	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.WorkerID != workerID {
		return nil, errors.Forbidden("this appointment belongs to another worker")
	}
	if a.Status != "pending" {
		return nil, errors.Conflict("appointment is no longer pending")
	}

	if err := s.appointments.UpdateStatus(ctx, id, response, nil); err != nil {
		return nil, err
	}
	a.Status = response

	return a, nil
}

// Cancel cancels an appointment with a reason
func (s *AppointmentService) Cancel(ctx context.Context, id, reason string) (*repository.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == "completed" || a.Status == "cancelled" {
		return nil, errors.Conflict("appointment is already finalised")
	}

	if err := s.appointments.UpdateStatus(ctx, id, "cancelled", &reason); err != nil {
		return nil, err
	}
	a.Status = "cancelled"
	a.CancellationReason = &reason

	s.events.PublishAppointmentCancelled(ctx, a, reason)

	return a, nil
}

// Complete marks an appointment as completed
func (s *AppointmentService) Complete(ctx context.Context, id string) error {
	return s.appointments.UpdateStatus(ctx, id, "completed", nil)
}
