package service

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/internal/whs/events"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// ReportIncidentInput holds the fields for reporting an incident
type ReportIncidentInput struct {
	WorkerID     string    `json:"worker_id" validate:"required,uuid"`
	TeamID       *string   `json:"team_id,omitempty" validate:"omitempty,uuid"`
	IncidentDate time.Time `json:"incident_date" validate:"required"`
	IncidentType string    `json:"incident_type" validate:"required,oneof=transfer accident injury medical_leave other"`
	Description  string    `json:"description" validate:"required"`
	Severity     *string   `json:"severity,omitempty" validate:"omitempty,oneof=low medium high critical"`
}

// IncidentService manages incident reporting and escalation. Escalating an
// incident to WHS opens a case for the worker and links the two records.
type IncidentService struct {
	incidents *repository.IncidentRepository
	cases     *CaseService
	events    *events.Publisher
	logger    *logger.Logger
}

// NewIncidentService creates a new incident service
func NewIncidentService(incidents *repository.IncidentRepository, cases *CaseService, events *events.Publisher, log *logger.Logger) *IncidentService {
	return &IncidentService{
		incidents: incidents,
		cases:     cases,
		events:    events,
		logger:    log,
	}
}

// Report records a new incident
func (s *IncidentService) Report(ctx context.Context, input ReportIncidentInput, reportedBy string) (*repository.Incident, error) {
	i := &repository.Incident{
		WorkerID:     input.WorkerID,
		TeamID:       input.TeamID,
		IncidentDate: input.IncidentDate,
		IncidentType: input.IncidentType,
		Description:  input.Description,
		Severity:     input.Severity,
		ReportedBy:   &reportedBy,
	}

	if err := s.incidents.Create(ctx, i); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", i.ID).
		Str("worker_id", i.WorkerID).
		Str("incident_type", i.IncidentType).
		Msg("incident reported")

	s.events.PublishIncidentReported(ctx, i, reportedBy)

	return i, nil
}

// Get returns an incident by ID
func (s *IncidentService) Get(ctx context.Context, id string) (*repository.Incident, error) {
	return s.incidents.GetByID(ctx, id)
}

// List lists incidents with filters
func (s *IncidentService) List(ctx context.Context, params repository.IncidentListParams) ([]*repository.Incident, error) {
	return s.incidents.List(ctx, params)
}

// AssignToWHS escalates an incident: a case is opened for the worker and
// the incident is linked to it. If the worker already has an active case
// the open fails with a conflict and the incident stays untouched.
func (s *IncidentService) AssignToWHS(ctx context.Context, id, actorID string) (*repository.Incident, error) {
	i, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c, err := s.cases.Open(ctx, OpenCaseInput{
		UserID:        i.WorkerID,
		TeamID:        i.TeamID,
		ExceptionType: i.IncidentType,
		Reason:        i.Description,
		StartDate:     i.IncidentDate,
		AssignedToWHS: true,
	}, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.incidents.AssignToWHS(ctx, id, c.ID); err != nil {
		return nil, err
	}

	i, err = s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", id).
		Str("exception_id", c.ID).
		Str("actor_id", actorID).
		Msg("incident assigned to WHS")

	s.events.PublishIncidentAssigned(ctx, i, actorID)

	return i, nil
}

// Close closes an incident
func (s *IncidentService) Close(ctx context.Context, id, actorID string) error {
	if err := s.incidents.Close(ctx, id); err != nil {
		return err
	}

	s.logger.Info().
		Str("incident_id", id).
		Str("actor_id", actorID).
		Msg("incident closed")

	s.events.PublishIncidentClosed(ctx, id, actorID)

	return nil
}
