package service

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/internal/whs/status"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// Case is an exception viewed through its derived lifecycle status.
type Case struct {
	*repository.Exception
	Status string `json:"status"`
}

// TransitionResult reports the outcome of a status transition. The
// reactivated schedule count is informational: schedules are never disabled
// while a case is open, closing it just stops them being filtered out.
type TransitionResult struct {
	Status               string `json:"status"`
	ReactivatedSchedules int    `json:"reactivated_schedules"`
}

// OpenCaseInput holds the fields for opening a case. AssignedToWHS is set
// by incident escalation, which opens the case already assessed; it is not
// accepted from request payloads.
type OpenCaseInput struct {
	UserID        string     `json:"user_id" validate:"required,uuid"`
	TeamID        *string    `json:"team_id,omitempty" validate:"omitempty,uuid"`
	ExceptionType string     `json:"exception_type" validate:"required,oneof=transfer accident injury medical_leave other"`
	Reason        string     `json:"reason" validate:"required"`
	StartDate     time.Time  `json:"start_date" validate:"required"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	AssignedToWHS bool       `json:"-"`
}

// ExceptionStore is the persistence surface the case service needs.
type ExceptionStore interface {
	Create(ctx context.Context, e *repository.Exception) error
	GetByID(ctx context.Context, id string) (*repository.Exception, error)
	GetActiveForUser(ctx context.Context, userID string) (*repository.Exception, error)
	List(ctx context.Context, params repository.ExceptionListParams) ([]*repository.Exception, error)
	UpdateNotes(ctx context.Context, id, notes string) error
	AssignToWHS(ctx context.Context, id string) error
	AssignClinician(ctx context.Context, id, clinicianID string) error
	Close(ctx context.Context, id string) error
	DeactivateExpired(ctx context.Context) (int, error)
}

// ScheduleCounter reports how many schedules an exception had hidden.
type ScheduleCounter interface {
	CountSuspendedByException(ctx context.Context, workerID string, startDate time.Time, endDate *time.Time) (int, error)
}

// UserGetter resolves users for role checks and approval stamps.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
}

// CasePublisher fans case events out to the message bus.
type CasePublisher interface {
	PublishCaseCreated(ctx context.Context, e *repository.Exception, createdBy string)
	PublishCaseStatusChanged(ctx context.Context, e *repository.Exception, oldStatus, newStatus, changedBy string)
	PublishCaseClosed(ctx context.Context, e *repository.Exception, closedBy string, reactivatedSchedules int)
	PublishCaseAssignedToWHS(ctx context.Context, e *repository.Exception, assignedBy string)
	PublishCaseAssignedToClinician(ctx context.Context, e *repository.Exception, clinicianID string)
}

// CaseService owns the case lifecycle: opening exceptions, deriving and
// transitioning status, escalation and closure.
type CaseService struct {
	exceptions ExceptionStore
	schedules  ScheduleCounter
	users      UserGetter
	events     CasePublisher
	logger     *logger.Logger
}

// NewCaseService creates a new case service
func NewCaseService(exceptions ExceptionStore, schedules ScheduleCounter, users UserGetter, events CasePublisher, log *logger.Logger) *CaseService {
	return &CaseService{
		exceptions: exceptions,
		schedules:  schedules,
		users:      users,
		events:     events,
		logger:     log,
	}
}

// Open opens a new case for a worker. A worker can have at most one active
// exception; a concurrent duplicate loses the race on the partial unique
// index and surfaces here as a conflict.
func (s *CaseService) Open(ctx context.Context, input OpenCaseInput, createdBy string) (*Case, error) {
	// Zero-length exceptions are valid; only a reversed range is rejected.
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return nil, errors.Validation(map[string]string{
			"end_date": "must not be before start_date",
		})
	}

	e := &repository.Exception{
		UserID:        input.UserID,
		TeamID:        input.TeamID,
		ExceptionType: input.ExceptionType,
		Reason:        input.Reason,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		AssignedToWHS: input.AssignedToWHS,
		Notes:         input.Notes,
		CreatedBy:     &createdBy,
	}

	if err := s.exceptions.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("exception_id", e.ID).
		Str("worker_id", e.UserID).
		Str("exception_type", e.ExceptionType).
		Msg("case opened")

	s.events.PublishCaseCreated(ctx, e, createdBy)

	return s.toCase(e), nil
}

// Get returns a case with its derived status
func (s *CaseService) Get(ctx context.Context, id string) (*Case, error) {
	e, err := s.exceptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toCase(e), nil
}

// GetActiveForWorker returns the worker's active case, if any
func (s *CaseService) GetActiveForWorker(ctx context.Context, workerID string) (*Case, error) {
	e, err := s.exceptions.GetActiveForUser(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return s.toCase(e), nil
}

// List returns cases with derived statuses. statusFilter narrows to one
// lifecycle state; empty or "all" returns everything. The status is not a
// column, so the filter runs after derivation.
func (s *CaseService) List(ctx context.Context, params repository.ExceptionListParams, statusFilter string) ([]*Case, error) {
	if statusFilter != "" && statusFilter != "all" && !status.IsValid(statusFilter) {
		return nil, errors.BadRequest("unknown status filter")
	}

	exceptions, err := s.exceptions.List(ctx, params)
	if err != nil {
		return nil, err
	}

	cases := make([]*Case, 0, len(exceptions))
	for _, e := range exceptions {
		c := s.toCase(e)
		if statusFilter != "" && statusFilter != "all" && c.Status != statusFilter {
			continue
		}
		cases = append(cases, c)
	}

	return cases, nil
}

// Transition moves a case to a named lifecycle state. Any of the six states
// is a legal target. Moving to closed additionally deactivates the
// exception, stamps deactivated_at, and reports how many schedules stop
// being suspended.
func (s *CaseService) Transition(ctx context.Context, id, newStatus, actorID string) (*TransitionResult, error) {
	e, err := s.exceptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := s.derive(e)

	// Approval states carry the acting clinician's display name.
	var approval *status.Approval
	if newStatus == status.ReturnToWork || newStatus == status.Closed {
		actor, err := s.users.GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}
		approval = &status.Approval{By: actor.FullName(), At: time.Now()}
	}

	notes, err := status.Merge(e.NotesText(), newStatus, approval)
	if err != nil {
		return nil, err
	}

	if err := s.exceptions.UpdateNotes(ctx, id, notes); err != nil {
		return nil, err
	}

	result := &TransitionResult{Status: newStatus}

	if newStatus == status.Closed && e.IsActive {
		if err := s.exceptions.Close(ctx, id); err != nil {
			return nil, err
		}

		count, err := s.schedules.CountSuspendedByException(ctx, e.UserID, e.StartDate, e.EndDate)
		if err != nil {
			return nil, err
		}
		result.ReactivatedSchedules = count

		s.events.PublishCaseClosed(ctx, e, actorID, count)
	}

	s.logger.Info().
		Str("exception_id", id).
		Str("old_status", oldStatus).
		Str("new_status", newStatus).
		Str("actor_id", actorID).
		Msg("case status changed")

	// A transition to the state the case is already in rewrites notes and
	// stamps only; notifying about it would be noise.
	if newStatus != oldStatus {
		s.events.PublishCaseStatusChanged(ctx, e, oldStatus, newStatus, actorID)
	}

	return result, nil
}

// AssignToWHS escalates a case to a WHS case manager
func (s *CaseService) AssignToWHS(ctx context.Context, id, actorID string) (*Case, error) {
	if err := s.exceptions.AssignToWHS(ctx, id); err != nil {
		return nil, err
	}

	e, err := s.exceptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("exception_id", id).
		Str("actor_id", actorID).
		Msg("case assigned to WHS")

	s.events.PublishCaseAssignedToWHS(ctx, e, actorID)

	return s.toCase(e), nil
}

// AssignClinician assigns a clinician to a case
func (s *CaseService) AssignClinician(ctx context.Context, id, clinicianID string) (*Case, error) {
	clinician, err := s.users.GetByID(ctx, clinicianID)
	if err != nil {
		return nil, err
	}
	if clinician.Role != authz.RoleClinician {
		return nil, errors.BadRequest("assignee is not a clinician")
	}

	if err := s.exceptions.AssignClinician(ctx, id, clinicianID); err != nil {
		return nil, err
	}

	e, err := s.exceptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.events.PublishCaseAssignedToClinician(ctx, e, clinicianID)

	return s.toCase(e), nil
}

// CloseExpired closes every active case whose end date has passed. Invoked
// by the optional in-process sweeper; the same SQL function backs the
// infrastructure cron path.
func (s *CaseService) CloseExpired(ctx context.Context) (int, error) {
	count, err := s.exceptions.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.logger.Info().Int("count", count).Msg("expired exceptions closed")
	}

	return count, nil
}

func (s *CaseService) derive(e *repository.Exception) string {
	return status.Derive(e.NotesText(), status.Flags{
		IsActive:           e.IsActive,
		AssignedToWHS:      e.AssignedToWHS,
		HasActiveRehabPlan: e.HasActiveRehabPlan,
	})
}

func (s *CaseService) toCase(e *repository.Exception) *Case {
	return &Case{Exception: e, Status: s.derive(e)}
}
