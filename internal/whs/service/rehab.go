package service

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/internal/whs/events"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// CreatePlanInput holds the fields for creating a rehabilitation plan
type CreatePlanInput struct {
	ExceptionID  string              `json:"exception_id" validate:"required,uuid"`
	Name         string              `json:"name" validate:"required"`
	StartDate    time.Time           `json:"start_date" validate:"required"`
	DurationDays int                 `json:"duration_days" validate:"min=1,max=365"`
	Exercises    []PlanExerciseInput `json:"exercises" validate:"required,min=1,dive"`
}

// PlanExerciseInput is one exercise within a new plan
type PlanExerciseInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// RehabService manages rehabilitation plans, exercises and progress.
type RehabService struct {
	plans      *repository.RehabRepository
	exceptions *repository.ExceptionRepository
	events     *events.Publisher
	logger     *logger.Logger
}

// NewRehabService creates a new rehabilitation service
func NewRehabService(plans *repository.RehabRepository, exceptions *repository.ExceptionRepository, events *events.Publisher, log *logger.Logger) *RehabService {
	return &RehabService{
		plans:      plans,
		exceptions: exceptions,
		events:     events,
		logger:     log,
	}
}

// CreatePlan creates an active plan for a case. The case must still be
// open; a second active plan for the same case loses to the partial unique
// index and surfaces as a conflict. A case with an active plan derives its
// status as in_rehab from that point on.
func (s *RehabService) CreatePlan(ctx context.Context, input CreatePlanInput, clinicianID string) (*repository.RehabPlan, error) {
	e, err := s.exceptions.GetByID(ctx, input.ExceptionID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, errors.Conflict("cannot create a plan for a closed case")
	}

	plan := &repository.RehabPlan{
		ExceptionID:  input.ExceptionID,
		ClinicianID:  &clinicianID,
		Name:         input.Name,
		StartDate:    input.StartDate,
		DurationDays: input.DurationDays,
	}
	for _, ex := range input.Exercises {
		plan.Exercises = append(plan.Exercises, &repository.RehabExercise{
			Name:        ex.Name,
			Description: ex.Description,
		})
	}

	if err := s.plans.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("plan_id", plan.ID).
		Str("exception_id", plan.ExceptionID).
		Int("duration_days", plan.DurationDays).
		Msg("rehabilitation plan created")

	s.events.PublishRehabPlanCreated(ctx, plan, e.UserID)

	return plan, nil
}

// GetPlan returns a plan with its exercises
func (s *RehabService) GetPlan(ctx context.Context, id string) (*repository.RehabPlan, error) {
	return s.plans.GetPlanByID(ctx, id)
}

// ActivePlanForWorker resolves the worker's plan through their active case
func (s *RehabService) ActivePlanForWorker(ctx context.Context, workerID string) (*repository.RehabPlan, error) {
	e, err := s.exceptions.GetActiveForUser(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return s.plans.GetActivePlanForException(ctx, e.ID)
}

// RecordProgress records a worker's exercise completions for today
func (s *RehabService) RecordProgress(ctx context.Context, planID, workerID string, exerciseIDs []string) (*repository.RehabProgress, error) {
	if len(exerciseIDs) == 0 {
		return nil, errors.BadRequest("at least one exercise is required")
	}

	plan, err := s.plans.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != "active" {
		return nil, errors.Conflict("plan is not active")
	}

	date := today()
	if err := s.plans.RecordCompletions(ctx, planID, workerID, exerciseIDs, date); err != nil {
		return nil, err
	}

	s.events.PublishRehabProgressRecorded(ctx, planID, workerID, date, len(exerciseIDs))

	return s.plans.Progress(ctx, planID)
}

// Progress returns the plan's completion summary
func (s *RehabService) Progress(ctx context.Context, planID string) (*repository.RehabProgress, error) {
	return s.plans.Progress(ctx, planID)
}

// CompletePlan marks a plan as completed
func (s *RehabService) CompletePlan(ctx context.Context, id string) error {
	if err := s.plans.UpdatePlanStatus(ctx, id, "completed"); err != nil {
		return err
	}

	s.logger.Info().Str("plan_id", id).Msg("rehabilitation plan completed")
	return nil
}

// CancelPlan cancels an active plan
func (s *RehabService) CancelPlan(ctx context.Context, id string) error {
	return s.plans.UpdatePlanStatus(ctx, id, "cancelled")
}
