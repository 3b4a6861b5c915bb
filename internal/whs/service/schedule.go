package service

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/internal/whs/events"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// ScheduleService manages worker schedules and the read-time suspension
// filter that pauses them while an exception is active.
type ScheduleService struct {
	schedules *repository.ScheduleRepository
	events    *events.Publisher
	logger    *logger.Logger
}

// NewScheduleService creates a new schedule service
func NewScheduleService(schedules *repository.ScheduleRepository, events *events.Publisher, log *logger.Logger) *ScheduleService {
	return &ScheduleService{
		schedules: schedules,
		events:    events,
		logger:    log,
	}
}

// Create validates and creates a schedule
func (s *ScheduleService) Create(ctx context.Context, schedule *repository.Schedule, createdBy string) (*repository.Schedule, error) {
	schedule.CreatedBy = &createdBy

	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("schedule_id", schedule.ID).
		Str("worker_id", schedule.WorkerID).
		Str("kind", schedule.Kind()).
		Msg("schedule created")

	s.events.PublishScheduleCreated(ctx, schedule, createdBy)

	return schedule, nil
}

// Get returns a schedule by ID
func (s *ScheduleService) Get(ctx context.Context, id string) (*repository.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

// ListForWorker lists a worker's active schedules
func (s *ScheduleService) ListForWorker(ctx context.Context, workerID string) ([]*repository.Schedule, error) {
	return s.schedules.ListForWorker(ctx, workerID)
}

// ListEffectiveForDate lists schedules generating obligations on a date,
// excluding workers covered by an active exception.
func (s *ScheduleService) ListEffectiveForDate(ctx context.Context, teamID *string, date time.Time) ([]*repository.Schedule, error) {
	return s.schedules.ListEffectiveForDate(ctx, teamID, date)
}

// Deactivate deactivates a schedule
func (s *ScheduleService) Deactivate(ctx context.Context, id string) error {
	if err := s.schedules.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("schedule_id", id).Msg("schedule deactivated")
	return nil
}
