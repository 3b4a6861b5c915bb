package service

import (
	"context"
	"time"

	"github.com/worksafe/worksafe-backend/internal/whs/events"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// SubmitCheckinInput holds the fields for a daily check-in
type SubmitCheckinInput struct {
	PainScore          int     `json:"pain_score" validate:"min=0,max=10"`
	FatigueScore       int     `json:"fatigue_score" validate:"min=0,max=10"`
	SleepScore         int     `json:"sleep_score" validate:"min=0,max=10"`
	StressScore        int     `json:"stress_score" validate:"min=0,max=10"`
	PredictedReadiness *string `json:"predicted_readiness,omitempty" validate:"omitempty,oneof=Green Yellow Red"`
}

// CheckinService manages daily check-ins and warm-ups
type CheckinService struct {
	checkins *repository.CheckinRepository
	events   *events.Publisher
	logger   *logger.Logger
}

// NewCheckinService creates a new check-in service
func NewCheckinService(checkins *repository.CheckinRepository, events *events.Publisher, log *logger.Logger) *CheckinService {
	return &CheckinService{
		checkins: checkins,
		events:   events,
		logger:   log,
	}
}

// Submit records today's check-in for a worker. One check-in per worker per
// day; resubmitting updates the existing row's scores.
func (s *CheckinService) Submit(ctx context.Context, workerID string, input SubmitCheckinInput) (*repository.Checkin, error) {
	c := &repository.Checkin{
		UserID:             workerID,
		CheckInDate:        today(),
		PainScore:          input.PainScore,
		FatigueScore:       input.FatigueScore,
		SleepScore:         input.SleepScore,
		StressScore:        input.StressScore,
		PredictedReadiness: input.PredictedReadiness,
	}

	if err := s.checkins.Upsert(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("checkin_id", c.ID).
		Str("worker_id", workerID).
		Msg("daily check-in submitted")

	s.events.PublishCheckinSubmitted(ctx, c)

	return c, nil
}

// GetToday returns the worker's check-in for today, if any
func (s *CheckinService) GetToday(ctx context.Context, workerID string) (*repository.Checkin, error) {
	return s.checkins.GetForUserDate(ctx, workerID, today())
}

// History lists a worker's recent check-ins
func (s *CheckinService) History(ctx context.Context, workerID string, limit int) ([]*repository.Checkin, error) {
	return s.checkins.ListForUser(ctx, workerID, limit)
}

// TeamForDate lists a team's check-ins for a date
func (s *CheckinService) TeamForDate(ctx context.Context, teamID string, date time.Time) ([]*repository.Checkin, error) {
	return s.checkins.ListForTeamDate(ctx, teamID, date)
}

// CompleteWarmUp marks today's warm-up as done. Requires a check-in first.
func (s *CheckinService) CompleteWarmUp(ctx context.Context, workerID string) error {
	checkin, err := s.checkins.GetForUserDate(ctx, workerID, today())
	if err != nil {
		return err
	}
	if checkin == nil {
		return errors.BadRequest("submit today's check-in before completing the warm-up")
	}

	return s.checkins.RecordWarmUp(ctx, workerID, today())
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
