package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

func datePtr(t time.Time) *time.Time { return &t }

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func TestScheduleValidate(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	valid := func() repository.Schedule {
		return repository.Schedule{
			WorkerID:      "worker-1",
			ScheduledDate: datePtr(monday),
			StartTime:     "09:00",
			EndTime:       "17:00",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*repository.Schedule)
		wantKey string
	}{
		{
			name:   "single date shift is valid",
			mutate: func(s *repository.Schedule) {},
		},
		{
			name: "recurring shift is valid",
			mutate: func(s *repository.Schedule) {
				s.ScheduledDate = nil
				s.DayOfWeek = intPtr(2)
				s.EffectiveDate = datePtr(monday)
				s.ExpiryDate = datePtr(monday.AddDate(0, 3, 0))
			},
		},
		{
			name: "both variants set",
			mutate: func(s *repository.Schedule) {
				s.DayOfWeek = intPtr(1)
			},
			wantKey: "schedule",
		},
		{
			name: "neither variant set",
			mutate: func(s *repository.Schedule) {
				s.ScheduledDate = nil
			},
			wantKey: "schedule",
		},
		{
			name: "day of week out of range",
			mutate: func(s *repository.Schedule) {
				s.ScheduledDate = nil
				s.DayOfWeek = intPtr(7)
			},
			wantKey: "day_of_week",
		},
		{
			name: "end time before start time",
			mutate: func(s *repository.Schedule) {
				s.EndTime = "08:00"
			},
			wantKey: "end_time",
		},
		{
			name: "expiry before effective",
			mutate: func(s *repository.Schedule) {
				s.ScheduledDate = nil
				s.DayOfWeek = intPtr(3)
				s.EffectiveDate = datePtr(monday)
				s.ExpiryDate = datePtr(monday.AddDate(0, 0, -7))
			},
			wantKey: "expiry_date",
		},
		{
			name: "checkin requirement without window",
			mutate: func(s *repository.Schedule) {
				s.RequiresDailyCheckin = true
			},
			wantKey: "checkin_window",
		},
		{
			name: "checkin requirement with full window",
			mutate: func(s *repository.Schedule) {
				s.RequiresDailyCheckin = true
				s.CheckinWindowStart = strPtr("06:00")
				s.CheckinWindowEnd = strPtr("08:30")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)

			err := s.Validate()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}

			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
			assert.Contains(t, appErr.Details, tt.wantKey)
		})
	}
}

func TestScheduleKind(t *testing.T) {
	single := repository.Schedule{ScheduledDate: datePtr(time.Now())}
	assert.Equal(t, repository.ScheduleKindSingleDate, single.Kind())

	recurring := repository.Schedule{DayOfWeek: intPtr(4)}
	assert.Equal(t, repository.ScheduleKindRecurring, recurring.Kind())
}
