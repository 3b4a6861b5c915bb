package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/internal/whs/postgres"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/migrate"
	"github.com/worksafe/worksafe-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	if !testutil.IntegrationEnabled() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to set up integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

// futureDate returns midnight UTC n days from now, matching how DATE
// columns round-trip through lib/pq.
func futureDate(n int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, n)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func TestExceptionRepository_SingleActivePerWorker_Integration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	ctx := context.Background()

	workerID := suite.Fixtures.CreateUser(t, ctx, "worker")
	repo := repository.NewExceptionRepository(suite.DB)

	first := &repository.Exception{
		UserID:        workerID,
		ExceptionType: "injury",
		Reason:        "back strain",
		StartDate:     futureDate(0),
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &repository.Exception{
		UserID:        workerID,
		ExceptionType: "medical_leave",
		Reason:        "surgery recovery",
		StartDate:     futureDate(1),
	}
	err := repo.Create(ctx, second)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	// Closing the first frees the partial unique index for a new one.
	require.NoError(t, repo.Close(ctx, first.ID))
	require.NoError(t, repo.Create(ctx, second))
}

func TestExceptionRepository_ZeroLengthRange_Integration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	ctx := context.Background()

	workerID := suite.Fixtures.CreateUser(t, ctx, "worker")
	repo := repository.NewExceptionRepository(suite.DB)

	day := futureDate(3)
	e := &repository.Exception{
		UserID:        workerID,
		ExceptionType: "other",
		Reason:        "single-day absence",
		StartDate:     day,
		EndDate:       &day,
	}
	require.NoError(t, repo.Create(ctx, e))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.StartDate.Equal(*got.EndDate))
}

func TestScheduleRepository_ModeCheck_Integration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	ctx := context.Background()

	workerID := suite.Fixtures.CreateUser(t, ctx, "worker")
	repo := repository.NewScheduleRepository(suite.DB)

	// Bypasses Schedule.Validate on purpose: both variant columns set must
	// still be rejected by the schema's CHECK constraint.
	date := futureDate(2)
	dow := 2
	err := repo.Create(ctx, &repository.Schedule{
		WorkerID:      workerID,
		ScheduledDate: &date,
		DayOfWeek:     &dow,
		StartTime:     "09:00",
		EndTime:       "17:00",
	})

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "schedule")
}

func TestScheduleRepository_ExceptionSuspendsAtReadTime_Integration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	ctx := context.Background()

	workerID := suite.Fixtures.CreateUser(t, ctx, "worker")
	day := futureDate(5)
	scheduleID := suite.Fixtures.CreateSingleDateSchedule(t, ctx, workerID, day)

	schedules := repository.NewScheduleRepository(suite.DB)
	exceptions := repository.NewExceptionRepository(suite.DB)

	hasSchedule := func() bool {
		effective, err := schedules.ListEffectiveForDate(ctx, nil, day)
		require.NoError(t, err)
		for _, s := range effective {
			if s.ID == scheduleID {
				return true
			}
		}
		return false
	}

	require.True(t, hasSchedule(), "schedule should be effective before any exception")

	// Opening an exception covering the date hides the schedule without
	// touching the row.
	exc := &repository.Exception{
		UserID:        workerID,
		ExceptionType: "injury",
		Reason:        "sprained wrist",
		StartDate:     futureDate(4),
	}
	require.NoError(t, exceptions.Create(ctx, exc))
	assert.False(t, hasSchedule(), "schedule should be suspended while the exception is active")

	stored, err := schedules.GetByID(ctx, scheduleID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive, "suspension must not deactivate the schedule row")

	// Closing the exception makes the schedule reappear.
	require.NoError(t, exceptions.Close(ctx, exc.ID))
	assert.True(t, hasSchedule(), "schedule should be effective again after the exception closes")
}

func TestAppointmentRepository_PastDateCheck_Integration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	ctx := context.Background()

	workerID := suite.Fixtures.CreateUser(t, ctx, "worker")
	clinicianID := suite.Fixtures.CreateUser(t, ctx, "clinician")
	excID := suite.Fixtures.CreateException(t, ctx, workerID, futureDate(0), nil)

	repo := repository.NewAppointmentRepository(suite.DB)
	yesterday := futureDate(-1)

	err := repo.Create(ctx, &repository.Appointment{
		ExceptionID:     excID,
		ClinicianID:     clinicianID,
		WorkerID:        workerID,
		AppointmentDate: yesterday,
	})
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "appointment_date")

	// Terminal statuses may sit in the past; completed historical visits
	// are recorded after the fact.
	require.NoError(t, repo.Create(ctx, &repository.Appointment{
		ExceptionID:     excID,
		ClinicianID:     clinicianID,
		WorkerID:        workerID,
		AppointmentDate: yesterday,
		Status:          "completed",
	}))
}

func TestCheckinRepository_ResubmitSameDay_Integration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	ctx := context.Background()

	workerID := suite.Fixtures.CreateUser(t, ctx, "worker")
	repo := repository.NewCheckinRepository(suite.DB)
	day := futureDate(0)

	first := &repository.Checkin{
		UserID:       workerID,
		CheckInDate:  day,
		PainScore:    2,
		FatigueScore: 3,
		SleepScore:   7,
		StressScore:  4,
	}
	require.NoError(t, repo.Upsert(ctx, first))

	// Resubmitting the same day replaces the scores on the existing row
	// instead of inserting a second one.
	red := "Red"
	second := &repository.Checkin{
		UserID:             workerID,
		CheckInDate:        day,
		PainScore:          8,
		FatigueScore:       9,
		SleepScore:         2,
		StressScore:        7,
		PredictedReadiness: &red,
	}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID, "resubmission must keep the original row")

	stored, err := repo.GetForUserDate(ctx, workerID, day)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 8, stored.PainScore)
	require.NotNil(t, stored.PredictedReadiness)
	assert.Equal(t, "Red", *stored.PredictedReadiness)
}

func TestMigrations_Idempotent_Integration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)
	ctx := context.Background()

	// The suite already ran the full set; a second run applies nothing.
	applied, err := migrate.Run(ctx, suite.DB, postgres.Migrations(), suite.Logger)
	require.NoError(t, err)
	assert.Zero(t, applied)
}
