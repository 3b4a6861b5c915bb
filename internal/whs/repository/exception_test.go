package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/testutil"
)

func TestExceptionRepository_Create(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("assigns id and scans timestamps", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		now := time.Now()
		mockDB.ExpectQuery("INSERT INTO worker_exceptions").
			WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))

		repo := repository.NewExceptionRepository(mockDB.DB)
		e := &repository.Exception{
			UserID:        "7f9c24e5-1b6a-4f26-8f2e-0a1b2c3d4e5f",
			ExceptionType: "injury",
			Reason:        "ladder fall",
			StartDate:     start,
		}

		require.NoError(t, repo.Create(ctx, e))
		assert.NotEmpty(t, e.ID)
		assert.True(t, e.IsActive)
		assert.Equal(t, now, e.CreatedAt)

		mockDB.ExpectationsWereMet(t)
	})

	t.Run("second active exception maps to conflict", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		defer mockDB.Close()

		mockDB.ExpectQuery("INSERT INTO worker_exceptions").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_worker_exceptions_one_active"})

		repo := repository.NewExceptionRepository(mockDB.DB)
		err := repo.Create(ctx, &repository.Exception{
			UserID:        "7f9c24e5-1b6a-4f26-8f2e-0a1b2c3d4e5f",
			ExceptionType: "injury",
			Reason:        "ladder fall",
			StartDate:     start,
		})

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
		assert.Equal(t, "this worker already has an active exception", appErr.Message)

		mockDB.ExpectationsWereMet(t)
	})
}

func TestExceptionRepository_Close_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectExec("UPDATE worker_exceptions").
		WillReturnResult(testutil.MockResult(0, 0))

	repo := repository.NewExceptionRepository(mockDB.DB)
	err := repo.Close(context.Background(), "missing-id")

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	mockDB.ExpectationsWereMet(t)
}

func TestExceptionRepository_DeactivateExpired(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT deactivate_expired_exceptions()").
		WillReturnRows(testutil.MockRows("deactivate_expired_exceptions").AddRow(2))

	repo := repository.NewExceptionRepository(mockDB.DB)
	count, err := repo.DeactivateExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)

	mockDB.ExpectationsWereMet(t)
}
