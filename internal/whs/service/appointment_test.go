package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

func TestAppointmentService_Schedule_RejectsPastDates(t *testing.T) {
	log := logger.New("test", "test")
	svc := service.NewAppointmentService(nil, nil, log)

	_, err := svc.Schedule(context.Background(), service.ScheduleAppointmentInput{
		ExceptionID:     "exc-1",
		WorkerID:        "worker-1",
		AppointmentDate: time.Now().UTC().AddDate(0, 0, -1),
	}, "clinician-1")

	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "appointment_date")
}
