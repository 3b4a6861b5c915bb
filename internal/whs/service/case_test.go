package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/internal/whs/service"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

type fakeExceptionStore struct {
	byID         map[string]*repository.Exception
	active       map[string]*repository.Exception
	listed       []*repository.Exception
	updatedNotes map[string]string
	closed       []string
	assignedWHS  []string
	clinicians   map[string]string
	expiredCount int
	createErr    error
}

func newFakeExceptionStore() *fakeExceptionStore {
	return &fakeExceptionStore{
		byID:         make(map[string]*repository.Exception),
		active:       make(map[string]*repository.Exception),
		updatedNotes: make(map[string]string),
		clinicians:   make(map[string]string),
	}
}

func (f *fakeExceptionStore) Create(ctx context.Context, e *repository.Exception) error {
	if f.createErr != nil {
		return f.createErr
	}
	if e.ID == "" {
		e.ID = "exc-1"
	}
	e.IsActive = true
	f.byID[e.ID] = e
	return nil
}

func (f *fakeExceptionStore) GetByID(ctx context.Context, id string) (*repository.Exception, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, errors.NotFound("exception")
	}
	return e, nil
}

func (f *fakeExceptionStore) GetActiveForUser(ctx context.Context, userID string) (*repository.Exception, error) {
	return f.active[userID], nil
}

func (f *fakeExceptionStore) List(ctx context.Context, params repository.ExceptionListParams) ([]*repository.Exception, error) {
	return f.listed, nil
}

func (f *fakeExceptionStore) UpdateNotes(ctx context.Context, id, notes string) error {
	f.updatedNotes[id] = notes
	return nil
}

func (f *fakeExceptionStore) AssignToWHS(ctx context.Context, id string) error {
	f.assignedWHS = append(f.assignedWHS, id)
	if e, ok := f.byID[id]; ok {
		e.AssignedToWHS = true
	}
	return nil
}

func (f *fakeExceptionStore) AssignClinician(ctx context.Context, id, clinicianID string) error {
	f.clinicians[id] = clinicianID
	return nil
}

func (f *fakeExceptionStore) Close(ctx context.Context, id string) error {
	f.closed = append(f.closed, id)
	if e, ok := f.byID[id]; ok {
		e.IsActive = false
	}
	return nil
}

func (f *fakeExceptionStore) DeactivateExpired(ctx context.Context) (int, error) {
	return f.expiredCount, nil
}

type fakeScheduleCounter struct {
	count  int
	called bool
}

func (f *fakeScheduleCounter) CountSuspendedByException(ctx context.Context, workerID string, startDate time.Time, endDate *time.Time) (int, error) {
	f.called = true
	return f.count, nil
}

type fakeUserGetter struct {
	users map[string]*repository.User
}

func (f *fakeUserGetter) GetByID(ctx context.Context, id string) (*repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.NotFound("user")
	}
	return u, nil
}

type fakeCasePublisher struct {
	events []string
}

func (f *fakeCasePublisher) PublishCaseCreated(ctx context.Context, e *repository.Exception, createdBy string) {
	f.events = append(f.events, "case.created")
}

func (f *fakeCasePublisher) PublishCaseStatusChanged(ctx context.Context, e *repository.Exception, oldStatus, newStatus, changedBy string) {
	f.events = append(f.events, "case.status_changed")
}

func (f *fakeCasePublisher) PublishCaseClosed(ctx context.Context, e *repository.Exception, closedBy string, reactivatedSchedules int) {
	f.events = append(f.events, "case.closed")
}

func (f *fakeCasePublisher) PublishCaseAssignedToWHS(ctx context.Context, e *repository.Exception, assignedBy string) {
	f.events = append(f.events, "case.assigned_to_whs")
}

func (f *fakeCasePublisher) PublishCaseAssignedToClinician(ctx context.Context, e *repository.Exception, clinicianID string) {
	f.events = append(f.events, "case.assigned_to_clinician")
}

func newCaseService(store *fakeExceptionStore, schedules *fakeScheduleCounter, users *fakeUserGetter, publisher *fakeCasePublisher) *service.CaseService {
	log := logger.New("test", "test")
	return service.NewCaseService(store, schedules, users, publisher, log)
}

func strPtr(s string) *string { return &s }

func datePtr(t time.Time) *time.Time { return &t }

func TestCaseService_Open(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("rejects reversed date range", func(t *testing.T) {
		store := newFakeExceptionStore()
		svc := newCaseService(store, &fakeScheduleCounter{}, &fakeUserGetter{}, &fakeCasePublisher{})

		_, err := svc.Open(ctx, service.OpenCaseInput{
			UserID:        "worker-1",
			ExceptionType: "injury",
			Reason:        "test",
			StartDate:     start,
			EndDate:       datePtr(start.AddDate(0, 0, -1)),
		}, "supervisor-1")

		require.Error(t, err)
		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		assert.Empty(t, store.byID)
	})

	t.Run("zero-length range is valid", func(t *testing.T) {
		store := newFakeExceptionStore()
		publisher := &fakeCasePublisher{}
		svc := newCaseService(store, &fakeScheduleCounter{}, &fakeUserGetter{}, publisher)

		c, err := svc.Open(ctx, service.OpenCaseInput{
			UserID:        "worker-1",
			ExceptionType: "injury",
			Reason:        "single day off",
			StartDate:     start,
			EndDate:       datePtr(start),
		}, "supervisor-1")

		require.NoError(t, err)
		assert.True(t, c.IsActive)
		assert.Equal(t, "new", c.Status)
		assert.Contains(t, publisher.events, "case.created")
	})

	t.Run("escalated open is assigned to WHS and assessed", func(t *testing.T) {
		store := newFakeExceptionStore()
		svc := newCaseService(store, &fakeScheduleCounter{}, &fakeUserGetter{}, &fakeCasePublisher{})

		c, err := svc.Open(ctx, service.OpenCaseInput{
			UserID:        "worker-1",
			ExceptionType: "accident",
			Reason:        "forklift collision",
			StartDate:     start,
			AssignedToWHS: true,
		}, "supervisor-1")

		require.NoError(t, err)
		assert.True(t, c.AssignedToWHS)
		assert.Equal(t, "assessed", c.Status)
	})

	t.Run("store conflict surfaces unchanged", func(t *testing.T) {
		store := newFakeExceptionStore()
		store.createErr = errors.Conflict("this worker already has an active exception")
		svc := newCaseService(store, &fakeScheduleCounter{}, &fakeUserGetter{}, &fakeCasePublisher{})

		_, err := svc.Open(ctx, service.OpenCaseInput{
			UserID:        "worker-1",
			ExceptionType: "injury",
			Reason:        "test",
			StartDate:     start,
		}, "supervisor-1")

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})
}

func TestCaseService_Transition_ToClosed(t *testing.T) {
	ctx := context.Background()

	store := newFakeExceptionStore()
	store.byID["exc-1"] = &repository.Exception{
		ID:        "exc-1",
		UserID:    "worker-1",
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
		Notes:     strPtr(`{"case_status":"in_rehab","injury":"sprained ankle"}`),
	}

	schedules := &fakeScheduleCounter{count: 3}
	users := &fakeUserGetter{users: map[string]*repository.User{
		"clinician-1": {ID: "clinician-1", FirstName: "Dana", LastName: "Reid", Role: "clinician"},
	}}
	publisher := &fakeCasePublisher{}
	svc := newCaseService(store, schedules, users, publisher)

	result, err := svc.Transition(ctx, "exc-1", "closed", "clinician-1")
	require.NoError(t, err)

	assert.Equal(t, "closed", result.Status)
	assert.Equal(t, 3, result.ReactivatedSchedules)
	assert.Equal(t, []string{"exc-1"}, store.closed)
	assert.True(t, schedules.called)

	// Notes keep unrelated keys and gain the approval stamp.
	var notes map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(store.updatedNotes["exc-1"]), &notes))
	assert.Equal(t, "closed", notes["case_status"])
	assert.Equal(t, "sprained ankle", notes["injury"])
	assert.Equal(t, "Dana Reid", notes["approved_by"])
	assert.NotEmpty(t, notes["approved_at"])

	assert.Contains(t, publisher.events, "case.closed")
	assert.Contains(t, publisher.events, "case.status_changed")
}

func TestCaseService_Transition_ClosedCaseStaysClosed(t *testing.T) {
	ctx := context.Background()

	store := newFakeExceptionStore()
	store.byID["exc-1"] = &repository.Exception{
		ID:       "exc-1",
		UserID:   "worker-1",
		IsActive: false,
		Notes:    strPtr(`{"case_status":"closed"}`),
	}

	schedules := &fakeScheduleCounter{count: 5}
	users := &fakeUserGetter{users: map[string]*repository.User{
		"clinician-1": {ID: "clinician-1", FirstName: "Dana", LastName: "Reid", Role: "clinician"},
	}}
	publisher := &fakeCasePublisher{}
	svc := newCaseService(store, schedules, users, publisher)

	result, err := svc.Transition(ctx, "exc-1", "closed", "clinician-1")
	require.NoError(t, err)

	// Re-closing an inactive case touches notes only; the status did not
	// move, so nothing is announced.
	assert.Equal(t, 0, result.ReactivatedSchedules)
	assert.Empty(t, store.closed)
	assert.False(t, schedules.called)
	assert.Empty(t, publisher.events)
}

func TestCaseService_Transition_RejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()

	store := newFakeExceptionStore()
	store.byID["exc-1"] = &repository.Exception{ID: "exc-1", UserID: "worker-1", IsActive: true}
	svc := newCaseService(store, &fakeScheduleCounter{}, &fakeUserGetter{}, &fakeCasePublisher{})

	_, err := svc.Transition(ctx, "exc-1", "archived", "clinician-1")
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Empty(t, store.updatedNotes)
}

func TestCaseService_List_StatusFilter(t *testing.T) {
	ctx := context.Background()

	store := newFakeExceptionStore()
	store.listed = []*repository.Exception{
		{ID: "a", UserID: "w1", IsActive: true},
		{ID: "b", UserID: "w2", IsActive: true, AssignedToWHS: true},
		{ID: "c", UserID: "w3", IsActive: false},
	}
	svc := newCaseService(store, &fakeScheduleCounter{}, &fakeUserGetter{}, &fakeCasePublisher{})

	t.Run("filters on derived status", func(t *testing.T) {
		cases, err := svc.List(ctx, repository.ExceptionListParams{}, "assessed")
		require.NoError(t, err)
		require.Len(t, cases, 1)
		assert.Equal(t, "b", cases[0].ID)
	})

	t.Run("all returns everything", func(t *testing.T) {
		cases, err := svc.List(ctx, repository.ExceptionListParams{}, "all")
		require.NoError(t, err)
		assert.Len(t, cases, 3)
	})

	t.Run("unknown filter rejected", func(t *testing.T) {
		_, err := svc.List(ctx, repository.ExceptionListParams{}, "pending")
		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "BAD_REQUEST", appErr.Code)
	})
}

func TestCaseService_AssignClinician_RejectsOtherRoles(t *testing.T) {
	ctx := context.Background()

	store := newFakeExceptionStore()
	store.byID["exc-1"] = &repository.Exception{ID: "exc-1", UserID: "worker-1", IsActive: true}
	users := &fakeUserGetter{users: map[string]*repository.User{
		"nurse-1": {ID: "nurse-1", FirstName: "Sam", LastName: "Lee", Role: "supervisor"},
	}}
	svc := newCaseService(store, &fakeScheduleCounter{}, users, &fakeCasePublisher{})

	_, err := svc.AssignClinician(ctx, "exc-1", "nurse-1")
	require.Error(t, err)
	assert.Empty(t, store.clinicians)
}

func TestCaseService_CloseExpired(t *testing.T) {
	store := newFakeExceptionStore()
	store.expiredCount = 4
	svc := newCaseService(store, &fakeScheduleCounter{}, &fakeUserGetter{}, &fakeCasePublisher{})

	count, err := svc.CloseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
