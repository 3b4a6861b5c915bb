package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"golang.org/x/crypto/bcrypt"
)

// FixtureFactory inserts test rows with sensible defaults. Every fixture
// gets unique identifying fields so tests sharing the database stay isolated.
type FixtureFactory struct {
	db       *database.DB
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory(db *database.DB) *FixtureFactory {
	return &FixtureFactory{db: db}
}

func (f *FixtureFactory) next() int {
	f.sequence++
	return f.sequence
}

// CreateUser inserts a user with the given role and returns its ID
func (f *FixtureFactory) CreateUser(t *testing.T, ctx context.Context, role string) string {
	t.Helper()

	id := uuid.New().String()
	n := f.next()
	hash, err := bcrypt.GenerateFromPassword([]byte("test-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	_, err = f.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, fmt.Sprintf("user%d-%s@example.com", n, id[:8]), string(hash),
		"Test", fmt.Sprintf("User%d", n), role,
	)
	if err != nil {
		t.Fatalf("failed to create user fixture: %v", err)
	}
	return id
}

// CreateTeam inserts a team led by leaderID and returns its ID
func (f *FixtureFactory) CreateTeam(t *testing.T, ctx context.Context, leaderID string, supervisorID *string) string {
	t.Helper()

	id := uuid.New().String()
	_, err := f.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, team_leader_id, supervisor_id)
		VALUES ($1, $2, $3, $4)`,
		id, fmt.Sprintf("Team %d", f.next()), leaderID, supervisorID,
	)
	if err != nil {
		t.Fatalf("failed to create team fixture: %v", err)
	}
	return id
}

// AddTeamMember links a worker to a team
func (f *FixtureFactory) AddTeamMember(t *testing.T, ctx context.Context, teamID, userID string) {
	t.Helper()

	_, err := f.db.ExecContext(ctx, `
		INSERT INTO team_members (id, team_id, user_id)
		VALUES ($1, $2, $3)`,
		uuid.New().String(), teamID, userID,
	)
	if err != nil {
		t.Fatalf("failed to add team member fixture: %v", err)
	}
}

// CreateException inserts an active worker exception and returns its ID
func (f *FixtureFactory) CreateException(t *testing.T, ctx context.Context, workerID string, startDate time.Time, endDate *time.Time) string {
	t.Helper()

	id := uuid.New().String()
	_, err := f.db.ExecContext(ctx, `
		INSERT INTO worker_exceptions (id, user_id, exception_type, reason, start_date, end_date, is_active)
		VALUES ($1, $2, 'injury', 'fixture', $3, $4, TRUE)`,
		id, workerID, startDate, endDate,
	)
	if err != nil {
		t.Fatalf("failed to create exception fixture: %v", err)
	}
	return id
}

// CreateSingleDateSchedule inserts a single-date schedule and returns its ID
func (f *FixtureFactory) CreateSingleDateSchedule(t *testing.T, ctx context.Context, workerID string, date time.Time) string {
	t.Helper()

	id := uuid.New().String()
	_, err := f.db.ExecContext(ctx, `
		INSERT INTO worker_schedules (id, worker_id, scheduled_date, start_time, end_time, is_active)
		VALUES ($1, $2, $3, '09:00', '17:00', TRUE)`,
		id, workerID, date,
	)
	if err != nil {
		t.Fatalf("failed to create schedule fixture: %v", err)
	}
	return id
}
