package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/worksafe/worksafe-backend/pkg/database"
	"github.com/worksafe/worksafe-backend/pkg/errors"
)

// Team represents a work crew with one team leader and an optional supervisor
type Team struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	TeamLeaderID string    `db:"team_leader_id" json:"team_leader_id"`
	SupervisorID *string   `db:"supervisor_id" json:"supervisor_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TeamMember links a user to a team
type TeamMember struct {
	ID                   string    `db:"id" json:"id"`
	TeamID               string    `db:"team_id" json:"team_id"`
	UserID               string    `db:"user_id" json:"user_id"`
	Phone                *string   `db:"phone" json:"phone,omitempty"`
	CompliancePercentage float64   `db:"compliance_percentage" json:"compliance_percentage"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`

	// Joined fields
	MemberName *string `db:"member_name" json:"member_name,omitempty"`
}

// TeamRepository handles team persistence
type TeamRepository struct {
	db *database.DB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *database.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create creates a new team
func (r *TeamRepository) Create(ctx context.Context, team *Team) error {
	if team.ID == "" {
		team.ID = uuid.New().String()
	}

	query := `
		INSERT INTO teams (id, name, team_leader_id, supervisor_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		team.ID, team.Name, team.TeamLeaderID, team.SupervisorID,
	).Scan(&team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a team by ID
func (r *TeamRepository) GetByID(ctx context.Context, id string) (*Team, error) {
	var team Team

	query := `
		SELECT id, name, team_leader_id, supervisor_id, created_at, updated_at
		FROM teams
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &team, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("team")
	}
	if err != nil {
		return nil, err
	}

	return &team, nil
}

// GetForLeader gets the team led by a user
func (r *TeamRepository) GetForLeader(ctx context.Context, leaderID string) (*Team, error) {
	var team Team

	query := `
		SELECT id, name, team_leader_id, supervisor_id, created_at, updated_at
		FROM teams
		WHERE team_leader_id = $1
	`
	err := r.db.GetContext(ctx, &team, query, leaderID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("team")
	}
	if err != nil {
		return nil, err
	}

	return &team, nil
}

// ListForSupervisor lists teams supervised by a user
func (r *TeamRepository) ListForSupervisor(ctx context.Context, supervisorID string) ([]*Team, error) {
	var teams []*Team

	query := `
		SELECT id, name, team_leader_id, supervisor_id, created_at, updated_at
		FROM teams
		WHERE supervisor_id = $1
		ORDER BY name
	`
	if err := r.db.SelectContext(ctx, &teams, query, supervisorID); err != nil {
		return nil, err
	}

	return teams, nil
}

// AddMember adds a user to a team
func (r *TeamRepository) AddMember(ctx context.Context, member *TeamMember) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}

	query := `
		INSERT INTO team_members (id, team_id, user_id, phone, compliance_percentage)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		member.ID, member.TeamID, member.UserID, member.Phone, member.CompliancePercentage,
	).Scan(&member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// ListMembers lists the members of a team
func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]*TeamMember, error) {
	var members []*TeamMember

	query := `
		SELECT m.id, m.team_id, m.user_id, m.phone, m.compliance_percentage,
		       m.created_at, m.updated_at,
		       CONCAT(u.first_name, ' ', u.last_name) as member_name
		FROM team_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.team_id = $1
		ORDER BY u.last_name, u.first_name
	`
	if err := r.db.SelectContext(ctx, &members, query, teamID); err != nil {
		return nil, err
	}

	return members, nil
}

// GetTeamIDForWorker resolves the team a worker belongs to, if any
func (r *TeamRepository) GetTeamIDForWorker(ctx context.Context, workerID string) (*string, error) {
	var teamID string

	query := `SELECT team_id FROM team_members WHERE user_id = $1 LIMIT 1`
	err := r.db.GetContext(ctx, &teamID, query, workerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &teamID, nil
}

// UpdateCompliance updates a member's compliance percentage
func (r *TeamRepository) UpdateCompliance(ctx context.Context, teamID, userID string, percentage float64) error {
	query := `
		UPDATE team_members SET compliance_percentage = $3
		WHERE team_id = $1 AND user_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, teamID, userID, percentage)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("team_member")
	}

	return nil
}
