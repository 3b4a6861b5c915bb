package service

import (
	"context"

	"github.com/worksafe/worksafe-backend/internal/whs/repository"
	"github.com/worksafe/worksafe-backend/pkg/authz"
	"github.com/worksafe/worksafe-backend/pkg/errors"
	"github.com/worksafe/worksafe-backend/pkg/logger"
)

// CreateTeamInput holds the fields for creating a team
type CreateTeamInput struct {
	Name         string  `json:"name" validate:"required"`
	TeamLeaderID string  `json:"team_leader_id" validate:"required,uuid"`
	SupervisorID *string `json:"supervisor_id,omitempty" validate:"omitempty,uuid"`
}

// TeamService manages teams and memberships
type TeamService struct {
	teams  *repository.TeamRepository
	users  *repository.UserRepository
	logger *logger.Logger
}

// NewTeamService creates a new team service
func NewTeamService(teams *repository.TeamRepository, users *repository.UserRepository, log *logger.Logger) *TeamService {
	return &TeamService{
		teams:  teams,
		users:  users,
		logger: log,
	}
}

// Create creates a team. The leader must hold the team_leader role; a user
// leading another team loses to the unique constraint and surfaces as a
// conflict.
func (s *TeamService) Create(ctx context.Context, input CreateTeamInput) (*repository.Team, error) {
	leader, err := s.users.GetByID(ctx, input.TeamLeaderID)
	if err != nil {
		return nil, err
	}
	if leader.Role != authz.RoleTeamLeader {
		return nil, errors.BadRequest("team leader must hold the team_leader role")
	}

	team := &repository.Team{
		Name:         input.Name,
		TeamLeaderID: input.TeamLeaderID,
		SupervisorID: input.SupervisorID,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("team_id", team.ID).
		Str("team_leader_id", team.TeamLeaderID).
		Msg("team created")

	return team, nil
}

// Get returns a team by ID
func (s *TeamService) Get(ctx context.Context, id string) (*repository.Team, error) {
	return s.teams.GetByID(ctx, id)
}

// GetForLeader returns the team led by a user
func (s *TeamService) GetForLeader(ctx context.Context, leaderID string) (*repository.Team, error) {
	return s.teams.GetForLeader(ctx, leaderID)
}

// ListForSupervisor lists teams supervised by a user
func (s *TeamService) ListForSupervisor(ctx context.Context, supervisorID string) ([]*repository.Team, error) {
	return s.teams.ListForSupervisor(ctx, supervisorID)
}

// AddMember adds a worker to a team
func (s *TeamService) AddMember(ctx context.Context, teamID, userID string, phone *string) (*repository.TeamMember, error) {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	member := &repository.TeamMember{
		TeamID: teamID,
		UserID: userID,
		Phone:  phone,
	}
	if err := s.teams.AddMember(ctx, member); err != nil {
		return nil, err
	}

	return member, nil
}

// Members lists the members of a team
func (s *TeamService) Members(ctx context.Context, teamID string) ([]*repository.TeamMember, error) {
	return s.teams.ListMembers(ctx, teamID)
}
