package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/ports"
)

// TeamService manages teams and their membership
type TeamService struct {
	teamRepo ports.TeamRepository
	taskRepo ports.TaskRepository
	users    *UserService
	access   access
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewTeamService creates a new team service
func NewTeamService(teamRepo ports.TeamRepository, taskRepo ports.TaskRepository, users *UserService, logger *logger.Logger, m *metrics.Metrics) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		taskRepo: taskRepo,
		users:    users,
		access:   access{tasks: taskRepo, teams: teamRepo},
		logger:   logger.WithComponent("teams"),
		metrics:  m,
	}
}

// CreateTeam creates a team with creatorID as its sole admin
func (s *TeamService) CreateTeam(ctx context.Context, creatorID uuid.UUID, req ports.CreateTeamRequest) (*entities.Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("team name is required", nil)
	}
	if req.Password == "" {
		return nil, apperrors.NewValidationError("team password is required", nil)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	team := &entities.Team{
		ID:           uuid.New(),
		Name:         name,
		PasswordHash: hashed,
		CreatedBy:    creatorID,
	}
	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, err
	}

	s.logger.Infow("Team created successfully", "team_id", team.ID, "name", team.Name, "user_id", creatorID)
	s.metrics.RecordEvent(metrics.EventTeamCreated)

	return team, nil
}

// JoinTeam adds userID to the team named req.Name as a regular member
func (s *TeamService) JoinTeam(ctx context.Context, userID uuid.UUID, req ports.JoinTeamRequest) (*entities.Team, error) {
	team, err := s.teamRepo.GetByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, err
	}

	if !checkPassword(team.PasswordHash, req.Password) {
		s.logger.LogSecurityEvent("team_join_denied", userID.String(), "", map[string]interface{}{
			"team_id": team.ID.String(),
		})
		return nil, apperrors.NewInvalidCredentialsError("invalid team password")
	}

	if err := s.teamRepo.AddMember(ctx, &entities.TeamMember{TeamID: team.ID, UserID: userID}); err != nil {
		return nil, err
	}

	s.logger.Infow("User joined team", "team_id", team.ID, "user_id", userID)
	s.metrics.RecordEvent(metrics.EventTeamJoined)

	return team, nil
}

// AddMember lets an admin of teamID add username as a regular member
func (s *TeamService) AddMember(ctx context.Context, teamID, requesterID uuid.UUID, username string) (*entities.TeamMember, error) {
	if err := s.requireAdmin(ctx, teamID, requesterID, "add_member"); err != nil {
		return nil, err
	}

	user, err := s.users.ResolveUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	member := &entities.TeamMember{TeamID: teamID, UserID: user.ID, Username: user.Username}
	if err := s.teamRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.LogUserAction(requesterID.String(), "add_team_member", map[string]interface{}{
		"team_id":   teamID.String(),
		"member_id": user.ID.String(),
	})
	s.metrics.RecordEvent(metrics.EventMemberAdded)

	return member, nil
}

// RemoveMember lets an admin remove a member. A team never loses its last
// admin this way.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, requesterID, memberID uuid.UUID) error {
	if err := s.requireAdmin(ctx, teamID, requesterID, "remove_member"); err != nil {
		return err
	}

	if err := s.teamRepo.RemoveMember(ctx, teamID, memberID); err != nil {
		return err
	}

	s.logger.LogUserAction(requesterID.String(), "remove_team_member", map[string]interface{}{
		"team_id":   teamID.String(),
		"member_id": memberID.String(),
	})
	s.metrics.RecordEvent(metrics.EventMemberRemoved)

	return nil
}

// ListMembers returns the members of a team the caller belongs to
func (s *TeamService) ListMembers(ctx context.Context, teamID, userID uuid.UUID) ([]entities.TeamMember, error) {
	if _, err := s.access.member(ctx, teamID, userID); err != nil {
		return nil, err
	}
	return s.teamRepo.ListMembers(ctx, teamID)
}

// ListTeams returns the teams userID belongs to
func (s *TeamService) ListTeams(ctx context.Context, userID uuid.UUID) ([]entities.Team, error) {
	return s.teamRepo.ListForUser(ctx, userID)
}

// GetTeam returns a team the caller belongs to together with its tasks
func (s *TeamService) GetTeam(ctx context.Context, teamID, userID uuid.UUID) (*entities.TeamDetail, error) {
	member, err := s.access.member(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.List(ctx, entities.TeamScope(userID, teamID))
	if err != nil {
		return nil, err
	}

	return &entities.TeamDetail{Team: *team, IsAdmin: member.IsAdmin, Tasks: tasks}, nil
}

func (s *TeamService) requireAdmin(ctx context.Context, teamID, userID uuid.UUID, operation string) error {
	member, err := s.teamRepo.GetMember(ctx, teamID, userID)
	if err != nil && !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		return err
	}
	if member == nil || !member.IsAdmin {
		s.logger.LogSecurityEvent("team_admin_required", userID.String(), "", map[string]interface{}{
			"team_id":   teamID.String(),
			"operation": operation,
		})
		return apperrors.NewForbiddenError(operation, "team "+teamID.String())
	}
	return nil
}
