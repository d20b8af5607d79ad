package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/ports"
)

const (
	teamColumns   = `tm.id, tm.name, tm.password_hash, tm.created_by, tm.created_at`
	memberColumns = `m.team_id, m.user_id, u.username, m.is_admin, m.joined_at`
)

// TeamRepositoryImpl implements the TeamRepository interface
type TeamRepositoryImpl struct {
	db *database.DB
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *database.DB) ports.TeamRepository {
	return &TeamRepositoryImpl{db: db}
}

// Create stores the team and makes its creator the first admin member
func (r *TeamRepositoryImpl) Create(ctx context.Context, team *entities.Team) error {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	team.CreatedAt = time.Now().UTC()

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO teams (id, name, password_hash, created_by, created_at)
			VALUES (?, ?, ?, ?, ?)`),
			team.ID, team.Name, team.PasswordHash, team.CreatedBy, team.CreatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.NewConflictError("team", "team name already taken")
			}
			return mapError(err, "create team", "team", team.Name)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO team_members (team_id, user_id, is_admin, joined_at)
			VALUES (?, ?, ?, ?)`),
			team.ID, team.CreatedBy, true, team.CreatedAt)
		return mapError(err, "add team creator", "team member", team.CreatedBy.String())
	})
}

func (r *TeamRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Team, error) {
	query := r.db.DB.Rebind(`SELECT ` + teamColumns + ` FROM teams tm WHERE tm.id = ?`)

	var team entities.Team
	if err := r.db.DB.GetContext(ctx, &team, query, id); err != nil {
		return nil, mapError(err, "get team", "team", id.String())
	}

	return &team, nil
}

func (r *TeamRepositoryImpl) GetByName(ctx context.Context, name string) (*entities.Team, error) {
	query := r.db.DB.Rebind(`SELECT ` + teamColumns + ` FROM teams tm WHERE tm.name = ?`)

	var team entities.Team
	if err := r.db.DB.GetContext(ctx, &team, query, name); err != nil {
		return nil, mapError(err, "get team by name", "team", name)
	}

	return &team, nil
}

func (r *TeamRepositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]entities.Team, error) {
	query := r.db.DB.Rebind(`
		SELECT ` + teamColumns + `
		FROM teams tm
		JOIN team_members m ON m.team_id = tm.id
		WHERE m.user_id = ?
		ORDER BY tm.name`)

	teams := []entities.Team{}
	if err := r.db.DB.SelectContext(ctx, &teams, query, userID); err != nil {
		return nil, mapError(err, "list teams", "team", userID.String())
	}

	return teams, nil
}

func (r *TeamRepositoryImpl) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*entities.TeamMember, error) {
	query := r.db.DB.Rebind(`
		SELECT ` + memberColumns + `
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = ? AND m.user_id = ?`)

	var member entities.TeamMember
	if err := r.db.DB.GetContext(ctx, &member, query, teamID, userID); err != nil {
		return nil, mapError(err, "get team member", "team member", userID.String())
	}

	return &member, nil
}

func (r *TeamRepositoryImpl) AddMember(ctx context.Context, member *entities.TeamMember) error {
	query := r.db.DB.Rebind(`
		INSERT INTO team_members (team_id, user_id, is_admin, joined_at)
		VALUES (?, ?, ?, ?)`)

	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}

	_, err := r.db.DB.ExecContext(ctx, query, member.TeamID, member.UserID, member.IsAdmin, member.JoinedAt)
	if database.IsUniqueViolation(err) {
		return apperrors.NewConflictError("team member", "user is already a member of this team")
	}
	return mapError(err, "add team member", "team member", member.UserID.String())
}

// RemoveMember deletes the membership in one transaction. Touching the team row
// first serializes removals within a team, so two admins removing each other
// cannot both pass the last-admin check.
func (r *TeamRepositoryImpl) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE teams SET name = name WHERE id = ?`), teamID)
		if err := expectRow(result, err, "lock team", "team", teamID); err != nil {
			return err
		}

		var isAdmin bool
		err = tx.GetContext(ctx, &isAdmin, tx.Rebind(`SELECT is_admin FROM team_members WHERE team_id = ? AND user_id = ?`), teamID, userID)
		if err != nil {
			return mapError(err, "get team member", "team member", userID.String())
		}

		if isAdmin {
			var admins int
			err := tx.GetContext(ctx, &admins, tx.Rebind(`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND is_admin = ?`), teamID, true)
			if err != nil {
				return mapError(err, "count team admins", "team member", teamID.String())
			}
			if admins <= 1 {
				return apperrors.NewConflictError("team member", "a team must keep at least one admin")
			}
		}

		result, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM team_members WHERE team_id = ? AND user_id = ?`), teamID, userID)
		return expectRow(result, err, "remove team member", "team member", userID)
	})
}

// ListMembers returns members in join order
func (r *TeamRepositoryImpl) ListMembers(ctx context.Context, teamID uuid.UUID) ([]entities.TeamMember, error) {
	query := r.db.DB.Rebind(`
		SELECT ` + memberColumns + `
		FROM team_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.team_id = ?
		ORDER BY m.joined_at, u.username`)

	members := []entities.TeamMember{}
	if err := r.db.DB.SelectContext(ctx, &members, query, teamID); err != nil {
		return nil, mapError(err, "list team members", "team member", teamID.String())
	}

	return members, nil
}
