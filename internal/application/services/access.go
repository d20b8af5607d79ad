package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/ports"
)

// access answers visibility questions shared by the task, routine and team
// services. Anything the caller cannot see is reported as NotFound.
type access struct {
	tasks ports.TaskRepository
	teams ports.TeamRepository
}

// member returns the caller's membership of teamID
func (a access) member(ctx context.Context, teamID, userID uuid.UUID) (*entities.TeamMember, error) {
	m, err := a.teams.GetMember(ctx, teamID, userID)
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("team", teamID.String())
		}
		return nil, err
	}
	return m, nil
}

// scope checks that the caller may act in scope
func (a access) scope(ctx context.Context, scope entities.Scope) error {
	if !scope.IsTeam() {
		return nil
	}
	_, err := a.member(ctx, *scope.TeamID, scope.UserID)
	return err
}

// taskIn returns the task if it lives in scope and the caller may act there
func (a access) taskIn(ctx context.Context, scope entities.Scope, id uuid.UUID) (*entities.Task, error) {
	if err := a.scope(ctx, scope); err != nil {
		return nil, err
	}
	task, err := a.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.BelongsTo(scope) {
		return nil, apperrors.NewNotFoundError("task", id.String())
	}
	return task, nil
}

// visibleTask returns the task if it is in any scope of userID
func (a access) visibleTask(ctx context.Context, id, userID uuid.UUID) (*entities.Task, error) {
	return a.tasks.GetVisible(ctx, id, userID)
}
