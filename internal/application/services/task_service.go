package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/filter"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/ports"
)

// TaskService handles task-related operations in personal and team scopes
type TaskService struct {
	taskRepo ports.TaskRepository
	routines *RoutineService
	access   access
	location *time.Location
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, teamRepo ports.TeamRepository, routines *RoutineService, location *time.Location, logger *logger.Logger, m *metrics.Metrics) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		routines: routines,
		access:   access{tasks: taskRepo, teams: teamRepo},
		location: location,
		logger:   logger.WithComponent("tasks"),
		metrics:  m,
		now:      time.Now,
	}
}

// ListTasks returns the tasks of scope that match mode, ordered by date, time
// and creation
func (s *TaskService) ListTasks(ctx context.Context, scope entities.Scope, mode filter.Mode) ([]entities.Task, error) {
	if err := s.access.scope(ctx, scope); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.List(ctx, scope)
	if err != nil {
		return nil, err
	}

	return filter.Apply(tasks, mode, s.now().In(s.location)), nil
}

// GetTask retrieves a task in scope
func (s *TaskService) GetTask(ctx context.Context, scope entities.Scope, id uuid.UUID) (*entities.Task, error) {
	return s.access.taskIn(ctx, scope, id)
}

// CreateTask creates a task in scope. Missing date and time default to the
// current moment. A routine in the request is applied to the new task; if
// that fails the task is removed again.
func (s *TaskService) CreateTask(ctx context.Context, scope entities.Scope, req ports.CreateTaskRequest) (*entities.Task, error) {
	if err := s.access.scope(ctx, scope); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Task)
	if title == "" {
		return nil, apperrors.NewValidationError("task title is required", nil)
	}

	now := s.now().In(s.location)
	task := &entities.Task{
		ID:          uuid.New(),
		Task:        title,
		Description: req.Description,
		Important:   req.Important,
		Date:        req.Date,
		Time:        req.Time,
	}
	if task.Date == "" {
		task.Date = now.Format(entities.DateLayout)
	}
	if task.Time == "" {
		task.Time = now.Format(entities.TimeLayout)
	}
	if err := validateSchedule(task); err != nil {
		return nil, err
	}

	if scope.IsTeam() {
		teamID := *scope.TeamID
		task.TeamID = &teamID
	} else {
		ownerID := scope.UserID
		task.OwnerID = &ownerID
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	if req.Routine != nil && len(req.Routine.Slots) > 0 {
		if _, err := s.routines.ReplaceDay(ctx, scope.UserID, task.ID, *req.Routine); err != nil {
			if delErr := s.taskRepo.Delete(ctx, task.ID); delErr != nil {
				s.logger.WithError(delErr).Errorw("Failed to roll back task after routine failure", "task_id", task.ID)
			}
			return nil, err
		}
	}

	s.logger.Infow("Task created successfully", "task_id", task.ID, "scope", scope.String(), "user_id", scope.UserID)
	s.metrics.RecordEvent(metrics.EventTaskCreated)

	return task, nil
}

// UpdateTask applies a partial update to a task in scope
func (s *TaskService) UpdateTask(ctx context.Context, scope entities.Scope, id uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	task, err := s.access.taskIn(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if req.Task != nil {
		title := strings.TrimSpace(*req.Task)
		if title == "" {
			return nil, apperrors.NewValidationError("task title cannot be empty", nil)
		}
		task.Task = title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Important != nil {
		task.Important = *req.Important
	}
	if req.Done != nil {
		task.Done = *req.Done
	}
	if req.Date != nil {
		task.Date = *req.Date
	}
	if req.Time != nil {
		task.Time = *req.Time
	}
	if err := validateSchedule(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	if req.Routine != nil {
		if _, err := s.routines.ReplaceDay(ctx, scope.UserID, task.ID, *req.Routine); err != nil {
			return nil, err
		}
	}

	s.logger.Infow("Task updated successfully", "task_id", task.ID, "scope", scope.String(), "user_id", scope.UserID)
	s.metrics.RecordEvent(metrics.EventTaskUpdated)

	return task, nil
}

// SetDone marks a task done or not done without touching other fields
func (s *TaskService) SetDone(ctx context.Context, scope entities.Scope, id uuid.UUID, done bool) (*entities.Task, error) {
	task, err := s.access.taskIn(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.SetDone(ctx, id, done); err != nil {
		return nil, err
	}
	task.Done = done

	s.logger.Infow("Task status changed", "task_id", id, "done", done, "user_id", scope.UserID)
	s.metrics.RecordEvent(metrics.EventTaskUpdated)

	return task, nil
}

// DeleteTask removes a task in scope along with its routines and shares.
// Deleting a task that is gone or not visible is NotFound.
func (s *TaskService) DeleteTask(ctx context.Context, scope entities.Scope, id uuid.UUID) error {
	if _, err := s.access.taskIn(ctx, scope, id); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Infow("Task deleted successfully", "task_id", id, "scope", scope.String(), "user_id", scope.UserID)
	s.metrics.RecordEvent(metrics.EventTaskDeleted)

	return nil
}

func validateSchedule(task *entities.Task) error {
	if _, err := time.Parse(entities.DateLayout, task.Date); err != nil {
		return apperrors.NewValidationError("date must be formatted as YYYY-MM-DD", err)
	}
	if _, err := time.Parse(entities.TimeLayout, task.Time); err != nil {
		return apperrors.NewValidationError("time must be formatted as HH:MM:SS", err)
	}
	return nil
}
