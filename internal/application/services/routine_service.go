package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/ports"
)

// RoutineService schedules tasks into (day, slot) pairs
type RoutineService struct {
	routineRepo ports.RoutineRepository
	access      access
	location    *time.Location
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewRoutineService creates a new routine service
func NewRoutineService(routineRepo ports.RoutineRepository, taskRepo ports.TaskRepository, teamRepo ports.TeamRepository, location *time.Location, logger *logger.Logger, m *metrics.Metrics) *RoutineService {
	return &RoutineService{
		routineRepo: routineRepo,
		access:      access{tasks: taskRepo, teams: teamRepo},
		location:    location,
		logger:      logger.WithComponent("routines"),
		metrics:     m,
		now:         time.Now,
	}
}

// Upsert makes req.Slots the exact active set for the task on req.Day and
// returns every routine row of the task afterwards
func (s *RoutineService) Upsert(ctx context.Context, userID uuid.UUID, req ports.UpsertRoutineRequest) ([]entities.Routine, error) {
	return s.ReplaceDay(ctx, userID, req.TaskID, req.RoutineInput)
}

// ReplaceDay applies input to a task visible to userID. Without a day the
// current weekday in the server location is used.
func (s *RoutineService) ReplaceDay(ctx context.Context, userID, taskID uuid.UUID, input ports.RoutineInput) ([]entities.Routine, error) {
	day, err := s.dayOrToday(input.Day)
	if err != nil {
		return nil, err
	}
	slots, err := parseSlots(input.Slots)
	if err != nil {
		return nil, err
	}

	if _, err := s.access.visibleTask(ctx, taskID, userID); err != nil {
		return nil, err
	}

	if err := s.routineRepo.ReplaceDay(ctx, taskID, day, slots); err != nil {
		return nil, err
	}

	s.logger.Infow("Routine replaced", "task_id", taskID, "day", day, "slots", slots, "user_id", userID)
	s.metrics.RecordEvent(metrics.EventRoutineReplaced)

	return s.routineRepo.ListByTask(ctx, taskID)
}

// TasksFor returns the caller's tasks active on day in slot. No match is an
// empty result, not an error.
func (s *RoutineService) TasksFor(ctx context.Context, userID uuid.UUID, day, slot string) ([]entities.ScheduledTask, error) {
	d, err := entities.ParseDay(day)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}
	sl, err := entities.ParseSlot(slot)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}

	scheduled, err := s.routineRepo.ListActive(ctx, userID, d, sl)
	if err != nil {
		return nil, err
	}

	for i := range scheduled {
		if dt, err := scheduled[i].Task.DateTime(s.location); err == nil {
			scheduled[i].DateTime = dt.Format(time.RFC3339)
		}
	}

	return scheduled, nil
}

// TasksForToday is TasksFor with the current weekday in the server location
func (s *RoutineService) TasksForToday(ctx context.Context, userID uuid.UUID, slot string) ([]entities.ScheduledTask, error) {
	return s.TasksFor(ctx, userID, string(entities.DayOf(s.now().In(s.location))), slot)
}

// ListForTask returns all routine rows of a task. A task without rows, or
// one the caller cannot see (including a deleted one), has no recurrence.
func (s *RoutineService) ListForTask(ctx context.Context, userID, taskID uuid.UUID) ([]entities.Routine, error) {
	if _, err := s.access.visibleTask(ctx, taskID, userID); err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			return []entities.Routine{}, nil
		}
		return nil, err
	}
	return s.routineRepo.ListByTask(ctx, taskID)
}

// SetStatus toggles a single routine row
func (s *RoutineService) SetStatus(ctx context.Context, userID, routineID uuid.UUID, active bool) (*entities.Routine, error) {
	routine, err := s.visibleRoutine(ctx, userID, routineID)
	if err != nil {
		return nil, err
	}

	if err := s.routineRepo.SetActive(ctx, routineID, active); err != nil {
		return nil, err
	}
	routine.IsActive = active

	s.logger.Infow("Routine status changed", "routine_id", routineID, "active", active, "user_id", userID)
	s.metrics.RecordEvent(metrics.EventRoutineReplaced)

	return routine, nil
}

// MoveDay reschedules a single routine row onto another day
func (s *RoutineService) MoveDay(ctx context.Context, userID, routineID uuid.UUID, day string) (*entities.Routine, error) {
	d, err := entities.ParseDay(day)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}

	routine, err := s.visibleRoutine(ctx, userID, routineID)
	if err != nil {
		return nil, err
	}
	if routine.Day == d {
		return routine, nil
	}

	if err := s.routineRepo.UpdateDay(ctx, routineID, d); err != nil {
		return nil, err
	}

	s.logger.Infow("Routine moved", "routine_id", routineID, "from", routine.Day, "to", d, "user_id", userID)
	s.metrics.RecordEvent(metrics.EventRoutineReplaced)

	return s.routineRepo.GetByID(ctx, routineID)
}

// visibleRoutine hides rows of tasks the caller cannot see
func (s *RoutineService) visibleRoutine(ctx context.Context, userID, routineID uuid.UUID) (*entities.Routine, error) {
	routine, err := s.routineRepo.GetByID(ctx, routineID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.visibleTask(ctx, routine.TaskID, userID); err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("routine", routineID.String())
		}
		return nil, err
	}
	return routine, nil
}

// ClearTask removes every routine row of a visible task
func (s *RoutineService) ClearTask(ctx context.Context, userID, taskID uuid.UUID) (int64, error) {
	if _, err := s.access.visibleTask(ctx, taskID, userID); err != nil {
		return 0, err
	}

	n, err := s.routineRepo.DeleteByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}

	s.logger.Infow("Routines cleared", "task_id", taskID, "removed", n, "user_id", userID)
	return n, nil
}

func (s *RoutineService) dayOrToday(name string) (entities.Day, error) {
	if strings.TrimSpace(name) == "" {
		return entities.DayOf(s.now().In(s.location)), nil
	}
	day, err := entities.ParseDay(name)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error(), err)
	}
	return day, nil
}

// parseSlots validates and de-duplicates slot names, keeping first-seen order
func parseSlots(names []string) ([]entities.Slot, error) {
	seen := make(map[entities.Slot]bool, len(names))
	slots := make([]entities.Slot, 0, len(names))
	for _, name := range names {
		slot, err := entities.ParseSlot(name)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), err)
		}
		if seen[slot] {
			continue
		}
		seen[slot] = true
		slots = append(slots, slot)
	}
	return slots, nil
}
