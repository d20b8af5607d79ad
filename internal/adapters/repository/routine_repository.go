package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/ports"
)

const routineColumns = `id, task_id, day_of_week, schedule_type, is_active, created_at, updated_at`

// RoutineRepositoryImpl implements the RoutineRepository interface
type RoutineRepositoryImpl struct {
	db *database.DB
}

// NewRoutineRepository creates a new routine repository
func NewRoutineRepository(db *database.DB) ports.RoutineRepository {
	return &RoutineRepositoryImpl{db: db}
}

// ReplaceDay runs as one transaction. Touching the task row first serializes
// concurrent replaces for the same task, so the last commit's slot set wins.
func (r *RoutineRepositoryImpl) ReplaceDay(ctx context.Context, taskID uuid.UUID, day entities.Day, slots []entities.Slot) error {
	now := time.Now().UTC()

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE tasks SET updated_at = ? WHERE id = ?`), now, taskID)
		if err := expectRow(result, err, "lock task", "task", taskID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE routines SET is_active = ?, updated_at = ?
			WHERE task_id = ? AND day_of_week = ? AND is_active = ?`),
			false, now, taskID, string(day), true)
		if err != nil {
			return mapError(err, "deactivate routines", "routine", taskID.String())
		}

		upsert := tx.Rebind(`
			INSERT INTO routines (` + routineColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (task_id, day_of_week, schedule_type)
			DO UPDATE SET is_active = excluded.is_active, updated_at = excluded.updated_at`)

		for _, slot := range slots {
			if _, err := tx.ExecContext(ctx, upsert, uuid.New(), taskID, string(day), string(slot), true, now, now); err != nil {
				return mapError(err, "upsert routine", "routine", taskID.String())
			}
		}

		return nil
	})
}

// ListByTask returns every routine row of a task, active or not, in week and
// slot order
func (r *RoutineRepositoryImpl) ListByTask(ctx context.Context, taskID uuid.UUID) ([]entities.Routine, error) {
	query := r.db.DB.Rebind(`SELECT ` + routineColumns + ` FROM routines WHERE task_id = ?`)

	routines := []entities.Routine{}
	if err := r.db.DB.SelectContext(ctx, &routines, query, taskID); err != nil {
		return nil, mapError(err, "list routines", "routine", taskID.String())
	}

	sort.SliceStable(routines, func(i, j int) bool {
		a, b := routines[i], routines[j]
		if a.Day != b.Day {
			return a.Day.Index() < b.Day.Index()
		}
		return a.Slot.Index() < b.Slot.Index()
	})

	return routines, nil
}

// ListActive returns the tasks visible to userID that are active in (day, slot)
func (r *RoutineRepositoryImpl) ListActive(ctx context.Context, userID uuid.UUID, day entities.Day, slot entities.Slot) ([]entities.ScheduledTask, error) {
	query := r.db.DB.Rebind(`
		SELECT ` + taskColumns + `, r.day_of_week, r.schedule_type
		FROM routines r
		JOIN tasks t ON t.id = r.task_id
		WHERE r.day_of_week = ? AND r.schedule_type = ? AND r.is_active = ? AND ` + visibleTo + `
		` + taskOrder)

	scheduled := []entities.ScheduledTask{}
	if err := r.db.DB.SelectContext(ctx, &scheduled, query, string(day), string(slot), true, userID, userID); err != nil {
		return nil, mapError(err, "list scheduled tasks", "routine", string(day)+"/"+string(slot))
	}

	return scheduled, nil
}

func (r *RoutineRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Routine, error) {
	query := r.db.DB.Rebind(`SELECT ` + routineColumns + ` FROM routines WHERE id = ?`)

	var routine entities.Routine
	if err := r.db.DB.GetContext(ctx, &routine, query, id); err != nil {
		return nil, mapError(err, "get routine", "routine", id.String())
	}

	return &routine, nil
}

func (r *RoutineRepositoryImpl) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := r.db.DB.Rebind(`UPDATE routines SET is_active = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.DB.ExecContext(ctx, query, active, time.Now().UTC(), id)
	return expectRow(result, err, "set routine status", "routine", id)
}

// UpdateDay moves a routine row to another day, keeping its slot. A row for
// the same task and slot already on that day, active or not, is a Conflict.
func (r *RoutineRepositoryImpl) UpdateDay(ctx context.Context, id uuid.UUID, day entities.Day) error {
	query := r.db.DB.Rebind(`UPDATE routines SET day_of_week = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.DB.ExecContext(ctx, query, string(day), time.Now().UTC(), id)
	if database.IsUniqueViolation(err) {
		return apperrors.NewConflictError("routine", "task is already scheduled in that slot on "+string(day))
	}
	return expectRow(result, err, "move routine", "routine", id)
}

func (r *RoutineRepositoryImpl) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	query := r.db.DB.Rebind(`DELETE FROM routines WHERE task_id = ?`)

	result, err := r.db.DB.ExecContext(ctx, query, taskID)
	if err != nil {
		return 0, mapError(err, "delete routines", "routine", taskID.String())
	}

	return result.RowsAffected()
}
