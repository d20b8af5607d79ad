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
	taskColumns = `t.id, t.owner_id, t.team_id, t.task, t.description, t.important, t.done,
		t.date, t.time, t.created_at, t.updated_at`

	taskOrder = `ORDER BY t.date, t.time, t.created_at, t.id`

	// visibleTo restricts t to tasks the bound user owns or reaches through a team.
	visibleTo = `(t.owner_id = ? OR t.team_id IN (SELECT team_id FROM team_members WHERE user_id = ?))`
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := r.db.DB.Rebind(`
		INSERT INTO tasks (id, owner_id, team_id, task, description, important, done,
			date, time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.db.DB.ExecContext(ctx, query,
		task.ID, task.OwnerID, task.TeamID, task.Task, task.Description,
		task.Important, task.Done, task.Date, task.Time, task.CreatedAt, task.UpdatedAt,
	)
	return mapError(err, "create task", "task", task.ID.String())
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	query := r.db.DB.Rebind(`SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ?`)

	var task entities.Task
	if err := r.db.DB.GetContext(ctx, &task, query, id); err != nil {
		return nil, mapError(err, "get task", "task", id.String())
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) GetVisible(ctx context.Context, id, userID uuid.UUID) (*entities.Task, error) {
	query := r.db.DB.Rebind(`SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ? AND ` + visibleTo)

	var task entities.Task
	if err := r.db.DB.GetContext(ctx, &task, query, id, userID, userID); err != nil {
		return nil, mapError(err, "get visible task", "task", id.String())
	}

	return &task, nil
}

// List returns the tasks of a personal or team scope. Team membership is the
// caller's concern.
func (r *TaskRepositoryImpl) List(ctx context.Context, scope entities.Scope) ([]entities.Task, error) {
	var (
		query string
		arg   uuid.UUID
	)
	if scope.IsTeam() {
		query = `SELECT ` + taskColumns + ` FROM tasks t WHERE t.team_id = ? ` + taskOrder
		arg = *scope.TeamID
	} else {
		query = `SELECT ` + taskColumns + ` FROM tasks t WHERE t.owner_id = ? ` + taskOrder
		arg = scope.UserID
	}

	tasks := []entities.Task{}
	if err := r.db.DB.SelectContext(ctx, &tasks, r.db.DB.Rebind(query), arg); err != nil {
		return nil, mapError(err, "list tasks", "task", scope.String())
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := r.db.DB.Rebind(`
		UPDATE tasks
		SET task = ?, description = ?, important = ?, done = ?, date = ?, time = ?, updated_at = ?
		WHERE id = ?`)

	task.UpdatedAt = time.Now().UTC()
	result, err := r.db.DB.ExecContext(ctx, query,
		task.Task, task.Description, task.Important, task.Done, task.Date, task.Time,
		task.UpdatedAt, task.ID,
	)
	return expectRow(result, err, "update task", "task", task.ID)
}

func (r *TaskRepositoryImpl) SetDone(ctx context.Context, id uuid.UUID, done bool) error {
	query := r.db.DB.Rebind(`UPDATE tasks SET done = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.DB.ExecContext(ctx, query, done, time.Now().UTC(), id)
	return expectRow(result, err, "set task done", "task", id)
}

// Delete removes the task and everything hanging off it in one transaction
func (r *TaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM routines WHERE task_id = ?`), id); err != nil {
			return mapError(err, "delete task routines", "routine", id.String())
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM shares WHERE task_id = ?`), id); err != nil {
			return mapError(err, "delete task shares", "share", id.String())
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM tasks WHERE id = ?`), id)
		return expectRow(result, err, "delete task", "task", id)
	})
}

type rowsResult interface {
	RowsAffected() (int64, error)
}

// expectRow turns a write that touched no rows into NotFound
func expectRow(result rowsResult, err error, op, resource string, id uuid.UUID) error {
	if err != nil {
		return mapError(err, op, resource, id.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err, op, resource, id.String())
	}
	if rows == 0 {
		return apperrors.NewNotFoundError(resource, id.String())
	}
	return nil
}
