package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
}

// SessionRepository stores the server side of issued bearer tokens
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Session, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error)
	// GetVisible returns the task if userID owns it or is a member of its team.
	GetVisible(ctx context.Context, id, userID uuid.UUID) (*entities.Task, error)
	List(ctx context.Context, scope entities.Scope) ([]entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	SetDone(ctx context.Context, id uuid.UUID, done bool) error
	// Delete removes the task together with its routines and shares.
	Delete(ctx context.Context, id uuid.UUID) error
}

// RoutineRepository defines the interface for routine data operations
type RoutineRepository interface {
	// ReplaceDay makes slots the exact active set for (taskID, day).
	ReplaceDay(ctx context.Context, taskID uuid.UUID, day entities.Day, slots []entities.Slot) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]entities.Routine, error)
	ListActive(ctx context.Context, userID uuid.UUID, day entities.Day, slot entities.Slot) ([]entities.ScheduledTask, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Routine, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateDay(ctx context.Context, id uuid.UUID, day entities.Day) error
	DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error)
}

// ShareRepository defines the interface for the sharing ledger
type ShareRepository interface {
	// Create inserts the share unless one already exists for (task, recipient).
	// It reports whether a new row was written and returns the stored share.
	Create(ctx context.Context, share *entities.Share) (*entities.Share, bool, error)
	ListSharedBy(ctx context.Context, userID uuid.UUID) ([]entities.SharedTask, error)
	ListReceived(ctx context.Context, userID uuid.UUID) ([]entities.SharedTask, error)
}

// TeamRepository defines the interface for team data operations
type TeamRepository interface {
	// Create inserts the team and its creator as the first admin.
	Create(ctx context.Context, team *entities.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Team, error)
	GetByName(ctx context.Context, name string) (*entities.Team, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]entities.Team, error)
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*entities.TeamMember, error)
	AddMember(ctx context.Context, member *entities.TeamMember) error
	// RemoveMember fails with Conflict when userID is the team's last admin.
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]entities.TeamMember, error)
}
