package ports

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
)

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

// Task related types

// RoutineInput selects the slots a task recurs in on one day. An empty slot
// list clears that day; an empty day means today.
type RoutineInput struct {
	Day   string   `json:"day_of_week"`
	Slots []string `json:"slots" validate:"dive,required"`
}

type CreateTaskRequest struct {
	Task        string        `json:"task" validate:"required,max=255"`
	Description string        `json:"description" validate:"max=2000"`
	Important   bool          `json:"important"`
	Date        string        `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        string        `json:"time" validate:"omitempty,datetime=15:04:05"`
	Routine     *RoutineInput `json:"routine,omitempty"`
}

// UpdateTaskRequest is a partial update; nil fields are left unchanged
type UpdateTaskRequest struct {
	Task        *string       `json:"task" validate:"omitempty,max=255"`
	Description *string       `json:"description" validate:"omitempty,max=2000"`
	Important   *bool         `json:"important"`
	Done        *bool         `json:"done"`
	Date        *string       `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        *string       `json:"time" validate:"omitempty,datetime=15:04:05"`
	Routine     *RoutineInput `json:"routine,omitempty"`
}

// Routine related types
type UpsertRoutineRequest struct {
	TaskID uuid.UUID `json:"task_id" validate:"required"`
	RoutineInput
}

type MoveRoutineRequest struct {
	Day string `json:"day_of_week" validate:"required"`
}

type RoutineStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// Share related types
type ShareRequest struct {
	TaskID   uuid.UUID `json:"task_id" validate:"required"`
	Username string    `json:"username" validate:"required"`
}

type ShareResponse struct {
	Share   *entities.Share `json:"share"`
	Created bool            `json:"created"`
}

// Team related types
type CreateTeamRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

type JoinTeamRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AddMemberRequest struct {
	Username string `json:"username" validate:"required"`
}
