package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/filter"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/ports"
)

// TaskHandler serves personal and team task lists. Team routes carry the
// team id in :id and the task id in :todoId.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func personalScope(c echo.Context) entities.Scope {
	return entities.PersonalScope(getUserIDFromContext(c))
}

func teamScope(c echo.Context) (entities.Scope, error) {
	teamID, err := uuidParam(c, "id")
	if err != nil {
		return entities.Scope{}, err
	}
	return entities.TeamScope(getUserIDFromContext(c), teamID), nil
}

// ListTasks godoc
// @Summary List personal tasks
// @Tags todos
// @Produce json
// @Param filter query string false "all, today, important, completed or incomplete"
// @Success 200 {array} entities.Task
// @Security BearerAuth
// @Router /todos [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	return h.list(c, personalScope(c))
}

// ListTeamTasks lists the tasks of a team the caller belongs to
func (h *TaskHandler) ListTeamTasks(c echo.Context) error {
	scope, err := teamScope(c)
	if err != nil {
		return err
	}
	return h.list(c, scope)
}

func (h *TaskHandler) list(c echo.Context, scope entities.Scope) error {
	mode, err := filter.ParseMode(c.QueryParam("filter"))
	if err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), scope, mode)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary Create a personal task
// @Tags todos
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /todo [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	return h.create(c, personalScope(c))
}

// CreateTeamTask godoc
// @Summary Create a team task
// @Tags teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} entities.Task
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /team/{id}/todo [post]
func (h *TaskHandler) CreateTeamTask(c echo.Context) error {
	scope, err := teamScope(c)
	if err != nil {
		return err
	}
	return h.create(c, scope)
}

func (h *TaskHandler) create(c echo.Context, scope entities.Scope) error {
	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), scope, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, task)
}

// UpdateTask godoc
// @Summary Partially update a personal task
// @Tags todos
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Fields to change"
// @Success 200 {object} entities.Task
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /todo/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	return h.update(c, personalScope(c), "id")
}

// UpdateTeamTask partially updates a team task
func (h *TaskHandler) UpdateTeamTask(c echo.Context) error {
	scope, err := teamScope(c)
	if err != nil {
		return err
	}
	return h.update(c, scope, "todoId")
}

func (h *TaskHandler) update(c echo.Context, scope entities.Scope, param string) error {
	id, err := uuidParam(c, param)
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), scope, id, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

// MarkDone sets done=true on a personal task
func (h *TaskHandler) MarkDone(c echo.Context) error {
	return h.setDone(c, personalScope(c), "id", true)
}

// UndoTask godoc
// @Summary Mark a personal task as not done
// @Tags todos
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} entities.Task
// @Security BearerAuth
// @Router /todo/undo/{id} [put]
func (h *TaskHandler) UndoTask(c echo.Context) error {
	return h.setDone(c, personalScope(c), "id", false)
}

// UndoTeamTask sets done=false on a team task
func (h *TaskHandler) UndoTeamTask(c echo.Context) error {
	scope, err := teamScope(c)
	if err != nil {
		return err
	}
	return h.setDone(c, scope, "todoId", false)
}

func (h *TaskHandler) setDone(c echo.Context, scope entities.Scope, param string, done bool) error {
	id, err := uuidParam(c, param)
	if err != nil {
		return err
	}

	task, err := h.taskService.SetDone(c.Request().Context(), scope, id, done)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a personal task with its routines and shares
// @Tags todos
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /todo/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	return h.delete(c, personalScope(c), "id")
}

// DeleteTeamTask deletes a team task
func (h *TaskHandler) DeleteTeamTask(c echo.Context) error {
	scope, err := teamScope(c)
	if err != nil {
		return err
	}
	return h.delete(c, scope, "todoId")
}

func (h *TaskHandler) delete(c echo.Context, scope entities.Scope, param string) error {
	id, err := uuidParam(c, param)
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), scope, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}
