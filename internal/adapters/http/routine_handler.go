package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/ports"
)

// RoutineHandler handles routine-related requests
type RoutineHandler struct {
	routineService *services.RoutineService
}

// NewRoutineHandler creates a new routine handler
func NewRoutineHandler(routineService *services.RoutineService) *RoutineHandler {
	return &RoutineHandler{routineService: routineService}
}

// UpsertRoutine godoc
// @Summary Replace the active slots of a task on one day
// @Tags routines
// @Accept json
// @Produce json
// @Param request body ports.UpsertRoutineRequest true "Task, day and slots"
// @Success 200 {array} entities.Routine
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /routine [post]
func (h *RoutineHandler) UpsertRoutine(c echo.Context) error {
	var req ports.UpsertRoutineRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	routines, err := h.routineService.Upsert(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, routines)
}

// GetDailyRoutines godoc
// @Summary Tasks active on a day in a slot
// @Tags routines
// @Produce json
// @Param day path string true "sunday..saturday"
// @Param slot path string true "morning, noon, evening or night"
// @Success 200 {array} entities.ScheduledTask
// @Security BearerAuth
// @Router /routine/day/{day}/{slot} [get]
func (h *RoutineHandler) GetDailyRoutines(c echo.Context) error {
	scheduled, err := h.routineService.TasksFor(c.Request().Context(), getUserIDFromContext(c), c.Param("day"), c.Param("slot"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scheduled)
}

// GetTodayRoutines returns tasks active today in a slot
func (h *RoutineHandler) GetTodayRoutines(c echo.Context) error {
	scheduled, err := h.routineService.TasksForToday(c.Request().Context(), getUserIDFromContext(c), c.Param("slot"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scheduled)
}

// GetTaskRoutines godoc
// @Summary Routine rows of a task
// @Tags routines
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {array} entities.Routine
// @Security BearerAuth
// @Router /routine/task/{id} [get]
func (h *RoutineHandler) GetTaskRoutines(c echo.Context) error {
	taskID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	routines, err := h.routineService.ListForTask(c.Request().Context(), getUserIDFromContext(c), taskID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, routines)
}

// UpdateRoutineStatus activates or deactivates one routine row
func (h *RoutineHandler) UpdateRoutineStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.RoutineStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	routine, err := h.routineService.SetStatus(c.Request().Context(), getUserIDFromContext(c), id, *req.IsActive)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, routine)
}

// MoveRoutine godoc
// @Summary Move one routine row to another day
// @Tags routines
// @Accept json
// @Produce json
// @Param id path string true "Routine ID"
// @Param request body ports.MoveRoutineRequest true "Target day"
// @Success 200 {object} entities.Routine
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /routine/{id} [put]
func (h *RoutineHandler) MoveRoutine(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.MoveRoutineRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	routine, err := h.routineService.MoveDay(c.Request().Context(), getUserIDFromContext(c), id, req.Day)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, routine)
}

// DeleteTaskRoutines clears every routine row of a task
func (h *RoutineHandler) DeleteTaskRoutines(c echo.Context) error {
	taskID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.routineService.ClearTask(c.Request().Context(), getUserIDFromContext(c), taskID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Routines deleted"})
}
