package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/ports"
)

// ShareHandler handles the sharing ledger endpoints
type ShareHandler struct {
	shareService *services.ShareService
}

// NewShareHandler creates a new share handler
func NewShareHandler(shareService *services.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

// ShareTask godoc
// @Summary Share a task with another user
// @Description Returns 201 for a new share and 200 when the recipient already had it
// @Tags shares
// @Accept json
// @Produce json
// @Param request body ports.ShareRequest true "Task and recipient username"
// @Success 201 {object} ports.ShareResponse
// @Success 200 {object} ports.ShareResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /share [post]
func (h *ShareHandler) ShareTask(c echo.Context) error {
	var req ports.ShareRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	share, created, err := h.shareService.ShareTask(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, ports.ShareResponse{Share: share, Created: created})
}

// ListShared godoc
// @Summary Tasks the caller shared and tasks shared with the caller
// @Tags shares
// @Produce json
// @Success 200 {object} entities.SharedLists
// @Security BearerAuth
// @Router /shared [get]
func (h *ShareHandler) ListShared(c echo.Context) error {
	lists, err := h.shareService.ListShared(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lists)
}
