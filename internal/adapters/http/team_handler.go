package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/ports"
)

// TeamHandler handles team and membership requests
type TeamHandler struct {
	teamService *services.TeamService
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// CreateTeam godoc
// @Summary Create a team; the caller becomes its admin
// @Tags teams
// @Accept json
// @Produce json
// @Param request body ports.CreateTeamRequest true "Team name and password"
// @Success 201 {object} entities.Team
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /team [post]
func (h *TeamHandler) CreateTeam(c echo.Context) error {
	var req ports.CreateTeamRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	team, err := h.teamService.CreateTeam(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, team)
}

// JoinTeam godoc
// @Summary Join a team by name and password
// @Tags teams
// @Accept json
// @Produce json
// @Param request body ports.JoinTeamRequest true "Team name and password"
// @Success 200 {object} entities.Team
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /team/join [post]
func (h *TeamHandler) JoinTeam(c echo.Context) error {
	var req ports.JoinTeamRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	team, err := h.teamService.JoinTeam(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, team)
}

// ListTeams godoc
// @Summary Teams the caller belongs to
// @Tags teams
// @Produce json
// @Success 200 {array} entities.Team
// @Security BearerAuth
// @Router /teams [get]
func (h *TeamHandler) ListTeams(c echo.Context) error {
	teams, err := h.teamService.ListTeams(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, teams)
}

// GetTeam godoc
// @Summary Team detail with its tasks
// @Tags teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {object} entities.TeamDetail
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /team/{id} [get]
func (h *TeamHandler) GetTeam(c echo.Context) error {
	teamID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	detail, err := h.teamService.GetTeam(c.Request().Context(), teamID, getUserIDFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, detail)
}

// ListMembers godoc
// @Summary Members of a team
// @Tags teams
// @Produce json
// @Param id path string true "Team ID"
// @Success 200 {array} entities.TeamMember
// @Security BearerAuth
// @Router /team/{id}/members [get]
func (h *TeamHandler) ListMembers(c echo.Context) error {
	teamID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	members, err := h.teamService.ListMembers(c.Request().Context(), teamID, getUserIDFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, members)
}

// AddMember godoc
// @Summary Add a member by username (admins only)
// @Tags teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param request body ports.AddMemberRequest true "Username"
// @Success 201 {object} entities.TeamMember
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /team/{id}/member [post]
func (h *TeamHandler) AddMember(c echo.Context) error {
	teamID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.AddMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	member, err := h.teamService.AddMember(c.Request().Context(), teamID, getUserIDFromContext(c), req.Username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, member)
}

// RemoveMember removes a member (admins only)
func (h *TeamHandler) RemoveMember(c echo.Context) error {
	teamID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	memberID, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}

	if err := h.teamService.RemoveMember(c.Request().Context(), teamID, getUserIDFromContext(c), memberID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Member removed"})
}
