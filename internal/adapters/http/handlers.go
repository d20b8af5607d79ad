package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/application/services"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// Context keys set by the auth middleware
const (
	ContextKeyUser   = "user"
	ContextKeyClaims = "claims"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, userService *services.UserService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		logger:      logger,
	}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.RegisterRequest true "Credentials"
// @Success 201 {object} entities.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Log in and receive a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 401 {object} ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		if apperrors.IsErrorType(err, apperrors.ErrorTypeUnauthorized) {
			h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{
				"username": req.Username,
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, response)
}

// Logout godoc
// @Summary Revoke the current session
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Security BearerAuth
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := c.Get(ContextKeyClaims).(*services.Claims)
	if !ok {
		return apperrors.NewUnauthorizedError("missing credentials")
	}

	if err := h.authService.Logout(c.Request().Context(), claims); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} entities.User
// @Security BearerAuth
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.userService.GetUser(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Utility functions and helper types

func getUserIDFromContext(c echo.Context) uuid.UUID {
	userID, ok := c.Get(ContextKeyUser).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.NewValidationError("invalid request format", err)
	}
	if err := c.Validate(req); err != nil {
		return apperrors.NewValidationError(err.Error(), err)
	}
	return nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("invalid "+name+": must be a UUID", err)
	}
	return id, nil
}

// Request/Response types
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
