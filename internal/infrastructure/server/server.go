package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/taskmaster/todo/docs"
	httpHandlers "github.com/taskmaster/todo/internal/adapters/http"
	"github.com/taskmaster/todo/internal/adapters/repository"
	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
)

// Server represents the HTTP server
type Server struct {
	echo    *echo.Echo
	config  *config.Config
	logger  *logger.Logger
	db      *database.DB
	metrics *metrics.Metrics
	auth    *services.AuthService
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type handlers struct {
	auth     *httpHandlers.AuthHandler
	tasks    *httpHandlers.TaskHandler
	routines *httpHandlers.RoutineHandler
	shares   *httpHandlers.ShareHandler
	teams    *httpHandlers.TeamHandler
}

// New creates a new server instance. m may be nil when metrics are disabled.
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger, m *metrics.Metrics) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	location := cfg.App.Location()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	routineRepo := repository.NewRoutineRepository(db)
	shareRepo := repository.NewShareRepository(db)
	teamRepo := repository.NewTeamRepository(db)

	// Initialize services
	userService := services.NewUserService(userRepo, appLogger, m)
	authService := services.NewAuthService(userService, userRepo, sessionRepo, cfg.JWT, appLogger, m)
	routineService := services.NewRoutineService(routineRepo, taskRepo, teamRepo, location, appLogger, m)
	taskService := services.NewTaskService(taskRepo, teamRepo, routineService, location, appLogger, m)
	shareService := services.NewShareService(shareRepo, taskRepo, userService, appLogger, m)
	teamService := services.NewTeamService(teamRepo, taskRepo, userService, appLogger, m)

	// Initialize handlers
	h := handlers{
		auth:     httpHandlers.NewAuthHandler(authService, userService, appLogger),
		tasks:    httpHandlers.NewTaskHandler(taskService),
		routines: httpHandlers.NewRoutineHandler(routineService),
		shares:   httpHandlers.NewShareHandler(shareService),
		teams:    httpHandlers.NewTeamHandler(teamService),
	}

	server := &Server{
		echo:    e,
		config:  cfg,
		logger:  appLogger,
		db:      db,
		metrics: m,
		auth:    authService,
	}

	// Setup metrics first so the middleware sees every request
	if cfg.Metrics.Enabled && m != nil {
		server.setupMetrics()
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes(h)

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h handlers) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	if s.config.Server.SwaggerEnabled {
		s.echo.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := s.echo.Group("/api")

	// Auth routes (public)
	api.POST("/register", h.auth.Register)
	api.POST("/login", h.auth.Login)

	// Everything else requires a live session
	auth := api.Group("", s.authMiddleware(s.auth))
	auth.POST("/logout", h.auth.Logout)
	auth.GET("/me", h.auth.Me)

	// Personal tasks
	auth.GET("/todos", h.tasks.ListTasks)
	auth.POST("/todo", h.tasks.CreateTask)
	auth.PUT("/todo/:id", h.tasks.UpdateTask)
	auth.PUT("/todo/done/:id", h.tasks.MarkDone)
	auth.PUT("/todo/undo/:id", h.tasks.UndoTask)
	auth.DELETE("/todo/:id", h.tasks.DeleteTask)

	// Routines
	auth.POST("/routine", h.routines.UpsertRoutine)
	auth.GET("/routine/day/:day/:slot", h.routines.GetDailyRoutines)
	auth.GET("/routine/today/:slot", h.routines.GetTodayRoutines)
	auth.GET("/routine/task/:id", h.routines.GetTaskRoutines)
	auth.DELETE("/routine/task/:id", h.routines.DeleteTaskRoutines)
	auth.PUT("/routine/:id", h.routines.MoveRoutine)
	auth.PUT("/routine/:id/status", h.routines.UpdateRoutineStatus)

	// Sharing
	auth.POST("/share", h.shares.ShareTask)
	auth.GET("/shared", h.shares.ListShared)

	// Teams
	auth.POST("/team", h.teams.CreateTeam)
	auth.POST("/team/join", h.teams.JoinTeam)
	auth.GET("/teams", h.teams.ListTeams)
	auth.GET("/team/:id", h.teams.GetTeam)
	auth.GET("/team/:id/members", h.teams.ListMembers)
	auth.POST("/team/:id/member", h.teams.AddMember)
	auth.DELETE("/team/:id/member/:userId", h.teams.RemoveMember)
	auth.GET("/team/:id/todos", h.tasks.ListTeamTasks)
	auth.POST("/team/:id/todo", h.tasks.CreateTeamTask)
	auth.PUT("/team/:id/todo/:todoId", h.tasks.UpdateTeamTask)
	auth.PUT("/team/:id/todo/undo/:todoId", h.tasks.UndoTeamTask)
	auth.DELETE("/team/:id/todo/:todoId", h.tasks.DeleteTeamTask)
}

// setupMetrics installs the request instrumentation and the scrape endpoint
func (s *Server) setupMetrics() {
	s.echo.Use(s.metrics.Middleware())
	s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.db.HealthCheck(); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for in-process tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Auth returns the auth service the background session janitor purges through
func (s *Server) Auth() *services.AuthService {
	return s.auth
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)

	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}
