package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/ports"
)

// UserService handles user-related operations
type UserService struct {
	userRepo ports.UserRepository
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, logger *logger.Logger, m *metrics.Metrics) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger.WithComponent("users"),
		metrics:  m,
	}
}

// CreateUser registers a new user. Usernames are unique and case sensitive.
func (s *UserService) CreateUser(ctx context.Context, req ports.RegisterRequest) (*entities.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", nil)
	}
	if req.Password == "" {
		return nil, apperrors.NewValidationError("password is required", nil)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashed,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Infow("User created successfully", "user_id", user.ID, "username", user.Username)
	s.metrics.RecordEvent(metrics.EventUserRegistered)

	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ResolveUsername maps a username to its user
func (s *UserService) ResolveUsername(ctx context.Context, username string) (*entities.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.NewValidationError("username is required", nil)
	}
	return s.userRepo.GetByUsername(ctx, username)
}
