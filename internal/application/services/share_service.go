package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
	"github.com/taskmaster/todo/internal/ports"
)

// ShareService maintains the sharing ledger
type ShareService struct {
	shareRepo ports.ShareRepository
	taskRepo  ports.TaskRepository
	users     *UserService
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewShareService creates a new share service
func NewShareService(shareRepo ports.ShareRepository, taskRepo ports.TaskRepository, users *UserService, logger *logger.Logger, m *metrics.Metrics) *ShareService {
	return &ShareService{
		shareRepo: shareRepo,
		taskRepo:  taskRepo,
		users:     users,
		logger:    logger.WithComponent("shares"),
		metrics:   m,
	}
}

// ShareTask grants recipientUsername visibility of a task owned by sharerID.
// Sharing again with the same recipient returns the existing share.
func (s *ShareService) ShareTask(ctx context.Context, sharerID uuid.UUID, req ports.ShareRequest) (*entities.Share, bool, error) {
	recipient, err := s.users.ResolveUsername(ctx, req.Username)
	if err != nil {
		return nil, false, err
	}

	task, err := s.taskRepo.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, false, err
	}
	if !task.IsOwnedBy(sharerID) {
		s.logger.LogSecurityEvent("share_denied", sharerID.String(), "", map[string]interface{}{
			"task_id": req.TaskID.String(),
		})
		return nil, false, apperrors.NewForbiddenError("share", "task "+req.TaskID.String())
	}
	if recipient.ID == sharerID {
		return nil, false, apperrors.NewValidationError("cannot share a task with yourself", nil)
	}

	share, created, err := s.shareRepo.Create(ctx, &entities.Share{
		TaskID:      task.ID,
		SharedBy:    sharerID,
		RecipientID: recipient.ID,
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.LogUserAction(sharerID.String(), "share_task", map[string]interface{}{
			"task_id":      task.ID.String(),
			"recipient_id": recipient.ID.String(),
		})
		s.metrics.RecordEvent(metrics.EventTaskShared)
	}

	return share, created, nil
}

// ListShared returns what userID shared and what was shared with userID.
// Both sides are keyed on the resolved user id.
func (s *ShareService) ListShared(ctx context.Context, userID uuid.UUID) (*entities.SharedLists, error) {
	shared, err := s.shareRepo.ListSharedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.shareRepo.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &entities.SharedLists{Shared: shared, Received: received}, nil
}
