package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/ports"
)

const sharedTaskQuery = `
	SELECT ` + taskColumns + `,
		s.id AS share_id, s.shared_by, sb.username AS shared_by_username,
		s.recipient_id, rc.username AS recipient_username
	FROM shares s
	JOIN tasks t ON t.id = s.task_id
	JOIN users sb ON sb.id = s.shared_by
	JOIN users rc ON rc.id = s.recipient_id`

// ShareRepositoryImpl implements the ShareRepository interface
type ShareRepositoryImpl struct {
	db *database.DB
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *database.DB) ports.ShareRepository {
	return &ShareRepositoryImpl{db: db}
}

func (r *ShareRepositoryImpl) Create(ctx context.Context, share *entities.Share) (*entities.Share, bool, error) {
	insert := r.db.DB.Rebind(`
		INSERT INTO shares (id, task_id, shared_by, recipient_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (task_id, recipient_id) DO NOTHING`)

	if share.ID == uuid.Nil {
		share.ID = uuid.New()
	}
	share.CreatedAt = time.Now().UTC()

	result, err := r.db.DB.ExecContext(ctx, insert, share.ID, share.TaskID, share.SharedBy, share.RecipientID, share.CreatedAt)
	if err != nil {
		return nil, false, mapError(err, "create share", "share", share.TaskID.String())
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, mapError(err, "create share", "share", share.TaskID.String())
	}
	if rows == 1 {
		return share, true, nil
	}

	query := r.db.DB.Rebind(`
		SELECT id, task_id, shared_by, recipient_id, created_at
		FROM shares
		WHERE task_id = ? AND recipient_id = ?`)

	var existing entities.Share
	if err := r.db.DB.GetContext(ctx, &existing, query, share.TaskID, share.RecipientID); err != nil {
		return nil, false, mapError(err, "get share", "share", share.TaskID.String())
	}

	return &existing, false, nil
}

// ListSharedBy returns the shares userID granted, newest first
func (r *ShareRepositoryImpl) ListSharedBy(ctx context.Context, userID uuid.UUID) ([]entities.SharedTask, error) {
	return r.list(ctx, "s.shared_by", userID)
}

// ListReceived returns the shares granted to userID, newest first
func (r *ShareRepositoryImpl) ListReceived(ctx context.Context, userID uuid.UUID) ([]entities.SharedTask, error) {
	return r.list(ctx, "s.recipient_id", userID)
}

func (r *ShareRepositoryImpl) list(ctx context.Context, column string, userID uuid.UUID) ([]entities.SharedTask, error) {
	query := r.db.DB.Rebind(sharedTaskQuery + ` WHERE ` + column + ` = ? ORDER BY s.created_at DESC, s.id`)

	shared := []entities.SharedTask{}
	if err := r.db.DB.SelectContext(ctx, &shared, query, userID); err != nil {
		return nil, mapError(err, "list shares", "share", userID.String())
	}

	return shared, nil
}
