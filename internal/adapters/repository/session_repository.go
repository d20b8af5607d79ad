package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/ports"
)

// SessionRepositoryImpl implements the SessionRepository interface
type SessionRepositoryImpl struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) ports.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entities.Session) error {
	query := r.db.DB.Rebind(`
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`)

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.DB.ExecContext(ctx, query, session.ID, session.UserID, session.ExpiresAt.UTC(), session.CreatedAt)
	return mapError(err, "create session", "session", session.ID.String())
}

func (r *SessionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Session, error) {
	query := r.db.DB.Rebind(`
		SELECT id, user_id, expires_at, created_at, revoked_at
		FROM sessions
		WHERE id = ?`)

	var session entities.Session
	if err := r.db.DB.GetContext(ctx, &session, query, id); err != nil {
		return nil, mapError(err, "get session", "session", id.String())
	}

	return &session, nil
}

func (r *SessionRepositoryImpl) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := r.db.DB.Rebind(`
		UPDATE sessions SET revoked_at = ?
		WHERE id = ? AND revoked_at IS NULL`)

	result, err := r.db.DB.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return mapError(err, "revoke session", "session", id.String())
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return mapError(err, "revoke session", "session", id.String())
	}
	if rows == 0 {
		return apperrors.NewNotFoundError("session", id.String())
	}

	return nil
}

// DeleteExpired removes sessions that expired or were revoked before now
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := r.db.DB.Rebind(`
		DELETE FROM sessions
		WHERE expires_at < ? OR revoked_at IS NOT NULL`)

	result, err := r.db.DB.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, mapError(err, "delete expired sessions", "session", "")
	}

	return result.RowsAffected()
}
