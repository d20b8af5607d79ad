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

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := r.db.DB.Rebind(`
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)`)

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.DB.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.NewConflictError("user", "username already taken")
		}
		return mapError(err, "create user", "user", user.Username)
	}

	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := r.db.DB.Rebind(`
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?`)

	var user entities.User
	if err := r.db.DB.GetContext(ctx, &user, query, id); err != nil {
		return nil, mapError(err, "get user by id", "user", id.String())
	}

	return &user, nil
}

func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	query := r.db.DB.Rebind(`
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?`)

	var user entities.User
	if err := r.db.DB.GetContext(ctx, &user, query, username); err != nil {
		return nil, mapError(err, "get user by username", "user", username)
	}

	return &user, nil
}
