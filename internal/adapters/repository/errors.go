package repository

import (
	"database/sql"
	"errors"

	"github.com/taskmaster/todo/internal/infrastructure/database"

	apperrors "github.com/taskmaster/todo/internal/errors"
)

// mapError converts driver errors into the application taxonomy. Missing rows
// become NotFound for resource/id and unique violations become Conflict.
func mapError(err error, op, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return apperrors.NewNotFoundError(resource, id)
	case database.IsUniqueViolation(err):
		return apperrors.NewConflictError(resource, resource+" already exists")
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.NewDatabaseError(op, err)
	}
}
