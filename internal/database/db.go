package database

import (
	"errors"

	"github.com/BradenHooton/ditto/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the user store cares about
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// MapPostgresError translates driver errors into model sentinels. Unknown
// errors pass through unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return models.ErrConflict
		case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation:
			return models.ErrBadRequest
		}
	}

	return err
}
