package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/critiquelabs/critique/pkg/api"
)

// Postgres error codes translated to domain errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// translateError maps driver-level errors onto the domain taxonomy so raw
// storage errors never leak to handlers. A unique violation is the
// authoritative conflict signal regardless of any read-before-write check.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return api.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return api.ErrConflict
		case pqForeignKeyViolation:
			return api.ErrNotFound
		case pqCheckViolation:
			return fmt.Errorf("%s: constraint %s violated: %w", op, pqErr.Constraint, api.ErrConflict)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// errorClass labels a translated error for the storage error counter.
func errorClass(err error) string {
	switch {
	case errors.Is(err, api.ErrNotFound):
		return "not_found"
	case errors.Is(err, api.ErrConflict):
		return "conflict"
	case errors.Is(err, api.ErrBadReference):
		return "bad_reference"
	}
	return "internal"
}
