package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/catrace/backend/internal/core/domain"
)

// wrapErr maps a driver error onto the domain taxonomy, keeping the original
// cause and the operation name as structured context.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		builder := oops.Code(pgErr.Code).With("operation", op).With("constraint", pgErr.ConstraintName)
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return builder.Wrap(fmt.Errorf("%w: %w", domain.ErrConflict, err))
		case pgerrcode.ForeignKeyViolation:
			return builder.Wrap(fmt.Errorf("%w: %w", domain.ErrNotFound, err))
		case pgerrcode.CheckViolation:
			return builder.Wrap(domain.NewValidationError("", "value out of range"))
		}
	}

	return oops.Code("STORAGE_UNAVAILABLE").With("operation", op).Wrap(fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err))
}
