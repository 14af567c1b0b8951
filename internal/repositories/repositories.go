// package repositories provides persistence layer implementations for the persistent models.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/hitqr/internal/shared"
)

// rowScanner is satisfied by [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// notFound maps [sql.ErrNoRows] to [shared.ErrRecordNotFound].
func notFound(err error, kind, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", shared.ErrRecordNotFound, kind, key)
	}
	return fmt.Errorf("failed to query %s: %w", kind, err)
}

// expectAffected returns [shared.ErrRecordNotFound] when result touched no rows.
func expectAffected(result sql.Result, kind, key string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", shared.ErrRecordNotFound, kind, key)
	}
	return nil
}
