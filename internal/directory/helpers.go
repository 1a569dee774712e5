package directory

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// mapDBError translates sqlite errors into domain errors.
func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "record not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "record already exists"}
	}
	return err
}
