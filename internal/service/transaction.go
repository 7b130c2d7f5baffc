package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/pkg/database"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

// lookupError maps a repository read failure to NotFound when the row is
// missing or the id could not name a row at all.
func lookupError(err error, notFound, failed string) error {
	if errors.Is(err, sql.ErrNoRows) || database.InvalidTextRepresentation(err) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return internalError(err, failed)
}
