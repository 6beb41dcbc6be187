package repository

import (
	"errors"
	"net/http"

	apperrors "factorymanager.io/manager/internal/pkg/errors"
)

// AppError maps a store error onto the service error taxonomy.
// notFound builds the entity-specific 404; nil errors pass through.
func AppError(err error, notFound func() *apperrors.AppError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound) && notFound != nil:
		return notFound()
	case errors.Is(err, ErrUnavailable):
		return apperrors.ErrStoreUnavailable(err)
	}
	if _, ok := apperrors.IsAppError(err); ok {
		return err
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, "store operation failed", http.StatusInternalServerError)
}
