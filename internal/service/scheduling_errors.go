package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/lesson-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

// schedulingError maps engine and repository errors onto the API error contract.
// Overlap-only rejections are conflicts; any other rule violation is a validation error.
func schedulingError(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var errs scheduling.ValidationErrors
	if errors.As(err, &errs) {
		if errs.OnlyOverlaps() {
			wrapped := appErrors.Wrap(errs, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, errs[0].Message)
			return appErrors.WithDetails(wrapped, errs)
		}
		wrapped := appErrors.Wrap(errs, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "appointment is invalid")
		return appErrors.WithDetails(wrapped, errs)
	}

	var pre *scheduling.PreconditionError
	if errors.As(err, &pre) {
		return appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, appErrors.ErrPreconditionFailed.Message)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}

	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process appointment")
}

func invalid(field, message string) scheduling.ValidationErrors {
	return scheduling.ValidationErrors{{Field: field, Message: message}}
}
