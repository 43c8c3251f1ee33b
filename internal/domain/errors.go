package domain

import (
	"errors"
	"fmt"

	apperrors "github.com/utafrali/partsquote/pkg/errors"
)

var (
	// ErrInvalidSelection means a product was added without a usable size
	// or quantity.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrInvalidItem means a quote line violates its structural invariants.
	ErrInvalidItem = errors.New("invalid quote item")

	// ErrSubmissionFailed means the quote intake endpoint did not accept
	// the quote. The cart is left untouched.
	ErrSubmissionFailed = errors.New("quote submission failed")

	// ErrRehydration means a persisted cart could not be decoded.
	ErrRehydration = errors.New("persisted cart is corrupt")
)

// InvalidSelection returns a 422 error for a rejected size or quantity.
func InvalidSelection(format string, args ...any) *apperrors.AppError {
	return apperrors.Unprocessable("INVALID_SELECTION", fmt.Sprintf(format, args...), ErrInvalidSelection)
}

// SubmissionFailure returns a 502 error wrapping the intake failure.
func SubmissionFailure(err error) *apperrors.AppError {
	return apperrors.BadGateway(
		"SUBMISSION_FAILED",
		"the quote could not be submitted, your cart has been kept so you can retry",
		fmt.Errorf("%w: %w", ErrSubmissionFailed, err),
	)
}

// SubmissionInProgress returns a 409 error for a duplicate concurrent submit.
func SubmissionInProgress() *apperrors.AppError {
	return apperrors.Conflict("SUBMISSION_IN_PROGRESS", "a quote submission for this session is already in progress")
}
