package services

import (
	"errors"

	apperrors "github.com/SDARS-2025/discipline-service/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Authentication errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role; allowed roles: user, admin, security")
	ErrPasswordMismatch   = errors.New("new password and confirmation do not match")
	ErrWrongPassword      = errors.New("current password is incorrect")

	// Email confirmation outcomes. AlreadyConfirmed is deliberately
	// distinct from Invalid so a retried link click is not reported as
	// a forged token.
	ErrEmailNotConfirmed    = errors.New("email address not confirmed; confirm your email first")
	ErrAlreadyConfirmed     = errors.New("email address already confirmed")
	ErrConfirmationInvalid  = errors.New("confirmation token is invalid")
	ErrConfirmationExpired  = errors.New("confirmation token has expired")
	ErrConfirmationRequired = errors.New("confirmation token is required")

	// Record lifecycle errors
	ErrRecordNotFound       = errors.New("record not found")
	ErrRecordAlreadyDeleted = errors.New("record is already deleted")
	ErrRecordNotDeleted     = errors.New("record is not deleted")
)

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

// ===== ERROR CLASSIFIERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrWrongPassword) ||
		errors.Is(err, ErrEmailNotConfirmed)
}

// IsForbidden checks if error represents a role failure
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflict checks if error represents a resource conflict or an
// invalid state transition
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrRecordAlreadyDeleted) ||
		errors.Is(err, ErrRecordNotDeleted) ||
		errors.Is(err, ErrAlreadyConfirmed)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrConfirmationRequired) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}
