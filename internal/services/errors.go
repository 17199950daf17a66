package services

import (
	"errors"
	"fmt"

	"github.com/sjperalta/finops-api/internal/repository"
	"gorm.io/gorm"
)

// Common service errors. Callers match them with errors.Is.
var (
	ErrNotFound             = errors.New("record not found")
	ErrBusinessUnitNotFound = fmt.Errorf("%w: business unit", ErrNotFound)
	ErrPermissionDenied     = errors.New("permission denied")
	ErrUnauthenticated      = errors.New("authentication required")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidState         = errors.New("invalid state transition")
	ErrConflict             = errors.New("conflicting record")
	ErrStorage              = errors.New("storage unavailable")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// translateRepoError maps repository failures onto service error kinds
func translateRepoError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrStorage, what, err)
	}
}

// IsClientError reports whether err should be shown to the caller as-is
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrInvalidCredentials)
}
