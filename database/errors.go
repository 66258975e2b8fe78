package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/audiotranscriber/errors"
)

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"driver: bad connection",
		"sql: database is closed",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsRetryableError determines if a database error should trigger a retry.
// sqlite reports lock contention as "database is locked" or "busy".
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectionError(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range []string{"database is locked", "database table is locked", "sqlite_busy"} {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if the error is a duplicate-key violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// FromDatabase converts a database error to an AppError tagged with the
// ledger operation that raised it.
func FromDatabase(err error, operation string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if ae, ok := apperrors.AsAppError(err); ok {
		return ae
	}
	ae := apperrors.DatabaseError(err).WithDetail("operation", operation)
	ae.Retryable = IsRetryableError(err)
	if IsNotFoundError(err) {
		ae.Message = "Dead letter not found."
		ae.HTTPStatus = 404
	}
	return ae
}
