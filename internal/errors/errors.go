// Package errors provides error code definitions for Go-Dart boundary bridging.
package errors

import "fmt"

// ErrorCode represents a unique error code that can be bridged to Dart.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrDuplicate  ErrorCode = "DUPLICATE"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Database errors
	ErrDatabase   ErrorCode = "DATABASE_ERROR"
	ErrMigration  ErrorCode = "MIGRATION_FAILED"
	ErrConstraint ErrorCode = "CONSTRAINT_VIOLATION"
	ErrTxFailed   ErrorCode = "TRANSACTION_FAILED"

	// Domain errors
	ErrFolderNotFound  ErrorCode = "FOLDER_NOT_FOUND"
	ErrRoutineNotFound ErrorCode = "ROUTINE_NOT_FOUND"
	ErrSessionInvalid  ErrorCode = "SESSION_INVALID"
	ErrMacroNotFound   ErrorCode = "MACRO_NOT_FOUND"

	// Sync errors
	ErrSyncFailed       ErrorCode = "SYNC_FAILED"
	ErrSyncTimeout      ErrorCode = "SYNC_TIMEOUT"
	ErrSyncOffline      ErrorCode = "SYNC_OFFLINE"
	ErrSyncRejected     ErrorCode = "SYNC_REJECTED"
	ErrSyncDrainHalted  ErrorCode = "SYNC_DRAIN_HALTED"
	ErrSyncDeadLettered ErrorCode = "SYNC_DEAD_LETTERED"

	// Queue errors. ErrQueuePersist is the most severe recoverable case:
	// the mutation could not be written to durable storage, so the
	// at-least-once guarantee is broken for that mutation.
	ErrQueuePersist  ErrorCode = "QUEUE_PERSIST_FAILED"
	ErrQueueNotFound ErrorCode = "QUEUE_ENTRY_NOT_FOUND"

	// Connectivity errors
	ErrConnectivityCheck ErrorCode = "CONNECTIVITY_CHECK_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or ErrInternal if err carries none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternal
}
