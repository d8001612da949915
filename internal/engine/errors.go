package engine

import (
	"errors"
	"fmt"
)

// SimError represents a failed engine command.
//
// NotFound and InvalidArgument leave state untouched. NameConflict also
// appends an error event to the log before it is returned.
type SimError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced exchange, queue or consumer
	// does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeNameConflict indicates a create or rename would duplicate a
	// name within its kind.
	ErrCodeNameConflict ErrorCode = "NAME_CONFLICT"

	// ErrCodeInvalidArgument indicates malformed input (empty name, unknown
	// exchange type, unreadable document).
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeInvalidState indicates the command is not valid right now.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error implements the error interface.
func (e *SimError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsNameConflict returns true if the error is a name conflict.
func IsNameConflict(err error) bool { return hasCode(err, ErrCodeNameConflict) }

// IsInvalidArgument returns true if the error is an invalid-argument error.
func IsInvalidArgument(err error) bool { return hasCode(err, ErrCodeInvalidArgument) }

// IsInvalidState returns true if the error is an invalid-state error.
func IsInvalidState(err error) bool { return hasCode(err, ErrCodeInvalidState) }

// NewNotFoundError creates a SimError for a missing entity.
func NewNotFoundError(kind, id string) *SimError {
	return &SimError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", kind, id),
		Details: map[string]string{"kind": kind, "id": id},
	}
}

// NewNameConflictError creates a SimError for a duplicate name.
func NewNameConflictError(kind, name string) *SimError {
	return &SimError{
		Code:    ErrCodeNameConflict,
		Message: fmt.Sprintf("%s name %q already exists", kind, name),
		Details: map[string]string{"kind": kind, "name": name},
	}
}

// NewInvalidArgumentError creates a SimError for malformed input.
func NewInvalidArgumentError(format string, args ...any) *SimError {
	return &SimError{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewInvalidStateError creates a SimError for a command issued at the wrong time.
func NewInvalidStateError(format string, args ...any) *SimError {
	return &SimError{
		Code:    ErrCodeInvalidState,
		Message: fmt.Sprintf(format, args...),
	}
}
