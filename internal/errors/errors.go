// Package errors provides error code definitions for the Reflecta core.
package errors

import "fmt"

// ErrorCode represents a unique error code.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrDuplicate  ErrorCode = "DUPLICATE"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Journal errors
	ErrJournal         ErrorCode = "JOURNAL_ERROR"
	ErrJournalNotFound ErrorCode = "JOURNAL_ENTRY_NOT_FOUND"
	ErrJournalWrite    ErrorCode = "JOURNAL_WRITE_FAILED"

	// Store errors
	ErrReflectionNotFound ErrorCode = "REFLECTION_NOT_FOUND"

	// Wire errors
	ErrWireDecode         ErrorCode = "WIRE_DECODE_FAILED"
	ErrWireUnknownCommand ErrorCode = "WIRE_UNKNOWN_COMMAND"
	ErrWirePayload        ErrorCode = "WIRE_PAYLOAD_INVALID"

	// Session errors
	ErrSessionState  ErrorCode = "SESSION_INVALID_STATE"
	ErrSessionClosed ErrorCode = "SESSION_CLOSED"
	ErrTubeFailed    ErrorCode = "TUBE_FAILED"

	// Media errors
	ErrPictureNotFound ErrorCode = "PICTURE_NOT_FOUND"
	ErrPictureDecode   ErrorCode = "PICTURE_DECODE_FAILED"

	// State / export errors
	ErrStateCorrupt ErrorCode = "STATE_CORRUPT"
	ErrExportFailed ErrorCode = "EXPORT_FAILED"
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
