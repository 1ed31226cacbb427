package entities

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures crossing component boundaries
type ErrorKind string

const (
	KindClassificationFailure ErrorKind = "classification_failure"
	KindValidationRejection   ErrorKind = "validation_rejection"
	KindAuthorizationFailure  ErrorKind = "authorization_failure"
	KindExecutionFailure      ErrorKind = "execution_failure"
	KindTransportFailure      ErrorKind = "transport_failure"
)

// Common operation errors
var (
	ErrUnknownOperation    = errors.New("unknown operation")
	ErrOperationNotAllowed = errors.New("operation not allowed")
	ErrConfirmRequired     = errors.New("confirm must be true")
	ErrEmptyFilters        = errors.New("filters must not be empty")
	ErrEmptyData           = errors.New("data must not be empty")
	ErrColumnNotExposed    = errors.New("column not exposed")
	ErrUnknownOperator     = errors.New("unknown filter operator")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrMissingArgument     = errors.New("missing required argument")
	ErrNotAdmin            = errors.New("actor is not an administrator")
	ErrSelfDeletion        = errors.New("actor cannot delete their own account")
	ErrAccountNotFound     = errors.New("account not found")
	ErrThemeExists         = errors.New("theme name already exists")
	ErrUnknownUIAction     = errors.New("unknown ui action")
)

// OperationError is the tagged error carried in results and audit records
type OperationError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// NewOperationError wraps err with a kind
func NewOperationError(kind ErrorKind, err error) *OperationError {
	return &OperationError{Kind: kind, Message: err.Error(), Err: err}
}

// Rejection builds a validation rejection wrapping a sentinel
func Rejection(sentinel error, format string, args ...interface{}) *OperationError {
	return NewOperationError(KindValidationRejection, fmt.Errorf("%w: "+format, append([]interface{}{sentinel}, args...)...))
}

// Error implements error
func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// AsOperationError converts any error into an OperationError, defaulting to kind
func AsOperationError(err error, kind ErrorKind) *OperationError {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr
	}
	return NewOperationError(kind, err)
}

// KindOf classifies an error by the sentinel it wraps
func KindOf(err error) ErrorKind {
	var opErr *OperationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &opErr):
		return opErr.Kind
	case errors.Is(err, ErrNotAdmin), errors.Is(err, ErrSelfDeletion):
		return KindAuthorizationFailure
	case errors.Is(err, ErrUnknownOperation), errors.Is(err, ErrOperationNotAllowed),
		errors.Is(err, ErrConfirmRequired), errors.Is(err, ErrEmptyFilters),
		errors.Is(err, ErrEmptyData), errors.Is(err, ErrColumnNotExposed),
		errors.Is(err, ErrUnknownOperator), errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrMissingArgument), errors.Is(err, ErrThemeExists),
		errors.Is(err, ErrUnknownUIAction), errors.Is(err, ErrAccountNotFound):
		return KindValidationRejection
	default:
		return KindExecutionFailure
	}
}
