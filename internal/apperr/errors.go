// Package apperr holds the error types shared by the engine, the repositories
// and the transports. Callers match them with errors.As or the Is helpers.
package apperr

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// TransientError reports a data source failure that may succeed if the
// caller repeats the same request.
type TransientError struct {
	Op    string
	Cause error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: temporarily unavailable: %v", e.Op, e.Cause)
	}
	return e.Op + ": temporarily unavailable"
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

func Transient(op string, cause error) error {
	return &TransientError{Op: op, Cause: cause}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}
