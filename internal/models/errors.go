package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure so handlers can map it to a status
// without inspecting message text.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindSelfReference   ErrorKind = "SELF_REFERENCE"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindValidation      ErrorKind = "VALIDATION"
	KindConflict        ErrorKind = "CONFLICT"
)

// AppError is a domain error with a kind. Two AppErrors compare equal under
// errors.Is when their kinds match, so services can return rich messages
// while callers branch on the kind sentinels below.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Kind == appErr.Kind
	}
	return false
}

// Kind sentinels for errors.Is checks.
var (
	ErrUnauthenticated = &AppError{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrForbidden       = &AppError{Kind: KindForbidden, Message: "access denied"}
	ErrSelfReference   = &AppError{Kind: KindSelfReference, Message: "self-reference not allowed"}
	ErrNotFound        = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrValidation      = &AppError{Kind: KindValidation, Message: "invalid input"}
	ErrConflict        = &AppError{Kind: KindConflict, Message: "conflict"}
)

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
	}
}

func NewSelfReferenceError(message string) *AppError {
	return &AppError{
		Kind:    KindSelfReference,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Kind:    KindForbidden,
		Message: message,
	}
}
