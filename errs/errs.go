// Package errs defines the typed errors surfaced to HTTP clients.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Error is a domain error that knows its HTTP status
type Error struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so errors.Is(err, errs.ErrNotFound) works for any not-found error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

var (
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "sign-in required")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "access denied")
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "not found")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrStorage      = New("STORAGE_ERROR", http.StatusBadGateway, "storage backend failure")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflicting change, please retry")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

func NotFound(message string) *Error {
	return New(ErrNotFound.Code, ErrNotFound.Status, message)
}

func Validation(message string) *Error {
	return New(ErrValidation.Code, ErrValidation.Status, message)
}

func Forbidden(message string) *Error {
	return New(ErrForbidden.Code, ErrForbidden.Status, message)
}

func Storage(err error, message string) *Error {
	return Wrap(err, ErrStorage.Code, ErrStorage.Status, message)
}

func Conflict(err error, message string) *Error {
	return Wrap(err, ErrConflict.Code, ErrConflict.Status, message)
}

func Internal(err error) *Error {
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// From normalises any error into an *Error
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(err, ErrNotFound.Code, ErrNotFound.Status, ErrNotFound.Message)
	}
	if IsDuplicate(err) {
		return Conflict(err, ErrConflict.Message)
	}
	return Internal(err)
}

// IsDuplicate reports a unique constraint violation. Drivers without error
// translation are matched on their message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
