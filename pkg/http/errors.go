package http

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in AppError.Code.
const (
	CodeBadRequest    = "ERR_BAD_REQUEST"
	CodeNotFound      = "ERR_NOT_FOUND"
	CodeUnprocessable = "ERR_UNPROCESSABLE"
	CodeUnavailable   = "ERR_UNAVAILABLE"
	CodeInternal      = "ERR_INTERNAL"
)

// AppError is an error with an HTTP status and a client-facing code.
// Err is logged but never serialized.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError by code, so errors.Is(err, NotFoundError("")) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Field: field, Status: status}
}

// WithError attaches the underlying cause.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundError(message string) *AppError {
	return NewAppError(CodeNotFound, "", message, http.StatusNotFound)
}

func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

// UnprocessableError is for well-formed input the pipeline cannot use.
func UnprocessableError(message string) *AppError {
	return NewAppError(CodeUnprocessable, "", message, http.StatusUnprocessableEntity)
}

// UnavailableError is for a missing backend or an abandoned request.
func UnavailableError(message string) *AppError {
	return NewAppError(CodeUnavailable, "", message, http.StatusServiceUnavailable)
}

func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, http.StatusInternalServerError)
}

// StatusOf returns the status carried by err, 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
