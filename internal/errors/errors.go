// Package errors defines the typed errors returned across service boundaries.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable machine readable error identifier.
type ErrorCode string

const (
	CodeBadRequest   ErrorCode = "BAD_REQUEST"
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeRateLimited  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// ServiceError is an error with an HTTP mapping.
type ServiceError struct {
	Code       ErrorCode
	HTTPStatus int
	Message    string
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of e with key set in Details.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return &clone
}

func newError(code ErrorCode, status int, msg string, err error) *ServiceError {
	return &ServiceError{Code: code, HTTPStatus: status, Message: msg, Err: err}
}

func BadRequest(msg string) *ServiceError {
	return newError(CodeBadRequest, http.StatusBadRequest, msg, nil)
}

// Validation reports an out-of-range or malformed field (422).
func Validation(msg string) *ServiceError {
	return newError(CodeValidation, http.StatusUnprocessableEntity, msg, nil)
}

func Unauthorized(msg string) *ServiceError {
	if msg == "" {
		msg = "Not authenticated"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg, nil)
}

func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "Could not validate credentials", err)
}

func Forbidden(msg string) *ServiceError {
	if msg == "" {
		msg = "Not enough permissions"
	}
	return newError(CodeForbidden, http.StatusForbidden, msg, nil)
}

func NotFound(msg string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, msg, nil)
}

func Conflict(msg string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, msg, nil)
}

func RateLimitExceeded(rate int, window string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "Rate limit exceeded", nil).
		WithDetails("limit", rate).
		WithDetails("window", window)
}

func Internal(msg string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, msg, err)
}

// GetServiceError returns the ServiceError in err's chain, if any.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// Is reports whether err is a ServiceError with code.
func Is(err error, code ErrorCode) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}
