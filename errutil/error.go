package errutil

import (
	"errors"
	"fmt"
	"net/http"
)

type CoreStatus string

const (
	StatusBadRequest   CoreStatus = "BAD_REQUEST"
	StatusUnauthorized CoreStatus = "UNAUTHORIZED"
	StatusForbidden    CoreStatus = "FORBIDDEN"
	StatusNotFound     CoreStatus = "NOT_FOUND"
	StatusConflict     CoreStatus = "CONFLICT"
	StatusInternal     CoreStatus = "INTERNAL"
	StatusBadGateway   CoreStatus = "BAD_GATEWAY"
	StatusTooMany      CoreStatus = "TOO_MANY_REQUESTS"
)

// HTTPStatus maps a core status to its response code. Conflicts are
// reported as 400 so clients can treat every business rejection alike.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest, StatusConflict:
		return http.StatusBadRequest
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusBadGateway:
		return http.StatusBadGateway
	case StatusTooMany:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type BaseError struct {
	Code    CoreStatus `json:"code"`
	Message string     `json:"message"`
	Details []Detail   `json:"details,omitempty"`
	Err     error      `json:"-"`
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

type Option func(*BaseError)

func WithDetails(details ...Detail) Option {
	return func(be *BaseError) { be.Details = details }
}

func New(code CoreStatus, message string, err error, opts ...Option) error {
	be := BaseError{Code: code, Message: message, Err: err}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func BadRequest(msg string, err error, opts ...Option) error {
	return New(StatusBadRequest, msg, err, opts...)
}

func Unauthorized(msg string, err error, opts ...Option) error {
	return New(StatusUnauthorized, msg, err, opts...)
}

func Forbidden(msg string, err error, opts ...Option) error {
	return New(StatusForbidden, msg, err, opts...)
}

func NotFound(msg string, err error, opts ...Option) error {
	return New(StatusNotFound, msg, err, opts...)
}

func Conflict(msg string, err error, opts ...Option) error {
	return New(StatusConflict, msg, err, opts...)
}

func Internal(msg string, err error, opts ...Option) error {
	return New(StatusInternal, msg, err, opts...)
}

func BadGateway(msg string, err error, opts ...Option) error {
	return New(StatusBadGateway, msg, err, opts...)
}

func TooManyRequests(msg string, err error, opts ...Option) error {
	return New(StatusTooMany, msg, err, opts...)
}

// From extracts a BaseError from err, falling back to an internal error
// carrying fallbackMsg.
func From(err error, fallbackMsg string) BaseError {
	var be BaseError
	if errors.As(err, &be) {
		return be
	}
	return BaseError{Code: StatusInternal, Message: fallbackMsg, Err: err}
}
