package errors

import (
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details any) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    details,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
	}
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Details:    e.Details,
		HTTPStatus: e.HTTPStatus,
		Err:        err,
	}
}

func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    message,
		Details:    e.Details,
		HTTPStatus: e.HTTPStatus,
		Err:        e.Err,
	}
}

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Malformed request",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "Service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// Broker errors
var (
	ErrBrokerNotInitialized = &AppError{
		Code:       "BROKER_NOT_INITIALIZED",
		Message:    "Broker not initialized",
		HTTPStatus: http.StatusConflict,
	}

	ErrBrokerUnavailable = &AppError{
		Code:       "BROKER_UNAVAILABLE",
		Message:    "E*TRADE is temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrMissingCredentials = &AppError{
		Code:       "BROKER_MISSING_CREDENTIALS",
		Message:    "Consumer key and secret are required",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrOrderNotFound = &AppError{
		Code:       "ORDER_NOT_FOUND",
		Message:    "Order not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrInvalidOrder = &AppError{
		Code:       "ORDER_INVALID",
		Message:    "Invalid order request",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrRequestTokenExpired = &AppError{
		Code:       "OAUTH_REQUEST_TOKEN_EXPIRED",
		Message:    "Invalid or expired request token",
		HTTPStatus: http.StatusBadRequest,
	}
)
