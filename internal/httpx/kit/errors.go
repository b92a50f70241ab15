package kit

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Error codes shared across the API.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidUser  = "INVALID_USER"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	CodeInternal     = "INTERNAL_ERROR"
)

// APIError is a structured application error with code and message.
type APIError struct {
	HTTPStatus int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(httpStatus int, code, msg string, details interface{}) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Message: msg, Details: details}
}

// Common helpers
func ValidationError(msg string, details interface{}) error {
	return NewAPIError(http.StatusUnprocessableEntity, CodeValidation, msg, details)
}
func Unauthorized(msg string) error {
	return NewAPIError(http.StatusUnauthorized, CodeUnauthorized, msg, nil)
}
func InvalidUser() error {
	return NewAPIError(http.StatusUnauthorized, CodeInvalidUser, "User account not found", nil)
}
func Forbidden(msg string) error {
	return NewAPIError(http.StatusForbidden, CodeForbidden, msg, nil)
}
func NotFound(msg string) error {
	return NewAPIError(http.StatusNotFound, CodeNotFound, msg, nil)
}
func Conflict(msg string) error {
	return NewAPIError(http.StatusConflict, CodeConflict, msg, nil)
}
func RateLimited(msg string) error {
	return NewAPIError(http.StatusTooManyRequests, CodeRateLimited, msg, nil)
}
func Internal(msg string, details interface{}) error {
	return NewAPIError(http.StatusInternalServerError, CodeInternal, msg, details)
}

// ErrorHandler returns a Fiber error handler that emits enveloped error
// responses. Unexpected errors keep their real message only outside
// production.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ae *APIError
		if errors.As(err, &ae) {
			return Fail(c, ae.HTTPStatus, &ErrorBody{Code: ae.Code, Message: ae.Message, Details: ae.Details})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Fail(c, fe.Code, &ErrorBody{Code: httpStatusToCode(fe.Code), Message: fe.Message})
		}

		msg := "Internal server error"
		if !production && err != nil {
			msg = err.Error()
		}
		return Fail(c, http.StatusInternalServerError, &ErrorBody{Code: CodeInternal, Message: msg})
	}
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		if status >= 500 {
			return CodeInternal
		}
		return CodeValidation
	}
}
