package errors

import "net/http"

// AppError is an error that carries the HTTP status it should be reported with.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

var (
	ErrUnauthorized   = NewAppError(http.StatusUnauthorized, "unauthorized")
	ErrNotFound       = NewAppError(http.StatusNotFound, "not found")
	ErrInternalServer = NewAppError(http.StatusInternalServerError, "internal error")
	ErrRateLimit      = NewAppError(http.StatusTooManyRequests, "rate limit exceeded")
)

func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, msg)
}

func Conflict(msg string) *AppError {
	return NewAppError(http.StatusConflict, msg)
}

// Unprocessable is used for payloads that parse but fail validation.
func Unprocessable(msg string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, msg)
}

func Internal(msg string) *AppError {
	return NewAppError(http.StatusInternalServerError, msg)
}
