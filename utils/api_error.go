package utils

import "net/http"

// ApiError is the single error kind returned by handlers. The status code is
// sent as-is by the error handler middleware.
type ApiError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *ApiError) Error() string { return e.Message }

func NewApiError(status int, message string, errs ...string) *ApiError {
	if message == "" {
		message = "Something went wrong"
	}
	if errs == nil {
		errs = []string{}
	}
	return &ApiError{StatusCode: status, Message: message, Errors: errs}
}

func BadRequest(message string, errs ...string) *ApiError {
	return NewApiError(http.StatusBadRequest, message, errs...)
}

func Unauthorized(message string) *ApiError {
	return NewApiError(http.StatusUnauthorized, message)
}

func NotFound(message string) *ApiError {
	return NewApiError(http.StatusNotFound, message)
}

func Conflict(message string) *ApiError {
	return NewApiError(http.StatusConflict, message)
}

func Internal(message string) *ApiError {
	return NewApiError(http.StatusInternalServerError, message)
}
