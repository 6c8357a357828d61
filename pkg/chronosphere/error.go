package chronosphere

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response of the configuration API.
type APIError struct {
	Code    int
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Retryable reports whether the request may succeed when sent again.
func (e APIError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return hasCode(err, http.StatusNotFound)
}

// IsConflict reports whether err is a 409 response, returned when creating an object that already exists.
func IsConflict(err error) bool {
	return hasCode(err, http.StatusConflict)
}

// IsUnauthorized reports whether the token was missing or refused.
func IsUnauthorized(err error) bool {
	return hasCode(err, http.StatusUnauthorized) || hasCode(err, http.StatusForbidden)
}

// IsRetryable reports whether err is a throttling or server error response.
func IsRetryable(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

func hasCode(err error, code int) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
