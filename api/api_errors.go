package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/dashboard-session/transport"
)

// Error is a non-2xx answer from the dashboard API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

// UserMessage turns an API failure into text suitable for a notification.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return "Please login again"
		case http.StatusForbidden:
			return "You do not have permission to perform this action"
		case http.StatusNotFound:
			return "The requested resource was not found"
		case http.StatusInternalServerError:
			return "Server error. Please try again later"
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "An error occurred"
	}

	if errors.Is(err, transport.ErrSessionExpired) {
		return "Please login again"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "Network error. Please check your connection"
	}
	return "An unexpected error occurred"
}
