package session

import (
	"errors"

	"github.com/jrsteele09/dashboard-session/identity"
)

var (
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrSessionEnded     = errors.New("session ended while the operation was in flight")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// UserMessage turns a Login/Refresh failure into text suitable for the login form.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var statusErr *identity.StatusError
	switch {
	case errors.Is(err, identity.ErrCredentialRejected):
		if errors.As(err, &statusErr) && statusErr.Detail != "" {
			return statusErr.Detail
		}
		return "Login failed. Please check your credentials."
	case errors.Is(err, identity.ErrNetworkUnavailable):
		return "Network error. Please check your connection"
	case errors.Is(err, identity.ErrMalformedResponse):
		return "Invalid response from server"
	case errors.Is(err, ErrNoRefreshToken), errors.Is(err, ErrSessionEnded), errors.Is(err, ErrNotAuthenticated):
		return "Please login again"
	default:
		return "An unexpected error occurred"
	}
}
