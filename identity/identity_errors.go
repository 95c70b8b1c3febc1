package identity

import (
	"errors"
	"fmt"
)

// Failure classes reported by the Identity Service client.
var (
	// ErrCredentialRejected means the server refused the identifier/secret, the
	// refresh token or the social code.
	ErrCredentialRejected = errors.New("credential rejected")
	// ErrNetworkUnavailable means the request did not complete, or the server
	// could not answer it (5xx).
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrMalformedResponse means a 2xx answer lacked required fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrProfileFetchFailed is returned for any profile enrichment failure.
	ErrProfileFetchFailed = errors.New("profile fetch failed")
)

// StatusError carries the HTTP status and any server supplied detail. It
// unwraps to one of the failure classes above.
type StatusError struct {
	StatusCode int
	Detail     string
	Kind       error
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}
