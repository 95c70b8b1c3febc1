package session

import (
	"github.com/jrsteele09/dashboard-session/identity"
)

// Status is the authentication state of the application.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	// StatusRefreshing is a sub-state of authenticated: the access token is
	// being renewed but the session is still considered logged in.
	StatusRefreshing Status = "refreshing"
)

func (s Status) String() string {
	return string(s)
}

// IsAuthenticated reports whether the status counts as logged in.
func (s Status) IsAuthenticated() bool {
	return s == StatusAuthenticated || s == StatusRefreshing
}

// State is a snapshot of the session as seen by the rest of the application.
// Identity may be nil or partial even when authenticated.
type State struct {
	Status   Status
	Identity *identity.Profile
}
