// Package credentials holds the persisted half of a dashboard session: the
// access/refresh token pair and the Store contract used to keep it across restarts.
package credentials

import (
	"context"
	"errors"
)

// Default storage keys. Both values live under these names in every Store.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

var (
	ErrIncomplete = errors.New("credential must carry both an access and a refresh token")
)

// Credential is the access/refresh token pair. The two tokens are only ever
// valid together.
type Credential struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Complete reports whether both tokens are present.
func (c Credential) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// Empty reports whether neither token is present.
func (c Credential) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Corrupt reports whether exactly one of the two tokens is present.
func (c Credential) Corrupt() bool {
	return !c.Complete() && !c.Empty()
}

// Store persists a Credential. Implementations write and clear both tokens
// atomically. Load returns whatever is stored, even a partial pair, so the
// caller can detect and normalise corruption.
type Store interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

// Keys names the two storage slots.
type Keys struct {
	Access  string
	Refresh string
}

// DefaultKeys returns the well-known key names.
func DefaultKeys() Keys {
	return Keys{Access: AccessTokenKey, Refresh: RefreshTokenKey}
}
