// Package transport attaches the session's bearer token to outgoing requests
// and recovers from a 401 by refreshing the session and retrying once.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrSessionExpired is returned when a 401 could not be recovered by refreshing.
// The session has been logged out by then.
var ErrSessionExpired = errors.New("session expired")

// Authenticator supplies bearer tokens. *session.Manager implements it.
type Authenticator interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRefreshThenRetry
	outcomeRetry
)

var _ http.RoundTripper = (*Transport)(nil)

// Transport is an http.RoundTripper that authenticates requests with the
// current access token.
type Transport struct {
	auth Authenticator
	base http.RoundTripper
	log  zerolog.Logger
}

// Option defines a function type to modify the Transport instance.
type Option func(*Transport)

func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) {
		t.log = l
	}
}

// New wraps base, http.DefaultTransport when nil.
func New(auth Authenticator, base http.RoundTripper, options ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &Transport{auth: auth, base: base, log: zerolog.Nop()}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Client returns an *http.Client using t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	resp, next, sent, err := t.attempt(req)
	if err != nil || next == outcomeDone {
		return resp, err
	}

	var token string
	switch next {
	case outcomeRefreshThenRetry:
		t.log.Debug().Str("url", req.URL.Redacted()).Msg("401 received, refreshing session")
		token, err = t.auth.Refresh(ctx)
		if err != nil {
			drain(resp)
			if ctx.Err() != nil {
				// The caller gave up; the session itself is untouched.
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
	case outcomeRetry:
		token, err = t.auth.AccessToken(ctx)
		if err != nil {
			// Logged out while the request was in flight.
			return resp, nil
		}
	}

	if token == sent {
		return resp, nil
	}

	retry, err := rewind(req, token)
	if err != nil {
		return resp, nil
	}
	drain(resp)
	return t.base.RoundTrip(retry)
}

// attempt sends req with the current access token and decides what a 401
// means. It reports the token it sent, empty when none was available.
func (t *Transport) attempt(req *http.Request) (*http.Response, outcome, string, error) {
	token, err := t.auth.AccessToken(req.Context())
	if err != nil {
		token = ""
	}

	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, outcomeDone, token, err
	}
	if resp.StatusCode != http.StatusUnauthorized || token == "" {
		return resp, outcomeDone, token, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, outcomeDone, token, nil
	}

	current, err := t.auth.AccessToken(req.Context())
	if err == nil && current != "" && current != token {
		// Rotated by someone else while this request was in flight.
		return resp, outcomeRetry, token, nil
	}
	return resp, outcomeRefreshThenRetry, token, nil
}

// rewind clones req with a fresh body and the given token.
func rewind(req *http.Request, token string) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return out, nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
