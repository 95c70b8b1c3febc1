package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*tokenSource)(nil)

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

// TokenSource exposes the session to golang.org/x/oauth2 consumers. Tokens
// carry only the access token. When the access token is a JWT whose exp has
// passed, Token refreshes before returning.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.m.AccessToken(ts.ctx)
	if err != nil {
		return nil, err
	}

	expiry := AccessTokenExpiry(access)
	if !expiry.IsZero() && !expiry.After(ts.m.nowFunc()) {
		ts.m.log.Debug().Time("expiry", expiry).Msg("access token expired, refreshing proactively")
		if access, err = ts.m.Refresh(ts.ctx); err != nil {
			return nil, err
		}
		expiry = AccessTokenExpiry(access)
	}

	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

// AccessTokenExpiry reads the exp claim of a JWT access token without
// verifying it. Opaque tokens, or JWTs without exp, return the zero time.
func AccessTokenExpiry(raw string) time.Time {
	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
