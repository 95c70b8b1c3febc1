package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/dashboard-session/identity"
	"github.com/jrsteele09/dashboard-session/session"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.True(t, exp.Equal(session.AccessTokenExpiry(signedToken(t, exp))))
	require.True(t, session.AccessTokenExpiry("AT1").IsZero())
}

func TestTokenSource(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	fresh := signedToken(t, now.Add(time.Hour))
	expired := signedToken(t, now.Add(-time.Minute))

	t.Run("valid token is returned without refresh", func(t *testing.T) {
		f := setupTestFixture(t, session.WithNowFunc(func() time.Time { return now }))
		f.idp.LoginFunc = func(ctx context.Context, identifier, secret string) (*identity.Tokens, error) {
			return &identity.Tokens{AccessToken: fresh, RefreshToken: "RT1"}, nil
		}
		f.login(t)

		tok, err := f.m.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		require.Equal(t, fresh, tok.AccessToken)
		require.Equal(t, "Bearer", tok.TokenType)
		require.Empty(t, tok.RefreshToken)
		require.Equal(t, 0, f.idp.RefreshCalls())
	})

	t.Run("expired token is refreshed first", func(t *testing.T) {
		f := setupTestFixture(t, session.WithNowFunc(func() time.Time { return now }))
		f.idp.LoginFunc = func(ctx context.Context, identifier, secret string) (*identity.Tokens, error) {
			return &identity.Tokens{AccessToken: expired, RefreshToken: "RT1"}, nil
		}
		f.idp.RefreshFunc = func(ctx context.Context, refreshToken string) (*identity.Tokens, error) {
			return &identity.Tokens{AccessToken: fresh}, nil
		}
		f.login(t)

		tok, err := f.m.TokenSource(context.Background()).Token()
		require.NoError(t, err)
		require.Equal(t, fresh, tok.AccessToken)
		require.Equal(t, 1, f.idp.RefreshCalls())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.m.Initialize(context.Background()))

		_, err := f.m.TokenSource(context.Background()).Token()
		require.ErrorIs(t, err, session.ErrNotAuthenticated)
	})
}
