package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/dashboard-session/internal/errors"
	"github.com/jrsteele09/dashboard-session/token"
	"github.com/jrsteele09/dashboard-session/users"
	"github.com/stretchr/testify/require"
)

// testFixture holds all test dependencies
type testFixture struct {
	now     time.Time
	manager *token.Manager
	user    *users.User
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		now:  time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		user: &users.User{ID: "user-1", Email: "a@x.com"},
	}
	f.manager = token.New(
		token.NewHMACSigner("test-secret"),
		token.WithIssuer("dashboard-test"),
		token.WithAccessTokenExpiry(time.Minute),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	return f
}

func TestManager_CreateAndValidate(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.CreateAccessToken(f.user)
	require.NoError(t, err)

	claims, err := f.manager.Validate(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "dashboard-test", claims.Issuer)
	require.NotEmpty(t, claims.ID)
	require.True(t, f.now.Add(time.Minute).Equal(claims.ExpiresAt.Time))
}

func TestManager_Validate(t *testing.T) {
	t.Run("expired", func(t *testing.T) {
		f := setupTestFixture(t)
		raw, err := f.manager.CreateAccessToken(f.user)
		require.NoError(t, err)

		f.now = f.now.Add(2 * time.Minute)
		_, err = f.manager.Validate(raw)
		require.ErrorIs(t, err, errors.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		f := setupTestFixture(t)
		other := token.New(token.NewHMACSigner("other"), token.WithIssuer("dashboard-test"),
			token.WithNowFunc(func() time.Time { return f.now }))
		raw, err := other.CreateAccessToken(f.user)
		require.NoError(t, err)

		_, err = f.manager.Validate(raw)
		require.ErrorIs(t, err, errors.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		f := setupTestFixture(t)
		other := token.New(token.NewHMACSigner("test-secret"), token.WithIssuer("someone-else"),
			token.WithNowFunc(func() time.Time { return f.now }))
		raw, err := other.CreateAccessToken(f.user)
		require.NoError(t, err)

		_, err = f.manager.Validate(raw)
		require.ErrorIs(t, err, errors.ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		f := setupTestFixture(t)
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = f.manager.Validate(raw)
		require.ErrorIs(t, err, errors.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.Validate("AT1")
		require.ErrorIs(t, err, errors.ErrInvalidToken)
		_, err = f.manager.Validate("")
		require.ErrorIs(t, err, errors.ErrInvalidToken)
	})
}

func TestManager_RevokeAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	raw, err := f.manager.CreateAccessToken(f.user)
	require.NoError(t, err)
	other, err := f.manager.CreateAccessToken(f.user)
	require.NoError(t, err)

	require.NoError(t, f.manager.RevokeAccessToken(raw))

	_, err = f.manager.Validate(raw)
	require.ErrorIs(t, err, errors.ErrInvalidToken)
	_, err = f.manager.Validate(other)
	require.NoError(t, err)

	// Expired revocations are dropped.
	f.now = f.now.Add(time.Hour)
	f.manager.CleanupRevokedTokens()
}
