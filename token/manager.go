package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/dashboard-session/internal/errors"
	"github.com/jrsteele09/dashboard-session/users"
	"github.com/pkg/errors"
)

// Claims are the access token claims the dev server issues and verifies.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Manager issues and validates access tokens.
type Manager struct {
	signer            Signer            // Token signing and verification
	issuer            string            // iss claim
	audience          string            // aud claim, optional
	revokedCache      RevokedTokenCache // Cache for revoked tokens
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:       signer,
		revokedCache: NewInMemoryRevokedTokenCache(), // Default implementation
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 15 * time.Minute
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

func (c *Manager) AccessTokenExpiry() time.Duration {
	return c.accessTokenExpiry
}

// CreateAccessToken issues a signed access token for user.
func (c *Manager) CreateAccessToken(user *users.User) (string, error) {
	if user == nil {
		return "", errors.New("Manager.CreateAccessToken: nil user")
	}
	now := c.nowFunc()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTokenExpiry)),
			ID:        uuid.New().String(), // Unique token ID for revocation
		},
		Email: user.Email,
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Manager.CreateAccessToken Sign")
	}
	return signed, nil
}

// Validate verifies the signature, issuer, expiry and revocation state of
// rawToken. Expired tokens return ErrTokenExpired, anything else wrong
// returns ErrInvalidToken.
func (c *Manager) Validate(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(c.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, c.signer.GetVerificationKey, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(apperrors.ErrTokenExpired, err.Error())
		}
		return nil, errors.Wrap(apperrors.ErrInvalidToken, err.Error())
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperrors.ErrInvalidToken
	}

	// Check if token has been revoked
	if claims.ID != "" && c.revokedCache.IsRevoked(claims.ID) {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "token revoked")
	}
	return claims, nil
}

// RevokeAccessToken revokes a valid access token by its JTI.
func (c *Manager) RevokeAccessToken(rawToken string) error {
	claims, err := c.Validate(rawToken)
	if err != nil {
		return errors.Wrap(err, "Manager.RevokeAccessToken Validate")
	}
	if claims.ID == "" {
		return errors.New("token missing jti claim")
	}
	return c.revokedCache.Add(claims.ID, claims.ExpiresAt.Time)
}

// CleanupRevokedTokens removes expired tokens from the revocation cache
func (c *Manager) CleanupRevokedTokens() {
	if c.revokedCache != nil {
		c.revokedCache.Cleanup(c.nowFunc())
	}
}
