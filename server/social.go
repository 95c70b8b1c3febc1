package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/dashboard-session/internal/config"
	"github.com/jrsteele09/dashboard-session/internal/errors"
	"github.com/jrsteele09/dashboard-session/users"
	"golang.org/x/oauth2"
)

// SocialIdentity is what a provider vouches for after a successful code exchange.
type SocialIdentity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// SocialVerifier exchanges a provider authorization code for a verified identity.
type SocialVerifier interface {
	Exchange(ctx context.Context, code string) (*SocialIdentity, error)
}

type OidcConfig struct {
	OidcProvider *oidc.Provider
	OAuth2Config *oauth2.Config
	OidcVerifier *oidc.IDTokenVerifier
}

// oidcVerifier discovers its provider on first use and caches the result.
type oidcVerifier struct {
	provider config.SocialProvider

	lock   sync.Mutex
	config *OidcConfig
}

var _ SocialVerifier = (*oidcVerifier)(nil)

func newOIDCVerifier(p config.SocialProvider) *oidcVerifier {
	return &oidcVerifier{provider: p}
}

func (v *oidcVerifier) oidcConfig(ctx context.Context) (*OidcConfig, error) {
	v.lock.Lock()
	defer v.lock.Unlock()
	if v.config != nil {
		return v.config, nil
	}

	provider, err := oidc.NewProvider(ctx, v.provider.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	v.config = &OidcConfig{
		OidcProvider: provider,
		OAuth2Config: &oauth2.Config{
			ClientID:     v.provider.ClientID,
			ClientSecret: v.provider.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  v.provider.RedirectURL,
			Scopes:       append([]string{oidc.ScopeOpenID}, v.provider.Scopes...),
		},
		OidcVerifier: provider.Verifier(&oidc.Config{
			ClientID: v.provider.ClientID,
		}),
	}
	return v.config, nil
}

func (v *oidcVerifier) Exchange(ctx context.Context, code string) (*SocialIdentity, error) {
	cfg, err := v.oidcConfig(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.OAuth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s returned no id_token", v.provider.Name)
	}
	idToken, err := cfg.OidcVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying id_token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decoding id_token claims: %w", err)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, fmt.Errorf("%s email is not verified", v.provider.Name)
	}

	return &SocialIdentity{
		Subject:   idToken.Subject,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
	}, nil
}

// socialVerifier returns the verifier for provider, building it from config on first use.
func (s *Server) socialVerifier(provider string) (SocialVerifier, bool) {
	provider = strings.ToLower(provider)

	s.socialLock.RLock()
	v, ok := s.social[provider]
	s.socialLock.RUnlock()
	if ok {
		return v, true
	}

	for _, p := range s.config.GetSocialProviders() {
		if p.Name != provider {
			continue
		}
		s.socialLock.Lock()
		defer s.socialLock.Unlock()
		if v, ok := s.social[provider]; ok {
			return v, true
		}
		v := newOIDCVerifier(p)
		s.social[provider] = v
		return v, true
	}
	return nil, false
}

type socialCallbackRequest struct {
	Code string `json:"code" validate:"required"`
}

// SocialCallbackHandler completes a social login (POST /api/auth/{provider}/callback).
// The user is found by email or created on first login.
func (s *Server) SocialCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		verifier, ok := s.socialVerifier(provider)
		if !ok {
			writeDetail(w, http.StatusNotFound, errors.ErrUnknownProvider.Error())
			return
		}

		var req socialCallbackRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}

		identity, err := verifier.Exchange(r.Context(), req.Code)
		if err != nil {
			s.log.Info().Err(err).Str("provider", provider).Msg("social login rejected")
			writeDetail(w, http.StatusUnauthorized, "Social login failed")
			return
		}
		if identity.Email == "" {
			writeDetail(w, http.StatusBadRequest, "Provider did not share an email address")
			return
		}

		user, err := s.findOrCreateSocialUser(strings.ToLower(provider), identity)
		if err != nil {
			s.log.Error().Err(err).Str("provider", provider).Msg("creating social user")
			writeDetail(w, http.StatusInternalServerError, "Social login failed")
			return
		}
		if user.Blocked {
			writeDetail(w, http.StatusUnauthorized, "User account is disabled.")
			return
		}

		body, err := s.issueTokens(user)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("issuing tokens")
			writeDetail(w, http.StatusInternalServerError, "Could not issue tokens")
			return
		}
		body["access_token"] = body["access"]
		body["refresh_token"] = body["refresh"]
		delete(body, "access")
		delete(body, "refresh")

		s.log.Info().Str("user_id", user.ID).Str("provider", provider).Msg("social login")
		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) findOrCreateSocialUser(provider string, identity *SocialIdentity) (*users.User, error) {
	user, err := s.users.GetByEmail(identity.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, err
	}

	user = &users.User{
		Email:      identity.Email,
		Username:   usernameFromEmail(identity.Email),
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		DateJoined: time.Now(),
		Provider:   provider,
	}
	if err := s.users.Upsert(user); err != nil {
		return nil, err
	}
	return user, nil
}

func usernameFromEmail(email string) string {
	return strings.SplitN(users.NormaliseEmail(email), "@", 2)[0]
}
