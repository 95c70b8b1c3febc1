package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/dashboard-session/internal/errors"
	"github.com/jrsteele09/dashboard-session/users"
)

const (
	detailNoActiveAccount = "No active account found with the given credentials"
	detailTokenNotValid   = "Token is invalid or expired"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// LoginHandler exchanges an email and password for an access/refresh pair (POST /api/login/)
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}

		user, err := s.users.GetByEmail(req.Email)
		if err != nil || !user.CheckPassword(req.Password) {
			s.log.Info().Str("email", req.Email).Msg("login rejected")
			writeDetail(w, http.StatusUnauthorized, detailNoActiveAccount)
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
		if err := s.users.SetLastLogin(user.Email, time.Now()); err != nil {
			s.log.Warn().Err(err).Str("user_id", user.ID).Msg("recording last login")
		}

		s.log.Info().Str("user_id", user.ID).Msg("logged in")
		writeJSON(w, http.StatusOK, body)
	}
}

// RefreshHandler mints a new access token from a refresh token (POST /api/auth/refresh/).
// The response only carries "refresh" when the refresh token was rotated.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}

		rt, err := s.refresh.Validate(req.Refresh)
		if err != nil {
			s.log.Debug().Err(err).Msg("refresh rejected")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detailTokenNotValid, "code": "token_not_valid"})
			return
		}

		user, err := s.users.GetByID(rt.UserID)
		if err != nil || user.Blocked {
			_ = s.refresh.Delete(rt.Token)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detailTokenNotValid, "code": "token_not_valid"})
			return
		}

		access, err := s.tokens.CreateAccessToken(user)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("issuing access token")
			writeDetail(w, http.StatusInternalServerError, "Could not issue tokens")
			return
		}
		body := map[string]any{"access": access}

		rotated, err := s.refresh.Rotate(rt)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", user.ID).Msg("rotating refresh token")
			writeDetail(w, http.StatusInternalServerError, "Could not issue tokens")
			return
		}
		if rotated != "" {
			body["refresh"] = rotated
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// PersonalInfoHandler returns the identity of the bearer (GET /api/personal-info/)
func (s *Server) PersonalInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.GetByID(userIDFromContext(r.Context()))
		if err != nil {
			writeDetail(w, http.StatusNotFound, "No personal info found for user")
			return
		}
		writeJSON(w, http.StatusOK, user.PersonalInfo())
	}
}

// RevokeHandler revokes the presented access token (POST /api/auth/revoke/).
// Subsequent requests with it get a 401, which exercises a client's refresh path.
func (s *Server) RevokeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := bearerToken(r)
		if err := s.tokens.RevokeAccessToken(raw); err != nil {
			writeDetail(w, http.StatusBadRequest, "Token could not be revoked")
			return
		}
		s.tokens.CleanupRevokedTokens()
		if claims := claimsFromContext(r.Context()); claims != nil {
			s.log.Info().Str("user_id", claims.Subject).Str("jti", claims.ID).Msg("access token revoked")
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HealthHandler reports liveness (GET /health)
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// issueTokens creates a fresh access/refresh pair for user. The body also
// carries the user's identity fields.
func (s *Server) issueTokens(user *users.User) (map[string]any, error) {
	if user == nil {
		return nil, errors.ErrUserNotFound
	}
	access, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, errors.Wrapf(err, "creating access token")
	}
	refreshToken, err := s.refresh.Create(user.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "creating refresh token")
	}

	body := user.PersonalInfo()
	delete(body, "date_joined")
	body["access"] = access
	body["refresh"] = refreshToken
	return body, nil
}
