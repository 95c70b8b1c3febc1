package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/dashboard-session/internal/config"
	"github.com/jrsteele09/dashboard-session/server"
	"github.com/jrsteele09/dashboard-session/users"
	fakeuserrepo "github.com/jrsteele09/dashboard-session/users/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane@example.com"
	testPassword = "Passw0rdOK"
)

type testFixture struct {
	srv   *server.Server
	http  *httptest.Server
	users users.UserRepo
}

func setupTestFixture(t *testing.T, deps server.Deps) *testFixture {
	t.Helper()
	t.Setenv("ENV", "TEST")

	if deps.Users == nil {
		deps.Users = fakeuserrepo.NewFakeUserRepo()
	}
	srv, err := server.New(config.New(), deps)
	require.NoError(t, err)

	_, err = srv.Seed(server.SeedUser{Email: testEmail, Password: testPassword, FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testFixture{srv: srv, http: ts, users: deps.Users}
}

// do sends body as JSON and decodes the JSON response into a map.
func (f *testFixture) do(t *testing.T, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.http.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (f *testFixture) login(t *testing.T) (access, refresh string) {
	t.Helper()
	status, body := f.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, status)
	return body["access"].(string), body["refresh"].(string)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t, server.Deps{})

	t.Run("success", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": "Jane@Example.com", "password": testPassword})
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, body["access"])
		require.NotEmpty(t, body["refresh"])
		require.Equal(t, testEmail, body["email"])
		require.Equal(t, "Jane", body["first_name"])
		require.NotContains(t, body, "date_joined")

		user, err := f.users.GetByEmail(testEmail)
		require.NoError(t, err)
		require.False(t, user.LastLogin.IsZero())
	})

	t.Run("wrong password", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": testEmail, "password": "nope"})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "No active account found with the given credentials", body["detail"])
	})

	t.Run("unknown user", func(t *testing.T) {
		status, _ := f.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": "who@example.com", "password": testPassword})
		require.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("blocked user", func(t *testing.T) {
		require.NoError(t, f.users.SetBlocked(testEmail, true))
		t.Cleanup(func() { _ = f.users.SetBlocked(testEmail, false) })

		status, body := f.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": testEmail, "password": testPassword})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "User account is disabled.", body["detail"])
	})

	t.Run("validation", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": "not-an-email"})
		require.Equal(t, http.StatusBadRequest, status)
		require.Equal(t, "email: Invalid email format", body["detail"])
		require.Len(t, body["errors"], 2)
	})

	t.Run("invalid json", func(t *testing.T) {
		resp, err := http.Post(f.http.URL+"/api/login/", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		status, _ := f.do(t, http.MethodGet, "/api/login/", "", nil)
		require.Equal(t, http.StatusMethodNotAllowed, status)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("without rotation", func(t *testing.T) {
		f := setupTestFixture(t, server.Deps{})
		_, refresh := f.login(t)

		status, body := f.do(t, http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": refresh})
		require.Equal(t, http.StatusOK, status)
		require.NotEmpty(t, body["access"])
		require.NotContains(t, body, "refresh")

		// The refresh token keeps working.
		status, _ = f.do(t, http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": refresh})
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("with rotation", func(t *testing.T) {
		t.Setenv("ROTATE_REFRESH_TOKENS", "true")
		f := setupTestFixture(t, server.Deps{})
		_, refresh := f.login(t)

		status, body := f.do(t, http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": refresh})
		require.Equal(t, http.StatusOK, status)
		rotated, ok := body["refresh"].(string)
		require.True(t, ok)
		require.NotEqual(t, refresh, rotated)

		status, body = f.do(t, http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": refresh})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "token_not_valid", body["code"])
	})

	t.Run("unknown token", func(t *testing.T) {
		f := setupTestFixture(t, server.Deps{})
		status, body := f.do(t, http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": "garbage"})
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "Token is invalid or expired", body["detail"])
	})

	t.Run("login replaces the previous refresh token", func(t *testing.T) {
		f := setupTestFixture(t, server.Deps{})
		_, first := f.login(t)
		f.login(t)

		status, _ := f.do(t, http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": first})
		require.Equal(t, http.StatusUnauthorized, status)
	})
}

func TestPersonalInfo(t *testing.T) {
	f := setupTestFixture(t, server.Deps{})
	access, _ := f.login(t)

	status, body := f.do(t, http.MethodGet, "/api/personal-info/", access, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, testEmail, body["email"])
	require.Equal(t, "jane", body["username"])
	require.Equal(t, "Doe", body["last_name"])
	require.Contains(t, body, "date_joined")
}

func TestRequireAuth(t *testing.T) {
	f := setupTestFixture(t, server.Deps{})

	tests := []struct {
		name   string
		bearer string
		detail string
	}{
		{"missing", "", "Authentication credentials were not provided."},
		{"garbage", "not-a-jwt", "Given token not valid for any token type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodGet, "/api/personal-info/", tt.bearer, nil)
			require.Equal(t, http.StatusUnauthorized, status)
			require.Equal(t, tt.detail, body["detail"])
		})
	}
}

func TestRevoke(t *testing.T) {
	f := setupTestFixture(t, server.Deps{})
	access, refresh := f.login(t)

	status, _ := f.do(t, http.MethodPost, "/api/auth/revoke/", access, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = f.do(t, http.MethodGet, "/api/personal-info/", access, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// The refresh token still recovers the session.
	status, body := f.do(t, http.MethodPost, "/api/auth/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/api/personal-info/", body["access"].(string), nil)
	require.Equal(t, http.StatusOK, status)
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t, server.Deps{})
	status, body := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"])
}

func TestCors(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
	f := setupTestFixture(t, server.Deps{})

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, f.http.URL+"/api/goals/", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
		require.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, f.http.URL+"/health", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://evil.example.com")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupTestFixture(t, server.Deps{})
	f.srv.RegisterRouteHandler("GET /panic", server.ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}, f.srv.APIMiddleware()...))

	status, body := f.do(t, http.MethodGet, "/panic", "", nil)
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "internal server error", body["message"])
}

func TestSeed(t *testing.T) {
	f := setupTestFixture(t, server.Deps{})

	t.Run("existing users are left alone", func(t *testing.T) {
		created, err := f.srv.Seed(server.SeedUser{Email: testEmail, Password: "Different1pass"})
		require.NoError(t, err)
		require.Empty(t, created)
		f.login(t)
	})

	t.Run("generated password", func(t *testing.T) {
		created, err := f.srv.Seed(server.SeedUser{Email: "gen@example.com"})
		require.NoError(t, err)
		password := created["gen@example.com"]
		require.NoError(t, users.ValidatePasswordStrength(password))

		status, _ := f.do(t, http.MethodPost, "/api/login/", "", map[string]string{"email": "gen@example.com", "password": password})
		require.Equal(t, http.StatusOK, status)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := f.srv.Seed(server.SeedUser{Email: "weak@example.com", Password: "short"})
		require.Error(t, err)
	})
}
