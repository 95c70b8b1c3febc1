package transport_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/dashboard-session/credentials"
	"github.com/jrsteele09/dashboard-session/credentials/memstore"
	"github.com/jrsteele09/dashboard-session/identity"
	"github.com/jrsteele09/dashboard-session/identity/identityfake"
	"github.com/jrsteele09/dashboard-session/session"
	"github.com/jrsteele09/dashboard-session/transport"
	"github.com/stretchr/testify/require"
)

// recordingServer accepts only the bearer token in valid and records every
// Authorization header and body it sees.
type recordingServer struct {
	*httptest.Server

	mu      sync.Mutex
	valid   string
	headers []string
	bodies  []string
}

func newRecordingServer(t *testing.T, valid string) *recordingServer {
	t.Helper()
	rs := &recordingServer{valid: valid}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		rs.mu.Lock()
		rs.headers = append(rs.headers, r.Header.Get("Authorization"))
		rs.bodies = append(rs.bodies, string(body))
		valid := rs.valid
		rs.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+valid {
			http.Error(w, `{"detail":"Given token not valid for any token type"}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) seen() ([]string, []string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.headers...), append([]string(nil), rs.bodies...)
}

type testFixture struct {
	store *memstore.Store
	idp   *identityfake.FakeIdentityService
	m     *session.Manager
	http  *http.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	store := memstore.New()
	idp := identityfake.New()
	idp.AddUser("a@x.com", "secret", nil)

	m, err := session.New(store, idp)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	ctx := context.Background()
	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.Login(ctx, "a@x.com", "secret"))
	m.Wait()

	return &testFixture{
		store: store,
		idp:   idp,
		m:     m,
		http:  transport.New(m, nil).Client(),
	}
}

func TestTransport_RefreshesAndRetriesOnce(t *testing.T) {
	f := setupTestFixture(t)
	srv := newRecordingServer(t, "AT2")

	resp, err := f.http.Get(srv.URL + "/api/goals/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, f.idp.RefreshCalls())

	headers, _ := srv.seen()
	require.Equal(t, []string{"Bearer AT1", "Bearer AT2"}, headers)

	cred, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, credentials.Credential{AccessToken: "AT2", RefreshToken: "RT1"}, cred)
	require.Equal(t, session.StatusAuthenticated, f.m.Status())
}

func TestTransport_ValidTokenIsNotRefreshed(t *testing.T) {
	f := setupTestFixture(t)
	srv := newRecordingServer(t, "AT1")

	resp, err := f.http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 0, f.idp.RefreshCalls())
}

func TestTransport_ReplaysBody(t *testing.T) {
	f := setupTestFixture(t)
	srv := newRecordingServer(t, "AT2")

	resp, err := f.http.Post(srv.URL+"/api/notes/", "application/json", strings.NewReader(`{"title":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, bodies := srv.seen()
	require.Equal(t, []string{`{"title":"hi"}`, `{"title":"hi"}`}, bodies)
}

func TestTransport_RetriesAtMostOnce(t *testing.T) {
	f := setupTestFixture(t)
	srv := newRecordingServer(t, "never")

	resp, err := f.http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 1, f.idp.RefreshCalls())
	headers, _ := srv.seen()
	require.Len(t, headers, 2)
}

func TestTransport_RefreshFailureExpiresSession(t *testing.T) {
	f := setupTestFixture(t)
	f.idp.RevokeRefreshTokens()
	srv := newRecordingServer(t, "AT2")

	_, err := f.http.Get(srv.URL)
	require.ErrorIs(t, err, transport.ErrSessionExpired)
	require.ErrorIs(t, err, identity.ErrCredentialRejected)
	require.Equal(t, session.StatusUnauthenticated, f.m.Status())

	cred, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, cred.Empty())
}

func TestTransport_UnauthenticatedPassesThrough(t *testing.T) {
	f := setupTestFixture(t)
	f.m.Logout(context.Background())
	srv := newRecordingServer(t, "AT1")

	resp, err := f.http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 0, f.idp.RefreshCalls())
	headers, _ := srv.seen()
	require.Equal(t, []string{""}, headers)
}

func TestTransport_UnreplayableBodyPassesThrough(t *testing.T) {
	f := setupTestFixture(t)
	srv := newRecordingServer(t, "AT2")

	req, err := http.NewRequest(http.MethodPost, srv.URL, io.NopCloser(strings.NewReader("payload")))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := f.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 0, f.idp.RefreshCalls())
}

// rotatingAuth hands out current and counts refreshes.
type rotatingAuth struct {
	mu           sync.Mutex
	current      string
	refreshCount int
}

func (a *rotatingAuth) AccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == "" {
		return "", errors.New("not authenticated")
	}
	return a.current, nil
}

func (a *rotatingAuth) Refresh(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshCount++
	a.current = "refreshed"
	return a.current, nil
}

func (a *rotatingAuth) set(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = token
}

func TestTransport_StaleTokenRetriesWithoutRefresh(t *testing.T) {
	auth := &rotatingAuth{current: "old"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer old" {
			// Another caller rotated the token while this request was in flight.
			auth.set("new")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") == "Bearer new" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := transport.New(auth, nil).Client()
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 0, auth.refreshCount)
}

func TestTransport_NetworkErrorIsReturned(t *testing.T) {
	auth := &rotatingAuth{current: "tok"}
	client := transport.New(auth, nil).Client()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.Get(url)
	require.Error(t, err)
	require.NotErrorIs(t, err, transport.ErrSessionExpired)
	require.Equal(t, 0, auth.refreshCount)
}

func TestTransport_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := setupTestFixture(t)
	f.idp.RefreshFunc = func(ctx context.Context, refreshToken string) (*identity.Tokens, error) {
		// Long enough for every rejected request to join the same refresh.
		time.Sleep(200 * time.Millisecond)
		return &identity.Tokens{AccessToken: "AT2"}, nil
	}
	srv := newRecordingServer(t, "AT2")

	const callers = 8
	statuses := make([]int, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.http.Get(srv.URL + "/api/goals/")
			errs[i] = err
			if err == nil {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusOK, statuses[i])
	}
	require.Equal(t, 1, f.idp.RefreshCalls())

	cred, err := f.store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, credentials.Credential{AccessToken: "AT2", RefreshToken: "RT1"}, cred)
}

// cancellingAuth cancels the request's context while refreshing.
type cancellingAuth struct {
	cancel context.CancelFunc
}

func (a *cancellingAuth) AccessToken(ctx context.Context) (string, error) {
	return "old", nil
}

func (a *cancellingAuth) Refresh(ctx context.Context) (string, error) {
	a.cancel()
	return "", ctx.Err()
}

func TestTransport_CallerCancellationIsNotSessionExpiry(t *testing.T) {
	srv := newRecordingServer(t, "new")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := transport.New(&cancellingAuth{cancel: cancel}, nil).Client()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, transport.ErrSessionExpired)
}
