package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/dashboard-session/api"
	"github.com/jrsteele09/dashboard-session/transport"
	"github.com/stretchr/testify/require"
)

type call struct {
	Method string
	Path   string
	Body   string
}

// stubServer answers every request with the configured status and body and
// records what it was asked.
type stubServer struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []call
	status int
	body   string
}

func newStubServer(t *testing.T, status int, body string) *stubServer {
	t.Helper()
	s := &stubServer{status: status, body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.calls = append(s.calls, call{Method: r.Method, Path: r.URL.Path, Body: string(raw)})
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.body))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *stubServer) lastCall() call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

func TestResource_Routes(t *testing.T) {
	ctx := context.Background()

	t.Run("list goals", func(t *testing.T) {
		srv := newStubServer(t, http.StatusOK, `[{"id":"g1","title":"Run","progress":40}]`)
		goals, err := api.New(srv.URL+"/api", nil).Goals().List(ctx)
		require.NoError(t, err)
		require.Len(t, goals, 1)
		require.Equal(t, "Run", goals[0].Title)
		require.Equal(t, 40, goals[0].Progress)
		require.Equal(t, call{Method: http.MethodGet, Path: "/api/goals/"}, srv.lastCall())
	})

	t.Run("create note", func(t *testing.T) {
		srv := newStubServer(t, http.StatusCreated, `{"id":"n1","title":"Idea"}`)
		note, err := api.New(srv.URL+"/api/", nil).Notes().Create(ctx, api.Note{Title: "Idea"})
		require.NoError(t, err)
		require.Equal(t, "n1", note.ID)

		got := srv.lastCall()
		require.Equal(t, http.MethodPost, got.Method)
		require.Equal(t, "/api/notes/", got.Path)
		require.JSONEq(t, `{"id":"","title":"Idea","created_at":"0001-01-01T00:00:00Z"}`, got.Body)
	})

	t.Run("update habit", func(t *testing.T) {
		srv := newStubServer(t, http.StatusOK, `{"id":"h1","name":"Read"}`)
		_, err := api.New(srv.URL+"/api", nil).Habits().Update(ctx, "h1", api.Habit{Name: "Read"})
		require.NoError(t, err)
		got := srv.lastCall()
		require.Equal(t, http.MethodPut, got.Method)
		require.Equal(t, "/api/habits/h1/", got.Path)
	})

	t.Run("delete goal", func(t *testing.T) {
		srv := newStubServer(t, http.StatusNoContent, "")
		require.NoError(t, api.New(srv.URL+"/api", nil).Goals().Delete(ctx, "g1"))
		require.Equal(t, call{Method: http.MethodDelete, Path: "/api/goals/g1/"}, srv.lastCall())
	})

	t.Run("goal progress", func(t *testing.T) {
		srv := newStubServer(t, http.StatusOK, `{"id":"g1","title":"Run","progress":75}`)
		goal, err := api.New(srv.URL+"/api", nil).Goals().UpdateProgress(ctx, "g1", 75)
		require.NoError(t, err)
		require.Equal(t, 75, goal.Progress)

		got := srv.lastCall()
		require.Equal(t, http.MethodPut, got.Method)
		require.Equal(t, "/api/goals/g1/progress/", got.Path)
		require.JSONEq(t, `{"progress":75}`, got.Body)
	})

	t.Run("habit log", func(t *testing.T) {
		srv := newStubServer(t, http.StatusOK, `{"id":"h1","name":"Read","log":["2026-10-19"]}`)
		day := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
		habit, err := api.New(srv.URL+"/api", nil).Habits().LogProgress(ctx, "h1", day)
		require.NoError(t, err)
		require.Equal(t, []string{"2026-10-19"}, habit.Log)

		got := srv.lastCall()
		require.Equal(t, http.MethodPost, got.Method)
		require.Equal(t, "/api/habits/h1/log/", got.Path)
		require.JSONEq(t, `{"date":"2026-10-19"}`, got.Body)
	})
}

func TestClient_Errors(t *testing.T) {
	srv := newStubServer(t, http.StatusBadRequest, `{"message":"Title is required"}`)

	_, err := api.New(srv.URL, nil).Notes().Create(context.Background(), api.Note{})
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "Title is required", apiErr.Message)
	require.Equal(t, "Title is required", api.UserMessage(err))
}

func TestUserMessage(t *testing.T) {
	network := &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}
	expired := &url.Error{Op: "Get", URL: "http://x", Err: fmt.Errorf("%w: revoked", transport.ErrSessionExpired)}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unauthorized", &api.Error{StatusCode: 401}, "Please login again"},
		{"forbidden", &api.Error{StatusCode: 403}, "You do not have permission to perform this action"},
		{"not found", &api.Error{StatusCode: 404}, "The requested resource was not found"},
		{"server", &api.Error{StatusCode: 500, Message: "boom"}, "Server error. Please try again later"},
		{"other with message", &api.Error{StatusCode: 409, Message: "Duplicate goal"}, "Duplicate goal"},
		{"other without message", &api.Error{StatusCode: 418}, "An error occurred"},
		{"session expired", expired, "Please login again"},
		{"network", network, "Network error. Please check your connection"},
		{"unknown", errors.New("boom"), "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, api.UserMessage(tt.err))
		})
	}
}

func TestClient_DecodesIntoModels(t *testing.T) {
	deadline := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal([]api.Goal{{ID: "g1", Title: "Ship", Deadline: &deadline}})
	require.NoError(t, err)
	srv := newStubServer(t, http.StatusOK, string(raw))

	goal, err := api.New(srv.URL, nil).Goals().List(context.Background())
	require.NoError(t, err)
	require.True(t, deadline.Equal(*goal[0].Deadline))
}
