package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/dashboard-session/api"
	"github.com/jrsteele09/dashboard-session/internal/errors"
	"github.com/jrsteele09/dashboard-session/server/resourcerepo"
)

// collection serves the CRUD routes of one resource type. Every item belongs
// to the authenticated user.
type collection[T any] struct {
	s     *Server
	name  string
	repo  resourcerepo.Repo[T]
	stamp func(item *T, id string, createdAt time.Time)
	// created returns the creation time of a stored item
	created func(item T) time.Time
}

func goalsCollection(s *Server) *collection[api.Goal] {
	return &collection[api.Goal]{
		s:    s,
		name: "goal",
		repo: s.goals,
		stamp: func(g *api.Goal, id string, createdAt time.Time) {
			g.ID, g.CreatedAt = id, createdAt
		},
		created: func(g api.Goal) time.Time { return g.CreatedAt },
	}
}

func habitsCollection(s *Server) *collection[api.Habit] {
	return &collection[api.Habit]{
		s:    s,
		name: "habit",
		repo: s.habits,
		stamp: func(h *api.Habit, id string, createdAt time.Time) {
			h.ID, h.CreatedAt = id, createdAt
		},
		created: func(h api.Habit) time.Time { return h.CreatedAt },
	}
}

func notesCollection(s *Server) *collection[api.Note] {
	return &collection[api.Note]{
		s:    s,
		name: "note",
		repo: s.notes,
		stamp: func(n *api.Note, id string, createdAt time.Time) {
			n.ID, n.CreatedAt = id, createdAt
		},
		created: func(n api.Note) time.Time { return n.CreatedAt },
	}
}

func (c *collection[T]) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := c.repo.List(userIDFromContext(r.Context()))
		if err != nil {
			c.internalError(w, err, "listing")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (c *collection[T]) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item T
		if !c.s.decodeAndValidate(w, r, &item) {
			return
		}
		id := uuid.NewString()
		c.stamp(&item, id, time.Now().UTC())

		if err := c.repo.Upsert(userIDFromContext(r.Context()), id, item); err != nil {
			c.internalError(w, err, "creating")
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func (c *collection[T]) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, ok := c.load(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// Update replaces an item. The id and creation time cannot be changed.
func (c *collection[T]) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		existing, ok := c.load(w, r)
		if !ok {
			return
		}
		var item T
		if !c.s.decodeAndValidate(w, r, &item) {
			return
		}
		c.stamp(&item, r.PathValue("id"), c.created(existing))

		if err := c.repo.Upsert(userIDFromContext(r.Context()), r.PathValue("id"), item); err != nil {
			c.internalError(w, err, "updating")
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func (c *collection[T]) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := c.repo.Delete(userIDFromContext(r.Context()), r.PathValue("id"))
		if errors.Is(err, resourcerepo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		if err != nil {
			c.internalError(w, err, "deleting")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// load fetches the item named by the {id} path value, writing a 404 when the
// caller does not own one.
func (c *collection[T]) load(w http.ResponseWriter, r *http.Request) (T, bool) {
	item, err := c.repo.Get(userIDFromContext(r.Context()), r.PathValue("id"))
	if errors.Is(err, resourcerepo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return item, false
	}
	if err != nil {
		c.internalError(w, err, "loading")
		return item, false
	}
	return item, true
}

func (c *collection[T]) internalError(w http.ResponseWriter, err error, action string) {
	c.s.log.Error().Err(err).Str("resource", c.name).Msg(action)
	writeError(w, http.StatusInternalServerError, "Server error")
}

type goalProgressRequest struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}

// GoalProgressHandler sets the progress of a goal (PUT /api/goals/{id}/progress/)
func (s *Server) GoalProgressHandler() http.HandlerFunc {
	goals := goalsCollection(s)
	return func(w http.ResponseWriter, r *http.Request) {
		goal, ok := goals.load(w, r)
		if !ok {
			return
		}
		var req goalProgressRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
		goal.Progress = *req.Progress

		if err := s.goals.Upsert(userIDFromContext(r.Context()), goal.ID, goal); err != nil {
			goals.internalError(w, err, "updating progress")
			return
		}
		writeJSON(w, http.StatusOK, goal)
	}
}

type habitLogRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// HabitLogHandler records a day on which a habit was kept (POST /api/habits/{id}/log/).
// Logging the same day twice is a no-op.
func (s *Server) HabitLogHandler() http.HandlerFunc {
	habits := habitsCollection(s)
	return func(w http.ResponseWriter, r *http.Request) {
		habit, ok := habits.load(w, r)
		if !ok {
			return
		}
		var req habitLogRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}

		if !slices.Contains(habit.Log, req.Date) {
			habit.Log = append(slices.Clone(habit.Log), req.Date)
			slices.Sort(habit.Log)
		}
		if err := s.habits.Upsert(userIDFromContext(r.Context()), habit.ID, habit); err != nil {
			habits.internalError(w, err, "logging habit")
			return
		}
		writeJSON(w, http.StatusOK, habit)
	}
}
