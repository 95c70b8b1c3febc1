package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Resource is a REST collection rooted at path, e.g. "/goals/".
type Resource[T any] struct {
	client *Client
	path   string
}

func newResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

func (r *Resource[T]) item(id string, suffix ...string) string {
	p := r.path + url.PathEscape(id) + "/"
	for _, s := range suffix {
		p += s + "/"
	}
	return p
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.client.Do(ctx, http.MethodGet, r.path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if err := r.client.Do(ctx, http.MethodGet, r.item(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Resource[T]) Create(ctx context.Context, item T) (*T, error) {
	var created T
	if err := r.client.Do(ctx, http.MethodPost, r.path, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, item T) (*T, error) {
	var updated T
	if err := r.client.Do(ctx, http.MethodPut, r.item(id), item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, http.MethodDelete, r.item(id), nil, nil)
}

type GoalsResource struct {
	*Resource[Goal]
}

// UpdateProgress sets a goal's progress, 0 to 100.
func (g *GoalsResource) UpdateProgress(ctx context.Context, id string, progress int) (*Goal, error) {
	var goal Goal
	body := map[string]int{"progress": progress}
	if err := g.client.Do(ctx, http.MethodPut, g.item(id, "progress"), body, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

type HabitsResource struct {
	*Resource[Habit]
}

// LogProgress records that the habit was done on date.
func (h *HabitsResource) LogProgress(ctx context.Context, id string, date time.Time) (*Habit, error) {
	var habit Habit
	body := map[string]string{"date": date.Format(DateLayout)}
	if err := h.client.Do(ctx, http.MethodPost, h.item(id, "log"), body, &habit); err != nil {
		return nil, err
	}
	return &habit, nil
}
