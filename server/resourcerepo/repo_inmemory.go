package resourcerepo

import (
	"fmt"
	"sync"
)

var _ Repo[struct{}] = (*InMemoryRepo[struct{}])(nil)

// InMemoryRepo is an in-memory implementation of Repo. List returns items in
// insertion order.
type InMemoryRepo[T any] struct {
	mu    sync.RWMutex
	items map[string]map[string]T // ownerID -> itemID -> item
	order map[string][]string     // ownerID -> itemIDs
}

func NewInMemoryRepo[T any]() *InMemoryRepo[T] {
	return &InMemoryRepo[T]{
		items: make(map[string]map[string]T),
		order: make(map[string][]string),
	}
}

func (r *InMemoryRepo[T]) List(ownerID string) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, 0, len(r.order[ownerID]))
	for _, id := range r.order[ownerID] {
		out = append(out, r.items[ownerID][id])
	}
	return out, nil
}

func (r *InMemoryRepo[T]) Get(ownerID, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[ownerID][id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return item, nil
}

func (r *InMemoryRepo[T]) Upsert(ownerID, id string, item T) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is required")
	}
	if id == "" {
		return fmt.Errorf("id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[ownerID]; !ok {
		r.items[ownerID] = make(map[string]T)
	}
	if _, exists := r.items[ownerID][id]; !exists {
		r.order[ownerID] = append(r.order[ownerID], id)
	}
	r.items[ownerID][id] = item
	return nil
}

func (r *InMemoryRepo[T]) Delete(ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned, ok := r.items[ownerID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := owned[id]; !ok {
		return ErrNotFound
	}
	delete(owned, id)

	ids := r.order[ownerID]
	for i, v := range ids {
		if v == id {
			r.order[ownerID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}

	// Clean up empty owner map
	if len(owned) == 0 {
		delete(r.items, ownerID)
		delete(r.order, ownerID)
	}
	return nil
}
