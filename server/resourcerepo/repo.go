// Package resourcerepo stores the dashboard collections (goals, habits, notes)
// of each user.
package resourcerepo

import "errors"

var ErrNotFound = errors.New("resource not found")

// Repo holds the items of one collection, partitioned by owner.
type Repo[T any] interface {
	List(ownerID string) ([]T, error)
	Get(ownerID, id string) (T, error)
	Upsert(ownerID, id string, item T) error
	Delete(ownerID, id string) error
}
