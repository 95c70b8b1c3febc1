package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/dashboard-session/credentials"
)

var _ credentials.Store = (*Store)(nil)

// Store keeps the two token slots in memory.
type Store struct {
	values map[string]string
	keys   credentials.Keys
	lock   sync.RWMutex
}

func New() *Store {
	return &Store{
		values: make(map[string]string),
		keys:   credentials.DefaultKeys(),
	}
}

func (s *Store) Load(_ context.Context) (credentials.Credential, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return credentials.Credential{
		AccessToken:  s.values[s.keys.Access],
		RefreshToken: s.values[s.keys.Refresh],
	}, nil
}

func (s *Store) Save(_ context.Context, cred credentials.Credential) error {
	if !cred.Complete() {
		return credentials.ErrIncomplete
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[s.keys.Access] = cred.AccessToken
	s.values[s.keys.Refresh] = cred.RefreshToken
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.values, s.keys.Access)
	delete(s.values, s.keys.Refresh)
	return nil
}

// Set writes a single raw slot, bypassing the pair check. Tests use it to
// reproduce a half-written store.
func (s *Store) Set(key, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if value == "" {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Raw returns the raw value of a single slot.
func (s *Store) Raw(key string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[key]
	return v, ok
}
