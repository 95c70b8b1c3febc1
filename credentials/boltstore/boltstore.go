// Package boltstore provides a BBolt-backed credential store, so a session
// survives process restarts.
package boltstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/dashboard-session/credentials"
	"go.etcd.io/bbolt"
)

const defaultBucket = "session"

// Store implements credentials.Store on top of a BBolt database.
type Store struct {
	db     *bbolt.DB
	bucket []byte
	keys   credentials.Keys
}

var _ credentials.Store = (*Store)(nil)

type Option func(*Store)

// WithBucket overrides the bucket the tokens are kept in.
func WithBucket(name string) Option {
	return func(s *Store) {
		s.bucket = []byte(name)
	}
}

// WithKeys overrides the two storage key names.
func WithKeys(keys credentials.Keys) Option {
	return func(s *Store) {
		s.keys = keys
	}
}

// New returns a Store backed by the given BBolt database.
func New(db *bbolt.DB, options ...Option) *Store {
	s := &Store{
		db:     db,
		bucket: []byte(defaultBucket),
		keys:   credentials.DefaultKeys(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewFromFile opens (creating if needed) a BBolt database at path and returns a Store on it.
func NewFromFile(path string, boltOptions *bbolt.Options, options ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, boltOptions)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return New(db, options...), nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(_ context.Context) (credentials.Credential, error) {
	var cred credentials.Credential
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		cred.AccessToken = string(b.Get([]byte(s.keys.Access)))
		cred.RefreshToken = string(b.Get([]byte(s.keys.Refresh)))
		return nil
	})
	if err != nil {
		return credentials.Credential{}, fmt.Errorf("loading credential: %w", err)
	}
	return cred, nil
}

// Save writes both tokens in a single transaction.
func (s *Store) Save(_ context.Context, cred credentials.Credential) error {
	if !cred.Complete() {
		return credentials.ErrIncomplete
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(s.keys.Access), []byte(cred.AccessToken)); err != nil {
			return err
		}
		return b.Put([]byte(s.keys.Refresh), []byte(cred.RefreshToken))
	})
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Clear deletes both tokens in a single transaction.
func (s *Store) Clear(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(s.keys.Access)); err != nil {
			return err
		}
		return b.Delete([]byte(s.keys.Refresh))
	})
	if err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}
