// Package redisstore keeps the credential pair in Redis, for clients that share
// one session across processes.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/dashboard-session/credentials"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
	prefix string
	keys   credentials.Keys
	ttl    time.Duration
}

var _ credentials.Store = (*Store)(nil)

type Option func(*Store)

// WithPrefix namespaces the two keys, e.g. "dashboard:<user>:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func WithKeys(keys credentials.Keys) Option {
	return func(s *Store) {
		s.keys = keys
	}
}

// WithTTL expires both keys together. Zero keeps them until cleared.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New creates a Redis-backed credential store.
func New(client *redis.Client, options ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "dashboard:",
		keys:   credentials.DefaultKeys(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) accessKey() string  { return s.prefix + s.keys.Access }
func (s *Store) refreshKey() string { return s.prefix + s.keys.Refresh }

func (s *Store) Load(ctx context.Context) (credentials.Credential, error) {
	vals, err := s.client.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return credentials.Credential{}, fmt.Errorf("redisstore: load: %w", err)
	}
	var cred credentials.Credential
	if len(vals) == 2 {
		cred.AccessToken, _ = vals[0].(string)
		cred.RefreshToken, _ = vals[1].(string)
	}
	return cred, nil
}

// Save writes both keys inside one MULTI/EXEC.
func (s *Store) Save(ctx context.Context, cred credentials.Credential) error {
	if !cred.Complete() {
		return credentials.ErrIncomplete
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(), cred.AccessToken, s.ttl)
		pipe.Set(ctx, s.refreshKey(), cred.RefreshToken, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: save: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("redisstore: clear: %w", err)
	}
	return nil
}
