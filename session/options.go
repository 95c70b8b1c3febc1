package session

import (
	"time"

	"github.com/jrsteele09/dashboard-session/internal/config"
	"github.com/rs/zerolog"
)

const (
	defaultLoginTimeout   = 10 * time.Second
	defaultRefreshTimeout = 10 * time.Second
	defaultProfileTimeout = 5 * time.Second
)

// Option defines a function type to modify the Manager instance.
type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithLoginTimeout bounds the credential exchange of Login and LoginWithProvider.
func WithLoginTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.loginTimeout = d
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshTimeout = d
	}
}

func WithProfileTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.profileTimeout = d
	}
}

// WithConfig takes all three timeouts from cfg.
func WithConfig(cfg config.SessionConfig) Option {
	return func(m *Manager) {
		m.loginTimeout = cfg.GetLoginTimeout()
		m.refreshTimeout = cfg.GetRefreshTimeout()
		m.profileTimeout = cfg.GetProfileTimeout()
	}
}

// WithNowFunc sets the clock used for token expiry checks (primarily for testing)
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}
