// Package session owns the authenticated/unauthenticated state of the
// dashboard client: login, logout, silent token refresh and best-effort
// identity enrichment.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/jrsteele09/dashboard-session/credentials"
	"github.com/jrsteele09/dashboard-session/identity"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// IdentityService is the remote side of the session: credential exchange,
// token refresh and profile retrieval. *identity.Client implements it.
type IdentityService interface {
	Login(ctx context.Context, identifier, secret string) (*identity.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Tokens, error)
	Profile(ctx context.Context, accessToken string) (*identity.Profile, error)
	ProviderLogin(ctx context.Context, provider, code string) (*identity.Tokens, error)
}

// Manager is the single writer of the persisted credential and the source of
// truth for the session status.
type Manager struct {
	store credentials.Store
	idp   IdentityService
	log   zerolog.Logger

	loginTimeout   time.Duration
	refreshTimeout time.Duration
	profileTimeout time.Duration
	nowFunc        func() time.Time

	// writeLock serialises store writes with epoch changes so a stale
	// operation can never persist over a newer login or logout.
	writeLock sync.Mutex

	mu       sync.RWMutex
	status   Status
	identity *identity.Profile
	epoch    uint64
	watchers map[int]func(State)
	watchSeq int

	refreshGroup singleflight.Group

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New creates a Manager in the unauthenticated state. Call Initialize before use.
func New(store credentials.Store, idp IdentityService, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[session.New] credential store is required")
	}
	if idp == nil {
		return nil, errors.New("[session.New] identity service is required")
	}

	m := &Manager{
		store:          store,
		idp:            idp,
		log:            zerolog.Nop(),
		loginTimeout:   defaultLoginTimeout,
		refreshTimeout: defaultRefreshTimeout,
		profileTimeout: defaultProfileTimeout,
		nowFunc:        time.Now,
		status:         StatusUnauthenticated,
		watchers:       make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(m)
	}
	m.bgCtx, m.bgCancel = context.WithCancel(context.Background())
	return m, nil
}

// Initialize restores the session from the store. A complete credential makes
// the session authenticated immediately and enriches the identity in the
// background. A half-written credential is deleted. It always leaves the
// session authenticated or unauthenticated.
func (m *Manager) Initialize(ctx context.Context) error {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	cred, err := m.store.Load(ctx)
	if err != nil {
		m.bumpEpoch()
		m.setState(StatusUnauthenticated, nil)
		return fmt.Errorf("loading credential: %w", err)
	}

	switch {
	case cred.Complete():
		epoch := m.bumpEpoch()
		m.setState(StatusAuthenticated, nil)
		m.log.Debug().Msg("session restored from store")
		m.enrich(epoch, cred.AccessToken)
		return nil
	case cred.Corrupt():
		m.log.Warn().
			Bool("has_access", cred.AccessToken != "").
			Bool("has_refresh", cred.RefreshToken != "").
			Msg("discarding half-written credential")
		m.bumpEpoch()
		m.setState(StatusUnauthenticated, nil)
		if err := m.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing stray credential: %w", err)
		}
		return nil
	default:
		m.bumpEpoch()
		m.setState(StatusUnauthenticated, nil)
		return nil
	}
}

// Login exchanges identifier and secret for a token pair. Nothing is persisted
// unless both tokens come back. The returned error is classified by the
// identity package sentinels, see UserMessage.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	return m.login(ctx, identifier, func(ctx context.Context) (*identity.Tokens, error) {
		return m.idp.Login(ctx, identifier, secret)
	})
}

// LoginWithProvider completes a social login with the provider's authorization code.
func (m *Manager) LoginWithProvider(ctx context.Context, provider, code string) error {
	return m.login(ctx, "", func(ctx context.Context) (*identity.Tokens, error) {
		return m.idp.ProviderLogin(ctx, provider, code)
	})
}

func (m *Manager) login(ctx context.Context, identifier string, exchange func(context.Context) (*identity.Tokens, error)) error {
	m.writeLock.Lock()
	epoch := m.bumpEpoch()
	m.setState(StatusAuthenticating, nil)
	m.writeLock.Unlock()

	lctx, cancel := context.WithTimeout(ctx, m.loginTimeout)
	tokens, err := exchange(lctx)
	cancel()
	if err == nil && (tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "") {
		err = fmt.Errorf("%w: login response is missing a token", identity.ErrMalformedResponse)
	}
	if err != nil {
		m.log.Info().Err(err).Msg("login failed")
		m.endSession(ctx, epoch)
		return err
	}

	known := &identity.Profile{}
	if _, perr := mail.ParseAddress(identifier); perr == nil {
		known.Email = identifier
	}
	known = known.Merge(tokens.Profile)

	cred := credentials.Credential{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	err = m.commit(ctx, epoch, cred, func() {
		m.status = StatusAuthenticated
		m.identity = known
	})
	if err != nil {
		if !errors.Is(err, ErrSessionEnded) {
			m.log.Error().Err(err).Msg("persisting credential failed")
			m.endSession(ctx, epoch)
		}
		return err
	}

	m.log.Info().Str("identifier", identifier).Msg("logged in")
	m.enrich(epoch, cred.AccessToken)
	return nil
}

// Logout clears both tokens and the identity. It always succeeds from the
// caller's point of view; in-flight refreshes and enrichments are discarded.
func (m *Manager) Logout(ctx context.Context) {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()
	m.logoutLocked(ctx)
}

// Refresh renews the access token with the persisted refresh token and returns
// the new access token. Concurrent callers share a single in-flight refresh
// and all observe its outcome. Any failure logs the session out. A refresh
// requested while a login is in flight is refused with ErrSessionEnded.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.refreshGroup.DoChan(refreshKey, func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.doRefresh(rctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	m.writeLock.Lock()
	if m.Status() == StatusAuthenticating {
		// A login owns the store until it settles.
		m.writeLock.Unlock()
		return "", ErrSessionEnded
	}
	cred, err := m.store.Load(ctx)
	if err != nil || cred.RefreshToken == "" {
		m.logoutLocked(ctx)
		m.writeLock.Unlock()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNoRefreshToken, err)
		}
		return "", ErrNoRefreshToken
	}
	epoch := m.currentEpoch()
	m.setState(StatusRefreshing, m.Identity())
	m.writeLock.Unlock()

	tokens, err := m.idp.Refresh(ctx, cred.RefreshToken)
	if err == nil && (tokens == nil || tokens.AccessToken == "") {
		err = fmt.Errorf("%w: refresh response has no access token", identity.ErrMalformedResponse)
	}
	if err != nil {
		m.log.Info().Err(err).Msg("token refresh failed, logging out")
		if !m.endSession(ctx, epoch) {
			return "", fmt.Errorf("%w: %w", ErrSessionEnded, err)
		}
		return "", err
	}

	next := credentials.Credential{AccessToken: tokens.AccessToken, RefreshToken: cred.RefreshToken}
	if tokens.RefreshToken != "" {
		next.RefreshToken = tokens.RefreshToken
	}
	err = m.commit(ctx, epoch, next, func() {
		m.status = StatusAuthenticated
	})
	if err != nil {
		if !errors.Is(err, ErrSessionEnded) {
			m.log.Error().Err(err).Msg("persisting refreshed credential failed")
			m.endSession(ctx, epoch)
		}
		return "", err
	}

	m.log.Debug().Bool("rotated", tokens.RefreshToken != "").Msg("access token refreshed")
	return next.AccessToken, nil
}

// AccessToken returns the current access token, read from the store on every
// call so a rotated token is always picked up.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	if !m.Status().IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	cred, err := m.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading credential: %w", err)
	}
	if cred.AccessToken == "" {
		return "", ErrNotAuthenticated
	}
	return cred.AccessToken, nil
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Identity returns a copy of the known identity, nil when nothing is known.
func (m *Manager) Identity() *identity.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity.Clone()
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

// IsAuthenticated treats refreshing as authenticated.
func (m *Manager) IsAuthenticated() bool {
	return m.Status().IsAuthenticated()
}

// Watch registers fn to be called with the new state after every change.
// fn runs on the goroutine that made the change. It may read the Manager but
// must not call Login, Logout, Refresh or Initialize synchronously.
func (m *Manager) Watch(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.watchSeq
	m.watchSeq++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

// Wait blocks until background identity enrichment has finished.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// Close cancels background work and waits for it.
func (m *Manager) Close() error {
	m.bgCancel()
	m.bg.Wait()
	return nil
}

// enrich fetches the profile in the background. Failure never touches status.
func (m *Manager) enrich(epoch uint64, accessToken string) {
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		ctx, cancel := context.WithTimeout(m.bgCtx, m.profileTimeout)
		defer cancel()

		profile, err := m.idp.Profile(ctx, accessToken)
		if err != nil {
			m.log.Debug().Err(err).Msg("no personal info found for user")
			return
		}

		m.mu.Lock()
		if m.epoch != epoch || !m.status.IsAuthenticated() {
			m.mu.Unlock()
			return
		}
		m.identity = m.identity.Merge(profile)
		state, watchers := m.stateLocked(), m.watchersLocked()
		m.mu.Unlock()
		notify(watchers, state)
	}()
}

// commit persists cred and applies mutate, unless epoch is no longer current.
// The store write always lands before the status change is visible.
func (m *Manager) commit(ctx context.Context, epoch uint64, cred credentials.Credential, mutate func()) error {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	if m.currentEpoch() != epoch {
		return ErrSessionEnded
	}
	if err := m.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}

	m.mu.Lock()
	mutate()
	state, watchers := m.stateLocked(), m.watchersLocked()
	m.mu.Unlock()
	notify(watchers, state)
	return nil
}

// endSession logs out if epoch is still current and reports whether it did.
func (m *Manager) endSession(ctx context.Context, epoch uint64) bool {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()
	if m.currentEpoch() != epoch {
		return false
	}
	m.logoutLocked(ctx)
	return true
}

// logoutLocked must be called with writeLock held.
func (m *Manager) logoutLocked(ctx context.Context) {
	m.bumpEpoch()
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.log.Error().Err(err).Msg("clearing credential failed")
	}
	if m.Status() != StatusUnauthenticated {
		m.log.Info().Msg("logged out")
	}
	m.setState(StatusUnauthenticated, nil)
}

func (m *Manager) bumpEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	return m.epoch
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

func (m *Manager) setState(status Status, id *identity.Profile) {
	m.mu.Lock()
	if m.status == status && id == nil && m.identity == nil {
		m.mu.Unlock()
		return
	}
	m.status = status
	m.identity = id
	state, watchers := m.stateLocked(), m.watchersLocked()
	m.mu.Unlock()
	notify(watchers, state)
}

func (m *Manager) stateLocked() State {
	return State{Status: m.status, Identity: m.identity.Clone()}
}

func (m *Manager) watchersLocked() []func(State) {
	if len(m.watchers) == 0 {
		return nil
	}
	out := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []func(State), state State) {
	for _, fn := range watchers {
		fn(state)
	}
}
