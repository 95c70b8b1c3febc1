package identityfake

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/dashboard-session/identity"
)

// FakeIdentityService is an in-memory Identity Service. By default it accepts
// registered users, issues sequential tokens (AT1, RT1, AT2 ...) and serves
// registered profiles. Any of the *Func hooks replaces the default behaviour.
type FakeIdentityService struct {
	LoginFunc         func(ctx context.Context, identifier, secret string) (*identity.Tokens, error)
	RefreshFunc       func(ctx context.Context, refreshToken string) (*identity.Tokens, error)
	ProfileFunc       func(ctx context.Context, accessToken string) (*identity.Profile, error)
	ProviderLoginFunc func(ctx context.Context, provider, code string) (*identity.Tokens, error)

	// Rotate makes Refresh issue a new refresh token too.
	Rotate bool

	loginCalls    atomic.Int32
	refreshCalls  atomic.Int32
	profileCalls  atomic.Int32
	providerCalls atomic.Int32

	lock          sync.Mutex
	secrets       map[string]string
	profiles      map[string]*identity.Profile
	accessOwners  map[string]string // access token -> identifier
	refreshOwners map[string]string // refresh token -> identifier
	accessSeq     int
	refreshSeq    int
}

func New() *FakeIdentityService {
	return &FakeIdentityService{
		secrets:       make(map[string]string),
		profiles:      make(map[string]*identity.Profile),
		accessOwners:  make(map[string]string),
		refreshOwners: make(map[string]string),
	}
}

// AddUser registers an identifier/secret pair with an optional profile.
func (f *FakeIdentityService) AddUser(identifier, secret string, profile *identity.Profile) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.secrets[identifier] = secret
	if profile != nil {
		f.profiles[identifier] = profile
	}
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (f *FakeIdentityService) RevokeRefreshTokens() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.refreshOwners = make(map[string]string)
}

func (f *FakeIdentityService) LoginCalls() int    { return int(f.loginCalls.Load()) }
func (f *FakeIdentityService) RefreshCalls() int  { return int(f.refreshCalls.Load()) }
func (f *FakeIdentityService) ProfileCalls() int  { return int(f.profileCalls.Load()) }
func (f *FakeIdentityService) ProviderCalls() int { return int(f.providerCalls.Load()) }

func (f *FakeIdentityService) Login(ctx context.Context, identifier, secret string) (*identity.Tokens, error) {
	f.loginCalls.Add(1)
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx, identifier, secret)
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if s, ok := f.secrets[identifier]; !ok || s != secret {
		return nil, &identity.StatusError{StatusCode: 401, Detail: "No active account found with the given credentials", Kind: identity.ErrCredentialRejected}
	}
	return &identity.Tokens{
		AccessToken:  f.issueAccessLocked(identifier),
		RefreshToken: f.issueRefreshLocked(identifier),
	}, nil
}

func (f *FakeIdentityService) Refresh(ctx context.Context, refreshToken string) (*identity.Tokens, error) {
	f.refreshCalls.Add(1)
	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx, refreshToken)
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	owner, ok := f.refreshOwners[refreshToken]
	if !ok {
		return nil, &identity.StatusError{StatusCode: 401, Detail: "Token is invalid or expired", Kind: identity.ErrCredentialRejected}
	}
	tokens := &identity.Tokens{AccessToken: f.issueAccessLocked(owner)}
	if f.Rotate {
		delete(f.refreshOwners, refreshToken)
		tokens.RefreshToken = f.issueRefreshLocked(owner)
	}
	return tokens, nil
}

func (f *FakeIdentityService) Profile(ctx context.Context, accessToken string) (*identity.Profile, error) {
	f.profileCalls.Add(1)
	if f.ProfileFunc != nil {
		return f.ProfileFunc(ctx, accessToken)
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	owner, ok := f.accessOwners[accessToken]
	if !ok {
		return nil, fmt.Errorf("%w: unknown access token", identity.ErrProfileFetchFailed)
	}
	p, ok := f.profiles[owner]
	if !ok {
		return nil, fmt.Errorf("%w: no personal info", identity.ErrProfileFetchFailed)
	}
	return p.Clone(), nil
}

func (f *FakeIdentityService) ProviderLogin(ctx context.Context, provider, code string) (*identity.Tokens, error) {
	f.providerCalls.Add(1)
	if f.ProviderLoginFunc != nil {
		return f.ProviderLoginFunc(ctx, provider, code)
	}
	return nil, &identity.StatusError{StatusCode: 404, Detail: "unknown provider", Kind: identity.ErrCredentialRejected}
}

func (f *FakeIdentityService) issueAccessLocked(owner string) string {
	f.accessSeq++
	token := fmt.Sprintf("AT%d", f.accessSeq)
	f.accessOwners[token] = owner
	return token
}

func (f *FakeIdentityService) issueRefreshLocked(owner string) string {
	f.refreshSeq++
	token := fmt.Sprintf("RT%d", f.refreshSeq)
	f.refreshOwners[token] = owner
	return token
}
