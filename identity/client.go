// Package identity is the client side of the remote Identity Service: credential
// exchange, token refresh, profile retrieval and social-provider callbacks.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Identity Service routes, relative to the API base URL.
const (
	RouteLogin         = "/login/"
	RouteRefresh       = "/auth/refresh/"
	RouteProfile       = "/personal-info/"
	RouteProviderLogin = "/auth/%s/callback"
)

const (
	maxErrorBodyLength  = 4 << 10
	maxResponseBodySize = 1 << 20
)

// Client talks to the Identity Service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient sets the http client used for every call. It must not be the
// authenticating client, the identity endpoints carry their own credentials.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates an Identity Service client rooted at baseURL (e.g. "https://host/api").
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Login exchanges an identifier and secret for a token pair.
func (c *Client) Login(ctx context.Context, identifier, secret string) (*Tokens, error) {
	body := map[string]string{"email": identifier, "password": secret}
	resp, err := c.doJSON(ctx, http.MethodPost, RouteLogin, "", body)
	if err != nil {
		return nil, err
	}
	return pairFromResponse(resp, "access", "refresh")
}

// Refresh mints a new access token. The returned RefreshToken is only set when
// the server rotated it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	body := map[string]string{"refresh": refreshToken}
	resp, err := c.doJSON(ctx, http.MethodPost, RouteRefresh, "", body)
	if err != nil {
		return nil, err
	}
	access, _ := resp["access"].(string)
	if access == "" {
		return nil, fmt.Errorf("%w: refresh response has no access token", ErrMalformedResponse)
	}
	rotated, _ := resp["refresh"].(string)
	return &Tokens{AccessToken: access, RefreshToken: rotated}, nil
}

// Profile fetches the identity fields for the bearer of accessToken. Every
// failure is reported as ErrProfileFetchFailed.
func (c *Client) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, RouteProfile, accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetchFailed, err)
	}
	return profileFromMap(resp), nil
}

// ProviderLogin completes a social login by handing the provider's
// authorization code to the Identity Service.
func (c *Client) ProviderLogin(ctx context.Context, provider, code string) (*Tokens, error) {
	path := fmt.Sprintf(RouteProviderLogin, url.PathEscape(provider))
	resp, err := c.doJSON(ctx, http.MethodPost, path, "", map[string]string{"code": code})
	if err != nil {
		return nil, err
	}
	if _, ok := resp["access_token"]; ok {
		return pairFromResponse(resp, "access_token", "refresh_token")
	}
	return pairFromResponse(resp, "access", "refresh")
}

func pairFromResponse(resp map[string]any, accessKey, refreshKey string) (*Tokens, error) {
	access, _ := resp[accessKey].(string)
	refresh, _ := resp[refreshKey].(string)
	if access == "" || refresh == "" {
		return nil, fmt.Errorf("%w: expected both %q and %q", ErrMalformedResponse, accessKey, refreshKey)
	}
	tokens := &Tokens{AccessToken: access, RefreshToken: refresh}
	if p := profileFromMap(resp, accessKey, refreshKey, "token_type", "expires_in", "scope"); !p.isZero() {
		tokens.Profile = p
	}
	return tokens, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, bearer string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("identity request failed")
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Detail: errorDetail(raw), Kind: ErrCredentialRejected}
		if resp.StatusCode >= 500 {
			statusErr.Kind = ErrNetworkUnavailable
		}
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("identity request rejected")
		return nil, statusErr
	}

	var decoded map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if decoded == nil {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	return decoded, nil
}

// errorDetail pulls a human readable reason out of an error body.
func errorDetail(raw []byte) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, k := range []string{"detail", "message", "error_description", "error"} {
		if s, ok := body[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
