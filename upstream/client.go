package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds every upstream call when no custom HTTP client
// is provided.
const DefaultHTTPTimeout = 30 * time.Second

// Config holds the fixed upstream application registration and endpoints.
type Config struct {
	// Name identifies the upstream in logs (e.g., "google"). Defaults to "upstream".
	Name string

	// ClientID and ClientSecret are the credentials of the one application
	// registered at the upstream by hand.
	ClientID     string
	ClientSecret string

	// AuthorizeEndpoint and TokenEndpoint are the upstream OAuth endpoints.
	AuthorizeEndpoint string
	TokenEndpoint     string

	// RevocationEndpoint is optional; Revoke fails when it is unset.
	RevocationEndpoint string

	// RedirectURL is the proxy's own callback URL, registered at the upstream.
	RedirectURL string

	// Scopes are the default scopes requested when a client supplies none.
	Scopes []string

	// HTTPClient optionally overrides the HTTP client used for all calls.
	HTTPClient *http.Client
}

// Client is an Exchanger backed by a single fixed upstream app registration.
type Client struct {
	name               string
	config             *oauth2.Config
	revocationEndpoint string
	httpClient         *http.Client
}

var _ Exchanger = (*Client)(nil)

// NewClient creates an upstream client from explicit endpoints.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.AuthorizeEndpoint == "" {
		return nil, fmt.Errorf("authorize endpoint is required")
	}
	if cfg.TokenEndpoint == "" {
		return nil, fmt.Errorf("token endpoint is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("redirect URL is required")
	}

	name := cfg.Name
	if name == "" {
		name = "upstream"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultHTTPTimeout,
		}
	}

	return &Client{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeEndpoint,
				TokenURL: cfg.TokenEndpoint,
			},
		},
		revocationEndpoint: cfg.RevocationEndpoint,
		httpClient:         httpClient,
	}, nil
}

// NewClientFromIssuer builds a client by discovering the upstream's endpoints
// from its OIDC issuer metadata. Endpoints already set in cfg win over
// discovered ones.
func NewClientFromIssuer(ctx context.Context, issuer string, cfg *Config, discovery *DiscoveryClient) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if discovery == nil {
		discovery = NewDiscoveryClient(cfg.HTTPClient, 0, nil)
	}

	doc, err := discovery.Discover(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover upstream endpoints: %w", err)
	}

	resolved := *cfg
	if resolved.AuthorizeEndpoint == "" {
		resolved.AuthorizeEndpoint = doc.AuthorizationEndpoint
	}
	if resolved.TokenEndpoint == "" {
		resolved.TokenEndpoint = doc.TokenEndpoint
	}
	if resolved.RevocationEndpoint == "" {
		resolved.RevocationEndpoint = doc.RevocationEndpoint
	}

	return NewClient(&resolved)
}

// Name returns the upstream identifier
func (c *Client) Name() string {
	return c.name
}

// AuthorizationURL builds the upstream authorization URL.
// The separator before the query follows the endpoint: endpoints that already
// carry a query string get "&", others get "?".
func (c *Client) AuthorizationURL(state string, scopes []string) string {
	if len(scopes) > 0 {
		tempConfig := *c.config
		tempConfig.Scopes = scopes
		return tempConfig.AuthCodeURL(state)
	}
	return c.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an upstream authorization code for tokens.
// The proxy's fixed callback is sent as redirect_uri; no code_verifier is
// ever included.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}

	// Use custom HTTP client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return token, nil
}

// Refresh obtains a fresh token from the upstream using a refresh token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	// Use custom HTTP client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tokenSource := c.config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
	})

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	// The token source echoes the request's refresh token back when the
	// upstream omits the field, so an unchanged value means no rotation.
	rotated := newToken.RefreshToken != "" && newToken.RefreshToken != refreshToken

	return &RefreshResult{
		Token:   newToken,
		Rotated: rotated,
	}, nil
}

// Revoke revokes a token at the upstream revocation endpoint using the fixed
// application credentials.
func (c *Client) Revoke(ctx context.Context, token string) error {
	if c.revocationEndpoint == "" {
		return fmt.Errorf("no revocation endpoint configured")
	}
	if token == "" {
		return fmt.Errorf("token is required")
	}

	data := url.Values{}
	data.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revocationEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Credentials are form-urlencoded per RFC 6749 section 2.3.1
	req.SetBasicAuth(url.QueryEscape(c.config.ClientID), url.QueryEscape(c.config.ClientSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("token revocation failed with status %d", resp.StatusCode)
	}

	return nil
}
