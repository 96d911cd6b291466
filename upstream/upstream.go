// Package upstream implements the proxy's client side toward the one fixed
// upstream authorization server that every dynamic registration collapses
// onto. The upstream never sees PKCE parameters or per-client identities;
// it sees a single registered application.
package upstream

import (
	"context"

	"golang.org/x/oauth2"
)

// Exchanger is the interface the proxy uses to talk to the upstream
// authorization server.
type Exchanger interface {
	// Name returns a short identifier for logging (e.g., "google", "upstream")
	Name() string

	// AuthorizationURL builds the upstream authorization request URL carrying
	// the given state. When scopes is non-empty it overrides the configured
	// default scopes. No PKCE parameters are included; PKCE terminates at the
	// proxy.
	AuthorizationURL(state string, scopes []string) string

	// ExchangeCode exchanges an upstream authorization code for tokens using
	// the proxy's fixed callback redirect URI
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// Refresh obtains a fresh token using a refresh token
	Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error)

	// Revoke revokes a token at the upstream revocation endpoint
	Revoke(ctx context.Context, token string) error
}

// RefreshResult is the outcome of a refresh call. Rotated reports whether the
// upstream returned a replacement refresh token different from the one sent;
// when the upstream omits the field or echoes the same value, the original
// refresh token remains valid.
type RefreshResult struct {
	Token   *oauth2.Token
	Rotated bool
}
