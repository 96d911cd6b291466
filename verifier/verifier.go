// Package verifier validates access tokens presented by clients.
//
// The proxy never mints its own access tokens; clients hold whatever the
// upstream issued. Validity is therefore decided against the upstream (JWKS
// signature, expiry, issuer), not against the proxy's local bookkeeping: a
// token can verify successfully even when the proxy has no record of it,
// for example after a process restart.
package verifier

import (
	"context"
	"time"
)

// Identity is the result of a successful token verification.
type Identity struct {
	// Token is the raw access token that was verified.
	Token string

	// Subject is the token's sub claim.
	Subject string

	// ClientID identifies the OAuth application the token was issued to.
	// Taken from the client_id claim, falling back to sub.
	ClientID string

	// Scopes granted to the token.
	Scopes []string

	// Expiry is the token's expiration time.
	Expiry time.Time
}

// Verifier validates an access token and returns the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (*Identity, error)

// Verify implements Verifier.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Identity, error) {
	return f(ctx, token)
}
