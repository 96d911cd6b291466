package verifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Options configures an OIDCVerifier.
type Options struct {
	// Audience, when set, must appear in the token's aud claim.
	// Empty disables the audience check (access tokens are commonly
	// addressed to a resource, not to this proxy).
	Audience string

	// SupportedAlgs restricts accepted signing algorithms. Defaults to RS256.
	SupportedAlgs []string

	// HTTPClient overrides the client used for discovery and JWKS fetches.
	HTTPClient *http.Client
}

// OIDCVerifier validates JWT access tokens against an upstream issuer's
// signing keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

// NewOIDC creates a verifier whose keys are fetched from the issuer's JWKS
// endpoint, located via OIDC discovery.
func NewOIDC(ctx context.Context, issuer string, opts *Options) (*OIDCVerifier, error) {
	if issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if opts == nil {
		opts = &Options{}
	}

	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover issuer: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(oidcConfig(opts)),
	}, nil
}

// NewOIDCWithKeySet creates a verifier from an explicit key set, bypassing
// discovery. Useful with oidc.StaticKeySet when the upstream's keys are
// pinned, and in tests.
func NewOIDCWithKeySet(issuer string, keySet oidc.KeySet, opts *Options) *OIDCVerifier {
	if opts == nil {
		opts = &Options{}
	}
	return &OIDCVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, oidcConfig(opts)),
	}
}

func oidcConfig(opts *Options) *oidc.Config {
	cfg := &oidc.Config{
		ClientID:             opts.Audience,
		SupportedSigningAlgs: opts.SupportedAlgs,
	}
	if cfg.ClientID == "" {
		cfg.SkipClientIDCheck = true
	}
	if len(cfg.SupportedSigningAlgs) == 0 {
		cfg.SupportedSigningAlgs = []string{oidc.RS256}
	}
	return cfg
}

// Verify checks the token's signature, issuer, expiry, and (when configured)
// audience, and maps its claims to an Identity.
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	verified, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}

	var claims map[string]interface{}
	if err := verified.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	clientID, _ := claims["client_id"].(string)
	if clientID == "" {
		clientID = verified.Subject
	}

	return &Identity{
		Token:    token,
		Subject:  verified.Subject,
		ClientID: clientID,
		Scopes:   extractScopes(claims),
		Expiry:   verified.Expiry,
	}, nil
}

// extractScopes reads the scope claim, which providers encode either as a
// space-separated string or as a list.
func extractScopes(claims map[string]interface{}) []string {
	switch scope := claims["scope"].(type) {
	case string:
		return strings.Fields(scope)
	case []interface{}:
		scopes := make([]string, 0, len(scope))
		for _, s := range scope {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	}
	return nil
}
