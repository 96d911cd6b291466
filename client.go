package oauthproxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/authbridge/oauth-proxy/storage"
)

// RegisterClient handles a dynamic client registration request. Whatever
// identity the caller asked for, the stored record carries the fixed upstream
// client id and secret with token endpoint auth method "none"; requested
// redirect URIs and metadata are echoed back but play no part in later
// validation. Re-registering overwrites the same record harmlessly. No
// network call is made.
func (p *Proxy) RegisterClient(ctx context.Context, req *ClientRegistrationRequest) (*storage.Client, error) {
	if req == nil {
		req = &ClientRegistrationRequest{}
	}

	grantTypes := append([]string(nil), req.GrantTypes...)
	if len(grantTypes) == 0 {
		grantTypes = []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken}
	}
	responseTypes := append([]string(nil), req.ResponseTypes...)
	if len(responseTypes) == 0 {
		responseTypes = []string{ResponseTypeCode}
	}

	client := &storage.Client{
		ClientID:                p.config.Upstream.ClientID,
		ClientSecret:            p.config.Upstream.ClientSecret,
		RedirectURIs:            append([]string(nil), req.RedirectURIs...),
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		TokenEndpointAuthMethod: TokenEndpointAuthNone,
		ClientName:              req.ClientName,
		Scopes:                  strings.Fields(req.Scope),
		CreatedAt:               time.Now(),
	}

	if err := p.stores.Clients.SaveClient(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}

	p.auditor.LogClientRegistered(client.ClientID, clientIPFrom(ctx))
	if p.metrics != nil {
		p.metrics.RecordClientRegistration(ctx)
	}
	p.logger.Info("Registered OAuth client",
		"client_id", client.ClientID,
		"client_name", client.ClientName,
		"redirect_uris", client.RedirectURIs)

	return client, nil
}

// GetClient returns the stored client record, or a synthesized permissive one
// when the id is unknown. Unknown ids never produce an error: a client that
// registered before a proxy restart still holds a perfectly good upstream
// identity, and redirect URI validation at authorize time relies on the
// configured patterns rather than anything recorded here.
func (p *Proxy) GetClient(ctx context.Context, clientID string) (*storage.Client, error) {
	client, err := p.stores.Clients.GetClient(ctx, clientID)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, storage.ErrClientNotFound) {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	p.logger.Debug("Synthesized client record for unknown client id", "client_id", clientID)
	return &storage.Client{
		ClientID:                clientID,
		RedirectURIs:            []string{"http://localhost"},
		RedirectURIPatterns:     p.config.RedirectURIPatterns,
		GrantTypes:              []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken},
		ResponseTypes:           []string{ResponseTypeCode},
		TokenEndpointAuthMethod: TokenEndpointAuthNone,
		CreatedAt:               time.Now(),
	}, nil
}

// redirectPatternsFor resolves the redirect URI patterns in effect for a
// client: per-record patterns when present, the configured global patterns
// otherwise. A nil result means the loopback-only default.
func (p *Proxy) redirectPatternsFor(client *storage.Client) []string {
	if client != nil && client.RedirectURIPatterns != nil {
		return client.RedirectURIPatterns
	}
	return p.config.RedirectURIPatterns
}
