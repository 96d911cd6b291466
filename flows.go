package oauthproxy

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/authbridge/oauth-proxy/security"
	"github.com/authbridge/oauth-proxy/storage"
	"github.com/authbridge/oauth-proxy/verifier"
)

type clientIPContextKey struct{}

// WithClientIP returns a context carrying the originating client IP address.
// Audit events emitted by proxy operations pick it up; without it they log an
// empty address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

// Authorize starts an authorization flow on behalf of a client. It validates
// the client's redirect URI and PKCE parameters, persists a Transaction
// holding the client-side request, and returns the upstream authorization URL
// to redirect the end user to. The transaction id travels to the upstream as
// the state parameter; the client's own state stays local until the callback
// redirect. No PKCE parameters are forwarded upstream.
func (p *Proxy) Authorize(ctx context.Context, clientID, redirectURI, scope, state, codeChallenge, codeChallengeMethod string) (string, error) {
	client, err := p.GetClient(ctx, clientID)
	if err != nil {
		return "", err
	}

	if redirectURI == "" {
		return "", ErrInvalidRequest("redirect_uri is required")
	}
	if !ValidateRedirectURI(redirectURI, p.redirectPatternsFor(client)) {
		p.auditor.LogEvent(security.Event{
			Type:      security.EventInvalidRedirect,
			ClientID:  clientID,
			IPAddress: clientIPFrom(ctx),
		})
		if p.metrics != nil {
			p.metrics.RecordRedirectRejected(ctx)
		}
		p.logger.Warn("Rejected authorization request with disallowed redirect URI",
			"client_id", clientID)
		return "", ErrInvalidRedirectURI("redirect_uri is not allowed")
	}

	if codeChallenge == "" {
		if p.config.RequirePKCE {
			return "", ErrInvalidRequest("code_challenge is required")
		}
		codeChallengeMethod = ""
	} else {
		switch codeChallengeMethod {
		case "":
			codeChallengeMethod = PKCEMethodS256
		case PKCEMethodS256:
		case PKCEMethodPlain:
			if !p.config.AllowPKCEPlain {
				return "", ErrInvalidRequest("plain code_challenge_method is not allowed")
			}
		default:
			return "", ErrInvalidRequest(fmt.Sprintf("unsupported code_challenge_method: %s (supported: S256, plain)", codeChallengeMethod))
		}
	}

	scopes := strings.Fields(scope)
	upstreamScopes := scopes
	if len(upstreamScopes) == 0 && len(p.config.Upstream.Scopes) > 0 {
		upstreamScopes = p.config.Upstream.Scopes
		p.auditor.LogEvent(security.Event{
			Type:      security.EventScopeDefaultsApplied,
			ClientID:  clientID,
			IPAddress: clientIPFrom(ctx),
			Details:   map[string]any{"scope": strings.Join(upstreamScopes, " ")},
		})
	}

	now := time.Now()
	txn := &storage.Transaction{
		ID:                  oauth2.GenerateVerifier(),
		ClientID:            clientID,
		ClientRedirectURI:   redirectURI,
		ClientState:         state,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		Scopes:              scopes,
		CreatedAt:           now,
		ExpiresAt:           now.Add(time.Duration(p.config.AuthorizationCodeTTL) * time.Second),
	}
	if err := p.stores.Transactions.SaveTransaction(ctx, txn); err != nil {
		return "", fmt.Errorf("failed to save transaction: %w", err)
	}

	p.auditor.LogAuthorizationStarted(clientID, clientIPFrom(ctx), upstreamScopes)
	if p.metrics != nil {
		p.metrics.RecordAuthorizationStarted(ctx, clientID)
	}
	p.logger.Info("Authorization flow started",
		"client_id", clientID,
		"transaction", security.HashForLogging(txn.ID),
		"scope", strings.Join(upstreamScopes, " "))

	return p.upstream.AuthorizationURL(txn.ID, upstreamScopes), nil
}

// HandleUpstreamCallback processes the upstream server's redirect back to the
// proxy. The state parameter is the transaction id; the transaction is
// consumed before anything else, so a given callback can complete at most
// once. On success the upstream code is exchanged (the proxy's fixed callback
// URL as redirect_uri), a single-use proxy code carrying the full upstream
// token is minted, and the client redirect URL is returned. Failures after
// the consume leave the transaction gone: the end user retries from
// Authorize.
//
// An error carrying the upstream's error parameter should be handled by the
// caller before invoking this; here a missing or unknown state is a terminal
// condition rendered as an error page, never a redirect.
func (p *Proxy) HandleUpstreamCallback(ctx context.Context, state, code string) (string, error) {
	if state == "" || code == "" {
		if p.metrics != nil {
			p.metrics.RecordCallbackProcessed(ctx, false)
		}
		return "", ErrInvalidRequest("missing code or state parameter")
	}

	txn, err := p.stores.Transactions.ConsumeTransaction(ctx, state)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordCallbackProcessed(ctx, false)
		}
		if errors.Is(err, storage.ErrTransactionNotFound) {
			p.logger.Warn("Callback with unknown or expired transaction",
				"state", security.HashForLogging(state))
			return "", ErrInvalidRequest("unknown or expired authorization transaction")
		}
		return "", fmt.Errorf("failed to consume transaction: %w", err)
	}

	token, err := p.upstream.ExchangeCode(ctx, code)
	if err != nil {
		p.auditor.LogEvent(security.Event{
			Type:      security.EventUpstreamExchangeFailed,
			ClientID:  txn.ClientID,
			IPAddress: clientIPFrom(ctx),
			Details:   map[string]any{"error": err.Error()},
		})
		if p.metrics != nil {
			p.metrics.RecordCallbackProcessed(ctx, false)
		}
		p.logger.Error("Upstream code exchange failed",
			"client_id", txn.ClientID,
			"upstream", p.upstream.Name(),
			"error", err)

		description := "failed to exchange authorization code with upstream server"
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorDescription != "" {
			description = retrieveErr.ErrorDescription
		}
		return "", ErrUpstreamError(description)
	}

	now := time.Now()
	authCode := &storage.AuthorizationCode{
		Code:                oauth2.GenerateVerifier(),
		ClientID:            txn.ClientID,
		RedirectURI:         txn.ClientRedirectURI,
		CodeChallenge:       txn.CodeChallenge,
		CodeChallengeMethod: txn.CodeChallengeMethod,
		Scopes:              txn.Scopes,
		UpstreamToken:       token,
		CreatedAt:           now,
		ExpiresAt:           now.Add(time.Duration(p.config.AuthorizationCodeTTL) * time.Second),
	}
	if err := p.stores.Codes.SaveAuthorizationCode(ctx, authCode); err != nil {
		if p.metrics != nil {
			p.metrics.RecordCallbackProcessed(ctx, false)
		}
		return "", ErrServerError("failed to persist authorization code")
	}

	p.auditor.LogCodeIssued(txn.ClientID, clientIPFrom(ctx))
	if p.metrics != nil {
		p.metrics.RecordCallbackProcessed(ctx, true)
	}
	p.logger.Info("Authorization code issued",
		"client_id", txn.ClientID,
		"code", security.HashForLogging(authCode.Code))

	return buildRedirectURL(txn.ClientRedirectURI, authCode.Code, txn.ClientState), nil
}

// buildRedirectURL appends code and state to the client's redirect URI,
// preserving any query string it already carries.
func buildRedirectURL(redirectURI, code, state string) string {
	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	redirect := redirectURI + sep + "code=" + url.QueryEscape(code)
	if state != "" {
		redirect += "&state=" + url.QueryEscape(state)
	}
	return redirect
}

// ExchangeAuthorizationCode redeems a proxy-minted authorization code. The
// code is consumed up front, so it is gone after this call no matter the
// outcome. A missing, expired, or wrong-client code all produce the same
// generic invalid_grant; the real cause is logged, not surfaced. The PKCE
// verifier is checked against the challenge stored with the code, then the
// upstream token payload is recorded and returned verbatim.
func (p *Proxy) ExchangeAuthorizationCode(ctx context.Context, code, clientID, redirectURI, codeVerifier string) (*oauth2.Token, error) {
	authCode, err := p.stores.Codes.ConsumeAuthorizationCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrAuthorizationCodeNotFound) || errors.Is(err, storage.ErrTokenExpired) {
			return nil, p.denyGrant(ctx, clientID, "code not found or expired", "authorization code not found")
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	if authCode.ClientID != clientID {
		return nil, p.denyGrant(ctx, clientID, "client_id mismatch", "authorization code not found")
	}
	if authCode.RedirectURI != "" && redirectURI != "" && authCode.RedirectURI != redirectURI {
		return nil, p.denyGrant(ctx, clientID, "redirect_uri mismatch", "authorization code not found")
	}

	if err := p.validatePKCE(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier); err != nil {
		method := authCode.CodeChallengeMethod
		if method == "" {
			method = "none"
		}
		p.auditor.LogEvent(security.Event{
			Type:      security.EventPKCEValidationFailed,
			ClientID:  clientID,
			IPAddress: clientIPFrom(ctx),
			Details:   map[string]any{"reason": err.Error()},
		})
		if p.metrics != nil {
			p.metrics.RecordPKCEValidationFailed(ctx, method)
		}
		p.logger.Warn("PKCE validation failed",
			"client_id", clientID,
			"reason", err.Error())
		return nil, ErrInvalidGrant("invalid code verifier")
	}

	token := authCode.UpstreamToken
	if token == nil {
		return nil, p.denyGrant(ctx, clientID, "code carries no upstream token", "authorization code not found")
	}

	if err := p.recordIssuedTokens(ctx, token, clientID, authCode.Scopes); err != nil {
		return nil, err
	}

	method := authCode.CodeChallengeMethod
	if method == "" {
		method = "none"
	}
	p.auditor.LogTokenIssued(clientID, clientIPFrom(ctx), tokenScopes(token, authCode.Scopes))
	if p.metrics != nil {
		p.metrics.RecordCodeExchange(ctx, clientID, method)
	}
	p.logger.Info("Authorization code exchanged",
		"client_id", clientID,
		"code", security.HashForLogging(code),
		"has_refresh_token", token.RefreshToken != "")

	return token, nil
}

// RefreshAccessToken redeems a refresh token for a fresh upstream access
// token. Unknown, expired, or wrong-client refresh tokens collapse onto the
// same generic invalid_grant. A new access token record is always written;
// the refresh token record rotates only when the upstream hands back a
// different refresh token, otherwise record and linkage stay untouched.
func (p *Proxy) RefreshAccessToken(ctx context.Context, refreshToken, clientID string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRequest("refresh_token is required")
	}

	record, err := p.stores.Tokens.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) || errors.Is(err, storage.ErrTokenExpired) {
			return nil, p.denyGrant(ctx, clientID, "refresh token not found or expired", "invalid refresh token")
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if record.ClientID != clientID {
		return nil, p.denyGrant(ctx, clientID, "client_id mismatch", "invalid refresh token")
	}

	result, err := p.upstream.Refresh(ctx, refreshToken)
	if err != nil {
		p.auditor.LogEvent(security.Event{
			Type:      security.EventUpstreamExchangeFailed,
			ClientID:  clientID,
			IPAddress: clientIPFrom(ctx),
			Details:   map[string]any{"operation": "refresh", "error": err.Error()},
		})
		p.logger.Error("Upstream token refresh failed",
			"client_id", clientID,
			"upstream", p.upstream.Name(),
			"error", err)

		description := "failed to refresh token with upstream server"
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorDescription != "" {
			description = retrieveErr.ErrorDescription
		}
		return nil, ErrInvalidGrant(description)
	}

	token := result.Token
	scopes := tokenScopes(token, record.Scopes)
	if err := p.saveAccessTokenRecord(ctx, token, clientID, scopes); err != nil {
		return nil, err
	}

	if result.Rotated {
		if err := p.rotateRefreshToken(ctx, refreshToken, token, clientID, scopes); err != nil {
			p.dropAccessTokenRecord(ctx, token.AccessToken)
			return nil, err
		}
	}

	p.auditor.LogTokenRefreshed(clientID, clientIPFrom(ctx), result.Rotated)
	if p.metrics != nil {
		p.metrics.RecordTokenRefresh(ctx, clientID, result.Rotated)
	}
	p.logger.Info("Access token refreshed",
		"client_id", clientID,
		"rotated", result.Rotated)

	return token, nil
}

// rotateRefreshToken replaces a rotated-out refresh token: the old record and
// its linkage go away, the replacement is stored and linked to the access
// token issued alongside it.
func (p *Proxy) rotateRefreshToken(ctx context.Context, oldToken string, token *oauth2.Token, clientID string, scopes []string) error {
	if oldAccess, err := p.stores.Tokens.AccessTokenForRefresh(ctx, oldToken); err == nil && oldAccess != "" {
		if err := p.stores.Tokens.UnlinkTokens(ctx, oldAccess, oldToken); err != nil {
			p.logger.Debug("Failed to unlink rotated refresh token", "error", err)
		}
	}
	if err := p.stores.Tokens.DeleteRefreshToken(ctx, oldToken); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
		p.logger.Debug("Failed to delete rotated refresh token", "error", err)
	}

	if err := p.linkRefreshTokenRecord(ctx, token, clientID, scopes); err != nil {
		return err
	}

	p.logger.Debug("Refresh token rotated",
		"client_id", clientID,
		"old", security.HashForLogging(oldToken),
		"new", security.HashForLogging(token.RefreshToken))
	return nil
}

// TokenRefKind distinguishes the two token stores a revocation can target.
type TokenRefKind string

const (
	AccessTokenRef  TokenRefKind = "access_token"
	RefreshTokenRef TokenRefKind = "refresh_token"
)

// TokenRef names one stored token for revocation.
type TokenRef struct {
	Kind  TokenRefKind
	Token string
}

// Revoke removes a token and its linked counterpart from local bookkeeping,
// then attempts upstream revocation. Local cleanup is unconditional and comes
// first; an upstream failure is logged and never surfaced, so the caller
// always observes local consistency.
func (p *Proxy) Revoke(ctx context.Context, ref TokenRef) error {
	if ref.Token == "" {
		return ErrInvalidRequest("token is required")
	}

	var clientID string
	switch ref.Kind {
	case AccessTokenRef:
		if record, err := p.stores.Tokens.GetAccessToken(ctx, ref.Token); err == nil {
			clientID = record.ClientID
		}
		counterpart, _ := p.stores.Tokens.RefreshTokenForAccess(ctx, ref.Token)
		p.deleteTokenQuietly(ctx, AccessTokenRef, ref.Token)
		if counterpart != "" {
			p.deleteTokenQuietly(ctx, RefreshTokenRef, counterpart)
			if err := p.stores.Tokens.UnlinkTokens(ctx, ref.Token, counterpart); err != nil {
				p.logger.Debug("Failed to unlink revoked tokens", "error", err)
			}
		}
	case RefreshTokenRef:
		if record, err := p.stores.Tokens.GetRefreshToken(ctx, ref.Token); err == nil {
			clientID = record.ClientID
		}
		counterpart, _ := p.stores.Tokens.AccessTokenForRefresh(ctx, ref.Token)
		p.deleteTokenQuietly(ctx, RefreshTokenRef, ref.Token)
		if counterpart != "" {
			p.deleteTokenQuietly(ctx, AccessTokenRef, counterpart)
			if err := p.stores.Tokens.UnlinkTokens(ctx, counterpart, ref.Token); err != nil {
				p.logger.Debug("Failed to unlink revoked tokens", "error", err)
			}
		}
	default:
		return fmt.Errorf("unknown token kind: %q", ref.Kind)
	}

	if err := p.upstream.Revoke(ctx, ref.Token); err != nil {
		p.auditor.LogEvent(security.Event{
			Type:      security.EventUpstreamRevocationFailed,
			ClientID:  clientID,
			IPAddress: clientIPFrom(ctx),
			Details:   map[string]any{"error": err.Error()},
		})
		p.logger.Warn("Upstream token revocation failed, local state already cleaned",
			"upstream", p.upstream.Name(),
			"error", err)
	}

	p.auditor.LogTokenRevoked(clientID, clientIPFrom(ctx), string(ref.Kind), ref.Token)
	if p.metrics != nil {
		p.metrics.RecordTokenRevocation(ctx, clientID, string(ref.Kind))
	}
	p.logger.Info("Token revoked",
		"client_id", clientID,
		"token_type", string(ref.Kind),
		"token", security.HashForLogging(ref.Token))
	return nil
}

// RevokeToken is the RFC 7009 entrypoint: the token_type_hint is just a
// hint, so the token is located by lookup first, checking the hinted store
// before the other. A token found in neither store still gets the upstream
// best-effort treatment.
func (p *Proxy) RevokeToken(ctx context.Context, token, tokenTypeHint string) error {
	order := []TokenRefKind{AccessTokenRef, RefreshTokenRef}
	if tokenTypeHint == TokenTypeHintRefreshToken {
		order = []TokenRefKind{RefreshTokenRef, AccessTokenRef}
	}

	for _, kind := range order {
		if p.tokenExists(ctx, kind, token) {
			return p.Revoke(ctx, TokenRef{Kind: kind, Token: token})
		}
	}
	return p.Revoke(ctx, TokenRef{Kind: order[0], Token: token})
}

// LoadAccessToken validates an access token through the injected verifier.
// The local access token store is revocation bookkeeping, not the source of
// truth: a token can verify fine after a proxy restart wiped the records.
func (p *Proxy) LoadAccessToken(ctx context.Context, token string) (*verifier.Identity, error) {
	if p.verifier == nil {
		return nil, fmt.Errorf("no token verifier configured")
	}
	return p.verifier.Verify(ctx, token)
}

// recordIssuedTokens books the upstream payload locally: an access token
// record, and a refresh token record with both linkage directions when the
// payload includes one.
func (p *Proxy) recordIssuedTokens(ctx context.Context, token *oauth2.Token, clientID string, requestedScopes []string) error {
	scopes := tokenScopes(token, requestedScopes)
	if err := p.saveAccessTokenRecord(ctx, token, clientID, scopes); err != nil {
		return err
	}

	if token.RefreshToken == "" {
		return nil
	}
	if err := p.linkRefreshTokenRecord(ctx, token, clientID, scopes); err != nil {
		p.dropAccessTokenRecord(ctx, token.AccessToken)
		return err
	}
	return nil
}

// linkRefreshTokenRecord stores the refresh token record and its pairing to
// the access token issued alongside it.
func (p *Proxy) linkRefreshTokenRecord(ctx context.Context, token *oauth2.Token, clientID string, scopes []string) error {
	if err := p.stores.Tokens.SaveRefreshToken(ctx, &storage.RefreshTokenRecord{
		Token:     token.RefreshToken,
		ClientID:  clientID,
		Scopes:    scopes,
		CreatedAt: time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	if token.AccessToken != "" {
		if err := p.stores.Tokens.LinkTokens(ctx, token.AccessToken, token.RefreshToken); err != nil {
			return fmt.Errorf("failed to link tokens: %w", err)
		}
	}
	return nil
}

// dropAccessTokenRecord best-effort removes an access token record whose
// refresh pairing could not be written.
func (p *Proxy) dropAccessTokenRecord(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := p.stores.Tokens.DeleteAccessToken(ctx, accessToken); err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
		p.logger.Debug("Failed to remove unpaired access token record", "error", err)
	}
}

// saveAccessTokenRecord writes the bookkeeping record for an access token,
// falling back to the configured access token TTL when the payload carries
// no expiry.
func (p *Proxy) saveAccessTokenRecord(ctx context.Context, token *oauth2.Token, clientID string, scopes []string) error {
	if token == nil || token.AccessToken == "" {
		return ErrServerError("upstream returned no access token")
	}

	now := time.Now()
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Duration(p.config.AccessTokenTTL) * time.Second)
	}
	if err := p.stores.Tokens.SaveAccessToken(ctx, &storage.AccessTokenRecord{
		Token:     token.AccessToken,
		ClientID:  clientID,
		Scopes:    scopes,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	return nil
}

// tokenScopes returns the scopes granted in the payload's scope field when
// present, the fallback otherwise.
func tokenScopes(token *oauth2.Token, fallback []string) []string {
	if token != nil {
		if s, ok := token.Extra("scope").(string); ok && s != "" {
			return strings.Fields(s)
		}
	}
	return fallback
}

func (p *Proxy) tokenExists(ctx context.Context, kind TokenRefKind, token string) bool {
	switch kind {
	case AccessTokenRef:
		_, err := p.stores.Tokens.GetAccessToken(ctx, token)
		return err == nil
	case RefreshTokenRef:
		_, err := p.stores.Tokens.GetRefreshToken(ctx, token)
		return err == nil
	}
	return false
}

func (p *Proxy) deleteTokenQuietly(ctx context.Context, kind TokenRefKind, token string) {
	var err error
	switch kind {
	case AccessTokenRef:
		err = p.stores.Tokens.DeleteAccessToken(ctx, token)
	case RefreshTokenRef:
		err = p.stores.Tokens.DeleteRefreshToken(ctx, token)
	}
	if err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
		p.logger.Debug("Failed to delete token record", "token_type", string(kind), "error", err)
	}
}

// denyGrant logs the real reason a token request was refused and returns the
// generic error handed to the client. Replay, wrong-client, and unknown-token
// conditions all look identical from the outside.
func (p *Proxy) denyGrant(ctx context.Context, clientID, reason, description string) *Error {
	p.auditor.LogAuthFailure(clientID, clientIPFrom(ctx), reason)
	p.logger.Debug("Token request denied",
		"client_id", clientID,
		"reason", reason)
	return ErrInvalidGrant(description)
}

// validatePKCE checks a code verifier against the challenge stored with an
// authorization code. An empty stored challenge means the code was minted
// without PKCE and nothing is checked.
func (p *Proxy) validatePKCE(codeChallenge, codeChallengeMethod, codeVerifier string) error {
	if codeChallenge == "" {
		return nil
	}
	if codeVerifier == "" {
		return errors.New("code_verifier is required")
	}
	if len(codeVerifier) < MinCodeVerifierLength || len(codeVerifier) > MaxCodeVerifierLength {
		return fmt.Errorf("code_verifier length must be between %d and %d characters", MinCodeVerifierLength, MaxCodeVerifierLength)
	}
	for _, r := range codeVerifier {
		if !isVerifierChar(r) {
			return errors.New("code_verifier contains invalid characters")
		}
	}

	var computed string
	switch codeChallengeMethod {
	case PKCEMethodS256, "":
		sum := sha256.Sum256([]byte(codeVerifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	case PKCEMethodPlain:
		if !p.config.AllowPKCEPlain {
			return errors.New("plain code_challenge_method is not allowed")
		}
		p.logger.Warn("Client using plain PKCE method, S256 is recommended")
		computed = codeVerifier
	default:
		return fmt.Errorf("unsupported code_challenge_method: %s (supported: S256, plain)", codeChallengeMethod)
	}

	if subtle.ConstantTimeCompare([]byte(computed), []byte(codeChallenge)) != 1 {
		return errors.New("code_verifier does not match code_challenge")
	}
	return nil
}

// Unreserved characters per RFC 7636 section 4.1.
func isVerifierChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '.' || r == '_' || r == '~':
		return true
	}
	return false
}
