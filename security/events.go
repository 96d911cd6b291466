package security

// Event type constants for security audit logging.
// These constants ensure consistency across the codebase and prevent typos
// when logging security-relevant events.
const (
	// Token lifecycle events

	// EventTokenIssued is logged when tokens are handed to a client after a
	// successful code exchange
	EventTokenIssued = "token_issued"

	// EventTokenRefreshed is logged when an access token is refreshed using a refresh token
	EventTokenRefreshed = "token_refreshed"

	// EventTokenRevoked is logged when a token is revoked by a client
	EventTokenRevoked = "token_revoked"

	// Authorization flow events

	// EventAuthorizationFlowStarted is logged when an authorization transaction is created
	EventAuthorizationFlowStarted = "authorization_flow_started"

	// EventAuthorizationCodeIssued is logged when the proxy mints an authorization code
	EventAuthorizationCodeIssued = "authorization_code_issued"

	// Client registration events

	// EventClientRegistered is logged when a new OAuth client is registered
	EventClientRegistered = "client_registered"

	// Security violation events

	// EventAuthFailure is logged when a grant cannot be honored (bad code,
	// bad refresh token, client mismatch)
	EventAuthFailure = "auth_failure"

	// EventRateLimitExceeded is logged when a rate limit is exceeded
	EventRateLimitExceeded = "rate_limit_exceeded"

	// EventPKCEValidationFailed is logged when PKCE code_verifier validation fails
	EventPKCEValidationFailed = "pkce_validation_failed"

	// EventInvalidRedirect is logged when a redirect URI fails pattern validation
	EventInvalidRedirect = "invalid_redirect"

	// EventScopeDefaultsApplied is logged when configured default scopes are
	// substituted for an empty client scope request
	EventScopeDefaultsApplied = "scope_defaults_applied"

	// Upstream events

	// EventUpstreamExchangeFailed is logged when a code exchange or refresh
	// against the upstream server fails
	EventUpstreamExchangeFailed = "upstream_exchange_failed"

	// EventUpstreamRevocationFailed is logged when best-effort upstream
	// revocation fails; the local revocation still completes
	EventUpstreamRevocationFailed = "upstream_revocation_failed"
)
