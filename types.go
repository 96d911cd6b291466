package oauthproxy

// ==================== Protocol Constants ====================

// Grant types supported by the proxy's token endpoint
const (
	// GrantTypeAuthorizationCode is the authorization code grant (RFC 6749 Section 4.1)
	GrantTypeAuthorizationCode = "authorization_code"

	// GrantTypeRefreshToken is the refresh token grant (RFC 6749 Section 6)
	GrantTypeRefreshToken = "refresh_token"
)

// Token endpoint authentication methods (RFC 7591)
const (
	// TokenEndpointAuthNone means no client authentication. Every client the
	// proxy registers is public; the per-client secret lives upstream.
	TokenEndpointAuthNone = "none"
)

// PKCE code challenge methods (RFC 7636)
const (
	// PKCEMethodS256 is the SHA-256 code challenge method
	PKCEMethodS256 = "S256"

	// PKCEMethodPlain is the plain code challenge method, deprecated in
	// OAuth 2.1 and only accepted when explicitly enabled
	PKCEMethodPlain = "plain"
)

// PKCE code verifier length bounds (RFC 7636 Section 4.1)
const (
	MinCodeVerifierLength = 43
	MaxCodeVerifierLength = 128
)

// Token type hints for the revocation endpoint (RFC 7009 Section 2.1)
const (
	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

// ResponseTypeCode is the only response type the proxy supports
const ResponseTypeCode = "code"

// TokenTypeBearer is the default token type on token responses
const TokenTypeBearer = "Bearer"

// ==================== Server Metadata Types ====================

// AuthorizationServerMetadata represents RFC 8414 Authorization Server
// Metadata, served on /.well-known/oauth-authorization-server and
// /.well-known/openid-configuration.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint,omitempty"`
	RevocationEndpoint                string   `json:"revocation_endpoint,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`
}

// ProtectedResourceMetadata represents RFC 9728 OAuth Protected Resource
// Metadata, served on /.well-known/oauth-protected-resource. It points
// resource clients at this proxy as their authorization server.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
}

// ==================== Client Registration Types ====================

// ClientRegistrationRequest represents an RFC 7591 dynamic client
// registration request. The identity fields are accepted but overridden:
// every registered client shares the fixed upstream application identity.
type ClientRegistrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	ClientURI               string   `json:"client_uri,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// ClientRegistrationResponse represents an RFC 7591 registration response
type ClientRegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at,omitempty"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// ==================== Error Types ====================

// ErrorResponse represents an OAuth 2.0 error response body (RFC 6749
// Section 5.2)
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}
