package oauthproxy

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// UpstreamConfig identifies the one application registered at the upstream
// authorization server. Every dynamic registration collapses onto this
// identity: the proxy answers registration requests with this client id and
// secret, and uses the same credentials for code exchange, refresh, and
// revocation.
type UpstreamConfig struct {
	// Name is a short identifier for logging (e.g., "google")
	Name string `yaml:"name"`

	// ClientID is the application's client id at the upstream server
	ClientID string `yaml:"client_id"`

	// ClientSecret is the application's client secret at the upstream server
	ClientSecret string `yaml:"client_secret"`

	// Issuer is the upstream issuer URL for OIDC endpoint discovery.
	// Optional; explicit endpoints below take precedence.
	Issuer string `yaml:"issuer"`

	// AuthorizeEndpoint is the upstream authorization endpoint URL
	AuthorizeEndpoint string `yaml:"authorize_endpoint"`

	// TokenEndpoint is the upstream token endpoint URL
	TokenEndpoint string `yaml:"token_endpoint"`

	// RevocationEndpoint is the upstream revocation endpoint URL (optional)
	RevocationEndpoint string `yaml:"revocation_endpoint"`

	// Scopes are the default scopes requested from the upstream when the
	// client does not request any of its own (substitution, not intersection)
	Scopes []string `yaml:"scopes"`
}

// RateLimitConfig configures per-IP rate limiting on the registration and
// token endpoints.
type RateLimitConfig struct {
	// Disabled turns rate limiting off entirely
	Disabled bool `yaml:"disabled"`

	// RequestsPerSecond is the sustained rate per client IP
	// Default: 10
	RequestsPerSecond int `yaml:"requests_per_second"`

	// Burst is the burst size per client IP
	// Default: 20
	Burst int `yaml:"burst"`
}

// Config holds the proxy configuration
type Config struct {
	// BaseURL is the proxy's externally visible base URL, used as the issuer
	// identifier and to build the endpoint URLs advertised in metadata
	BaseURL string `yaml:"base_url"`

	// CallbackPath is the path the upstream server redirects back to
	// Default: /auth/callback
	CallbackPath string `yaml:"callback_path"`

	// Resource is the protected resource identifier advertised on
	// /.well-known/oauth-protected-resource. Defaults to BaseURL.
	Resource string `yaml:"resource"`

	// Upstream identifies the fixed upstream application
	Upstream UpstreamConfig `yaml:"upstream"`

	// RedirectURIPatterns restricts the redirect URIs clients may use.
	// nil applies the default loopback-only policy; an empty list allows
	// everything; otherwise a URI must match one pattern, with * matching
	// any run of characters.
	RedirectURIPatterns []string `yaml:"redirect_uri_patterns"`

	// AuthorizationCodeTTL is how long proxy-minted authorization codes
	// (and in-flight transactions) are valid
	AuthorizationCodeTTL int64 `yaml:"authorization_code_ttl"` // seconds, default: 300 (5 minutes)

	// AccessTokenTTL is the fallback access token lifetime used when the
	// upstream payload carries no expiry
	AccessTokenTTL int64 `yaml:"access_token_ttl"` // seconds, default: 3600 (1 hour)

	// HTTPTimeout bounds calls to the upstream server
	HTTPTimeout int64 `yaml:"http_timeout"` // seconds, default: 30

	// RequirePKCE enforces PKCE on all authorization requests
	// WARNING: Disabling this significantly weakens security
	// Default: true
	RequirePKCE bool `yaml:"require_pkce"`

	// AllowPKCEPlain allows the 'plain' code_challenge_method (NOT RECOMMENDED)
	// Default: false
	AllowPKCEPlain bool `yaml:"allow_pkce_plain"`

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers
	// WARNING: Only enable behind a trusted reverse proxy
	// Default: false
	TrustProxy bool `yaml:"trust_proxy"`

	// TrustedProxyCount is the number of trusted proxies in front of this
	// server, used with TrustProxy to extract the client IP
	// Default: 1
	TrustedProxyCount int `yaml:"trusted_proxy_count"`

	// RateLimit configures per-IP rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// EncryptionPassphrase, when set, derives an AES-256-GCM key protecting
	// token payloads at rest in the memory store
	EncryptionPassphrase string `yaml:"encryption_passphrase"`

	// EnableAuditLogging enables security audit events
	EnableAuditLogging bool `yaml:"enable_audit_logging"`

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger `yaml:"-"`

	// HTTPClient overrides the HTTP client used for upstream calls
	HTTPClient *http.Client `yaml:"-"`
}

// Validate applies defaults and rejects unusable configurations.
// It is called by New; call it directly when handing a Config to anything
// else first.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid base URL scheme: %s (must be http or https)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL has no host: %s", c.BaseURL)
	}

	if c.Upstream.ClientID == "" {
		return fmt.Errorf("upstream client id is required")
	}

	if c.CallbackPath == "" {
		c.CallbackPath = "/auth/callback"
	}
	if !strings.HasPrefix(c.CallbackPath, "/") {
		return fmt.Errorf("callback path must start with /: %s", c.CallbackPath)
	}
	if c.Resource == "" {
		c.Resource = c.Issuer()
	}

	if c.AuthorizationCodeTTL == 0 {
		c.AuthorizationCodeTTL = 300 // 5 minutes
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 3600 // 1 hour
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30
	}
	if c.TrustedProxyCount == 0 {
		c.TrustedProxyCount = 1
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}

	c.applySecurityDefaults()
	return nil
}

// applySecurityDefaults turns PKCE enforcement on for fresh configs while
// respecting explicit choices. A config where none of the security booleans
// were touched gets the secure settings; one where any was set keeps the
// user's values, with a warning for the insecure ones.
func (c *Config) applySecurityDefaults() {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	isDefaultConfig := !c.RequirePKCE && !c.AllowPKCEPlain && !c.TrustProxy
	if isDefaultConfig {
		c.RequirePKCE = true
		return
	}

	if !c.RequirePKCE {
		logger.Warn("⚠️  SECURITY WARNING: PKCE is DISABLED",
			"risk", "Authorization code interception attacks",
			"recommendation", "Set RequirePKCE=true for OAuth 2.1 compliance")
	}
	if c.AllowPKCEPlain {
		logger.Warn("⚠️  SECURITY WARNING: Plain PKCE method is ALLOWED",
			"risk", "Weak code challenge protection",
			"recommendation", "Set AllowPKCEPlain=false to require S256")
	}
	if c.TrustProxy {
		logger.Warn("⚠️  SECURITY NOTICE: Trusting proxy headers",
			"risk", "IP spoofing if the proxy chain is not properly configured",
			"recommendation", "Only enable behind trusted reverse proxies")
	}
}

// Issuer returns the proxy's issuer identifier (the base URL without a
// trailing slash).
func (c *Config) Issuer() string {
	return strings.TrimSuffix(c.BaseURL, "/")
}

// AuthorizationEndpoint returns the proxy's authorization endpoint URL
func (c *Config) AuthorizationEndpoint() string {
	return c.Issuer() + "/authorize"
}

// TokenEndpoint returns the proxy's token endpoint URL
func (c *Config) TokenEndpoint() string {
	return c.Issuer() + "/token"
}

// RegistrationEndpoint returns the proxy's client registration endpoint URL
func (c *Config) RegistrationEndpoint() string {
	return c.Issuer() + "/register"
}

// RevocationEndpoint returns the proxy's token revocation endpoint URL
func (c *Config) RevocationEndpoint() string {
	return c.Issuer() + "/revoke"
}

// CallbackURL returns the full URL of the upstream callback endpoint. This is
// the redirect URI registered at the upstream for the proxy's application.
func (c *Config) CallbackURL() string {
	return c.Issuer() + c.CallbackPath
}

// LoadConfig reads a Config from a YAML file. The result is not validated;
// New validates, or call Validate directly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}
