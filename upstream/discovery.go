package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DiscoveryDocument represents the subset of OIDC provider metadata
// (RFC 8414) the proxy needs to locate the upstream's endpoints.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint,omitempty"`
	JWKSUri                           string   `json:"jwks_uri"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
}

// cachedDocument holds a discovery document with its fetch timestamp.
type cachedDocument struct {
	document  *DiscoveryDocument
	fetchedAt time.Time
}

// DiscoveryClient fetches and caches OIDC discovery documents.
// It enforces HTTPS and blocks private address ranges for all discovered
// endpoints. Safe for concurrent use.
type DiscoveryClient struct {
	httpClient     *http.Client
	cache          sync.Map // issuerURL -> *cachedDocument
	cacheTTL       time.Duration
	logger         *slog.Logger
	skipValidation bool // Internal: skip URL validation for testing only
}

// NewDiscoveryClient creates a discovery client. A nil httpClient gets a
// default with a 10s timeout, a zero cacheTTL defaults to 1 hour, and a nil
// logger falls back to slog.Default().
func NewDiscoveryClient(httpClient *http.Client, cacheTTL time.Duration, logger *slog.Logger) *DiscoveryClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DiscoveryClient{
		httpClient: httpClient,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Discover fetches the OIDC discovery document for an issuer, with caching.
func (c *DiscoveryClient) Discover(ctx context.Context, issuerURL string) (*DiscoveryDocument, error) {
	// SECURITY: Validate issuer URL before making the request
	if !c.skipValidation {
		if err := ValidateIssuerURL(issuerURL); err != nil {
			return nil, fmt.Errorf("invalid issuer URL: %w", err)
		}
	}

	// Check cache first
	if cached, ok := c.cache.Load(issuerURL); ok {
		doc := cached.(*cachedDocument)
		if time.Since(doc.fetchedAt) < c.cacheTTL {
			c.logger.Debug("OIDC discovery cache hit", "issuer", issuerURL)
			return doc.document, nil
		}
		c.logger.Debug("OIDC discovery cache expired", "issuer", issuerURL)
	}

	discoveryURL := strings.TrimSuffix(issuerURL, "/") + "/.well-known/openid-configuration"

	c.logger.Debug("Fetching OIDC discovery document", "url", discoveryURL)

	req, err := http.NewRequestWithContext(ctx, "GET", discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OIDC discovery document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery failed with status %d", resp.StatusCode)
	}

	var doc DiscoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	// SECURITY: All endpoints must use HTTPS
	if err := c.validateDocument(&doc); err != nil {
		return nil, fmt.Errorf("invalid discovery document: %w", err)
	}

	c.cache.Store(issuerURL, &cachedDocument{
		document:  &doc,
		fetchedAt: time.Now(),
	})

	c.logger.Info("OIDC discovery successful",
		"issuer", issuerURL,
		"authorization_endpoint", doc.AuthorizationEndpoint,
		"token_endpoint", doc.TokenEndpoint)

	return &doc, nil
}

// validateDocument validates security properties of a discovery document.
// All endpoints must use HTTPS to prevent credential leakage.
func (c *DiscoveryClient) validateDocument(doc *DiscoveryDocument) error {
	endpoints := []struct {
		name string
		url  string
	}{
		{"issuer", doc.Issuer},
		{"authorization_endpoint", doc.AuthorizationEndpoint},
		{"token_endpoint", doc.TokenEndpoint},
	}

	for _, endpoint := range endpoints {
		if endpoint.url == "" {
			return fmt.Errorf("%s is required but missing", endpoint.name)
		}
		if !strings.HasPrefix(endpoint.url, "https://") {
			return fmt.Errorf("%s must use HTTPS: %s", endpoint.name, endpoint.url)
		}
	}

	// Optional endpoints that must be HTTPS if present
	optionalEndpoints := []struct {
		name string
		url  string
	}{
		{"revocation_endpoint", doc.RevocationEndpoint},
		{"jwks_uri", doc.JWKSUri},
	}

	for _, endpoint := range optionalEndpoints {
		if endpoint.url != "" && !strings.HasPrefix(endpoint.url, "https://") {
			return fmt.Errorf("%s must use HTTPS if present: %s", endpoint.name, endpoint.url)
		}
	}

	return nil
}

// ClearCache clears the discovery document cache, forcing a refresh on the
// next Discover call.
func (c *DiscoveryClient) ClearCache() {
	count := 0
	c.cache.Range(func(key, value interface{}) bool {
		c.cache.Delete(key)
		count++
		return true
	})
	c.logger.Debug("OIDC discovery cache cleared", "entries_removed", count)
}

// ValidateIssuerURL validates an OIDC issuer URL with SSRF protection.
// HTTPS is enforced, and loopback, private, and link-local addresses are
// rejected so discovery can never be pointed at internal services or
// cloud metadata endpoints.
func ValidateIssuerURL(issuerURL string) error {
	u, err := url.Parse(issuerURL)
	if err != nil {
		return fmt.Errorf("invalid issuer URL: %w", err)
	}

	// SECURITY: Enforce HTTPS to prevent credential leakage
	if u.Scheme != "https" {
		return fmt.Errorf("issuer URL must use HTTPS, got %s", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("issuer URL must have a hostname")
	}

	// SECURITY: Block private IP ranges to prevent SSRF
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() {
			return fmt.Errorf("issuer URL must not point to loopback addresses")
		}
		if ip.IsPrivate() {
			return fmt.Errorf("issuer URL must not point to private IP ranges")
		}
		if ip.IsLinkLocalUnicast() {
			return fmt.Errorf("issuer URL must not point to link-local addresses")
		}
	}

	return nil
}
