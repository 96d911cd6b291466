package oauthproxy

import (
	"os"
	"path/filepath"
	"testing"
)

func validTestConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8080",
		Upstream: UpstreamConfig{
			Name:         "mock",
			ClientID:     "upstream-client-id",
			ClientSecret: "upstream-client-secret",
		},
	}
}

func TestConfig_Validate_Defaults(t *testing.T) {
	cfg := validTestConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.CallbackPath != "/auth/callback" {
		t.Errorf("CallbackPath = %q, want /auth/callback", cfg.CallbackPath)
	}
	if cfg.Resource != "http://localhost:8080" {
		t.Errorf("Resource = %q, want base URL", cfg.Resource)
	}
	if cfg.AuthorizationCodeTTL != 300 {
		t.Errorf("AuthorizationCodeTTL = %d, want 300", cfg.AuthorizationCodeTTL)
	}
	if cfg.AccessTokenTTL != 3600 {
		t.Errorf("AccessTokenTTL = %d, want 3600", cfg.AccessTokenTTL)
	}
	if cfg.HTTPTimeout != 30 {
		t.Errorf("HTTPTimeout = %d, want 30", cfg.HTTPTimeout)
	}
	if cfg.TrustedProxyCount != 1 {
		t.Errorf("TrustedProxyCount = %d, want 1", cfg.TrustedProxyCount)
	}
	if cfg.RateLimit.RequestsPerSecond != 10 {
		t.Errorf("RateLimit.RequestsPerSecond = %d, want 10", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.RateLimit.Burst != 20 {
		t.Errorf("RateLimit.Burst = %d, want 20", cfg.RateLimit.Burst)
	}
}

func TestConfig_Validate_SecurityDefaults(t *testing.T) {
	t.Run("untouched config enables PKCE", func(t *testing.T) {
		cfg := validTestConfig()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !cfg.RequirePKCE {
			t.Error("RequirePKCE = false, want true for a default config")
		}
	})

	t.Run("explicit choice is respected", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.TrustProxy = true
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if cfg.RequirePKCE {
			t.Error("RequirePKCE = true, want false when security settings were set explicitly")
		}
	})

	t.Run("explicit RequirePKCE survives", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.RequirePKCE = true
		cfg.AllowPKCEPlain = true
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !cfg.RequirePKCE {
			t.Error("RequirePKCE = false, want true")
		}
		if !cfg.AllowPKCEPlain {
			t.Error("AllowPKCEPlain = false, want true")
		}
	})
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base URL", func(c *Config) { c.BaseURL = "" }},
		{"unparseable base URL", func(c *Config) { c.BaseURL = "://bad" }},
		{"non-http scheme", func(c *Config) { c.BaseURL = "ftp://example.com" }},
		{"no scheme", func(c *Config) { c.BaseURL = "not-a-url" }},
		{"missing host", func(c *Config) { c.BaseURL = "http://" }},
		{"missing upstream client id", func(c *Config) { c.Upstream.ClientID = "" }},
		{"relative callback path", func(c *Config) { c.CallbackPath = "auth/callback" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

func TestConfig_Endpoints(t *testing.T) {
	cfg := &Config{BaseURL: "https://proxy.example.com/", CallbackPath: "/auth/callback"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"issuer trims trailing slash", cfg.Issuer(), "https://proxy.example.com"},
		{"authorization endpoint", cfg.AuthorizationEndpoint(), "https://proxy.example.com/authorize"},
		{"token endpoint", cfg.TokenEndpoint(), "https://proxy.example.com/token"},
		{"registration endpoint", cfg.RegistrationEndpoint(), "https://proxy.example.com/register"},
		{"revocation endpoint", cfg.RevocationEndpoint(), "https://proxy.example.com/revoke"},
		{"callback URL", cfg.CallbackURL(), "https://proxy.example.com/auth/callback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := `base_url: https://proxy.example.com
callback_path: /oauth/callback
upstream:
  name: google
  client_id: upstream-id
  client_secret: upstream-secret
  authorize_endpoint: https://accounts.google.com/o/oauth2/v2/auth
  token_endpoint: https://oauth2.googleapis.com/token
  scopes:
    - openid
    - email
redirect_uri_patterns:
  - "http://localhost:*"
  - "https://*.example.com/callback"
rate_limit:
  requests_per_second: 5
  burst: 10
enable_audit_logging: true
`
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatalf("writing config file: %v", err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		if cfg.BaseURL != "https://proxy.example.com" {
			t.Errorf("BaseURL = %q", cfg.BaseURL)
		}
		if cfg.CallbackPath != "/oauth/callback" {
			t.Errorf("CallbackPath = %q", cfg.CallbackPath)
		}
		if cfg.Upstream.ClientID != "upstream-id" {
			t.Errorf("Upstream.ClientID = %q", cfg.Upstream.ClientID)
		}
		if len(cfg.Upstream.Scopes) != 2 || cfg.Upstream.Scopes[0] != "openid" {
			t.Errorf("Upstream.Scopes = %v", cfg.Upstream.Scopes)
		}
		if len(cfg.RedirectURIPatterns) != 2 {
			t.Errorf("RedirectURIPatterns = %v", cfg.RedirectURIPatterns)
		}
		if cfg.RateLimit.RequestsPerSecond != 5 {
			t.Errorf("RateLimit.RequestsPerSecond = %d", cfg.RateLimit.RequestsPerSecond)
		}
		if !cfg.EnableAuditLogging {
			t.Error("EnableAuditLogging = false, want true")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadConfig() error = nil, want error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("base_url: [unclosed"), 0o600); err != nil {
			t.Fatalf("writing config file: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig() error = nil, want error")
		}
	})
}
