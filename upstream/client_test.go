package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ClientID:          "test-client-id",
		ClientSecret:      "test-client-secret",
		AuthorizeEndpoint: "https://idp.example.com/authorize",
		TokenEndpoint:     "https://idp.example.com/token",
		RedirectURL:       "https://proxy.example.com/auth/callback",
		Scopes:            []string{"openid", "email"},
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing client ID",
			modify:  func(c *Config) { c.ClientID = "" },
			wantErr: true,
		},
		{
			name:    "missing client secret",
			modify:  func(c *Config) { c.ClientSecret = "" },
			wantErr: true,
		},
		{
			name:    "missing authorize endpoint",
			modify:  func(c *Config) { c.AuthorizeEndpoint = "" },
			wantErr: true,
		},
		{
			name:    "missing token endpoint",
			modify:  func(c *Config) { c.TokenEndpoint = "" },
			wantErr: true,
		},
		{
			name:    "missing redirect URL",
			modify:  func(c *Config) { c.RedirectURL = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			client, err := NewClient(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && client.httpClient == nil {
				t.Error("NewClient() httpClient is nil")
			}
		})
	}
}

func TestNewClient_NilConfig(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Error("NewClient(nil) should return error")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(validConfig())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if got := client.Name(); got != "upstream" {
		t.Errorf("Name() = %q, want %q", got, "upstream")
	}
	if client.httpClient.Timeout != DefaultHTTPTimeout {
		t.Errorf("httpClient.Timeout = %v, want %v", client.httpClient.Timeout, DefaultHTTPTimeout)
	}
}

func TestNewClient_WithCustomHTTPClient(t *testing.T) {
	customClient := &http.Client{Timeout: 10 * time.Second}

	cfg := validConfig()
	cfg.Name = "google"
	cfg.HTTPClient = customClient

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if client.httpClient != customClient {
		t.Error("NewClient() did not use custom HTTP client")
	}
	if got := client.Name(); got != "google" {
		t.Errorf("Name() = %q, want %q", got, "google")
	}
}

func TestClient_AuthorizationURL(t *testing.T) {
	client, err := NewClient(validConfig())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	tests := []struct {
		name      string
		scopes    []string
		wantScope string
	}{
		{
			name:      "default scopes",
			scopes:    nil,
			wantScope: "openid email",
		},
		{
			name:      "scope override",
			scopes:    []string{"openid", "profile", "custom.read"},
			wantScope: "openid profile custom.read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authURL := client.AuthorizationURL("txn-123", tt.scopes)

			parsed, err := url.Parse(authURL)
			if err != nil {
				t.Fatalf("AuthorizationURL() returned unparseable URL: %v", err)
			}

			q := parsed.Query()
			if got := q.Get("response_type"); got != "code" {
				t.Errorf("response_type = %q, want %q", got, "code")
			}
			if got := q.Get("client_id"); got != "test-client-id" {
				t.Errorf("client_id = %q, want %q", got, "test-client-id")
			}
			if got := q.Get("state"); got != "txn-123" {
				t.Errorf("state = %q, want %q", got, "txn-123")
			}
			if got := q.Get("redirect_uri"); got != "https://proxy.example.com/auth/callback" {
				t.Errorf("redirect_uri = %q, want proxy callback", got)
			}
			if got := q.Get("scope"); got != tt.wantScope {
				t.Errorf("scope = %q, want %q", got, tt.wantScope)
			}

			// PKCE terminates at the proxy and is never forwarded upstream
			if q.Has("code_challenge") || q.Has("code_challenge_method") {
				t.Errorf("AuthorizationURL() must not carry PKCE parameters: %q", authURL)
			}
		})
	}
}

func TestClient_AuthorizationURL_EndpointWithQuery(t *testing.T) {
	cfg := validConfig()
	cfg.AuthorizeEndpoint = "https://idp.example.com/authorize?audience=storage-api"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	authURL := client.AuthorizationURL("txn-456", nil)

	if strings.Count(authURL, "?") != 1 {
		t.Errorf("AuthorizationURL() = %q, want exactly one %q", authURL, "?")
	}
	if !strings.Contains(authURL, "audience=storage-api&") {
		t.Errorf("AuthorizationURL() = %q, should keep endpoint query and append with %q", authURL, "&")
	}

	q, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("AuthorizationURL() returned unparseable URL: %v", err)
	}
	if got := q.Query().Get("state"); got != "txn-456" {
		t.Errorf("state = %q, want %q", got, "txn-456")
	}
}

func TestClient_ExchangeCode(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		if r.FormValue("grant_type") != "authorization_code" {
			http.Error(w, "invalid grant_type", http.StatusBadRequest)
			return
		}
		if r.FormValue("code") != "upstream-code" {
			http.Error(w, "invalid code", http.StatusBadRequest)
			return
		}
		if r.FormValue("redirect_uri") != "https://proxy.example.com/auth/callback" {
			http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
			return
		}
		// The upstream must never see a PKCE verifier
		if r.FormValue("code_verifier") != "" {
			http.Error(w, "unexpected code_verifier", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "upstream-access-token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "upstream-refresh-token",
			"id_token":      "upstream-id-token",
			"scope":         "openid email",
		})
	}))
	defer server.Close()

	cfg := validConfig()
	cfg.TokenEndpoint = server.URL + "/token"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	token, err := client.ExchangeCode(ctx, "upstream-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	if token.AccessToken != "upstream-access-token" {
		t.Errorf("AccessToken = %q, want %q", token.AccessToken, "upstream-access-token")
	}
	if token.RefreshToken != "upstream-refresh-token" {
		t.Errorf("RefreshToken = %q, want %q", token.RefreshToken, "upstream-refresh-token")
	}
	if got, _ := token.Extra("id_token").(string); got != "upstream-id-token" {
		t.Errorf("Extra(id_token) = %q, want %q", got, "upstream-id-token")
	}
}

func TestClient_ExchangeCode_EmptyCode(t *testing.T) {
	client, err := NewClient(validConfig())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.ExchangeCode(context.Background(), ""); err == nil {
		t.Error("ExchangeCode() should reject empty code")
	}
}

func TestClient_ExchangeCode_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer server.Close()

	cfg := validConfig()
	cfg.TokenEndpoint = server.URL + "/token"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("ExchangeCode() should return error on upstream failure")
	}
	if !strings.Contains(err.Error(), "failed to exchange code") {
		t.Errorf("error = %v, want exchange failure", err)
	}
}

func TestClient_Refresh(t *testing.T) {
	tests := []struct {
		name            string
		responseRefresh string // empty means the field is omitted
		wantRotated     bool
		wantRefresh     string
	}{
		{
			name:            "upstream rotates the refresh token",
			responseRefresh: "new-refresh-token",
			wantRotated:     true,
			wantRefresh:     "new-refresh-token",
		},
		{
			name:            "upstream returns the same refresh token",
			responseRefresh: "old-refresh-token",
			wantRotated:     false,
			wantRefresh:     "old-refresh-token",
		},
		{
			name:            "upstream omits the refresh token",
			responseRefresh: "",
			wantRotated:     false,
			wantRefresh:     "old-refresh-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					http.Error(w, "invalid form data", http.StatusBadRequest)
					return
				}
				if r.FormValue("grant_type") != "refresh_token" {
					http.Error(w, "invalid grant_type", http.StatusBadRequest)
					return
				}
				if r.FormValue("refresh_token") != "old-refresh-token" {
					http.Error(w, "invalid refresh_token", http.StatusBadRequest)
					return
				}

				response := map[string]interface{}{
					"access_token": "new-access-token",
					"token_type":   "Bearer",
					"expires_in":   3600,
				}
				if tt.responseRefresh != "" {
					response["refresh_token"] = tt.responseRefresh
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(response)
			}))
			defer server.Close()

			cfg := validConfig()
			cfg.TokenEndpoint = server.URL + "/token"

			client, err := NewClient(cfg)
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}

			result, err := client.Refresh(context.Background(), "old-refresh-token")
			if err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}

			if result.Token.AccessToken != "new-access-token" {
				t.Errorf("AccessToken = %q, want %q", result.Token.AccessToken, "new-access-token")
			}
			if result.Rotated != tt.wantRotated {
				t.Errorf("Rotated = %v, want %v", result.Rotated, tt.wantRotated)
			}
			if result.Token.RefreshToken != tt.wantRefresh {
				t.Errorf("RefreshToken = %q, want %q", result.Token.RefreshToken, tt.wantRefresh)
			}
		})
	}
}

func TestClient_Refresh_EmptyToken(t *testing.T) {
	client, err := NewClient(validConfig())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Refresh(context.Background(), ""); err == nil {
		t.Error("Refresh() should reject empty refresh token")
	}
}

func TestClient_Refresh_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer server.Close()

	cfg := validConfig()
	cfg.TokenEndpoint = server.URL + "/token"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.Refresh(context.Background(), "revoked-refresh-token")
	if err == nil {
		t.Fatal("Refresh() should return error on upstream failure")
	}
	if !strings.Contains(err.Error(), "failed to refresh token") {
		t.Errorf("error = %v, want refresh failure", err)
	}
}

func TestClient_Revoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}
		if r.FormValue("token") != "doomed-token" {
			http.Error(w, "invalid token", http.StatusBadRequest)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-client-id" || pass != "test-client-secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := validConfig()
	cfg.RevocationEndpoint = server.URL + "/revoke"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Revoke(context.Background(), "doomed-token"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
}

func TestClient_Revoke_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := validConfig()
	cfg.RevocationEndpoint = server.URL + "/revoke"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	err = client.Revoke(context.Background(), "doomed-token")
	if err == nil {
		t.Fatal("Revoke() should return error on upstream failure")
	}
	if !strings.Contains(err.Error(), "status 503") {
		t.Errorf("error = %v, want status 503", err)
	}
}

func TestClient_Revoke_NoEndpoint(t *testing.T) {
	client, err := NewClient(validConfig())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Revoke(context.Background(), "doomed-token"); err == nil {
		t.Error("Revoke() should fail without a revocation endpoint")
	}
}

func TestClient_Revoke_EmptyToken(t *testing.T) {
	cfg := validConfig()
	cfg.RevocationEndpoint = "https://idp.example.com/revoke"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Revoke(context.Background(), ""); err == nil {
		t.Error("Revoke() should reject empty token")
	}
}

func TestNewClientFromIssuer(t *testing.T) {
	doc := DiscoveryDocument{
		Issuer:                 "https://idp.example.com",
		AuthorizationEndpoint:  "https://idp.example.com/authorize",
		TokenEndpoint:          "https://idp.example.com/token",
		RevocationEndpoint:     "https://idp.example.com/revoke",
		JWKSUri:                "https://idp.example.com/keys",
		ResponseTypesSupported: []string{"code"},
	}

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer server.Close()

	discovery := NewDiscoveryClient(server.Client(), 1*time.Hour, nil)
	discovery.skipValidation = true

	t.Run("endpoints from discovery", func(t *testing.T) {
		cfg := &Config{
			ClientID:     "test-client-id",
			ClientSecret: "test-client-secret",
			RedirectURL:  "https://proxy.example.com/auth/callback",
		}

		client, err := NewClientFromIssuer(context.Background(), server.URL, cfg, discovery)
		if err != nil {
			t.Fatalf("NewClientFromIssuer() error = %v", err)
		}

		if client.config.Endpoint.AuthURL != doc.AuthorizationEndpoint {
			t.Errorf("AuthURL = %q, want %q", client.config.Endpoint.AuthURL, doc.AuthorizationEndpoint)
		}
		if client.config.Endpoint.TokenURL != doc.TokenEndpoint {
			t.Errorf("TokenURL = %q, want %q", client.config.Endpoint.TokenURL, doc.TokenEndpoint)
		}
		if client.revocationEndpoint != doc.RevocationEndpoint {
			t.Errorf("revocationEndpoint = %q, want %q", client.revocationEndpoint, doc.RevocationEndpoint)
		}
	})

	t.Run("explicit endpoints win over discovered ones", func(t *testing.T) {
		cfg := &Config{
			ClientID:      "test-client-id",
			ClientSecret:  "test-client-secret",
			RedirectURL:   "https://proxy.example.com/auth/callback",
			TokenEndpoint: "https://override.example.com/token",
		}

		client, err := NewClientFromIssuer(context.Background(), server.URL, cfg, discovery)
		if err != nil {
			t.Fatalf("NewClientFromIssuer() error = %v", err)
		}

		if client.config.Endpoint.TokenURL != "https://override.example.com/token" {
			t.Errorf("TokenURL = %q, want the explicit override", client.config.Endpoint.TokenURL)
		}
		if client.config.Endpoint.AuthURL != doc.AuthorizationEndpoint {
			t.Errorf("AuthURL = %q, want %q", client.config.Endpoint.AuthURL, doc.AuthorizationEndpoint)
		}
	})
}

func TestNewClientFromIssuer_DiscoveryFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	discovery := NewDiscoveryClient(server.Client(), 1*time.Hour, nil)
	discovery.skipValidation = true

	cfg := &Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		RedirectURL:  "https://proxy.example.com/auth/callback",
	}

	_, err := NewClientFromIssuer(context.Background(), server.URL, cfg, discovery)
	if err == nil {
		t.Fatal("NewClientFromIssuer() should return error when discovery fails")
	}
	if !strings.Contains(err.Error(), "failed to discover upstream endpoints") {
		t.Errorf("error = %v, want discovery failure", err)
	}
}
