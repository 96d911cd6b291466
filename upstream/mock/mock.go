// Package mock provides a mock upstream client for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/authbridge/oauth-proxy/upstream"
)

// Client is a configurable mock implementation of upstream.Exchanger.
// Each method delegates to the corresponding func field when set and
// otherwise returns a sensible default. Call counts are tracked per method.
type Client struct {
	NameFunc             func() string
	AuthorizationURLFunc func(state string, scopes []string) string
	ExchangeCodeFunc     func(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshFunc          func(ctx context.Context, refreshToken string) (*upstream.RefreshResult, error)
	RevokeFunc           func(ctx context.Context, token string) error

	mu         sync.RWMutex
	CallCounts map[string]int
}

var _ upstream.Exchanger = (*Client)(nil)

// NewClient creates a mock upstream client with default behaviors.
func NewClient() *Client {
	return &Client{
		CallCounts: make(map[string]int),
	}
}

func (c *Client) recordCall(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.CallCounts == nil {
		c.CallCounts = make(map[string]int)
	}
	c.CallCounts[method]++
}

// GetCallCount returns how many times a method has been called.
func (c *Client) GetCallCount(method string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.CallCounts[method]
}

// ResetCallCounts clears all recorded call counts.
func (c *Client) ResetCallCounts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCounts = make(map[string]int)
}

// Name implements upstream.Exchanger.
func (c *Client) Name() string {
	c.recordCall("Name")
	if c.NameFunc != nil {
		return c.NameFunc()
	}
	return "mock"
}

// AuthorizationURL implements upstream.Exchanger.
func (c *Client) AuthorizationURL(state string, scopes []string) string {
	c.recordCall("AuthorizationURL")
	if c.AuthorizationURLFunc != nil {
		return c.AuthorizationURLFunc(state, scopes)
	}
	return "https://mock.example.com/authorize?response_type=code&state=" + state
}

// ExchangeCode implements upstream.Exchanger.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	c.recordCall("ExchangeCode")
	if c.ExchangeCodeFunc != nil {
		return c.ExchangeCodeFunc(ctx, code)
	}
	if code == "" {
		return nil, fmt.Errorf("empty authorization code")
	}
	return DefaultToken(), nil
}

// Refresh implements upstream.Exchanger.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*upstream.RefreshResult, error) {
	c.recordCall("Refresh")
	if c.RefreshFunc != nil {
		return c.RefreshFunc(ctx, refreshToken)
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("empty refresh token")
	}
	token := DefaultToken()
	token.RefreshToken = refreshToken
	return &upstream.RefreshResult{Token: token, Rotated: false}, nil
}

// Revoke implements upstream.Exchanger.
func (c *Client) Revoke(ctx context.Context, token string) error {
	c.recordCall("Revoke")
	if c.RevokeFunc != nil {
		return c.RevokeFunc(ctx, token)
	}
	if token == "" {
		return fmt.Errorf("empty token")
	}
	return nil
}

// DefaultToken returns a mock upstream token with an id_token extra field.
func DefaultToken() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  "mock-access-token",
		TokenType:    "Bearer",
		RefreshToken: "mock-refresh-token",
		Expiry:       time.Now().Add(1 * time.Hour),
	}
	return token.WithExtra(map[string]interface{}{
		"id_token": "mock-id-token",
		"scope":    "openid profile email",
	})
}
