package oauthproxy

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := NewError(ErrorCodeInvalidGrant, "authorization code not found", http.StatusBadRequest)

	want := "invalid_grant: authorization code not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		construct  func(string) *Error
		wantCode   string
		wantStatus int
	}{
		{"invalid request", ErrInvalidRequest, ErrorCodeInvalidRequest, http.StatusBadRequest},
		{"invalid grant", ErrInvalidGrant, ErrorCodeInvalidGrant, http.StatusBadRequest},
		{"invalid client", ErrInvalidClient, ErrorCodeInvalidClient, http.StatusUnauthorized},
		{"invalid scope", ErrInvalidScope, ErrorCodeInvalidScope, http.StatusBadRequest},
		{"invalid token", ErrInvalidToken, ErrorCodeInvalidToken, http.StatusUnauthorized},
		{"unsupported grant type", ErrUnsupportedGrantType, ErrorCodeUnsupportedGrantType, http.StatusBadRequest},
		{"server error", ErrServerError, ErrorCodeServerError, http.StatusInternalServerError},
		{"access denied", ErrAccessDenied, ErrorCodeAccessDenied, http.StatusForbidden},
		{"invalid redirect uri", ErrInvalidRedirectURI, ErrorCodeInvalidRedirectURI, http.StatusBadRequest},
		{"upstream error", ErrUpstreamError, ErrorCodeUpstreamError, http.StatusBadGateway},
		{"rate limit exceeded", ErrRateLimitExceeded, ErrorCodeRateLimitExceeded, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.construct("something went wrong")
			if err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", err.Code, tt.wantCode)
			}
			if err.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", err.Status, tt.wantStatus)
			}
			if err.Description != "something went wrong" {
				t.Errorf("Description = %q, want %q", err.Description, "something went wrong")
			}
		})
	}
}

func TestError_AsThroughWrapping(t *testing.T) {
	inner := ErrInvalidGrant("invalid refresh token")
	wrapped := fmt.Errorf("token request failed: %w", inner)

	var oauthErr *Error
	if !errors.As(wrapped, &oauthErr) {
		t.Fatal("errors.As failed to unwrap *Error")
	}
	if oauthErr.Code != ErrorCodeInvalidGrant {
		t.Errorf("Code = %q, want %q", oauthErr.Code, ErrorCodeInvalidGrant)
	}
	if oauthErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", oauthErr.Status, http.StatusBadRequest)
	}
}
