// Package testutil provides shared helpers for the oauth-proxy test suites.
package testutil

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// GenerateRandomString generates a random base64url string of the given length
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}

// GeneratePKCEPair generates a valid S256 challenge/verifier pair.
// The challenge is the base64url-encoded SHA-256 of the verifier.
func GeneratePKCEPair() (challenge, verifier string) {
	verifier = GenerateRandomString(50)
	hash := sha256.Sum256([]byte(verifier))
	challenge = base64.RawURLEncoding.EncodeToString(hash[:])
	return challenge, verifier
}

// GenerateUpstreamToken creates a token payload shaped like a real upstream
// response: bearer type, refresh token, and the extra fields (id_token,
// granted scope) that must survive passthrough.
func GenerateUpstreamToken(scope string) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  "at-" + GenerateRandomString(32),
		TokenType:    "Bearer",
		RefreshToken: "rt-" + GenerateRandomString(32),
		Expiry:       time.Now().Add(1 * time.Hour),
	}
	extra := map[string]interface{}{
		"id_token": "idt-" + GenerateRandomString(24),
	}
	if scope != "" {
		extra["scope"] = scope
	}
	return token.WithExtra(extra)
}

// GenerateUpstreamTokenWithExpiry is GenerateUpstreamToken with a fixed expiry.
// A zero expiry models an upstream that omits expires_in.
func GenerateUpstreamTokenWithExpiry(scope string, expiry time.Time) *oauth2.Token {
	token := GenerateUpstreamToken(scope)
	clone := &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       expiry,
	}
	extra := map[string]interface{}{"id_token": token.Extra("id_token")}
	if scope != "" {
		extra["scope"] = scope
	}
	return clone.WithExtra(extra)
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

// AssertEqual fails the test if got != want
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, message string) {
	t.Helper()
	if !condition {
		t.Errorf("assertion failed: %s", message)
	}
}

// AssertStringContains fails the test if s does not contain substr
func AssertStringContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("string %q does not contain %q", s, substr)
	}
}
