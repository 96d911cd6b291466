package oauthproxy

import (
	"fmt"
	"net/http"
)

// OAuth 2.0 error codes (RFC 6749 Section 5.2, RFC 7009), plus the proxy's
// own codes for conditions the RFCs leave to the server.
const (
	// ErrorCodeInvalidRequest indicates a malformed request
	ErrorCodeInvalidRequest = "invalid_request"

	// ErrorCodeInvalidGrant indicates an invalid or expired grant (authorization
	// code or refresh token). Replay and consistency failures deliberately
	// collapse onto this code with a generic description.
	ErrorCodeInvalidGrant = "invalid_grant"

	// ErrorCodeInvalidClient indicates client authentication failure
	ErrorCodeInvalidClient = "invalid_client"

	// ErrorCodeInvalidScope indicates an invalid or unknown scope
	ErrorCodeInvalidScope = "invalid_scope"

	// ErrorCodeInvalidToken indicates an invalid or expired token
	ErrorCodeInvalidToken = "invalid_token"

	// ErrorCodeUnsupportedGrantType indicates an unsupported grant type
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"

	// ErrorCodeServerError indicates an internal server error
	ErrorCodeServerError = "server_error"

	// ErrorCodeAccessDenied indicates the request was denied
	ErrorCodeAccessDenied = "access_denied"

	// ErrorCodeInvalidRedirectURI indicates a redirect URI that failed
	// pattern validation
	ErrorCodeInvalidRedirectURI = "invalid_redirect_uri"

	// ErrorCodeUpstreamError indicates the upstream authorization server
	// failed or answered with a protocol error
	ErrorCodeUpstreamError = "upstream_error"

	// ErrorCodeRateLimitExceeded indicates rate limit exceeded
	ErrorCodeRateLimitExceeded = "rate_limit_exceeded"
)

// Error represents an OAuth 2.0 error response with an associated HTTP
// status code.
type Error struct {
	Code        string // OAuth error code
	Description string // Human-readable description
	Status      int    // HTTP status code
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewError creates a new OAuth error
func NewError(code, description string, status int) *Error {
	return &Error{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// Common OAuth error constructors
var (
	// ErrInvalidRequest creates an invalid_request error
	ErrInvalidRequest = func(description string) *Error {
		return NewError(ErrorCodeInvalidRequest, description, http.StatusBadRequest)
	}

	// ErrInvalidGrant creates an invalid_grant error
	ErrInvalidGrant = func(description string) *Error {
		return NewError(ErrorCodeInvalidGrant, description, http.StatusBadRequest)
	}

	// ErrInvalidClient creates an invalid_client error
	ErrInvalidClient = func(description string) *Error {
		return NewError(ErrorCodeInvalidClient, description, http.StatusUnauthorized)
	}

	// ErrInvalidScope creates an invalid_scope error
	ErrInvalidScope = func(description string) *Error {
		return NewError(ErrorCodeInvalidScope, description, http.StatusBadRequest)
	}

	// ErrInvalidToken creates an invalid_token error
	ErrInvalidToken = func(description string) *Error {
		return NewError(ErrorCodeInvalidToken, description, http.StatusUnauthorized)
	}

	// ErrUnsupportedGrantType creates an unsupported_grant_type error
	ErrUnsupportedGrantType = func(description string) *Error {
		return NewError(ErrorCodeUnsupportedGrantType, description, http.StatusBadRequest)
	}

	// ErrServerError creates a server_error error
	ErrServerError = func(description string) *Error {
		return NewError(ErrorCodeServerError, description, http.StatusInternalServerError)
	}

	// ErrAccessDenied creates an access_denied error
	ErrAccessDenied = func(description string) *Error {
		return NewError(ErrorCodeAccessDenied, description, http.StatusForbidden)
	}

	// ErrInvalidRedirectURI creates an invalid_redirect_uri error
	ErrInvalidRedirectURI = func(description string) *Error {
		return NewError(ErrorCodeInvalidRedirectURI, description, http.StatusBadRequest)
	}

	// ErrUpstreamError creates an upstream_error error
	ErrUpstreamError = func(description string) *Error {
		return NewError(ErrorCodeUpstreamError, description, http.StatusBadGateway)
	}

	// ErrRateLimitExceeded creates a rate_limit_exceeded error
	ErrRateLimitExceeded = func(description string) *Error {
		return NewError(ErrorCodeRateLimitExceeded, description, http.StatusTooManyRequests)
	}
)
