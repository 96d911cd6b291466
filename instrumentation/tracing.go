package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on proxy spans
const (
	// OAuth flow attributes
	AttrClientID     = "oauth.client_id"
	AttrScope        = "oauth.scope"
	AttrGrantType    = "oauth.grant_type"
	AttrPKCEMethod   = "oauth.pkce.method"
	AttrTokenType    = "oauth.token.type"
	AttrTokenRotated = "oauth.token.rotated"
	AttrRedirectURI  = "oauth.redirect_uri"
	AttrErrorCode    = "oauth.error_code"

	// HTTP attributes
	AttrHTTPMethod   = "http.method"
	AttrHTTPEndpoint = "http.endpoint"
	AttrHTTPStatus   = "http.status_code"

	// Storage attributes
	AttrStorageOperation = "storage.operation"
	AttrStorageResult    = "storage.result"

	// Upstream attributes
	AttrUpstreamOperation = "upstream.operation"
	AttrUpstreamEndpoint  = "upstream.endpoint"

	// Security attributes
	AttrClientIP    = "client.ip"
	AttrRateLimited = "security.rate_limited"
)

// RecordError records an error on the span and marks it failed.
// Safe to call with a nil span or nil error.
func RecordError(span trace.Span, err error, description string) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}

// SetSpanSuccess marks the span as successful. Safe to call with a nil span.
func SetSpanSuccess(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// SetSpanError marks the span as failed without recording an error object.
// Safe to call with a nil span.
func SetSpanError(span trace.Span, description string) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Error, description)
}

// SetSpanAttributes sets attributes on the span. Safe to call with a nil span.
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

// AddOAuthFlowAttributes adds common OAuth flow attributes to a span
func AddOAuthFlowAttributes(span trace.Span, clientID, scope string) {
	if span == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrClientID, clientID),
	}
	if scope != "" {
		attrs = append(attrs, attribute.String(AttrScope, scope))
	}
	span.SetAttributes(attrs...)
}

// AddPKCEAttributes adds PKCE attributes to a span
func AddPKCEAttributes(span trace.Span, method string) {
	if span == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	span.SetAttributes(attribute.String(AttrPKCEMethod, method))
}

// AddStorageAttributes adds storage operation attributes to a span
func AddStorageAttributes(span trace.Span, operation string) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrStorageOperation, operation))
}

// AddUpstreamAttributes adds upstream call attributes to a span
func AddUpstreamAttributes(span trace.Span, operation, endpoint string) {
	if span == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrUpstreamOperation, operation),
	}
	if endpoint != "" {
		attrs = append(attrs, attribute.String(AttrUpstreamEndpoint, endpoint))
	}
	span.SetAttributes(attrs...)
}

// AddHTTPAttributes adds HTTP request attributes to a span
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatus, statusCode),
	)
}

// AddSecurityAttributes adds security attributes to a span.
// The client IP is only recorded when logIPs is true.
func AddSecurityAttributes(span trace.Span, clientIP string, logIPs bool) {
	if span == nil {
		return
	}
	if logIPs && clientIP != "" {
		span.SetAttributes(attribute.String(AttrClientIP, clientIP))
	}
}
