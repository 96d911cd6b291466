package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments used by the proxy
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// OAuth flow metrics
	AuthorizationStarted metric.Int64Counter
	CallbackProcessed    metric.Int64Counter
	CodeExchanged        metric.Int64Counter
	TokenRefreshed       metric.Int64Counter
	TokenRevoked         metric.Int64Counter
	ClientRegistered     metric.Int64Counter
	RateLimitExceeded    metric.Int64Counter
	PKCEValidationFailed metric.Int64Counter
	RedirectRejected     metric.Int64Counter
	AuditEventsTotal     metric.Int64Counter

	// Storage metrics
	StorageOperationsTotal    metric.Int64Counter
	StorageOperationDuration  metric.Float64Histogram
	StorageTransactionsCount  metric.Int64ObservableGauge
	StorageCodesCount         metric.Int64ObservableGauge
	StorageAccessTokensCount  metric.Int64ObservableGauge
	StorageRefreshTokensCount metric.Int64ObservableGauge
	StorageClientsCount       metric.Int64ObservableGauge

	// Upstream provider metrics
	UpstreamCallsTotal   metric.Int64Counter
	UpstreamCallDuration metric.Float64Histogram
	UpstreamErrorsTotal  metric.Int64Counter
}

// newMetrics creates all metric instruments from the instrumentation's named meters
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// HTTP metrics
	m.HTTPRequestsTotal, err = inst.httpMeter.Int64Counter(
		"oauth.http.requests.total",
		metric.WithDescription("Total number of HTTP requests by method, endpoint, and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	m.HTTPRequestDuration, err = inst.httpMeter.Float64Histogram(
		"oauth.http.request.duration",
		metric.WithDescription("HTTP request duration by endpoint"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	// OAuth flow metrics
	m.AuthorizationStarted, err = inst.proxyMeter.Int64Counter(
		"oauth.authorization.started",
		metric.WithDescription("Authorization flows started by client"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization counter: %w", err)
	}

	m.CallbackProcessed, err = inst.proxyMeter.Int64Counter(
		"oauth.callback.processed",
		metric.WithDescription("Upstream callbacks processed by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback counter: %w", err)
	}

	m.CodeExchanged, err = inst.proxyMeter.Int64Counter(
		"oauth.code.exchanged",
		metric.WithDescription("Authorization codes exchanged for tokens"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code exchange counter: %w", err)
	}

	m.TokenRefreshed, err = inst.proxyMeter.Int64Counter(
		"oauth.token.refreshed",
		metric.WithDescription("Token refresh operations by client and rotation outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token refresh counter: %w", err)
	}

	m.TokenRevoked, err = inst.proxyMeter.Int64Counter(
		"oauth.token.revoked",
		metric.WithDescription("Token revocations by client and token type"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token revocation counter: %w", err)
	}

	m.ClientRegistered, err = inst.proxyMeter.Int64Counter(
		"oauth.client.registered",
		metric.WithDescription("Dynamic client registrations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client registration counter: %w", err)
	}

	// Security metrics
	m.RateLimitExceeded, err = inst.securityMeter.Int64Counter(
		"oauth.rate_limit.exceeded",
		metric.WithDescription("Requests rejected by rate limiting"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}

	m.PKCEValidationFailed, err = inst.securityMeter.Int64Counter(
		"oauth.pkce.validation_failed",
		metric.WithDescription("PKCE verification failures by method"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pkce failure counter: %w", err)
	}

	m.RedirectRejected, err = inst.securityMeter.Int64Counter(
		"oauth.redirect.rejected",
		metric.WithDescription("Redirect URIs rejected by validation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redirect rejection counter: %w", err)
	}

	m.AuditEventsTotal, err = inst.securityMeter.Int64Counter(
		"oauth.audit.events.total",
		metric.WithDescription("Audit events emitted by type"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit events counter: %w", err)
	}

	// Storage metrics
	m.StorageOperationsTotal, err = inst.storageMeter.Int64Counter(
		"storage.operation.total",
		metric.WithDescription("Storage operations by operation and result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage operations counter: %w", err)
	}

	m.StorageOperationDuration, err = inst.storageMeter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Storage operation duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage duration histogram: %w", err)
	}

	m.StorageTransactionsCount, err = inst.storageMeter.Int64ObservableGauge(
		"storage.size.transactions",
		metric.WithDescription("Current number of pending authorization transactions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactions gauge: %w", err)
	}

	m.StorageCodesCount, err = inst.storageMeter.Int64ObservableGauge(
		"storage.size.codes",
		metric.WithDescription("Current number of pending authorization codes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create codes gauge: %w", err)
	}

	m.StorageAccessTokensCount, err = inst.storageMeter.Int64ObservableGauge(
		"storage.size.access_tokens",
		metric.WithDescription("Current number of stored access token records"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access tokens gauge: %w", err)
	}

	m.StorageRefreshTokensCount, err = inst.storageMeter.Int64ObservableGauge(
		"storage.size.refresh_tokens",
		metric.WithDescription("Current number of stored refresh token records"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh tokens gauge: %w", err)
	}

	m.StorageClientsCount, err = inst.storageMeter.Int64ObservableGauge(
		"storage.size.clients",
		metric.WithDescription("Current number of registered clients"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create clients gauge: %w", err)
	}

	// Upstream provider metrics
	m.UpstreamCallsTotal, err = inst.upstreamMeter.Int64Counter(
		"upstream.calls.total",
		metric.WithDescription("Upstream authorization server calls by operation and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream calls counter: %w", err)
	}

	m.UpstreamCallDuration, err = inst.upstreamMeter.Float64Histogram(
		"upstream.call.duration",
		metric.WithDescription("Upstream call duration by operation"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream duration histogram: %w", err)
	}

	m.UpstreamErrorsTotal, err = inst.upstreamMeter.Int64Counter(
		"upstream.errors.total",
		metric.WithDescription("Upstream call errors by operation and error type"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream errors counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with its duration
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, endpoint string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("endpoint", endpoint),
		attribute.String("status", strconv.Itoa(statusCode)),
	))
	m.HTTPRequestDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

// RecordAuthorizationStarted records the start of an authorization flow
func (m *Metrics) RecordAuthorizationStarted(ctx context.Context, clientID string) {
	if m == nil {
		return
	}
	m.AuthorizationStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
	))
}

// RecordCallbackProcessed records an upstream callback outcome
func (m *Metrics) RecordCallbackProcessed(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.CallbackProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}

// RecordCodeExchange records an authorization code exchange
func (m *Metrics) RecordCodeExchange(ctx context.Context, clientID, pkceMethod string) {
	if m == nil {
		return
	}
	if pkceMethod == "" {
		pkceMethod = "none"
	}
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("pkce_method", pkceMethod),
	))
}

// RecordTokenRefresh records a token refresh and whether the refresh token rotated
func (m *Metrics) RecordTokenRefresh(ctx context.Context, clientID string, rotated bool) {
	if m == nil {
		return
	}
	m.TokenRefreshed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.Bool("rotated", rotated),
	))
}

// RecordTokenRevocation records a token revocation
func (m *Metrics) RecordTokenRevocation(ctx context.Context, clientID, tokenType string) {
	if m == nil {
		return
	}
	m.TokenRevoked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client_id", clientID),
		attribute.String("token_type", tokenType),
	))
}

// RecordClientRegistration records a dynamic client registration
func (m *Metrics) RecordClientRegistration(ctx context.Context) {
	if m == nil {
		return
	}
	m.ClientRegistered.Add(ctx, 1)
}

// RecordRateLimitExceeded records a request rejected by rate limiting
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

// RecordPKCEValidationFailed records a failed PKCE verification
func (m *Metrics) RecordPKCEValidationFailed(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.PKCEValidationFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordRedirectRejected records a redirect URI rejected by validation
func (m *Metrics) RecordRedirectRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.RedirectRejected.Add(ctx, 1)
}

// RecordAuditEvent records an emitted audit event
func (m *Metrics) RecordAuditEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.AuditEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordStorageOperation records a storage operation with its duration
func (m *Metrics) RecordStorageOperation(ctx context.Context, operation, result string, durationMs float64) {
	if m == nil {
		return
	}
	m.StorageOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
	m.StorageOperationDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordUpstreamCall records a call to the upstream authorization server.
// When err is non-nil an error of the classified type is counted as well.
func (m *Metrics) RecordUpstreamCall(ctx context.Context, operation string, statusCode int, durationMs float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	} else if statusCode >= 400 {
		status = strconv.Itoa(statusCode)
	}
	m.UpstreamCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.UpstreamCallDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
	if err != nil {
		m.UpstreamErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error_type", classifyUpstreamError(err)),
		))
	}
}

// classifyUpstreamError maps an error to a low-cardinality error type label
func classifyUpstreamError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) {
			if netErr.Timeout() {
				return "timeout"
			}
			return "network"
		}
		return "other"
	}
}
