// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the oauth-proxy library.
//
// This package enables observability across all library layers through:
// - Metrics: Counters, histograms, and gauges for proxy flow operations
// - Traces: Distributed tracing for request flows across components
//
// # Quick Start
//
//	import "github.com/authbridge/oauth-proxy/instrumentation"
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "my-oauth-proxy",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// When Enabled is true and no explicit providers are configured, the global
// OTEL providers are used, so an application that installs SDK providers via
// otel.SetTracerProvider / otel.SetMeterProvider gets proxy telemetry for
// free. When Enabled is false, no-op providers are used and recording costs
// nothing.
//
// # Available Metrics
//
// HTTP layer:
//   - oauth.http.requests.total{method, endpoint, status}
//   - oauth.http.request.duration{endpoint}
//
// Proxy flows:
//   - oauth.authorization.started{client_id}
//   - oauth.callback.processed{success}
//   - oauth.code.exchanged{client_id, pkce_method}
//   - oauth.token.refreshed{client_id, rotated}
//   - oauth.token.revoked{client_id, token_type}
//   - oauth.client.registered
//
// Security:
//   - oauth.rate_limit.exceeded{endpoint}
//   - oauth.pkce.validation_failed{method}
//   - oauth.redirect.rejected
//   - oauth.audit.events.total{event_type}
//
// Storage:
//   - storage.operation.total{operation, result}
//   - storage.operation.duration{operation}
//   - storage.size.transactions / codes / access_tokens / refresh_tokens / clients (gauges)
//
// Upstream:
//   - upstream.calls.total{operation, status}
//   - upstream.call.duration{operation}
//   - upstream.errors.total{operation, error_type}
package instrumentation
