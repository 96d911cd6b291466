// Package security provides security-related functionality for the proxy,
// including rate limiting, token encryption at rest, client IP extraction,
// request ID propagation, and audit logging.
//
// # Rate Limiting
//
// The RateLimiter provides per-identifier rate limiting using a token bucket
// algorithm with automatic memory management through LRU eviction. When the
// configured maximum number of tracked identifiers is reached, the least
// recently used entries are evicted, so one-off attack IPs age out before
// legitimate repeat callers.
//
//	limiter := security.NewRateLimiter(10, 20, logger)
//	defer limiter.Stop()
//
//	if !limiter.Allow(clientIP) {
//	    // Rate limit exceeded
//	    return http.StatusTooManyRequests
//	}
//
// # Audit Logging
//
// The Auditor emits structured security events (registrations, issued and
// revoked tokens, authentication failures) through slog. Token values are
// never logged whole; they are reduced to a short SHA-256 prefix.
//
// # Encryption
//
// The Encryptor protects stored upstream token payloads with AES-256-GCM.
// Keys are supplied directly (32 bytes) or derived from a passphrase with
// HKDF-SHA256.
package security
