package oauthproxy

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/authbridge/oauth-proxy/instrumentation"
	"github.com/authbridge/oauth-proxy/security"
	"github.com/authbridge/oauth-proxy/storage"
	"github.com/authbridge/oauth-proxy/upstream"
	"github.com/authbridge/oauth-proxy/verifier"
)

// Stores bundles the storage backends the proxy needs. A single
// *memory.Store satisfies all four fields; split implementations are
// equally valid since no operation spans two stores transactionally.
type Stores struct {
	Transactions storage.TransactionStore
	Codes        storage.AuthorizationCodeStore
	Clients      storage.ClientStore
	Tokens       storage.TokenStore
}

// Proxy implements the OAuth flows: dynamic registration collapsing onto the
// fixed upstream application, the linked client-to-proxy and proxy-to-upstream
// authorization flows, token redemption, refresh, and revocation.
//
// Construct with New, then wire the HTTP surface with NewHandler.
type Proxy struct {
	config      *Config
	upstream    upstream.Exchanger
	stores      Stores
	logger      *slog.Logger
	verifier    verifier.Verifier
	auditor     *security.Auditor
	rateLimiter *security.RateLimiter
	inst        *instrumentation.Instrumentation
	metrics     *instrumentation.Metrics
	stopOnce    sync.Once
}

// encryptorSetter is implemented by stores that can encrypt token payloads
// at rest.
type encryptorSetter interface {
	SetEncryptor(enc *security.Encryptor)
}

// New creates a Proxy. The config is validated (and gets its defaults filled
// in). When cfg.EncryptionPassphrase is set, an encryptor is derived from it
// and handed to every store that accepts one.
func New(cfg *Config, up upstream.Exchanger, stores Stores, logger *slog.Logger) (*Proxy, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if up == nil {
		return nil, fmt.Errorf("upstream cannot be nil")
	}
	if stores.Transactions == nil || stores.Codes == nil || stores.Clients == nil || stores.Tokens == nil {
		return nil, fmt.Errorf("all stores are required")
	}

	if logger == nil {
		logger = cfg.Logger
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Proxy{
		config:   cfg,
		upstream: up,
		stores:   stores,
		logger:   logger,
		auditor:  security.NewAuditor(logger, cfg.EnableAuditLogging),
	}

	if !cfg.RateLimit.Disabled {
		p.rateLimiter = security.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	}

	if cfg.EncryptionPassphrase != "" {
		enc, err := security.NewEncryptorFromPassphrase(cfg.EncryptionPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize encryption: %w", err)
		}
		seen := map[encryptorSetter]bool{}
		for _, s := range []interface{}{stores.Transactions, stores.Codes, stores.Clients, stores.Tokens} {
			if setter, ok := s.(encryptorSetter); ok && !seen[setter] {
				setter.SetEncryptor(enc)
				seen[setter] = true
			}
		}
		logger.Info("Token encryption at rest enabled")
	}

	return p, nil
}

// SetVerifier installs the access token verifier used by LoadAccessToken.
// Without one, LoadAccessToken fails.
func (p *Proxy) SetVerifier(v verifier.Verifier) {
	p.verifier = v
}

// SetInstrumentation installs OpenTelemetry tracing and metrics. Call it
// before NewHandler: handlers capture their tracer at construction. Stores
// that accept instrumentation should be given it separately; this wires only
// the proxy's own operations.
func (p *Proxy) SetInstrumentation(inst *instrumentation.Instrumentation) {
	p.inst = inst
	if inst != nil {
		p.metrics = inst.Metrics()
	} else {
		p.metrics = nil
	}
}

// Config returns the proxy's validated configuration.
func (p *Proxy) Config() *Config {
	return p.config
}

// Stop releases background resources (the rate limiter's cleanup goroutine).
// Safe to call more than once. Stores started with their own cleanup
// goroutines are stopped by their owners.
func (p *Proxy) Stop() {
	p.stopOnce.Do(func() {
		if p.rateLimiter != nil {
			p.rateLimiter.Stop()
		}
	})
}
