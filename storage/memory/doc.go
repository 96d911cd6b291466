// Package memory provides an in-memory implementation of the proxy storage interfaces.
//
// This package implements TransactionStore, AuthorizationCodeStore, ClientStore,
// and TokenStore using Go's built-in maps with mutex protection for thread safety.
// The proxy is a single-process design, so this is the only backend provided.
//
// Features:
//   - Thread-safe operations using a single sync.RWMutex
//   - Atomic consume operations for transactions and authorization codes
//   - Lazy eviction of expired entries on access
//   - Optional background sweeper via NewWithCleanup
//   - Token payload encryption at rest via Encryptor
//
// Example usage:
//
//	store := memory.New()
//
//	proxy, _ := oauthproxy.New(cfg, upstream, oauthproxy.Stores{
//		Transactions: store,
//		Codes:        store,
//		Clients:      store,
//		Tokens:       store,
//	}, logger)
package memory
