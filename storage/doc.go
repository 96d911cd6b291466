// Package storage provides interfaces and utilities for proxy flow, client, and token persistence.
//
// The storage package defines the core storage interfaces used throughout the oauth-proxy library:
//   - TransactionStore: Manages in-flight authorization transactions
//   - AuthorizationCodeStore: Manages single-use authorization codes minted by the proxy
//   - ClientStore: Manages dynamically registered OAuth clients
//   - TokenStore: Manages access and refresh token records and their pairing
//
// This package also provides shared types and utility functions used by storage implementations,
// including helpers that preserve and optionally encrypt the extra fields of upstream token
// payloads (id_token, scope).
//
// Implementations are provided in subpackages:
//   - storage/memory: In-memory storage; the proxy is explicitly a single-process design
package storage
