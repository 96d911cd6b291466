// Package storage defines interfaces for persisting authorization transactions,
// issued codes, registered clients, and token records.
// It supports various backend implementations; an in-memory backend is provided.
package storage

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// Typed errors returned by storage implementations. Callers match them with
// errors.Is; implementations may wrap them with additional detail.
var (
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrAuthorizationCodeNotFound = errors.New("authorization code not found")
	ErrClientNotFound            = errors.New("client not found")
	ErrTokenNotFound             = errors.New("token not found")
	ErrTokenExpired              = errors.New("token expired")
)

// TransactionStore manages in-flight authorization transactions.
// A transaction is created when a client starts an authorization flow and is
// consumed exactly once when the upstream server calls back.
// All methods accept context.Context for tracing and cancellation.
type TransactionStore interface {
	// SaveTransaction saves an in-flight authorization transaction
	SaveTransaction(ctx context.Context, txn *Transaction) error

	// GetTransaction retrieves a transaction by ID without consuming it
	GetTransaction(ctx context.Context, id string) (*Transaction, error)

	// ConsumeTransaction atomically retrieves and deletes a transaction.
	// Under concurrent callbacks with the same state, at most one caller
	// receives the transaction; all others get ErrTransactionNotFound.
	// SECURITY: This operation MUST be atomic to prevent double processing
	// of a single upstream callback.
	ConsumeTransaction(ctx context.Context, id string) (*Transaction, error)

	// DeleteTransaction removes a transaction
	DeleteTransaction(ctx context.Context, id string) error
}

// AuthorizationCodeStore manages authorization codes minted by the proxy.
// All methods accept context.Context for tracing and cancellation.
type AuthorizationCodeStore interface {
	// SaveAuthorizationCode saves an issued authorization code
	SaveAuthorizationCode(ctx context.Context, code *AuthorizationCode) error

	// ConsumeAuthorizationCode atomically retrieves and deletes an
	// authorization code. The entry is removed whether it is valid,
	// expired (ErrTokenExpired), or already gone
	// (ErrAuthorizationCodeNotFound), so a code can never be redeemed twice.
	// SECURITY: This operation MUST be atomic to prevent concurrent code
	// exchange attacks.
	ConsumeAuthorizationCode(ctx context.Context, code string) (*AuthorizationCode, error)
}

// ClientStore manages registered OAuth client records.
// All methods accept context.Context for tracing and cancellation.
type ClientStore interface {
	// SaveClient saves a registered client
	SaveClient(ctx context.Context, client *Client) error

	// GetClient retrieves a client by ID
	GetClient(ctx context.Context, clientID string) (*Client, error)

	// DeleteClient removes a client registration
	DeleteClient(ctx context.Context, clientID string) error
}

// TokenStore manages issued access and refresh token records and the pairing
// between them. Pairing is bidirectional: revoking either side of a pair must
// allow the counterpart to be found and removed.
// All methods accept context.Context for tracing and cancellation.
type TokenStore interface {
	// SaveAccessToken saves an access token record
	SaveAccessToken(ctx context.Context, record *AccessTokenRecord) error

	// GetAccessToken retrieves an access token record
	GetAccessToken(ctx context.Context, token string) (*AccessTokenRecord, error)

	// DeleteAccessToken removes an access token record
	DeleteAccessToken(ctx context.Context, token string) error

	// SaveRefreshToken saves a refresh token record
	SaveRefreshToken(ctx context.Context, record *RefreshTokenRecord) error

	// GetRefreshToken retrieves a refresh token record
	GetRefreshToken(ctx context.Context, token string) (*RefreshTokenRecord, error)

	// DeleteRefreshToken removes a refresh token record
	DeleteRefreshToken(ctx context.Context, token string) error

	// LinkTokens records the two-way pairing between an access token and the
	// refresh token issued alongside it
	LinkTokens(ctx context.Context, accessToken, refreshToken string) error

	// UnlinkTokens removes both directions of a pairing. Either argument may
	// be empty when only one side is known.
	UnlinkTokens(ctx context.Context, accessToken, refreshToken string) error

	// RefreshTokenForAccess returns the refresh token paired with an access
	// token, or ErrTokenNotFound if the access token is unpaired
	RefreshTokenForAccess(ctx context.Context, accessToken string) (string, error)

	// AccessTokenForRefresh returns the access token paired with a refresh
	// token, or ErrTokenNotFound if the refresh token is unpaired
	AccessTokenForRefresh(ctx context.Context, refreshToken string) (string, error)
}

// Transaction represents one in-flight authorization flow between a dynamic
// client and the upstream server. Its ID is used verbatim as the OAuth state
// parameter on the upstream leg; the client's own state is held in ClientState
// and restored on the final redirect.
type Transaction struct {
	ID                  string
	ClientID            string
	ClientRedirectURI   string
	ClientState         string
	CodeChallenge       string // Client-to-proxy PKCE challenge (never forwarded upstream)
	CodeChallengeMethod string
	Scopes              []string
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// AuthorizationCode represents a single-use code minted by the proxy after a
// successful upstream exchange. It carries the complete upstream token payload
// so redemption can return it verbatim.
type AuthorizationCode struct {
	Code                string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scopes              []string
	UpstreamToken       *oauth2.Token
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// Client represents a registered OAuth client. Every dynamically registered
// client collapses onto the fixed upstream application identity; redirect URIs
// are validated per request against RedirectURIPatterns rather than against
// the registered list.
type Client struct {
	ClientID                string
	ClientSecret            string
	RedirectURIs            []string // As requested at registration, echoed back only
	RedirectURIPatterns     []string // nil means the default loopback-only policy
	GrantTypes              []string
	ResponseTypes           []string
	TokenEndpointAuthMethod string
	ClientName              string
	Scopes                  []string
	CreatedAt               time.Time
}

// AccessTokenRecord is the proxy's bookkeeping entry for an upstream access
// token it has handed to a client.
type AccessTokenRecord struct {
	Token     string
	ClientID  string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RefreshTokenRecord is the proxy's bookkeeping entry for an upstream refresh
// token. A zero ExpiresAt means the token does not expire locally.
type RefreshTokenRecord struct {
	Token     string
	ClientID  string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt time.Time
}
