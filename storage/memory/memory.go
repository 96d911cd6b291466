// Package memory provides an in-memory implementation of all storage interfaces.
// It is suitable for development, testing, and single-process deployments.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/authbridge/oauth-proxy/instrumentation"
	"github.com/authbridge/oauth-proxy/security"
	"github.com/authbridge/oauth-proxy/storage"
)

// Store is an in-memory implementation of all storage interfaces.
// It implements TransactionStore, AuthorizationCodeStore, ClientStore, and TokenStore.
type Store struct {
	mu sync.RWMutex

	transactions  map[string]*storage.Transaction
	authCodes     map[string]*storage.AuthorizationCode
	clients       map[string]*storage.Client
	accessTokens  map[string]*storage.AccessTokenRecord
	refreshTokens map[string]*storage.RefreshTokenRecord

	// Token pairing, maintained in both directions
	accessToRefresh map[string]string
	refreshToAccess map[string]string

	// Security
	encryptor *security.Encryptor // Token payload encryption at rest (optional)

	// Instrumentation
	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer

	// Atomic counters for metrics (lock-free access during metric collection)
	transactionsCountAtomic  atomic.Int64
	codesCountAtomic         atomic.Int64
	accessTokensCountAtomic  atomic.Int64
	refreshTokensCountAtomic atomic.Int64
	clientsCountAtomic       atomic.Int64

	// Cleanup
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
}

// Compile-time interface checks to ensure Store implements all storage interfaces
var (
	_ storage.TransactionStore       = (*Store)(nil)
	_ storage.AuthorizationCodeStore = (*Store)(nil)
	_ storage.ClientStore            = (*Store)(nil)
	_ storage.TokenStore             = (*Store)(nil)
)

// New creates a new in-memory store. No background goroutines are started;
// expired entries are evicted lazily on access. Use NewWithCleanup for a
// store that also sweeps expired entries periodically.
func New() *Store {
	return &Store{
		transactions:    make(map[string]*storage.Transaction),
		authCodes:       make(map[string]*storage.AuthorizationCode),
		clients:         make(map[string]*storage.Client),
		accessTokens:    make(map[string]*storage.AccessTokenRecord),
		refreshTokens:   make(map[string]*storage.RefreshTokenRecord),
		accessToRefresh: make(map[string]string),
		refreshToAccess: make(map[string]string),
		logger:          slog.Default(),
	}
}

// NewWithCleanup creates a new in-memory store with a background goroutine
// that periodically evicts expired entries. If interval is 0 or negative,
// a default of 1 minute is used. Call Stop to terminate the goroutine.
func NewWithCleanup(interval time.Duration) *Store {
	if interval <= 0 {
		interval = time.Minute
	}

	s := New()
	s.cleanupInterval = interval
	s.stopCleanup = make(chan struct{})

	go s.cleanupLoop()

	return s
}

// SetLogger sets a custom logger
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetEncryptor sets the token encryptor for encryption at rest
func (s *Store) SetEncryptor(enc *security.Encryptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encryptor = enc
	if enc != nil && enc.IsEnabled() {
		s.logger.Info("Token encryption at rest enabled for storage")
	}
}

// SetInstrumentation sets OpenTelemetry instrumentation for the store
func (s *Store) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.mu.Lock()
	s.instrumentation = inst
	if inst != nil {
		s.tracer = inst.Tracer("storage")
	}

	// Initialize atomic counters with current counts
	s.transactionsCountAtomic.Store(int64(len(s.transactions)))
	s.codesCountAtomic.Store(int64(len(s.authCodes)))
	s.accessTokensCountAtomic.Store(int64(len(s.accessTokens)))
	s.refreshTokensCountAtomic.Store(int64(len(s.refreshTokens)))
	s.clientsCountAtomic.Store(int64(len(s.clients)))
	s.mu.Unlock()

	if inst != nil {
		// Register storage size callbacks using atomic counters (lock-free)
		err := inst.RegisterStorageSizeCallbacks(
			func() int64 { return s.transactionsCountAtomic.Load() },
			func() int64 { return s.codesCountAtomic.Load() },
			func() int64 { return s.accessTokensCountAtomic.Load() },
			func() int64 { return s.refreshTokensCountAtomic.Load() },
			func() int64 { return s.clientsCountAtomic.Load() },
		)
		if err != nil {
			s.logger.Warn("Failed to register storage size callbacks", "error", err)
		}
	}
}

// Stop terminates the background cleanup goroutine if one was started.
// Safe to call multiple times and on stores created without cleanup.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		if s.stopCleanup != nil {
			close(s.stopCleanup)
		}
	})
}

// ============================================================
// TransactionStore Implementation
// ============================================================

// SaveTransaction saves an in-flight authorization transaction
func (s *Store) SaveTransaction(ctx context.Context, txn *storage.Transaction) error {
	ctx, span := s.startStorageSpan(ctx, "save_transaction")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_transaction", err, startTime)
	}()

	if txn == nil {
		err = fmt.Errorf("transaction cannot be nil")
		return err
	}
	if txn.ID == "" {
		err = fmt.Errorf("transaction ID cannot be empty")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.transactions[txn.ID]
	s.transactions[txn.ID] = copyTransaction(txn)
	if !existed {
		s.transactionsCountAtomic.Add(1)
	}

	s.logger.Debug("Saved authorization transaction",
		"txn", security.HashForLogging(txn.ID),
		"client_id", txn.ClientID)
	return nil
}

// GetTransaction retrieves a transaction by ID without consuming it.
// Expired transactions are evicted and reported as not found.
func (s *Store) GetTransaction(ctx context.Context, id string) (*storage.Transaction, error) {
	ctx, span := s.startStorageSpan(ctx, "get_transaction")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_transaction", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		err = fmt.Errorf("%w: %s", storage.ErrTransactionNotFound, security.HashForLogging(id))
		return nil, err
	}

	if security.IsExpired(txn.ExpiresAt) {
		delete(s.transactions, id)
		s.transactionsCountAtomic.Add(-1)
		err = fmt.Errorf("%w: %s expired", storage.ErrTransactionNotFound, security.HashForLogging(id))
		return nil, err
	}

	return copyTransaction(txn), nil
}

// ConsumeTransaction atomically retrieves and deletes a transaction.
// At most one concurrent caller receives the transaction; the entry is gone
// afterwards whether it was valid or expired.
func (s *Store) ConsumeTransaction(ctx context.Context, id string) (*storage.Transaction, error) {
	ctx, span := s.startStorageSpan(ctx, "consume_transaction")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "consume_transaction", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[id]
	if !ok {
		err = fmt.Errorf("%w: %s", storage.ErrTransactionNotFound, security.HashForLogging(id))
		return nil, err
	}

	delete(s.transactions, id)
	s.transactionsCountAtomic.Add(-1)

	if security.IsExpired(txn.ExpiresAt) {
		err = fmt.Errorf("%w: %s expired", storage.ErrTransactionNotFound, security.HashForLogging(id))
		return nil, err
	}

	s.logger.Debug("Consumed authorization transaction",
		"txn", security.HashForLogging(id),
		"client_id", txn.ClientID)
	return txn, nil
}

// DeleteTransaction removes a transaction. Deleting an absent transaction is not an error.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	ctx, span := s.startStorageSpan(ctx, "delete_transaction")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "delete_transaction", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.transactions[id]; existed {
		delete(s.transactions, id)
		s.transactionsCountAtomic.Add(-1)
	}

	return nil
}

// ============================================================
// AuthorizationCodeStore Implementation
// ============================================================

// SaveAuthorizationCode saves an issued authorization code.
// The upstream token payload is encrypted when an encryptor is configured.
func (s *Store) SaveAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) error {
	ctx, span := s.startStorageSpan(ctx, "save_authorization_code")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_authorization_code", err, startTime)
	}()

	if code == nil {
		err = fmt.Errorf("authorization code cannot be nil")
		return err
	}
	if code.Code == "" {
		err = fmt.Errorf("authorization code value cannot be empty")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyAuthorizationCode(code)
	if s.encryptor != nil && s.encryptor.IsEnabled() && stored.UpstreamToken != nil {
		encrypted, encErr := encryptUpstreamToken(stored.UpstreamToken, s.encryptor)
		if encErr != nil {
			err = encErr
			return err
		}
		stored.UpstreamToken = encrypted
	}

	_, existed := s.authCodes[code.Code]
	s.authCodes[code.Code] = stored
	if !existed {
		s.codesCountAtomic.Add(1)
	}

	s.logger.Debug("Saved authorization code",
		"code", security.HashForLogging(code.Code),
		"client_id", code.ClientID)
	return nil
}

// ConsumeAuthorizationCode atomically retrieves and deletes an authorization code.
// The entry is removed even when it turns out to be expired, so a code can
// never be redeemed twice.
func (s *Store) ConsumeAuthorizationCode(ctx context.Context, code string) (*storage.AuthorizationCode, error) {
	ctx, span := s.startStorageSpan(ctx, "consume_authorization_code")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "consume_authorization_code", err, startTime)
	}()

	s.mu.Lock()
	encryptor := s.encryptor
	authCode, ok := s.authCodes[code]
	if !ok {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %s", storage.ErrAuthorizationCodeNotFound, security.HashForLogging(code))
		return nil, err
	}

	delete(s.authCodes, code)
	s.codesCountAtomic.Add(-1)
	s.mu.Unlock()

	if security.IsExpired(authCode.ExpiresAt) {
		err = fmt.Errorf("%w: authorization code %s", storage.ErrTokenExpired, security.HashForLogging(code))
		return nil, err
	}

	// Decrypt the upstream token payload outside the lock
	if encryptor != nil && encryptor.IsEnabled() && authCode.UpstreamToken != nil {
		decrypted, decErr := decryptUpstreamToken(authCode.UpstreamToken, encryptor)
		if decErr != nil {
			err = decErr
			return nil, err
		}
		authCode.UpstreamToken = decrypted
	}

	s.logger.Debug("Consumed authorization code",
		"code", security.HashForLogging(code),
		"client_id", authCode.ClientID)
	return authCode, nil
}

// ============================================================
// ClientStore Implementation
// ============================================================

// SaveClient saves a registered client
func (s *Store) SaveClient(ctx context.Context, client *storage.Client) error {
	ctx, span := s.startStorageSpan(ctx, "save_client")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_client", err, startTime)
	}()

	if client == nil {
		err = fmt.Errorf("client cannot be nil")
		return err
	}
	if client.ClientID == "" {
		err = fmt.Errorf("client ID cannot be empty")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.clients[client.ClientID]
	s.clients[client.ClientID] = copyClient(client)
	if !existed {
		s.clientsCountAtomic.Add(1)
	}

	s.logger.Debug("Saved client", "client_id", client.ClientID)
	return nil
}

// GetClient retrieves a client by ID
func (s *Store) GetClient(ctx context.Context, clientID string) (*storage.Client, error) {
	ctx, span := s.startStorageSpan(ctx, "get_client")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_client", err, startTime)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		err = fmt.Errorf("%w: %s", storage.ErrClientNotFound, clientID)
		return nil, err
	}

	return copyClient(client), nil
}

// DeleteClient removes a client registration. Deleting an absent client is not an error.
func (s *Store) DeleteClient(ctx context.Context, clientID string) error {
	ctx, span := s.startStorageSpan(ctx, "delete_client")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "delete_client", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.clients[clientID]; existed {
		delete(s.clients, clientID)
		s.clientsCountAtomic.Add(-1)
		s.logger.Debug("Deleted client", "client_id", clientID)
	}

	return nil
}

// ============================================================
// TokenStore Implementation
// ============================================================

// SaveAccessToken saves an access token record
func (s *Store) SaveAccessToken(ctx context.Context, record *storage.AccessTokenRecord) error {
	ctx, span := s.startStorageSpan(ctx, "save_access_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_access_token", err, startTime)
	}()

	if record == nil {
		err = fmt.Errorf("access token record cannot be nil")
		return err
	}
	if record.Token == "" {
		err = fmt.Errorf("access token cannot be empty")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.accessTokens[record.Token]
	s.accessTokens[record.Token] = copyAccessTokenRecord(record)
	if !existed {
		s.accessTokensCountAtomic.Add(1)
	}

	s.logger.Debug("Saved access token",
		"token", security.HashForLogging(record.Token),
		"client_id", record.ClientID)
	return nil
}

// GetAccessToken retrieves an access token record.
// Expired records are evicted and reported with ErrTokenExpired.
func (s *Store) GetAccessToken(ctx context.Context, token string) (*storage.AccessTokenRecord, error) {
	ctx, span := s.startStorageSpan(ctx, "get_access_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_access_token", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.accessTokens[token]
	if !ok {
		err = fmt.Errorf("%w: %s", storage.ErrTokenNotFound, security.HashForLogging(token))
		return nil, err
	}

	if security.IsExpired(record.ExpiresAt) {
		delete(s.accessTokens, token)
		s.accessTokensCountAtomic.Add(-1)
		err = fmt.Errorf("%w: access token %s", storage.ErrTokenExpired, security.HashForLogging(token))
		return nil, err
	}

	return copyAccessTokenRecord(record), nil
}

// DeleteAccessToken removes an access token record. Deleting an absent record is not an error.
func (s *Store) DeleteAccessToken(ctx context.Context, token string) error {
	ctx, span := s.startStorageSpan(ctx, "delete_access_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "delete_access_token", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.accessTokens[token]; existed {
		delete(s.accessTokens, token)
		s.accessTokensCountAtomic.Add(-1)
		s.logger.Debug("Deleted access token", "token", security.HashForLogging(token))
	}

	return nil
}

// SaveRefreshToken saves a refresh token record
func (s *Store) SaveRefreshToken(ctx context.Context, record *storage.RefreshTokenRecord) error {
	ctx, span := s.startStorageSpan(ctx, "save_refresh_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "save_refresh_token", err, startTime)
	}()

	if record == nil {
		err = fmt.Errorf("refresh token record cannot be nil")
		return err
	}
	if record.Token == "" {
		err = fmt.Errorf("refresh token cannot be empty")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.refreshTokens[record.Token]
	s.refreshTokens[record.Token] = copyRefreshTokenRecord(record)
	if !existed {
		s.refreshTokensCountAtomic.Add(1)
	}

	s.logger.Debug("Saved refresh token",
		"token", security.HashForLogging(record.Token),
		"client_id", record.ClientID)
	return nil
}

// GetRefreshToken retrieves a refresh token record. Records with a zero
// expiry never expire; expired records are evicted and reported with
// ErrTokenExpired.
func (s *Store) GetRefreshToken(ctx context.Context, token string) (*storage.RefreshTokenRecord, error) {
	ctx, span := s.startStorageSpan(ctx, "get_refresh_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "get_refresh_token", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.refreshTokens[token]
	if !ok {
		err = fmt.Errorf("%w: %s", storage.ErrTokenNotFound, security.HashForLogging(token))
		return nil, err
	}

	if security.IsExpired(record.ExpiresAt) {
		delete(s.refreshTokens, token)
		s.refreshTokensCountAtomic.Add(-1)
		err = fmt.Errorf("%w: refresh token %s", storage.ErrTokenExpired, security.HashForLogging(token))
		return nil, err
	}

	return copyRefreshTokenRecord(record), nil
}

// DeleteRefreshToken removes a refresh token record. Deleting an absent record is not an error.
func (s *Store) DeleteRefreshToken(ctx context.Context, token string) error {
	ctx, span := s.startStorageSpan(ctx, "delete_refresh_token")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "delete_refresh_token", err, startTime)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, existed := s.refreshTokens[token]; existed {
		delete(s.refreshTokens, token)
		s.refreshTokensCountAtomic.Add(-1)
		s.logger.Debug("Deleted refresh token", "token", security.HashForLogging(token))
	}

	return nil
}

// LinkTokens records the two-way pairing between an access token and the
// refresh token issued alongside it
func (s *Store) LinkTokens(ctx context.Context, accessToken, refreshToken string) error {
	ctx, span := s.startStorageSpan(ctx, "link_tokens")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "link_tokens", err, startTime)
	}()

	if accessToken == "" || refreshToken == "" {
		err = fmt.Errorf("both tokens are required for linking")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToRefresh[accessToken] = refreshToken
	s.refreshToAccess[refreshToken] = accessToken

	return nil
}

// UnlinkTokens removes both directions of a pairing. When only one side is
// known, the counterpart is resolved from the stored pairing.
func (s *Store) UnlinkTokens(ctx context.Context, accessToken, refreshToken string) error {
	ctx, span := s.startStorageSpan(ctx, "unlink_tokens")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "unlink_tokens", err, startTime)
	}()

	if accessToken == "" && refreshToken == "" {
		err = fmt.Errorf("at least one token is required for unlinking")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if accessToken == "" {
		accessToken = s.refreshToAccess[refreshToken]
	}
	if refreshToken == "" {
		refreshToken = s.accessToRefresh[accessToken]
	}

	if accessToken != "" {
		delete(s.accessToRefresh, accessToken)
	}
	if refreshToken != "" {
		delete(s.refreshToAccess, refreshToken)
	}

	return nil
}

// RefreshTokenForAccess returns the refresh token paired with an access token
func (s *Store) RefreshTokenForAccess(ctx context.Context, accessToken string) (string, error) {
	ctx, span := s.startStorageSpan(ctx, "refresh_token_for_access")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "refresh_token_for_access", err, startTime)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	refreshToken, ok := s.accessToRefresh[accessToken]
	if !ok {
		err = fmt.Errorf("%w: no refresh token paired with %s", storage.ErrTokenNotFound, security.HashForLogging(accessToken))
		return "", err
	}

	return refreshToken, nil
}

// AccessTokenForRefresh returns the access token paired with a refresh token
func (s *Store) AccessTokenForRefresh(ctx context.Context, refreshToken string) (string, error) {
	ctx, span := s.startStorageSpan(ctx, "access_token_for_refresh")
	defer span.End()

	startTime := time.Now()
	var err error

	defer func() {
		s.recordStorageOperation(ctx, span, "access_token_for_refresh", err, startTime)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	accessToken, ok := s.refreshToAccess[refreshToken]
	if !ok {
		err = fmt.Errorf("%w: no access token paired with %s", storage.ErrTokenNotFound, security.HashForLogging(refreshToken))
		return "", err
	}

	return accessToken, nil
}

// ============================================================
// Encryption helpers
// ============================================================

// encryptUpstreamToken returns a copy of the token with its access token,
// refresh token, and sensitive extra fields encrypted. The original is never
// modified.
func encryptUpstreamToken(token *oauth2.Token, encryptor *security.Encryptor) (*oauth2.Token, error) {
	// Extract extra fields before creating the new token (they live in a private field)
	extra := storage.ExtractTokenExtra(token)

	encrypted := &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}

	if encrypted.AccessToken != "" {
		enc, err := encryptor.Encrypt(encrypted.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt access token: %w", err)
		}
		encrypted.AccessToken = enc
	}

	if encrypted.RefreshToken != "" {
		enc, err := encryptor.Encrypt(encrypted.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		encrypted.RefreshToken = enc
	}

	if extra != nil {
		encryptedExtra, err := storage.EncryptExtraFields(extra, encryptor)
		if err != nil {
			return nil, err
		}
		encrypted = encrypted.WithExtra(encryptedExtra)
	}

	return encrypted, nil
}

// decryptUpstreamToken reverses encryptUpstreamToken, returning a new token
// with plaintext fields.
func decryptUpstreamToken(token *oauth2.Token, encryptor *security.Encryptor) (*oauth2.Token, error) {
	extra := storage.ExtractTokenExtra(token)

	decrypted := &oauth2.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}

	if decrypted.AccessToken != "" {
		dec, err := encryptor.Decrypt(decrypted.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		decrypted.AccessToken = dec
	}

	if decrypted.RefreshToken != "" {
		dec, err := encryptor.Decrypt(decrypted.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		decrypted.RefreshToken = dec
	}

	if extra != nil {
		decryptedExtra, err := storage.DecryptExtraFields(extra, encryptor)
		if err != nil {
			return nil, err
		}
		decrypted = decrypted.WithExtra(decryptedExtra)
	}

	return decrypted, nil
}

// ============================================================
// Copy helpers
// ============================================================

// Stored entries are private copies so callers can never mutate store state
// through a returned pointer, and vice versa.

func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

func copyTransaction(txn *storage.Transaction) *storage.Transaction {
	c := *txn
	c.Scopes = copyStrings(txn.Scopes)
	return &c
}

func copyAuthorizationCode(code *storage.AuthorizationCode) *storage.AuthorizationCode {
	c := *code
	c.Scopes = copyStrings(code.Scopes)
	c.UpstreamToken = storage.CloneToken(code.UpstreamToken)
	return &c
}

func copyClient(client *storage.Client) *storage.Client {
	c := *client
	c.RedirectURIs = copyStrings(client.RedirectURIs)
	c.RedirectURIPatterns = copyStrings(client.RedirectURIPatterns)
	c.GrantTypes = copyStrings(client.GrantTypes)
	c.ResponseTypes = copyStrings(client.ResponseTypes)
	c.Scopes = copyStrings(client.Scopes)
	return &c
}

func copyAccessTokenRecord(record *storage.AccessTokenRecord) *storage.AccessTokenRecord {
	c := *record
	c.Scopes = copyStrings(record.Scopes)
	return &c
}

func copyRefreshTokenRecord(record *storage.RefreshTokenRecord) *storage.RefreshTokenRecord {
	c := *record
	c.Scopes = copyStrings(record.Scopes)
	return &c
}

// ============================================================
// Cleanup
// ============================================================

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := 0

	// Expired transactions (with clock skew grace period)
	for id, txn := range s.transactions {
		if security.IsExpired(txn.ExpiresAt) {
			delete(s.transactions, id)
			s.transactionsCountAtomic.Add(-1)
			cleaned++
		}
	}

	// Expired authorization codes
	for code, authCode := range s.authCodes {
		if security.IsExpired(authCode.ExpiresAt) {
			delete(s.authCodes, code)
			s.codesCountAtomic.Add(-1)
			cleaned++
		}
	}

	// Expired access token records
	for token, record := range s.accessTokens {
		if security.IsExpired(record.ExpiresAt) {
			delete(s.accessTokens, token)
			s.accessTokensCountAtomic.Add(-1)
			cleaned++
		}
	}

	// Expired refresh token records (zero expiry means non-expiring)
	for token, record := range s.refreshTokens {
		if security.IsExpired(record.ExpiresAt) {
			delete(s.refreshTokens, token)
			s.refreshTokensCountAtomic.Add(-1)
			cleaned++
		}
	}

	// Drop pairings where both sides are gone
	for accessToken, refreshToken := range s.accessToRefresh {
		_, haveAccess := s.accessTokens[accessToken]
		_, haveRefresh := s.refreshTokens[refreshToken]
		if !haveAccess && !haveRefresh {
			delete(s.accessToRefresh, accessToken)
			delete(s.refreshToAccess, refreshToken)
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Debug("Cleaned up expired entries", "count", cleaned)
	}
}

// ============================================================
// Instrumentation helpers
// ============================================================

// startStorageSpan starts a tracing span for a storage operation.
// Returns the original context and a no-op span when tracing is not configured.
func (s *Store) startStorageSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("storage.%s", operation),
		trace.WithAttributes(
			attribute.String("operation", operation),
		))

	return ctx, span
}

// recordStorageOperation records metrics for a storage operation and sets span status
func (s *Store) recordStorageOperation(ctx context.Context, span trace.Span, operation string, err error, startTime time.Time) {
	if s.instrumentation == nil {
		return
	}

	durationMs := float64(time.Since(startTime).Milliseconds())
	result := "success"
	if err != nil {
		result = "error"
		if isNotFound(err) {
			result = "not_found"
		}
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	} else if span != nil {
		span.SetStatus(codes.Ok, "")
	}

	s.instrumentation.Metrics().RecordStorageOperation(ctx, operation, result, durationMs)
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrTransactionNotFound) ||
		errors.Is(err, storage.ErrAuthorizationCodeNotFound) ||
		errors.Is(err, storage.ErrClientNotFound) ||
		errors.Is(err, storage.ErrTokenNotFound)
}
