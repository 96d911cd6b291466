package oauthproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/authbridge/oauth-proxy/instrumentation"
	"github.com/authbridge/oauth-proxy/security"
	"github.com/authbridge/oauth-proxy/storage"
)

const maxRegistrationBodySize = 1 << 20 // 1 MB

// Handler is a thin HTTP adapter for the Proxy. It parses requests, delegates
// to the proxy operations, and renders responses; all flow decisions live in
// the Proxy.
type Handler struct {
	proxy  *Proxy
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandler creates an HTTP handler for the proxy
func NewHandler(p *Proxy) *Handler {
	h := &Handler{
		proxy:  p,
		logger: p.logger,
	}
	if p.inst != nil {
		h.tracer = p.inst.Tracer("http")
	}
	return h
}

// RegisterRoutes attaches every proxy endpoint to the mux. The callback path
// comes from the configuration; everything else is fixed.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	handle := func(path string, fn http.HandlerFunc) {
		mux.Handle(path, security.RequestIDMiddleware(fn))
	}

	handle("/register", h.ServeClientRegistration)
	handle("/authorize", h.ServeAuthorization)
	handle(h.proxy.config.CallbackPath, h.ServeCallback)
	handle("/token", h.ServeToken)
	handle("/revoke", h.ServeRevocation)
	handle("/.well-known/oauth-authorization-server", h.ServeAuthorizationServerMetadata)
	handle("/.well-known/openid-configuration", h.ServeOpenIDConfiguration)
	handle("/.well-known/oauth-protected-resource", h.ServeProtectedResourceMetadata)

	h.logger.Info("Registered OAuth proxy routes",
		"callback_path", h.proxy.config.CallbackPath,
		"issuer", h.proxy.config.Issuer())
}

// ServeClientRegistration handles RFC 7591 dynamic client registration.
// Whatever the request asks for, the response carries the shared upstream
// identity.
func (h *Handler) ServeClientRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "oauth.http.register")
		defer span.End()
	}

	clientIP := h.clientIP(r)
	ctx = WithClientIP(ctx, clientIP)

	if h.checkRateLimit(w, r, clientIP, "register") {
		h.recordHTTPMetrics("register", http.MethodPost, http.StatusTooManyRequests, startTime)
		instrumentation.SetSpanError(span, "rate limited")
		return
	}

	var req ClientRegistrationRequest
	body := http.MaxBytesReader(w, r.Body, maxRegistrationBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.recordHTTPMetrics("register", http.MethodPost, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "malformed registration request")
		h.writeError(w, ErrorCodeInvalidRequest, "Invalid registration request body", http.StatusBadRequest)
		return
	}

	client, err := h.proxy.RegisterClient(ctx, &req)
	if err != nil {
		h.logger.Error("Client registration failed", "ip", clientIP, "error", err)
		h.recordHTTPMetrics("register", http.MethodPost, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err, "registration failed")
		h.writeError(w, ErrorCodeServerError, "Failed to register client", http.StatusInternalServerError)
		return
	}

	response := ClientRegistrationResponse{
		ClientID:                client.ClientID,
		ClientSecret:            client.ClientSecret,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		ClientSecretExpiresAt:   0,
		RedirectURIs:            client.RedirectURIs,
		TokenEndpointAuthMethod: client.TokenEndpointAuthMethod,
		GrantTypes:              client.GrantTypes,
		ResponseTypes:           client.ResponseTypes,
		ClientName:              client.ClientName,
		Scope:                   strings.Join(client.Scopes, " "),
	}

	h.recordHTTPMetrics("register", http.MethodPost, http.StatusCreated, startTime)
	instrumentation.SetSpanSuccess(span)

	security.SetSecurityHeaders(w, h.proxy.config.Issuer())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(response)
}

// ServeAuthorization handles the client-facing authorization endpoint.
// Invalid input produces an inline JSON error, never a redirect to an
// unvalidated URI; valid input 302s the user agent to the upstream server.
func (h *Handler) ServeAuthorization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "oauth.http.authorize")
		defer span.End()
	}

	clientIP := h.clientIP(r)
	ctx = WithClientIP(ctx, clientIP)

	q := r.URL.Query()
	clientID := q.Get("client_id")
	responseType := q.Get("response_type")

	if clientID == "" {
		h.recordHTTPMetrics("authorize", http.MethodGet, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "client_id missing")
		h.writeError(w, ErrorCodeInvalidRequest, "Required parameter 'client_id' missing", http.StatusBadRequest)
		return
	}
	if responseType != ResponseTypeCode {
		h.recordHTTPMetrics("authorize", http.MethodGet, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "unsupported response_type")
		h.writeError(w, ErrorCodeInvalidRequest, "response_type must be 'code'", http.StatusBadRequest)
		return
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, clientID))

	authURL, err := h.proxy.Authorize(ctx, clientID,
		q.Get("redirect_uri"), q.Get("scope"), q.Get("state"),
		q.Get("code_challenge"), q.Get("code_challenge_method"))
	if err != nil {
		instrumentation.RecordError(span, err, "authorization rejected")
		status := h.writeOAuthError(w, err)
		h.recordHTTPMetrics("authorize", http.MethodGet, status, startTime)
		return
	}

	h.recordHTTPMetrics("authorize", http.MethodGet, http.StatusFound, startTime)
	instrumentation.SetSpanSuccess(span)

	security.SetSecurityHeaders(w, h.proxy.config.Issuer())
	http.Redirect(w, r, authURL, http.StatusFound)
}

// ServeCallback handles the upstream server's redirect back to the proxy.
// Failures render a terminal HTML page in the user's browser rather than
// bouncing to a client redirect URI that cannot be trusted at this point.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "oauth.http.callback")
		defer span.End()
	}

	ctx = WithClientIP(ctx, h.clientIP(r))
	q := r.URL.Query()

	if upstreamErr := q.Get("error"); upstreamErr != "" {
		description := q.Get("error_description")
		h.logger.Warn("Upstream authorization failed",
			"error", upstreamErr,
			"error_description", description)
		if h.proxy.metrics != nil {
			h.proxy.metrics.RecordCallbackProcessed(ctx, false)
		}
		h.recordHTTPMetrics("callback", http.MethodGet, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "upstream returned error")

		if description == "" {
			description = fmt.Sprintf("The upstream authorization server reported: %s", upstreamErr)
		}
		h.serveCallbackErrorPage(w, http.StatusBadRequest, "Authorization Failed", description)
		return
	}

	redirectURL, err := h.proxy.HandleUpstreamCallback(ctx, q.Get("state"), q.Get("code"))
	if err != nil {
		instrumentation.RecordError(span, err, "callback processing failed")

		status := http.StatusInternalServerError
		message := "An unexpected error occurred while completing the authorization."
		var oauthErr *Error
		if errors.As(err, &oauthErr) {
			status = oauthErr.Status
			message = oauthErr.Description
		}
		h.recordHTTPMetrics("callback", http.MethodGet, status, startTime)
		h.serveCallbackErrorPage(w, status, "Authorization Failed", message)
		return
	}

	h.recordHTTPMetrics("callback", http.MethodGet, http.StatusFound, startTime)
	instrumentation.SetSpanSuccess(span)

	security.SetSecurityHeaders(w, h.proxy.config.Issuer())
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// ServeToken handles the client-facing token endpoint
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, ErrorCodeInvalidRequest, "Failed to parse request", http.StatusBadRequest)
		return
	}

	clientIP := h.clientIP(r)
	if h.checkRateLimit(w, r, clientIP, "token") {
		return
	}

	grantType := r.FormValue("grant_type")

	switch grantType {
	case GrantTypeAuthorizationCode:
		h.handleAuthorizationCodeGrant(w, r)
	case GrantTypeRefreshToken:
		h.handleRefreshTokenGrant(w, r)
	default:
		h.writeError(w, ErrorCodeUnsupportedGrantType, fmt.Sprintf("Grant type %s not supported", grantType), http.StatusBadRequest)
	}
}

func (h *Handler) handleAuthorizationCodeGrant(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "oauth.http.token_exchange")
		defer span.End()
	}

	clientIP := h.clientIP(r)
	ctx = WithClientIP(ctx, clientIP)

	code := r.FormValue("code")
	clientID := r.FormValue("client_id")
	redirectURI := r.FormValue("redirect_uri")
	codeVerifier := r.FormValue("code_verifier")

	if code == "" {
		h.recordHTTPMetrics("token", http.MethodPost, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "code missing")
		h.writeError(w, ErrorCodeInvalidRequest, "Required parameter 'code' missing", http.StatusBadRequest)
		return
	}
	if clientID == "" {
		h.recordHTTPMetrics("token", http.MethodPost, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "client_id missing")
		h.writeError(w, ErrorCodeInvalidRequest, "Required parameter 'client_id' missing", http.StatusBadRequest)
		return
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, clientID),
		attribute.String(instrumentation.AttrGrantType, GrantTypeAuthorizationCode))

	token, err := h.proxy.ExchangeAuthorizationCode(ctx, code, clientID, redirectURI, codeVerifier)
	if err != nil {
		instrumentation.RecordError(span, err, "code exchange failed")
		status := h.writeOAuthError(w, err)
		h.recordHTTPMetrics("token", http.MethodPost, status, startTime)
		return
	}

	h.logger.Info("Token exchange successful", "client_id", clientID, "ip", clientIP)
	h.recordHTTPMetrics("token", http.MethodPost, http.StatusOK, startTime)
	instrumentation.SetSpanSuccess(span)

	h.writeTokenPayload(w, token)
}

func (h *Handler) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "oauth.http.token_refresh")
		defer span.End()
	}

	clientIP := h.clientIP(r)
	ctx = WithClientIP(ctx, clientIP)

	refreshToken := r.FormValue("refresh_token")
	clientID := r.FormValue("client_id")

	if refreshToken == "" {
		h.recordHTTPMetrics("token", http.MethodPost, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "refresh_token missing")
		h.writeError(w, ErrorCodeInvalidRequest, "Required parameter 'refresh_token' missing", http.StatusBadRequest)
		return
	}
	if clientID == "" {
		h.recordHTTPMetrics("token", http.MethodPost, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "client_id missing")
		h.writeError(w, ErrorCodeInvalidRequest, "Required parameter 'client_id' missing", http.StatusBadRequest)
		return
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, clientID),
		attribute.String(instrumentation.AttrGrantType, GrantTypeRefreshToken))

	token, err := h.proxy.RefreshAccessToken(ctx, refreshToken, clientID)
	if err != nil {
		instrumentation.RecordError(span, err, "token refresh failed")
		status := h.writeOAuthError(w, err)
		h.recordHTTPMetrics("token", http.MethodPost, status, startTime)
		return
	}

	h.logger.Info("Token refresh successful", "client_id", clientID, "ip", clientIP)
	h.recordHTTPMetrics("token", http.MethodPost, http.StatusOK, startTime)
	instrumentation.SetSpanSuccess(span)

	h.writeTokenPayload(w, token)
}

// ServeRevocation handles RFC 7009 token revocation. Local cleanup always
// happens; the response is 200 even when the token was unknown or the
// upstream could not be reached, per the RFC.
func (h *Handler) ServeRevocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "oauth.http.revoke")
		defer span.End()
	}

	ctx = WithClientIP(ctx, h.clientIP(r))

	if err := r.ParseForm(); err != nil {
		h.recordHTTPMetrics("revoke", http.MethodPost, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "malformed revocation request")
		h.writeError(w, ErrorCodeInvalidRequest, "Failed to parse request", http.StatusBadRequest)
		return
	}

	token := r.FormValue("token")
	if token == "" {
		h.recordHTTPMetrics("revoke", http.MethodPost, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "token missing")
		h.writeError(w, ErrorCodeInvalidRequest, "Required parameter 'token' missing", http.StatusBadRequest)
		return
	}

	if err := h.proxy.RevokeToken(ctx, token, r.FormValue("token_type_hint")); err != nil {
		// RFC 7009: the client cannot act on a failure, so respond 200 anyway
		h.logger.Error("Token revocation failed", "error", err)
		instrumentation.RecordError(span, err, "revocation failed")
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	h.recordHTTPMetrics("revoke", http.MethodPost, http.StatusOK, startTime)
	security.SetSecurityHeaders(w, h.proxy.config.Issuer())
	w.WriteHeader(http.StatusOK)
}

// ServeAuthorizationServerMetadata serves RFC 8414 Authorization Server Metadata
func (h *Handler) ServeAuthorizationServerMetadata(w http.ResponseWriter, r *http.Request) {
	h.serveMetadata(w, r, "authorization_server_metadata", h.buildAuthServerMetadata())
}

// ServeOpenIDConfiguration answers OpenID Connect Discovery probes with the
// same document as the RFC 8414 endpoint. Agent clients commonly try this
// path first.
func (h *Handler) ServeOpenIDConfiguration(w http.ResponseWriter, r *http.Request) {
	h.serveMetadata(w, r, "openid_configuration", h.buildAuthServerMetadata())
}

// ServeProtectedResourceMetadata serves RFC 9728 Protected Resource Metadata
func (h *Handler) ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	cfg := h.proxy.config
	h.serveMetadata(w, r, "protected_resource_metadata", &ProtectedResourceMetadata{
		Resource:               cfg.Resource,
		AuthorizationServers:   []string{cfg.Issuer()},
		BearerMethodsSupported: []string{"header"},
		ScopesSupported:        cfg.Upstream.Scopes,
	})
}

func (h *Handler) serveMetadata(w http.ResponseWriter, r *http.Request, endpoint string, document any) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	startTime := time.Now()
	if h.checkRateLimit(w, r, h.clientIP(r), endpoint) {
		h.recordHTTPMetrics(endpoint, http.MethodGet, http.StatusTooManyRequests, startTime)
		return
	}

	h.recordHTTPMetrics(endpoint, http.MethodGet, http.StatusOK, startTime)

	security.SetSecurityHeaders(w, h.proxy.config.Issuer())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(document)
}

func (h *Handler) buildAuthServerMetadata() *AuthorizationServerMetadata {
	cfg := h.proxy.config

	challengeMethods := []string{PKCEMethodS256}
	if cfg.AllowPKCEPlain {
		challengeMethods = append(challengeMethods, PKCEMethodPlain)
	}

	return &AuthorizationServerMetadata{
		Issuer:                            cfg.Issuer(),
		AuthorizationEndpoint:             cfg.AuthorizationEndpoint(),
		TokenEndpoint:                     cfg.TokenEndpoint(),
		RegistrationEndpoint:              cfg.RegistrationEndpoint(),
		RevocationEndpoint:                cfg.RevocationEndpoint(),
		ScopesSupported:                   cfg.Upstream.Scopes,
		ResponseTypesSupported:            []string{ResponseTypeCode},
		GrantTypesSupported:               []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken},
		TokenEndpointAuthMethodsSupported: []string{TokenEndpointAuthNone},
		CodeChallengeMethodsSupported:     challengeMethods,
	}
}

// writeTokenPayload writes the upstream token payload verbatim: the known
// extra fields first (id_token, scope, expires_in as the upstream sent them),
// then the core fields. expires_in is synthesized from Expiry only when the
// upstream payload did not carry one.
func (h *Handler) writeTokenPayload(w http.ResponseWriter, token *oauth2.Token) {
	security.SetSecurityHeaders(w, h.proxy.config.Issuer())

	response := map[string]any{}
	for k, v := range storage.ExtractTokenExtra(token) {
		response[k] = v
	}

	response["access_token"] = token.AccessToken

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = TokenTypeBearer
	}
	response["token_type"] = tokenType

	if token.RefreshToken != "" {
		response["refresh_token"] = token.RefreshToken
	}

	if _, ok := response["expires_in"]; !ok && !token.Expiry.IsZero() {
		expiresIn := int64(time.Until(token.Expiry).Seconds())
		if expiresIn < 0 {
			expiresIn = 0
		}
		response["expires_in"] = expiresIn
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (h *Handler) writeError(w http.ResponseWriter, code, description string, status int) {
	security.SetSecurityHeaders(w, h.proxy.config.Issuer())

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", TokenTypeBearer)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// writeOAuthError renders an error from a proxy operation and returns the
// HTTP status it used. Anything that is not a protocol *Error collapses to
// an opaque server_error.
func (h *Handler) writeOAuthError(w http.ResponseWriter, err error) int {
	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		h.writeError(w, oauthErr.Code, oauthErr.Description, oauthErr.Status)
		return oauthErr.Status
	}

	h.logger.Error("Internal error", "error", err)
	h.writeError(w, ErrorCodeServerError, "Internal server error", http.StatusInternalServerError)
	return http.StatusInternalServerError
}

// checkRateLimit applies the per-IP limiter. Returns true when the request
// was rejected and the 429 already written.
func (h *Handler) checkRateLimit(w http.ResponseWriter, r *http.Request, clientIP, endpoint string) bool {
	if h.proxy.rateLimiter == nil || h.proxy.rateLimiter.Allow(clientIP) {
		return false
	}

	h.logger.Warn("Rate limit exceeded",
		"ip", clientIP,
		"endpoint", endpoint)
	if h.proxy.metrics != nil {
		h.proxy.metrics.RecordRateLimitExceeded(r.Context(), endpoint)
	}
	h.proxy.auditor.LogRateLimitExceeded(clientIP, endpoint)

	w.Header().Set("Retry-After", "60")
	h.writeError(w, ErrorCodeRateLimitExceeded, "Too many requests. Please try again later.", http.StatusTooManyRequests)
	return true
}

func (h *Handler) clientIP(r *http.Request) string {
	return security.GetClientIP(r, h.proxy.config.TrustProxy, h.proxy.config.TrustedProxyCount)
}

func (h *Handler) recordHTTPMetrics(endpoint, method string, status int, startTime time.Time) {
	if h.proxy.metrics == nil {
		return
	}

	duration := time.Since(startTime).Seconds() * 1000 // milliseconds
	h.proxy.metrics.RecordHTTPRequest(context.Background(), method, endpoint, status, duration)
}

// callbackErrorTemplate is the terminal error page shown in the end user's
// browser when the upstream callback cannot complete. There is no safe
// redirect target at that point, so the page is the end of the road: the
// user closes the window and retries from the client.
const callbackErrorTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 50%, #0f3460 100%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #fff;
        }
        .container {
            text-align: center;
            padding: 2rem;
            max-width: 480px;
        }
        .error-icon {
            width: 80px;
            height: 80px;
            margin: 0 auto 1.5rem;
            border-radius: 50%;
            background: linear-gradient(135deg, #e94560 0%, #c23152 100%);
            display: flex;
            align-items: center;
            justify-content: center;
        }
        .error-icon svg {
            width: 40px;
            height: 40px;
            stroke: #fff;
            stroke-width: 3;
            fill: none;
        }
        h1 {
            font-size: 1.5rem;
            margin-bottom: 0.75rem;
        }
        p {
            color: rgba(255, 255, 255, 0.7);
            line-height: 1.5;
            margin-bottom: 0.5rem;
        }
        .hint {
            font-size: 0.875rem;
            color: rgba(255, 255, 255, 0.5);
            margin-top: 1.5rem;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="error-icon">
            <svg viewBox="0 0 24 24"><path d="M6 6l12 12M18 6L6 18"/></svg>
        </div>
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
        <p class="hint">You can close this window and try signing in again from your application.</p>
    </div>
</body>
</html>
`

var callbackErrorTmpl = template.Must(template.New("callback_error").Parse(callbackErrorTemplate))

type callbackErrorData struct {
	Title   string
	Message string
}

func (h *Handler) serveCallbackErrorPage(w http.ResponseWriter, status int, title, message string) {
	security.SetSecurityHeaders(w, h.proxy.config.Issuer())
	// The page carries inline styles, so the default no-source CSP is widened
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := callbackErrorTmpl.Execute(w, callbackErrorData{Title: title, Message: message}); err != nil {
		h.logger.Error("Failed to render callback error page", "error", err)
	}
}
