// Package oauthproxy implements an OAuth 2.1 proxy that bridges dynamically
// registering OAuth clients and a single upstream authorization server that
// does not support Dynamic Client Registration (RFC 7591), such as Google,
// GitHub, or Azure AD.
//
// Every client that registers through the proxy is collapsed onto the one
// application registered at the upstream: registration always answers with
// the upstream client id, a token endpoint auth method of "none", and the
// redirect URIs the client asked for. The proxy then runs two linked
// authorization code flows:
//
//   - client -> proxy: the client's PKCE challenge, state, redirect URI, and
//     scopes are held in an in-flight Transaction. PKCE terminates here; it
//     is never forwarded upstream.
//   - proxy -> upstream: the Transaction id is used verbatim as the upstream
//     state parameter, and the proxy's own fixed callback URL as the
//     redirect URI.
//
// When the upstream calls back, the proxy consumes the Transaction, exchanges
// the upstream code for tokens, mints a single-use authorization code of its
// own carrying the full upstream token payload, and redirects the browser
// back to the client. Redeeming that code at the token endpoint validates the
// client's PKCE verifier in-process and returns the upstream payload
// verbatim, id_token and all. Refresh and revocation pass through to the
// upstream, with local bookkeeping of access/refresh token pairs so revoking
// either side also revokes its counterpart.
//
// Typical wiring:
//
//	store := memory.New()
//	up, err := upstream.NewClient(&upstream.Config{
//		ClientID:          "...",
//		ClientSecret:      "...",
//		AuthorizeEndpoint: "https://accounts.google.com/o/oauth2/v2/auth",
//		TokenEndpoint:     "https://oauth2.googleapis.com/token",
//		RedirectURL:       "https://proxy.example.com/auth/callback",
//		Scopes:            []string{"openid", "email"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	proxy, err := oauthproxy.New(cfg, up, oauthproxy.Stores{
//		Transactions: store,
//		Codes:        store,
//		Clients:      store,
//		Tokens:       store,
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer proxy.Stop()
//
//	mux := http.NewServeMux()
//	oauthproxy.NewHandler(proxy).RegisterRoutes(mux)
//
// The proxy is deliberately in-memory and single-process; restarting it
// abandons in-flight authorizations and local token bookkeeping. Access token
// validity is decided by the injected verifier against the upstream issuer,
// not by the local records, so live tokens survive a proxy restart.
package oauthproxy
