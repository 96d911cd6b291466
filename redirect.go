package oauthproxy

import (
	"net/url"
	"strings"
)

// ValidateRedirectURI reports whether a client-supplied redirect URI is
// acceptable under the configured patterns.
//
// With no patterns configured (nil), only loopback URIs are allowed:
// http or https, host localhost, 127.0.0.1, or ::1, any port, any path.
// An explicitly empty pattern list allows every parseable URI. Otherwise the
// URI must match at least one pattern, where * matches any run of characters
// (including none). Scheme and host compare case-insensitively; path, query,
// and fragment are case-sensitive.
//
// Patterns are matched textually rather than parsed, since forms like
// "http://localhost:*" are not themselves valid URLs.
func ValidateRedirectURI(uri string, patterns []string) bool {
	if uri == "" {
		return false
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return false
	}

	if patterns == nil {
		return isLoopbackRedirect(parsed)
	}
	if len(patterns) == 0 {
		return true
	}

	candidate := lowerAuthority(uri)
	for _, pattern := range patterns {
		if wildcardMatch(lowerAuthority(pattern), candidate) {
			return true
		}
	}
	return false
}

// isLoopbackRedirect reports whether a parsed URI points at the local
// machine over http or https.
func isLoopbackRedirect(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	switch strings.ToLower(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// lowerAuthority lowercases the scheme and authority portion of a URI-shaped
// string, leaving the path, query, and fragment untouched. It operates on the
// raw string so wildcard patterns survive.
func lowerAuthority(s string) string {
	rest := s
	prefixLen := 0
	if idx := strings.Index(s, "://"); idx >= 0 {
		prefixLen = idx + len("://")
		rest = s[prefixLen:]
	}
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	return strings.ToLower(s[:prefixLen+end]) + rest[end:]
}

// wildcardMatch reports whether s matches pattern, where * matches any run
// of characters. Backtracks to the most recent * on mismatch.
func wildcardMatch(pattern, s string) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case p < len(pattern) && pattern[p] == s[i]:
			p++
			i++
		case star >= 0:
			mark++
			p, i = star+1, mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
