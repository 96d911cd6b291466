package oauthproxy

import "testing"

func TestValidateRedirectURI_LoopbackDefault(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want bool
	}{
		{"localhost with port and path", "http://localhost:8080/callback", true},
		{"localhost without port", "http://localhost/callback", true},
		{"localhost https", "https://localhost:3000/cb", true},
		{"ipv4 loopback", "http://127.0.0.1:9999/cb", true},
		{"ipv6 loopback", "http://[::1]:8080/cb", true},
		{"uppercase host", "http://LOCALHOST:8080/cb", true},
		{"query string allowed", "http://localhost:5173/callback?foo=1", true},
		{"public host", "https://example.com/callback", false},
		{"loopback lookalike", "http://localhost.evil.com/cb", false},
		{"custom scheme", "myapp://callback", false},
		{"ftp scheme", "ftp://localhost/cb", false},
		{"empty", "", false},
		{"not a url", "://missing-scheme", false},
		{"bad escape", "http://localhost/%zz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRedirectURI(tt.uri, nil); got != tt.want {
				t.Errorf("ValidateRedirectURI(%q, nil) = %v, want %v", tt.uri, got, tt.want)
			}
		})
	}
}

func TestValidateRedirectURI_EmptyPatternListAllowsAll(t *testing.T) {
	patterns := []string{}

	for _, uri := range []string{
		"https://anywhere.example.com/cb",
		"http://localhost:8080/cb",
		"myapp://callback",
	} {
		if !ValidateRedirectURI(uri, patterns) {
			t.Errorf("ValidateRedirectURI(%q, []) = false, want true", uri)
		}
	}

	if ValidateRedirectURI("://still-not-a-url", patterns) {
		t.Error("empty pattern list should still reject unparseable URIs")
	}
}

func TestValidateRedirectURI_Patterns(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		patterns []string
		want     bool
	}{
		{
			name:     "localhost wildcard port",
			uri:      "http://localhost:9999/cb",
			patterns: []string{"http://localhost:*"},
			want:     true,
		},
		{
			name:     "localhost wildcard matches any path",
			uri:      "http://localhost:8080/deep/path?q=1",
			patterns: []string{"http://localhost:*"},
			want:     true,
		},
		{
			name:     "subdomain wildcard match",
			uri:      "https://app.example.com/callback",
			patterns: []string{"https://*.example.com/callback"},
			want:     true,
		},
		{
			name:     "subdomain wildcard matches nested labels",
			uri:      "https://a.b.example.com/callback",
			patterns: []string{"https://*.example.com/callback"},
			want:     true,
		},
		{
			name:     "subdomain wildcard rejects apex",
			uri:      "https://example.com/callback",
			patterns: []string{"https://*.example.com/callback"},
			want:     false,
		},
		{
			name:     "subdomain wildcard rejects http scheme",
			uri:      "http://app.example.com/callback",
			patterns: []string{"https://*.example.com/callback"},
			want:     false,
		},
		{
			name:     "exact pattern matches itself",
			uri:      "http://localhost:5173/callback",
			patterns: []string{"http://localhost:5173/callback"},
			want:     true,
		},
		{
			name:     "exact pattern rejects different path",
			uri:      "http://localhost:5173/other",
			patterns: []string{"http://localhost:5173/callback"},
			want:     false,
		},
		{
			name:     "host compared case-insensitively",
			uri:      "https://APP.EXAMPLE.COM/callback",
			patterns: []string{"https://app.example.com/callback"},
			want:     true,
		},
		{
			name:     "path compared case-sensitively",
			uri:      "https://app.example.com/CALLBACK",
			patterns: []string{"https://app.example.com/callback"},
			want:     false,
		},
		{
			name:     "second pattern matches",
			uri:      "https://app.example.com/cb",
			patterns: []string{"http://localhost:*", "https://app.example.com/cb"},
			want:     true,
		},
		{
			name:     "multiple wildcards",
			uri:      "https://x.example.com/auth/done",
			patterns: []string{"https://*.example.com/*"},
			want:     true,
		},
		{
			name:     "no pattern matches",
			uri:      "https://evil.com/cb",
			patterns: []string{"http://localhost:*", "https://*.example.com/callback"},
			want:     false,
		},
		{
			name:     "malformed uri rejected before matching",
			uri:      "http://bad/%zz",
			patterns: []string{"http://*"},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRedirectURI(tt.uri, tt.patterns); got != tt.want {
				t.Errorf("ValidateRedirectURI(%q, %v) = %v, want %v", tt.uri, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestWildcardMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"*", "anything at all", true},
		{"*", "", true},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a*c", "abd", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
		{"*.example.com", "app.example.com", true},
		{"*.example.com", "example.com", false},
		{"", "", true},
		{"", "x", false},
	}

	for _, tt := range tests {
		if got := wildcardMatch(tt.pattern, tt.s); got != tt.want {
			t.Errorf("wildcardMatch(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}

func TestLowerAuthority(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTP://LocalHost:8080/CallBack", "http://localhost:8080/CallBack"},
		{"https://APP.Example.com", "https://app.example.com"},
		{"https://Host/Path?Q=1", "https://host/Path?Q=1"},
		{"no-scheme/Path", "no-scheme/Path"},
		{"HTTPS://Host#Frag", "https://host#Frag"},
	}

	for _, tt := range tests {
		if got := lowerAuthority(tt.in); got != tt.want {
			t.Errorf("lowerAuthority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
