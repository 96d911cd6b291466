package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name              string
		remoteAddr        string
		xForwardedFor     string
		xRealIP           string
		trustProxy        bool
		trustedProxyCount int
		want              string
	}{
		{
			name:       "direct connection",
			remoteAddr: "198.51.100.7:54321",
			want:       "198.51.100.7",
		},
		{
			name:          "XFF ignored when proxy not trusted",
			remoteAddr:    "198.51.100.7:54321",
			xForwardedFor: "203.0.113.1",
			trustProxy:    false,
			want:          "198.51.100.7",
		},
		{
			name:          "single trusted proxy",
			remoteAddr:    "10.0.0.1:80",
			xForwardedFor: "203.0.113.1",
			trustProxy:    true,
			want:          "203.0.113.1",
		},
		{
			name:              "two trusted proxies",
			remoteAddr:        "10.0.0.1:80",
			xForwardedFor:     "203.0.113.1, 10.0.0.2, 10.0.0.3",
			trustProxy:        true,
			trustedProxyCount: 2,
			want:              "203.0.113.1",
		},
		{
			name:              "more proxies than entries falls back to leftmost",
			remoteAddr:        "10.0.0.1:80",
			xForwardedFor:     "203.0.113.1",
			trustProxy:        true,
			trustedProxyCount: 5,
			want:              "203.0.113.1",
		},
		{
			name:          "invalid XFF entry falls through to RemoteAddr",
			remoteAddr:    "198.51.100.7:54321",
			xForwardedFor: "not-an-ip",
			trustProxy:    true,
			want:          "198.51.100.7",
		},
		{
			name:       "X-Real-IP honored when trusted",
			remoteAddr: "10.0.0.1:80",
			xRealIP:    "203.0.113.9",
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "invalid X-Real-IP ignored",
			remoteAddr: "198.51.100.7:54321",
			xRealIP:    "garbage",
			trustProxy: true,
			want:       "198.51.100.7",
		},
		{
			name:       "IPv6 remote addr",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "198.51.100.7",
			want:       "198.51.100.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xForwardedFor != "" {
				r.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}

			got := GetClientIP(r, tt.trustProxy, tt.trustedProxyCount)
			if got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
