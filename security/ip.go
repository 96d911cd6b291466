package security

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the real client IP address from the request.
// Supports X-Forwarded-For and X-Real-IP headers when behind a proxy.
//
// Only enable trustProxy when behind a trusted reverse proxy.
// trustedProxyCount specifies how many proxies to trust from the right of the
// X-Forwarded-For list, which prevents spoofing in multi-proxy setups.
func GetClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := ipFromForwardedFor(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := r.Header.Get("X-Real-IP"); ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
	}
	return ipFromRemoteAddr(r.RemoteAddr)
}

// ipFromForwardedFor picks the client IP out of an X-Forwarded-For list.
// The header format is "client, proxy1, proxy2, ..." with our own trusted
// proxies rightmost, so the client sits at len(ips)-trustedProxyCount-1.
func ipFromForwardedFor(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}

	ips := strings.Split(xff, ",")
	proxyCount := trustedProxyCount
	if proxyCount == 0 {
		proxyCount = 1
	}
	clientIndex := len(ips) - proxyCount - 1
	if clientIndex < 0 {
		clientIndex = 0
	}

	clientIP := strings.TrimSpace(ips[clientIndex])
	if net.ParseIP(clientIP) != nil {
		return clientIP
	}
	return ""
}

// ipFromRemoteAddr extracts the IP from RemoteAddr for direct connections
func ipFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
