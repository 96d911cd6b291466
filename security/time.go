package security

import "time"

// DefaultClockSkewGracePeriod is the grace period applied to expiry checks.
// It prevents false expiration errors from minor clock drift between the
// proxy, its clients, and the upstream server. Entries may outlive their
// nominal expiry by up to this much.
const DefaultClockSkewGracePeriod = 5 * time.Second

// IsExpired checks if a timestamp is past with the default clock skew grace
// period applied. A zero timestamp never expires.
func IsExpired(expiresAt time.Time) bool {
	return IsExpiredWithGracePeriod(expiresAt, DefaultClockSkewGracePeriod)
}

// IsExpiredWithGracePeriod checks if a timestamp is past with a custom grace
// period applied
func IsExpiredWithGracePeriod(expiresAt time.Time, gracePeriod time.Duration) bool {
	if expiresAt.IsZero() {
		return false
	}
	return time.Now().After(expiresAt.Add(gracePeriod))
}
