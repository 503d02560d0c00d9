package infra

import (
	"time"
)

const (
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second

	// ReconnectDelay is the fixed wait between stream reconnect
	// attempts. Announcement delivery is latency-sensitive, so streams
	// redial quickly and forever rather than backing off.
	ReconnectDelay = 1 * time.Second
)

// CalculateBackoff returns the capped exponential backoff duration for
// a retry count: baseDelay * 2^retryCount, capped at maxDelay.
// Used for background maintenance retries (listen-key keepalive),
// not for stream reconnects.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return baseDelay
	}

	// 2^30 seconds is already far past maxDelay; avoid shift overflow.
	if retryCount > 30 {
		return maxDelay
	}

	backoff := baseDelay * time.Duration(1<<retryCount)
	if backoff > maxDelay {
		return maxDelay
	}

	return backoff
}
