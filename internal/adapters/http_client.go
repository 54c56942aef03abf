package adapters

import (
	"net/http"
	"time"
)

func normalizeTimeout(value time.Duration, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}

// withTimeout returns a shallow copy of client carrying its own timeout, so
// status queries and uploads can share one transport.
func withTimeout(client *http.Client, timeout time.Duration) *http.Client {
	if client == nil {
		return &http.Client{Timeout: timeout}
	}
	clone := *client
	clone.Timeout = timeout
	return &clone
}
