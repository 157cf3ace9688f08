package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds API handlers; stats runs happen in the worker, not in requests
const DefaultRequestTimeout = 30 * time.Second

// Timeout cancels the request context and replies 503 when a handler runs past timeout
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, `{"success":false,"error":"Service Unavailable","message":"request timed out"}`)
	}
}
