package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// ParseOrigins splits a comma-separated FRONTEND_URL into distinct origins
func ParseOrigins(frontendURL string) []string {
	var origins []string
	seen := make(map[string]bool)
	for _, origin := range strings.Split(frontendURL, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	return origins
}

// CORS allows browser dashboards on the configured origins to start runs and poll them
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: ParseOrigins(frontendURL),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "traceparent", "tracestate"},
		ExposedHeaders: []string{"Location", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         86400,
	})
	return c.Handler
}
