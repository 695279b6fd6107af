package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// staticRoutes are paths recorded as-is in metric labels.
var staticRoutes = map[string]bool{
	"/":                    true,
	"/v1/zones":            true,
	"/v1/locations":        true,
	"/v1/sessions":         true,
	"/v1/notifications":    true,
	"/v1/friends/requests": true,
	"/health":              true,
	"/ready":               true,
	"/metrics":             true,
}

// normalizePath collapses dynamic path segments into route patterns so
// metric label cardinality stays bounded: /v1/zones/123 becomes
// /v1/zones/{id}.
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}

	parts := strings.Split(path, "/")

	if strings.HasPrefix(path, "/v1/zones/") && len(parts) == 4 && parts[3] != "" {
		return "/v1/zones/{id}"
	}

	if strings.HasPrefix(path, "/v1/friends/requests/") {
		if len(parts) == 6 && (parts[5] == "accept" || parts[5] == "reject") {
			return "/v1/friends/requests/{id}/" + parts[5]
		}
		if len(parts) == 5 && parts[4] != "" {
			return "/v1/friends/requests/{id}"
		}
	}

	// Unknown routes pass through unchanged.
	return path
}

// HTTPMetrics records duration, sizes and counts for every request.
// Health probes are skipped; they fire constantly and say nothing useful.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)

			var requestSize int64
			if cl := r.Header.Get("Content-Length"); cl != "" {
				if size, err := strconv.ParseInt(cl, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(rw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				int64(rw.size),
			)
		})
	}
}
