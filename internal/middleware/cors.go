// Package middleware provides HTTP middleware for the sitetime API.
package middleware

import (
	"net/http"
	"path"
	"strings"
)

// CORS returns middleware that handles CORS headers. Entries in
// allowedOrigins are matched against the Origin header with path.Match, so
// "chrome-extension://*" admits any extension; "*" admits everything.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			if origin != "" {
				if explicit, ok := matchOrigin(allowedOrigins, origin); ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
					// Only allow credentials for explicit origins, not wildcard matches.
					// Setting Allow-Credentials with a wildcard-echoed origin enables CSRF.
					if explicit {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchOrigin reports whether origin is allowed and whether it was named
// exactly rather than through a pattern.
func matchOrigin(allowed []string, origin string) (explicit, ok bool) {
	for _, o := range allowed {
		if o == origin {
			return true, true
		}
	}
	lower := strings.ToLower(origin)
	for _, o := range allowed {
		if o == "*" {
			return false, true
		}
		if m, err := path.Match(strings.ToLower(o), lower); err == nil && m {
			return false, true
		}
	}
	return false, false
}
