package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMiddleware guards the management endpoints. With an empty token
// every request passes, matching a deployment where the host application
// authenticates upstream. Otherwise the token must arrive as a Bearer
// token or in X-Auth-Key.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var presented string
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				const prefix = "Bearer "
				if strings.HasPrefix(authHeader, prefix) {
					presented = authHeader[len(prefix):]
				}
			}
			if presented == "" {
				presented = r.Header.Get("X-Auth-Key")
			}

			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
