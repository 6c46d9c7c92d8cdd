package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// BearerAuth rejects requests whose Authorization header does not carry the
// configured bearer token. An empty expectedToken disables the check
// entirely — local development without BEARER_TOKEN set runs open.
func BearerAuth(expectedToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expectedToken == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				slog.Warn("rejected request with invalid bearer token",
					"path", r.URL.Path,
					"remoteAddr", r.RemoteAddr,
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
