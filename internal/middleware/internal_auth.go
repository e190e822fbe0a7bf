package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog"
)

// InternalSecretMiddleware guards the workflow callback routes with a shared bearer secret.
// An empty secret rejects every request.
func InternalSecretMiddleware(secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				logger.Error().Msg("Internal API secret is not configured; rejecting request")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			token, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				logger.Warn().Str("path", r.URL.Path).Msg("Rejected internal request with invalid secret")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
