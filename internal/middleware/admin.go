package middleware

import (
	"context"
	"net/http"

	"intakeflow/internal/model"

	"github.com/rs/zerolog"
)

// UserLookup loads a user profile by ID.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
}

// RequireAdmin allows only users flagged is_admin. It must run after AuthMiddleware.
func RequireAdmin(users UserLookup, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			u, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for admin check")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if u == nil || !u.IsAdmin {
				logger.Warn().Str("user_id", userID).Str("path", r.URL.Path).Msg("Non-admin user attempted admin route")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
