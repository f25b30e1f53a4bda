package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"btcinvest/internal/domain/port"
)

type ctxKey int

const userIDKey ctxKey = iota

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// RequireAuth accepts "Authorization: Bearer <token>" and stores the token subject in the request context.
func RequireAuth(verifier port.TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeMessage(w, http.StatusUnauthorized, "No token provided")
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeMessage(w, http.StatusUnauthorized, "Access Denied")
				return
			}

			userID, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				log.Warn("rejected access token", "path", r.URL.Path, "error", err)
				writeMessage(w, http.StatusUnauthorized, "Access Denied")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}
