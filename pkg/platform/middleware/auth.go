package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"comply/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns its subject.
type TokenValidator interface {
	Validate(tokenString string) (subject string, err error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated subject in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			subject, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "token rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				writeUnauthorized(w, "invalid token")
				return
			}
			ctx := requestcontext.WithCaller(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
