package middleware

import (
	"net/http"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/pkg/logger"
)

// UserContext tags the request logger with the acting user's ID once the
// authentication middleware has resolved one.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := internal.UserIDFromContext(r.Context())
		if userID == 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "user_id", userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
