package middleware

import (
	"net/http"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/auth"
	"github.com/frahmantamala/todolist/internal/permission"
	"github.com/frahmantamala/todolist/internal/transport"
	"github.com/frahmantamala/todolist/pkg/logger"
)

// RequirePermission refuses requests whose acting user lacks p. It must run
// after the authentication middleware.
func RequirePermission(p permission.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			base := transport.NewBaseHandler(logger.From(r.Context()))

			u, ok := auth.UserFromContext(r.Context())
			if !ok {
				base.WriteAppError(w, internal.ErrUnauthenticated)
				return
			}

			if !auth.Can(u, p) {
				roleName := ""
				if u.Role != nil {
					roleName = u.Role.Name
				}
				base.Logger.Warn("access denied: missing permission",
					"user_id", u.ID,
					"role", roleName,
					"required_permission", p.String())
				base.WriteAppError(w, internal.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin() func(http.Handler) http.Handler {
	return RequirePermission(permission.Admin)
}
