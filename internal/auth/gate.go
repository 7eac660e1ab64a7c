package auth

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/permission"
	"github.com/frahmantamala/todolist/internal/user"
	"github.com/frahmantamala/todolist/pkg/logger"
)

// Can reports whether u holds p. Anonymous users and users without a role
// hold nothing.
func Can(u *user.User, p permission.Permission) bool {
	return u.Can(p)
}

type Gate struct {
	logger *slog.Logger
}

func NewGate(lg *slog.Logger) *Gate {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Gate{logger: lg}
}

// AuthorizeMutation allows u to change a resource owned by ownerID when u is
// the owner or an administrator. The required permission is what the route
// demanded of u; it is reported on denial.
func (g *Gate) AuthorizeMutation(ctx context.Context, u *user.User, ownerID int64, required permission.Permission) error {
	if u != nil && (u.ID == ownerID || Can(u, permission.Admin)) {
		return nil
	}

	lg := logger.FromOr(ctx, g.logger)
	if u == nil {
		lg.Warn("mutation denied: no acting user", "owner_id", ownerID, "required_permission", required.String())
	} else {
		lg.Warn("mutation denied: not owner or administrator",
			"user_id", u.ID,
			"owner_id", ownerID,
			"required_permission", required.String())
	}
	return internal.ErrForbidden
}
