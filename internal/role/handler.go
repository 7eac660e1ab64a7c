package role

import (
	"context"
	"net/http"

	"github.com/frahmantamala/todolist/internal/transport"
)

type ServiceAPI interface {
	GetAll(ctx context.Context) ([]*Role, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.GetAll(r.Context())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp := RolesResponse{Roles: make([]RoleResponse, 0, len(roles))}
	for _, ro := range roles {
		resp.Roles = append(resp.Roles, ro.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
