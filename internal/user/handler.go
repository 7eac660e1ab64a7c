package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/transport"
	"github.com/frahmantamala/todolist/pkg/logger"
)

const apiPrefix = "/api/v1"

type ServiceAPI interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	AssignRole(ctx context.Context, userID int64, roleName string) (*User, error)
}

// TodoCounter reports how many todos a user has written.
type TodoCounter interface {
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Todos   TodoCounter
}

func NewHandler(svc ServiceAPI, todos TodoCounter) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Todos:       todos,
	}
}

func URLFor(id int64) string {
	return fmt.Sprintf("%s/users/%d", apiPrefix, id)
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	count, err := h.Todos.CountByUser(r.Context(), u.ID)
	if err != nil {
		h.Logger.Error("GetUser: failed to count todos", "user_id", u.ID, "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, UserResponse{
		URL:         URLFor(u.ID),
		Username:    u.Username,
		MemberSince: u.MemberSince,
		LastSeen:    u.LastSeen,
		TodosURL:    URLFor(u.ID) + "/todos/",
		TodoCount:   count,
	})
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	u, ok := FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	h.WriteJSON(w, http.StatusOK, u.ToProfile())
}

// AssignRole handles PUT /users/{id}/role. Route middleware restricts it to
// administrators.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto AssignRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if dto.Role == "" {
		h.WriteAppError(w, internal.NewValidationFieldError("role", "role is required", internal.ErrCodeValidationFailed))
		return
	}

	u, err := h.Service.AssignRole(r.Context(), id, dto.Role)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.Logger.Info("AssignRole: role updated", "user_id", u.ID, "role", dto.Role, "by", internal.UserIDFromContext(r.Context()))
	h.WriteJSON(w, http.StatusOK, u.ToProfile())
}
