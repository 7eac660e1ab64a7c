package todo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/transport"
	"github.com/frahmantamala/todolist/internal/user"
	"github.com/frahmantamala/todolist/pkg/logger"
)

const maxPerPage = 100

type ServiceAPI interface {
	Create(ctx context.Context, u *user.User, dto CreateToDoDTO) (*ToDo, error)
	Update(ctx context.Context, u *user.User, id int64, dto UpdateToDoDTO) (*ToDo, error)
	Get(ctx context.Context, id int64) (*ToDo, error)
	List(ctx context.Context, page, perPage int) (*Page, error)
	ListByUser(ctx context.Context, userID int64, page, perPage int) (*Page, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	PerPage int
}

func NewHandler(service ServiceAPI, perPage int) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	if perPage < 1 {
		perPage = 20
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		PerPage:     perPage,
	}
}

// ListToDos handles GET /todos/
func (h *Handler) ListToDos(w http.ResponseWriter, r *http.Request) {
	page, perPage := h.pagination(r)

	p, err := h.Service.List(r.Context(), page, perPage)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, h.listResponse(p, apiPrefix+"/todos/"))
}

// GetToDo handles GET /todos/{id}
func (h *Handler) GetToDo(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	t, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t.ToResponse())
}

// CreateToDo handles POST /todos/
func (h *Handler) CreateToDo(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	var dto CreateToDoDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	t, err := h.Service.Create(r.Context(), u, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.Header().Set("Location", URLFor(t.ID))
	h.WriteJSON(w, http.StatusCreated, t.ToResponse())
}

// UpdateToDo handles PUT /todos/{id}
func (h *Handler) UpdateToDo(w http.ResponseWriter, r *http.Request) {
	u, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}

	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto UpdateToDoDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	t, err := h.Service.Update(r.Context(), u, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t.ToResponse())
}

// ListUserToDos handles GET /users/{id}/todos/
func (h *Handler) ListUserToDos(w http.ResponseWriter, r *http.Request) {
	userID, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	page, perPage := h.pagination(r)

	p, err := h.Service.ListByUser(r.Context(), userID, page, perPage)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, h.listResponse(p, UserTodosURL(userID)))
}

func (h *Handler) pagination(r *http.Request) (int, int) {
	page := 1
	perPage := h.PerPage

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if perPageStr := r.URL.Query().Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 && pp <= maxPerPage {
			perPage = pp
		}
	}
	return page, perPage
}

func (h *Handler) listResponse(p *Page, base string) ListResponse {
	resp := ListResponse{
		Todos: make([]ToDoResponse, 0, len(p.Items)),
		Count: p.Total,
	}
	for _, t := range p.Items {
		resp.Todos = append(resp.Todos, t.ToResponse())
	}
	if p.HasPrev() {
		prev := fmt.Sprintf("%s?page=%d&per_page=%d", base, p.Page-1, p.PerPage)
		resp.Prev = &prev
	}
	if p.HasNext() {
		next := fmt.Sprintf("%s?page=%d&per_page=%d", base, p.Page+1, p.PerPage)
		resp.Next = &next
	}
	return resp
}
