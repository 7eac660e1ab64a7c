package todo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/frahmantamala/todolist/internal"
	todoDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/todo"
	"github.com/frahmantamala/todolist/internal/permission"
	"github.com/frahmantamala/todolist/internal/user"
)

type RepositoryAPI interface {
	Create(ctx context.Context, t *todoDatamodel.ToDo) error
	Update(ctx context.Context, t *todoDatamodel.ToDo) error
	GetByID(ctx context.Context, id int64) (*todoDatamodel.ToDo, error)
	List(ctx context.Context, limit, offset int) ([]*todoDatamodel.ToDo, int64, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*todoDatamodel.ToDo, int64, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// Authorizer decides whether the acting user may change a resource.
type Authorizer interface {
	AuthorizeMutation(ctx context.Context, u *user.User, ownerID int64, required permission.Permission) error
}

type Service struct {
	repo     RepositoryAPI
	renderer Renderer
	gate     Authorizer
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, renderer Renderer, gate Authorizer, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		renderer: renderer,
		gate:     gate,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new todo for u. u must hold WRITE.
func (s *Service) Create(ctx context.Context, u *user.User, dto CreateToDoDTO) (*ToDo, error) {
	if !u.Can(permission.Write) {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	html, err := s.renderer.Render(dto.Body)
	if err != nil {
		return nil, internal.NewInternalError("failed to render todo body", err)
	}

	t := &ToDo{
		Body:      dto.Body,
		BodyHTML:  html,
		Timestamp: s.now(),
		UserID:    u.ID,
	}

	dm := ToDataModel(t)
	if err := s.repo.Create(ctx, dm); err != nil {
		s.logger.Error("failed to create todo", "error", err, "user_id", u.ID)
		return nil, internal.NewInternalError("failed to create todo", err)
	}
	t.ID = dm.ID

	s.logger.Info("todo created", "todo_id", t.ID, "user_id", u.ID)
	return t, nil
}

// Update replaces the body of todo id. Only its author or an administrator
// may do so.
func (s *Service) Update(ctx context.Context, u *user.User, id int64, dto UpdateToDoDTO) (*ToDo, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.gate.AuthorizeMutation(ctx, u, t.UserID, permission.Write); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	html, err := s.renderer.Render(dto.Body)
	if err != nil {
		return nil, internal.NewInternalError("failed to render todo body", err)
	}
	t.Body = dto.Body
	t.BodyHTML = html

	if err := s.repo.Update(ctx, ToDataModel(t)); err != nil {
		s.logger.Error("failed to update todo", "error", err, "todo_id", id)
		return nil, internal.NewInternalError("failed to update todo", err)
	}

	s.logger.Info("todo updated", "todo_id", id, "user_id", u.ID, "owner_id", t.UserID)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*ToDo, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	if row == nil {
		return nil, internal.ErrToDoNotFound
	}
	return FromDataModel(row), nil
}

// List returns page (1-based) of every todo, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) (*Page, error) {
	page, perPage = normalizePage(page, perPage)
	rows, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	return newPage(rows, page, perPage, total), nil
}

// ListByUser returns page (1-based) of the todos written by userID, newest
// first.
func (s *Service) ListByUser(ctx context.Context, userID int64, page, perPage int) (*Page, error) {
	page, perPage = normalizePage(page, perPage)
	rows, total, err := s.repo.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos for user %d: %w", userID, err)
	}
	return newPage(rows, page, perPage, total), nil
}

func (s *Service) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountByUser(ctx, userID)
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	// keeps (page-1)*perPage within int
	if maxPage := math.MaxInt / perPage; page > maxPage {
		page = maxPage
	}
	return page, perPage
}

func newPage(rows []*todoDatamodel.ToDo, page, perPage int, total int64) *Page {
	items := make([]*ToDo, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromDataModel(row))
	}
	return &Page{Items: items, Page: page, PerPage: perPage, Total: total}
}
