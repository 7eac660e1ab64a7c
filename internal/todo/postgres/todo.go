package postgres

import (
	"context"
	"errors"

	todoDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/todo"
	"github.com/frahmantamala/todolist/internal/todo"
	"gorm.io/gorm"
)

type ToDoRepository struct {
	db *gorm.DB
}

func NewToDoRepository(db *gorm.DB) todo.RepositoryAPI {
	return &ToDoRepository{db: db}
}

func (r *ToDoRepository) Create(ctx context.Context, t *todoDatamodel.ToDo) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ToDoRepository) Update(ctx context.Context, t *todoDatamodel.ToDo) error {
	return r.db.WithContext(ctx).
		Model(&todoDatamodel.ToDo{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"body":      t.Body,
			"body_html": t.BodyHTML,
		}).Error
}

func (r *ToDoRepository) GetByID(ctx context.Context, id int64) (*todoDatamodel.ToDo, error) {
	var t todoDatamodel.ToDo
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *ToDoRepository) List(ctx context.Context, limit, offset int) ([]*todoDatamodel.ToDo, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&todoDatamodel.ToDo{}), limit, offset)
}

func (r *ToDoRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*todoDatamodel.ToDo, int64, error) {
	return r.page(r.db.WithContext(ctx).Model(&todoDatamodel.ToDo{}).Where("user_id = ?", userID), limit, offset)
}

func (r *ToDoRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&todoDatamodel.ToDo{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *ToDoRepository) page(q *gorm.DB, limit, offset int) ([]*todoDatamodel.ToDo, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var todos []*todoDatamodel.ToDo
	err := q.Session(&gorm.Session{}).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&todos).Error
	return todos, total, err
}
