package postgres

import (
	"context"
	"errors"

	roleDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/role"
	"github.com/frahmantamala/todolist/internal/role"
	"gorm.io/gorm"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) role.RepositoryAPI {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetAll(ctx context.Context) ([]*roleDatamodel.Role, error) {
	var roles []*roleDatamodel.Role
	err := r.db.WithContext(ctx).Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error) {
	var ro roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ro, nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error) {
	var ro roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&ro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ro, nil
}

func (r *RoleRepository) GetDefault(ctx context.Context) (*roleDatamodel.Role, error) {
	var ro roleDatamodel.Role
	err := r.db.WithContext(ctx).Where("is_default = ?", true).Order("id ASC").First(&ro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ro, nil
}

func (r *RoleRepository) Save(ctx context.Context, ro *roleDatamodel.Role) error {
	return r.db.WithContext(ctx).Save(ro).Error
}

func (r *RoleRepository) WithinTransaction(ctx context.Context, fn func(repo role.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&RoleRepository{db: tx})
	})
}
