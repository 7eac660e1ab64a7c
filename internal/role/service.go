package role

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/todolist/internal"
	roleDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/role"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*roleDatamodel.Role, error)
	GetByID(ctx context.Context, id int64) (*roleDatamodel.Role, error)
	GetByName(ctx context.Context, name string) (*roleDatamodel.Role, error)
	GetDefault(ctx context.Context) (*roleDatamodel.Role, error)
	Save(ctx context.Context, role *roleDatamodel.Role) error
	WithinTransaction(ctx context.Context, fn func(repo RepositoryAPI) error) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Bootstrap makes the stored roles match table. Roles are created when
// missing and have their permissions rewritten when present; exactly one
// role, defaultName, is left marked as default. Running it twice yields the
// same state.
func (s *Service) Bootstrap(ctx context.Context, table Table, defaultName string) error {
	if _, ok := table[defaultName]; !ok {
		return fmt.Errorf("default role %q is not in the role table", defaultName)
	}

	return s.repo.WithinTransaction(ctx, func(repo RepositoryAPI) error {
		for _, name := range table.Names() {
			row, err := repo.GetByName(ctx, name)
			if err != nil {
				return fmt.Errorf("lookup role %s: %w", name, err)
			}

			created := row == nil
			if created {
				row = &roleDatamodel.Role{Name: name}
			}

			r := FromDataModel(row)
			r.ResetPermissions()
			for _, p := range table[name] {
				r.AddPermission(p)
			}
			r.IsDefault = name == defaultName

			dm := ToDataModel(r)
			if err := repo.Save(ctx, dm); err != nil {
				return fmt.Errorf("save role %s: %w", name, err)
			}

			s.logger.Info("role bootstrapped",
				"role", name,
				"created", created,
				"permissions", r.Permissions.String(),
				"is_default", r.IsDefault)
		}

		existing, err := repo.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("list roles: %w", err)
		}
		for _, row := range existing {
			if _, listed := table[row.Name]; listed || !row.IsDefault {
				continue
			}
			row.IsDefault = false
			if err := repo.Save(ctx, row); err != nil {
				return fmt.Errorf("clear default flag on %s: %w", row.Name, err)
			}
			s.logger.Warn("cleared default flag on role outside the table", "role", row.Name)
		}

		return nil
	})
}

func (s *Service) GetAll(ctx context.Context) ([]*Role, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get roles from repository", "error", err)
		return nil, err
	}

	roles := make([]*Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, FromDataModel(row))
	}
	return roles, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Role, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*Role, error) {
	row, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.ErrRoleNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) GetDefault(ctx context.Context) (*Role, error) {
	row, err := s.repo.GetDefault(ctx)
	if err != nil {
		return nil, err
	}
	if row == nil {
		s.logger.Warn("no default role found; were roles bootstrapped?")
		return nil, internal.ErrRoleNotFound
	}
	return FromDataModel(row), nil
}
