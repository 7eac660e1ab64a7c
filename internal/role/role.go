package role

import (
	"fmt"
	"sort"
	"strings"
	"time"

	roleDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/role"
	"github.com/frahmantamala/todolist/internal/permission"
)

const (
	NameUser          = "User"
	NameAdministrator = "Administrator"
)

type Role struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Permissions permission.Mask `json:"permissions"`
	IsDefault   bool            `json:"is_default"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r *Role) AddPermission(p permission.Permission) {
	r.Permissions = r.Permissions.Add(p)
}

func (r *Role) RemovePermission(p permission.Permission) {
	r.Permissions = r.Permissions.Remove(p)
}

func (r *Role) ResetPermissions() {
	r.Permissions = r.Permissions.Reset()
}

func (r *Role) HasPermission(p permission.Permission) bool {
	return r.Permissions.Has(p)
}

func (r *Role) ToResponse() RoleResponse {
	perms := r.Permissions.Permissions()
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.String())
	}
	return RoleResponse{
		Name:        r.Name,
		Permissions: names,
		IsDefault:   r.IsDefault,
	}
}

// Table maps role names to the permissions each role grants.
type Table map[string][]permission.Permission

// DefaultTable is the canonical role set: plain users may write, administrators
// may also moderate.
func DefaultTable() Table {
	return Table{
		NameUser:          {permission.Write},
		NameAdministrator: {permission.Write, permission.Admin},
	}
}

// ParseTable reads entries of the form "Name=PERM1,PERM2". A name with no
// permissions ("Guest=") is allowed.
func ParseTable(entries []string) (Table, error) {
	t := make(Table, len(entries))
	for _, entry := range entries {
		name, perms, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid role entry %q, want Name=PERM,...", entry)
		}
		if _, dup := t[name]; dup {
			return nil, fmt.Errorf("role %q listed twice", name)
		}

		list := []permission.Permission{}
		for _, raw := range strings.Split(perms, ",") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			p, err := permission.ParsePermission(raw)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", name, err)
			}
			list = append(list, p)
		}
		t[name] = list
	}
	return t, nil
}

// Names returns the table's role names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ToDataModel(r *Role) *roleDatamodel.Role {
	return &roleDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Permissions: int64(r.Permissions),
		IsDefault:   r.IsDefault,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func FromDataModel(r *roleDatamodel.Role) *Role {
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Permissions: permission.Mask(r.Permissions),
		IsDefault:   r.IsDefault,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
