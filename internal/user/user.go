package user

import (
	"strings"
	"time"

	"github.com/frahmantamala/todolist/internal"
	userDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/user"
	"github.com/frahmantamala/todolist/internal/credential"
	"github.com/frahmantamala/todolist/internal/permission"
	"github.com/frahmantamala/todolist/internal/role"
)

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Confirmed    bool       `json:"confirmed"`
	RoleID       *int64     `json:"role_id,omitempty"`
	Role         *role.Role `json:"role,omitempty"`
	MemberSince  time.Time  `json:"member_since"`
	LastSeen     time.Time  `json:"last_seen"`
}

// Password always fails: the plaintext is never kept, only its hash.
func (u *User) Password() (string, error) {
	return "", internal.ErrUnreadableAttribute
}

func (u *User) SetPassword(h credential.Hasher, plain string) error {
	hash, err := h.Hash(plain)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) VerifyPassword(h credential.Hasher, plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return h.Verify(plain, u.PasswordHash)
}

// Can reports whether the user's role grants p. A user without a resolved
// role can do nothing.
func (u *User) Can(p permission.Permission) bool {
	return u != nil && u.Role != nil && u.Role.HasPermission(p)
}

func (u *User) IsAdministrator() bool {
	return u.Can(permission.Admin)
}

// MarkConfirmed flips the confirmation flag. There is no way back.
func (u *User) MarkConfirmed() {
	u.Confirmed = true
}

func (u *User) SetRole(r *role.Role) {
	u.Role = r
	if r == nil {
		u.RoleID = nil
		return
	}
	id := r.ID
	u.RoleID = &id
}

type RoleConfig struct {
	AdminEmail    string
	AdminRoleName string
}

// ResolveRole picks the role a new account starts with: the administrator
// role when email matches the configured admin address, otherwise the default
// role. It returns nil only when neither exists.
func ResolveRole(email string, cfg RoleConfig, roles []*role.Role) *role.Role {
	adminName := cfg.AdminRoleName
	if adminName == "" {
		adminName = role.NameAdministrator
	}

	admin := strings.TrimSpace(cfg.AdminEmail)
	if admin != "" && strings.EqualFold(strings.TrimSpace(email), admin) {
		for _, r := range roles {
			if r.Name == adminName {
				return r
			}
		}
	}

	for _, r := range roles {
		if r.IsDefault {
			return r
		}
	}
	return nil
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Confirmed:    u.Confirmed,
		RoleID:       u.RoleID,
		MemberSince:  u.MemberSince,
		LastSeen:     u.LastSeen,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Confirmed:    u.Confirmed,
		RoleID:       u.RoleID,
		MemberSince:  u.MemberSince,
		LastSeen:     u.LastSeen,
	}
}
