package user

import (
	"strings"
	"time"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/core/common/validation"
)

type RegisterDTO struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (d *RegisterDTO) Normalize() {
	d.Email = normalizeEmail(d.Email)
	d.Username = strings.TrimSpace(d.Username)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).
		Required(internal.ErrCodeInvalidEmail).
		MaxLength(64, internal.ErrCodeInvalidEmail).
		Email(internal.ErrCodeInvalidEmail)
	v.Field("username", d.Username).
		Required(internal.ErrCodeInvalidUsername).
		MaxLength(64, internal.ErrCodeInvalidUsername)
	v.Field("password", d.Password).
		Required(internal.ErrCodeInvalidPassword).
		MinLength(8, internal.ErrCodeInvalidPassword)
	if err := v.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateUsername(d.Username); err != nil {
		return err
	}
	return nil
}

type AssignRoleDTO struct {
	Role string `json:"role"`
}

type UserResponse struct {
	URL         string    `json:"url"`
	Username    string    `json:"username"`
	MemberSince time.Time `json:"member_since"`
	LastSeen    time.Time `json:"last_seen"`
	TodosURL    string    `json:"todos_url"`
	TodoCount   int64     `json:"todo_count"`
}

type ProfileResponse struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Confirmed   bool      `json:"confirmed"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	MemberSince time.Time `json:"member_since"`
	LastSeen    time.Time `json:"last_seen"`
}

func (u *User) ToProfile() ProfileResponse {
	resp := ProfileResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Confirmed:   u.Confirmed,
		Permissions: []string{},
		MemberSince: u.MemberSince,
		LastSeen:    u.LastSeen,
	}
	if u.Role != nil {
		resp.Role = u.Role.Name
		resp.Permissions = u.Role.ToResponse().Permissions
	}
	return resp
}
