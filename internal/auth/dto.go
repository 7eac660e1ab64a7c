package auth

import (
	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required(internal.ErrCodeInvalidEmail)
	v.Field("password", d.Password).Required(internal.ErrCodeInvalidPassword)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type TokenResponse struct {
	Token      string `json:"token"`
	Expiration int64  `json:"expiration"`
}

type ConfirmationResponse struct {
	Confirmed bool   `json:"confirmed"`
	Message   string `json:"message,omitempty"`
}
