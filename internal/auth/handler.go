package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/session"
	"github.com/frahmantamala/todolist/internal/transport"
	"github.com/frahmantamala/todolist/internal/user"
	"github.com/frahmantamala/todolist/pkg/logger"
	"github.com/go-chi/chi"
)

type AccountService interface {
	UserResolver
	Register(ctx context.Context, dto user.RegisterDTO) (*user.User, string, error)
	Confirm(ctx context.Context, u *user.User, token string) (bool, error)
	ResendConfirmation(ctx context.Context, u *user.User) (string, error)
}

type Handler struct {
	*transport.BaseHandler
	Accounts     AccountService
	Tokens       TokenService
	Sessions     session.Store
	AuthTokenTTL time.Duration
	SessionTTL   time.Duration
}

func NewHandler(accounts AccountService, tokens TokenService, sessions session.Store, authTokenTTL, sessionTTL time.Duration) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(lg),
		Accounts:     accounts,
		Tokens:       tokens,
		Sessions:     sessions,
		AuthTokenTTL: authTokenTTL,
		SessionTTL:   sessionTTL,
	}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto user.RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, _, err := h.Accounts.Register(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	w.Header().Set("Location", user.URLFor(u.ID))
	h.WriteJSON(w, http.StatusCreated, u.ToProfile())
}

// Login handles POST /auth/login and starts a cookie session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, err := h.Accounts.Authenticate(r.Context(), dto.Email, dto.Password)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	sess, err := h.Sessions.Create(r.Context(), u.ID)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("failed to start session", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(h.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.Logger.Info("Login: session started", "user_id", u.ID)
	h.WriteJSON(w, http.StatusOK, u.ToProfile())
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil {
		if err := h.Sessions.Delete(r.Context(), c.Value); err != nil {
			h.Logger.Error("Logout: failed to delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Confirm handles GET /auth/confirm/{token} for the authenticated user.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	if u.Confirmed {
		h.WriteJSON(w, http.StatusOK, ConfirmationResponse{Confirmed: true})
		return
	}

	confirmed, err := h.Accounts.Confirm(r.Context(), u, chi.URLParam(r, "token"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	if !confirmed {
		h.WriteAppError(w, internal.NewValidationError("The confirmation link is invalid or has expired.", internal.ErrCodeInvalidToken))
		return
	}

	h.WriteJSON(w, http.StatusOK, ConfirmationResponse{Confirmed: true, Message: "You have confirmed your account."})
}

// ResendConfirmation handles POST /auth/confirm
func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	if u.Confirmed {
		h.WriteJSON(w, http.StatusOK, ConfirmationResponse{Confirmed: true})
		return
	}

	if _, err := h.Accounts.ResendConfirmation(r.Context(), u); err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusAccepted, ConfirmationResponse{
		Confirmed: false,
		Message:   "A new confirmation email has been sent.",
	})
}

// IssueToken handles POST /tokens. A token cannot be traded for a new one;
// the caller must present a password or session.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok || TokenUsedFromContext(r.Context()) {
		h.WriteAppError(w, internal.ErrInvalidCredentials)
		return
	}

	token, err := h.Tokens.IssueAuth(u.ID, h.AuthTokenTTL)
	if err != nil {
		h.WriteAppError(w, internal.NewInternalError("failed to issue token", err))
		return
	}

	h.WriteJSON(w, http.StatusOK, TokenResponse{
		Token:      token,
		Expiration: int64(h.AuthTokenTTL.Seconds()),
	})
}
