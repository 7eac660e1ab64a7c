package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/session"
	"github.com/frahmantamala/todolist/internal/transport"
	"github.com/frahmantamala/todolist/internal/user"
	"github.com/frahmantamala/todolist/pkg/logger"
)

type tokenUsedKey struct{}

// UserResolver looks up the acting user from the credentials a request
// carries.
type UserResolver interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	Ping(ctx context.Context, u *user.User) error
}

// Authenticator resolves the acting user, in order, from a bearer auth token,
// HTTP basic credentials (an auth token as the username with an empty
// password, or email and password), or a session cookie.
type Authenticator struct {
	*transport.BaseHandler
	users    UserResolver
	tokens   TokenService
	sessions session.Store
}

// NewAuthenticator accepts a nil session store; cookie login is then skipped.
func NewAuthenticator(users UserResolver, tokens TokenService, sessions session.Store) *Authenticator {
	return &Authenticator{
		BaseHandler: transport.NewBaseHandler(logger.LoggerWrapper()),
		users:       users,
		tokens:      tokens,
		sessions:    sessions,
	}
}

func UserFromContext(ctx context.Context) (*user.User, bool) {
	return user.FromContext(ctx)
}

// TokenUsedFromContext reports whether the acting user authenticated with an
// auth token rather than a password or session.
func TokenUsedFromContext(ctx context.Context) bool {
	used, _ := ctx.Value(tokenUsedKey{}).(bool)
	return used
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, tokenUsed, err := a.resolve(r)
		if err != nil {
			a.WriteAppError(w, err)
			return
		}

		if err := a.users.Ping(r.Context(), u); err != nil {
			a.Logger.Warn("failed to record last seen", "user_id", u.ID, "error", err)
		}

		ctx := user.WithContext(r.Context(), u)
		ctx = context.WithValue(ctx, tokenUsedKey{}, tokenUsed)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireConfirmed refuses authenticated users who have not confirmed their
// account yet.
func (a *Authenticator) RequireConfirmed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			a.WriteAppError(w, internal.ErrUnauthenticated)
			return
		}
		if !u.Confirmed {
			a.WriteAppError(w, internal.ErrUnconfirmedAccount)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) (*user.User, bool, error) {
	ctx := r.Context()

	if bearer := a.ExtractTokenFromHeader(r); bearer != "" {
		u, err := a.fromToken(ctx, bearer)
		return u, true, err
	}

	if name, password, ok := r.BasicAuth(); ok {
		if name == "" {
			return nil, false, internal.ErrInvalidCredentials
		}
		if password == "" {
			u, err := a.fromToken(ctx, name)
			return u, true, err
		}
		u, err := a.users.Authenticate(ctx, name, password)
		return u, false, err
	}

	if a.sessions != nil {
		if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
			u, err := a.fromSession(ctx, c.Value)
			return u, false, err
		}
	}

	return nil, false, internal.ErrUnauthenticated
}

func (a *Authenticator) fromToken(ctx context.Context, token string) (*user.User, error) {
	id, ok := a.tokens.VerifyAuth(token)
	if !ok {
		return nil, internal.ErrInvalidToken
	}
	u, err := a.users.GetByID(ctx, id)
	if errors.Is(err, internal.ErrUserNotFound) {
		return nil, internal.ErrInvalidToken
	}
	return u, err
}

func (a *Authenticator) fromSession(ctx context.Context, id string) (*user.User, error) {
	sess, err := a.sessions.Get(ctx, id)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, internal.ErrUnauthenticated
	}
	if err != nil {
		return nil, internal.NewInternalError("failed to load session", err)
	}

	u, err := a.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, internal.ErrUserNotFound) {
		_ = a.sessions.Delete(ctx, id)
		return nil, internal.ErrUnauthenticated
	}
	return u, err
}
