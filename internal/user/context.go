package user

import (
	"context"

	"github.com/frahmantamala/todolist/internal"
)

type ctxKey struct{}

// WithContext stores the acting user on ctx and records its ID for logging.
func WithContext(ctx context.Context, u *User) context.Context {
	ctx = internal.ContextWithUserID(ctx, u.ID)
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*User)
	return u, ok && u != nil
}
