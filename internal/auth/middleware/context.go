package auth

import "context"

type ctxKey string

const ctxKeyUser ctxKey = "user"

func WithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKeyUser, userID)
}

// UserFromContext returns the authenticated user id, or 0 for anonymous callers.
func UserFromContext(ctx context.Context) int64 {
	if v := ctx.Value(ctxKeyUser); v != nil {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
