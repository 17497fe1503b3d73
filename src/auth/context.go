package auth

import (
	"context"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal identifies the authenticated API caller.
type Principal struct {
	Name string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
