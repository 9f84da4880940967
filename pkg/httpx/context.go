package httpx

import "context"

type principalKey struct{}

// WithPrincipal records the authenticated principal id on ctx.
func WithPrincipal(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, principalKey{}, id)
}

// PrincipalFromContext returns the id set by WithPrincipal, or "".
func PrincipalFromContext(ctx context.Context) string {
	id, _ := ctx.Value(principalKey{}).(string)
	return id
}
