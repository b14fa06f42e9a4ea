package auth

import "context"

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by the middleware, or
// nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// OwnerFromContext returns the attachment owner of the identity in ctx,
// or "" when the request is unauthenticated.
func OwnerFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Owner()
	}
	return ""
}
