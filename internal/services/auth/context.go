package auth

import "context"

type identityKey struct{}

// WithIdentity stores the authenticated caller on the context. The auth
// middleware is the only writer; handlers read it back with
// IdentityFromContext.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
