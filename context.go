package serverauth

import (
	"context"

	"github.com/ArcadeAI/mcp-server-auth/validator"
)

type identityContextKey struct{}

// ContextWithIdentity returns a context carrying the identity asserted by a
// validated token. The middleware attaches the identity to a per-request
// clone of the context, so it lives exactly as long as the request it was
// validated for.
func ContextWithIdentity(ctx context.Context, identity *validator.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity attached by the middleware. The
// second return is false on requests that never passed validation, such as
// excluded paths.
func IdentityFromContext(ctx context.Context) (*validator.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*validator.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
