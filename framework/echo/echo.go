// Package authechohandler adapts the resource server middleware to echo.
package authechohandler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	serverauth "github.com/ArcadeAI/mcp-server-auth"
	"github.com/ArcadeAI/mcp-server-auth/validator"
)

// DefaultIdentityKey is the echo context key the authenticated identity is
// stored under when no WithIdentityKey option is given.
const DefaultIdentityKey = "auth_identity"

type echoMiddlewareConfig struct {
	identityKey string
}

// New wraps middleware token validation as an echo.MiddlewareFunc. Requests
// that fail validation receive the middleware's challenge response and never
// reach the next handler; the rest carry the authenticated identity both in
// the request context and in the echo context under the configured key.
//
// Example:
//
//	e := echo.New()
//	e.Use(authechohandler.New(middleware))
func New(middleware *serverauth.Middleware, opts ...Option) echo.MiddlewareFunc {
	config := &echoMiddlewareConfig{
		identityKey: DefaultIdentityKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)

				if identity, ok := serverauth.IdentityFromContext(r.Context()); ok {
					c.Set(config.identityKey, identity)
				}

				nextErr = next(c)
			}

			middleware.CheckToken(handler).ServeHTTP(c.Response(), c.Request())

			// nextErr stays nil when the middleware rejected the
			// request, because the challenge response was already
			// written.
			return nextErr
		}
	}
}

// Identity returns the authenticated identity stored in the echo context.
// An empty contextKey falls back to DefaultIdentityKey. The second return is
// false on requests that never passed validation.
func Identity(c echo.Context, contextKey string) (*validator.Identity, bool) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}

	identity, ok := c.Get(contextKey).(*validator.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
