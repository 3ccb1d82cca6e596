// Package authginhandler adapts the resource server middleware to gin.
package authginhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	serverauth "github.com/ArcadeAI/mcp-server-auth"
	"github.com/ArcadeAI/mcp-server-auth/validator"
)

// DefaultIdentityKey is the gin context key the authenticated identity is
// stored under when no WithIdentityKey option is given.
const DefaultIdentityKey = "auth_identity"

var (
	// ErrMissingIdentity is returned by Identity when the request never
	// passed token validation, such as on excluded paths.
	ErrMissingIdentity = errors.New("no authenticated identity found in context")

	// ErrInvalidIdentity is returned by Identity when the configured
	// context key holds something other than a *validator.Identity.
	ErrInvalidIdentity = errors.New("invalid authenticated identity type")
)

type ginMiddlewareConfig struct {
	identityKey string
}

// New wraps middleware token validation as a gin.HandlerFunc. Requests that
// fail validation are answered with the middleware's challenge response and
// aborted; the rest carry the authenticated identity both in the request
// context and in the gin context under the configured key.
//
// Example:
//
//	router := gin.Default()
//	router.Use(authginhandler.New(middleware))
func New(middleware *serverauth.Middleware, opts ...Option) gin.HandlerFunc {
	config := &ginMiddlewareConfig{
		identityKey: DefaultIdentityKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(c *gin.Context) {
		encounteredError := true
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			encounteredError = false
			c.Request = r

			if identity, ok := serverauth.IdentityFromContext(r.Context()); ok {
				c.Set(config.identityKey, identity)
			}

			c.Next()
		}

		middleware.CheckToken(handler).ServeHTTP(c.Writer, c.Request)

		if encounteredError {
			c.Abort()
		}
	}
}

// Identity returns the authenticated identity stored in the gin context. An
// empty contextKey falls back to DefaultIdentityKey.
func Identity(c *gin.Context, contextKey string) (*validator.Identity, error) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}

	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	identity, ok := value.(*validator.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}

	return identity, nil
}
