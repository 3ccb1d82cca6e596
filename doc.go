/*
Package serverauth turns an MCP server into an OAuth 2.1 protected resource.

The middleware validates bearer tokens against a registry of trusted
authorization servers, publishes the discovery documents MCP clients use to
find those servers, and answers every rejected request with an RFC 6750
challenge that points back at the resource metadata. Handlers behind it
receive the caller's identity through the request context and never see an
unauthenticated request.

# Quick Start

	import (
	    "github.com/ArcadeAI/mcp-server-auth"
	    "github.com/ArcadeAI/mcp-server-auth/registry"
	)

	func main() {
	    middleware, err := serverauth.New(
	        serverauth.WithCanonicalURL("https://mcp.example.com"),
	        serverauth.WithAuthorizationServers(
	            registry.AuthKit("https://tenant.authkit.app"),
	        ),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    mux := http.NewServeMux()
	    mux.Handle("/mcp", mcpHandler)

	    http.ListenAndServe(":8000", middleware.Handler(mux))
	}

Handler wraps token validation and the well-known discovery routes in one
step. Use CheckToken instead when the host application registers the
discovery routes itself (see RegisterWellKnown).

# Accessing the Identity

Validated requests carry the token's identity in the request context:

	func mcpHandler(w http.ResponseWriter, r *http.Request) {
	    identity, ok := serverauth.IdentityFromContext(r.Context())
	    if !ok {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }

	    fmt.Fprintf(w, "Hello, %s!", identity.UserID)
	}

The identity is scoped to the single request that produced it. Nothing is
cached between requests; a token presented twice is validated twice.

# Configuration

Configuration is fail-closed: New returns an error for any invalid or
missing piece, so a misconfigured server never starts. The environment
variables MCP_RESOURCE_SERVER_CANONICAL_URL and
MCP_RESOURCE_SERVER_AUTHORIZATION_SERVERS, when both are set, replace
whatever was configured programmatically (see registry.LoadConfig).

Vendor presets cover the common authorization servers:

	registry.AuthKit("https://tenant.authkit.app")
	registry.Auth0("tenant.us.auth0.com")
	registry.Arcade()

or build a registry.Entry by hand for anything else:

	registry.Entry{
	    Issuer:    "https://issuer.example.com",
	    JWKSURI:   "https://issuer.example.com/jwks.json",
	    Algorithm: "ES256",
	    Audience:  "my-api",
	}

# Discovery and Challenges

The middleware serves the RFC 9728 protected resource metadata at
/.well-known/oauth-protected-resource (and its /mcp variant), and forwards
the RFC 8414 authorization server metadata when an entry opts in with
ForwardAuthServerMetadata. Rejected requests receive a 401 with a
WWW-Authenticate challenge naming the resource metadata URL, which is all a
conforming MCP client needs to start an authorization flow.

Challenge descriptions are fixed per failure category. Token contents and
upstream error detail stay in the server log and never reach a response
header.

# Token Extraction

The default extractor reads the Authorization header with the Bearer
scheme. Cookie, query parameter, and chained extractors are available:

	serverauth.WithTokenExtractor(serverauth.MultiTokenExtractor(
	    serverauth.AuthHeaderTokenExtractor,
	    serverauth.CookieTokenExtractor("token"),
	))

# Exclusions

Paths that must stay reachable without a token:

	serverauth.WithExcludedPaths([]string{"/health", "/version"})

The well-known discovery paths are always excluded.

# Observability

Logging, metrics, and tracing are off by default and enabled by options:

	serverauth.WithLogger(serverauth.NewZapLogger(sugar))
	serverauth.WithMetrics(serverauth.NewPrometheusMetrics())
	serverauth.WithTracer(serverauth.NewOpenTelemetryTracer(otel.Tracer("mcp")))

Adapters exist for zap, zerolog, and logrus; any type with slog-style
Debug/Info/Warn/Error methods satisfies the Logger interface directly.

# Framework Adapters

Subpackages adapt the middleware to other transports:

	framework/gin    gin-gonic handler
	framework/echo   labstack echo middleware
	framework/grpc   unary and stream interceptors

All of them delegate to Middleware.Authenticate, so behavior and challenge
semantics stay identical across transports.
*/
package serverauth
