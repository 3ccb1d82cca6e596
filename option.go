package serverauth

import (
	"errors"
	"net/http"
	"time"

	"github.com/ArcadeAI/mcp-server-auth/registry"
)

// Option configures the Middleware. Returns error for validation failures.
type Option func(*Middleware) error

// Sentinel errors for configuration validation.
var (
	ErrConfigNil                 = errors.New("config cannot be nil")
	ErrCanonicalURLEmpty         = errors.New("canonical URL cannot be empty")
	ErrAuthorizationServersEmpty = errors.New("authorization server list cannot be empty")
	ErrErrorHandlerNil           = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil         = errors.New("tokenExtractor cannot be nil")
	ErrLoggerNil                 = errors.New("logger cannot be nil")
	ErrMetricsNil                = errors.New("metrics cannot be nil")
	ErrTracerNil                 = errors.New("tracer cannot be nil")
	ErrHTTPClientNil             = errors.New("http client cannot be nil")
	ErrExcludedPathsEmpty        = errors.New("excluded paths list cannot be empty")
	ErrClockSkewNegative         = errors.New("clock skew cannot be negative")
	ErrCacheTTLNotPositive       = errors.New("cache TTL must be positive")
)

// WithConfig sets the programmatic resource server configuration. The
// environment variables registry.EnvCanonicalURL and
// registry.EnvAuthorizationServers, when both set, replace it entirely.
//
// Example:
//
//	middleware, err := serverauth.New(
//	    serverauth.WithConfig(&registry.Config{
//	        CanonicalURL: "https://mcp.example.com",
//	        AuthorizationServers: []registry.Entry{
//	            registry.AuthKit("https://tenant.authkit.app"),
//	        },
//	    }),
//	)
func WithConfig(config *registry.Config) Option {
	return func(m *Middleware) error {
		if config == nil {
			return ErrConfigNil
		}
		m.programmaticConfig = config
		return nil
	}
}

// WithCanonicalURL sets the resource server's canonical URL without a full
// config. Combine with WithAuthorizationServers.
func WithCanonicalURL(canonicalURL string) Option {
	return func(m *Middleware) error {
		if canonicalURL == "" {
			return ErrCanonicalURLEmpty
		}
		m.canonicalURL = canonicalURL
		return nil
	}
}

// WithAuthorizationServers sets the trusted issuers without a full config.
//
// Example:
//
//	middleware, err := serverauth.New(
//	    serverauth.WithCanonicalURL("https://mcp.example.com"),
//	    serverauth.WithAuthorizationServers(
//	        registry.Arcade(),
//	        registry.Auth0("example.us.auth0.com"),
//	    ),
//	)
func WithAuthorizationServers(entries ...registry.Entry) Option {
	return func(m *Middleware) error {
		if len(entries) == 0 {
			return ErrAuthorizationServersEmpty
		}
		m.entries = entries
		return nil
	}
}

// WithErrorHandler sets the handler called when a request is rejected. See
// the ErrorHandler type for the contract.
//
// Default: NewChallengeErrorHandler with the canonical URL.
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the
// request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithLogger sets the logger used throughout the validation flow, including
// the key cache and the metadata client. The interface is compatible with
// log/slog.Logger; see NewLogrusLogger, NewZapLogger and NewZerologLogger
// for adapters.
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink. See NewPrometheusMetrics.
//
// Default: NoopMetrics
func WithMetrics(metrics Metrics) Option {
	return func(m *Middleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer used around token validation.
//
// Default: NoopTracer
func WithTracer(tracer Tracer) Option {
	return func(m *Middleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}

// WithClockSkew sets the leeway applied to time-based claim checks.
//
// Default: validator.DefaultClockSkew
func WithClockSkew(skew time.Duration) Option {
	return func(m *Middleware) error {
		if skew < 0 {
			return ErrClockSkewNegative
		}
		m.clockSkew = skew
		return nil
	}
}

// WithJWKSCacheTTL sets how long fetched key sets are served before the
// JWKS endpoint is consulted again.
//
// Default: jwks.DefaultTTL
func WithJWKSCacheTTL(ttl time.Duration) Option {
	return func(m *Middleware) error {
		if ttl <= 0 {
			return ErrCacheTTLNotPositive
		}
		m.jwksTTL = ttl
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for JWKS and metadata fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Middleware) error {
		if client == nil {
			return ErrHTTPClientNil
		}
		m.httpClient = client
		return nil
	}
}

// WithServeStaleKeys controls whether an expired cached key set may still
// be served when the JWKS endpoint cannot be reached. Disable it to fail
// closed on upstream outages.
//
// Default: true
func WithServeStaleKeys(serve bool) Option {
	return func(m *Middleware) error {
		m.serveStaleKeys = serve
		return nil
	}
}

// WithExcludedPaths configures URL patterns to skip token validation. URLs
// can be full URLs or just paths. The well-known discovery paths are always
// excluded.
func WithExcludedPaths(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExcludedPathsEmpty
		}
		m.excludedHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests carry a token to
// validate. CORS preflights never carry credentials, so switching this off
// is common for browser-facing servers.
//
// Default: true (OPTIONS requests are validated)
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}
