package serverauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/ArcadeAI/mcp-server-auth/internal/wellknown"
	"github.com/ArcadeAI/mcp-server-auth/jwks"
	"github.com/ArcadeAI/mcp-server-auth/registry"
	"github.com/ArcadeAI/mcp-server-auth/validator"
)

// Middleware authenticates every inbound request against the configured
// authorization servers before the application sees it.
type Middleware struct {
	config    *registry.Config
	registry  *registry.Registry
	validator *validator.Validator

	errorHandler   ErrorHandler
	tokenExtractor TokenExtractor
	logger         Logger
	metrics        Metrics
	tracer         Tracer

	validateOnOptions bool
	excludedHandler   func(r *http.Request) bool

	resourceMetadataJSON []byte
	forwardedMetadataURL string
	metadata             *wellknown.Client

	// Staging fields only read during construction.
	programmaticConfig *registry.Config
	canonicalURL       string
	entries            []registry.Entry
	clockSkew          time.Duration
	jwksTTL            time.Duration
	serveStaleKeys     bool
	httpClient         *http.Client
}

// New constructs a Middleware with the supplied options. Configuration is
// resolved through registry.LoadConfig, so the environment variables win
// over anything set programmatically. Any configuration problem fails
// construction; a misconfigured resource server never serves.
//
// Example:
//
//	middleware, err := serverauth.New(
//	    serverauth.WithCanonicalURL("https://mcp.example.com"),
//	    serverauth.WithAuthorizationServers(
//	        registry.AuthKit("https://tenant.authkit.app"),
//	    ),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
//
//	http.ListenAndServe(":8000", middleware.Handler(mux))
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions: true,
		clockSkew:         validator.DefaultClockSkew,
		jwksTTL:           jwks.DefaultTTL,
		serveStaleKeys:    true,
		logger:            noopLogger{},
		metrics:           &NoopMetrics{},
		tracer:            &NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	config, err := registry.LoadConfig(m.effectiveConfig())
	if err != nil {
		return nil, err
	}
	m.config = config

	issuerRegistry, err := registry.New(config.AuthorizationServers)
	if err != nil {
		return nil, err
	}
	m.registry = issuerRegistry

	keyOpts := []jwks.Option{
		jwks.WithTTL(m.jwksTTL),
		jwks.WithServeStaleOnError(m.serveStaleKeys),
		jwks.WithLogger(m.logger),
	}
	if m.httpClient != nil {
		keyOpts = append(keyOpts, jwks.WithHTTPClient(m.httpClient))
	}
	keys, err := jwks.NewCachingProvider(keyOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not build key cache: %w", err)
	}

	m.validator, err = validator.New(keys, validator.WithClockSkew(m.clockSkew))
	if err != nil {
		return nil, fmt.Errorf("could not build token validator: %w", err)
	}

	m.resourceMetadataJSON, err = json.Marshal(m.ResourceMetadata())
	if err != nil {
		return nil, fmt.Errorf("could not marshal resource metadata: %w", err)
	}

	// The first forwarding entry wins; the well-known path can only carry
	// one authorization server's document.
	for _, entry := range issuerRegistry.Entries() {
		if entry.ForwardAuthServerMetadata {
			m.forwardedMetadataURL = entry.AuthorizationServerMetadataURL()
			break
		}
	}
	m.metadata = wellknown.New(m.httpClient, 0, m.logger)

	if m.errorHandler == nil {
		m.errorHandler = NewChallengeErrorHandler(config.CanonicalURL)
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}

	return m, nil
}

// effectiveConfig merges the convenience options into the programmatic
// config without mutating the caller's value.
func (m *Middleware) effectiveConfig() *registry.Config {
	if m.canonicalURL == "" && len(m.entries) == 0 {
		return m.programmaticConfig
	}

	var config registry.Config
	if m.programmaticConfig != nil {
		config = *m.programmaticConfig
	}
	if m.canonicalURL != "" {
		config.CanonicalURL = m.canonicalURL
	}
	if len(m.entries) > 0 {
		config.AuthorizationServers = m.entries
	}
	return &config
}

// CanonicalURL returns the resolved canonical URL of the resource server.
func (m *Middleware) CanonicalURL() string {
	return m.config.CanonicalURL
}

// Authenticate validates rawToken and returns the identity it asserts. It
// is the transport-agnostic core behind CheckToken and the gRPC
// interceptors. Every call validates in full; no identity is ever reused
// across requests.
func (m *Middleware) Authenticate(ctx context.Context, rawToken string) (*validator.Identity, error) {
	m.metrics.IncCounter(MetricAuthRequests, nil)

	ctx, span := m.tracer.StartSpan(ctx, "serverauth.authenticate")
	defer span.Finish()

	start := time.Now()
	identity, err := m.authenticate(ctx, rawToken)
	m.metrics.ObserveHistogram(MetricAuthValidateDuration, time.Since(start).Seconds(), nil)

	if err != nil {
		span.SetTag("outcome", rejectionReason(err))
		m.recordRejection(err)
		return nil, err
	}

	span.SetTag("outcome", "ok")
	span.SetTag("issuer", identity.Issuer)
	m.logger.Debug("token validated",
		"issuer", identity.Issuer,
		"subject", identity.UserID,
	)
	return identity, nil
}

func (m *Middleware) authenticate(ctx context.Context, rawToken string) (*validator.Identity, error) {
	if rawToken == "" {
		return nil, ErrTokenMissing
	}

	issuer, err := peekIssuer(rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", validator.ErrMalformedToken, err)
	}

	entry, err := m.registry.Resolve(issuer)
	if err != nil {
		return nil, err
	}

	return m.validator.Validate(ctx, rawToken, entry.Policy(m.config.CanonicalURL))
}

// peekIssuer reads the iss claim without verifying anything. The value only
// selects which policy the token is validated under; nothing from the token
// is trusted until the validator has checked its signature against that
// policy.
func peekIssuer(rawToken string) (string, error) {
	token, err := jwt.ParseInsecure([]byte(rawToken))
	if err != nil {
		return "", err
	}
	return token.Issuer(), nil
}

// CheckToken guards next with bearer token validation. Discovery paths and
// configured exclusions pass through untouched; every other request needs a
// token that validates against one of the configured authorization servers.
// The identity rides on a per-request clone of the context, so it cannot
// outlive the request or leak into another one under connection reuse.
func (m *Middleware) CheckToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWellKnown(r.URL.Path) || (m.excludedHandler != nil && m.excludedHandler(r)) {
			m.logger.Debug("skipping token validation for excluded URL",
				"method", r.Method,
				"path", r.URL.Path,
			)
			next.ServeHTTP(w, r)
			return
		}

		if !m.validateOnOptions && r.Method == http.MethodOptions {
			m.logger.Debug("skipping token validation for OPTIONS request")
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.tokenExtractor(r)
		if err != nil {
			// An extractor error means a credential was attempted but
			// unreadable, which challenges the same way as no credential.
			err = fmt.Errorf("%w: %v", ErrTokenMissing, err)
			m.metrics.IncCounter(MetricAuthRequests, nil)
			m.recordRejection(err)
			m.errorHandler(w, r, err)
			return
		}

		identity, err := m.Authenticate(r.Context(), token)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		r = r.Clone(ContextWithIdentity(r.Context(), identity))
		next.ServeHTTP(w, r)
	})
}

func isWellKnown(path string) bool {
	switch path {
	case ProtectedResourceMetadataPath, ProtectedResourceMetadataMCPPath, AuthorizationServerMetadataPath:
		return true
	}
	return false
}

func (m *Middleware) recordRejection(err error) {
	reason := rejectionReason(err)
	m.metrics.IncCounter(MetricAuthRejected, map[string]string{"reason": reason})
	m.logger.Warn("request rejected",
		"reason", reason,
		"error", err,
	)
}

// rejectionReason folds err into a bounded set of labels safe for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "missing_token"
	case errors.Is(err, registry.ErrUnknownIssuer):
		return "unknown_issuer"
	case errors.Is(err, validator.ErrAlgorithmMismatch):
		return "algorithm_mismatch"
	case errors.Is(err, validator.ErrKeyResolution):
		return "key_resolution"
	case errors.Is(err, validator.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, validator.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, validator.ErrTokenNotYetValid):
		return "token_not_yet_valid"
	case errors.Is(err, validator.ErrIssuerMismatch):
		return "issuer_mismatch"
	case errors.Is(err, validator.ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, validator.ErrMissingSubject):
		return "missing_subject"
	case errors.Is(err, validator.ErrMalformedToken):
		return "malformed_token"
	default:
		return "validation_failed"
	}
}
