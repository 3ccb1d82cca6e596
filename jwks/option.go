package jwks

import (
	"errors"
	"net/http"
	"time"
)

// Option configures a CachingProvider.
type Option func(*CachingProvider) error

// WithHTTPClient sets the HTTP client used to fetch key sets. The client's
// timeout bounds every fetch so a slow JWKS endpoint can never stall request
// validation indefinitely.
func WithHTTPClient(client *http.Client) Option {
	return func(p *CachingProvider) error {
		if client == nil {
			return errors.New("http client must not be nil")
		}
		p.client = client
		return nil
	}
}

// WithTTL sets how long a fetched key set is considered fresh.
func WithTTL(ttl time.Duration) Option {
	return func(p *CachingProvider) error {
		if ttl <= 0 {
			return errors.New("ttl must be positive")
		}
		p.ttl = ttl
		return nil
	}
}

// WithServeStaleOnError controls what happens when a key set is past its TTL
// and the refresh fails. Enabled, the expired set keeps serving keys and each
// occurrence is logged at warning level (degraded but available). Disabled,
// the failure is surfaced and validation fails closed.
func WithServeStaleOnError(enabled bool) Option {
	return func(p *CachingProvider) error {
		p.serveStale = enabled
		return nil
	}
}

// WithLogger sets the logger. Mainly useful for observing stale-serve
// degradation; the provider logs nothing else.
func WithLogger(logger Logger) Option {
	return func(p *CachingProvider) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		p.logger = logger
		return nil
	}
}
