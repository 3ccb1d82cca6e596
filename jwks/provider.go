// Package jwks fetches and caches JSON Web Key Sets and resolves key ids to
// verification keys.
package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound is returned when a key id is absent from a JWKS document
// even after a forced refresh. This is terminal for the token that referenced
// the key id; it is not retried.
var ErrKeyNotFound = errors.New("key not found in JWKS")

// Logger is the subset of log/slog's API used by this package. A
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const (
	// DefaultTTL is how long a fetched key set is considered fresh.
	DefaultTTL = time.Hour

	defaultFetchTimeout = 10 * time.Second

	// 1MB is generous for a JWKS document (typically <10KB).
	maxJWKSBytes = 1 * 1024 * 1024
)

// CachingProvider fetches one JWKS document per URI and caches it with a
// TTL. Key sets are refreshed when the TTL lapses and once, immediately,
// when a requested key id is missing from a fresh set (key rotation).
// Concurrent refreshes of the same URI are coalesced into a single in-flight
// fetch; unrelated URIs never block each other.
//
// A provider is safe for concurrent use and holds no state that outlives the
// process.
type CachingProvider struct {
	client     *http.Client
	ttl        time.Duration
	serveStale bool
	logger     Logger

	mu    sync.RWMutex
	cache map[string]*cacheEntry
	group singleflight.Group

	now func() time.Time
}

// cacheEntry is immutable once stored; refreshes replace the whole entry.
type cacheEntry struct {
	set       jwk.Set
	fetchedAt time.Time
}

// NewCachingProvider builds and returns a new *CachingProvider.
//
// Optional options:
//   - WithHTTPClient: custom HTTP client (default: 10s timeout)
//   - WithTTL: freshness window per key set (default: 1 hour)
//   - WithServeStaleOnError: serve an expired set when its refresh fails
//     (default: true; every stale serve is logged at warning level)
//   - WithLogger: destination for those warnings
func NewCachingProvider(opts ...Option) (*CachingProvider, error) {
	p := &CachingProvider{
		client:     &http.Client{Timeout: defaultFetchTimeout},
		ttl:        DefaultTTL,
		serveStale: true,
		logger:     noopLogger{},
		cache:      make(map[string]*cacheEntry),
		now:        time.Now,
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return p, nil
}

// GetKey resolves keyID within the key set published at jwksURI.
//
// A fresh cached set that contains the key id is returned without any I/O. A
// fresh set that does not contain it triggers exactly one forced refresh, so
// newly rotated keys are picked up; if the key id is still absent the lookup
// fails with ErrKeyNotFound. An expired or missing set is fetched before the
// lookup. Fetch failures are hard errors unless an older set exists and
// serve-stale is enabled.
func (p *CachingProvider) GetKey(ctx context.Context, jwksURI, keyID string) (jwk.Key, error) {
	if jwksURI == "" {
		return nil, errors.New("JWKS URI is required")
	}

	var seen time.Time
	entry, ok := p.lookup(jwksURI)
	if ok {
		seen = entry.fetchedAt
		if p.now().Sub(entry.fetchedAt) < p.ttl {
			if key, found := entry.set.LookupKeyID(keyID); found {
				return key, nil
			}
			// Fresh set without the key id: fall through to a forced
			// refresh in case the issuer rotated keys.
		}
	}

	set, err := p.refresh(ctx, jwksURI, seen)
	if err != nil {
		if ok && p.serveStale {
			if key, found := entry.set.LookupKeyID(keyID); found {
				p.logger.Warn("serving stale JWKS after failed refresh",
					"jwks_uri", jwksURI,
					"fetched_at", entry.fetchedAt,
					"error", err.Error(),
				)
				return key, nil
			}
			return nil, fmt.Errorf("%w (kid %q)", ErrKeyNotFound, keyID)
		}
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	if key, found := set.LookupKeyID(keyID); found {
		return key, nil
	}
	return nil, fmt.Errorf("%w (kid %q)", ErrKeyNotFound, keyID)
}

func (p *CachingProvider) lookup(jwksURI string) (*cacheEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[jwksURI]
	return entry, ok
}

// refresh fetches the key set for jwksURI, coalescing concurrent callers
// through a single-flight group keyed by URI. seen is the fetch time of the
// entry the caller last observed (zero when it observed none): a set stored
// by another flight after that moment already satisfies the caller's refresh,
// so it is reused instead of fetched again.
func (p *CachingProvider) refresh(ctx context.Context, jwksURI string, seen time.Time) (jwk.Set, error) {
	v, err, _ := p.group.Do(jwksURI, func() (any, error) {
		if entry, ok := p.lookup(jwksURI); ok && entry.fetchedAt.After(seen) {
			return entry.set, nil
		}

		set, err := p.fetch(ctx, jwksURI)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.cache[jwksURI] = &cacheEntry{set: set, fetchedAt: p.now()}
		p.mu.Unlock()

		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

func (p *CachingProvider) fetch(ctx context.Context, jwksURI string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	set, err := jwk.ParseReader(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return set, nil
}
