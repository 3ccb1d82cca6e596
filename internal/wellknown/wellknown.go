// Package wellknown fetches remote authorization server metadata documents
// and caches them for pass-through serving.
//
// The resource server never interprets these documents beyond checking that
// they are JSON; it serves the upstream bytes as-is so clients see exactly
// what the authorization server published.
package wellknown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL bounds how long a fetched document is served before the
	// upstream server is consulted again.
	DefaultTTL = time.Hour

	defaultFetchTimeout = 10 * time.Second

	// maxDocumentBytes caps how much of an upstream response is read.
	// Metadata documents are small; anything larger is refused.
	maxDocumentBytes = 1 << 20
)

// Logger is the subset of a structured logger the client needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Client fetches metadata documents over HTTP, caching each one by URL.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	ttl        time.Duration
	logger     Logger

	mu    sync.RWMutex
	cache map[string]*document
	group singleflight.Group

	now func() time.Time
}

type document struct {
	body      []byte
	fetchedAt time.Time
}

// New builds a client. A nil httpClient falls back to a timeout-bounded
// default, a non-positive ttl to DefaultTTL, and a nil logger to a no-op.
func New(httpClient *http.Client, ttl time.Duration, logger Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		httpClient: httpClient,
		ttl:        ttl,
		logger:     logger,
		cache:      make(map[string]*document),
		now:        time.Now,
	}
}

// Fetch returns the document at url, serving a cached copy while it is
// fresh. Concurrent fetches of the same URL are coalesced into one upstream
// request. When the upstream fetch fails and a stale copy exists, the stale
// copy is served and the failure logged.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("metadata URL is required")
	}

	c.mu.RLock()
	cached, ok := c.cache[url]
	c.mu.RUnlock()
	if ok && c.now().Sub(cached.fetchedAt) < c.ttl {
		return cached.body, nil
	}

	fresh, err := c.refresh(ctx, url)
	if err == nil {
		return fresh.body, nil
	}
	if ok {
		c.logger.Warn("serving stale authorization server metadata after a fetch failure",
			"url", url,
			"error", err,
		)
		return cached.body, nil
	}
	return nil, err
}

func (c *Client) refresh(ctx context.Context, url string) (*document, error) {
	result, err, _ := c.group.Do(url, func() (any, error) {
		// Another caller may have refreshed while this one waited on
		// the flight.
		c.mu.RLock()
		cached, ok := c.cache[url]
		c.mu.RUnlock()
		if ok && c.now().Sub(cached.fetchedAt) < c.ttl {
			return cached, nil
		}

		body, err := c.fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		doc := &document{body: body, fetchedAt: c.now()}
		c.mu.Lock()
		c.cache[url] = doc
		c.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*document), nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build metadata request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not fetch metadata from %q: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata endpoint %q returned status %d", url, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read metadata from %q: %w", url, err)
	}
	if len(body) > maxDocumentBytes {
		return nil, fmt.Errorf("metadata document from %q exceeds %d bytes", url, maxDocumentBytes)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("metadata document from %q is not valid JSON", url)
	}
	return body, nil
}
