package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Environment variables read once by LoadConfig at startup, never in hot
// paths.
const (
	// EnvCanonicalURL holds the resource server's canonical URL.
	EnvCanonicalURL = "MCP_RESOURCE_SERVER_CANONICAL_URL"

	// EnvAuthorizationServers holds a JSON array of authorization server
	// entry objects.
	EnvAuthorizationServers = "MCP_RESOURCE_SERVER_AUTHORIZATION_SERVERS"
)

// Config is the canonical resource server configuration: the server's own
// identity plus the authorization servers it trusts.
type Config struct {
	// CanonicalURL is the resource server's identity. It is the resource
	// value in the protected resource metadata and the default expected
	// audience for incoming tokens. A trailing slash is trimmed.
	CanonicalURL string `json:"canonical_url"`

	// AuthorizationServers lists the trusted issuers. Order is preserved
	// into the discovery document.
	AuthorizationServers []Entry `json:"authorization_servers"`
}

// LoadConfig resolves the effective configuration. When the environment
// carries both variables it fully replaces the programmatic config; this is
// a documented precedence, never a merge. Setting only one of the two
// variables is ErrInvalidConfiguration, as is ending up with no
// configuration at all.
func LoadConfig(programmatic *Config) (*Config, error) {
	canonicalURL := os.Getenv(EnvCanonicalURL)
	serversJSON := os.Getenv(EnvAuthorizationServers)

	switch {
	case canonicalURL != "" && serversJSON != "":
		var entries []Entry
		if err := json.Unmarshal([]byte(serversJSON), &entries); err != nil {
			return nil, fmt.Errorf("%w: could not parse %s: %v", ErrInvalidConfiguration, EnvAuthorizationServers, err)
		}
		return normalize(&Config{
			CanonicalURL:         canonicalURL,
			AuthorizationServers: entries,
		})
	case canonicalURL != "" || serversJSON != "":
		return nil, fmt.Errorf(
			"%w: %s and %s must be set together",
			ErrInvalidConfiguration, EnvCanonicalURL, EnvAuthorizationServers,
		)
	}

	if programmatic == nil {
		return nil, fmt.Errorf(
			"%w: no configuration provided; pass a config or set %s and %s",
			ErrInvalidConfiguration, EnvCanonicalURL, EnvAuthorizationServers,
		)
	}
	return normalize(&Config{
		CanonicalURL:         programmatic.CanonicalURL,
		AuthorizationServers: append([]Entry(nil), programmatic.AuthorizationServers...),
	})
}

func normalize(config *Config) (*Config, error) {
	config.CanonicalURL = strings.TrimRight(config.CanonicalURL, "/")
	if config.CanonicalURL == "" {
		return nil, fmt.Errorf("%w: canonical URL is required", ErrInvalidConfiguration)
	}
	if err := checkAbsoluteURL(config.CanonicalURL); err != nil {
		return nil, fmt.Errorf("%w: canonical URL %q: %v", ErrInvalidConfiguration, config.CanonicalURL, err)
	}
	return config, nil
}
