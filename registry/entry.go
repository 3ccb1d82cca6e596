package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ArcadeAI/mcp-server-auth/validator"
)

// ValidationOptions toggles the individual claim checks applied to tokens
// from one authorization server. Every check is on unless it is switched
// off explicitly, both here and in the JSON form: an omitted flag stays
// enabled.
type ValidationOptions struct {
	VerifyAudience bool `json:"verify_aud"`
	VerifyExpiry   bool `json:"verify_exp"`
	VerifyIssuedAt bool `json:"verify_iat"`
	VerifyIssuer   bool `json:"verify_iss"`
}

// DefaultValidationOptions returns options with every claim check enabled.
func DefaultValidationOptions() *ValidationOptions {
	return &ValidationOptions{
		VerifyAudience: true,
		VerifyExpiry:   true,
		VerifyIssuedAt: true,
		VerifyIssuer:   true,
	}
}

// UnmarshalJSON keeps omitted flags at their enabled defaults, so
// {"verify_aud": false} switches off the audience check and nothing else.
func (o *ValidationOptions) UnmarshalJSON(data []byte) error {
	var raw struct {
		VerifyAudience *bool `json:"verify_aud"`
		VerifyExpiry   *bool `json:"verify_exp"`
		VerifyIssuedAt *bool `json:"verify_iat"`
		VerifyIssuer   *bool `json:"verify_iss"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*o = *DefaultValidationOptions()
	if raw.VerifyAudience != nil {
		o.VerifyAudience = *raw.VerifyAudience
	}
	if raw.VerifyExpiry != nil {
		o.VerifyExpiry = *raw.VerifyExpiry
	}
	if raw.VerifyIssuedAt != nil {
		o.VerifyIssuedAt = *raw.VerifyIssuedAt
	}
	if raw.VerifyIssuer != nil {
		o.VerifyIssuer = *raw.VerifyIssuer
	}
	return nil
}

// Entry configures one trusted authorization server.
type Entry struct {
	// AuthorizationServerURL is the server's advertised base URL, the one
	// published in the protected resource metadata. It may differ from the
	// issuer for regional aliasing; when empty it falls back to the issuer.
	AuthorizationServerURL string `json:"authorization_server_url,omitempty"`

	// Issuer must exactly match the iss claim of the tokens this entry
	// covers. No prefix or suffix matching is ever applied.
	Issuer string `json:"issuer"`

	// JWKSURI is the endpoint publishing the server's signing keys.
	JWKSURI string `json:"jwks_uri"`

	// Algorithm is the only signature algorithm accepted from this issuer.
	// Defaults to RS256. "Ed25519" is accepted as an alias for EdDSA.
	Algorithm string `json:"algorithm,omitempty"`

	// Audience overrides the expected aud claim for servers whose tokens
	// are not bound to the resource's canonical URL, such as
	// "urn:arcade:mcp".
	Audience string `json:"audience,omitempty"`

	// ForwardAuthServerMetadata publishes this issuer's authorization
	// server metadata through the resource server's own well-known
	// endpoint, for clients that only discover via the resource.
	ForwardAuthServerMetadata bool `json:"forward_authorization_server_metadata,omitempty"`

	// ValidationOptions toggles individual claim checks. nil means every
	// check is on.
	ValidationOptions *ValidationOptions `json:"validation_options,omitempty"`
}

// withDefaults returns a copy of the entry with the documented fallbacks
// applied.
func (e Entry) withDefaults() Entry {
	if e.AuthorizationServerURL == "" {
		e.AuthorizationServerURL = e.Issuer
	}
	if e.Algorithm == "" {
		e.Algorithm = string(validator.RS256)
	}
	if e.ValidationOptions == nil {
		e.ValidationOptions = DefaultValidationOptions()
	}
	return e
}

// clone returns a copy that shares no pointers with the entry, so callers
// cannot mutate a registry through the values it hands out.
func (e Entry) clone() Entry {
	if e.ValidationOptions != nil {
		opts := *e.ValidationOptions
		e.ValidationOptions = &opts
	}
	return e
}

func (e Entry) validate() error {
	if e.Issuer == "" {
		return errors.New("authorization server entry has no issuer")
	}
	if err := checkAbsoluteURL(e.Issuer); err != nil {
		return fmt.Errorf("issuer %q: %w", e.Issuer, err)
	}
	if e.JWKSURI == "" {
		return fmt.Errorf("authorization server %q has no jwks_uri", e.Issuer)
	}
	if err := checkAbsoluteURL(e.JWKSURI); err != nil {
		return fmt.Errorf("jwks_uri %q: %w", e.JWKSURI, err)
	}
	if err := checkAbsoluteURL(e.AuthorizationServerURL); err != nil {
		return fmt.Errorf("authorization_server_url %q: %w", e.AuthorizationServerURL, err)
	}
	if _, err := validator.ParseAlgorithm(e.Algorithm); err != nil {
		return fmt.Errorf("authorization server %q: %w", e.Issuer, err)
	}
	return nil
}

// Policy derives the token validation policy for this entry. The expected
// audience is the entry's override when set, otherwise the resource server's
// canonical URL.
func (e *Entry) Policy(canonicalURL string) validator.Policy {
	audience := e.Audience
	if audience == "" {
		audience = canonicalURL
	}

	// Registry construction already vetted the algorithm. An entry built
	// by hand with a bad algorithm fails inside the validator instead.
	algorithm, err := validator.ParseAlgorithm(e.Algorithm)
	if err != nil {
		algorithm = validator.SignatureAlgorithm(e.Algorithm)
	}

	options := e.ValidationOptions
	if options == nil {
		options = DefaultValidationOptions()
	}

	return validator.Policy{
		Issuer:         e.Issuer,
		JWKSURI:        e.JWKSURI,
		Algorithm:      algorithm,
		Audience:       audience,
		VerifyExpiry:   options.VerifyExpiry,
		VerifyIssuedAt: options.VerifyIssuedAt,
		VerifyIssuer:   options.VerifyIssuer,
		VerifyAudience: options.VerifyAudience,
	}
}

// AuthorizationServerMetadataURL is the issuer's RFC 8414 metadata document
// location, derived from the advertised server URL.
func (e *Entry) AuthorizationServerMetadataURL() string {
	base := e.AuthorizationServerURL
	if base == "" {
		base = e.Issuer
	}
	return strings.TrimRight(base, "/") + "/.well-known/oauth-authorization-server"
}

func checkAbsoluteURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must be absolute with an http or https scheme")
	}
	if parsed.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}
