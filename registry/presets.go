package registry

import (
	"fmt"
	"strings"

	"github.com/ArcadeAI/mcp-server-auth/validator"
)

// Vendor tags understood by Preset.
const (
	VendorAuthKit = "authkit"
	VendorAuth0   = "auth0"
	VendorArcade  = "arcade"
)

// Arcade Cloud's intermediate authorization server signs MCP access tokens
// with Ed25519 and binds them to a URN audience rather than the resource
// URL.
const (
	arcadeIssuer   = "https://cloud.arcade.dev/oauth2"
	arcadeJWKSURI  = "https://cloud.arcade.dev/.well-known/jwks/oauth2"
	arcadeAudience = "urn:arcade:mcp"
)

// AuthKit returns the entry for a WorkOS AuthKit domain. AuthKit does not
// implement RFC 8707 resource indicators, so its tokens carry no usable aud
// claim and the audience check is off. Metadata forwarding is on so clients
// that only discover through the resource server can still find the AS.
func AuthKit(domain string) Entry {
	domain = normalizeDomain(domain)
	options := DefaultValidationOptions()
	options.VerifyAudience = false

	return Entry{
		AuthorizationServerURL:    domain,
		Issuer:                    domain,
		JWKSURI:                   domain + "/oauth2/jwks",
		Algorithm:                 string(validator.RS256),
		ForwardAuthServerMetadata: true,
		ValidationOptions:         options,
	}
}

// Auth0 returns the entry for an Auth0 tenant domain. Auth0 issuers carry a
// trailing slash, and the JWKS document lives under the issuer.
func Auth0(domain string) Entry {
	issuer := normalizeDomain(domain) + "/"

	return Entry{
		AuthorizationServerURL: strings.TrimRight(issuer, "/"),
		Issuer:                 issuer,
		JWKSURI:                issuer + ".well-known/jwks.json",
		Algorithm:              string(validator.RS256),
	}
}

// Arcade returns the entry for the Arcade Cloud intermediate authorization
// server.
func Arcade() Entry {
	return Entry{
		AuthorizationServerURL: arcadeIssuer,
		Issuer:                 arcadeIssuer,
		JWKSURI:                arcadeJWKSURI,
		Algorithm:              string(validator.EdDSA),
		Audience:               arcadeAudience,
	}
}

// Preset builds the entry for a known vendor tag. The base argument is the
// vendor's domain where one is needed; Arcade ignores it.
func Preset(vendor, base string) (Entry, error) {
	switch strings.ToLower(vendor) {
	case VendorAuthKit:
		return AuthKit(base), nil
	case VendorAuth0:
		return Auth0(base), nil
	case VendorArcade:
		return Arcade(), nil
	}
	return Entry{}, fmt.Errorf("%w: unknown authorization server vendor %q", ErrInvalidConfiguration, vendor)
}

// normalizeDomain accepts either a bare domain or a full URL and returns an
// https URL without a trailing slash.
func normalizeDomain(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if domain == "" {
		return domain
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return domain
}
