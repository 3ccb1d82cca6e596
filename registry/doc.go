// Package registry holds the set of authorization servers a resource server
// trusts. Each entry pins one issuer to its JWKS endpoint, signature
// algorithm, and claim-validation flags; the registry resolves an incoming
// token's iss claim to its entry by exact string match.
//
// A registry is immutable after construction. Configuration problems, such
// as duplicate issuers or a partial environment, surface as
// ErrInvalidConfiguration before any request is served.
package registry
