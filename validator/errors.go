package validator

import "errors"

// Each validation failure maps to exactly one of these sentinels so callers
// can branch with errors.Is. The messages are safe to surface in a
// WWW-Authenticate challenge; anything wrapped around them is for logs only.
var (
	// ErrMalformedToken is returned when the token is not a structurally
	// valid JWS, or its payload is not a JWT claims set.
	ErrMalformedToken = errors.New("token is malformed")

	// ErrAlgorithmMismatch is returned when the token header declares a
	// signing algorithm other than the one configured for the issuer.
	// Tokens signed with "none" fail this check like any other mismatch.
	ErrAlgorithmMismatch = errors.New("token signing algorithm is not allowed")

	// ErrKeyResolution is returned when no verification key could be
	// obtained for the token's key id.
	ErrKeyResolution = errors.New("could not resolve token signing key")

	// ErrSignatureInvalid is returned when the signature does not verify
	// under the resolved key.
	ErrSignatureInvalid = errors.New("token signature is invalid")

	// ErrTokenExpired is returned when the exp claim is missing or in
	// the past.
	ErrTokenExpired = errors.New("token is expired")

	// ErrTokenNotYetValid is returned when the iat claim is missing or in
	// the future, or when an nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("token is not yet valid")

	// ErrIssuerMismatch is returned when the iss claim is not exactly the
	// configured issuer.
	ErrIssuerMismatch = errors.New("token issuer mismatch")

	// ErrAudienceMismatch is returned when the aud claim neither equals
	// nor contains the expected audience.
	ErrAudienceMismatch = errors.New("token audience mismatch")

	// ErrMissingSubject is returned when the sub claim is absent or empty.
	ErrMissingSubject = errors.New("token is missing a subject")
)
