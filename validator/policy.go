package validator

import "fmt"

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

// Signature algorithms. Only asymmetric algorithms are supported: tokens
// are verified against published JWK sets, and shared-secret algorithms
// have no place in that flow.
const (
	EdDSA SignatureAlgorithm = "EdDSA"
	ES256 SignatureAlgorithm = "ES256" // ECDSA using P-256 and SHA-256
	ES384 SignatureAlgorithm = "ES384" // ECDSA using P-384 and SHA-384
	ES512 SignatureAlgorithm = "ES512" // ECDSA using P-521 and SHA-512
	PS256 SignatureAlgorithm = "PS256" // RSASSA-PSS using SHA-256 and MGF1 with SHA-256
	PS384 SignatureAlgorithm = "PS384" // RSASSA-PSS using SHA-384 and MGF1 with SHA-384
	PS512 SignatureAlgorithm = "PS512" // RSASSA-PSS using SHA-512 and MGF1 with SHA-512
	RS256 SignatureAlgorithm = "RS256" // RSASSA-PKCS-v1.5 using SHA-256
	RS384 SignatureAlgorithm = "RS384" // RSASSA-PKCS-v1.5 using SHA-384
	RS512 SignatureAlgorithm = "RS512" // RSASSA-PKCS-v1.5 using SHA-512
)

var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	EdDSA: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
	RS256: true,
	RS384: true,
	RS512: true,
}

// ParseAlgorithm converts a configured algorithm name into a
// SignatureAlgorithm. "Ed25519" is accepted as an alias for EdDSA.
func ParseAlgorithm(name string) (SignatureAlgorithm, error) {
	if name == "Ed25519" {
		return EdDSA, nil
	}
	algorithm := SignatureAlgorithm(name)
	if !allowedSigningAlgorithms[algorithm] {
		return "", fmt.Errorf("unsupported signature algorithm %q", name)
	}
	return algorithm, nil
}

// Policy describes how tokens from one authorization server are verified.
// The zero value is not usable; policies come from a registry entry.
type Policy struct {
	// Issuer is the exact iss value tokens must carry.
	Issuer string

	// JWKSURI is where the issuer publishes its verification keys.
	JWKSURI string

	// Algorithm is the only signing algorithm accepted from this issuer.
	Algorithm SignatureAlgorithm

	// Audience is the identifier tokens must be bound to, typically the
	// resource server's canonical URL.
	Audience string

	// VerifyExpiry, VerifyIssuedAt, VerifyIssuer and VerifyAudience turn
	// individual claim checks off. They exist for test realms and broken
	// authorization servers; production policies leave all four on.
	VerifyExpiry   bool
	VerifyIssuedAt bool
	VerifyIssuer   bool
	VerifyAudience bool
}
