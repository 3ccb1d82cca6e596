package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// KeyProvider resolves the verification key a token was signed with.
// Implementations are expected to cache; the validator calls GetKey on
// every token.
type KeyProvider interface {
	GetKey(ctx context.Context, jwksURI, keyID string) (jwk.Key, error)
}

// Validator checks bearer tokens against per-issuer policies. It is
// immutable after construction and safe for concurrent use.
type Validator struct {
	keys      KeyProvider
	clockSkew time.Duration
	clock     func() time.Time
}

// DefaultClockSkew is the leeway applied to exp, nbf and iat comparisons
// when WithClockSkew is not given.
const DefaultClockSkew = 30 * time.Second

// New sets up a Validator on top of a key provider.
func New(keys KeyProvider, opts ...Option) (*Validator, error) {
	if keys == nil {
		return nil, errors.New("key provider is required but was nil")
	}

	v := &Validator{
		keys:      keys,
		clockSkew: DefaultClockSkew,
		clock:     time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return v, nil
}

// Validate verifies rawToken under policy and returns the identity it
// asserts. The checks run in a fixed order and the first failure wins, so
// a token with several defects is always reported with the same error.
func (v *Validator) Validate(ctx context.Context, rawToken string, policy Policy) (*Identity, error) {
	if !allowedSigningAlgorithms[policy.Algorithm] {
		return nil, fmt.Errorf("unsupported signature algorithm %q", policy.Algorithm)
	}

	message, err := jws.Parse([]byte(rawToken))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return nil, fmt.Errorf("%w: no signature", ErrMalformedToken)
	}
	headers := signatures[0].ProtectedHeaders()

	// The header algorithm must match the policy exactly before any key
	// material is touched. This is what rules out "none" and keeps an
	// HS256 token from ever meeting an RSA public key.
	algorithm := headers.Algorithm()
	if string(algorithm) != string(policy.Algorithm) {
		return nil, fmt.Errorf("%w: expected %q but token specified %q", ErrAlgorithmMismatch, policy.Algorithm, algorithm)
	}

	keyID := headers.KeyID()
	if keyID == "" {
		return nil, fmt.Errorf("%w: token header has no key id", ErrKeyResolution)
	}
	key, err := v.keys.GetKey(ctx, policy.JWKSURI, keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyResolution, err)
	}
	if keyAlgorithm := key.Algorithm(); keyAlgorithm != nil && keyAlgorithm.String() != "" && keyAlgorithm.String() != string(algorithm) {
		return nil, fmt.Errorf("%w: signing key is bound to %q", ErrAlgorithmMismatch, keyAlgorithm.String())
	}

	if _, err := jws.Verify([]byte(rawToken), jws.WithKey(algorithm, key)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	token, err := jwt.ParseInsecure([]byte(rawToken))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if err := v.validateClaims(token, policy); err != nil {
		return nil, err
	}

	claims, err := token.AsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return &Identity{
		UserID:   token.Subject(),
		Email:    stringClaim(claims, "email"),
		ClientID: firstStringClaim(claims, "client_id", "azp"),
		Issuer:   policy.Issuer,
		Claims:   claims,
	}, nil
}

func (v *Validator) validateClaims(token jwt.Token, policy Policy) error {
	now := v.clock()

	if policy.VerifyExpiry {
		if _, ok := token.Get(jwt.ExpirationKey); !ok {
			return fmt.Errorf("%w: token has no expiration", ErrTokenExpired)
		}
		if !now.Before(token.Expiration().Add(v.clockSkew)) {
			return ErrTokenExpired
		}
	}

	if _, ok := token.Get(jwt.NotBeforeKey); ok {
		if now.Add(v.clockSkew).Before(token.NotBefore()) {
			return fmt.Errorf("%w: not-before time is in the future", ErrTokenNotYetValid)
		}
	}

	if policy.VerifyIssuedAt {
		if _, ok := token.Get(jwt.IssuedAtKey); !ok {
			return fmt.Errorf("%w: token has no issued-at time", ErrTokenNotYetValid)
		}
		if now.Add(v.clockSkew).Before(token.IssuedAt()) {
			return fmt.Errorf("%w: issued-at time is in the future", ErrTokenNotYetValid)
		}
	}

	if policy.VerifyIssuer && token.Issuer() != policy.Issuer {
		return fmt.Errorf("%w: token issued by %q", ErrIssuerMismatch, token.Issuer())
	}

	if policy.VerifyAudience && !containsAudience(token.Audience(), policy.Audience) {
		return ErrAudienceMismatch
	}

	if token.Subject() == "" {
		return ErrMissingSubject
	}

	return nil
}

func containsAudience(audiences []string, expected string) bool {
	for _, audience := range audiences {
		if audience == expected {
			return true
		}
	}
	return false
}
