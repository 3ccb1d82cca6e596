package validator

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://auth.example.com"
	testJWKSURI  = "https://auth.example.com/.well-known/jwks.json"
	testAudience = "https://mcp.example.com"
	testKeyID    = "key-1"
)

// staticKeyProvider serves keys from an in-memory set and counts lookups so
// tests can assert when no key material was ever touched.
type staticKeyProvider struct {
	set   jwk.Set
	err   error
	calls int32
}

func (p *staticKeyProvider) GetKey(_ context.Context, _, keyID string) (jwk.Key, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	key, ok := p.set.LookupKeyID(keyID)
	if !ok {
		return nil, errors.New("key not found")
	}
	return key, nil
}

func (p *staticKeyProvider) lookups() int32 {
	return atomic.LoadInt32(&p.calls)
}

func keySetFromRaw(t *testing.T, raw any, keyID string, alg jwa.KeyAlgorithm) jwk.Set {
	t.Helper()

	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, keyID))
	if alg != nil {
		require.NoError(t, key.Set(jwk.AlgorithmKey, alg))
	}

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(key))
	return set
}

func signRS256(t *testing.T, key *rsa.PrivateKey, keyID string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if keyID != "" {
		token.Header["kid"] = keyID
	}
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func testPolicy() Policy {
	return Policy{
		Issuer:         testIssuer,
		JWKSURI:        testJWKSURI,
		Algorithm:      RS256,
		Audience:       testAudience,
		VerifyExpiry:   true,
		VerifyIssuedAt: true,
		VerifyIssuer:   true,
		VerifyAudience: true,
	}
}

func validClaims(now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":       testIssuer,
		"aud":       testAudience,
		"sub":       "user_42",
		"email":     "user42@example.com",
		"client_id": "client-1",
		"scope":     "tools:read",
		"exp":       now.Add(time.Hour).Unix(),
		"iat":       now.Add(-time.Minute).Unix(),
	}
}

func Test_Validate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	newValidator := func(t *testing.T) (*Validator, *staticKeyProvider) {
		t.Helper()
		provider := &staticKeyProvider{set: keySetFromRaw(t, rsaKey.Public(), testKeyID, jwa.RS256)}
		v, err := New(provider, WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		return v, provider
	}

	t.Run("it returns the identity asserted by a valid token", func(t *testing.T) {
		v, _ := newValidator(t)

		identity, err := v.Validate(ctx, signRS256(t, rsaKey, testKeyID, validClaims(now)), testPolicy())
		require.NoError(t, err)

		assert.Equal(t, "user_42", identity.UserID)
		assert.Equal(t, "user42@example.com", identity.Email)
		assert.Equal(t, "client-1", identity.ClientID)
		assert.Equal(t, testIssuer, identity.Issuer)
		assert.Equal(t, "tools:read", identity.Claims["scope"])
	})

	t.Run("it falls back to azp for the client id", func(t *testing.T) {
		v, _ := newValidator(t)

		claims := validClaims(now)
		delete(claims, "client_id")
		claims["azp"] = "authorized-party"

		identity, err := v.Validate(ctx, signRS256(t, rsaKey, testKeyID, claims), testPolicy())
		require.NoError(t, err)
		assert.Equal(t, "authorized-party", identity.ClientID)
	})

	t.Run("it leaves email and client id empty when the claims are absent", func(t *testing.T) {
		v, _ := newValidator(t)

		claims := validClaims(now)
		delete(claims, "email")
		delete(claims, "client_id")

		identity, err := v.Validate(ctx, signRS256(t, rsaKey, testKeyID, claims), testPolicy())
		require.NoError(t, err)
		assert.Empty(t, identity.Email)
		assert.Empty(t, identity.ClientID)
	})

	t.Run("it accepts an audience list containing the expected audience", func(t *testing.T) {
		v, _ := newValidator(t)

		claims := validClaims(now)
		claims["aud"] = []string{"https://other.example.com", testAudience}

		identity, err := v.Validate(ctx, signRS256(t, rsaKey, testKeyID, claims), testPolicy())
		require.NoError(t, err)
		assert.Equal(t, "user_42", identity.UserID)
	})

	claimCases := []struct {
		name    string
		mutate  func(jwt.MapClaims)
		policy  func(*Policy)
		wantErr error
	}{
		{
			name:    "expired token",
			mutate:  func(c jwt.MapClaims) { c["exp"] = now.Add(-2 * time.Minute).Unix() },
			wantErr: ErrTokenExpired,
		},
		{
			name:    "missing expiration",
			mutate:  func(c jwt.MapClaims) { delete(c, "exp") },
			wantErr: ErrTokenExpired,
		},
		{
			name:    "issued in the future",
			mutate:  func(c jwt.MapClaims) { c["iat"] = now.Add(10 * time.Minute).Unix() },
			wantErr: ErrTokenNotYetValid,
		},
		{
			name:    "missing issued-at",
			mutate:  func(c jwt.MapClaims) { delete(c, "iat") },
			wantErr: ErrTokenNotYetValid,
		},
		{
			name:    "not-before in the future",
			mutate:  func(c jwt.MapClaims) { c["nbf"] = now.Add(10 * time.Minute).Unix() },
			wantErr: ErrTokenNotYetValid,
		},
		{
			name:    "wrong issuer",
			mutate:  func(c jwt.MapClaims) { c["iss"] = "https://impostor.example.com" },
			wantErr: ErrIssuerMismatch,
		},
		{
			name:    "wrong audience",
			mutate:  func(c jwt.MapClaims) { c["aud"] = "https://other-service.com" },
			wantErr: ErrAudienceMismatch,
		},
		{
			name:    "missing audience",
			mutate:  func(c jwt.MapClaims) { delete(c, "aud") },
			wantErr: ErrAudienceMismatch,
		},
		{
			name:    "missing subject",
			mutate:  func(c jwt.MapClaims) { delete(c, "sub") },
			wantErr: ErrMissingSubject,
		},
		{
			name:    "empty subject",
			mutate:  func(c jwt.MapClaims) { c["sub"] = "" },
			wantErr: ErrMissingSubject,
		},
		{
			name:   "expiry within clock skew",
			mutate: func(c jwt.MapClaims) { c["exp"] = now.Add(-10 * time.Second).Unix() },
		},
		{
			name:   "issued-at within clock skew",
			mutate: func(c jwt.MapClaims) { c["iat"] = now.Add(10 * time.Second).Unix() },
		},
		{
			name:   "not-before in the past",
			mutate: func(c jwt.MapClaims) { c["nbf"] = now.Add(-time.Minute).Unix() },
		},
		{
			name:   "expired token accepted when expiry checking is off",
			mutate: func(c jwt.MapClaims) { c["exp"] = now.Add(-2 * time.Minute).Unix() },
			policy: func(p *Policy) { p.VerifyExpiry = false },
		},
		{
			name:   "missing issued-at accepted when issued-at checking is off",
			mutate: func(c jwt.MapClaims) { delete(c, "iat") },
			policy: func(p *Policy) { p.VerifyIssuedAt = false },
		},
		{
			name:   "foreign issuer accepted when issuer checking is off",
			mutate: func(c jwt.MapClaims) { c["iss"] = "https://impostor.example.com" },
			policy: func(p *Policy) { p.VerifyIssuer = false },
		},
		{
			name:   "missing audience accepted when audience checking is off",
			mutate: func(c jwt.MapClaims) { delete(c, "aud") },
			policy: func(p *Policy) { p.VerifyAudience = false },
		},
	}

	for _, testCase := range claimCases {
		t.Run("claims: "+testCase.name, func(t *testing.T) {
			v, _ := newValidator(t)

			claims := validClaims(now)
			testCase.mutate(claims)

			policy := testPolicy()
			if testCase.policy != nil {
				testCase.policy(&policy)
			}

			identity, err := v.Validate(ctx, signRS256(t, rsaKey, testKeyID, claims), policy)
			if testCase.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, testCase.wantErr)
				assert.Nil(t, identity)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, identity)
		})
	}

	t.Run("it rejects garbage before touching any key material", func(t *testing.T) {
		v, provider := newValidator(t)

		for _, raw := range []string{"", "garbage", "one.two", "!!.!!.!!"} {
			_, err := v.Validate(ctx, raw, testPolicy())
			assert.ErrorIs(t, err, ErrMalformedToken, "token %q", raw)
		}
		assert.EqualValues(t, 0, provider.lookups())
	})

	t.Run("it rejects an HS256 token before any key lookup", func(t *testing.T) {
		v, provider := newValidator(t)

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(now))
		signed, err := token.SignedString([]byte("shared-secret"))
		require.NoError(t, err)

		_, err = v.Validate(ctx, signed, testPolicy())
		assert.ErrorIs(t, err, ErrAlgorithmMismatch)
		assert.EqualValues(t, 0, provider.lookups())
	})

	t.Run("it rejects an unsigned none token", func(t *testing.T) {
		v, provider := newValidator(t)

		token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(now))
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.Validate(ctx, signed, testPolicy())
		assert.ErrorIs(t, err, ErrAlgorithmMismatch)
		assert.EqualValues(t, 0, provider.lookups())
	})

	t.Run("it rejects a token without a key id", func(t *testing.T) {
		v, provider := newValidator(t)

		_, err := v.Validate(ctx, signRS256(t, rsaKey, "", validClaims(now)), testPolicy())
		assert.ErrorIs(t, err, ErrKeyResolution)
		assert.EqualValues(t, 0, provider.lookups())
	})

	t.Run("it wraps key provider failures", func(t *testing.T) {
		provider := &staticKeyProvider{err: errors.New("jwks endpoint unreachable")}
		v, err := New(provider, WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		_, err = v.Validate(ctx, signRS256(t, rsaKey, testKeyID, validClaims(now)), testPolicy())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrKeyResolution)
		assert.ErrorContains(t, err, "jwks endpoint unreachable")
	})

	t.Run("it rejects a key bound to a different algorithm", func(t *testing.T) {
		provider := &staticKeyProvider{set: keySetFromRaw(t, rsaKey.Public(), testKeyID, jwa.RS512)}
		v, err := New(provider, WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		_, err = v.Validate(ctx, signRS256(t, rsaKey, testKeyID, validClaims(now)), testPolicy())
		assert.ErrorIs(t, err, ErrAlgorithmMismatch)
	})

	t.Run("it rejects a signature made with another key", func(t *testing.T) {
		v, _ := newValidator(t)

		otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		_, err = v.Validate(ctx, signRS256(t, otherKey, testKeyID, validClaims(now)), testPolicy())
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("it verifies EdDSA tokens", func(t *testing.T) {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		provider := &staticKeyProvider{set: keySetFromRaw(t, pub, testKeyID, jwa.EdDSA)}
		v, err := New(provider, WithClock(func() time.Time { return now }))
		require.NoError(t, err)

		claims := validClaims(now)
		claims["aud"] = "urn:arcade:mcp"
		token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
		token.Header["kid"] = testKeyID
		signed, err := token.SignedString(priv)
		require.NoError(t, err)

		policy := testPolicy()
		policy.Algorithm = EdDSA
		policy.Audience = "urn:arcade:mcp"

		identity, err := v.Validate(ctx, signed, policy)
		require.NoError(t, err)
		assert.Equal(t, "user_42", identity.UserID)
	})

	t.Run("it rejects a policy with an unsupported algorithm", func(t *testing.T) {
		v, provider := newValidator(t)

		policy := testPolicy()
		policy.Algorithm = "HS256"

		_, err := v.Validate(ctx, signRS256(t, rsaKey, testKeyID, validClaims(now)), policy)
		require.Error(t, err)
		assert.ErrorContains(t, err, "unsupported signature algorithm")
		assert.EqualValues(t, 0, provider.lookups())
	})

	t.Run("repeated validation of the same token is deterministic", func(t *testing.T) {
		v, _ := newValidator(t)
		signed := signRS256(t, rsaKey, testKeyID, validClaims(now))

		first, err := v.Validate(ctx, signed, testPolicy())
		require.NoError(t, err)
		second, err := v.Validate(ctx, signed, testPolicy())
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func Test_ParseAlgorithm(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    SignatureAlgorithm
		wantErr bool
	}{
		{name: "RS256", input: "RS256", want: RS256},
		{name: "ES384", input: "ES384", want: ES384},
		{name: "EdDSA", input: "EdDSA", want: EdDSA},
		{name: "Ed25519 alias", input: "Ed25519", want: EdDSA},
		{name: "shared-secret algorithms are not allowed", input: "HS256", wantErr: true},
		{name: "none is not allowed", input: "none", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := ParseAlgorithm(testCase.input)
			if testCase.wantErr {
				require.Error(t, err)
				assert.ErrorContains(t, err, "unsupported signature algorithm")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.want, got)
		})
	}
}

func Test_ValidatorOptions(t *testing.T) {
	provider := &staticKeyProvider{set: jwk.NewSet()}

	t.Run("it requires a key provider", func(t *testing.T) {
		_, err := New(nil)
		require.Error(t, err)
		assert.ErrorContains(t, err, "key provider is required")
	})

	t.Run("it rejects a negative clock skew", func(t *testing.T) {
		_, err := New(provider, WithClockSkew(-time.Second))
		require.Error(t, err)
		assert.ErrorContains(t, err, "clock skew must not be negative")
	})

	t.Run("it rejects a nil clock", func(t *testing.T) {
		_, err := New(provider, WithClock(nil))
		require.Error(t, err)
		assert.ErrorContains(t, err, "clock must not be nil")
	})

	t.Run("it applies a custom clock skew", func(t *testing.T) {
		v, err := New(provider, WithClockSkew(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, v.clockSkew)
	})
}
