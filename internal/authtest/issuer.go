// Package authtest provides an in-process authorization server for tests:
// an httptest endpoint serving a JWKS document plus helpers that mint
// tokens signed by the matching private key.
package authtest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"

	"github.com/ArcadeAI/mcp-server-auth/registry"
)

// JWKSPath is where the issuer publishes its signing keys.
const JWKSPath = "/.well-known/jwks.json"

// Issuer is a fake authorization server. Its URL doubles as the iss claim
// of every token it mints.
type Issuer struct {
	URL       string
	KeyID     string
	Algorithm string

	t      *testing.T
	server *httptest.Server

	mu         sync.RWMutex
	privateKey any
	method     jwt.SigningMethod
	keys       jwk.Set

	jwksHits     int32
	metadataHits int32
}

// New starts an issuer that signs with RS256. The server shuts down when
// the test ends.
func New(t *testing.T) *Issuer {
	t.Helper()
	return newIssuer(t, "RS256")
}

// NewEdDSA starts an issuer that signs with Ed25519.
func NewEdDSA(t *testing.T) *Issuer {
	t.Helper()
	return newIssuer(t, "EdDSA")
}

func newIssuer(t *testing.T, algorithm string) *Issuer {
	t.Helper()

	issuer := &Issuer{KeyID: "test-key-1", Algorithm: algorithm, t: t}
	issuer.installKey(issuer.KeyID)

	issuer.server = httptest.NewServer(http.HandlerFunc(issuer.serveHTTP))
	issuer.URL = issuer.server.URL
	t.Cleanup(issuer.server.Close)

	return issuer
}

func (i *Issuer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case JWKSPath:
		atomic.AddInt32(&i.jwksHits, 1)

		i.mu.RLock()
		keys := i.keys
		i.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keys)
	case "/.well-known/oauth-authorization-server":
		atomic.AddInt32(&i.metadataHits, 1)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 i.URL,
			"authorization_endpoint": i.URL + "/oauth2/authorize",
			"token_endpoint":         i.URL + "/oauth2/token",
			"jwks_uri":               i.URL + JWKSPath,
		})
	default:
		http.NotFound(w, r)
	}
}

// installKey generates a fresh signing key and publishes its public half
// under the given key id.
func (i *Issuer) installKey(keyID string) {
	i.t.Helper()

	var private any
	var public any
	var method jwt.SigningMethod
	var algorithm jwa.KeyAlgorithm

	switch i.Algorithm {
	case "RS256":
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(i.t, err)
		private, public = key, key.Public()
		method, algorithm = jwt.SigningMethodRS256, jwa.RS256
	case "EdDSA":
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(i.t, err)
		private, public = priv, pub
		method, algorithm = jwt.SigningMethodEdDSA, jwa.EdDSA
	default:
		i.t.Fatalf("authtest does not support algorithm %q", i.Algorithm)
	}

	jwkKey, err := jwk.FromRaw(public)
	require.NoError(i.t, err)
	require.NoError(i.t, jwkKey.Set(jwk.KeyIDKey, keyID))
	require.NoError(i.t, jwkKey.Set(jwk.AlgorithmKey, algorithm))

	keys := jwk.NewSet()
	require.NoError(i.t, keys.AddKey(jwkKey))

	i.mu.Lock()
	i.privateKey = private
	i.method = method
	i.keys = keys
	i.KeyID = keyID
	i.mu.Unlock()
}

// Rotate replaces the signing key under a new key id, the way a real
// authorization server rolls keys over. Previously minted tokens no longer
// verify.
func (i *Issuer) Rotate(keyID string) {
	i.t.Helper()
	i.installKey(keyID)
}

// Claims returns a claim set that validates against this issuer for the
// given audience. Tests override individual claims per case.
func (i *Issuer) Claims(audience string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":       i.URL,
		"aud":       audience,
		"sub":       "user_42",
		"email":     "user42@example.com",
		"client_id": "client-1",
		"exp":       now.Add(time.Hour).Unix(),
		"iat":       now.Add(-time.Minute).Unix(),
	}
}

// Sign mints a token under the issuer's current key.
func (i *Issuer) Sign(claims jwt.MapClaims) string {
	i.t.Helper()
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mint(i.method, i.privateKey, i.KeyID, claims)
}

// SignWithKeyID mints a token whose header names the given key id. An
// unpublished key id drives the key cache down its forced-refresh path.
func (i *Issuer) SignWithKeyID(keyID string, claims jwt.MapClaims) string {
	i.t.Helper()
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mint(i.method, i.privateKey, keyID, claims)
}

// SignHS256 mints a shared-secret token. Resource servers must refuse
// these before touching any key material.
func (i *Issuer) SignHS256(claims jwt.MapClaims) string {
	i.t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = i.KeyID
	signed, err := token.SignedString([]byte("shared-secret"))
	require.NoError(i.t, err)
	return signed
}

// SignNone mints an unsigned token with alg "none".
func (i *Issuer) SignNone(claims jwt.MapClaims) string {
	i.t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(i.t, err)
	return signed
}

func (i *Issuer) mint(method jwt.SigningMethod, key any, keyID string, claims jwt.MapClaims) string {
	i.t.Helper()
	token := jwt.NewWithClaims(method, claims)
	if keyID != "" {
		token.Header["kid"] = keyID
	}
	signed, err := token.SignedString(key)
	require.NoError(i.t, err)
	return signed
}

// Entry returns the registry entry a resource server would configure for
// this issuer.
func (i *Issuer) Entry() registry.Entry {
	return registry.Entry{
		Issuer:    i.URL,
		JWKSURI:   i.URL + JWKSPath,
		Algorithm: i.Algorithm,
	}
}

// JWKSRequests reports how many times the JWKS document was fetched.
func (i *Issuer) JWKSRequests() int32 {
	return atomic.LoadInt32(&i.jwksHits)
}

// MetadataRequests reports how many times the authorization server
// metadata document was fetched.
func (i *Issuer) MetadataRequests() int32 {
	return atomic.LoadInt32(&i.metadataHits)
}

// MetadataURL is where the issuer serves its authorization server
// metadata.
func (i *Issuer) MetadataURL() string {
	return i.URL + "/.well-known/oauth-authorization-server"
}
