package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArcadeAI/mcp-server-auth/validator"
)

func Test_AuthKit(t *testing.T) {
	t.Run("it derives the AuthKit endpoints from the domain", func(t *testing.T) {
		entry := AuthKit("https://ruling-sun-12.authkit.app")

		assert.Equal(t, "https://ruling-sun-12.authkit.app", entry.Issuer)
		assert.Equal(t, "https://ruling-sun-12.authkit.app", entry.AuthorizationServerURL)
		assert.Equal(t, "https://ruling-sun-12.authkit.app/oauth2/jwks", entry.JWKSURI)
		assert.Equal(t, string(validator.RS256), entry.Algorithm)
		assert.True(t, entry.ForwardAuthServerMetadata)
	})

	t.Run("it switches off the audience check only", func(t *testing.T) {
		entry := AuthKit("https://ruling-sun-12.authkit.app")

		require.NotNil(t, entry.ValidationOptions)
		assert.False(t, entry.ValidationOptions.VerifyAudience)
		assert.True(t, entry.ValidationOptions.VerifyExpiry)
		assert.True(t, entry.ValidationOptions.VerifyIssuedAt)
		assert.True(t, entry.ValidationOptions.VerifyIssuer)
	})

	t.Run("it accepts a bare domain and a trailing slash", func(t *testing.T) {
		entry := AuthKit("ruling-sun-12.authkit.app/")
		assert.Equal(t, "https://ruling-sun-12.authkit.app", entry.Issuer)
	})
}

func Test_Auth0(t *testing.T) {
	t.Run("it derives the tenant endpoints from the domain", func(t *testing.T) {
		entry := Auth0("example.us.auth0.com")

		assert.Equal(t, "https://example.us.auth0.com/", entry.Issuer)
		assert.Equal(t, "https://example.us.auth0.com", entry.AuthorizationServerURL)
		assert.Equal(t, "https://example.us.auth0.com/.well-known/jwks.json", entry.JWKSURI)
		assert.Equal(t, string(validator.RS256), entry.Algorithm)
		assert.False(t, entry.ForwardAuthServerMetadata)
	})
}

func Test_Arcade(t *testing.T) {
	entry := Arcade()

	assert.Equal(t, "https://cloud.arcade.dev/oauth2", entry.Issuer)
	assert.Equal(t, "https://cloud.arcade.dev/.well-known/jwks/oauth2", entry.JWKSURI)
	assert.Equal(t, string(validator.EdDSA), entry.Algorithm)
	assert.Equal(t, "urn:arcade:mcp", entry.Audience)
}

func Test_Preset(t *testing.T) {
	t.Run("it dispatches on the vendor tag case-insensitively", func(t *testing.T) {
		entry, err := Preset("AuthKit", "https://tenant.authkit.app")
		require.NoError(t, err)
		assert.Equal(t, "https://tenant.authkit.app/oauth2/jwks", entry.JWKSURI)

		entry, err = Preset("ARCADE", "")
		require.NoError(t, err)
		assert.Equal(t, "urn:arcade:mcp", entry.Audience)
	})

	t.Run("it rejects an unknown vendor", func(t *testing.T) {
		_, err := Preset("okta", "https://tenant.okta.com")
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}

func Test_Presets_ComposeIntoARegistry(t *testing.T) {
	registry, err := New([]Entry{
		AuthKit("https://tenant.authkit.app"),
		Auth0("example.us.auth0.com"),
		Arcade(),
	})
	require.NoError(t, err)

	t.Run("AuthKit tokens skip only the audience check", func(t *testing.T) {
		entry, err := registry.Resolve("https://tenant.authkit.app")
		require.NoError(t, err)

		policy := entry.Policy("https://mcp.example.com")
		assert.False(t, policy.VerifyAudience)
		assert.True(t, policy.VerifyExpiry)
	})

	t.Run("Arcade tokens are bound to the URN audience", func(t *testing.T) {
		entry, err := registry.Resolve("https://cloud.arcade.dev/oauth2")
		require.NoError(t, err)

		policy := entry.Policy("https://mcp.example.com")
		assert.Equal(t, "urn:arcade:mcp", policy.Audience)
		assert.Equal(t, validator.EdDSA, policy.Algorithm)
	})
}
