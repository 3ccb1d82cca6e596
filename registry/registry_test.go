package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArcadeAI/mcp-server-auth/validator"
)

func validEntry() Entry {
	return Entry{
		Issuer:  "https://auth.example.com",
		JWKSURI: "https://auth.example.com/.well-known/jwks.json",
	}
}

func Test_New(t *testing.T) {
	t.Run("it applies defaults to a minimal entry", func(t *testing.T) {
		registry, err := New([]Entry{validEntry()})
		require.NoError(t, err)

		entry, err := registry.Resolve("https://auth.example.com")
		require.NoError(t, err)

		assert.Equal(t, "https://auth.example.com", entry.AuthorizationServerURL)
		assert.Equal(t, string(validator.RS256), entry.Algorithm)
		require.NotNil(t, entry.ValidationOptions)
		assert.True(t, entry.ValidationOptions.VerifyAudience)
		assert.True(t, entry.ValidationOptions.VerifyExpiry)
		assert.True(t, entry.ValidationOptions.VerifyIssuedAt)
		assert.True(t, entry.ValidationOptions.VerifyIssuer)
	})

	t.Run("it rejects an empty entry list", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("it rejects two entries sharing an issuer", func(t *testing.T) {
		first := validEntry()
		second := validEntry()
		second.JWKSURI = "https://auth.example.com/other/jwks.json"

		_, err := New([]Entry{first, second})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.ErrorContains(t, err, "duplicate issuer")
	})

	invalidCases := []struct {
		name   string
		mutate func(*Entry)
	}{
		{name: "missing issuer", mutate: func(e *Entry) { e.Issuer = "" }},
		{name: "relative issuer", mutate: func(e *Entry) { e.Issuer = "auth.example.com" }},
		{name: "missing jwks_uri", mutate: func(e *Entry) { e.JWKSURI = "" }},
		{name: "relative jwks_uri", mutate: func(e *Entry) { e.JWKSURI = "/jwks.json" }},
		{name: "ftp authorization server url", mutate: func(e *Entry) { e.AuthorizationServerURL = "ftp://auth.example.com" }},
		{name: "shared-secret algorithm", mutate: func(e *Entry) { e.Algorithm = "HS256" }},
		{name: "none algorithm", mutate: func(e *Entry) { e.Algorithm = "none" }},
		{name: "unknown algorithm", mutate: func(e *Entry) { e.Algorithm = "RS2048" }},
	}

	for _, testCase := range invalidCases {
		t.Run("it rejects an entry with a "+testCase.name, func(t *testing.T) {
			entry := validEntry()
			testCase.mutate(&entry)

			_, err := New([]Entry{entry})
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func Test_Resolve(t *testing.T) {
	registry, err := New([]Entry{
		{
			Issuer:  "https://auth.example.com",
			JWKSURI: "https://auth.example.com/jwks.json",
		},
		{
			Issuer:  "https://auth.example.com/tenant-b",
			JWKSURI: "https://auth.example.com/tenant-b/jwks.json",
		},
	})
	require.NoError(t, err)

	t.Run("it resolves an exactly matching issuer", func(t *testing.T) {
		entry, err := registry.Resolve("https://auth.example.com/tenant-b")
		require.NoError(t, err)
		assert.Equal(t, "https://auth.example.com/tenant-b/jwks.json", entry.JWKSURI)
	})

	// Anything short of exact string equality must fail, otherwise a
	// hostile issuer could shadow a trusted one.
	confusables := []string{
		"https://auth.example.com/",
		"https://auth.example.com.evil.com",
		"https://AUTH.EXAMPLE.COM",
		"http://auth.example.com",
		"https://auth.example.co",
		"auth.example.com",
		"",
	}
	for _, issuer := range confusables {
		t.Run("it rejects near-miss issuer "+issuer, func(t *testing.T) {
			_, err := registry.Resolve(issuer)
			assert.ErrorIs(t, err, ErrUnknownIssuer)
		})
	}

	t.Run("it hands out copies that cannot mutate the registry", func(t *testing.T) {
		entry, err := registry.Resolve("https://auth.example.com")
		require.NoError(t, err)

		entry.JWKSURI = "https://tampered.example.com/jwks.json"
		entry.ValidationOptions.VerifyAudience = false

		fresh, err := registry.Resolve("https://auth.example.com")
		require.NoError(t, err)
		assert.Equal(t, "https://auth.example.com/jwks.json", fresh.JWKSURI)
		assert.True(t, fresh.ValidationOptions.VerifyAudience)
	})
}

func Test_Entries(t *testing.T) {
	t.Run("it preserves the configured order", func(t *testing.T) {
		registry, err := New([]Entry{
			{Issuer: "https://first.example.com", JWKSURI: "https://first.example.com/jwks.json"},
			{Issuer: "https://second.example.com", JWKSURI: "https://second.example.com/jwks.json"},
			{Issuer: "https://third.example.com", JWKSURI: "https://third.example.com/jwks.json"},
		})
		require.NoError(t, err)

		var issuers []string
		for _, entry := range registry.Entries() {
			issuers = append(issuers, entry.Issuer)
		}
		assert.Equal(t, []string{
			"https://first.example.com",
			"https://second.example.com",
			"https://third.example.com",
		}, issuers)
	})
}
