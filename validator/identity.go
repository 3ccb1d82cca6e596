package validator

// Identity is the authenticated principal extracted from a valid token.
// It is what downstream handlers see; the raw token never travels past
// the validator.
type Identity struct {
	// UserID is the token's sub claim. Never empty.
	UserID string

	// Email is the email claim, if the authorization server included one.
	Email string

	// ClientID is the OAuth client the token was issued to, taken from
	// the client_id claim or, failing that, azp. Empty when the token
	// carries neither.
	ClientID string

	// Issuer is the configured issuer the token was validated against.
	Issuer string

	// Claims holds the full decoded claims set for callers that need
	// claims beyond the promoted fields.
	Claims map[string]interface{}
}

func stringClaim(claims map[string]interface{}, name string) string {
	value, ok := claims[name].(string)
	if !ok {
		return ""
	}
	return value
}

func firstStringClaim(claims map[string]interface{}, names ...string) string {
	for _, name := range names {
		if value := stringClaim(claims, name); value != "" {
			return value
		}
	}
	return ""
}
