package serverauth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ArcadeAI/mcp-server-auth/registry"
	"github.com/ArcadeAI/mcp-server-auth/validator"
)

// ErrTokenMissing is returned when a request carries no usable bearer
// token: the Authorization header is absent, uses another scheme, or is
// malformed.
var ErrTokenMissing = errors.New("a bearer token is required")

// ErrorHandler is called when a request is rejected. It owns the entire
// response. The err can be checked against ErrTokenMissing, the validator
// sentinels, and registry.ErrUnknownIssuer for specific cases. If you
// implement your own ErrorHandler you MUST keep token-derived detail out of
// response headers; only the error kind is safe to surface.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// NewChallengeErrorHandler builds the default error handler: every
// rejection is a 401 whose WWW-Authenticate challenge points clients at the
// protected resource metadata, per RFC 6750 and RFC 9728. A missing token
// gets the bare challenge; a failed validation adds error="invalid_token"
// and a short description.
//
// The description comes from a fixed set of sentinel messages. Wrapped
// detail, claim values, and key material never reach the header.
func NewChallengeErrorHandler(canonicalURL string) ErrorHandler {
	metadataURL := canonicalURL + ProtectedResourceMetadataPath

	return func(w http.ResponseWriter, r *http.Request, err error) {
		challenge := fmt.Sprintf("Bearer resource_metadata=%q", metadataURL)
		if description := challengeDescription(err); description != "" {
			challenge += fmt.Sprintf(", error=%q, error_description=%q", "invalid_token", description)
		}

		header := w.Header()
		header.Set("WWW-Authenticate", challenge)
		header.Set("Content-Type", "text/plain; charset=utf-8")

		// Browser-based MCP clients only see the challenge when CORS
		// exposes the WWW-Authenticate header.
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
		header.Set("Access-Control-Expose-Headers", "WWW-Authenticate, Mcp-Session-Id")

		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Unauthorized"))
	}
}

// challengeSentinels are the rejection kinds whose static messages may be
// quoted in a challenge. Order places the more specific kinds first.
var challengeSentinels = []error{
	registry.ErrUnknownIssuer,
	validator.ErrAlgorithmMismatch,
	validator.ErrKeyResolution,
	validator.ErrSignatureInvalid,
	validator.ErrTokenExpired,
	validator.ErrTokenNotYetValid,
	validator.ErrIssuerMismatch,
	validator.ErrAudienceMismatch,
	validator.ErrMissingSubject,
	validator.ErrMalformedToken,
}

// challengeDescription maps err to the token-independent description quoted
// in the WWW-Authenticate challenge. Missing-token errors yield "" for the
// bare discovery challenge; unrecognized errors fall back to a generic
// description rather than echoing err itself.
func challengeDescription(err error) string {
	if err == nil || errors.Is(err, ErrTokenMissing) {
		return ""
	}
	for _, sentinel := range challengeSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "token validation failed"
}
