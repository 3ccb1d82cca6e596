package authgrpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	serverauth "github.com/ArcadeAI/mcp-server-auth"
	"github.com/ArcadeAI/mcp-server-auth/registry"
	"github.com/ArcadeAI/mcp-server-auth/validator"
)

// ErrorHandler converts a validation failure into the status error returned
// to the client. Implementations must not leak claim values or upstream
// failure detail into the returned status.
type ErrorHandler func(err error) error

// DefaultErrorHandler maps validation failures onto gRPC codes the way the
// HTTP middleware maps them onto WWW-Authenticate challenges:
//
//   - a missing token is Unauthenticated with no further detail,
//   - issuer and audience mismatches are PermissionDenied, since the token
//     may be perfectly valid for some other resource,
//   - key resolution failures are Internal, because the caller can do
//     nothing about an unreachable JWKS endpoint,
//   - everything else is Unauthenticated with a static description.
func DefaultErrorHandler(err error) error {
	switch {
	case errors.Is(err, serverauth.ErrTokenMissing):
		return status.Error(codes.Unauthenticated, "bearer token is required")
	case errors.Is(err, validator.ErrIssuerMismatch),
		errors.Is(err, validator.ErrAudienceMismatch):
		return status.Error(codes.PermissionDenied, "token is not valid for this resource")
	case errors.Is(err, validator.ErrKeyResolution):
		return status.Error(codes.Internal, "unable to verify token")
	case errors.Is(err, registry.ErrUnknownIssuer):
		return status.Error(codes.Unauthenticated, "token issuer is not trusted")
	default:
		return status.Error(codes.Unauthenticated, "token is invalid")
	}
}
