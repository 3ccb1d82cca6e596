// Package authgrpc adapts the resource server middleware to gRPC servers
// through unary and stream interceptors. Tokens travel in the incoming
// metadata rather than an HTTP header, and rejections are status errors
// rather than challenge responses; everything between extraction and the
// authenticated identity is shared with the HTTP middleware.
package authgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	serverauth "github.com/ArcadeAI/mcp-server-auth"
	"github.com/ArcadeAI/mcp-server-auth/validator"
)

var (
	// ErrMissingIdentity is returned by RequireIdentity when the call
	// never passed token validation, such as on excluded methods.
	ErrMissingIdentity = errors.New("no authenticated identity found in context")
)

// Interceptor authenticates gRPC calls against a resource server
// middleware. It is immutable after construction and safe for concurrent
// use.
type Interceptor struct {
	middleware     *serverauth.Middleware
	tokenExtractor TokenExtractor
	errorHandler   ErrorHandler
	excluded       func(fullMethod string) bool
}

// New builds an Interceptor around middleware.
func New(middleware *serverauth.Middleware, opts ...Option) (*Interceptor, error) {
	if middleware == nil {
		return nil, errors.New("middleware is required but was nil")
	}

	interceptor := &Interceptor{
		middleware:     middleware,
		tokenExtractor: MetadataTokenExtractor,
		errorHandler:   DefaultErrorHandler,
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns an interceptor that validates the bearer
// token of every unary call and hands the handler a context carrying the
// authenticated identity.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns an interceptor that validates the bearer
// token once when a stream opens. The identity rides on the stream context
// for the lifetime of that stream and no further.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authCtx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	if i.excluded != nil && i.excluded(fullMethod) {
		return ctx, nil
	}

	token, err := i.tokenExtractor(ctx)
	if err != nil {
		return nil, i.errorHandler(serverauth.ErrTokenMissing)
	}

	identity, err := i.middleware.Authenticate(ctx, token)
	if err != nil {
		return nil, i.errorHandler(err)
	}

	return serverauth.ContextWithIdentity(ctx, identity), nil
}

// wrappedServerStream overrides the stream context with the authenticated
// one.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// IdentityFromContext returns the authenticated identity of the current
// call, if any. It is a thin alias for the root package accessor so gRPC
// handlers need only this import.
func IdentityFromContext(ctx context.Context) (*validator.Identity, bool) {
	return serverauth.IdentityFromContext(ctx)
}

// RequireIdentity returns the authenticated identity of the current call,
// or ErrMissingIdentity when the call never passed validation.
func RequireIdentity(ctx context.Context) (*validator.Identity, error) {
	identity, ok := serverauth.IdentityFromContext(ctx)
	if !ok {
		return nil, ErrMissingIdentity
	}
	return identity, nil
}
