package authgrpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor pulls a raw bearer token out of an incoming call context.
// It returns an empty token and a nil error when the call simply carries no
// credentials; a non-nil error means credentials were present but malformed.
type TokenExtractor func(ctx context.Context) (string, error)

// MetadataTokenExtractor reads the token from the standard "authorization"
// metadata key, expecting the usual Bearer scheme. The scheme comparison is
// case insensitive, the token itself is passed through untouched.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	return MetadataFieldTokenExtractor("authorization")(ctx)
}

// MetadataFieldTokenExtractor builds a TokenExtractor that reads a Bearer
// credential from an arbitrary metadata key.
func MetadataFieldTokenExtractor(key string) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return "", nil
		}

		values := md.Get(key)
		if len(values) == 0 || values[0] == "" {
			return "", nil
		}

		parts := strings.Fields(values[0])
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", errors.New("authorization metadata format must be Bearer {token}")
		}

		return parts[1], nil
	}
}

// MultiTokenExtractor tries each extractor in order and returns the first
// token or error encountered.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		for _, ex := range extractors {
			token, err := ex(ctx)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
