package authgrpc

import "errors"

// Option configures an Interceptor. Options that receive invalid values
// return an error from New rather than panicking.
type Option func(*Interceptor) error

// WithTokenExtractor overrides how the bearer token is pulled from the
// incoming call, for example to read a nonstandard metadata key.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler overrides how validation failures are converted into
// status errors.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods skips token validation for the given full method
// names, such as "/grpc.health.v1.Health/Check".
func WithExcludedMethods(methods ...string) Option {
	excluded := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		excluded[m] = struct{}{}
	}
	return func(i *Interceptor) error {
		i.excluded = func(fullMethod string) bool {
			_, ok := excluded[fullMethod]
			return ok
		}
		return nil
	}
}

// WithExclusionChecker installs a predicate deciding per call whether token
// validation is skipped. It replaces any previously configured exclusions.
func WithExclusionChecker(checker func(fullMethod string) bool) Option {
	return func(i *Interceptor) error {
		if checker == nil {
			return errors.New("exclusion checker cannot be nil")
		}
		i.excluded = checker
		return nil
	}
}
