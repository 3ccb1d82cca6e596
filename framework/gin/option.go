package authginhandler

// Option configures the gin adapter.
type Option func(*ginMiddlewareConfig)

// WithIdentityKey sets the gin context key the authenticated identity is
// stored under.
//
// Default: DefaultIdentityKey
func WithIdentityKey(key string) Option {
	return func(config *ginMiddlewareConfig) {
		if key != "" {
			config.identityKey = key
		}
	}
}
