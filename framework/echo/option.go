package authechohandler

// Option configures the echo adapter.
type Option func(*echoMiddlewareConfig)

// WithIdentityKey sets the echo context key the authenticated identity is
// stored under.
//
// Default: DefaultIdentityKey
func WithIdentityKey(key string) Option {
	return func(config *echoMiddlewareConfig) {
		if key != "" {
			config.identityKey = key
		}
	}
}
