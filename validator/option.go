package validator

import (
	"errors"
	"time"
)

// Option is how options for the Validator are set up.
type Option func(*Validator) error

// WithClockSkew sets the leeway applied when comparing the exp, nbf and
// iat claims against the current time.
func WithClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew must not be negative")
		}
		v.clockSkew = skew
		return nil
	}
}

// WithClock overrides the time source used for claim checks. Tests use
// this to pin validation to a fixed instant.
func WithClock(clock func() time.Time) Option {
	return func(v *Validator) error {
		if clock == nil {
			return errors.New("clock must not be nil")
		}
		v.clock = clock
		return nil
	}
}
