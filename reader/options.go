package reader

import "go.uber.org/zap"

// Option configures a Reader.
type Option func(*options)

type options struct {
	logger *zap.Logger
	eager  bool
}

// defaultOptions returns the options used when none are given.
func defaultOptions() options {
	return options{
		logger: zap.NewNop(),
		eager:  false,
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}

// WithEagerParse parses every structure during New. Structure failures are
// recorded, not returned, so New still succeeds.
func WithEagerParse(eager bool) Option {
	return func(o *options) {
		o.eager = eager
	}
}
