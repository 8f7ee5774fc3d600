package sieve

import "github.com/timboudreau/primal"

type options struct {
	total  int64
	logger *primal.Logger
}

// Option configures RunCold/RunWarm.
type Option func(*options)

// WithTotal caps the number of primes emitted before a run stops early,
// even if max has not been reached. -1 (the default) means unlimited.
func WithTotal(total int64) Option {
	return func(o *options) { o.total = total }
}

// WithLogger attaches a structured logger that receives progress events
// as the sieve runs. The default is primal.Default().
func WithLogger(l *primal.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func resolveOptions(opts []Option) options {
	o := options{total: -1, logger: primal.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
