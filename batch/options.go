package batch

import (
	"os"

	"github.com/timboudreau/primal"
)

// defaultBatchThreshold is the window size above which Run sieves in
// bounded-memory batches rather than in one cold run.
const defaultBatchThreshold = 10_000_000_000

// tailMergeSlack is how much the final window may be extended rather
// than leaving a tiny trailing window of its own.
const tailMergeSlack = 10_000

type options struct {
	batchThreshold     uint64
	total              int64
	bitsPerOffsetEntry int
	offsetsPerFrame    int
	tempDir            string
	tempPrefix         string
	logger             *primal.Logger
}

// Option configures Run.
type Option func(*options)

// WithBatchThreshold overrides the window size above which Run batches
// rather than sieving in one pass.
func WithBatchThreshold(n uint64) Option {
	return func(o *options) { o.batchThreshold = n }
}

// WithTotal caps the number of primes emitted across the entire batch
// run (not per window) before it stops early, even if max has not been
// reached. -1 (the default) means unlimited.
func WithTotal(total int64) Option {
	return func(o *options) { o.total = total }
}

// WithBitsPerOffsetEntry sets the bitsPerOffsetEntry used for every
// scratch window file.
func WithBitsPerOffsetEntry(n int) Option {
	return func(o *options) { o.bitsPerOffsetEntry = n }
}

// WithOffsetsPerFrame sets the offsetsPerFrame used for every scratch
// window file.
func WithOffsetsPerFrame(n int) Option {
	return func(o *options) { o.offsetsPerFrame = n }
}

// WithTempDir overrides the directory scratch window files are created
// in. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithLogger attaches a structured logger that receives per-window
// progress events. The default is primal.Default().
func WithLogger(l *primal.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func resolveOptions(opts []Option) options {
	o := options{
		batchThreshold:     defaultBatchThreshold,
		total:              -1,
		bitsPerOffsetEntry: 11,
		offsetsPerFrame:    300,
		tempDir:            os.TempDir(),
		tempPrefix:         "sieve",
		logger:             primal.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
