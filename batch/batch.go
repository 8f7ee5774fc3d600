// Package batch orchestrates repeated bounded-memory sieve runs to sieve
// up to arbitrarily large bounds: it partitions the target range into
// windows, sieves each in turn (cold for the first, warm - chained
// through scratch sequence files - for the rest), and fans the result
// out to the caller's own sink as one continuous stream.
package batch

import (
	"fmt"
	"os"

	"github.com/timboudreau/primal/internal/tempname"
	"github.com/timboudreau/primal/multiseq"
	"github.com/timboudreau/primal/seqfile"
	"github.com/timboudreau/primal/sieve"
)

// suppressEnd wraps a sink so intermediate window completions don't
// propagate sieve.End to it; only the batch's own final window does,
// once via Run itself.
type suppressEnd struct{ inner sieve.Sink }

func (s suppressEnd) Accept(v int64) error {
	if v == sieve.End {
		return nil
	}
	return s.inner.Accept(v)
}

// countingSink counts every non-End value that passes through it, so
// Run can track how many primes a window actually emitted toward a
// global WithTotal cap that spans every window.
type countingSink struct {
	inner sieve.Sink
	n     int64
}

func (c *countingSink) Accept(v int64) error {
	if v != sieve.End {
		c.n++
	}
	return c.inner.Accept(v)
}

// Run sieves every prime in [0, max), invoking sink for each in
// ascending order followed by one call with sieve.End. Below
// batchThreshold it delegates straight to sieve.RunCold; above it,
// it partitions [0, max) into windows, sieving each into a scratch
// seqfile and chaining windows with a warm sieve seeded by a
// multiseq.MultiSeqReader over every prior scratch file. Scratch files
// are deleted on both success and failure.
func Run(max uint64, sink sieve.Sink, opts ...Option) error {
	o := resolveOptions(opts)

	if max <= o.batchThreshold {
		_, err := sieve.RunCold(max, sink, sieve.WithLogger(o.logger), sieve.WithTotal(o.total))
		return err
	}

	o.logger.Info("batch: sieving above threshold", "max", max, "threshold", o.batchThreshold)

	namer := tempname.New(o.tempDir, o.tempPrefix)
	var tempFiles []string // completed windows, chained as warm-sieve seed input
	var allScratch []string // every scratch file created, including an in-flight one
	defer func() {
		for _, p := range allScratch {
			os.Remove(p)
			os.Remove(p + ".lock") // left beside each scratch file by seqfile.Open's write lock
		}
	}()

	outer := suppressEnd{inner: sink}
	var last uint64
	var windowNum int
	var emitted int64

	for start := uint64(0); start < max; {
		if o.total >= 0 && emitted >= o.total {
			break
		}

		end := start + o.batchThreshold
		if max-end < tailMergeSlack {
			end = max
		}
		if end > max {
			end = max
		}
		windowNum++

		scratchPath := namer.Next()
		hdr := seqfile.NewHeader(end,
			seqfile.WithBitsPerOffsetEntry(o.bitsPerOffsetEntry),
			seqfile.WithOffsetsPerFrame(o.offsetsPerFrame))

		f, err := seqfile.Open(scratchPath, seqfile.Write, hdr)
		if err != nil {
			return fmt.Errorf("batch: opening scratch window %d: %w", windowNum, err)
		}
		allScratch = append(allScratch, scratchPath)

		counted := &countingSink{inner: outer}
		fanout := sieve.Fanout{f.Writer(), counted}

		windowTotal := int64(-1)
		if o.total >= 0 {
			windowTotal = o.total - emitted
		}

		o.logger.Debug("batch: window start", "window", windowNum, "from", start, "to", end)
		if len(tempFiles) == 0 {
			last, err = sieve.RunCold(end, fanout, sieve.WithLogger(o.logger), sieve.WithTotal(windowTotal))
		} else {
			multi, merr := multiseq.Open(tempFiles)
			if merr != nil {
				f.Close()
				return fmt.Errorf("batch: opening prior windows: %w", merr)
			}
			last, err = sieve.RunWarm(last, multi.AsSeed(), fanout, end, sieve.WithLogger(o.logger), sieve.WithTotal(windowTotal))
			multi.Close()
		}
		if err != nil {
			f.Close()
			return fmt.Errorf("batch: window %d: %w", windowNum, err)
		}

		if err := f.Close(); err != nil {
			return fmt.Errorf("batch: closing scratch window %d: %w", windowNum, err)
		}
		tempFiles = append(tempFiles, scratchPath)
		emitted += counted.n

		o.logger.Info("batch: window complete", "window", windowNum, "to", end, "lastPrime", last, "emitted", emitted)
		start = end
	}

	return sink.Accept(sieve.End)
}
