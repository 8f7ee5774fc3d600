package seqfile

import "io"

// Predicate selects a subset of a file's entries for Filter. Reset is
// invoked between Filter's two passes so a stateful predicate (e.g. one
// tracking a running total) can start over.
type Predicate interface {
	Accept(v uint64) bool
	Reset()
}

// PredicateFunc adapts a plain function to Predicate for stateless
// filters.
type PredicateFunc func(v uint64) bool

// Accept implements Predicate.
func (p PredicateFunc) Accept(v uint64) bool { return p(v) }

// Reset implements Predicate; a bare function has no state to reset.
func (p PredicateFunc) Reset() {}

// Filter copies the entries accepted by pred into a fresh file at
// outPath, sized with the minimal geometry that fits the accepted
// values, and using offsetsPerFrame for the new file's frame size.
//
// This is a two-pass operation: the first pass determines the accepted
// max value and max gap so the new header's field widths can be chosen
// tightly; the second pass writes. Fails with ErrEmptyFilter if fewer
// than two entries are accepted.
func (f *SeqFile) Filter(pred Predicate, outPath string, overwrite bool, offsetsPerFrame int) (*Header, error) {
	var count uint64
	var maxValue, maxGap, prev uint64
	var have bool

	scan, err := f.Iterate()
	if err != nil {
		return nil, err
	}
	for {
		v, err := scan.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !pred.Accept(v) {
			continue
		}
		if have {
			if gap := v - prev; gap > maxGap {
				maxGap = gap
			}
		}
		prev, have, maxValue = v, true, v
		count++
	}
	if count < 2 {
		return nil, ErrEmptyFilter
	}
	pred.Reset()

	mode := Write
	if overwrite {
		mode = Overwrite
	}
	newHeader := NewHeader(maxValue,
		WithBitsPerOffsetEntry(BitsRequiredForOffset(maxGap)),
		WithOffsetsPerFrame(offsetsPerFrame))

	out, err := Open(outPath, mode, newHeader)
	if err != nil {
		return nil, err
	}

	write, err := f.Iterate()
	if err != nil {
		out.Close()
		return nil, err
	}
	for {
		v, err := write.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return nil, err
		}
		if !pred.Accept(v) {
			continue
		}
		if err := out.writer.Accept(int64(v)); err != nil {
			out.Close()
			return nil, err
		}
	}

	if err := out.Close(); err != nil {
		return nil, err
	}
	return out.header, nil
}
