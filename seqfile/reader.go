package seqfile

import (
	"io"

	"github.com/timboudreau/primal/bitio"
)

// countingReader tracks how many bytes have been pulled from the
// underlying channel, independent of how much of that buffered data a
// bitio.Reader has logically consumed. Comparing startPos+n against the
// channel's own reported position after each call turns the fail-fast
// check in SequenceReader into a cheap invariant rather than a byte-exact
// re-derivation of bit position.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// SequenceReader is a sequential, fail-fast cursor over a SeqFile's data
// section. It borrows the file's header and channel for its lifetime; it
// does not own either.
type SequenceReader struct {
	file      *SeqFile
	cr        *countingReader
	br        *bitio.Reader
	startPos  int64
	count     uint64
	lastValue uint64
	pending   *uint64
}

// newSequenceReader begins a cursor at the channel's current position,
// which the caller must already have seeked to the desired starting
// point (the data section start, or a frame boundary for IterateFrom).
func newSequenceReader(f *SeqFile, startCount uint64, lastValue uint64, pendingFirst *uint64) (*SequenceReader, error) {
	pos, err := f.ch.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, ioErr("seek", err)
	}
	cr := &countingReader{r: f.ch}
	return &SequenceReader{
		file:      f,
		cr:        cr,
		br:        bitio.NewReader(cr),
		startPos:  pos,
		count:     startCount,
		lastValue: lastValue,
		pending:   pendingFirst,
	}, nil
}

func (r *SequenceReader) checkPosition() error {
	actual, err := r.file.ch.Seek(0, io.SeekCurrent)
	if err != nil {
		return ioErr("seek", err)
	}
	if actual != r.startPos+r.cr.n {
		return ErrConcurrentAccess
	}
	return nil
}

// Next decodes and returns the next entry in the sequence, or io.EOF once
// the file's declared count has been exhausted.
func (r *SequenceReader) Next() (uint64, error) {
	if err := r.checkPosition(); err != nil {
		return 0, err
	}

	if r.pending != nil {
		v := *r.pending
		r.pending = nil
		return v, nil
	}

	if r.count >= r.file.header.Count {
		return 0, io.EOF
	}

	var value uint64
	if r.count%uint64(r.file.header.OffsetsPerFrame) == 0 {
		raw, err := r.br.ReadBits(int(r.file.header.BitsPerFullEntry))
		if err != nil {
			return 0, wrapShortRead(err)
		}
		value = decodeFull(raw)
	} else {
		raw, err := r.br.ReadBits(int(r.file.header.BitsPerOffsetEntry))
		if err != nil {
			return 0, wrapShortRead(err)
		}
		value = r.lastValue + decodeOffset(raw)
	}
	r.lastValue = value
	r.count++
	return value, nil
}

// Count reports how many entries have been read so far, not counting a
// pending value staged by IterateFrom that hasn't been returned yet.
func (r *SequenceReader) Count() uint64 {
	if r.pending != nil {
		return r.count - 1
	}
	return r.count
}
