package seqfile

import (
	"math/bits"

	"github.com/timboudreau/primal/bitio"
)

// SequenceWriter is a sequential, append-only cursor over a SeqFile's
// data section. It borrows the file's header and channel for its
// lifetime.
type SequenceWriter struct {
	file      *SeqFile
	bw        *bitio.Writer
	count     uint64
	lastValue uint64
	maxOffset uint32
}

func newSequenceWriter(f *SeqFile) *SequenceWriter {
	return &SequenceWriter{file: f, bw: bitio.NewWriter(f.ch)}
}

// Accept appends v to the sequence. v must be strictly greater than the
// previous accepted value, except that -1 is the idiomatic end-of-stream
// sentinel used by fan-out consumer chains and is silently ignored.
func (w *SequenceWriter) Accept(v int64) error {
	if v == -1 {
		return nil
	}
	if v < 0 {
		return ErrBadInput
	}
	value := uint64(v)
	if w.count > 0 && value <= w.lastValue {
		return ErrBadInput
	}

	if w.count%uint64(w.file.header.OffsetsPerFrame) == 0 {
		raw := encodeFull(value)
		if bits.Len64(raw) > int(w.file.header.BitsPerFullEntry) {
			return ErrBadInput
		}
		if err := w.bw.WriteBits(raw, int(w.file.header.BitsPerFullEntry)); err != nil {
			return ioErr("write", err)
		}
	} else {
		gap := value - w.lastValue
		raw := encodeOffset(gap)
		if bits.Len64(raw) > int(w.file.header.BitsPerOffsetEntry) {
			return ErrBadInput
		}
		if err := w.bw.WriteBits(raw, int(w.file.header.BitsPerOffsetEntry)); err != nil {
			return ioErr("write", err)
		}
		if uint32(raw) > w.maxOffset {
			w.maxOffset = uint32(raw)
		}
	}

	w.lastValue = value
	w.count++

	if w.file.mode.isSync() {
		if err := w.bw.Flush(); err != nil {
			return ioErr("flush", err)
		}
		if err := w.file.ch.Sync(); err != nil {
			return ioErr("sync", err)
		}
	}
	return nil
}

// Count reports how many entries have been written so far.
func (w *SequenceWriter) Count() uint64 { return w.count }

// Close flushes any partial byte, then rewrites the file's header with
// the final count and maxOffset.
func (w *SequenceWriter) Close() error {
	if err := w.bw.Close(); err != nil {
		return ioErr("flush", err)
	}
	return w.file.header.UpdateCountAndSave(w.file.ch, w.count, w.maxOffset)
}
