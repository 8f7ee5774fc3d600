package seqfile

import (
	"io"
	"os"

	"github.com/timboudreau/primal"
	"github.com/timboudreau/primal/bitio"
)

type repairOptions struct {
	optimize bool
	logger   *primal.Logger
}

// RepairOption configures Repair.
type RepairOption func(*repairOptions)

// WithOptimize additionally rewrites the file with the tightest
// bitsPerFullEntry/bitsPerOffsetEntry the recovered data actually needs,
// rather than only fixing the header's count and maxOffset in place.
func WithOptimize() RepairOption {
	return func(o *repairOptions) { o.optimize = true }
}

// WithRepairLogger attaches a structured logger that receives the
// recovered scan statistics. The default is primal.Default().
func WithRepairLogger(l *primal.Logger) RepairOption {
	return func(o *repairOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Repair rescans a data section whose header's mutable fields were never
// finalized (a writer crashed between its last data write and the
// closing header rewrite), recomputing count and maxOffset directly from
// the bit stream. Running into a truncated final entry mid-scan is not
// fatal: the scan simply stops there and the last successfully-decoded
// entry becomes the recovered count.
func Repair(path string, opts ...RepairOption) (*Header, error) {
	o := repairOptions{logger: primal.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, ioErr("open", err)
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(HeaderSize, io.SeekStart); err != nil {
		return nil, ioErr("seek", err)
	}

	count, maxValue, maxOffset := scanDataSection(f, h)
	o.logger.LogRepairScan(path, count, maxOffset)

	if err := h.UpdateCountAndSave(f, count, maxOffset); err != nil {
		return nil, err
	}

	if !o.optimize {
		return h, nil
	}
	if err := f.Close(); err != nil {
		return nil, ioErr("close", err)
	}
	return optimizeInPlace(path, h, maxValue, maxOffset)
}

// scanDataSection reads frames from r until the stream ends (cleanly at
// a frame boundary, or mid-entry) or an entry decodes to a value that
// cannot follow the previous one, as the final byte's zero padding
// does, returning the number of entries
// successfully decoded, the largest decoded value, and the largest
// encoded offset observed.
func scanDataSection(r io.Reader, h *Header) (count uint64, maxValue uint64, maxOffset uint32) {
	br := bitio.NewReader(r)
	var lastValue uint64
	for {
		if count%uint64(h.OffsetsPerFrame) == 0 {
			raw, err := br.ReadBits(int(h.BitsPerFullEntry))
			if err != nil {
				return
			}
			// Zero padding of the final byte decodes as 2, which cannot
			// follow an earlier entry.
			if count > 0 && decodeFull(raw) <= lastValue {
				return
			}
			lastValue = decodeFull(raw)
		} else {
			raw, err := br.ReadBits(int(h.BitsPerOffsetEntry))
			if err != nil {
				return
			}
			// Zero padding decodes as a gap of 1, which only 2->3 has.
			if raw == 0 && lastValue != 2 {
				return
			}
			if uint32(raw) > maxOffset {
				maxOffset = uint32(raw)
			}
			lastValue += decodeOffset(raw)
		}
		maxValue = lastValue
		count++
	}
}

// optimizeInPlace rewrites path into a fresh file whose field widths are
// the minimum the recovered data needs, then atomically swaps it in.
func optimizeInPlace(path string, oldHeader *Header, maxValue uint64, maxOffset uint32) (*Header, error) {
	src, err := Open(path, Read, nil)
	if err != nil {
		return nil, err
	}

	tmpPath := path + ".repair.tmp"
	newHeader := NewHeader(maxValue,
		WithBitsPerOffsetEntry(bitsForEncoded(uint64(maxOffset))),
		WithOffsetsPerFrame(int(oldHeader.OffsetsPerFrame)))

	dst, err := Open(tmpPath, Overwrite, newHeader)
	if err != nil {
		src.Close()
		return nil, err
	}

	it, err := src.Iterate()
	if err != nil {
		dst.Close()
		src.Close()
		os.Remove(tmpPath)
		return nil, err
	}
	for {
		v, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			dst.Close()
			src.Close()
			os.Remove(tmpPath)
			return nil, err
		}
		if err := dst.writer.Accept(int64(v)); err != nil {
			dst.Close()
			src.Close()
			os.Remove(tmpPath)
			return nil, err
		}
	}
	if err := dst.Close(); err != nil {
		src.Close()
		os.Remove(tmpPath)
		return nil, err
	}

	if err := src.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, ioErr("rename", err)
	}
	return dst.header, nil
}
