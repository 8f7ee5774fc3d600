package seqfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/timboudreau/primal/bitio"
)

// HeaderSize is the fixed on-disk size of a Header, in bytes.
const HeaderSize = 20

var magic = [3]byte{0x23, 0x42, 0x23}

// Version is the only header version this package understands.
const Version = 1

// Header is the fixed 20-byte preamble of a sequence file: its geometry
// (how entries are bit-packed) plus the mutable statistics (count,
// maxOffset) that a writer updates on close.
type Header struct {
	BitsPerOffsetEntry uint8
	BitsPerFullEntry   uint8
	OffsetsPerFrame    uint16
	Count              uint64
	MaxOffset          uint32
}

type headerOptions struct {
	bitsPerFullEntry   int
	bitsPerOffsetEntry int
	offsetsPerFrame    int
}

// HeaderOption configures NewHeader.
type HeaderOption func(*headerOptions)

// WithBitsPerFullEntry overrides the derived width of the full-entry
// field. 0 (the default) means "derive from the max value passed to
// NewHeader".
func WithBitsPerFullEntry(n int) HeaderOption {
	return func(o *headerOptions) { o.bitsPerFullEntry = n }
}

// WithBitsPerOffsetEntry overrides the default offset-entry width of 11
// bits.
func WithBitsPerOffsetEntry(n int) HeaderOption {
	return func(o *headerOptions) { o.bitsPerOffsetEntry = n }
}

// WithOffsetsPerFrame overrides the default frame size of 300 entries.
func WithOffsetsPerFrame(n int) HeaderOption {
	return func(o *headerOptions) { o.offsetsPerFrame = n }
}

// NewHeader builds a fresh Header sized for values up to maxValue. A zero
// maxValue with an explicit WithBitsPerFullEntry is fine for callers that
// already know their geometry.
func NewHeader(maxValue uint64, opts ...HeaderOption) *Header {
	o := headerOptions{
		bitsPerFullEntry:   0,
		bitsPerOffsetEntry: 11,
		offsetsPerFrame:    300,
	}
	for _, opt := range opts {
		opt(&o)
	}
	bpf := o.bitsPerFullEntry
	if bpf == 0 {
		bpf = BitsRequired(maxValue)
	}
	return &Header{
		BitsPerOffsetEntry: uint8(o.bitsPerOffsetEntry),
		BitsPerFullEntry:   uint8(bpf),
		OffsetsPerFrame:    uint16(o.offsetsPerFrame),
	}
}

// bitsForEncoded returns the number of bits needed to hold an
// already-encoded value.
func bitsForEncoded(x uint64) int {
	n := bits.Len64(x)
	if n < 1 {
		n = 1
	}
	return n
}

// BitsRequired returns the number of bits needed to store the full-entry
// encoding of maxValue.
func BitsRequired(maxValue uint64) int {
	return bitsForEncoded(encodeFull(maxValue))
}

// BitsRequiredForOffset returns the number of bits needed to store the
// offset-entry encoding of the raw gap maxGap.
func BitsRequiredForOffset(maxGap uint64) int {
	return bitsForEncoded(encodeOffset(maxGap))
}

// BitsRequiredForEncodedOffset returns the number of bits needed to
// store a value that is already in its offset-entry encoded form - e.g.
// a Header's MaxOffset field, which records the maximum *encoded*
// offset rather than the raw gap. Callers sizing a new header from an
// existing file's MaxOffset should use this, not BitsRequiredForOffset,
// to avoid encoding the value twice.
func BitsRequiredForEncodedOffset(encoded uint64) int {
	return bitsForEncoded(encoded)
}

// encodeFull/decodeFull/encodeOffset/decodeOffset are the prime-specialized
// value transforms from the data model: they exploit that no even value
// but 2 ever appears as a full entry, and that no gap but 2->3 is odd.

func encodeFull(v uint64) uint64 {
	if v == 1 {
		return 1
	}
	return (v - 1) / 2
}

func decodeFull(s uint64) uint64 {
	if s == 0 {
		return 2
	}
	return 2*s + 1
}

func encodeOffset(g uint64) uint64 {
	switch g {
	case 1:
		return 0
	case 2:
		return 1
	default:
		return g / 2
	}
}

func decodeOffset(s uint64) uint64 {
	switch s {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 2 * s
	}
}

// bitsPerFrame is the total bit width of one frame: one full entry plus
// (offsetsPerFrame-1) offset entries.
func (h *Header) bitsPerFrame() uint64 {
	return uint64(h.BitsPerFullEntry) + uint64(h.OffsetsPerFrame-1)*uint64(h.BitsPerOffsetEntry)
}

// positionOf computes the physical location of a logical entry index:
// the byte at which its frame begins, the number of bits to skip within
// that first byte, and how many offset entries separate it from the
// frame's leading full entry.
func (h *Header) positionOf(index uint64) (frameByte uint64, skipBits uint8, offsetIntoFrame uint64) {
	perFrame := uint64(h.OffsetsPerFrame)
	frame := index / perFrame
	bitOffset := frame * h.bitsPerFrame()
	frameByte = uint64(HeaderSize) + bitOffset/8
	skipBits = uint8(bitOffset % 8)
	offsetIntoFrame = index - frame*perFrame
	return
}

// estimatedCount derives the number of entries a data section of the
// given byte length holds, without scanning it. It is exact when the
// data section fills a whole number of frames, and otherwise only an
// estimate. Repair does not use it; it recounts by scanning the data.
func (h *Header) estimatedCount(fileSize int64) uint64 {
	dataBytes := fileSize - HeaderSize
	if dataBytes <= 0 {
		return 0
	}
	dataBits := uint64(dataBytes) * 8
	bpf := h.bitsPerFrame()
	if bpf == 0 {
		return 0
	}
	fullFrames := dataBits / bpf
	remainder := dataBits % bpf
	count := fullFrames * uint64(h.OffsetsPerFrame)
	if remainder >= uint64(h.BitsPerFullEntry) {
		extra := 1 + (remainder-uint64(h.BitsPerFullEntry))/uint64(h.BitsPerOffsetEntry)
		if extra > uint64(h.OffsetsPerFrame-1) {
			extra = uint64(h.OffsetsPerFrame - 1)
		}
		count += extra
	}
	return count
}

// Write serializes the header to w in the on-disk big-endian layout.
func (h *Header) Write(w io.Writer) error {
	var buf [HeaderSize]byte
	copy(buf[0:3], magic[:])
	buf[3] = Version
	buf[4] = h.BitsPerOffsetEntry
	buf[5] = h.BitsPerFullEntry
	binary.BigEndian.PutUint16(buf[6:8], h.OffsetsPerFrame)
	binary.BigEndian.PutUint64(buf[8:16], h.Count)
	binary.BigEndian.PutUint32(buf[16:20], h.MaxOffset)
	if _, err := w.Write(buf[:]); err != nil {
		return ioErr("write header", err)
	}
	return nil
}

// ReadHeader deserializes a header from r, validating the magic, version,
// and the fields that must be nonzero.
func ReadHeader(r io.Reader) (*Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: file shorter than %d bytes", ErrCorruptHeader, HeaderSize)
		}
		return nil, ioErr("read header", err)
	}
	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] {
		return nil, fmt.Errorf("%w: magic mismatch", ErrCorruptHeader)
	}
	if buf[3] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptHeader, buf[3])
	}
	h := &Header{
		BitsPerOffsetEntry: buf[4],
		BitsPerFullEntry:   buf[5],
		OffsetsPerFrame:    binary.BigEndian.Uint16(buf[6:8]),
		Count:              binary.BigEndian.Uint64(buf[8:16]),
		MaxOffset:          binary.BigEndian.Uint32(buf[16:20]),
	}
	if h.BitsPerOffsetEntry == 0 || h.BitsPerFullEntry == 0 || h.OffsetsPerFrame == 0 {
		return nil, fmt.Errorf("%w: zero geometry field", ErrCorruptHeader)
	}
	return h, nil
}

// UpdateCountAndSave overwrites the mutable count/maxOffset fields of the
// header at their fixed offset in ch, restoring ch's prior position
// afterward. The in-memory header is updated only once the write
// succeeds.
func (h *Header) UpdateCountAndSave(ch io.ReadWriteSeeker, count uint64, maxOffset uint32) error {
	saved, err := ch.Seek(0, io.SeekCurrent)
	if err != nil {
		return ioErr("seek", err)
	}
	if _, err := ch.Seek(8, io.SeekStart); err != nil {
		return ioErr("seek", err)
	}
	var buf [12]byte
	binary.BigEndian.PutUint64(buf[0:8], count)
	binary.BigEndian.PutUint32(buf[8:12], maxOffset)
	if _, err := ch.Write(buf[:]); err != nil {
		return ioErr("write header fields", err)
	}
	if _, err := ch.Seek(saved, io.SeekStart); err != nil {
		return ioErr("seek", err)
	}
	h.Count = count
	h.MaxOffset = maxOffset
	return nil
}

// wrapShortRead translates a bitio short read, which means the channel
// hit EOF mid-field, into the sequence-file-level Truncated error.
func wrapShortRead(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bitio.ErrShortRead) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return ioErr("read", err)
}
