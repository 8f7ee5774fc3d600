// Package seqfile implements the bit-packed, random-access sequence file
// format: a fixed 20-byte header followed by frames of one full entry and
// N-1 offset (gap) entries, specialized for ascending primes.
package seqfile

import (
	"fmt"
	"io"
	"os"

	"github.com/timboudreau/primal/bitio"
	"github.com/timboudreau/primal/internal/filelock"
)

// Channel is the seekable byte stream a SeqFile owns for its lifetime.
// *os.File satisfies it.
type Channel interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Sync() error
}

// Mode selects how a SeqFile's underlying file is opened.
type Mode int

const (
	// Read opens an existing file read-only.
	Read Mode = iota
	// Write creates a new file, failing if one already exists.
	Write
	// Overwrite creates a new file, truncating any existing one.
	Overwrite
	// Append opens an existing file for appending further entries.
	Append
	// WriteSync is Write with a forced flush after every entry.
	WriteSync
	// OverwriteSync is Overwrite with a forced flush after every entry.
	OverwriteSync
	// AppendSync is Append with a forced flush after every entry.
	AppendSync
)

func (m Mode) isWrite() bool {
	switch m {
	case Write, Overwrite, Append, WriteSync, OverwriteSync, AppendSync:
		return true
	default:
		return false
	}
}

func (m Mode) isSync() bool {
	switch m {
	case WriteSync, OverwriteSync, AppendSync:
		return true
	default:
		return false
	}
}

func (m Mode) isAppend() bool {
	return m == Append || m == AppendSync
}

func (m Mode) osFlags() int {
	switch m {
	case Read:
		return os.O_RDONLY
	case Write, WriteSync:
		return os.O_RDWR | os.O_CREATE | os.O_EXCL
	case Overwrite, OverwriteSync:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case Append, AppendSync:
		return os.O_RDWR
	default:
		return os.O_RDONLY
	}
}

// Bias controls how SeqFile.Search resolves a value with no exact match.
type Bias int

const (
	// BiasNone requires an exact match; anything else returns -1.
	BiasNone Bias = iota
	// BiasForward snaps to the next-higher value.
	BiasForward
	// BiasBackward snaps to the next-lower value.
	BiasBackward
	// BiasNearest snaps to whichever neighbor is numerically closer.
	BiasNearest
)

// SeqFile is the container: it owns a channel, a header, and an open
// mode, and provides random access, search, and filtered copies over the
// bit-packed data section.
type SeqFile struct {
	path   string
	ch     Channel
	header *Header
	mode   Mode
	lock   *filelock.Lock

	writer *SequenceWriter
}

// Open opens or creates a sequence file at path under mode. header is
// required (and used to initialize the file) for Write/Overwrite modes;
// it is ignored for Read/Append, which load the header from disk. Write
// modes take an advisory lock on path for the file's lifetime, enforcing
// single-writer access across processes; ErrConcurrentAccess-shaped
// failures from a second writer surface as filelock.ErrLocked instead.
func Open(path string, mode Mode, header *Header) (sf *SeqFile, err error) {
	var lock *filelock.Lock
	if mode.isWrite() {
		lock, err = filelock.Acquire(path + ".lock")
		if err != nil {
			return nil, err
		}
		defer func() {
			if err != nil {
				lock.Unlock()
			}
		}()
	}

	f, err := os.OpenFile(path, mode.osFlags(), 0o644)
	if err != nil {
		return nil, ioErr("open", err)
	}
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	sf = &SeqFile{path: path, ch: f, mode: mode, lock: lock}

	switch {
	case mode == Write || mode == WriteSync || mode == Overwrite || mode == OverwriteSync:
		if header == nil {
			return nil, fmt.Errorf("%w: header required for a new file", ErrBadInput)
		}
		if header.BitsPerOffsetEntry == 0 || header.BitsPerFullEntry == 0 || header.OffsetsPerFrame == 0 {
			return nil, fmt.Errorf("%w: header geometry fields must be nonzero", ErrBadInput)
		}
		hcopy := *header
		hcopy.Count = 0
		hcopy.MaxOffset = 0
		if err = hcopy.Write(f); err != nil {
			return nil, err
		}
		sf.header = &hcopy
	default:
		var h *Header
		h, err = ReadHeader(f)
		if err != nil {
			return nil, err
		}
		sf.header = h
		if mode.isAppend() {
			if _, err = f.Seek(0, io.SeekEnd); err != nil {
				return nil, ioErr("seek", err)
			}
		}
	}

	if mode.isWrite() {
		sf.writer = newSequenceWriter(sf)
		sf.writer.count = sf.header.Count
	}

	return sf, nil
}

// Header returns the file's current header. Callers must not mutate it.
func (f *SeqFile) Header() *Header { return f.header }

// Writer returns the file's SequenceWriter, or nil if the file was not
// opened in a write mode.
func (f *SeqFile) Writer() *SequenceWriter { return f.writer }

// Close flushes and finalizes a writer (if any), closes the channel, and
// releases the write lock acquired by Open, if any.
func (f *SeqFile) Close() error {
	if f.lock != nil {
		defer f.lock.Unlock()
	}
	if f.writer != nil {
		if err := f.writer.Close(); err != nil {
			f.ch.Close()
			return err
		}
	}
	if err := f.ch.Close(); err != nil {
		return ioErr("close", err)
	}
	return nil
}

// Get returns the value at logical index, restoring the channel's prior
// position before returning so interleaved sequential iteration is not
// disturbed.
func (f *SeqFile) Get(index uint64) (uint64, error) {
	if index >= f.header.Count {
		return 0, ErrOutOfRange
	}

	saved, err := f.ch.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, ioErr("seek", err)
	}
	defer f.ch.Seek(saved, io.SeekStart)

	frameByte, skipBits, offsetIntoFrame := f.header.positionOf(index)
	if _, err := f.ch.Seek(int64(frameByte), io.SeekStart); err != nil {
		return 0, ioErr("seek", err)
	}

	br := bitio.NewReader(f.ch)
	if skipBits > 0 {
		if _, err := br.ReadBits(int(skipBits)); err != nil {
			return 0, wrapShortRead(err)
		}
	}

	fullRaw, err := br.ReadBits(int(f.header.BitsPerFullEntry))
	if err != nil {
		return 0, wrapShortRead(err)
	}
	value := decodeFull(fullRaw)

	for i := uint64(0); i < offsetIntoFrame; i++ {
		offRaw, err := br.ReadBits(int(f.header.BitsPerOffsetEntry))
		if err != nil {
			return 0, wrapShortRead(err)
		}
		value += decodeOffset(offRaw)
	}

	return value, nil
}

// Search performs a binary search over [0, count) using Get as the
// comparator oracle, returning the resolved index under bias or -1.
func (f *SeqFile) Search(value uint64, bias Bias) (int64, error) {
	count := int64(f.header.Count)
	if count == 0 {
		return -1, nil
	}

	lo, hi := int64(0), count-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		v, err := f.Get(uint64(mid))
		if err != nil {
			return -1, err
		}
		switch {
		case v == value:
			return mid, nil
		case v < value:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}

	switch bias {
	case BiasNone:
		return -1, nil
	case BiasForward:
		if lo >= count {
			return -1, nil
		}
		return lo, nil
	case BiasBackward:
		if hi < 0 {
			return -1, nil
		}
		return hi, nil
	case BiasNearest:
		haveFwd := lo < count
		haveBack := hi >= 0
		var fwdVal, backVal uint64
		var err error
		if haveFwd {
			if fwdVal, err = f.Get(uint64(lo)); err != nil {
				return -1, err
			}
		}
		if haveBack {
			if backVal, err = f.Get(uint64(hi)); err != nil {
				return -1, err
			}
		}
		switch {
		case haveFwd && haveBack:
			if fwdVal-value < value-backVal {
				return lo, nil
			}
			return hi, nil
		case haveFwd:
			return lo, nil
		case haveBack:
			return hi, nil
		default:
			return -1, nil
		}
	default:
		return -1, nil
	}
}

// NearestTo is a convenience wrapping Search+Get; it returns -1 with a
// nil error when Search resolves to no index.
func (f *SeqFile) NearestTo(value uint64, bias Bias) (int64, error) {
	idx, err := f.Search(value, bias)
	if err != nil || idx < 0 {
		return -1, err
	}
	v, err := f.Get(uint64(idx))
	if err != nil {
		return -1, err
	}
	return int64(v), nil
}

// First returns the first entry.
func (f *SeqFile) First() (uint64, error) { return f.Get(0) }

// Last returns the final entry.
func (f *SeqFile) Last() (uint64, error) {
	if f.header.Count == 0 {
		return 0, ErrOutOfRange
	}
	return f.Get(f.header.Count - 1)
}

// Iterate returns a fail-fast sequential cursor positioned at the start
// of the data section. At most one sequential cursor should be active on
// a file at a time; Get may still be interleaved safely, since it always
// restores the channel's position before returning.
func (f *SeqFile) Iterate() (*SequenceReader, error) {
	if _, err := f.ch.Seek(HeaderSize, io.SeekStart); err != nil {
		return nil, ioErr("seek", err)
	}
	return newSequenceReader(f, 0, 0, nil)
}

// IterateFrom returns a cursor whose first Next() call yields the entry
// at index, continuing sequentially from there. It seeks to the nearest
// preceding frame boundary and decodes forward to index.
func (f *SeqFile) IterateFrom(index uint64) (*SequenceReader, error) {
	if index >= f.header.Count {
		return nil, ErrOutOfRange
	}

	frameByte, skipBits, offsetIntoFrame := f.header.positionOf(index)
	if _, err := f.ch.Seek(int64(frameByte), io.SeekStart); err != nil {
		return nil, ioErr("seek", err)
	}

	// Decode through the reader's own bitio.Reader (rather than a
	// throwaway one) so that mid-byte bit position carries over exactly
	// into the cursor it hands back.
	r, err := newSequenceReader(f, 0, 0, nil)
	if err != nil {
		return nil, err
	}

	if skipBits > 0 {
		if _, err := r.br.ReadBits(int(skipBits)); err != nil {
			return nil, wrapShortRead(err)
		}
	}
	fullRaw, err := r.br.ReadBits(int(f.header.BitsPerFullEntry))
	if err != nil {
		return nil, wrapShortRead(err)
	}
	value := decodeFull(fullRaw)
	for i := uint64(0); i < offsetIntoFrame; i++ {
		offRaw, err := r.br.ReadBits(int(f.header.BitsPerOffsetEntry))
		if err != nil {
			return nil, wrapShortRead(err)
		}
		value += decodeOffset(offRaw)
	}

	r.lastValue = value
	r.count = index + 1
	r.pending = &value
	return r, nil
}
