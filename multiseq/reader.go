// Package multiseq concatenates an ordered list of seqfile sequence
// files into one virtual ascending stream, the way segmented sieving
// naturally chains scratch files together: the last prime of window k
// equals the first prime of window k+1, and that duplicate is
// suppressed on the combined stream.
package multiseq

import (
	"io"

	"github.com/timboudreau/primal/seqfile"
)

// fileInfo caches the header-level facts about one path that Open
// validates and Seek/Search need without reopening the file.
type fileInfo struct {
	path  string
	count uint64
	first uint64
	last  uint64
}

// MultiSeqReader is a concatenating reader over an ordered list of
// sequence files, exposed as one ascending stream of values.
type MultiSeqReader struct {
	infos     []fileInfo
	dup       []bool   // dup[i]: infos[i].first == infos[i-1].last
	effCount  []uint64 // deduplicated entry count contributed by each file
	cumOffset []uint64 // global index at which file i's contribution begins

	cursor    int
	curFile   *seqfile.SeqFile
	curReader *seqfile.SequenceReader

	count     uint64
	lastValue uint64
	hasLast   bool
}

// Open validates and opens a virtual concatenation of paths, which must
// already be in ascending order (each file's last value <= the next
// file's last value) and contain no duplicate path.
func Open(paths []string) (*MultiSeqReader, error) {
	seen := make(map[string]bool, len(paths))
	infos := make([]fileInfo, 0, len(paths))

	var prevLast uint64
	var havePrevLast bool
	for _, p := range paths {
		if seen[p] {
			return nil, ErrDuplicatePath
		}
		seen[p] = true

		f, err := seqfile.Open(p, seqfile.Read, nil)
		if err != nil {
			return nil, err
		}
		h := f.Header()
		if h.Count == 0 {
			f.Close()
			return nil, ErrEmptyFile
		}
		first, err := f.First()
		if err != nil {
			f.Close()
			return nil, err
		}
		last, err := f.Last()
		if err != nil {
			f.Close()
			return nil, err
		}
		f.Close()

		if havePrevLast && last < prevLast {
			return nil, ErrOutOfOrder
		}
		infos = append(infos, fileInfo{path: p, count: h.Count, first: first, last: last})
		prevLast, havePrevLast = last, true
	}

	m := &MultiSeqReader{infos: infos}
	m.dup = make([]bool, len(infos))
	m.effCount = make([]uint64, len(infos))
	m.cumOffset = make([]uint64, len(infos))
	var cum uint64
	for i, info := range infos {
		dup := i > 0 && infos[i-1].last == info.first
		m.dup[i] = dup
		eff := info.count
		if dup {
			eff--
		}
		m.effCount[i] = eff
		m.cumOffset[i] = cum
		cum += eff
	}
	return m, nil
}

// Count reports the logical (deduplicated) index of the value the next
// call to Next will return: the number of values Next has returned so
// far, counted from the index passed to the most recent Seek.
func (m *MultiSeqReader) Count() uint64 { return m.count }

// Close releases the currently open underlying file, if any.
func (m *MultiSeqReader) Close() error {
	if m.curFile != nil {
		err := m.curFile.Close()
		m.curFile, m.curReader = nil, nil
		return err
	}
	return nil
}

// ensureReader advances past exhausted files until curReader has at
// least one more entry to offer, or returns io.EOF when every path has
// been consumed.
func (m *MultiSeqReader) ensureReader() error {
	for {
		if m.curReader != nil {
			if m.curReader.Count() < m.curFile.Header().Count {
				return nil
			}
			m.curFile.Close()
			m.curFile, m.curReader = nil, nil
			m.cursor++
		}
		if m.cursor >= len(m.infos) {
			return io.EOF
		}
		f, err := seqfile.Open(m.infos[m.cursor].path, seqfile.Read, nil)
		if err != nil {
			return err
		}
		r, err := f.Iterate()
		if err != nil {
			f.Close()
			return err
		}
		m.curFile, m.curReader = f, r
	}
}

// Next returns the next value in the deduplicated concatenated stream,
// or io.EOF once every file is exhausted.
func (m *MultiSeqReader) Next() (uint64, error) {
	if err := m.ensureReader(); err != nil {
		return 0, err
	}
	v, err := m.curReader.Next()
	if err != nil {
		return 0, err
	}
	if m.hasLast && v == m.lastValue {
		if err := m.ensureReader(); err != nil {
			return 0, err
		}
		v, err = m.curReader.Next()
		if err != nil {
			return 0, err
		}
	}
	m.count++
	m.lastValue = v
	m.hasLast = true
	return v, nil
}

// AsSeed adapts Next into a sieve.Seed-shaped function: it returns each
// value in turn and sieve.End (-1) once the stream is exhausted. A
// non-EOF error from Next is swallowed as end-of-stream; callers that
// need to distinguish a real I/O failure from legitimate exhaustion
// should drive Next directly instead.
func (m *MultiSeqReader) AsSeed() func() int64 {
	return func() int64 {
		v, err := m.Next()
		if err != nil {
			return -1
		}
		return int64(v)
	}
}

// Last returns the last value of the final file in the concatenation.
func (m *MultiSeqReader) Last() uint64 {
	return m.infos[len(m.infos)-1].last
}

// Seek repositions the reader so the next call to Next returns the
// value at the given logical (deduplicated) index.
func (m *MultiSeqReader) Seek(index uint64) error {
	fi, local, err := m.locate(index)
	if err != nil {
		return err
	}

	if err := m.Close(); err != nil {
		return err
	}
	underlyingIndex := local
	if m.dup[fi] {
		underlyingIndex++
	}

	f, err := seqfile.Open(m.infos[fi].path, seqfile.Read, nil)
	if err != nil {
		return err
	}
	r, err := f.IterateFrom(underlyingIndex)
	if err != nil {
		f.Close()
		return err
	}

	m.cursor = fi
	m.curFile, m.curReader = f, r
	m.count = index
	if underlyingIndex > 0 {
		v, err := f.Get(underlyingIndex - 1)
		if err != nil {
			f.Close()
			m.curFile, m.curReader = nil, nil
			return err
		}
		m.lastValue, m.hasLast = v, true
	} else if fi > 0 {
		m.lastValue, m.hasLast = m.infos[fi-1].last, true
	} else {
		m.hasLast = false
	}
	return nil
}

// locate finds which file contributes the deduplicated global index and
// the local (already-deduplicated) index within it.
func (m *MultiSeqReader) locate(index uint64) (fileIdx int, localIndex uint64, err error) {
	for i := range m.infos {
		end := m.cumOffset[i] + m.effCount[i]
		if index < end {
			return i, index - m.cumOffset[i], nil
		}
	}
	return 0, 0, seqfile.ErrOutOfRange
}

// Search locates value across the concatenation under bias, returning
// its global deduplicated index or -1 if bias admits no resolution.
// The file containing value is found by a linear scan of each file's
// last() (cheap: one header field per file), then delegates to that
// file's own binary Search.
func (m *MultiSeqReader) Search(value uint64, bias seqfile.Bias) (int64, error) {
	for i, info := range m.infos {
		if value > info.last {
			if i == len(m.infos)-1 {
				// Past the very end of the concatenation.
				if bias == seqfile.BiasBackward || bias == seqfile.BiasNearest {
					return int64(m.cumOffset[i] + m.effCount[i] - 1), nil
				}
				return -1, nil
			}
			continue
		}

		f, err := seqfile.Open(info.path, seqfile.Read, nil)
		if err != nil {
			return -1, err
		}
		localIdx, err := f.Search(value, bias)
		f.Close()
		if err != nil {
			return -1, err
		}
		if localIdx < 0 {
			if bias == seqfile.BiasBackward && i > 0 {
				// No match in this file at or below value; the
				// preceding file's last effective entry is the answer.
				return int64(m.cumOffset[i] - 1), nil
			}
			return -1, nil
		}
		underlying := uint64(localIdx)
		if m.dup[i] && underlying == 0 {
			// The match is the suppressed duplicate; its canonical
			// global position is the previous file's last entry.
			if i == 0 {
				return -1, nil
			}
			return int64(m.cumOffset[i] - 1), nil
		}
		global := m.cumOffset[i] + underlying
		if m.dup[i] {
			global--
		}
		return int64(global), nil
	}
	return -1, nil
}

// SizeOptimizedHeaderForNewFile derives the minimum bitsPerFullEntry
// (from the concatenated last value) and bitsPerOffsetEntry (from the
// largest maxOffset recorded by any constituent file) suitable for a
// merged output file, using offsetsPerFrame entries per frame.
func (m *MultiSeqReader) SizeOptimizedHeaderForNewFile(offsetsPerFrame int) (*seqfile.Header, error) {
	var maxOffset uint32
	for _, info := range m.infos {
		f, err := seqfile.Open(info.path, seqfile.Read, nil)
		if err != nil {
			return nil, err
		}
		if f.Header().MaxOffset > maxOffset {
			maxOffset = f.Header().MaxOffset
		}
		f.Close()
	}
	last := m.Last()
	return seqfile.NewHeader(last,
		seqfile.WithBitsPerOffsetEntry(seqfile.BitsRequiredForEncodedOffset(uint64(maxOffset))),
		seqfile.WithOffsetsPerFrame(offsetsPerFrame),
	), nil
}
