// Package verify cross-checks two independently produced ascending
// streams of values for exact set equality, used to confirm that a
// windowed batch run produced the same primes as a single cold sieve
// over the same bound, and that a repaired file's recovered entries
// match a re-derivation from scratch.
package verify

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Diff describes how two streams differ: values present in the first
// but not the second, and vice versa. Both are empty when the streams
// are set-equal.
type Diff struct {
	OnlyInFirst  []uint64
	OnlyInSecond []uint64
}

// Equal reports whether the diff found no discrepancies.
func (d Diff) Equal() bool {
	return len(d.OnlyInFirst) == 0 && len(d.OnlyInSecond) == 0
}

// Compare consumes both streams fully and returns their set difference.
// Values must fit in uint32, matching the id space Roaring bitmaps
// address; callers comparing primes beyond that range should chunk the
// comparison themselves.
func Compare(first, second func() (uint64, bool, error)) (Diff, error) {
	a, err := collect(first)
	if err != nil {
		return Diff{}, fmt.Errorf("verify: reading first stream: %w", err)
	}
	b, err := collect(second)
	if err != nil {
		return Diff{}, fmt.Errorf("verify: reading second stream: %w", err)
	}

	onlyA := roaring.AndNot(a, b)
	onlyB := roaring.AndNot(b, a)

	return Diff{
		OnlyInFirst:  toUint64Slice(onlyA),
		OnlyInSecond: toUint64Slice(onlyB),
	}, nil
}

func collect(next func() (uint64, bool, error)) (*roaring.Bitmap, error) {
	rb := roaring.New()
	for {
		v, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rb, nil
		}
		if v > uint64(^uint32(0)) {
			return nil, fmt.Errorf("verify: value %d exceeds uint32 range", v)
		}
		rb.Add(uint32(v))
	}
}

func toUint64Slice(rb *roaring.Bitmap) []uint64 {
	if rb.IsEmpty() {
		return nil
	}
	out := make([]uint64, 0, rb.GetCardinality())
	it := rb.Iterator()
	for it.HasNext() {
		out = append(out, uint64(it.Next()))
	}
	return out
}
