package batch

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/timboudreau/primal/internal/verify"
	"github.com/timboudreau/primal/sieve"
)

func isPrimeRef(n int64) bool {
	if n < 2 {
		return false
	}
	for i := int64(2); i*i <= n; i++ {
		if n%i == 0 {
			return false
		}
	}
	return true
}

func referencePrimes(max uint64) []int64 {
	var want []int64
	for n := int64(0); n < int64(max); n++ {
		if isPrimeRef(n) {
			want = append(want, n)
		}
	}
	return want
}

func TestRunBelowThresholdMatchesReference(t *testing.T) {
	const max = 1000

	var got []int64
	err := Run(max, sieve.SinkFunc(func(v int64) error {
		if v != sieve.End {
			got = append(got, v)
		}
		return nil
	}), WithBatchThreshold(10_000_000_000))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := referencePrimes(max)
	if len(got) != len(want) {
		t.Fatalf("got %d primes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}

// TestRunWindowedMatchesCold confirms that sieving a bound in small,
// chained windows produces the exact same sequence as sieving it in one
// cold pass, using internal/verify to diff the two streams rather than
// comparing slices directly.
func TestRunWindowedMatchesCold(t *testing.T) {
	const max = 20000

	var cold []int64
	_, err := sieve.RunCold(max, sieve.SinkFunc(func(v int64) error {
		if v != sieve.End {
			cold = append(cold, v)
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("RunCold: %v", err)
	}

	dir := t.TempDir()
	var windowed []int64
	err = Run(max, sieve.SinkFunc(func(v int64) error {
		if v != sieve.End {
			windowed = append(windowed, v)
		}
		return nil
	}), WithBatchThreshold(3000), WithTempDir(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	coldSeed := sliceSeed(cold)
	windowedSeed := sliceSeed(windowed)
	diff, err := verify.Compare(coldSeed, windowedSeed)
	if err != nil {
		t.Fatalf("verify.Compare: %v", err)
	}
	if !diff.Equal() {
		t.Fatalf("windowed run diverged from cold run: onlyInCold=%v onlyInWindowed=%v",
			diff.OnlyInFirst, diff.OnlyInSecond)
	}
	if len(windowed) != len(cold) {
		t.Fatalf("got %d primes from windowed run, want %d", len(windowed), len(cold))
	}
}

func sliceSeed(values []int64) func() (uint64, bool, error) {
	i := 0
	return func() (uint64, bool, error) {
		if i >= len(values) {
			return 0, false, nil
		}
		v := values[i]
		i++
		return uint64(v), true, nil
	}
}

func TestRunScratchFilesCleanedUpOnSuccess(t *testing.T) {
	dir := t.TempDir()
	err := Run(20000, sieve.SinkFunc(func(int64) error { return nil }),
		WithBatchThreshold(3000), WithTempDir(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, rerr := os.ReadDir(dir)
	if rerr != nil {
		t.Fatalf("ReadDir: %v", rerr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be empty after a successful run, found %v", entries)
	}
}

func TestRunScratchFilesCleanedUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	boom := io.ErrClosedPipe

	var calls int
	err := Run(20000, sieve.SinkFunc(func(v int64) error {
		if v == sieve.End {
			return nil
		}
		calls++
		if calls > 500 {
			return boom
		}
		return nil
	}), WithBatchThreshold(3000), WithTempDir(dir))
	if err == nil {
		t.Fatalf("expected Run to fail")
	}

	entries, rerr := os.ReadDir(dir)
	if rerr != nil {
		t.Fatalf("ReadDir: %v", rerr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be empty after a failed run, found %v", entries)
	}
}

func TestRunWithTotalCapsAcrossWindows(t *testing.T) {
	dir := t.TempDir()
	const total = 37

	var got []int64
	err := Run(20000, sieve.SinkFunc(func(v int64) error {
		if v != sieve.End {
			got = append(got, v)
		}
		return nil
	}), WithBatchThreshold(3000), WithTempDir(dir), WithTotal(total))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if int64(len(got)) != total {
		t.Fatalf("got %d primes, want exactly %d", len(got), total)
	}

	want := referencePrimes(20000)[:total]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestRunLeavesNoPrefixedScratchFiles(t *testing.T) {
	dir := t.TempDir()
	var seen []string
	err := Run(20000, sieve.SinkFunc(func(int64) error { return nil }),
		WithBatchThreshold(3000), WithTempDir(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Scratch files are removed on completion; confirm the directory
	// itself survives and nothing outside it was touched.
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Stat(%s): %v", dir, err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "sieve*"))
	seen = append(seen, matches...)
	if len(seen) != 0 {
		t.Fatalf("expected no leftover scratch files, found %v", seen)
	}
}
