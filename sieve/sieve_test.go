package sieve

import (
	"testing"
)

func collect(t *testing.T, max uint64) []int64 {
	var got []int64
	_, err := RunCold(max, SinkFunc(func(v int64) error {
		got = append(got, v)
		return nil
	}))
	if err != nil {
		t.Fatalf("RunCold(%d): %v", max, err)
	}
	return got
}

func TestRunColdTiny(t *testing.T) {
	got := collect(t, 30)
	want := []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, End}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

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

func TestRunColdMatchesReferenceSieve(t *testing.T) {
	for _, max := range []uint64{2, 3, 10, 100, 1000, 10000} {
		got := collect(t, max)
		if len(got) == 0 || got[len(got)-1] != End {
			t.Fatalf("max=%d: missing End sentinel: %v", max, got)
		}
		got = got[:len(got)-1]

		var want []int64
		for n := int64(0); n < int64(max); n++ {
			if isPrimeRef(n) {
				want = append(want, n)
			}
		}
		if len(got) != len(want) {
			t.Fatalf("max=%d: got %d primes, want %d", max, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("max=%d: mismatch at %d: got %d want %d", max, i, got[i], want[i])
			}
		}
	}
}

func TestRunWarmChaining(t *testing.T) {
	var cold []int64
	lastCold, err := RunCold(1000, SinkFunc(func(v int64) error {
		if v != End {
			cold = append(cold, v)
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("RunCold: %v", err)
	}
	if lastCold != 997 {
		t.Fatalf("last prime under 1000 = %d, want 997", lastCold)
	}

	idx := 0
	seed := Seed(func() int64 {
		if idx >= len(cold) {
			return End
		}
		v := cold[idx]
		idx++
		return v
	})

	var warm []int64
	lastWarm, err := RunWarm(lastCold, seed, SinkFunc(func(v int64) error {
		if v != End {
			warm = append(warm, v)
		}
		return nil
	}), 2000)
	if err != nil {
		t.Fatalf("RunWarm: %v", err)
	}
	if len(warm) != 135 {
		t.Fatalf("got %d primes in (997,2000), want 135", len(warm))
	}
	if warm[0] != 1009 || warm[len(warm)-1] != 1999 {
		t.Fatalf("warm run = %v", warm)
	}
	if lastWarm != 1999 {
		t.Fatalf("lastWarm = %d, want 1999", lastWarm)
	}

	// Every prime from the cold+warm runs must match a full cold sieve.
	full := collect(t, 2000)
	full = full[:len(full)-1]
	combined := append(append([]int64{}, cold...), warm...)
	if len(combined) != len(full) {
		t.Fatalf("combined %d primes, full sieve has %d", len(combined), len(full))
	}
	for i := range full {
		if combined[i] != full[i] {
			t.Fatalf("mismatch at %d: combined %d, full %d", i, combined[i], full[i])
		}
	}
}

func TestRunWarmBadSeedRejectsNonTwoFirst(t *testing.T) {
	seed := Seed(func() int64 { return End })
	_, err := RunWarm(2, seed, SinkFunc(func(int64) error { return nil }), 100)
	if err != ErrNoValues {
		t.Fatalf("empty seed: got %v, want ErrNoValues", err)
	}

	vals := []int64{3, 5}
	i := 0
	seed = Seed(func() int64 {
		if i >= len(vals) {
			return End
		}
		v := vals[i]
		i++
		return v
	})
	_, err = RunWarm(5, seed, SinkFunc(func(int64) error { return nil }), 100)
	if err != ErrBadSeed {
		t.Fatalf("seed not starting at 2: got %v, want ErrBadSeed", err)
	}
}

func TestRunWarmBadSeedRejectsCompositeGapAndEndpoint(t *testing.T) {
	vals := []int64{2, 3, 4}
	i := 0
	seed := Seed(func() int64 {
		if i >= len(vals) {
			return End
		}
		v := vals[i]
		i++
		return v
	})
	_, err := RunWarm(4, seed, SinkFunc(func(int64) error { return nil }), 100)
	if err != ErrBadSeed {
		t.Fatalf("composite 4 in seed: got %v, want ErrBadSeed", err)
	}

	vals2 := []int64{2, 3, 5}
	j := 0
	seed2 := Seed(func() int64 {
		if j >= len(vals2) {
			return End
		}
		v := vals2[j]
		j++
		return v
	})
	_, err = RunWarm(7, seed2, SinkFunc(func(int64) error { return nil }), 100)
	if err != ErrBadSeed {
		t.Fatalf("last seed value (5) != start (7): got %v, want ErrBadSeed", err)
	}
}

func TestRunColdTotalCap(t *testing.T) {
	var got []int64
	last, err := RunCold(1000, SinkFunc(func(v int64) error {
		got = append(got, v)
		return nil
	}), WithTotal(5))
	if err != nil {
		t.Fatalf("RunCold: %v", err)
	}
	if last != 11 {
		t.Fatalf("5th prime should be 11, got %d", last)
	}
	// 5 primes plus the terminal End.
	if len(got) != 6 {
		t.Fatalf("got %v", got)
	}
}

func TestGapStats(t *testing.T) {
	stats := NewGapStats()
	_, err := RunCold(30, stats)
	if err != nil {
		t.Fatalf("RunCold: %v", err)
	}
	// Primes under 30: 2 3 5 7 11 13 17 19 23 29 -> largest gap is 6 (23->29)
	if stats.MaxGap != 6 {
		t.Fatalf("MaxGap = %d, want 6", stats.MaxGap)
	}
	if stats.Count() != 10 {
		t.Fatalf("Count() = %d, want 10", stats.Count())
	}
}
