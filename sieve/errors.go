package sieve

import "errors"

// ErrBadSeed is returned when a warm sieve's preceding-primes supplier
// fails validation: wrong first value, non-ascending, a value failing
// the cheap composite-smoothness check, a value exceeding max, or a
// last value that doesn't match the declared start.
var ErrBadSeed = errors.New("sieve: bad seed")

// ErrNoValues is returned when a preceding-primes supplier produces no
// values at all before signaling end-of-stream.
var ErrNoValues = errors.New("sieve: seed supplier produced no values")
