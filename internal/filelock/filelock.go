// Package filelock provides an advisory, per-process lock on a sequence
// file's path, enforcing the single-writer invariant across separate
// processes touching the same file concurrently.
package filelock

import "errors"

// ErrLocked is returned by Acquire when another process already holds
// the lock.
var ErrLocked = errors.New("filelock: already locked by another process")
