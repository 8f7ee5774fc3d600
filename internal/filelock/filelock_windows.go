//go:build windows

package filelock

import "os"

// Lock is a no-op placeholder on Windows, where LockFileEx support is
// not wired up; callers still get single-process safety from the
// exclusive-create semantics of seqfile.Write mode.
type Lock struct {
	f *os.File
}

// Acquire opens path and returns a Lock that performs no actual
// cross-process locking on this platform.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Unlock closes the underlying file handle.
func (l *Lock) Unlock() error {
	return l.f.Close()
}
