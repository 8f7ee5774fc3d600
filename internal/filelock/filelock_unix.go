//go:build unix || linux || darwin || freebsd || openbsd || netbsd

package filelock

import (
	"os"

	"golang.org/x/sys/unix"
)

// Lock is a held advisory flock(2) lock on a file's path.
type Lock struct {
	f *os.File
}

// Acquire opens path (creating it if necessary) and takes an exclusive,
// non-blocking flock on it. The returned Lock's Unlock must be called to
// release it; closing or losing the process also releases it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrLocked
		}
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Unlock releases the lock and closes its underlying file handle.
func (l *Lock) Unlock() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
