package filelock

import (
	"path/filepath"
	"testing"
)

func TestAcquireThenUnlockAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.lock")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	l2, err := Acquire(path)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if err := l2.Unlock(); err != nil {
		t.Fatalf("second Unlock: %v", err)
	}
}
