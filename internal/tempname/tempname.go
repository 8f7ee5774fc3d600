// Package tempname generates collision-free scratch filenames for the
// batch driver, without resorting to a process-global counter or a
// millisecond-timestamp name base: each Namer owns its own state for
// the lifetime of one run.
package tempname

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Namer generates scratch file paths under a fixed directory, each
// guaranteed unique without any shared mutable state between Namers.
type Namer struct {
	dir    string
	prefix string
}

// New returns a Namer that places files under dir with the given
// filename prefix (e.g. "sieve").
func New(dir, prefix string) *Namer {
	return &Namer{dir: dir, prefix: prefix}
}

// Next returns a fresh, unused path.
func (n *Namer) Next() string {
	return filepath.Join(n.dir, fmt.Sprintf("%s-%s.tmp", n.prefix, uuid.NewString()))
}
