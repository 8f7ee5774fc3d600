package multiseq

import "errors"

// ErrEmptyFile is returned when one of the paths passed to Open contains
// no entries.
var ErrEmptyFile = errors.New("multiseq: file contains zero entries")

// ErrOutOfOrder is returned when a file's last value is smaller than the
// previous file's last value, violating the ascending-concatenation
// invariant.
var ErrOutOfOrder = errors.New("multiseq: files are not in ascending order")

// ErrDuplicatePath is returned when the same path appears twice in the
// list passed to Open.
var ErrDuplicatePath = errors.New("multiseq: duplicate path")
