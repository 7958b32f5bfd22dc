package unit

import (
	"fmt"

	"github.com/rune-rs/rune/item"
)

// LinkerErrorKind distinguishes the two ways sealing a Unit can fail,
// per spec.md §4.7/§7.
type LinkerErrorKind string

const (
	MissingFunction  LinkerErrorKind = "MissingFunction"
	DuplicateFunction LinkerErrorKind = "DuplicateFunction"
)

// LinkerError is returned by Builder.Seal.
type LinkerError struct {
	Kind LinkerErrorKind
	Hash item.Hash
}

func (e *LinkerError) Error() string {
	return fmt.Sprintf("unit: %s: hash %#x", e.Kind, uint64(e.Hash))
}
