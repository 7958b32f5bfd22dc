package query

import (
	"fmt"

	"github.com/rune-rs/rune/item"
)

// ErrorKind distinguishes the handful of ways indexing or resolution
// can fail, matching the query-layer members of spec.md §6's
// CompileError enumeration.
type ErrorKind string

const (
	ImportCycle   ErrorKind = "ImportCycle"
	NotVisible    ErrorKind = "NotVisible"
	MissingItem   ErrorKind = "MissingItem"
	AmbiguousItem ErrorKind = "AmbiguousItem"
)

// Error is a query-layer failure: an import cycle, a visibility
// violation, or a path that names nothing.
type Error struct {
	Kind ErrorKind
	Item item.Item
	Path string // dotted/"::"-joined path chain, for ImportCycle
}

func (e *Error) Error() string {
	switch e.Kind {
	case ImportCycle:
		return fmt.Sprintf("import cycle: %s", e.Path)
	case NotVisible:
		return fmt.Sprintf("item not visible from here: %s", e.Item)
	case MissingItem:
		return fmt.Sprintf("missing item: %s", e.Item)
	case AmbiguousItem:
		return fmt.Sprintf("ambiguous item: %s", e.Item)
	default:
		return fmt.Sprintf("query error: %s", e.Item)
	}
}
