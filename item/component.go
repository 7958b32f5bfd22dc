package item

import "fmt"

// ComponentKind distinguishes the three closed forms a path segment can
// take. Grounded on original_source's rune-core item/component.rs: a
// crate root, a named string segment, or an anonymous numbered scope
// (block, closure, async block).
type ComponentKind byte

const (
	// Crate names the root of an item path, e.g. the implicit "crate"
	// component every absolute path starts from.
	Crate ComponentKind = iota
	// Str names an ordinary path segment (a mod, fn, struct, ... name).
	Str
	// ID names an anonymous in-function scope, numbered in declaration
	// order so two anonymous blocks in the same function never collide.
	ID
)

// Component is one segment of an Item path.
type Component struct {
	Kind ComponentKind
	Str  string
	ID   uint32
}

// CrateComponent builds a Crate component naming the given crate.
func CrateComponent(name string) Component { return Component{Kind: Crate, Str: name} }

// StrComponent builds a named Str component.
func StrComponent(name string) Component { return Component{Kind: Str, Str: name} }

// IDComponent builds an anonymous ID component.
func IDComponent(id uint32) Component { return Component{Kind: ID, ID: id} }

func (c Component) String() string {
	switch c.Kind {
	case Crate:
		return c.Str
	case Str:
		return c.Str
	case ID:
		return fmt.Sprintf("${%d}", c.ID)
	default:
		return "<invalid-component>"
	}
}

func (c Component) writeTo(d digest) digest {
	switch c.Kind {
	case Crate:
		return d.writeTag(tagComponentCrate).writeString(c.Str)
	case Str:
		return d.writeTag(tagComponentStr).writeString(c.Str)
	case ID:
		return d.writeTag(tagComponentID).writeUint64(uint64(c.ID))
	default:
		return d
	}
}
