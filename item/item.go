package item

import "strings"

// Item is a canonical, fully qualified path composed of Components. Two
// Items built from the same component sequence compare equal and hash
// identically, per spec.md §8: "Item::from_components(I.components) ==
// I and hash(I) is stable across runs."
type Item struct {
	components []Component
}

// FromComponents builds an Item from an explicit component sequence.
func FromComponents(components ...Component) Item {
	cs := make([]Component, len(components))
	copy(cs, components)
	return Item{components: cs}
}

// Components returns the item's path segments. The returned slice must
// not be mutated by callers.
func (i Item) Components() []Component { return i.components }

// Join returns a new Item with an additional trailing component.
func (i Item) Join(c Component) Item {
	cs := make([]Component, len(i.components)+1)
	copy(cs, i.components)
	cs[len(i.components)] = c
	return Item{components: cs}
}

// Parent returns the item with its last component removed, and whether
// there was a component to remove (the crate root has no parent).
func (i Item) Parent() (Item, bool) {
	if len(i.components) == 0 {
		return Item{}, false
	}
	return Item{components: i.components[:len(i.components)-1]}, true
}

// Last returns the final path component, if any.
func (i Item) Last() (Component, bool) {
	if len(i.components) == 0 {
		return Component{}, false
	}
	return i.components[len(i.components)-1], true
}

// IsAncestorOf reports whether i is a strict prefix of other's component
// sequence.
func (i Item) IsAncestorOf(other Item) bool {
	if len(i.components) >= len(other.components) {
		return false
	}
	for idx, c := range i.components {
		if c != other.components[idx] {
			return false
		}
	}
	return true
}

// Equal reports whether two items have identical component sequences.
func (i Item) Equal(other Item) bool {
	if len(i.components) != len(other.components) {
		return false
	}
	for idx, c := range i.components {
		if c != other.components[idx] {
			return false
		}
	}
	return true
}

// Hash computes the item's 64-bit content hash: the TYPE tag hashed with
// each component in order, per spec.md §3.
func (i Item) Hash() Hash {
	d := newDigest().writeTag(tagType)
	for _, c := range i.components {
		d = c.writeTo(d)
	}
	return d.sum()
}

// InstanceHash composes this item's hash as a type with name's hash as
// an instance function name, per spec.md's instance_fn_hash.
func (i Item) InstanceHash(name string) Hash {
	return Mix(i.Hash(), HashBytes(name))
}

func (i Item) String() string {
	parts := make([]string, len(i.components))
	for idx, c := range i.components {
		parts[idx] = c.String()
	}
	return strings.Join(parts, "::")
}

// ID uniquely identifies an Item once interned in a Pool.
type ID uint32

// InvalidID marks "no item", the zero value of ID being reserved so a
// zero-valued struct field reads unambiguously as "unset."
const InvalidID ID = 0
