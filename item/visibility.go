package item

// Visibility is the visibility declared on an item.
type Visibility byte

const (
	// Inherited means "private to the immediately enclosing item," the
	// default when no visibility keyword is written.
	Inherited Visibility = iota
	// Public (`pub`) is visible from anywhere.
	Public
	// Crate (`pub(crate)`) is visible anywhere within the current crate.
	Crate
	// Super (`pub(super)`) is visible from the parent module and its
	// descendants.
	Super
	// SelfValue (`pub(self)`) is equivalent to Inherited, spelled
	// explicitly.
	SelfValue
)

// Visible reports whether an item declared at `to` with visibility `vis`
// and parent `toParent` can be referenced from the item `from`, per
// spec.md §4.3's is_visible(from, to) relation.
func Visible(vis Visibility, from, toParent Item) bool {
	switch vis {
	case Inherited, SelfValue:
		return from.Equal(toParent)
	case Super:
		grandparent, ok := toParent.Parent()
		if !ok {
			return false
		}
		return grandparent.Equal(from) || grandparent.IsAncestorOf(from)
	case Crate, Public:
		return true
	default:
		return false
	}
}
