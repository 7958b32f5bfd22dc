package item

// Pool interns Items, handing out stable IDs so later compiler passes can
// associate metadata with an item without repeatedly hashing or
// re-allocating its component slice.
//
// Grounded on original_source/crates/rune-core/src/item/component.rs and
// .../item_pool.rs: items are content-addressed, so the same path
// requested twice returns the same ID.
type Pool struct {
	items []Item
	byKey map[string]ID
}

// NewPool returns an empty item pool. Index 0 is left unused so
// InvalidID (0) never collides with a real entry; the first interned
// item gets ID 1.
func NewPool() *Pool {
	p := &Pool{byKey: map[string]ID{}}
	p.items = append(p.items, Item{}) // index 0 is unused, keeps IDs 1-based
	return p
}

// Intern returns the stable ID for it, allocating a new one if it hasn't
// been seen before.
func (p *Pool) Intern(it Item) ID {
	key := it.String() + "#" + itoa(len(it.components))
	if id, ok := p.byKey[key]; ok {
		return id
	}
	id := ID(len(p.items))
	p.items = append(p.items, it)
	p.byKey[key] = id
	return id
}

// Get resolves an interned ID back to its Item. Panics on an ID never
// returned by Intern, since that indicates a compiler bug rather than a
// recoverable user error.
func (p *Pool) Get(id ID) Item {
	if int(id) <= 0 || int(id) >= len(p.items) {
		panic("item: invalid pool id")
	}
	return p.items[id]
}

// Len reports how many distinct items are interned (excluding the
// reserved zero slot).
func (p *Pool) Len() int { return len(p.items) - 1 }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
