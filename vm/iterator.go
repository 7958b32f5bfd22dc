package vm

import "github.com/rune-rs/rune/value"

// iteratorState is the payload a value.Iterator wraps: an eagerly
// converted, stateful cursor produced by protocol::INTO_ITER, polled
// one element at a time by protocol::NEXT. Grounded on the for-loop
// lowering in compile/control.go, whose INTO_ITER/NEXT pair this type
// exists to drive on the VM side.
type iteratorState interface {
	next() (value.Value, bool)
}

type vecIterator struct {
	items *value.Shared[[]value.Value]
	idx   int
}

func (it *vecIterator) next() (value.Value, bool) {
	g, err := it.items.Ref()
	if err != nil {
		return value.Value{}, false
	}
	defer g.Release()
	items := g.Get()
	if it.idx >= len(items) {
		return value.Value{}, false
	}
	v := items[it.idx]
	it.idx++
	return v, true
}

type rangeIterator struct {
	cur       int64
	end       int64
	hasEnd    bool
	inclusive bool
}

func (it *rangeIterator) next() (value.Value, bool) {
	if it.hasEnd {
		if it.inclusive && it.cur > it.end {
			return value.Value{}, false
		}
		if !it.inclusive && it.cur >= it.end {
			return value.Value{}, false
		}
	}
	v := value.Integer(it.cur)
	it.cur++
	return v, true
}

type runeIterator struct {
	runes []rune
	idx   int
}

func (it *runeIterator) next() (value.Value, bool) {
	if it.idx >= len(it.runes) {
		return value.Value{}, false
	}
	v := value.Char(it.runes[it.idx])
	it.idx++
	return v, true
}
