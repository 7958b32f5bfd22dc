package vm

import (
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// execMatch implements the Match instruction group: every form pops the
// scrutinee copy compile/pattern.go pushed and pushes a bool, per
// compileRefutableBindAt's checkOrFail contract.
func (m *VM) execMatch(fr *frame, inst unit.Inst) error {
	v := fr.pop()
	var result bool
	switch inst.Op {
	case unit.OpEqInlineValue:
		result = inlineEquals(inst.Inline, v)
	case unit.OpMatchType:
		result = v.TypeHash() == inst.Hash
	case unit.OpMatchVariant:
		rtti, _, _, _, ok := v.AsVariant()
		result = ok && rtti.Hash == inst.Hash
	case unit.OpMatchTuple:
		result = matchTuple(v, inst.Hash, int(inst.Count), inst.Exact)
	case unit.OpMatchSequence:
		result = matchSequence(v, int(inst.Count), inst.Exact)
	case unit.OpMatchObject:
		names := m.unit.StaticObjectKeysAt(inst.Slot)
		result = matchObject(v, inst.Hash, names, inst.Exact)
	}
	fr.push(value.Bool(result))
	return nil
}

func inlineEquals(inline unit.InlineValue, v value.Value) bool {
	switch inline.Kind {
	case unit.InlineUnit:
		return v.IsUnit()
	case unit.InlineBool:
		b, ok := v.AsBool()
		return ok && b == inline.Bool
	case unit.InlineByte:
		b, ok := v.AsByte()
		return ok && b == inline.Byte
	case unit.InlineChar:
		c, ok := v.AsChar()
		return ok && c == inline.Char
	case unit.InlineInteger:
		i, ok := v.AsInteger()
		return ok && i == inline.Integer
	case unit.InlineFloat:
		f, ok := v.AsFloat()
		return ok && f == inline.Float
	default:
		return false
	}
}

// matchTuple tests a typed tuple-shaped pattern (tuple struct or tuple
// variant): hash identifies the specific struct/variant, count/exact its
// expected arity.
func matchTuple(v value.Value, hash item.Hash, count int, exact bool) bool {
	switch v.Kind() {
	case value.KindTupleStruct:
		rtti, items, ok := v.AsTupleStruct()
		if !ok || rtti.Hash != hash {
			return false
		}
		return arityMatches(lenShared(items), count, exact)
	case value.KindVariant:
		rtti, kind, tup, _, ok := v.AsVariant()
		if !ok || kind != value.VariantTuple || rtti.Hash != hash {
			return false
		}
		return arityMatches(lenShared(tup), count, exact)
	default:
		return false
	}
}

// matchSequence tests an untyped tuple/vec pattern (no Path, so any
// fixed-length compound of the right arity matches regardless of type).
func matchSequence(v value.Value, count int, exact bool) bool {
	switch v.Kind() {
	case value.KindTuple:
		s, _ := v.AsTuple()
		return arityMatches(lenShared(s), count, exact)
	case value.KindVec:
		s, _ := v.AsVec()
		return arityMatches(lenShared(s), count, exact)
	default:
		return false
	}
}

// matchObject tests a named-field pattern: hash==0 means an untyped
// object-literal pattern (any Object with the named keys present);
// hash!=0 additionally requires v be the matching struct/variant.
func matchObject(v value.Value, hash item.Hash, names []string, exact bool) bool {
	var obj *value.Object
	switch v.Kind() {
	case value.KindObject:
		if hash != 0 {
			return false
		}
		s, _ := v.AsObject()
		obj = derefObject(s)
	case value.KindStruct:
		rtti, s, ok := v.AsStruct()
		if !ok || (hash != 0 && rtti.Hash != hash) {
			return false
		}
		obj = derefObject(s)
	case value.KindVariant:
		rtti, kind, _, fields, ok := v.AsVariant()
		if !ok || kind != value.VariantObject || (hash != 0 && rtti.Hash != hash) {
			return false
		}
		obj = derefObject(fields)
	default:
		return false
	}
	if obj == nil {
		return false
	}
	for _, n := range names {
		if _, found := obj.Get(n); !found {
			return false
		}
	}
	if exact && obj.Len() != len(names) {
		return false
	}
	return true
}

func lenShared(s *value.Shared[[]value.Value]) int {
	g, err := s.Ref()
	if err != nil {
		return -1
	}
	defer g.Release()
	return len(g.Get())
}

func derefObject(s *value.Shared[*value.Object]) *value.Object {
	g, err := s.Ref()
	if err != nil {
		return nil
	}
	defer g.Release()
	return g.Get()
}

func arityMatches(n, count int, exact bool) bool {
	if n < 0 {
		return false
	}
	if exact {
		return n == count
	}
	return n >= count
}
