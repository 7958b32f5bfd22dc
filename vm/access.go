package vm

import (
	"context"

	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// execAccess implements the Access instruction group: computed
// (IndexGet/Set) and fixed (TupleIndexGet/Set, ObjectIndexGet/Set)
// field access. The *Set forms follow compile/expr.go's compileAssign
// stack contract: they consume the container and the new value and push
// the (mutated) container back, not Unit — compileAssign relies on the
// enclosing StmtExpr to discard it.
func (m *VM) execAccess(ctx context.Context, fr *frame, inst unit.Inst) error {
	switch inst.Op {
	case unit.OpIndexGet:
		idx := fr.pop()
		container := fr.pop()
		v, err := m.indexGet(ctx, container, idx)
		if err != nil {
			return err
		}
		fr.push(v)
	case unit.OpIndexSet:
		val := fr.pop()
		idx := fr.pop()
		container := fr.pop()
		if err := m.indexSet(ctx, container, idx, val); err != nil {
			return err
		}
		fr.push(container)
	case unit.OpTupleIndexGet:
		container := fr.pop()
		v, err := m.tupleIndexGet(container, inst.Slot)
		if err != nil {
			return err
		}
		fr.push(v)
	case unit.OpTupleIndexSet:
		val := fr.pop()
		container := fr.pop()
		if err := m.tupleIndexSet(container, inst.Slot, val); err != nil {
			return err
		}
		fr.push(container)
	case unit.OpObjectIndexGet:
		container := fr.pop()
		key := m.unit.StaticString(inst.Slot)
		v, err := m.objectIndexGet(ctx, container, key)
		if err != nil {
			return err
		}
		fr.push(v)
	case unit.OpObjectIndexSet:
		val := fr.pop()
		container := fr.pop()
		key := m.unit.StaticString(inst.Slot)
		if err := m.objectIndexSet(container, key, val); err != nil {
			return err
		}
		fr.push(container)
	}
	return nil
}

func (m *VM) indexGet(ctx context.Context, container, idx value.Value) (value.Value, error) {
	switch container.Kind() {
	case value.KindVec:
		s, _ := container.AsVec()
		i, ok := idx.AsInteger()
		if !ok {
			return value.Value{}, newPanic("vec index must be an integer")
		}
		g, err := s.Ref()
		if err != nil {
			return value.Value{}, accessErr(err)
		}
		defer g.Release()
		items := g.Get()
		if i < 0 || int(i) >= len(items) {
			return value.Value{}, &Error{Kind: MissingIndex, Field: "out of bounds"}
		}
		v := items[i]
		m.retain(v)
		return v, nil
	case value.KindTuple:
		s, _ := container.AsTuple()
		i, ok := idx.AsInteger()
		if !ok {
			return value.Value{}, newPanic("tuple index must be an integer")
		}
		g, err := s.Ref()
		if err != nil {
			return value.Value{}, accessErr(err)
		}
		defer g.Release()
		items := g.Get()
		if i < 0 || int(i) >= len(items) {
			return value.Value{}, &Error{Kind: MissingIndex, Field: "out of bounds"}
		}
		v := items[i]
		m.retain(v)
		return v, nil
	case value.KindObject:
		s, _ := container.AsObject()
		key, ok := indexKeyString(idx)
		if !ok {
			return value.Value{}, newPanic("object index must be a string")
		}
		g, err := s.Ref()
		if err != nil {
			return value.Value{}, accessErr(err)
		}
		defer g.Release()
		v, found := g.Get().Get(key)
		if !found {
			return value.Value{}, &Error{Kind: MissingField, Field: key}
		}
		m.retain(v)
		return v, nil
	default:
		composed := item.Mix(container.TypeHash(), item.ProtocolIndexGet)
		return m.dispatchCall(ctx, composed, []value.Value{container, idx})
	}
}

func (m *VM) indexSet(ctx context.Context, container, idx, val value.Value) error {
	switch container.Kind() {
	case value.KindVec:
		s, _ := container.AsVec()
		i, ok := idx.AsInteger()
		if !ok {
			return newPanic("vec index must be an integer")
		}
		g, err := s.Mut()
		if err != nil {
			return accessErr(err)
		}
		defer g.Release()
		items := g.Get()
		if i < 0 || int(i) >= len(*items) {
			return &Error{Kind: MissingIndex, Field: "out of bounds"}
		}
		m.release((*items)[i])
		(*items)[i] = val
		return nil
	case value.KindObject:
		s, _ := container.AsObject()
		key, ok := indexKeyString(idx)
		if !ok {
			return newPanic("object index must be a string")
		}
		g, err := s.Mut()
		if err != nil {
			return accessErr(err)
		}
		defer g.Release()
		obj := *g.Get()
		if old, found := obj.Get(key); found {
			m.release(old)
		}
		obj.Set(key, val)
		return nil
	default:
		composed := item.Mix(container.TypeHash(), item.ProtocolIndexSet)
		_, err := m.dispatchCall(ctx, composed, []value.Value{container, idx, val})
		return err
	}
}

func indexKeyString(idx value.Value) (string, bool) {
	s, ok := idx.AsString()
	if !ok {
		return "", false
	}
	g, err := s.Ref()
	if err != nil {
		return "", false
	}
	defer g.Release()
	return g.Get(), true
}

// tupleIndexGet reads element Slot from any fixed-arity compound:
// Tuple, Vec (pattern destructuring treats a vec pattern the same way),
// TupleStruct, or a tuple-shaped Variant.
func (m *VM) tupleIndexGet(container value.Value, slot uint32) (value.Value, error) {
	items, err := m.tupleItems(container)
	if err != nil {
		return value.Value{}, err
	}
	g, err := items.Ref()
	if err != nil {
		return value.Value{}, accessErr(err)
	}
	defer g.Release()
	vals := g.Get()
	if int(slot) >= len(vals) {
		return value.Value{}, &Error{Kind: MissingIndex, Field: "tuple field out of range"}
	}
	v := vals[slot]
	m.retain(v)
	return v, nil
}

func (m *VM) tupleIndexSet(container value.Value, slot uint32, val value.Value) error {
	items, err := m.tupleItems(container)
	if err != nil {
		return err
	}
	g, err := items.Mut()
	if err != nil {
		return accessErr(err)
	}
	defer g.Release()
	vals := g.Get()
	if int(slot) >= len(*vals) {
		return &Error{Kind: MissingIndex, Field: "tuple field out of range"}
	}
	m.release((*vals)[slot])
	(*vals)[slot] = val
	return nil
}

func (m *VM) tupleItems(container value.Value) (*value.Shared[[]value.Value], error) {
	switch container.Kind() {
	case value.KindTuple:
		s, _ := container.AsTuple()
		return s, nil
	case value.KindVec:
		s, _ := container.AsVec()
		return s, nil
	case value.KindTupleStruct:
		_, s, _ := container.AsTupleStruct()
		return s, nil
	case value.KindVariant:
		_, kind, tup, _, _ := container.AsVariant()
		if kind == value.VariantTuple && tup != nil {
			return tup, nil
		}
	}
	return nil, newPanic("value is not a tuple-shaped compound")
}

// objectIndexGet reads key from any named-field compound: Object,
// Struct, or an object-shaped Variant.
func (m *VM) objectIndexGet(ctx context.Context, container value.Value, key string) (value.Value, error) {
	obj, err := m.objectOf(container)
	if err != nil {
		return value.Value{}, err
	}
	g, err := obj.Ref()
	if err != nil {
		return value.Value{}, accessErr(err)
	}
	defer g.Release()
	v, found := g.Get().Get(key)
	if !found {
		return value.Value{}, &Error{Kind: MissingField, Field: key}
	}
	m.retain(v)
	return v, nil
}

func (m *VM) objectIndexSet(container value.Value, key string, val value.Value) error {
	obj, err := m.objectOf(container)
	if err != nil {
		return err
	}
	g, err := obj.Mut()
	if err != nil {
		return accessErr(err)
	}
	defer g.Release()
	o := *g.Get()
	if old, found := o.Get(key); found {
		m.release(old)
	}
	o.Set(key, val)
	return nil
}

func (m *VM) objectOf(container value.Value) (*value.Shared[*value.Object], error) {
	switch container.Kind() {
	case value.KindObject:
		s, _ := container.AsObject()
		return s, nil
	case value.KindStruct:
		_, s, _ := container.AsStruct()
		return s, nil
	case value.KindVariant:
		_, kind, _, fields, _ := container.AsVariant()
		if kind == value.VariantObject && fields != nil {
			return fields, nil
		}
	}
	return nil, newPanic("value has no named fields")
}
