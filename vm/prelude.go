package vm

import (
	"context"

	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/value"
)

// NewDefaultRuntimeContext returns a RuntimeContext pre-seeded with the
// protocol::INTO_ITER / protocol::NEXT pair every `for` loop compiles
// down to (compile/control.go's compileFor).
func NewDefaultRuntimeContext() *RuntimeContext {
	rt := NewRuntimeContext()
	rt.Register(item.ProtocolIntoIter, nativeIntoIter)
	rt.Register(item.ProtocolNext, nativeNext)
	return rt
}

// nativeIntoIter converts Vec, Range, or String into an
// iteratorState-backed value.Iterator; Iterator/Generator/Stream values
// are already iterable and pass through unchanged. Anything else falls
// back to the value's own protocol::INTO_ITER implementation, if any.
func nativeIntoIter(ctx context.Context, m *VM, args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind() {
	case value.KindVec:
		s, _ := v.AsVec()
		s.IncRef()
		return value.Iterator(&vecIterator{items: s}), nil
	case value.KindRange:
		s, _ := v.AsRange()
		g, err := s.Ref()
		if err != nil {
			return value.Value{}, accessErr(err)
		}
		r := g.Get()
		g.Release()
		it := &rangeIterator{inclusive: r.Inclusive}
		if r.HasStart {
			n, _ := r.Start.AsInteger()
			it.cur = n
		}
		if r.HasEnd {
			n, _ := r.End.AsInteger()
			it.end = n
			it.hasEnd = true
		}
		return value.Iterator(it), nil
	case value.KindString:
		s, _ := v.AsString()
		g, err := s.Ref()
		if err != nil {
			return value.Value{}, accessErr(err)
		}
		runes := []rune(g.Get())
		g.Release()
		return value.Iterator(&runeIterator{runes: runes}), nil
	case value.KindIterator, value.KindGenerator, value.KindStream:
		return v, nil
	default:
		composed := item.Mix(v.TypeHash(), item.ProtocolIntoIter)
		return m.dispatchCall(ctx, composed, args)
	}
}

// nativeNext advances an Iterator (synchronous, eagerly-converted
// cursor) or a Generator/Stream (suspended function body, driven one
// resume at a time), producing the GeneratorState-shaped done-or-value
// result OpJumpIfBranch expects.
func nativeNext(ctx context.Context, m *VM, args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind() {
	case value.KindIterator:
		data, _ := v.IteratorData()
		it, ok := data.(iteratorState)
		if !ok {
			return value.Value{}, newPanic("malformed iterator value")
		}
		val, ok := it.next()
		if !ok {
			return value.GeneratorStateVal(value.GeneratorState{Done: true}), nil
		}
		return value.GeneratorStateVal(value.GeneratorState{Value: val}), nil
	case value.KindGenerator, value.KindStream:
		var data any
		if v.Kind() == value.KindGenerator {
			data, _ = v.GeneratorData()
		} else {
			data, _ = v.StreamData()
		}
		g, ok := data.(*generatorState)
		if !ok {
			return value.Value{}, newPanic("malformed generator value")
		}
		val, done, err := g.resume(ctx)
		if err != nil {
			return value.Value{}, err
		}
		return value.GeneratorStateVal(value.GeneratorState{Done: done, Value: val}), nil
	default:
		return value.Value{}, newPanic("`next` called on a non-iterator value")
	}
}
