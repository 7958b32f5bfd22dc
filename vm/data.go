package vm

import (
	"context"

	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// execOther handles every Inst group not already dispatched inline by
// runBody's switch (stack/control/call): data construction, field and
// index access, pattern matching, and arithmetic. Split out of runBody's
// own switch purely for file size; still one instruction, one case.
func (m *VM) execOther(ctx context.Context, fr *frame, inst unit.Inst) error {
	switch inst.Op {
	case unit.OpVec:
		items := fr.popN(int(inst.Count))
		if err := m.chargeAlloc(ctx, 1); err != nil {
			return err
		}
		fr.push(value.Vec(value.NewShared(items)))
	case unit.OpTuple:
		items := fr.popN(int(inst.Count))
		if err := m.chargeAlloc(ctx, 1); err != nil {
			return err
		}
		fr.push(value.Tuple(value.NewShared(items)))
	case unit.OpObject:
		vals := fr.popN(int(inst.Count))
		names := m.unit.StaticObjectKeysAt(inst.Slot)
		obj := value.NewObject()
		for i, n := range names {
			if i < len(vals) {
				obj.Set(n, vals[i])
			}
		}
		if err := m.chargeAlloc(ctx, 1); err != nil {
			return err
		}
		fr.push(value.Obj(value.NewShared(obj)))
	case unit.OpStruct:
		vals := fr.popN(int(inst.Count))
		names := m.unit.StaticObjectKeysAt(inst.Slot)
		obj := value.NewObject()
		for i, n := range names {
			if i < len(vals) {
				obj.Set(n, vals[i])
			}
		}
		rtti := m.unit.StructRtti[inst.Hash]
		if err := m.chargeAlloc(ctx, 1); err != nil {
			return err
		}
		fr.push(value.Struct(rtti, value.NewShared(obj)))
	case unit.OpTupleStruct:
		vals := fr.popN(int(inst.Count))
		rtti := m.unit.StructRtti[inst.Hash]
		if err := m.chargeAlloc(ctx, 1); err != nil {
			return err
		}
		fr.push(value.TupleStruct(rtti, value.NewShared(vals)))
	case unit.OpVariantUnit:
		rtti := m.unit.VariantRtti[inst.Hash]
		fr.push(value.VariantUnitVal(rtti))
	case unit.OpVariantTuple:
		vals := fr.popN(int(inst.Count))
		rtti := m.unit.VariantRtti[inst.Hash]
		if err := m.chargeAlloc(ctx, 1); err != nil {
			return err
		}
		fr.push(value.VariantTupleVal(rtti, value.NewShared(vals)))
	case unit.OpVariantObject:
		vals := fr.popN(int(inst.Count))
		names := m.unit.StaticObjectKeysAt(inst.Slot)
		obj := value.NewObject()
		for i, n := range names {
			if i < len(vals) {
				obj.Set(n, vals[i])
			}
		}
		rtti := m.unit.VariantRtti[inst.Hash]
		if err := m.chargeAlloc(ctx, 1); err != nil {
			return err
		}
		fr.push(value.VariantObjectVal(rtti, value.NewShared(obj)))
	case unit.OpString:
		s := m.unit.StaticString(inst.Slot)
		fr.push(value.String(value.NewShared(s)))
	case unit.OpBytes:
		b := m.unit.StaticBytesAt(inst.Slot)
		fr.push(value.Bytes(value.NewShared(append([]byte(nil), b...))))
	case unit.OpRange:
		return m.execRange(fr, inst)
	case unit.OpStringConcat:
		parts := fr.popN(int(inst.Count))
		var out string
		for _, p := range parts {
			s, err := m.displayString(ctx, p)
			if err != nil {
				return err
			}
			out += s
		}
		fr.push(value.String(value.NewShared(out)))
	case unit.OpFormat:
		// No literal syntax reaches the assembler with an explicit format
		// spec yet (see DESIGN.md); nothing currently emits this op.
		return newPanic("format instruction not implemented")

	case unit.OpIndexGet, unit.OpIndexSet, unit.OpTupleIndexGet, unit.OpTupleIndexSet,
		unit.OpObjectIndexGet, unit.OpObjectIndexSet:
		return m.execAccess(ctx, fr, inst)

	case unit.OpEqInlineValue, unit.OpMatchType, unit.OpMatchVariant,
		unit.OpMatchTuple, unit.OpMatchObject, unit.OpMatchSequence:
		return m.execMatch(fr, inst)

	case unit.OpArith:
		return m.execArith(ctx, fr, inst)

	default:
		return newPanic("unsupported instruction")
	}
	return nil
}

func (m *VM) execRange(fr *frame, inst unit.Inst) error {
	var r value.Range
	switch inst.Range {
	case unit.RangeBoth:
		end := fr.pop()
		start := fr.pop()
		r = value.Range{Start: &start, End: &end, HasStart: true, HasEnd: true}
	case unit.RangeFrom:
		start := fr.pop()
		r = value.Range{Start: &start, HasStart: true}
	case unit.RangeTo:
		end := fr.pop()
		r = value.Range{End: &end, HasEnd: true}
	case unit.RangeFull:
	}
	fr.push(value.RangeVal(value.NewShared(r)))
	return nil
}
