package vm

import (
	"context"
	"math"
	"strconv"

	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// execArith implements OpArith. Unary kinds (Not, Neg) pop one operand;
// every other kind pops rhs then lhs, per compile/expr.go's
// compileBinaryExpr, which evaluates and pushes lhs before rhs.
func (m *VM) execArith(ctx context.Context, fr *frame, inst unit.Inst) error {
	if inst.Arith == unit.ArithNot || inst.Arith == unit.ArithNeg {
		v := fr.pop()
		out, err := m.execUnary(ctx, inst.Arith, v)
		if err != nil {
			return err
		}
		fr.push(out)
		return nil
	}

	rhs := fr.pop()
	lhs := fr.pop()
	out, err := m.execBinary(ctx, inst.Arith, lhs, rhs)
	if err != nil {
		return err
	}
	fr.push(out)
	return nil
}

func (m *VM) execUnary(ctx context.Context, kind unit.ArithKind, v value.Value) (value.Value, error) {
	switch kind {
	case unit.ArithNot:
		b, ok := v.AsBool()
		if !ok {
			return value.Value{}, newPanic("`!` requires a bool")
		}
		return value.Bool(!b), nil
	case unit.ArithNeg:
		if i, ok := v.AsInteger(); ok {
			return value.Integer(-i), nil
		}
		if f, ok := v.AsFloat(); ok {
			return value.Float(-f), nil
		}
		if h, ok := protocolHashForArith(kind); ok {
			composed := item.Mix(v.TypeHash(), h)
			return m.dispatchCall(ctx, composed, []value.Value{v})
		}
		return value.Value{}, newPanic("`-` requires a number")
	}
	return value.Value{}, newPanic("unsupported unary operator")
}

func (m *VM) execBinary(ctx context.Context, kind unit.ArithKind, lhs, rhs value.Value) (value.Value, error) {
	switch kind {
	case unit.ArithAnd:
		a, aok := lhs.AsBool()
		b, bok := rhs.AsBool()
		if !aok || !bok {
			return value.Value{}, newPanic("`&&` requires bools")
		}
		return value.Bool(a && b), nil
	case unit.ArithOr:
		a, aok := lhs.AsBool()
		b, bok := rhs.AsBool()
		if !aok || !bok {
			return value.Value{}, newPanic("`||` requires bools")
		}
		return value.Bool(a || b), nil

	case unit.ArithEq:
		eq, err := m.valuesEqual(ctx, lhs, rhs)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(eq), nil
	case unit.ArithNeq:
		eq, err := m.valuesEqual(ctx, lhs, rhs)
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(!eq), nil

	case unit.ArithLt, unit.ArithLte, unit.ArithGt, unit.ArithGte:
		return m.execCompare(ctx, kind, lhs, rhs)

	case unit.ArithAdd:
		return m.execAdd(ctx, lhs, rhs)

	case unit.ArithSub, unit.ArithMul, unit.ArithDiv, unit.ArithRem:
		return m.execNumeric(ctx, kind, lhs, rhs)

	case unit.ArithShl, unit.ArithShr, unit.ArithBitAnd, unit.ArithBitOr, unit.ArithBitXor:
		return m.execBitwise(kind, lhs, rhs)
	}
	return value.Value{}, newPanic("unsupported binary operator")
}

func (m *VM) execAdd(ctx context.Context, lhs, rhs value.Value) (value.Value, error) {
	if li, ok := lhs.AsInteger(); ok {
		if ri, ok := rhs.AsInteger(); ok {
			return value.Integer(li + ri), nil
		}
	}
	if lf, ok := lhs.AsFloat(); ok {
		if rf, ok := rhs.AsFloat(); ok {
			return value.Float(lf + rf), nil
		}
	}
	if ls, ok := lhs.AsString(); ok {
		if rs, ok := rhs.AsString(); ok {
			lg, err := ls.Ref()
			if err != nil {
				return value.Value{}, accessErr(err)
			}
			rg, err := rs.Ref()
			if err != nil {
				lg.Release()
				return value.Value{}, accessErr(err)
			}
			out := lg.Get() + rg.Get()
			lg.Release()
			rg.Release()
			if err := m.chargeAlloc(ctx, 1); err != nil {
				return value.Value{}, err
			}
			return value.String(value.NewShared(out)), nil
		}
	}
	if lv, ok := lhs.AsVec(); ok {
		if rv, ok := rhs.AsVec(); ok {
			lg, err := lv.Ref()
			if err != nil {
				return value.Value{}, accessErr(err)
			}
			rg, err := rv.Ref()
			if err != nil {
				lg.Release()
				return value.Value{}, accessErr(err)
			}
			out := append(append([]value.Value(nil), lg.Get()...), rg.Get()...)
			lg.Release()
			rg.Release()
			for _, v := range out {
				m.retain(v)
			}
			if err := m.chargeAlloc(ctx, 1); err != nil {
				return value.Value{}, err
			}
			return value.Vec(value.NewShared(out)), nil
		}
	}
	composed := item.Mix(lhs.TypeHash(), item.ProtocolAdd)
	return m.dispatchCall(ctx, composed, []value.Value{lhs, rhs})
}

func (m *VM) execNumeric(ctx context.Context, kind unit.ArithKind, lhs, rhs value.Value) (value.Value, error) {
	if li, ok := lhs.AsInteger(); ok {
		if ri, ok := rhs.AsInteger(); ok {
			switch kind {
			case unit.ArithSub:
				return value.Integer(li - ri), nil
			case unit.ArithMul:
				return value.Integer(li * ri), nil
			case unit.ArithDiv:
				if ri == 0 {
					return value.Value{}, &Error{Kind: DivideByZero}
				}
				return value.Integer(li / ri), nil
			case unit.ArithRem:
				if ri == 0 {
					return value.Value{}, &Error{Kind: DivideByZero}
				}
				return value.Integer(li % ri), nil
			}
		}
	}
	if lf, ok := lhs.AsFloat(); ok {
		if rf, ok := rhs.AsFloat(); ok {
			switch kind {
			case unit.ArithSub:
				return value.Float(lf - rf), nil
			case unit.ArithMul:
				return value.Float(lf * rf), nil
			case unit.ArithDiv:
				if rf == 0 {
					return value.Value{}, &Error{Kind: DivideByZero}
				}
				return value.Float(lf / rf), nil
			case unit.ArithRem:
				if rf == 0 {
					return value.Value{}, &Error{Kind: DivideByZero}
				}
				return value.Float(math.Mod(lf, rf)), nil
			}
		}
	}
	if h, ok := protocolHashForArith(kind); ok {
		composed := item.Mix(lhs.TypeHash(), h)
		return m.dispatchCall(ctx, composed, []value.Value{lhs, rhs})
	}
	return value.Value{}, newPanic("operands are not numeric")
}

func (m *VM) execBitwise(kind unit.ArithKind, lhs, rhs value.Value) (value.Value, error) {
	li, lok := lhs.AsInteger()
	ri, rok := rhs.AsInteger()
	if !lok || !rok {
		return value.Value{}, newPanic("bitwise operators require integers")
	}
	switch kind {
	case unit.ArithShl:
		return value.Integer(li << uint64(ri)), nil
	case unit.ArithShr:
		return value.Integer(li >> uint64(ri)), nil
	case unit.ArithBitAnd:
		return value.Integer(li & ri), nil
	case unit.ArithBitOr:
		return value.Integer(li | ri), nil
	case unit.ArithBitXor:
		return value.Integer(li ^ ri), nil
	}
	return value.Value{}, newPanic("unsupported bitwise operator")
}

func (m *VM) execCompare(ctx context.Context, kind unit.ArithKind, lhs, rhs value.Value) (value.Value, error) {
	c, err := m.compareValues(ctx, lhs, rhs)
	if err != nil {
		return value.Value{}, err
	}
	switch kind {
	case unit.ArithLt:
		return value.Bool(c < 0), nil
	case unit.ArithLte:
		return value.Bool(c <= 0), nil
	case unit.ArithGt:
		return value.Bool(c > 0), nil
	case unit.ArithGte:
		return value.Bool(c >= 0), nil
	}
	return value.Value{}, newPanic("unsupported comparison operator")
}

func (m *VM) compareValues(ctx context.Context, lhs, rhs value.Value) (int, error) {
	if li, ok := lhs.AsInteger(); ok {
		if ri, ok := rhs.AsInteger(); ok {
			switch {
			case li < ri:
				return -1, nil
			case li > ri:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if lf, ok := lhs.AsFloat(); ok {
		if rf, ok := rhs.AsFloat(); ok {
			switch {
			case lf < rf:
				return -1, nil
			case lf > rf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	if ls, ok := lhs.AsString(); ok {
		if rs, ok := rhs.AsString(); ok {
			lg, err := ls.Ref()
			if err != nil {
				return 0, accessErr(err)
			}
			rg, err := rs.Ref()
			if err != nil {
				lg.Release()
				return 0, accessErr(err)
			}
			a, b := lg.Get(), rg.Get()
			lg.Release()
			rg.Release()
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	composed := item.Mix(lhs.TypeHash(), item.ProtocolCmp)
	res, err := m.dispatchCall(ctx, composed, []value.Value{lhs, rhs})
	if err != nil {
		return 0, err
	}
	n, ok := res.AsInteger()
	if !ok {
		return 0, newPanic("protocol::CMP must return an integer")
	}
	return int(n), nil
}

// valuesEqual implements structural equality: inline kinds compare
// directly, heap compounds compare element-wise, anything else falls
// back to protocol::EQ.
func (m *VM) valuesEqual(ctx context.Context, lhs, rhs value.Value) (bool, error) {
	if lhs.Kind() != rhs.Kind() {
		return false, nil
	}
	switch lhs.Kind() {
	case value.KindUnit:
		return true, nil
	case value.KindBool:
		a, _ := lhs.AsBool()
		b, _ := rhs.AsBool()
		return a == b, nil
	case value.KindByte:
		a, _ := lhs.AsByte()
		b, _ := rhs.AsByte()
		return a == b, nil
	case value.KindChar:
		a, _ := lhs.AsChar()
		b, _ := rhs.AsChar()
		return a == b, nil
	case value.KindInteger:
		a, _ := lhs.AsInteger()
		b, _ := rhs.AsInteger()
		return a == b, nil
	case value.KindFloat:
		a, _ := lhs.AsFloat()
		b, _ := rhs.AsFloat()
		return a == b, nil
	case value.KindString:
		ls, _ := lhs.AsString()
		rs, _ := rhs.AsString()
		lg, err := ls.Ref()
		if err != nil {
			return false, accessErr(err)
		}
		rg, err := rs.Ref()
		if err != nil {
			lg.Release()
			return false, accessErr(err)
		}
		eq := lg.Get() == rg.Get()
		lg.Release()
		rg.Release()
		return eq, nil
	case value.KindVec, value.KindTuple:
		var ls, rs *value.Shared[[]value.Value]
		if lhs.Kind() == value.KindVec {
			ls, _ = lhs.AsVec()
			rs, _ = rhs.AsVec()
		} else {
			ls, _ = lhs.AsTuple()
			rs, _ = rhs.AsTuple()
		}
		return m.equalItemSlices(ctx, ls, rs)
	case value.KindTupleStruct:
		lr, ls, _ := lhs.AsTupleStruct()
		rr, rs, _ := rhs.AsTupleStruct()
		if lr.Hash != rr.Hash {
			return false, nil
		}
		return m.equalItemSlices(ctx, ls, rs)
	case value.KindStruct:
		lr, ls, _ := lhs.AsStruct()
		rr, rs, _ := rhs.AsStruct()
		if lr.Hash != rr.Hash {
			return false, nil
		}
		return m.equalObjects(ctx, ls, rs)
	case value.KindObject:
		ls, _ := lhs.AsObject()
		rs, _ := rhs.AsObject()
		return m.equalObjects(ctx, ls, rs)
	case value.KindVariant:
		lr, lk, ltup, lobj, _ := lhs.AsVariant()
		rr, rk, rtup, robj, _ := rhs.AsVariant()
		if lr.Hash != rr.Hash || lk != rk {
			return false, nil
		}
		switch lk {
		case value.VariantTuple:
			return m.equalItemSlices(ctx, ltup, rtup)
		case value.VariantObject:
			return m.equalObjects(ctx, lobj, robj)
		default:
			return true, nil
		}
	default:
		composed := item.Mix(lhs.TypeHash(), item.ProtocolEq)
		res, err := m.dispatchCall(ctx, composed, []value.Value{lhs, rhs})
		if err != nil {
			return false, err
		}
		b, ok := res.AsBool()
		if !ok {
			return false, newPanic("protocol::EQ must return a bool")
		}
		return b, nil
	}
}

func (m *VM) equalItemSlices(ctx context.Context, ls, rs *value.Shared[[]value.Value]) (bool, error) {
	lg, err := ls.Ref()
	if err != nil {
		return false, accessErr(err)
	}
	defer lg.Release()
	rg, err := rs.Ref()
	if err != nil {
		return false, accessErr(err)
	}
	defer rg.Release()
	a, b := lg.Get(), rg.Get()
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := m.valuesEqual(ctx, a[i], b[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func (m *VM) equalObjects(ctx context.Context, ls, rs *value.Shared[*value.Object]) (bool, error) {
	lg, err := ls.Ref()
	if err != nil {
		return false, accessErr(err)
	}
	defer lg.Release()
	rg, err := rs.Ref()
	if err != nil {
		return false, accessErr(err)
	}
	defer rg.Release()
	a, b := lg.Get(), rg.Get()
	if a.Len() != b.Len() {
		return false, nil
	}
	for _, k := range a.Keys() {
		av, _ := a.Get(k)
		bv, found := b.Get(k)
		if !found {
			return false, nil
		}
		eq, err := m.valuesEqual(ctx, av, bv)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func protocolHashForArith(op unit.ArithKind) (item.Hash, bool) {
	switch op {
	case unit.ArithAdd:
		return item.ProtocolAdd, true
	case unit.ArithSub:
		return item.ProtocolSub, true
	case unit.ArithMul:
		return item.ProtocolMul, true
	case unit.ArithDiv:
		return item.ProtocolDiv, true
	case unit.ArithRem:
		return item.ProtocolRem, true
	default:
		return 0, false
	}
}

// displayString implements OpStringConcat's per-component conversion:
// inline kinds format directly, everything else goes through
// protocol::STRING_DISPLAY (falling back to DebugString if unimplemented,
// matching format! treating any value as displayable).
func (m *VM) displayString(ctx context.Context, v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindUnit:
		return "()", nil
	case value.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), nil
	case value.KindByte:
		b, _ := v.AsByte()
		return strconv.Itoa(int(b)), nil
	case value.KindChar:
		c, _ := v.AsChar()
		return string(c), nil
	case value.KindInteger:
		i, _ := v.AsInteger()
		return strconv.FormatInt(i, 10), nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case value.KindString:
		s, _ := v.AsString()
		g, err := s.Ref()
		if err != nil {
			return "", accessErr(err)
		}
		defer g.Release()
		return g.Get(), nil
	default:
		composed := item.Mix(v.TypeHash(), item.ProtocolStringDisplay)
		if info, ok := m.unit.FunctionByHash(composed); ok {
			res, err := m.callInfo(ctx, info, []value.Value{v})
			if err != nil {
				return "", err
			}
			s, ok := res.AsString()
			if !ok {
				return "", newPanic("protocol::STRING_DISPLAY must return a String")
			}
			g, err := s.Ref()
			if err != nil {
				return "", accessErr(err)
			}
			defer g.Release()
			return g.Get(), nil
		}
		if nf, ok := m.rt.Lookup(composed); ok {
			res, err := nf(ctx, m, []value.Value{v})
			if err != nil {
				return "", err
			}
			s, ok := res.AsString()
			if !ok {
				return "", newPanic("protocol::STRING_DISPLAY must return a String")
			}
			g, err := s.Ref()
			if err != nil {
				return "", accessErr(err)
			}
			defer g.Release()
			return g.Get(), nil
		}
		return v.DebugString(), nil
	}
}

func inlineToValue(inline unit.InlineValue) value.Value {
	switch inline.Kind {
	case unit.InlineUnit:
		return value.Unit()
	case unit.InlineBool:
		return value.Bool(inline.Bool)
	case unit.InlineByte:
		return value.Byte(inline.Byte)
	case unit.InlineChar:
		return value.Char(inline.Char)
	case unit.InlineInteger:
		return value.Integer(inline.Integer)
	case unit.InlineFloat:
		return value.Float(inline.Float)
	case unit.InlineType:
		return value.TypeOf(inline.Hash)
	case unit.InlineFn:
		return value.Fn(inline.Hash)
	default:
		return value.Unit()
	}
}
