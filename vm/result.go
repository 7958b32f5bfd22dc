package vm

import (
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/value"
)

// The `?` operator (compile/expr.go's ExprTry) lowers to a single
// OpCall{Hash: item.ProtocolTry} with no following conditional jump —
// a deliberate divergence from spec.md §7's prose ("lowers to a
// JumpIfError sequence"), recorded as an Open Question decision in
// DESIGN.md. Since no Result/Option value kind exists in package
// value, this VM gives `?` something concrete to unwrap by defining a
// built-in two-variant Result enum here: Ok(v) continues with v on the
// stack, Err(v) performs an early Return of the Err variant itself
// from the current function, exactly as `return Err(v)` would.
var (
	resultEnumHash = item.HashType("Result")

	resultOkRtti = &value.VariantRtti{
		Rtti: value.Rtti{
			Hash:        item.HashType("Result::Ok"),
			FieldLayout: value.FieldLayout{Kind: value.FieldsUnnamed, Arity: 1},
		},
		EnumHash: resultEnumHash,
		Index:    0,
	}

	resultErrRtti = &value.VariantRtti{
		Rtti: value.Rtti{
			Hash:        item.HashType("Result::Err"),
			FieldLayout: value.FieldLayout{Kind: value.FieldsUnnamed, Arity: 1},
		},
		EnumHash: resultEnumHash,
		Index:    1,
	}
)

// Ok wraps v as Result::Ok(v), the shape a fallible native function
// returns so `?` can unwrap it on the Rune side.
func Ok(v value.Value) value.Value {
	return value.VariantTupleVal(resultOkRtti, value.NewShared([]value.Value{v}))
}

// Err wraps v (conventionally a String or any host-chosen payload
// describing the failure) as Result::Err(v).
func Err(v value.Value) value.Value {
	return value.VariantTupleVal(resultErrRtti, value.NewShared([]value.Value{v}))
}

// asResult reports whether v is one of this VM's Result variants and,
// if so, whether it's the Ok arm.
func asResult(v value.Value) (rtti *value.VariantRtti, tuple *value.Shared[[]value.Value], isOk bool, ok bool) {
	r, _, t, _, isVariant := v.AsVariant()
	if !isVariant || r.EnumHash != resultEnumHash {
		return nil, nil, false, false
	}
	return r, t, r.Hash == resultOkRtti.Hash, true
}

// tryOutcome is execTry's result: either a value to continue with, or a
// value.Value to perform directly as the enclosing function's early
// return (the `return Err(v)` shape `?` desugars to).
type tryOutcome struct {
	value    value.Value
	isReturn bool
}

// execTry implements the `?` operator's runtime half: scrutinee must be
// one of this VM's Result values (native functions return Ok/Err; there
// is no user-defined Try protocol to fall back to since package value
// has no Result/Option kind of its own).
func (m *VM) execTry(v value.Value) (tryOutcome, error) {
	rtti, tuple, isOk, ok := asResult(v)
	if !ok {
		return tryOutcome{}, newPanic("`?` used on a non-Result value")
	}
	if isOk {
		g, err := tuple.Ref()
		if err != nil {
			return tryOutcome{}, accessErr(err)
		}
		inner := g.Get()[0]
		g.Release()
		return tryOutcome{value: inner}, nil
	}
	_ = rtti
	return tryOutcome{value: v, isReturn: true}, nil
}
