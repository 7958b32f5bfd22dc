package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// noSpan is a tiny span stand-in; these tests hand-assemble bytecode
// directly against unit.Builder rather than going through the parser
// and compiler, so every instruction shares one no-op span.
var noSpan source.Span

// hostProtocols lists the protocol hashes Seal must treat as linked
// even though no unit-local function backs them: New's default
// RuntimeContext handles INTO_ITER/NEXT, and the VM handles TRY/PANIC
// inline, never through the Unit itself.
var hostProtocols = map[item.Hash]bool{
	item.ProtocolTry:      true,
	item.ProtocolPanic:    true,
	item.ProtocolIntoIter: true,
	item.ProtocolNext:     true,
}

func sealFn(t *testing.T, b *unit.Builder, hash item.Hash, arity int, build func()) *unit.Unit {
	t.Helper()
	offset := b.Offset()
	build()
	require.NoError(t, b.RegisterFunction(hash, unit.FunctionInfo{Offset: offset, Arity: arity}, false))
	u, err := b.Seal(hostProtocols)
	require.NoError(t, err)
	return u
}

func TestCallAddsTwoIntegers(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::add")
	u := sealFn(t, b, hash, 2, func() {
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 1}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithAdd}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	})

	m := New(u, nil)
	res, err := m.Call(context.Background(), hash, []value.Value{value.Integer(3), value.Integer(4)})
	require.NoError(t, err)
	n, ok := res.AsInteger()
	require.True(t, ok)
	assert.Equal(t, int64(7), n)
}

func TestCallMissingFunction(t *testing.T) {
	b := unit.NewBuilder()
	u, err := b.Seal(nil)
	require.NoError(t, err)

	m := New(u, nil)
	_, err = m.Call(context.Background(), item.HashType("nope"), nil)
	require.Error(t, err)
	var vmErr *Error
	require.ErrorAs(t, err, &vmErr)
	assert.Equal(t, MissingFunction, vmErr.Kind)
}

func TestIfElseBranches(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::abs")
	u := sealFn(t, b, hash, 1, func() {
		elseL := b.NewLabel("else")
		endL := b.NewLabel("end")

		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 0}}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithLt}, noSpan)
		b.EmitJump(unit.OpJumpIfNot, elseL, noSpan)

		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithNeg}, noSpan)
		b.EmitJump(unit.OpJump, endL, noSpan)

		b.PlaceLabel(elseL)
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)

		b.PlaceLabel(endL)
		b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	})

	m := New(u, nil)

	res, err := m.Call(context.Background(), hash, []value.Value{value.Integer(-5)})
	require.NoError(t, err)
	n, _ := res.AsInteger()
	assert.Equal(t, int64(5), n)

	res, err = m.Call(context.Background(), hash, []value.Value{value.Integer(5)})
	require.NoError(t, err)
	n, _ = res.AsInteger()
	assert.Equal(t, int64(5), n)
}

func TestClosureCallSplicesCapturesBeforeArgs(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::adder_body")
	u := sealFn(t, b, hash, 2, func() {
		// locals: slot0 = capture (base), slot1 = arg.
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 1}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithAdd}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	})

	m := New(u, nil)
	fv := value.NewShared(value.FunctionValue{Hash: hash, Captures: []value.Value{value.Integer(10)}})
	res, err := m.callClosure(context.Background(), fv, []value.Value{value.Integer(32)})
	require.NoError(t, err)
	n, _ := res.AsInteger()
	assert.Equal(t, int64(42), n)
}

func TestMatchTypeUnit(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::is_unit")
	u := sealFn(t, b, hash, 1, func() {
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpMatchType, Hash: value.Unit().TypeHash()}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	})

	m := New(u, nil)
	res, err := m.Call(context.Background(), hash, []value.Value{value.Unit()})
	require.NoError(t, err)
	bv, _ := res.AsBool()
	assert.True(t, bv)

	res, err = m.Call(context.Background(), hash, []value.Value{value.Integer(1)})
	require.NoError(t, err)
	bv, _ = res.AsBool()
	assert.False(t, bv)
}

func TestVecConcatAndIndexGet(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::concat_and_index")
	u := sealFn(t, b, hash, 0, func() {
		b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 1}}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 2}}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpVec, Count: 2}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 3}}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpVec, Count: 1}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithAdd}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 2}}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpIndexGet}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	})

	m := New(u, nil)
	res, err := m.Call(context.Background(), hash, nil)
	require.NoError(t, err)
	n, ok := res.AsInteger()
	require.True(t, ok)
	assert.Equal(t, int64(3), n)
}

func TestGeneratorYieldsThenCompletes(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::gen")
	offset := b.Offset()
	b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 1}}, noSpan)
	b.Emit(unit.Inst{Op: unit.OpYield}, noSpan)
	b.Emit(unit.Inst{Op: unit.OpPop}, noSpan)
	b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 2}}, noSpan)
	b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	require.NoError(t, b.RegisterFunction(hash, unit.FunctionInfo{Offset: offset, Arity: 0, IsGenerator: true}, false))
	u, err := b.Seal(nil)
	require.NoError(t, err)

	m := New(u, nil)
	res, err := m.Call(context.Background(), hash, nil)
	require.NoError(t, err)
	data, ok := res.GeneratorData()
	require.True(t, ok)
	g, ok := data.(*generatorState)
	require.True(t, ok)

	ctx := context.Background()
	v1, done1, err := g.resume(ctx)
	require.NoError(t, err)
	assert.False(t, done1)
	n, _ := v1.AsInteger()
	assert.Equal(t, int64(1), n)

	v2, done2, err := g.resume(ctx)
	require.NoError(t, err)
	assert.True(t, done2)
	n, _ = v2.AsInteger()
	assert.Equal(t, int64(2), n)
}

func TestAsyncCallAwaits(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::async_body")
	offset := b.Offset()
	b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 99}}, noSpan)
	b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	require.NoError(t, b.RegisterFunction(hash, unit.FunctionInfo{Offset: offset, Arity: 0, IsAsync: true}, false))
	u, err := b.Seal(nil)
	require.NoError(t, err)

	m := New(u, nil)
	fut, err := m.Call(context.Background(), hash, nil)
	require.NoError(t, err)
	assert.Equal(t, value.KindFuture, fut.Kind())

	res, err := m.awaitFuture(context.Background(), fut)
	require.NoError(t, err)
	n, _ := res.AsInteger()
	assert.Equal(t, int64(99), n)
}

func TestTryOperatorUnwrapsOkAndReturnsEarlyOnErr(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::try_fn")
	u := sealFn(t, b, hash, 1, func() {
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpCall, Hash: item.ProtocolTry, Count: 1}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 1}}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithAdd}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	})

	m := New(u, nil)

	res, err := m.Call(context.Background(), hash, []value.Value{Ok(value.Integer(41))})
	require.NoError(t, err)
	n, _ := res.AsInteger()
	assert.Equal(t, int64(42), n)

	errVal := Err(value.String(value.NewShared("boom")))
	res, err = m.Call(context.Background(), hash, []value.Value{errVal})
	require.NoError(t, err)
	rtti, _, isOk, ok := asResult(res)
	require.True(t, ok)
	assert.False(t, isOk)
	_ = rtti
}

func TestForLoopOverVecSumsElements(t *testing.T) {
	b := unit.NewBuilder()
	hash := item.HashType("test::sum_vec")
	u := sealFn(t, b, hash, 1, func() {
		start := b.NewLabel("start")
		end := b.NewLabel("end")

		// slot0 = arg vec, slot1 = accumulator, slot2 = iterator.
		b.Emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: 0}}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 0}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpCall, Hash: item.ProtocolIntoIter, Count: 1}, noSpan)

		b.PlaceLabel(start)
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 2}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpCall, Hash: item.ProtocolNext, Count: 1}, noSpan)
		b.EmitJump(unit.OpJumpIfBranch, end, noSpan)
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 1}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithAdd}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpReplace, Slot: 1}, noSpan)
		b.EmitJump(unit.OpJump, start, noSpan)

		b.PlaceLabel(end)
		b.Emit(unit.Inst{Op: unit.OpCopy, Slot: 1}, noSpan)
		b.Emit(unit.Inst{Op: unit.OpReturn}, noSpan)
	})

	m := New(u, nil)
	vec := value.Vec(value.NewShared([]value.Value{value.Integer(1), value.Integer(2), value.Integer(3)}))
	res, err := m.Call(context.Background(), hash, []value.Value{vec})
	require.NoError(t, err)
	n, _ := res.AsInteger()
	assert.Equal(t, int64(6), n)
}
