// Package vm implements Rune's stack-based bytecode interpreter: the
// consumer of a sealed unit.Unit, executing its unit.Inst stream against
// a per-call operand stack of value.Value, per spec.md §4.8.
//
// Grounded on the teacher's Interpreter.EvalWithContext
// (interp/interp.go): a single context.Context threaded through every
// call for cancellation, and the same "install a budget, pass the
// derived context down, never mutate shared state" shape
// runtime/limit's From/With pair was built to match.
package vm

import (
	"context"
	"fmt"

	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/runtime/limit"
	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// VM executes one unit.Unit. It carries no per-call mutable state of its
// own (args/locals live entirely in the frame a given call constructs),
// so a single VM value is safe to reuse for many independent top-level
// Call invocations; generators and async functions run their bodies on
// a VM of their own (see generator.go/future.go), and only a generator's
// VM sets genCh.
type VM struct {
	unit      *unit.Unit
	rt        *RuntimeContext
	memBudget int64

	// genCh is non-nil only on a VM instance that IS a generator's body
	// (installed by generatorState.start): OpYield/OpYieldUnit use it to
	// suspend. An ordinary VM, or a VM running a plain async future's
	// body, leaves this nil.
	genCh *generatorChannels
}

// New returns a VM bound to u, resolving Calls against u's own function
// table first and rt second. rt may be nil, in which case a default
// RuntimeContext carrying just the INTO_ITER/NEXT iteration protocol is
// used (see prelude.go).
func New(u *unit.Unit, rt *RuntimeContext) *VM {
	if rt == nil {
		rt = NewDefaultRuntimeContext()
	}
	return &VM{unit: u, rt: rt}
}

// SetMemoryBudget installs a heap-allocation budget, charged by
// chargeAlloc at every Vec/Tuple/Object/Struct/String/Bytes
// construction; n<=0 means unbounded, the default, per spec.md §4.8.
func (m *VM) SetMemoryBudget(n int64) { m.memBudget = n }

// Call resolves hash against the Unit's function table and runs it,
// installing a fresh memory budget on ctx if one is configured. This is
// the entry point a host program calls; Rune-level
// calls reached via OpCall/OpCallInstance/OpCallFn go through callInfo
// directly, reusing whatever budget ctx already carries.
func (m *VM) Call(ctx context.Context, hash item.Hash, args []value.Value) (value.Value, error) {
	if m.memBudget > 0 {
		ctx, _ = limit.With(ctx, m.memBudget)
	}
	info, ok := m.unit.FunctionByHash(hash)
	if !ok {
		return value.Value{}, &Error{Kind: MissingFunction, Target: fmt.Sprintf("%#x", uint64(hash))}
	}
	return m.callInfo(ctx, info, args)
}

// CallInstance resolves an instance method by composing receiver's
// TypeHash with name, the same way OpCallInstance does.
func (m *VM) CallInstance(ctx context.Context, receiver value.Value, name string, args []value.Value) (value.Value, error) {
	if m.memBudget > 0 {
		ctx, _ = limit.With(ctx, m.memBudget)
	}
	composed := item.Mix(receiver.TypeHash(), item.HashBytes(name))
	full := append([]value.Value{receiver}, args...)
	return m.dispatchCall(ctx, composed, full)
}

// callInfo dispatches a resolved function entry: IsAsync spawns it as a
// background future, IsGenerator wraps it as a lazily-driven generator,
// otherwise it runs synchronously to completion. Reached both from
// VM.Call and from every in-bytecode call instruction.
func (m *VM) callInfo(ctx context.Context, info unit.FunctionInfo, args []value.Value) (value.Value, error) {
	if info.IsAsync {
		return m.spawnAsync(ctx, info, args), nil
	}
	if info.IsGenerator {
		return value.Generator(newGeneratorState(m, info, args)), nil
	}
	return m.runBody(ctx, info, args)
}

// dispatchCall resolves hash against the Unit's function table, then the
// host RuntimeContext, and calls whichever is found.
func (m *VM) dispatchCall(ctx context.Context, hash item.Hash, args []value.Value) (value.Value, error) {
	if info, ok := m.unit.FunctionByHash(hash); ok {
		return m.callInfo(ctx, info, args)
	}
	if nf, ok := m.rt.Lookup(hash); ok {
		return nf(ctx, m, args)
	}
	return value.Value{}, &Error{Kind: MissingFunction, Target: fmt.Sprintf("%#x", uint64(hash))}
}

// callClosure invokes a value.Function closure: its stored Captures are
// spliced in front of args to form the callee's initial locals, mirroring
// how compileClosureBody declares captures before params.
func (m *VM) callClosure(ctx context.Context, fv *value.Shared[value.FunctionValue], args []value.Value) (value.Value, error) {
	g, err := fv.Ref()
	if err != nil {
		return value.Value{}, accessErr(err)
	}
	data := g.Get()
	hash := data.Hash
	captures := append([]value.Value(nil), data.Captures...)
	g.Release()

	locals := append(captures, args...)
	if info, ok := m.unit.FunctionByHash(hash); ok {
		return m.callInfo(ctx, info, locals)
	}
	if nf, ok := m.rt.Lookup(hash); ok {
		return nf(ctx, m, locals)
	}
	return value.Value{}, &Error{Kind: MissingFunction, Target: fmt.Sprintf("%#x", uint64(hash))}
}

// frame is one function invocation's combined operand stack and local
// slot space: compile/funccomp.go's declareLocal allocates a slot by
// simply recording the current stack depth, so locals and intermediate
// values share one address space here too, addressed by absolute index
// from this frame's own base (always 0; each call gets its own frame).
type frame struct {
	stack []value.Value
}

func (fr *frame) push(v value.Value) { fr.stack = append(fr.stack, v) }

func (fr *frame) pop() value.Value {
	n := len(fr.stack) - 1
	v := fr.stack[n]
	fr.stack = fr.stack[:n]
	return v
}

// popN returns the last n pushed values in their original push order
// (first-pushed first), consuming them from the stack.
func (fr *frame) popN(n int) []value.Value {
	if n == 0 {
		return nil
	}
	start := len(fr.stack) - n
	out := append([]value.Value(nil), fr.stack[start:]...)
	fr.stack = fr.stack[:start]
	return out
}

func (fr *frame) top() value.Value { return fr.stack[len(fr.stack)-1] }

func (fr *frame) at(slot uint32) value.Value { return fr.stack[int(slot)] }

func (fr *frame) setAt(slot uint32, v value.Value) { fr.stack[int(slot)] = v }

// runBody executes info's instructions from Offset against a fresh
// frame seeded with args as its initial locals, until a Return,
// ReturnUnit, ProtocolTry early-return, or error unwinds it.
func (m *VM) runBody(ctx context.Context, info unit.FunctionInfo, args []value.Value) (value.Value, error) {
	fr := &frame{stack: append([]value.Value(nil), args...)}
	ip := info.Offset
	steps := 0

	for {
		if ip < 0 || ip >= len(m.unit.Instructions) {
			return value.Value{}, newPanic("instruction pointer out of bounds")
		}
		steps++
		if steps%256 == 0 {
			select {
			case <-ctx.Done():
				return value.Value{}, ctx.Err()
			default:
			}
		}

		inst := m.unit.Instructions[ip]
		next := ip + 1

		switch inst.Op {
		case unit.OpPush:
			fr.push(inlineToValue(inst.Inline))
		case unit.OpPop:
			m.release(fr.pop())
		case unit.OpClean:
			top := fr.pop()
			for i := uint32(0); i < inst.Count; i++ {
				m.release(fr.pop())
			}
			fr.push(top)
		case unit.OpCopy:
			v := fr.at(inst.Slot)
			m.retain(v)
			fr.push(v)
		case unit.OpMove:
			v := fr.at(inst.Slot)
			fr.setAt(inst.Slot, value.Unit())
			fr.push(v)
		case unit.OpDrop:
			m.release(fr.at(inst.Slot))
		case unit.OpReplace:
			v := fr.pop()
			m.release(fr.at(inst.Slot))
			fr.setAt(inst.Slot, v)
		case unit.OpSwap:
			n := len(fr.stack)
			fr.stack[n-1], fr.stack[n-2] = fr.stack[n-2], fr.stack[n-1]
		case unit.OpDup:
			v := fr.top()
			m.retain(v)
			fr.push(v)

		case unit.OpJump:
			next = int(inst.Target)
		case unit.OpJumpIf:
			v := fr.pop()
			if b, _ := v.AsBool(); b {
				next = int(inst.Target)
			}
		case unit.OpJumpIfNot:
			v := fr.pop()
			if b, _ := v.AsBool(); !b {
				next = int(inst.Target)
			}
		case unit.OpJumpIfBranch:
			v := fr.pop()
			gs, ok := v.AsGeneratorState()
			if !ok {
				return value.Value{}, newPanic("JumpIfBranch on a non-iteration-result value")
			}
			if gs.Done {
				next = int(inst.Target)
			} else {
				fr.push(gs.Value)
			}
		case unit.OpReturn:
			return fr.pop(), nil
		case unit.OpReturnUnit:
			return value.Unit(), nil
		case unit.OpYield:
			v := fr.pop()
			if m.genCh == nil {
				return value.Value{}, newPanic("yield outside of a generator")
			}
			fr.push(m.genCh.yield(v))
		case unit.OpYieldUnit:
			if m.genCh == nil {
				return value.Value{}, newPanic("yield outside of a generator")
			}
			fr.push(m.genCh.yield(value.Unit()))
		case unit.OpAwait:
			v := fr.pop()
			res, err := m.awaitFuture(ctx, v)
			if err != nil {
				return value.Value{}, err
			}
			fr.push(res)

		case unit.OpCall:
			args := fr.popN(int(inst.Count))
			switch inst.Hash {
			case item.ProtocolTry:
				res, err := m.execTry(args[0])
				if err != nil {
					return value.Value{}, err
				}
				if res.isReturn {
					return res.value, nil
				}
				fr.push(res.value)
			case item.ProtocolPanic:
				return value.Value{}, &Error{Kind: Panic, Reason: "unmatched pattern: " + args[0].DebugString()}
			default:
				res, err := m.dispatchCall(ctx, inst.Hash, args)
				if err != nil {
					return value.Value{}, err
				}
				fr.push(res)
			}
		case unit.OpCallInstance:
			vals := fr.popN(int(inst.Count))
			receiver := vals[0]
			res, err := m.execCallInstance(ctx, receiver, inst.Hash, vals)
			if err != nil {
				return value.Value{}, err
			}
			fr.push(res)
		case unit.OpCallFn:
			args := fr.popN(int(inst.Count))
			callee := fr.pop()
			res, err := m.execCallFn(ctx, callee, args)
			if err != nil {
				return value.Value{}, err
			}
			fr.push(res)
		case unit.OpLoadFn:
			if inst.Count == 0 {
				fr.push(value.Fn(inst.Hash))
			} else {
				captures := fr.popN(int(inst.Count))
				fr.push(value.Function(value.NewShared(value.FunctionValue{Hash: inst.Hash, Captures: captures})))
			}

		default:
			if err := m.execOther(ctx, fr, inst); err != nil {
				return value.Value{}, err
			}
		}

		ip = next
	}
}

// execCallInstance implements OpCallInstance's three-tier resolution:
// the Unit's own composed-hash function table, the host RuntimeContext,
// and finally (per spec.md "a Value::Function as receiver is also
// callable") invoking the receiver directly as a closure if it is one.
func (m *VM) execCallInstance(ctx context.Context, receiver value.Value, nameHash item.Hash, vals []value.Value) (value.Value, error) {
	composed := item.Mix(receiver.TypeHash(), nameHash)
	if info, ok := m.unit.FunctionByHash(composed); ok {
		return m.callInfo(ctx, info, vals)
	}
	if nf, ok := m.rt.Lookup(composed); ok {
		return nf(ctx, m, vals)
	}
	if fv, ok := receiver.AsFunction(); ok {
		return m.callClosure(ctx, fv, vals[1:])
	}
	return value.Value{}, &Error{Kind: MissingInstanceFunction, Target: receiver.Kind().String()}
}

func (m *VM) execCallFn(ctx context.Context, callee value.Value, args []value.Value) (value.Value, error) {
	if h, ok := callee.AsFn(); ok {
		return m.dispatchCall(ctx, h, args)
	}
	if fv, ok := callee.AsFunction(); ok {
		return m.callClosure(ctx, fv, args)
	}
	return value.Value{}, &Error{Kind: BadArgument, Reason: "value is not callable", Expected: "Fn or Function"}
}
