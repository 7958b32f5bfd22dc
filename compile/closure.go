package compile

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/unit"
)

// compileClosure assembles `[move] |params| body` as a separate
// function, then leaves a callable Function value on the stack: the
// captured locals are Copy'd ahead of a LoadFn carrying the capture
// count, mirroring how the teacher builds a bound method value by
// pairing a function pointer with its receiver.
func (f *funcCompiler) compileClosure(e *ast.ExprClosure) {
	captures := freeVars(e.Body)
	captures = filterResolvable(f, captures)

	for _, name := range captures {
		slot, _ := f.resolveLocal(name)
		f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, e.Sp)
		f.push()
	}

	hash := f.compileClosureBody(e.Params, e.Body, captures, false)

	for range captures {
		f.pop()
	}
	f.emit(unit.Inst{Op: unit.OpLoadFn, Hash: hash, Count: uint32(len(captures))}, e.Sp)
	f.push()
}

// compileAsync assembles `async { body }` as a separate function marked
// IsAsync, then immediately calls it: the VM, seeing IsAsync on the
// callee, wraps the call in a value.Future instead of running it to
// completion inline, per spec.md §4.8.
func (f *funcCompiler) compileAsync(e *ast.ExprAsync) {
	captures := freeVars(e.Body)
	captures = filterResolvable(f, captures)

	for _, name := range captures {
		slot, _ := f.resolveLocal(name)
		f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, e.Sp)
		f.push()
	}

	hash := f.compileClosureBody(nil, e.Body, captures, true)

	for range captures {
		f.pop()
	}
	f.emit(unit.Inst{Op: unit.OpCall, Hash: hash, Count: uint32(len(captures))}, e.Sp)
	f.push()
}

// filterResolvable drops any name freeVars turned up that doesn't
// actually resolve to a local in the enclosing scope chain (a path to a
// module-level item, referenced by name, looks identical to a capture
// until resolved).
func filterResolvable(f *funcCompiler, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := f.resolveLocal(n); ok {
			out = append(out, n)
		}
	}
	return out
}

// compileClosureBody assembles body as a fresh function whose first
// len(captures) parameters are the captured values (in the same order
// they were Copy'd onto the stack by the caller), followed by params,
// and registers it under a synthetic hash.
func (f *funcCompiler) compileClosureBody(params []*ast.FnParam, body ast.Expr, captures []string, isAsync bool) item.Hash {
	sub := newFuncCompiler(f.Compiler, f.fromID)
	offset := f.builder.Offset()

	sub.pushScope()
	for _, name := range captures {
		sub.declareLocal(name)
	}
	for _, p := range params {
		sub.compileParamBinding(p)
	}

	switch b := body.(type) {
	case *ast.ExprBlock:
		sub.compileFnBody(b)
	default:
		sub.compileExpr(body)
		sub.pop()
		sub.emit(unit.Inst{Op: unit.OpReturn}, body.Span())
	}

	hash := f.nextClosureHash()
	f.builder.RegisterFunction(hash, unit.FunctionInfo{
		Offset:      offset,
		Arity:       len(params),
		Captures:    len(captures),
		Kind:        unit.FunctionFree,
		IsAsync:     isAsync,
		IsGenerator: containsYield(body),
		Name:        "$closure",
	}, false)
	return hash
}
