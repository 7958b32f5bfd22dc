package compile

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/unit"
)

func newFuncCompiler(c *Compiler, fromID item.ID) *funcCompiler {
	return &funcCompiler{Compiler: c, fromID: fromID}
}

// push records that one value now sits on top of the operand stack,
// returning its slot: the 0-based depth it occupies above the frame's
// base, which is the index instructions address it by.
func (f *funcCompiler) push() int {
	slot := f.depth
	f.depth++
	return slot
}

func (f *funcCompiler) pop() {
	f.depth--
}

func (f *funcCompiler) emit(inst unit.Inst, span source.Span) int {
	return f.builder.Emit(inst, span)
}

func (f *funcCompiler) pushScope() {
	f.scopes = append(f.scopes, blockScope{names: map[string]int{}, base: f.depth})
}

// popScope drops every local the most recent scope declared with a
// single Clean, and discards the scope frame. Clean keeps the top value,
// so the caller (compileBlockExpr) has already produced the block's tail
// value and taken it off the depth count; the tail survives the clean.
func (f *funcCompiler) popScope(span source.Span) {
	top := f.scopes[len(f.scopes)-1]
	n := f.depth - top.base
	if n > 0 {
		f.emit(unit.Inst{Op: unit.OpClean, Count: uint32(n)}, span)
		f.depth = top.base
	}
	f.scopes = f.scopes[:len(f.scopes)-1]
}

func (f *funcCompiler) declareLocal(name string) int {
	slot := f.push()
	if len(f.scopes) > 0 {
		f.scopes[len(f.scopes)-1].names[name] = slot
	}
	return slot
}

// resolveLocal looks a name up against the enclosing scope chain,
// nearest first.
func (f *funcCompiler) resolveLocal(name string) (int, bool) {
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if slot, ok := f.scopes[i].names[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (f *funcCompiler) newLabel(name string) unit.Label { return f.builder.NewLabel(name) }

func (f *funcCompiler) placeLabel(l unit.Label) { f.builder.PlaceLabel(l) }

func (f *funcCompiler) jump(op unit.Op, l unit.Label, span source.Span) {
	f.builder.EmitJump(op, l, span)
}

// compileFn assembles fn's body and registers it in the builder's
// function table at its item hash.
func (c *Compiler) compileFn(id item.ID, meta *item.Meta, fn *ast.FnItem) {
	f := newFuncCompiler(c, id)
	offset := c.builder.Offset()

	f.pushScope()
	for _, p := range fn.Params {
		f.compileParamBinding(p)
	}

	if fn.Body == nil {
		f.emit(unit.Inst{Op: unit.OpReturnUnit}, fn.Span())
	} else {
		f.compileFnBody(fn.Body)
	}

	kind := unit.FunctionFree
	if meta.Function.Kind == item.AssociatedFn {
		kind = unit.FunctionAssociated
	} else if meta.Function.Kind == item.InstanceFn {
		kind = unit.FunctionInstance
	}

	hash := meta.Item.Hash()
	if kind == unit.FunctionInstance {
		if parent, ok := meta.Item.Parent(); ok {
			last, _ := meta.Item.Last()
			hash = item.Mix(parent.Hash(), item.HashBytes(last.String()))
		}
	}

	if err := c.builder.RegisterFunction(hash, unit.FunctionInfo{
		Offset:   offset,
		Arity:    len(fn.Params),
		Kind:     kind,
		Name:     meta.Item.String(),
	}, false); err != nil {
		c.errorAt(fn.Span(), UnsupportedArgCount, err.Error())
	}
}

// compileParamBinding declares one parameter pattern's bindings. Only
// plain identifier bindings occupy a guaranteed incoming slot; any
// richer pattern would need a MatchTuple/MatchObject sequence against
// the argument, which is out of scope for a parameter position (Rune
// requires irrefutable parameter patterns).
func (f *funcCompiler) compileParamBinding(p *ast.FnParam) {
	switch pat := p.Pattern.(type) {
	case *ast.PatBind:
		f.declareLocal(pat.Name.Name)
	case *ast.PatWildcard:
		f.push()
	default:
		f.push()
		f.errorAt(p.Pattern.Span(), UnsupportedPattern, "unsupported parameter pattern")
	}
}

// compileFnBody assembles a function's top-level block, producing
// Return/ReturnUnit instead of falling through like a nested block
// would.
func (f *funcCompiler) compileFnBody(block *ast.ExprBlock) {
	for _, stmt := range block.Stmts {
		f.compileStmt(stmt)
	}
	if block.Tail == nil {
		f.emit(unit.Inst{Op: unit.OpReturnUnit}, block.Span())
		return
	}
	f.compileExpr(block.Tail)
	f.pop()
	f.emit(unit.Inst{Op: unit.OpReturn}, block.Tail.Span())
}
