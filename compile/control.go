package compile

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/unit"
)

func protocolIntoIter() item.Hash { return item.ProtocolIntoIter }
func protocolNext() item.Hash     { return item.ProtocolNext }

// compileBlockExpr assembles a nested block as an expression: its tail
// value (or Unit, if none) is left on the stack above the block's own
// locals, which are then cleaned away without disturbing it.
func (f *funcCompiler) compileBlockExpr(b *ast.ExprBlock) {
	f.pushScope()
	for _, stmt := range b.Stmts {
		f.compileStmt(stmt)
	}
	if b.Tail != nil {
		f.compileExpr(b.Tail)
	} else {
		f.pushUnit(b.Sp)
	}
	f.pop()
	f.popScope(b.Sp)
	f.push()
}

// compileLetExpr handles a `let pattern = value` expression reached
// through compileExpr, outside an `if` condition (compileIf compiles its
// own `if let` condition and never calls this): it binds the pattern and
// pushes a bool that is always true.
func (f *funcCompiler) compileLetExpr(e *ast.ExprLet) {
	// A bare ExprLet only reaches compileExpr when used outside an `if`
	// condition (e.g. as a block tail), which is not a legal program;
	// treat it as always matching so assembly can continue and let the
	// query/parser layers reject the construct earlier in a complete
	// pipeline.
	f.compileExpr(e.Value)
	f.compileIrrefutableBind(e.Pattern)
	f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineBool, Bool: true}}, e.Sp)
	f.push()
}

func (f *funcCompiler) compileIf(e *ast.ExprIf) {
	start := f.depth
	elseLabel := f.newLabel("if_else")
	endLabel := f.newLabel("if_end")

	_, isLet := e.Cond.(*ast.ExprLet)
	if letCond, ok := e.Cond.(*ast.ExprLet); ok {
		// The scrutinee and its bindings share one scope, so popScope
		// below cleans both away together, leaving the then-block's
		// result as the only survivor — the same shape the else branch
		// produces, with nothing left over from the condition.
		f.pushScope()
		f.compileExpr(letCond.Value)
		f.compileRefutableBind(letCond.Pattern, elseLabel, letCond.Sp)
	} else {
		f.compileExpr(e.Cond)
		f.pop()
		f.jump(unit.OpJumpIfNot, elseLabel, e.Sp)
	}

	f.compileBlockExpr(e.Then)
	f.pop()
	if isLet {
		f.popScope(e.Sp)
		f.push()
	}
	f.jump(unit.OpJump, endLabel, e.Sp)

	// elseLabel is reached only via the condition's failure path (plain
	// JumpIfNot, or the pattern's own failure jump), never by falling out
	// of the then-branch above, so the depth it sees must be reset to
	// match that edge rather than whatever the then-branch left behind.
	f.placeLabel(elseLabel)
	f.depth = start
	if e.Else != nil {
		f.compileExpr(e.Else)
		f.pop()
	} else {
		f.pushUnit(e.Sp)
		f.pop()
	}
	f.placeLabel(endLabel)
	f.push()
}

func (f *funcCompiler) compileWhile(e *ast.ExprWhile) {
	start := f.newLabel("while_start")
	end := f.newLabel("while_end")
	label := ""
	if e.Label != nil {
		label = e.Label.Name
	}
	f.loops = append(f.loops, loopCtx{name: label, breakLabel: end, continueLabel: start, depth: f.depth, isLoop: false, resultSlot: -1})

	f.placeLabel(start)
	f.compileExpr(e.Cond)
	f.pop()
	f.jump(unit.OpJumpIfNot, end, e.Sp)
	f.compileBlockExpr(e.Body)
	f.emit(unit.Inst{Op: unit.OpPop}, e.Sp)
	f.pop()
	f.jump(unit.OpJump, start, e.Sp)
	f.placeLabel(end)

	f.loops = f.loops[:len(f.loops)-1]
	f.pushUnit(e.Sp)
}

func (f *funcCompiler) compileLoop(e *ast.ExprLoop) {
	start := f.newLabel("loop_start")
	end := f.newLabel("loop_end")
	label := ""
	if e.Label != nil {
		label = e.Label.Name
	}
	resultSlot := f.declareLocal("") // anonymous slot `break value` writes into
	f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineUnit}}, e.Sp)

	f.loops = append(f.loops, loopCtx{name: label, breakLabel: end, continueLabel: start, depth: f.depth, isLoop: true, resultSlot: resultSlot})

	f.placeLabel(start)
	f.compileBlockExpr(e.Body)
	f.emit(unit.Inst{Op: unit.OpPop}, e.Sp)
	f.pop()
	f.jump(unit.OpJump, start, e.Sp)
	f.placeLabel(end)

	f.loops = f.loops[:len(f.loops)-1]
	f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(resultSlot)}, e.Sp)
	f.push()
}

// compileFor lowers `for pattern in iter { body }` to the INTO_ITER /
// NEXT protocol pair spec.md's GLOSSARY describes: the iterable is
// converted once, then NEXT is called in a loop until it yields no
// value.
func (f *funcCompiler) compileFor(e *ast.ExprFor) {
	start := f.newLabel("for_start")
	end := f.newLabel("for_end")
	label := ""
	if e.Label != nil {
		label = e.Label.Name
	}

	f.compileExpr(e.Iter)
	f.pop()
	f.emit(unit.Inst{Op: unit.OpCall, Hash: protocolIntoIter(), Count: 1}, e.Sp)
	iterSlot := f.declareLocal("")
	loopDepth := f.depth

	f.loops = append(f.loops, loopCtx{name: label, breakLabel: end, continueLabel: start, depth: loopDepth, isLoop: false, resultSlot: -1})

	f.placeLabel(start)
	f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(iterSlot)}, e.Sp)
	f.emit(unit.Inst{Op: unit.OpCall, Hash: protocolNext(), Count: 1}, e.Sp)
	f.push()
	// NEXT returns a GeneratorState-shaped done-or-value; JumpIfBranch
	// jumps to end on done, otherwise unwraps it in place so the pattern
	// binds the iterated value directly.
	f.jump(unit.OpJumpIfBranch, end, e.Sp)
	f.pushScope()
	f.compileIrrefutableBind(e.Pattern)
	f.compileBlockExpr(e.Body)
	// Drop the body's value, the pattern's bindings and the iterated
	// value itself, so each iteration starts again at loopDepth; the
	// scope frame then has nothing left to clean.
	f.cleanToDepth(loopDepth, e.Sp)
	f.popScope(e.Sp)
	f.jump(unit.OpJump, start, e.Sp)

	// end is reached by branching on NEXT's result, not by falling out of
	// the body above, so its depth must match that edge (the NEXT value
	// consumed, nothing else pending) rather than the body's bookkeeping.
	f.placeLabel(end)
	f.depth = loopDepth

	f.loops = f.loops[:len(f.loops)-1]
	f.pushUnit(e.Sp)
}

func (f *funcCompiler) compileBreak(e *ast.ExprBreak) {
	lp, ok := f.findLoop(e.Label)
	if !ok {
		f.errorAt(e.Sp, BreakOutsideOfLoop, "break outside of loop")
		f.pushUnit(e.Sp)
		return
	}
	if e.Value != nil {
		if !lp.isLoop {
			f.errorAt(e.Sp, UnsupportedExpr, "break with value only allowed in `loop`")
		}
		f.compileExpr(e.Value)
		f.pop()
		f.emit(unit.Inst{Op: unit.OpReplace, Slot: uint32(lp.resultSlot)}, e.Sp)
	}
	f.cleanToDepth(lp.depth, e.Sp)
	f.jump(unit.OpJump, lp.breakLabel, e.Sp)
	f.pushUnit(e.Sp)
}

func (f *funcCompiler) compileContinue(e *ast.ExprContinue) {
	lp, ok := f.findLoop(e.Label)
	if !ok {
		f.errorAt(e.Sp, ContinueOutsideOfLoop, "continue outside of loop")
		f.pushUnit(e.Sp)
		return
	}
	f.cleanToDepth(lp.depth, e.Sp)
	f.jump(unit.OpJump, lp.continueLabel, e.Sp)
	f.pushUnit(e.Sp)
}

func (f *funcCompiler) findLoop(label *ast.Ident) (loopCtx, bool) {
	name := ""
	if label != nil {
		name = label.Name
	}
	for i := len(f.loops) - 1; i >= 0; i-- {
		if name == "" || f.loops[i].name == name {
			return f.loops[i], true
		}
	}
	return loopCtx{}, false
}

// cleanToDepth discards every value above depth, keeping nothing: used
// by break/continue (whose break value, if any, was already tucked away
// in a fixed result slot via OpReplace before this runs) and by a failed
// pattern match attempt, neither of which has anything on top worth
// preserving. Contrast cleanKeepTop, which keeps the top value.
func (f *funcCompiler) cleanToDepth(depth int, span source.Span) {
	for f.depth > depth {
		f.emit(unit.Inst{Op: unit.OpPop}, span)
		f.depth--
	}
}

// cleanKeepTop drops every value between depth and the current top of
// stack while preserving the top value itself, via Clean's pop-keeping-
// top semantics. Used wherever an expression's result must survive the
// cleanup of locals accumulated while producing it (a block's tail
// value, a matched arm's body).
func (f *funcCompiler) cleanKeepTop(depth int, span source.Span) {
	f.pop()
	if f.depth > depth {
		f.emit(unit.Inst{Op: unit.OpClean, Count: uint32(f.depth - depth)}, span)
	}
	f.depth = depth
	f.push()
}

func (f *funcCompiler) compileReturn(e *ast.ExprReturn) {
	if e.Value != nil {
		f.compileExpr(e.Value)
		f.pop()
		f.emit(unit.Inst{Op: unit.OpReturn}, e.Sp)
	} else {
		f.emit(unit.Inst{Op: unit.OpReturnUnit}, e.Sp)
	}
	f.pushUnit(e.Sp)
}
