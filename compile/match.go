package compile

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/unit"
)

// compileMatch assembles `match scrutinee { pattern [if guard] => body, ... }`.
// Each arm is tried in source order against a fresh copy of the
// scrutinee; a guard that evaluates false falls through to the next
// arm exactly like a failed pattern match would. Every arm attempt
// cleans its own bindings (and the scrutinee copy it was tried against)
// back to a common base depth before trying the next one (see
// compileRefutableBind), so the label placed between arms is a safe
// compile-time bookkeeping reset point. Falling off the last arm calls
// the PANIC protocol with the scrutinee, which the VM raises as a
// runtime error rather than treat as an ordinary call.
func (f *funcCompiler) compileMatch(e *ast.ExprMatch) {
	end := f.newLabel("match_end")

	f.compileExpr(e.Scrutinee)
	f.pop()
	scrutSlot := f.declareLocal("")

	var fail unit.Label
	for _, arm := range e.Arms {
		fail = f.newLabel("match_arm")

		f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(scrutSlot)}, e.Sp)
		f.push()
		armBase := f.depth - 1
		f.compileRefutableBindAt(arm.Pattern, fail, armBase, e.Sp)

		if arm.Guard != nil {
			f.compileExpr(arm.Guard)
			f.pop()
			f.checkOrFail(fail, armBase, e.Sp)
		}

		f.compileExpr(arm.Body)
		f.cleanKeepTop(armBase, e.Sp)
		f.jump(unit.OpJump, end, e.Sp)

		f.placeLabel(fail)
		f.depth = armBase
	}

	f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(scrutSlot)}, e.Sp)
	f.emit(unit.Inst{Op: unit.OpCall, Hash: item.ProtocolPanic, Count: 1}, e.Sp)

	f.placeLabel(end)
	f.push()
}

// compileSelect assembles `select { pattern = future => body, ... }`.
// Every arm's future is awaited in declared order; a full, fair
// multi-way race belongs to the VM (package vm), not the assembler —
// the assembler's job is to emit one Await per arm and let whichever
// implementation (single-future today, a real select tomorrow) resume
// with a value to match the arm's pattern against.
func (f *funcCompiler) compileSelect(e *ast.ExprSelect) {
	end := f.newLabel("select_end")

	var fail unit.Label
	for _, arm := range e.Arms {
		fail = f.newLabel("select_arm")

		f.compileExpr(arm.Future)
		f.emit(unit.Inst{Op: unit.OpAwait}, e.Sp)
		armBase := f.depth - 1
		f.compileRefutableBindAt(arm.Pattern, fail, armBase, e.Sp)

		f.compileExpr(arm.Body)
		f.cleanKeepTop(armBase, e.Sp)
		f.jump(unit.OpJump, end, e.Sp)

		f.placeLabel(fail)
		f.depth = armBase
	}

	f.pushUnit(e.Sp)

	f.placeLabel(end)
}
