package compile

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/unit"
)

// topSlot returns the stack slot of the value most recently pushed,
// which every pattern-binding entry point expects to be sitting on top
// of the stack.
func (f *funcCompiler) topSlot() int { return f.depth - 1 }

func (f *funcCompiler) nameSlot(name string, slot int) {
	if name == "" || name == "_" {
		return
	}
	if len(f.scopes) > 0 {
		f.scopes[len(f.scopes)-1].names[name] = slot
	}
}

// compileIrrefutableBind binds pattern against the value on top of the
// stack, which stays in its slot (a name pattern names that slot; a
// destructuring pattern leaves it unnamed and copies sub-values out of
// it into their own slots). Used by `let` and `for`, both of which
// require a pattern with no failure path.
func (f *funcCompiler) compileIrrefutableBind(p ast.Pattern) {
	switch pat := p.(type) {
	case *ast.PatBind:
		slot := f.topSlot()
		f.nameSlot(pat.Name.Name, slot)
		if pat.SubPat != nil {
			f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, pat.Sp)
			f.push()
			f.compileIrrefutableBind(pat.SubPat)
		}
	case *ast.PatWildcard:
		f.emit(unit.Inst{Op: unit.OpPop}, pat.Sp)
		f.pop()
	case *ast.PatTuple:
		compound := f.topSlot()
		for i, item := range pat.Items {
			if _, ok := item.(*ast.PatRest); ok {
				continue
			}
			f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(compound)}, pat.Sp)
			f.push()
			f.emit(unit.Inst{Op: unit.OpTupleIndexGet, Slot: uint32(i)}, pat.Sp)
			f.compileIrrefutableBind(item)
		}
	case *ast.PatVec:
		compound := f.topSlot()
		for i, item := range pat.Items {
			if _, ok := item.(*ast.PatRest); ok {
				continue
			}
			f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(compound)}, pat.Sp)
			f.push()
			f.emit(unit.Inst{Op: unit.OpTupleIndexGet, Slot: uint32(i)}, pat.Sp)
			f.compileIrrefutableBind(item)
		}
	case *ast.PatStruct:
		compound := f.topSlot()
		for _, entry := range pat.Fields {
			f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(compound)}, pat.Sp)
			f.push()
			slot := f.builder.InternString(entry.Name.Name)
			f.emit(unit.Inst{Op: unit.OpObjectIndexGet, Slot: slot}, pat.Sp)
			f.compileIrrefutableBind(entry.Pattern)
		}
	default:
		f.errorAt(p.Span(), UnsupportedPattern, "unsupported irrefutable pattern")
		f.emit(unit.Inst{Op: unit.OpPop}, p.Span())
		f.pop()
	}
}

// compileRefutableBind matches pattern against the value on top of the
// stack; on failure it cleans back to the depth it started at and jumps
// to fail, so every failure exit from a (possibly deeply nested) pattern
// leaves the stack at the exact same depth, whichever check actually
// failed. On success, bindings are committed the same way
// compileIrrefutableBind commits them and the scrutinee's slot remains
// live for the matched arm's body.
func (f *funcCompiler) compileRefutableBind(p ast.Pattern, fail unit.Label, span source.Span) {
	f.compileRefutableBindAt(p, fail, f.depth-1, span)
}

// compileRefutableBindAt is compileRefutableBind with an explicit
// armBase: the depth a failed check must clean back to before jumping,
// which is always the depth of the scrutinee value the top-level match
// started from (recursive calls pass the same armBase down unchanged,
// since a nested check's failure aborts the whole pattern, not just the
// nested piece).
func (f *funcCompiler) compileRefutableBindAt(p ast.Pattern, fail unit.Label, armBase int, span source.Span) {
	switch pat := p.(type) {
	case *ast.PatWildcard, *ast.PatBind:
		f.compileIrrefutableBind(p)
	case *ast.PatLit:
		slot := f.topSlot()
		lit, ok := pat.Value.(*ast.ExprLit)
		if !ok {
			f.errorAt(pat.Sp, UnsupportedPattern, "literal pattern must be a literal")
			return
		}
		f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, pat.Sp)
		f.push()
		f.emit(unit.Inst{Op: unit.OpEqInlineValue, Inline: inlineOfLit(lit)}, pat.Sp)
		f.pop()
		f.checkOrFail(fail, armBase, pat.Sp)
	case *ast.PatPath:
		f.compilePathPattern(pat, fail, armBase)
	case *ast.PatTuple:
		f.compileTuplePattern(pat, fail, armBase)
	case *ast.PatVec:
		f.compileSequencePattern(pat.Items, nil, fail, armBase, pat.Sp)
	case *ast.PatStruct:
		f.compileStructPattern(pat, fail, armBase)
	case *ast.PatOr:
		f.compileOrPattern(pat, fail, armBase)
	default:
		f.errorAt(p.Span(), UnsupportedPattern, "unsupported pattern")
	}
}

// checkOrFail consumes the bool compileRefutableBindAt's caller just
// pushed (the result of a match/equality check): true falls through,
// false cleans the stack back to armBase and jumps to fail. The clean
// only happens along the (conditionally taken) failure branch, so the
// depth bookkeeping it touches is saved and restored around it — the
// continuing, compiled-inline path is the success branch, which never
// ran that Clean.
func (f *funcCompiler) checkOrFail(fail unit.Label, armBase int, span source.Span) {
	cont := f.newLabel("pattern_ok")
	f.jump(unit.OpJumpIf, cont, span)
	saved := f.depth
	f.cleanToDepth(armBase, span)
	f.jump(unit.OpJump, fail, span)
	f.depth = saved
	f.placeLabel(cont)
}

func inlineOfLit(lit *ast.ExprLit) unit.InlineValue {
	switch lit.Kind {
	case ast.LitBool:
		return unit.InlineValue{Kind: unit.InlineBool, Bool: lit.BoolValue}
	case ast.LitInteger:
		return unit.InlineValue{Kind: unit.InlineInteger, Integer: lit.IntValue}
	case ast.LitFloat:
		return unit.InlineValue{Kind: unit.InlineFloat, Float: lit.FloatValue}
	case ast.LitChar:
		return unit.InlineValue{Kind: unit.InlineChar, Char: lit.CharValue}
	case ast.LitByte:
		return unit.InlineValue{Kind: unit.InlineByte, Byte: lit.ByteValue}
	default:
		return unit.InlineValue{Kind: unit.InlineUnit}
	}
}

func (f *funcCompiler) compilePathPattern(pat *ast.PatPath, fail unit.Label, armBase int) {
	id, err := f.store.ResolvePath(f.fromID, pat.Path)
	if err != nil {
		f.errorAt(pat.Sp, MissingItem, err.Error())
		return
	}
	meta, ok := f.store.Meta(id)
	if !ok {
		f.errorAt(pat.Sp, MissingItem, "unresolved pattern path")
		return
	}
	slot := f.topSlot()
	f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, pat.Sp)
	f.push()
	if meta.Kind == item.KindVariant {
		f.emit(unit.Inst{Op: unit.OpMatchVariant, Hash: meta.Item.Hash()}, pat.Sp)
	} else {
		f.emit(unit.Inst{Op: unit.OpMatchType, Hash: meta.Item.Hash()}, pat.Sp)
	}
	f.pop()
	f.checkOrFail(fail, armBase, pat.Sp)
}

// compileTuplePattern handles both a plain tuple pattern (Path == nil)
// and a tuple-struct/variant pattern (Path naming the type to check
// first).
func (f *funcCompiler) compileTuplePattern(pat *ast.PatTuple, fail unit.Label, armBase int) {
	var typeHash item.Hash
	if pat.Path != nil {
		id, err := f.store.ResolvePath(f.fromID, pat.Path)
		if err != nil {
			f.errorAt(pat.Sp, MissingItem, err.Error())
			return
		}
		meta, _ := f.store.Meta(id)
		if meta != nil {
			typeHash = meta.Item.Hash()
		}
	}
	f.compileSequencePattern(pat.Items, &typeHash, fail, armBase, pat.Sp)
}

func (f *funcCompiler) compileSequencePattern(items []ast.Pattern, typeHash *item.Hash, fail unit.Label, armBase int, span source.Span) {
	slot := f.topSlot()
	exact := true
	count := 0
	for _, item := range items {
		if _, ok := item.(*ast.PatRest); ok {
			exact = false
			continue
		}
		count++
	}

	f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, span)
	f.push()
	if typeHash != nil {
		f.emit(unit.Inst{Op: unit.OpMatchTuple, Hash: *typeHash, Count: uint32(count), Exact: exact}, span)
	} else {
		f.emit(unit.Inst{Op: unit.OpMatchSequence, Count: uint32(count), Exact: exact}, span)
	}
	f.pop()
	f.checkOrFail(fail, armBase, span)

	idx := 0
	for _, sub := range items {
		if _, ok := sub.(*ast.PatRest); ok {
			continue
		}
		f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, span)
		f.push()
		f.emit(unit.Inst{Op: unit.OpTupleIndexGet, Slot: uint32(idx)}, span)
		f.compileRefutableBindAt(sub, fail, armBase, span)
		idx++
	}
}

func (f *funcCompiler) compileStructPattern(pat *ast.PatStruct, fail unit.Label, armBase int) {
	var typeHash item.Hash
	hasType := false
	if pat.Path != nil {
		id, err := f.store.ResolvePath(f.fromID, pat.Path)
		if err != nil {
			f.errorAt(pat.Sp, MissingItem, err.Error())
			return
		}
		meta, _ := f.store.Meta(id)
		if meta != nil {
			typeHash = meta.Item.Hash()
			hasType = true
		}
	}

	names := make([]string, len(pat.Fields))
	for i, entry := range pat.Fields {
		names[i] = entry.Name.Name
	}
	slot := f.topSlot()
	keysSlot := f.builder.InternObjectKeys(names)

	f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, pat.Sp)
	f.push()
	if hasType {
		f.emit(unit.Inst{Op: unit.OpMatchObject, Hash: typeHash, Slot: keysSlot, Exact: !pat.HasRest}, pat.Sp)
	} else {
		f.emit(unit.Inst{Op: unit.OpMatchObject, Slot: keysSlot, Exact: !pat.HasRest}, pat.Sp)
	}
	f.pop()
	f.checkOrFail(fail, armBase, pat.Sp)

	for _, entry := range pat.Fields {
		f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, pat.Sp)
		f.push()
		nameSlot := f.builder.InternString(entry.Name.Name)
		f.emit(unit.Inst{Op: unit.OpObjectIndexGet, Slot: nameSlot}, pat.Sp)
		f.compileRefutableBindAt(entry.Pattern, fail, armBase, pat.Sp)
	}
}

// compileOrPattern tries each alternative in turn against a fresh copy
// of the scrutinee; the first to match commits its bindings and jumps
// to the combined success path, the rest fall through to the next
// alternative. Every alternative's failed attempt rolls the stack back
// to altBase, the depth just above the scrutinee (compileRefutableBindAt's
// checkOrFail calls arrange for that at runtime), so the next alternative
// can copy the scrutinee again; after the last alternative fails the
// stack is cleaned down to armBase before jumping to fail. Alternatives
// are assumed to bind the same names, so whichever succeeds leaves the
// same depth; that depth is captured from the first alternative and
// restored at the combined join point.
func (f *funcCompiler) compileOrPattern(pat *ast.PatOr, fail unit.Label, armBase int) {
	matched := f.newLabel("or_matched")
	slot := f.topSlot()
	altBase := f.depth
	successDepth := -1
	for i, alt := range pat.Alternatives {
		altFail := f.newLabel("or_alt_fail")
		f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, pat.Sp)
		f.push()
		f.compileRefutableBindAt(alt, altFail, altBase, pat.Sp)
		if successDepth == -1 {
			successDepth = f.depth
		}
		f.jump(unit.OpJump, matched, pat.Sp)
		f.placeLabel(altFail)
		f.depth = altBase
		if i == len(pat.Alternatives)-1 {
			f.cleanToDepth(armBase, pat.Sp)
			f.jump(unit.OpJump, fail, pat.Sp)
		}
	}
	f.placeLabel(matched)
	f.depth = successDepth
}
