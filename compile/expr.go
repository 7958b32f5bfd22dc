package compile

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/ir"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/unit"
)

// compileStmt assembles one statement of a block. A StmtExpr without a
// trailing semicolon is only legal as a block's Tail (handled by the
// caller), so compileStmt always cleans up after itself: every
// statement form leaves the stack exactly as it found it, except
// StmtLet, which keeps the bound value and any slots its pattern's
// bindings add as locals.
func (f *funcCompiler) compileStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.StmtLet:
		f.compileExpr(s.Value)
		f.compileIrrefutableBind(s.Pattern)
	case *ast.StmtExpr:
		f.compileExpr(s.Value)
		f.emit(unit.Inst{Op: unit.OpPop}, s.Value.Span())
		f.pop()
	case *ast.StmtItem:
		// Local item declarations (nested fn/struct/const) are indexed
		// and compiled independently by the query store; nothing to
		// assemble at the use site.
	default:
		f.errorAt(stmt.Span(), UnsupportedExpr, "unsupported statement")
	}
}

// compileExpr assembles e so that exactly one value is left on top of
// the stack.
func (f *funcCompiler) compileExpr(e ast.Expr) {
	switch expr := e.(type) {
	case *ast.ExprLit:
		f.compileLit(expr)
	case *ast.ExprPath:
		f.compilePathExpr(expr)
	case *ast.ExprBinary:
		f.compileBinary(expr)
	case *ast.ExprUnary:
		f.compileUnary(expr)
	case *ast.ExprAssign:
		f.compileAssign(expr)
	case *ast.ExprAs:
		// Rune values already carry their own dynamic type; primitive
		// conversions are accepted syntactically and compiled as their
		// operand's value unchanged. User-defined Into/TryFrom
		// conversions are not supported.
		f.compileExpr(expr.Value)
	case *ast.ExprCall:
		f.compileCall(expr)
	case *ast.ExprMethodCall:
		f.compileMethodCall(expr)
	case *ast.ExprField:
		f.compileField(expr)
	case *ast.ExprTupleField:
		f.compileExpr(expr.Value)
		f.emit(unit.Inst{Op: unit.OpTupleIndexGet, Slot: uint32(expr.Index)}, expr.Sp)
	case *ast.ExprIndex:
		f.compileExpr(expr.Value)
		f.compileExpr(expr.Index)
		f.pop()
		f.emit(unit.Inst{Op: unit.OpIndexGet}, expr.Sp)
	case *ast.ExprBlock:
		f.compileBlockExpr(expr)
	case *ast.ExprLet:
		f.compileLetExpr(expr)
	case *ast.ExprIf:
		f.compileIf(expr)
	case *ast.ExprWhile:
		f.compileWhile(expr)
	case *ast.ExprLoop:
		f.compileLoop(expr)
	case *ast.ExprFor:
		f.compileFor(expr)
	case *ast.ExprBreak:
		f.compileBreak(expr)
	case *ast.ExprContinue:
		f.compileContinue(expr)
	case *ast.ExprReturn:
		f.compileReturn(expr)
	case *ast.ExprClosure:
		f.compileClosure(expr)
	case *ast.ExprAsync:
		f.compileAsync(expr)
	case *ast.ExprAwait:
		f.compileExpr(expr.Value)
		f.emit(unit.Inst{Op: unit.OpAwait}, expr.Sp)
	case *ast.ExprYield:
		if expr.Value != nil {
			f.compileExpr(expr.Value)
			f.emit(unit.Inst{Op: unit.OpYield}, expr.Sp)
		} else {
			f.emit(unit.Inst{Op: unit.OpYieldUnit}, expr.Sp)
			f.push()
		}
	case *ast.ExprTry:
		f.compileExpr(expr.Value)
		f.emit(unit.Inst{Op: unit.OpCall, Hash: item.ProtocolTry, Count: 1}, expr.Sp)
	case *ast.ExprVec:
		for _, it := range expr.Items {
			f.compileExpr(it)
		}
		for range expr.Items {
			f.pop()
		}
		f.emit(unit.Inst{Op: unit.OpVec, Count: uint32(len(expr.Items))}, expr.Sp)
		f.push()
	case *ast.ExprTuple:
		for _, it := range expr.Items {
			f.compileExpr(it)
		}
		for range expr.Items {
			f.pop()
		}
		f.emit(unit.Inst{Op: unit.OpTuple, Count: uint32(len(expr.Items))}, expr.Sp)
		f.push()
	case *ast.ExprObject:
		f.compileObject(expr)
	case *ast.ExprStructLit:
		f.compileStructLit(expr)
	case *ast.ExprRange:
		f.compileRange(expr)
	case *ast.ExprTemplate:
		f.compileTemplate(expr)
	case *ast.ExprMatch:
		f.compileMatch(expr)
	case *ast.ExprSelect:
		f.compileSelect(expr)
	case *ast.ExprMacroCall:
		f.errorAt(expr.Sp, UnsupportedExpr, "macro call reached the assembler unexpanded")
		f.pushUnit(expr.Sp)
	case *ast.ExprGroup:
		f.compileExpr(expr.Inner)
	default:
		f.errorAt(e.Span(), UnsupportedExpr, "unsupported expression")
		f.pushUnit(e.Span())
	}
}

func (f *funcCompiler) pushUnit(span source.Span) {
	f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineUnit}}, span)
	f.push()
}

func (f *funcCompiler) compileLit(lit *ast.ExprLit) {
	inline := unit.InlineValue{}
	switch lit.Kind {
	case ast.LitUnit:
		inline.Kind = unit.InlineUnit
	case ast.LitBool:
		inline.Kind = unit.InlineBool
		inline.Bool = lit.BoolValue
	case ast.LitInteger:
		inline.Kind = unit.InlineInteger
		inline.Integer = lit.IntValue
	case ast.LitFloat:
		inline.Kind = unit.InlineFloat
		inline.Float = lit.FloatValue
	case ast.LitChar:
		inline.Kind = unit.InlineChar
		inline.Char = lit.CharValue
	case ast.LitByte:
		inline.Kind = unit.InlineByte
		inline.Byte = lit.ByteValue
	case ast.LitString, ast.LitByteString:
		slot := f.builder.InternString(lit.StringValue)
		if lit.Kind == ast.LitByteString {
			bslot := f.builder.InternBytes([]byte(lit.StringValue))
			f.emit(unit.Inst{Op: unit.OpBytes, Slot: bslot}, lit.Sp)
		} else {
			f.emit(unit.Inst{Op: unit.OpString, Slot: slot}, lit.Sp)
		}
		f.push()
		return
	}
	f.emit(unit.Inst{Op: unit.OpPush, Inline: inline}, lit.Sp)
	f.push()
}

// compilePathExpr resolves a bare path to a local variable, a constant,
// or a function reference (LoadFn).
func (f *funcCompiler) compilePathExpr(e *ast.ExprPath) {
	if len(e.Path.Segments) == 1 && !e.Path.Global {
		name := e.Path.Segments[0].Name
		if slot, ok := f.resolveLocal(name); ok {
			f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, e.Sp)
			f.push()
			return
		}
	}

	id, err := f.store.ResolvePath(f.fromID, e.Path)
	if err != nil {
		f.errorAt(e.Sp, MissingItem, err.Error())
		f.pushUnit(e.Sp)
		return
	}
	meta, _ := f.store.Meta(id)
	f.CompileItem(id)

	switch {
	case meta != nil && meta.Kind == item.KindConst:
		if cv, ok := f.builder.Constant(meta.Item.Hash()); ok {
			f.compileConstValue(cv, e.Sp)
			return
		}
		f.pushUnit(e.Sp)
	case meta != nil && meta.Kind == item.KindVariant && meta.Variant.Fields.FieldsKind == item.FieldsEmpty:
		// A unit variant referenced bare, e.g. `Option::None`, constructs
		// its value directly; it is never called like a function.
		f.emit(unit.Inst{Op: unit.OpVariantUnit, Hash: meta.Item.Hash()}, e.Sp)
		f.push()
	case meta != nil && meta.Kind == item.KindFunction:
		f.emit(unit.Inst{Op: unit.OpLoadFn, Hash: meta.Item.Hash()}, e.Sp)
		f.push()
	default:
		f.emit(unit.Inst{Op: unit.OpLoadFn, Hash: meta.Item.Hash()}, e.Sp)
		f.push()
	}
}

func (f *funcCompiler) compileBinary(e *ast.ExprBinary) {
	if e.Op == ast.OpAnd || e.Op == ast.OpOr {
		f.compileShortCircuit(e)
		return
	}
	f.compileExpr(e.LHS)
	f.compileExpr(e.RHS)
	f.pop()
	f.emit(unit.Inst{Op: unit.OpArith, Arith: arithKindOf(e.Op)}, e.Sp)
}

// compileShortCircuit lowers && and || to a branch so the right operand
// is never evaluated unless it can affect the result.
func (f *funcCompiler) compileShortCircuit(e *ast.ExprBinary) {
	end := f.newLabel("shortcircuit_end")
	f.compileExpr(e.LHS)
	f.pop()
	dup := unit.Inst{Op: unit.OpDup}
	f.emit(dup, e.Sp)
	f.push()
	if e.Op == ast.OpAnd {
		f.jump(unit.OpJumpIfNot, end, e.Sp)
	} else {
		f.jump(unit.OpJumpIf, end, e.Sp)
	}
	f.pop()
	f.emit(unit.Inst{Op: unit.OpPop}, e.Sp)
	f.compileExpr(e.RHS)
	f.pop()
	f.placeLabel(end)
	f.push()
}

func (f *funcCompiler) compileUnary(e *ast.ExprUnary) {
	switch e.Op {
	case ast.UnNot:
		f.compileExpr(e.Operand)
		f.pop()
		f.emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithNot}, e.Sp)
		f.push()
	case ast.UnNeg:
		f.compileExpr(e.Operand)
		f.pop()
		f.emit(unit.Inst{Op: unit.OpArith, Arith: unit.ArithNeg}, e.Sp)
		f.push()
	case ast.UnDeref, ast.UnRef, ast.UnRefMut:
		// Rune has no pointer types in the sense a systems language does;
		// `&`/`&mut`/`*` on an ordinary value compile to the value itself,
		// since every Shared<T> cell is already reference semantics.
		f.compileExpr(e.Operand)
	default:
		f.errorAt(e.Sp, UnsupportedExpr, "unsupported unary operator")
		f.compileExpr(e.Operand)
	}
}

func arithKindOf(op ast.BinOp) unit.ArithKind {
	switch op {
	case ast.OpAdd:
		return unit.ArithAdd
	case ast.OpSub:
		return unit.ArithSub
	case ast.OpMul:
		return unit.ArithMul
	case ast.OpDiv:
		return unit.ArithDiv
	case ast.OpRem:
		return unit.ArithRem
	case ast.OpShl:
		return unit.ArithShl
	case ast.OpShr:
		return unit.ArithShr
	case ast.OpBitAnd:
		return unit.ArithBitAnd
	case ast.OpBitOr:
		return unit.ArithBitOr
	case ast.OpBitXor:
		return unit.ArithBitXor
	case ast.OpEq:
		return unit.ArithEq
	case ast.OpNeq:
		return unit.ArithNeq
	case ast.OpLt:
		return unit.ArithLt
	case ast.OpLte:
		return unit.ArithLte
	case ast.OpGt:
		return unit.ArithGt
	case ast.OpGte:
		return unit.ArithGte
	default:
		return unit.ArithAdd
	}
}

func (f *funcCompiler) compileCall(e *ast.ExprCall) {
	for _, a := range e.Args {
		f.compileExpr(a)
	}
	defer func() {
		for range e.Args {
			f.pop()
		}
		f.push()
	}()

	if path, ok := e.Callee.(*ast.ExprPath); ok {
		if id, err := f.store.ResolvePath(f.fromID, path.Path); err == nil {
			if meta, ok := f.store.Meta(id); ok {
				switch {
				case meta.Kind == item.KindFunction:
					f.CompileItem(id)
					f.emit(unit.Inst{Op: unit.OpCall, Hash: meta.Item.Hash(), Count: uint32(len(e.Args))}, e.Sp)
					return
				case meta.Kind == item.KindVariant && meta.Variant.Fields.FieldsKind == item.FieldsUnnamed:
					// Tuple variant constructor, e.g. `Option::Some(x)`.
					f.CompileItem(id)
					f.emit(unit.Inst{Op: unit.OpVariantTuple, Hash: meta.Item.Hash(), Count: uint32(len(e.Args))}, e.Sp)
					return
				case meta.Kind == item.KindStruct && meta.Struct.FieldsKind == item.FieldsUnnamed:
					// Tuple struct constructor, e.g. `Point(1, 2)`.
					f.CompileItem(id)
					f.emit(unit.Inst{Op: unit.OpTupleStruct, Hash: meta.Item.Hash(), Count: uint32(len(e.Args))}, e.Sp)
					return
				}
			}
		}
	}

	f.compileExpr(e.Callee)
	f.pop()
	f.emit(unit.Inst{Op: unit.OpCallFn, Count: uint32(len(e.Args))}, e.Sp)
}

func (f *funcCompiler) compileMethodCall(e *ast.ExprMethodCall) {
	f.compileExpr(e.Receiver)
	for _, a := range e.Args {
		f.compileExpr(a)
	}
	for range e.Args {
		f.pop()
	}
	nameHash := item.HashBytes(e.Name.Name)
	f.emit(unit.Inst{Op: unit.OpCallInstance, Hash: nameHash, Count: uint32(len(e.Args) + 1)}, e.Sp)
}

func (f *funcCompiler) compileField(e *ast.ExprField) {
	f.compileExpr(e.Value)
	slot := f.builder.InternString(e.Name.Name)
	f.emit(unit.Inst{Op: unit.OpObjectIndexGet, Slot: slot}, e.Sp)
}

func (f *funcCompiler) compileObject(e *ast.ExprObject) {
	names := make([]string, len(e.Entries))
	for i, ent := range e.Entries {
		names[i] = ent.Key.Name
		f.compileExpr(ent.Value)
	}
	for range e.Entries {
		f.pop()
	}
	slot := f.builder.InternObjectKeys(names)
	f.emit(unit.Inst{Op: unit.OpObject, Slot: slot, Count: uint32(len(names))}, e.Sp)
	f.push()
}

func (f *funcCompiler) compileStructLit(e *ast.ExprStructLit) {
	id, err := f.store.ResolvePath(f.fromID, e.Path)
	if err != nil {
		f.errorAt(e.Sp, MissingItem, err.Error())
		f.pushUnit(e.Sp)
		return
	}
	f.CompileItem(id)
	meta, _ := f.store.Meta(id)

	names := make([]string, len(e.Entries))
	for i, ent := range e.Entries {
		names[i] = ent.Key.Name
		f.compileExpr(ent.Value)
	}
	for range e.Entries {
		f.pop()
	}
	slot := f.builder.InternObjectKeys(names)
	hash := meta.Item.Hash()
	op := unit.OpStruct
	if meta.Kind == item.KindVariant {
		// Object variant constructor, e.g. `Shape::Circle { radius: 1.0 }`.
		op = unit.OpVariantObject
	}
	f.emit(unit.Inst{Op: op, Hash: hash, Slot: slot, Count: uint32(len(names))}, e.Sp)
	f.push()
}

func (f *funcCompiler) compileRange(e *ast.ExprRange) {
	limits := unit.RangeFull
	switch {
	case e.Start != nil && e.End != nil:
		limits = unit.RangeBoth
		f.compileExpr(e.Start)
		f.compileExpr(e.End)
		f.pop()
	case e.Start != nil:
		limits = unit.RangeFrom
		f.compileExpr(e.Start)
	case e.End != nil:
		limits = unit.RangeTo
		f.compileExpr(e.End)
	}
	if e.Start != nil || e.End != nil {
		f.pop()
	}
	f.emit(unit.Inst{Op: unit.OpRange, Range: limits}, e.Sp)
	f.push()
}

func (f *funcCompiler) compileTemplate(e *ast.ExprTemplate) {
	litIdx, exprIdx, count := 0, 0, 0
	for _, isExpr := range e.Order {
		if isExpr {
			f.compileExpr(e.Exprs[exprIdx])
			exprIdx++
		} else {
			slot := f.builder.InternString(e.Literals[litIdx])
			f.emit(unit.Inst{Op: unit.OpString, Slot: slot}, e.Sp)
			f.push()
			litIdx++
		}
		count++
	}
	for i := 0; i < count; i++ {
		f.pop()
	}
	f.emit(unit.Inst{Op: unit.OpStringConcat, Count: uint32(count)}, e.Sp)
	f.push()
}

func (f *funcCompiler) compileAssign(e *ast.ExprAssign) {
	switch target := e.Target.(type) {
	case *ast.ExprPath:
		f.compileAssignPath(target, e)
	case *ast.ExprField:
		f.compileExpr(target.Value)
		f.compileExpr(e.Value)
		f.pop()
		if e.Op != ast.AssignSet {
			f.errorAt(e.Sp, UnsupportedExpr, "compound field assignment unsupported")
		}
		slot := f.builder.InternString(target.Name.Name)
		f.emit(unit.Inst{Op: unit.OpObjectIndexSet, Slot: slot}, e.Sp)
	case *ast.ExprIndex:
		f.compileExpr(target.Value)
		f.compileExpr(target.Index)
		f.compileExpr(e.Value)
		f.pop()
		f.pop()
		f.emit(unit.Inst{Op: unit.OpIndexSet}, e.Sp)
	case *ast.ExprTupleField:
		f.compileExpr(target.Value)
		f.compileExpr(e.Value)
		f.pop()
		f.emit(unit.Inst{Op: unit.OpTupleIndexSet, Slot: uint32(target.Index)}, e.Sp)
	default:
		f.errorAt(e.Sp, UnsupportedExpr, "unsupported assignment target")
		f.pushUnit(e.Sp)
	}
}

func (f *funcCompiler) compileAssignPath(target *ast.ExprPath, e *ast.ExprAssign) {
	if len(target.Path.Segments) != 1 {
		f.errorAt(e.Sp, UnsupportedExpr, "unsupported assignment target")
		f.pushUnit(e.Sp)
		return
	}
	slot, ok := f.resolveLocal(target.Path.Segments[0].Name)
	if !ok {
		f.errorAt(e.Sp, MissingItem, missingLocal(e.Sp, target.Path.Segments[0].Name).Error())
		f.pushUnit(e.Sp)
		return
	}

	if e.Op == ast.AssignSet {
		f.compileExpr(e.Value)
		f.pop()
		f.emit(unit.Inst{Op: unit.OpReplace, Slot: uint32(slot)}, e.Sp)
		f.pushUnit(e.Sp)
		return
	}

	f.emit(unit.Inst{Op: unit.OpCopy, Slot: uint32(slot)}, e.Sp)
	f.push()
	f.compileExpr(e.Value)
	f.pop()
	f.emit(unit.Inst{Op: unit.OpArith, Arith: compoundArith(e.Op)}, e.Sp)
	f.pop()
	f.emit(unit.Inst{Op: unit.OpReplace, Slot: uint32(slot)}, e.Sp)
	f.pushUnit(e.Sp)
}

func compoundArith(op ast.AssignOp) unit.ArithKind {
	switch op {
	case ast.AssignAdd:
		return unit.ArithAdd
	case ast.AssignSub:
		return unit.ArithSub
	case ast.AssignMul:
		return unit.ArithMul
	case ast.AssignDiv:
		return unit.ArithDiv
	case ast.AssignRem:
		return unit.ArithRem
	case ast.AssignShl:
		return unit.ArithShl
	case ast.AssignShr:
		return unit.ArithShr
	case ast.AssignBitAnd:
		return unit.ArithBitAnd
	case ast.AssignBitOr:
		return unit.ArithBitOr
	case ast.AssignBitXor:
		return unit.ArithBitXor
	default:
		return unit.ArithAdd
	}
}

// compileConstValue emits the instruction sequence that reconstructs a
// const item's pre-evaluated value at a reference site, inlining scalar
// kinds as a Push and recursively building the heap kinds the same way
// a literal of that shape would be assembled.
func (f *funcCompiler) compileConstValue(v ir.ConstValue, span source.Span) {
	switch v.Kind {
	case ir.KindUnit:
		f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineUnit}}, span)
		f.push()
	case ir.KindBool:
		f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineBool, Bool: v.Bool}}, span)
		f.push()
	case ir.KindByte:
		f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineByte, Byte: v.Byte}}, span)
		f.push()
	case ir.KindChar:
		f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineChar, Char: v.Char}}, span)
		f.push()
	case ir.KindInteger:
		f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineInteger, Integer: v.Integer}}, span)
		f.push()
	case ir.KindFloat:
		f.emit(unit.Inst{Op: unit.OpPush, Inline: unit.InlineValue{Kind: unit.InlineFloat, Float: v.Float}}, span)
		f.push()
	case ir.KindString:
		slot := f.builder.InternString(v.String)
		f.emit(unit.Inst{Op: unit.OpString, Slot: slot}, span)
		f.push()
	case ir.KindBytes:
		slot := f.builder.InternBytes(v.Bytes)
		f.emit(unit.Inst{Op: unit.OpBytes, Slot: slot}, span)
		f.push()
	case ir.KindVec:
		for _, it := range v.Items {
			f.compileConstValue(it, span)
		}
		for range v.Items {
			f.pop()
		}
		f.emit(unit.Inst{Op: unit.OpVec, Count: uint32(len(v.Items))}, span)
		f.push()
	case ir.KindTuple:
		for _, it := range v.Items {
			f.compileConstValue(it, span)
		}
		for range v.Items {
			f.pop()
		}
		f.emit(unit.Inst{Op: unit.OpTuple, Count: uint32(len(v.Items))}, span)
		f.push()
	case ir.KindObject:
		for _, it := range v.Items {
			f.compileConstValue(it, span)
		}
		for range v.Items {
			f.pop()
		}
		slot := f.builder.InternObjectKeys(v.Keys)
		f.emit(unit.Inst{Op: unit.OpObject, Slot: slot, Count: uint32(len(v.Items))}, span)
		f.push()
	default:
		f.pushUnit(span)
	}
}
