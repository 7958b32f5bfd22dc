package compile

import "github.com/rune-rs/rune/ast"

// freeVars collects, in first-use order, the names expr references that
// are not bound anywhere within expr itself. It is the closure compiler's
// capture analysis: every name it returns must be resolvable as a local
// in the enclosing funcCompiler, which compileClosure/compileAsync then
// Copy onto the stack ahead of the closure's own body.
func freeVars(expr ast.Expr) []string {
	var out []string
	seen := map[string]bool{}
	walkExpr(expr, map[string]bool{}, &out, seen)
	return out
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s)+4)
	for k := range s {
		out[k] = true
	}
	return out
}

func use(name string, bound map[string]bool, out *[]string, seen map[string]bool) {
	if name == "" || name == "_" || bound[name] || seen[name] {
		return
	}
	seen[name] = true
	*out = append(*out, name)
}

func bindPattern(p ast.Pattern, bound map[string]bool) {
	switch pat := p.(type) {
	case *ast.PatBind:
		bound[pat.Name.Name] = true
		if pat.SubPat != nil {
			bindPattern(pat.SubPat, bound)
		}
	case *ast.PatTuple:
		for _, it := range pat.Items {
			bindPattern(it, bound)
		}
	case *ast.PatVec:
		for _, it := range pat.Items {
			bindPattern(it, bound)
		}
	case *ast.PatStruct:
		for _, entry := range pat.Fields {
			bindPattern(entry.Pattern, bound)
		}
	case *ast.PatOr:
		if len(pat.Alternatives) > 0 {
			bindPattern(pat.Alternatives[0], bound)
		}
	}
}

func walkBlock(b *ast.ExprBlock, bound map[string]bool, out *[]string, seen map[string]bool) {
	bound = cloneSet(bound)
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.StmtLet:
			walkExpr(s.Value, bound, out, seen)
			bindPattern(s.Pattern, bound)
		case *ast.StmtExpr:
			walkExpr(s.Value, bound, out, seen)
		case *ast.StmtItem:
			// Nested items are independently scoped; they don't read the
			// enclosing function's locals.
		}
	}
	if b.Tail != nil {
		walkExpr(b.Tail, bound, out, seen)
	}
}

func walkExpr(e ast.Expr, bound map[string]bool, out *[]string, seen map[string]bool) {
	switch expr := e.(type) {
	case nil:
	case *ast.ExprLit:
	case *ast.ExprPath:
		if len(expr.Path.Segments) == 1 && !expr.Path.Global {
			use(expr.Path.Segments[0].Name, bound, out, seen)
		}
	case *ast.ExprBinary:
		walkExpr(expr.LHS, bound, out, seen)
		walkExpr(expr.RHS, bound, out, seen)
	case *ast.ExprUnary:
		walkExpr(expr.Operand, bound, out, seen)
	case *ast.ExprAssign:
		walkExpr(expr.Target, bound, out, seen)
		walkExpr(expr.Value, bound, out, seen)
	case *ast.ExprAs:
		walkExpr(expr.Value, bound, out, seen)
	case *ast.ExprCall:
		walkExpr(expr.Callee, bound, out, seen)
		for _, a := range expr.Args {
			walkExpr(a, bound, out, seen)
		}
	case *ast.ExprMethodCall:
		walkExpr(expr.Receiver, bound, out, seen)
		for _, a := range expr.Args {
			walkExpr(a, bound, out, seen)
		}
	case *ast.ExprField:
		walkExpr(expr.Value, bound, out, seen)
	case *ast.ExprTupleField:
		walkExpr(expr.Value, bound, out, seen)
	case *ast.ExprIndex:
		walkExpr(expr.Value, bound, out, seen)
		walkExpr(expr.Index, bound, out, seen)
	case *ast.ExprBlock:
		walkBlock(expr, bound, out, seen)
	case *ast.ExprLet:
		walkExpr(expr.Value, bound, out, seen)
		bindPattern(expr.Pattern, cloneSet(bound))
	case *ast.ExprIf:
		if lc, ok := expr.Cond.(*ast.ExprLet); ok {
			walkExpr(lc.Value, bound, out, seen)
			thenBound := cloneSet(bound)
			bindPattern(lc.Pattern, thenBound)
			walkBlock(expr.Then, thenBound, out, seen)
		} else {
			walkExpr(expr.Cond, bound, out, seen)
			walkBlock(expr.Then, bound, out, seen)
		}
		if expr.Else != nil {
			walkExpr(expr.Else, bound, out, seen)
		}
	case *ast.ExprWhile:
		walkExpr(expr.Cond, bound, out, seen)
		walkBlock(expr.Body, bound, out, seen)
	case *ast.ExprLoop:
		walkBlock(expr.Body, bound, out, seen)
	case *ast.ExprFor:
		walkExpr(expr.Iter, bound, out, seen)
		inner := cloneSet(bound)
		bindPattern(expr.Pattern, inner)
		walkBlock(expr.Body, inner, out, seen)
	case *ast.ExprBreak:
		if expr.Value != nil {
			walkExpr(expr.Value, bound, out, seen)
		}
	case *ast.ExprContinue:
	case *ast.ExprReturn:
		if expr.Value != nil {
			walkExpr(expr.Value, bound, out, seen)
		}
	case *ast.ExprClosure:
		inner := cloneSet(bound)
		for _, p := range expr.Params {
			bindPattern(p.Pattern, inner)
		}
		walkExpr(expr.Body, inner, out, seen)
	case *ast.ExprAsync:
		walkBlock(expr.Body, bound, out, seen)
	case *ast.ExprAwait:
		walkExpr(expr.Value, bound, out, seen)
	case *ast.ExprYield:
		if expr.Value != nil {
			walkExpr(expr.Value, bound, out, seen)
		}
	case *ast.ExprTry:
		walkExpr(expr.Value, bound, out, seen)
	case *ast.ExprVec:
		for _, it := range expr.Items {
			walkExpr(it, bound, out, seen)
		}
	case *ast.ExprTuple:
		for _, it := range expr.Items {
			walkExpr(it, bound, out, seen)
		}
	case *ast.ExprObject:
		for _, ent := range expr.Entries {
			walkExpr(ent.Value, bound, out, seen)
		}
	case *ast.ExprStructLit:
		for _, ent := range expr.Entries {
			walkExpr(ent.Value, bound, out, seen)
		}
		if expr.Rest != nil {
			walkExpr(expr.Rest, bound, out, seen)
		}
	case *ast.ExprRange:
		if expr.Start != nil {
			walkExpr(expr.Start, bound, out, seen)
		}
		if expr.End != nil {
			walkExpr(expr.End, bound, out, seen)
		}
	case *ast.ExprTemplate:
		for _, sub := range expr.Exprs {
			walkExpr(sub, bound, out, seen)
		}
	case *ast.ExprMatch:
		walkExpr(expr.Scrutinee, bound, out, seen)
		for _, arm := range expr.Arms {
			armBound := cloneSet(bound)
			bindPattern(arm.Pattern, armBound)
			if arm.Guard != nil {
				walkExpr(arm.Guard, armBound, out, seen)
			}
			walkExpr(arm.Body, armBound, out, seen)
		}
	case *ast.ExprSelect:
		for _, arm := range expr.Arms {
			walkExpr(arm.Future, bound, out, seen)
			armBound := cloneSet(bound)
			bindPattern(arm.Pattern, armBound)
			walkExpr(arm.Body, armBound, out, seen)
		}
	case *ast.ExprMacroCall:
		// Reached only if macro expansion failed earlier; no locals to
		// discover in raw, unexpanded tokens.
	case *ast.ExprGroup:
		walkExpr(expr.Inner, bound, out, seen)
	}
}

// containsYield reports whether expr contains a `yield` belonging to it
// (not to a nested closure or async block, which would assemble to
// their own generator, not this one).
func containsYield(expr ast.Expr) bool {
	found := false
	var walk func(ast.Expr)
	walkStmts := func(stmts []ast.Stmt, tail ast.Expr) {
		for _, s := range stmts {
			switch st := s.(type) {
			case *ast.StmtLet:
				walk(st.Value)
			case *ast.StmtExpr:
				walk(st.Value)
			}
		}
		if tail != nil {
			walk(tail)
		}
	}
	walk = func(e ast.Expr) {
		if found || e == nil {
			return
		}
		switch expr := e.(type) {
		case *ast.ExprYield:
			found = true
		case *ast.ExprBlock:
			walkStmts(expr.Stmts, expr.Tail)
		case *ast.ExprBinary:
			walk(expr.LHS)
			walk(expr.RHS)
		case *ast.ExprUnary:
			walk(expr.Operand)
		case *ast.ExprAssign:
			walk(expr.Target)
			walk(expr.Value)
		case *ast.ExprAs:
			walk(expr.Value)
		case *ast.ExprCall:
			walk(expr.Callee)
			for _, a := range expr.Args {
				walk(a)
			}
		case *ast.ExprMethodCall:
			walk(expr.Receiver)
			for _, a := range expr.Args {
				walk(a)
			}
		case *ast.ExprField:
			walk(expr.Value)
		case *ast.ExprTupleField:
			walk(expr.Value)
		case *ast.ExprIndex:
			walk(expr.Value)
			walk(expr.Index)
		case *ast.ExprLet:
			walk(expr.Value)
		case *ast.ExprIf:
			if lc, ok := expr.Cond.(*ast.ExprLet); ok {
				walk(lc.Value)
			} else {
				walk(expr.Cond)
			}
			walkStmts(expr.Then.Stmts, expr.Then.Tail)
			walk(expr.Else)
		case *ast.ExprWhile:
			walk(expr.Cond)
			walkStmts(expr.Body.Stmts, expr.Body.Tail)
		case *ast.ExprLoop:
			walkStmts(expr.Body.Stmts, expr.Body.Tail)
		case *ast.ExprFor:
			walk(expr.Iter)
			walkStmts(expr.Body.Stmts, expr.Body.Tail)
		case *ast.ExprBreak:
			walk(expr.Value)
		case *ast.ExprReturn:
			walk(expr.Value)
		case *ast.ExprAwait:
			walk(expr.Value)
		case *ast.ExprTry:
			walk(expr.Value)
		case *ast.ExprVec:
			for _, it := range expr.Items {
				walk(it)
			}
		case *ast.ExprTuple:
			for _, it := range expr.Items {
				walk(it)
			}
		case *ast.ExprObject:
			for _, ent := range expr.Entries {
				walk(ent.Value)
			}
		case *ast.ExprStructLit:
			for _, ent := range expr.Entries {
				walk(ent.Value)
			}
			walk(expr.Rest)
		case *ast.ExprRange:
			walk(expr.Start)
			walk(expr.End)
		case *ast.ExprTemplate:
			for _, sub := range expr.Exprs {
				walk(sub)
			}
		case *ast.ExprMatch:
			walk(expr.Scrutinee)
			for _, arm := range expr.Arms {
				walk(arm.Guard)
				walk(arm.Body)
			}
		case *ast.ExprSelect:
			for _, arm := range expr.Arms {
				walk(arm.Body)
			}
		case *ast.ExprGroup:
			walk(expr.Inner)
		}
	}
	walk(expr)
	return found
}
