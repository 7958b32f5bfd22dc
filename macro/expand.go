package macro

import (
	"fmt"

	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/parser"
	"github.com/rune-rs/rune/source"
)

// Expander owns the macro registry for one build and the gensym counter
// shared across every expansion it performs, so two macro invocations
// anywhere in the build never mint the same synthetic name.
type Expander struct {
	funcs  map[string]Func
	gensym int
}

// NewExpander returns an Expander pre-loaded with the built-in macros
// (format, println, print, dbg, file, line, stringify).
func NewExpander() *Expander {
	e := &Expander{funcs: map[string]Func{}}
	registerBuiltins(e)
	return e
}

// Register adds or replaces the macro callable under name, letting a
// host extend the built-in set with its own.
func (e *Expander) Register(name string, fn Func) {
	e.funcs[name] = fn
}

func (e *Expander) newContext(home *source.Source, span source.Span, name string) *Context {
	return &Context{Span: span, Name: name, home: home, gensym: &e.gensym}
}

// ExpandFile rewrites every macro call reachable from file in place,
// recursively: item-position calls are replaced by the items their
// expansion parses to (zero, one, or many), expression-position calls
// by the single expression theirs parses to. src is the Source file's
// spans are relative to, the same Source parser.ParseFile(src) was
// given to produce file.
func (e *Expander) ExpandFile(src *source.Source, file *ast.File) error {
	items, err := e.expandItems(src, file.Items)
	if err != nil {
		return err
	}
	file.Items = items
	return nil
}

// expandItems expands every item in items, splicing each MacroCallItem's
// expansion into the result in place of the call.
func (e *Expander) expandItems(home *source.Source, items []ast.Item) ([]ast.Item, error) {
	var out []ast.Item
	for _, it := range items {
		expanded, err := e.expandItem(home, it)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func (e *Expander) expandItem(home *source.Source, it ast.Item) ([]ast.Item, error) {
	switch node := it.(type) {
	case *ast.MacroCallItem:
		produced, err := e.expandMacroCallItem(home, node)
		if err != nil {
			return nil, err
		}
		// The expansion's own output may itself invoke macros.
		return e.expandItems(home, produced)
	case *ast.FnItem:
		if node.Body != nil {
			if err := e.expandBlock(home, node.Body); err != nil {
				return nil, err
			}
		}
		return []ast.Item{node}, nil
	case *ast.ImplItem:
		for _, fn := range node.Fns {
			if fn.Body == nil {
				continue
			}
			if err := e.expandBlock(home, fn.Body); err != nil {
				return nil, err
			}
		}
		return []ast.Item{node}, nil
	case *ast.ModItem:
		if node.Items != nil {
			items, err := e.expandItems(home, node.Items)
			if err != nil {
				return nil, err
			}
			node.Items = items
		}
		return []ast.Item{node}, nil
	case *ast.ConstItem:
		val, err := e.expandExpr(home, node.Value)
		if err != nil {
			return nil, err
		}
		node.Value = val
		return []ast.Item{node}, nil
	default:
		// StructItem, EnumItem, UseItem carry no expression bodies to
		// expand into.
		return []ast.Item{it}, nil
	}
}

func (e *Expander) expandMacroCallItem(home *source.Source, call *ast.MacroCallItem) ([]ast.Item, error) {
	out, err := e.invoke(home, call.Sp, call.Name.Name, call.Tokens)
	if err != nil {
		return nil, err
	}
	items, err := parser.ParseItems(source.Memory(home.Name(), out.Text))
	if err != nil {
		return nil, fmt.Errorf("macro %s!: expansion did not parse as items: %w", call.Name.Name, err)
	}
	return items, nil
}

func (e *Expander) invoke(home *source.Source, span source.Span, name string, tokens source.Span) (TokenStream, error) {
	fn, ok := e.funcs[name]
	if !ok {
		return TokenStream{}, fmt.Errorf("macro: unknown macro %q", name)
	}
	ctx := e.newContext(home, span, name)
	out, err := fn(ctx, TokenStream{Text: home.Slice(tokens)})
	if err != nil {
		return TokenStream{}, fmt.Errorf("macro %s!: %w", name, err)
	}
	return out, nil
}

func (e *Expander) expandBlock(home *source.Source, b *ast.ExprBlock) error {
	stmts, err := e.expandStmts(home, b.Stmts)
	if err != nil {
		return err
	}
	b.Stmts = stmts
	if b.Tail != nil {
		tail, err := e.expandExpr(home, b.Tail)
		if err != nil {
			return err
		}
		b.Tail = tail
	}
	return nil
}

func (e *Expander) expandStmts(home *source.Source, stmts []ast.Stmt) ([]ast.Stmt, error) {
	var out []ast.Stmt
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.StmtLet:
			val, err := e.expandExpr(home, s.Value)
			if err != nil {
				return nil, err
			}
			s.Value = val
			out = append(out, s)
		case *ast.StmtExpr:
			val, err := e.expandExpr(home, s.Value)
			if err != nil {
				return nil, err
			}
			s.Value = val
			out = append(out, s)
		case *ast.StmtItem:
			items, err := e.expandItem(home, s.Item)
			if err != nil {
				return nil, err
			}
			for _, it := range items {
				out = append(out, &ast.StmtItem{Item: it})
			}
		default:
			out = append(out, stmt)
		}
	}
	return out, nil
}

// expandExpr replaces every macro call reachable from e, recursing into
// every subexpression form the language has. Mirrors compile's
// freeVars/walkExpr traversal, rewriting instead of just reading.
func (e *Expander) expandExpr(home *source.Source, expr ast.Expr) (ast.Expr, error) {
	switch ex := expr.(type) {
	case nil:
		return nil, nil
	case *ast.ExprMacroCall:
		return e.expandMacroCallExpr(home, ex)
	case *ast.ExprLit, *ast.ExprPath:
		return ex, nil
	case *ast.ExprBinary:
		lhs, err := e.expandExpr(home, ex.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := e.expandExpr(home, ex.RHS)
		if err != nil {
			return nil, err
		}
		ex.LHS, ex.RHS = lhs, rhs
		return ex, nil
	case *ast.ExprUnary:
		v, err := e.expandExpr(home, ex.Operand)
		if err != nil {
			return nil, err
		}
		ex.Operand = v
		return ex, nil
	case *ast.ExprAssign:
		target, err := e.expandExpr(home, ex.Target)
		if err != nil {
			return nil, err
		}
		val, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		ex.Target, ex.Value = target, val
		return ex, nil
	case *ast.ExprAs:
		v, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		ex.Value = v
		return ex, nil
	case *ast.ExprCall:
		callee, err := e.expandExpr(home, ex.Callee)
		if err != nil {
			return nil, err
		}
		ex.Callee = callee
		if err := e.expandExprSlice(home, ex.Args); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprMethodCall:
		recv, err := e.expandExpr(home, ex.Receiver)
		if err != nil {
			return nil, err
		}
		ex.Receiver = recv
		if err := e.expandExprSlice(home, ex.Args); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprField:
		v, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		ex.Value = v
		return ex, nil
	case *ast.ExprTupleField:
		v, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		ex.Value = v
		return ex, nil
	case *ast.ExprIndex:
		v, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		idx, err := e.expandExpr(home, ex.Index)
		if err != nil {
			return nil, err
		}
		ex.Value, ex.Index = v, idx
		return ex, nil
	case *ast.ExprBlock:
		if err := e.expandBlock(home, ex); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprLet:
		v, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		ex.Value = v
		return ex, nil
	case *ast.ExprIf:
		cond, err := e.expandExpr(home, ex.Cond)
		if err != nil {
			return nil, err
		}
		ex.Cond = cond
		if err := e.expandBlock(home, ex.Then); err != nil {
			return nil, err
		}
		if ex.Else != nil {
			els, err := e.expandExpr(home, ex.Else)
			if err != nil {
				return nil, err
			}
			ex.Else = els
		}
		return ex, nil
	case *ast.ExprWhile:
		cond, err := e.expandExpr(home, ex.Cond)
		if err != nil {
			return nil, err
		}
		ex.Cond = cond
		if err := e.expandBlock(home, ex.Body); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprLoop:
		if err := e.expandBlock(home, ex.Body); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprFor:
		iter, err := e.expandExpr(home, ex.Iter)
		if err != nil {
			return nil, err
		}
		ex.Iter = iter
		if err := e.expandBlock(home, ex.Body); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprBreak:
		if ex.Value != nil {
			v, err := e.expandExpr(home, ex.Value)
			if err != nil {
				return nil, err
			}
			ex.Value = v
		}
		return ex, nil
	case *ast.ExprContinue:
		return ex, nil
	case *ast.ExprReturn:
		if ex.Value != nil {
			v, err := e.expandExpr(home, ex.Value)
			if err != nil {
				return nil, err
			}
			ex.Value = v
		}
		return ex, nil
	case *ast.ExprClosure:
		body, err := e.expandExpr(home, ex.Body)
		if err != nil {
			return nil, err
		}
		ex.Body = body
		return ex, nil
	case *ast.ExprAsync:
		if err := e.expandBlock(home, ex.Body); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprAwait:
		v, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		ex.Value = v
		return ex, nil
	case *ast.ExprYield:
		if ex.Value != nil {
			v, err := e.expandExpr(home, ex.Value)
			if err != nil {
				return nil, err
			}
			ex.Value = v
		}
		return ex, nil
	case *ast.ExprTry:
		v, err := e.expandExpr(home, ex.Value)
		if err != nil {
			return nil, err
		}
		ex.Value = v
		return ex, nil
	case *ast.ExprVec:
		if err := e.expandExprSlice(home, ex.Items); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprTuple:
		if err := e.expandExprSlice(home, ex.Items); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprObject:
		for i := range ex.Entries {
			v, err := e.expandExpr(home, ex.Entries[i].Value)
			if err != nil {
				return nil, err
			}
			ex.Entries[i].Value = v
		}
		return ex, nil
	case *ast.ExprStructLit:
		for i := range ex.Entries {
			v, err := e.expandExpr(home, ex.Entries[i].Value)
			if err != nil {
				return nil, err
			}
			ex.Entries[i].Value = v
		}
		if ex.Rest != nil {
			rest, err := e.expandExpr(home, ex.Rest)
			if err != nil {
				return nil, err
			}
			ex.Rest = rest
		}
		return ex, nil
	case *ast.ExprRange:
		if ex.Start != nil {
			v, err := e.expandExpr(home, ex.Start)
			if err != nil {
				return nil, err
			}
			ex.Start = v
		}
		if ex.End != nil {
			v, err := e.expandExpr(home, ex.End)
			if err != nil {
				return nil, err
			}
			ex.End = v
		}
		return ex, nil
	case *ast.ExprTemplate:
		if err := e.expandExprSlice(home, ex.Exprs); err != nil {
			return nil, err
		}
		return ex, nil
	case *ast.ExprMatch:
		scrut, err := e.expandExpr(home, ex.Scrutinee)
		if err != nil {
			return nil, err
		}
		ex.Scrutinee = scrut
		for i := range ex.Arms {
			if ex.Arms[i].Guard != nil {
				g, err := e.expandExpr(home, ex.Arms[i].Guard)
				if err != nil {
					return nil, err
				}
				ex.Arms[i].Guard = g
			}
			body, err := e.expandExpr(home, ex.Arms[i].Body)
			if err != nil {
				return nil, err
			}
			ex.Arms[i].Body = body
		}
		return ex, nil
	case *ast.ExprSelect:
		for i := range ex.Arms {
			future, err := e.expandExpr(home, ex.Arms[i].Future)
			if err != nil {
				return nil, err
			}
			ex.Arms[i].Future = future
			body, err := e.expandExpr(home, ex.Arms[i].Body)
			if err != nil {
				return nil, err
			}
			ex.Arms[i].Body = body
		}
		return ex, nil
	case *ast.ExprGroup:
		inner, err := e.expandExpr(home, ex.Inner)
		if err != nil {
			return nil, err
		}
		ex.Inner = inner
		return ex, nil
	default:
		return ex, nil
	}
}

func (e *Expander) expandExprSlice(home *source.Source, exprs []ast.Expr) error {
	for i, it := range exprs {
		v, err := e.expandExpr(home, it)
		if err != nil {
			return err
		}
		exprs[i] = v
	}
	return nil
}

func (e *Expander) expandMacroCallExpr(home *source.Source, call *ast.ExprMacroCall) (ast.Expr, error) {
	out, err := e.invoke(home, call.Sp, call.Name.Name, call.Tokens)
	if err != nil {
		return nil, err
	}
	expr, err := parser.ParseExpr(source.Memory(home.Name(), out.Text))
	if err != nil {
		return nil, fmt.Errorf("macro %s!: expansion did not parse as an expression: %w", call.Name.Name, err)
	}
	// The expansion's own output may itself invoke macros.
	return e.expandExpr(home, expr)
}
