package ir

import (
	"fmt"

	"github.com/rune-rs/rune/ast"
)

// Resolver looks up names the lowering pass can't resolve lexically by
// itself: other const items and const fns reachable from the item being
// lowered. Implemented by package compile (which has the query.Store);
// kept as an interface here so ir never imports query, avoiding a cycle
// (query's item.ConstMeta.Value already holds an ir.ConstValue as
// interface{} for exactly this reason).
type Resolver interface {
	// ResolveConstFn returns the lowered body, parameter names, and
	// whether name refers to a const fn reachable from the current item.
	ResolveConstFn(name string) (body Ir, params []string, ok bool)
}

// Lower converts a parsed expression into a const-IR tree. Only the
// subset of Rune expression forms spec.md §4.5 lists as const-evaluable
// is supported; anything else is reported as an Expected error at
// lowering time rather than deferred to evaluation.
func Lower(expr ast.Expr, r Resolver) (Ir, error) {
	switch e := expr.(type) {
	case *ast.ExprLit:
		return lowerLit(e)
	case *ast.ExprPath:
		if len(e.Path.Segments) != 1 {
			return nil, expected("const references must be a single name, got a path of %d segments", len(e.Path.Segments))
		}
		return Name{Name: e.Path.Segments[0].Name}, nil
	case *ast.ExprBinary:
		lhs, err := Lower(e.LHS, r)
		if err != nil {
			return nil, err
		}
		rhs, err := Lower(e.RHS, r)
		if err != nil {
			return nil, err
		}
		return Binary{Op: e.Op, LHS: lhs, RHS: rhs}, nil
	case *ast.ExprUnary:
		return lowerUnary(e, r)
	case *ast.ExprGroup:
		return Lower(e.Inner, r)
	case *ast.ExprBlock:
		return lowerBlock(e, r)
	case *ast.ExprIf:
		return lowerIf(e, r)
	case *ast.ExprLet:
		val, err := Lower(e.Value, r)
		if err != nil {
			return nil, err
		}
		name, err := bindName(e.Pattern)
		if err != nil {
			return nil, err
		}
		return Decl{Name: name, Value: val}, nil
	case *ast.ExprAssign:
		return lowerAssign(e, r)
	case *ast.ExprTuple:
		items, err := lowerExprs(e.Items, r)
		if err != nil {
			return nil, err
		}
		return Tuple{Items: items}, nil
	case *ast.ExprVec:
		items, err := lowerExprs(e.Items, r)
		if err != nil {
			return nil, err
		}
		return Vec{Items: items}, nil
	case *ast.ExprObject:
		keys := make([]string, len(e.Entries))
		vals := make([]Ir, len(e.Entries))
		for i, ent := range e.Entries {
			keys[i] = ent.Key.Name
			v, err := Lower(ent.Value, r)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return Object{Keys: keys, Values: vals}, nil
	case *ast.ExprTemplate:
		return lowerTemplate(e, r)
	case *ast.ExprLoop:
		body, err := Lower(e.Body, r)
		if err != nil {
			return nil, err
		}
		label := ""
		if e.Label != nil {
			label = e.Label.Name
		}
		return Loop{Label: label, Body: body}, nil
	case *ast.ExprBreak:
		var val Ir
		if e.Value != nil {
			v, err := Lower(e.Value, r)
			if err != nil {
				return nil, err
			}
			val = v
		}
		label := ""
		if e.Label != nil {
			label = e.Label.Name
		}
		return Break{Label: label, Value: val}, nil
	case *ast.ExprCall:
		return lowerCall(e, r)
	default:
		return nil, expected("unsupported const expression %T", expr)
	}
}

func lowerLit(e *ast.ExprLit) (Ir, error) {
	switch e.Kind {
	case ast.LitUnit:
		return Value{Unit()}, nil
	case ast.LitBool:
		return Value{Bool(e.BoolValue)}, nil
	case ast.LitInteger:
		return Value{Integer(e.IntValue)}, nil
	case ast.LitFloat:
		return Value{Float(e.FloatValue)}, nil
	case ast.LitChar:
		return Value{Char(e.CharValue)}, nil
	case ast.LitByte:
		return Value{Byte(e.ByteValue)}, nil
	case ast.LitString:
		return Value{String(e.StringValue)}, nil
	case ast.LitByteString:
		return Value{Bytes([]byte(e.StringValue))}, nil
	default:
		return nil, expected("unsupported literal kind %v", e.Kind)
	}
}

func lowerUnary(e *ast.ExprUnary, r Resolver) (Ir, error) {
	operand, err := Lower(e.Operand, r)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.UnNeg:
		return Binary{Op: ast.OpSub, LHS: Value{Integer(0)}, RHS: operand}, nil
	case ast.UnNot:
		return Binary{Op: ast.OpEq, LHS: operand, RHS: Value{Bool(false)}}, nil
	default:
		return nil, expected("unsupported const unary operator")
	}
}

func lowerBlock(e *ast.ExprBlock, r Resolver) (Ir, error) {
	body := make([]Ir, 0, len(e.Stmts))
	for _, stmt := range e.Stmts {
		switch s := stmt.(type) {
		case *ast.StmtLet:
			name, err := bindName(s.Pattern)
			if err != nil {
				return nil, err
			}
			val, err := Lower(s.Value, r)
			if err != nil {
				return nil, err
			}
			body = append(body, Decl{Name: name, Value: val})
		case *ast.StmtExpr:
			v, err := Lower(s.Value, r)
			if err != nil {
				return nil, err
			}
			body = append(body, v)
		case *ast.StmtItem:
			return nil, expected("local items are not const-evaluable")
		}
	}
	var tail Ir
	if e.Tail != nil {
		t, err := Lower(e.Tail, r)
		if err != nil {
			return nil, err
		}
		tail = t
	}
	return Scope{Body: body, Tail: tail}, nil
}

func lowerIf(e *ast.ExprIf, r Resolver) (Ir, error) {
	var arms []Branch
	var elseIr Ir

	cur := ast.Expr(e)
	for {
		ifExpr, ok := cur.(*ast.ExprIf)
		if !ok {
			break
		}
		cond, err := Lower(ifExpr.Cond, r)
		if err != nil {
			return nil, err
		}
		then, err := Lower(ifExpr.Then, r)
		if err != nil {
			return nil, err
		}
		arms = append(arms, Branch{Cond: cond, Body: then})
		if ifExpr.Else == nil {
			cur = nil
			break
		}
		cur = ifExpr.Else
	}
	if cur != nil {
		e2, err := Lower(cur, r)
		if err != nil {
			return nil, err
		}
		elseIr = e2
	}
	return Branches{Arms: arms, Else: elseIr}, nil
}

func lowerAssign(e *ast.ExprAssign, r Resolver) (Ir, error) {
	name, err := targetName(e.Target)
	if err != nil {
		return nil, err
	}
	val, err := Lower(e.Value, r)
	if err != nil {
		return nil, err
	}
	if e.Op == ast.AssignSet {
		return Set{Target: Target{Name: name}, Value: val}, nil
	}
	return Assign{Target: Target{Name: name}, Op: e.Op, Value: val}, nil
}

func targetName(e ast.Expr) (string, error) {
	p, ok := e.(*ast.ExprPath)
	if !ok || len(p.Path.Segments) != 1 {
		return "", expected("const assignment target must be a plain local")
	}
	return p.Path.Segments[0].Name, nil
}

func bindName(p ast.Pattern) (string, error) {
	bind, ok := p.(*ast.PatBind)
	if !ok {
		return "", expected("const let only supports a plain binding pattern")
	}
	return bind.Name.Name, nil
}

func lowerExprs(exprs []ast.Expr, r Resolver) ([]Ir, error) {
	out := make([]Ir, len(exprs))
	for i, e := range exprs {
		v, err := Lower(e, r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func lowerTemplate(e *ast.ExprTemplate, r Resolver) (Ir, error) {
	parts := make([]Ir, 0, len(e.Order))
	li, ei := 0, 0
	for _, isExpr := range e.Order {
		if isExpr {
			v, err := Lower(e.Exprs[ei], r)
			if err != nil {
				return nil, err
			}
			parts = append(parts, v)
			ei++
		} else {
			parts = append(parts, Value{String(e.Literals[li])})
			li++
		}
	}
	return Template{Parts: parts}, nil
}

func lowerCall(e *ast.ExprCall, r Resolver) (Ir, error) {
	path, ok := e.Callee.(*ast.ExprPath)
	if !ok || len(path.Path.Segments) != 1 {
		return nil, expected("const calls must name a plain const fn")
	}
	name := path.Path.Segments[0].Name
	body, params, ok := r.ResolveConstFn(name)
	if !ok {
		return nil, &Error{Kind: MissingName, Msg: fmt.Sprintf("const fn %q not found", name)}
	}
	if len(params) != len(e.Args) {
		return nil, expected("const fn %q expects %d arguments, got %d", name, len(params), len(e.Args))
	}
	args, err := lowerExprs(e.Args, r)
	if err != nil {
		return nil, err
	}
	return Call{Name: name, Args: args, Body: body, Params: params}, nil
}
