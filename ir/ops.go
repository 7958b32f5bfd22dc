package ir

import (
	"strings"

	"github.com/rune-rs/rune/ast"
)

func (ip *Interpreter) evalBinary(n Binary, sc *scope) (ConstValue, error) {
	lhs, err := ip.eval(n.LHS, sc)
	if err != nil {
		return ConstValue{}, err
	}
	rhs, err := ip.eval(n.RHS, sc)
	if err != nil {
		return ConstValue{}, err
	}
	return applyBinary(n.Op, lhs, rhs)
}

func applyBinary(op ast.BinOp, lhs, rhs ConstValue) (ConstValue, error) {
	switch op {
	case ast.OpEq:
		return Bool(lhs.Equal(rhs)), nil
	case ast.OpNeq:
		return Bool(!lhs.Equal(rhs)), nil
	case ast.OpAnd:
		l, ok := lhs.Truthy()
		if !ok {
			return ConstValue{}, expected("&& operand must be bool")
		}
		if !l {
			return Bool(false), nil
		}
		r, ok := rhs.Truthy()
		if !ok {
			return ConstValue{}, expected("&& operand must be bool")
		}
		return Bool(r), nil
	case ast.OpOr:
		l, ok := lhs.Truthy()
		if !ok {
			return ConstValue{}, expected("|| operand must be bool")
		}
		if l {
			return Bool(true), nil
		}
		r, ok := rhs.Truthy()
		if !ok {
			return ConstValue{}, expected("|| operand must be bool")
		}
		return Bool(r), nil
	}

	if lhs.Kind == KindString && rhs.Kind == KindString && op == ast.OpAdd {
		return String(lhs.String + rhs.String), nil
	}

	if lhs.Kind == KindFloat || rhs.Kind == KindFloat {
		lf, ok1 := asFloat(lhs)
		rf, ok2 := asFloat(rhs)
		if !ok1 || !ok2 {
			return ConstValue{}, expected("arithmetic operand must be numeric")
		}
		return applyFloatBinary(op, lf, rf)
	}

	li, ok1 := asInt(lhs)
	ri, ok2 := asInt(rhs)
	if !ok1 || !ok2 {
		return ConstValue{}, expected("arithmetic operand must be numeric, got %v and %v", lhs.Kind, rhs.Kind)
	}
	return applyIntBinary(op, li, ri)
}

func asInt(v ConstValue) (int64, bool) {
	switch v.Kind {
	case KindInteger:
		return v.Integer, true
	case KindByte:
		return int64(v.Byte), true
	case KindChar:
		return int64(v.Char), true
	default:
		return 0, false
	}
}

func asFloat(v ConstValue) (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInteger:
		return float64(v.Integer), true
	case KindByte:
		return float64(v.Byte), true
	default:
		return 0, false
	}
}

func applyIntBinary(op ast.BinOp, l, r int64) (ConstValue, error) {
	switch op {
	case ast.OpAdd:
		return Integer(l + r), nil
	case ast.OpSub:
		return Integer(l - r), nil
	case ast.OpMul:
		return Integer(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return ConstValue{}, &Error{Kind: DivideByZero}
		}
		return Integer(l / r), nil
	case ast.OpRem:
		if r == 0 {
			return ConstValue{}, &Error{Kind: DivideByZero}
		}
		return Integer(l % r), nil
	case ast.OpShl:
		return Integer(l << uint64(r)), nil
	case ast.OpShr:
		return Integer(l >> uint64(r)), nil
	case ast.OpBitAnd:
		return Integer(l & r), nil
	case ast.OpBitOr:
		return Integer(l | r), nil
	case ast.OpBitXor:
		return Integer(l ^ r), nil
	case ast.OpLt:
		return Bool(l < r), nil
	case ast.OpLte:
		return Bool(l <= r), nil
	case ast.OpGt:
		return Bool(l > r), nil
	case ast.OpGte:
		return Bool(l >= r), nil
	default:
		return ConstValue{}, expected("unsupported integer operator")
	}
}

func applyFloatBinary(op ast.BinOp, l, r float64) (ConstValue, error) {
	switch op {
	case ast.OpAdd:
		return Float(l + r), nil
	case ast.OpSub:
		return Float(l - r), nil
	case ast.OpMul:
		return Float(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return ConstValue{}, &Error{Kind: DivideByZero}
		}
		return Float(l / r), nil
	case ast.OpLt:
		return Bool(l < r), nil
	case ast.OpLte:
		return Bool(l <= r), nil
	case ast.OpGt:
		return Bool(l > r), nil
	case ast.OpGte:
		return Bool(l >= r), nil
	default:
		return ConstValue{}, expected("unsupported float operator")
	}
}

func (ip *Interpreter) evalAssign(n Assign, sc *scope) (ConstValue, error) {
	cur, ok := sc.get(n.Target.Name)
	if !ok {
		return ConstValue{}, &Error{Kind: MissingName, Msg: n.Target.Name}
	}
	rhs, err := ip.eval(n.Value, sc)
	if err != nil {
		return ConstValue{}, err
	}
	op, err := assignToBinOp(n.Op)
	if err != nil {
		return ConstValue{}, err
	}
	next, err := applyBinary(op, cur, rhs)
	if err != nil {
		return ConstValue{}, err
	}
	sc.set(n.Target.Name, next)
	return Unit(), nil
}

func assignToBinOp(op ast.AssignOp) (ast.BinOp, error) {
	switch op {
	case ast.AssignAdd:
		return ast.OpAdd, nil
	case ast.AssignSub:
		return ast.OpSub, nil
	case ast.AssignMul:
		return ast.OpMul, nil
	case ast.AssignDiv:
		return ast.OpDiv, nil
	case ast.AssignRem:
		return ast.OpRem, nil
	case ast.AssignShl:
		return ast.OpShl, nil
	case ast.AssignShr:
		return ast.OpShr, nil
	case ast.AssignBitAnd:
		return ast.OpBitAnd, nil
	case ast.AssignBitOr:
		return ast.OpBitOr, nil
	case ast.AssignBitXor:
		return ast.OpBitXor, nil
	default:
		return 0, expected("unsupported compound assignment operator")
	}
}

func (ip *Interpreter) evalTemplate(n Template, sc *scope) (ConstValue, error) {
	var b strings.Builder
	for _, part := range n.Parts {
		v, err := ip.eval(part, sc)
		if err != nil {
			return ConstValue{}, err
		}
		b.WriteString(displayString(v))
	}
	return String(b.String()), nil
}

// displayString renders a ConstValue the way the STRING_DISPLAY protocol
// would at runtime, for template concatenation of const-evaluated
// interpolations.
func displayString(v ConstValue) string {
	switch v.Kind {
	case KindString:
		return v.String
	default:
		return v.String_()
	}
}
