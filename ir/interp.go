// Package ir implements the const-expression evaluator: a small tree
// interpreter that evaluates `const` items and `const fn` calls to a
// ConstValue at compile time, per spec.md §4.5.
//
// Grounded on original_source/crates/rune/src/compile/ir/eval/mod.rs
// (the recursive eval-by-node-kind shape) and ir_loop.rs (loop/break
// unwinding), with the budget guard lifted into runtime/limit so both
// this package and package vm share one implementation.
package ir

import (
	"context"

	"github.com/rune-rs/rune/runtime/limit"
)

// DefaultBudget bounds a const evaluation that doesn't specify its own,
// generous enough for ordinary const expressions while still catching a
// runaway `loop` with no `break`.
const DefaultBudget = 1_000_000

// breakSignal unwinds an IrLoop from its body to evalLoop; a break with
// no enclosing loop of its label escapes Eval as this error.
type breakSignal struct {
	label string
	value ConstValue
}

func (*breakSignal) Error() string { return "ir: break outside loop" }

// Interpreter evaluates Ir trees against a chain of lexical scopes. The
// compiler creates one Interpreter per const item, and a Name resolves
// only against the scope chain, so one const cannot refer to another.
type Interpreter struct {
	ctx context.Context
}

// NewInterpreter returns an Interpreter whose budget is drawn from ctx
// (see runtime/limit.With); pass context.Background() paired with
// limit.With(ctx, DefaultBudget) if the caller has no budget of its own.
func NewInterpreter(ctx context.Context) *Interpreter {
	return &Interpreter{ctx: ctx}
}

// scope is one frame of bindings; scopes chain to their parent so a
// nested Scope/Loop/Call can shadow or read outer names.
type scope struct {
	vars   map[string]ConstValue
	parent *scope
}

func newScope(parent *scope) *scope {
	return &scope{vars: map[string]ConstValue{}, parent: parent}
}

func (s *scope) get(name string) (ConstValue, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return ConstValue{}, false
}

// set rebinds name in whichever scope in the chain declared it,
// returning false if it was never declared (an ir.Set on an unknown
// name is a compiler bug, not a user error, since the lowering pass
// only ever targets names it just Decl'd).
func (s *scope) set(name string, v ConstValue) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return true
		}
	}
	return false
}

// Eval evaluates root to a ConstValue, charging the interpreter's budget
// one unit per node visited.
func (ip *Interpreter) Eval(root Ir) (ConstValue, error) {
	return ip.eval(root, newScope(nil))
}

func (ip *Interpreter) charge() error {
	if err := limit.Take(ip.ctx, 1); err != nil {
		return &Error{Kind: BudgetExceeded}
	}
	return nil
}

func (ip *Interpreter) eval(node Ir, sc *scope) (ConstValue, error) {
	if err := ip.charge(); err != nil {
		return ConstValue{}, err
	}

	switch n := node.(type) {
	case Value:
		return n.Value, nil
	case Name:
		v, ok := sc.get(n.Name)
		if !ok {
			return ConstValue{}, &Error{Kind: MissingName, Msg: n.Name}
		}
		return v, nil
	case Scope:
		return ip.evalScope(n, sc)
	case Binary:
		return ip.evalBinary(n, sc)
	case Branches:
		return ip.evalBranches(n, sc)
	case Decl:
		v, err := ip.eval(n.Value, sc)
		if err != nil {
			return ConstValue{}, err
		}
		sc.vars[n.Name] = v
		return Unit(), nil
	case Set:
		v, err := ip.eval(n.Value, sc)
		if err != nil {
			return ConstValue{}, err
		}
		if !sc.set(n.Target.Name, v) {
			return ConstValue{}, &Error{Kind: MissingName, Msg: n.Target.Name}
		}
		return Unit(), nil
	case Assign:
		return ip.evalAssign(n, sc)
	case Template:
		return ip.evalTemplate(n, sc)
	case Tuple:
		items, err := ip.evalAll(n.Items, sc)
		if err != nil {
			return ConstValue{}, err
		}
		return TupleValue(items), nil
	case Vec:
		items, err := ip.evalAll(n.Items, sc)
		if err != nil {
			return ConstValue{}, err
		}
		return VecValue(items), nil
	case Object:
		items := make([]ConstValue, len(n.Values))
		for i, v := range n.Values {
			ev, err := ip.eval(v, sc)
			if err != nil {
				return ConstValue{}, err
			}
			items[i] = ev
		}
		return ObjectValue(n.Keys, items), nil
	case Loop:
		return ip.evalLoop(n, sc)
	case Break:
		var val ConstValue
		if n.Value != nil {
			v, err := ip.eval(n.Value, sc)
			if err != nil {
				return ConstValue{}, err
			}
			val = v
		}
		return ConstValue{}, &breakSignal{label: n.Label, value: val}
	case Call:
		return ip.evalCall(n, sc)
	default:
		return ConstValue{}, expected("unhandled ir node %T", node)
	}
}

func (ip *Interpreter) evalAll(nodes []Ir, sc *scope) ([]ConstValue, error) {
	out := make([]ConstValue, len(nodes))
	for i, n := range nodes {
		v, err := ip.eval(n, sc)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (ip *Interpreter) evalScope(n Scope, parent *scope) (ConstValue, error) {
	inner := newScope(parent)
	for _, stmt := range n.Body {
		if _, err := ip.eval(stmt, inner); err != nil {
			return ConstValue{}, err
		}
	}
	if n.Tail == nil {
		return Unit(), nil
	}
	return ip.eval(n.Tail, inner)
}

func (ip *Interpreter) evalBranches(n Branches, sc *scope) (ConstValue, error) {
	for _, arm := range n.Arms {
		cond, err := ip.eval(arm.Cond, sc)
		if err != nil {
			return ConstValue{}, err
		}
		truthy, ok := cond.Truthy()
		if !ok {
			return ConstValue{}, expected("if condition must be bool, got %v", cond.Kind)
		}
		if truthy {
			return ip.eval(arm.Body, sc)
		}
	}
	if n.Else == nil {
		return Unit(), nil
	}
	return ip.eval(n.Else, sc)
}

func (ip *Interpreter) evalLoop(n Loop, sc *scope) (ConstValue, error) {
	for {
		_, err := ip.eval(n.Body, newScope(sc))
		if err == nil {
			continue
		}
		brk, ok := err.(*breakSignal)
		if !ok {
			return ConstValue{}, err
		}
		if brk.label != "" && brk.label != n.Label {
			return ConstValue{}, brk // propagate to an outer labelled loop
		}
		return brk.value, nil
	}
}

func (ip *Interpreter) evalCall(n Call, sc *scope) (ConstValue, error) {
	args, err := ip.evalAll(n.Args, sc)
	if err != nil {
		return ConstValue{}, err
	}
	callScope := newScope(nil)
	for i, param := range n.Params {
		callScope.vars[param] = args[i]
	}
	return ip.eval(n.Body, callScope)
}
