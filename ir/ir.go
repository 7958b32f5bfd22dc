package ir

import "github.com/rune-rs/rune/ast"

// Ir is implemented by every const-IR tree node. The const evaluator is
// deliberately a smaller language than VM bytecode (spec.md §9): no
// closures, no async, no pattern matching beyond what a `let` needs.
//
// Grounded on the node shapes walked by
// original_source/crates/rune/src/compile/ir/eval/mod.rs and
// ir_loop.rs, collapsed here into one Go interface per spec.md §4.5's
// "IR forms: scope, binary op, branches, decl, set, assign, template,
// tuple, vec, object, name, target, value, loop, break, call".
type Ir interface {
	irNode()
}

// Value is a literal ConstValue embedded directly in the tree.
type Value struct{ Value ConstValue }

func (Value) irNode() {}

// Scope is a sequence of statements followed by an optional tail
// expression, introducing a fresh binding scope (spec.md's "scope"
// form); bindings declared by a Decl inside it are not visible once
// Scope returns.
type Scope struct {
	Body []Ir
	Tail Ir // nil if the scope evaluates to Unit
}

func (Scope) irNode() {}

// Binary is `lhs op rhs`.
type Binary struct {
	Op       ast.BinOp
	LHS, RHS Ir
}

func (Binary) irNode() {}

// Branch is one `cond => body` arm of a Branches chain.
type Branch struct {
	Cond Ir
	Body Ir
}

// Branches is an if/else-if/.../else chain; the first Branch whose Cond
// evaluates truthy supplies the value, falling back to Else (Unit if
// absent), mirroring spec.md's "branches" form.
type Branches struct {
	Arms []Branch
	Else Ir
}

func (Branches) irNode() {}

// Decl is `let name = value;`, introducing name into the current Scope.
type Decl struct {
	Name  string
	Value Ir
}

func (Decl) irNode() {}

// Target names an assignment's left-hand side. Consts only ever assign
// to a plain local, so Target is just a name; the richer field/index
// targets the VM's assembler handles don't arise in const context.
type Target struct{ Name string }

// Set rebinds an existing local introduced by Decl (`name = value`).
type Set struct {
	Target Target
	Value  Ir
}

func (Set) irNode() {}

// Assign is a compound op-assign (`name += value`), kept distinct from
// Set because the evaluator must read-modify-write rather than replace.
type Assign struct {
	Target Target
	Op     ast.AssignOp
	Value  Ir
}

func (Assign) irNode() {}

// Template concatenates literal string pieces and evaluated expressions
// in source order (the component sequence of a backtick literal),
// mirroring spec.md §4.4's `template` macro lowering but evaluated
// eagerly when every component is itself const.
type Template struct {
	// Parts alternates between *Value (Kind==KindString) literal pieces
	// and arbitrary Ir expression pieces in source order.
	Parts []Ir
}

func (Template) irNode() {}

// Tuple is a fixed-arity literal `(a, b, ...)`.
type Tuple struct{ Items []Ir }

func (Tuple) irNode() {}

// Vec is `[a, b, ...]`.
type Vec struct{ Items []Ir }

func (Vec) irNode() {}

// Object is `#{ key: value, ... }`.
type Object struct {
	Keys   []string
	Values []Ir
}

func (Object) irNode() {}

// Name is a reference to a binding introduced by Decl, looked up in the
// interpreter's scope chain only; const items are not resolved by name.
type Name struct{ Name string }

func (Name) irNode() {}

// Loop is an unconditional `loop { body }`; Body runs repeatedly until a
// Break unwinds it (break's value, if any, is the loop's result).
type Loop struct {
	Label string
	Body  Ir
}

func (Loop) irNode() {}

// Break unwinds the nearest (or, if Label is non-empty, the matching
// labelled) enclosing Loop, optionally carrying a value.
type Break struct {
	Label string
	Value Ir // nil for a bare `break`
}

func (Break) irNode() {}

// Call invokes a const fn (resolved ahead of time to its Body by the
// query store) with evaluated argument expressions.
type Call struct {
	Name string
	Args []Ir
	// Body is the callee's own Ir tree, lowered once and reused for
	// every call site — const fns have no dynamic dispatch.
	Body Ir
	// Params are the callee's parameter names, bound as Decls in the
	// call's fresh scope before Body runs.
	Params []string
}

func (Call) irNode() {}
