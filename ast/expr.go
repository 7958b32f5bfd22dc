package ast

import "github.com/rune-rs/rune/source"

// Expr is implemented by every expression form. Blocks are expressions
// too (ExprBlock), per spec.md §4.2.
type Expr interface {
	Node
	exprNode()
}

// BinOp enumerates binary operators, ordered loosest-first is not
// implied here; precedence lives in the parser.
type BinOp byte

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpShl
	OpShr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd // &&
	OpOr  // ||
	OpRange
	OpRangeInclusive
)

// AssignOp enumerates the combined op-assign forms (`+=`, `&=`, ...) and
// plain `=`.
type AssignOp byte

const (
	AssignSet AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignRem
	AssignShl
	AssignShr
	AssignBitAnd
	AssignBitOr
	AssignBitXor
)

// UnOp enumerates prefix unary operators.
type UnOp byte

const (
	UnNot UnOp = iota
	UnNeg
	UnDeref
	UnRef
	UnRefMut
)

// LitKind distinguishes inline literal forms.
type LitKind byte

const (
	LitUnit LitKind = iota
	LitBool
	LitInteger
	LitFloat
	LitChar
	LitByte
	LitString
	LitByteString
)

// ExprLit is an inline literal value. IntValue/FloatValue/BoolValue are
// populated according to Kind; StringValue covers string/byte-string
// (already escape-resolved by the parser via package lexer).
type ExprLit struct {
	Sp          source.Span
	Kind        LitKind
	IntValue    int64
	FloatValue  float64
	BoolValue   bool
	CharValue   rune
	ByteValue   byte
	StringValue string
}

func (e *ExprLit) Span() source.Span { return e.Sp }
func (e *ExprLit) exprNode()         {}

// ExprPath is a bare path used as an expression (variable reference,
// enum variant, function reference).
type ExprPath struct {
	Sp   source.Span
	Path *Path
}

func (e *ExprPath) Span() source.Span { return e.Sp }
func (e *ExprPath) exprNode()         {}

// ExprBinary is `lhs op rhs`.
type ExprBinary struct {
	Sp       source.Span
	Op       BinOp
	LHS, RHS Expr
}

func (e *ExprBinary) Span() source.Span { return e.Sp }
func (e *ExprBinary) exprNode()         {}

// ExprUnary is `op operand`.
type ExprUnary struct {
	Sp      source.Span
	Op      UnOp
	Operand Expr
}

func (e *ExprUnary) Span() source.Span { return e.Sp }
func (e *ExprUnary) exprNode()         {}

// ExprAssign is `target = value` or a compound `target op= value`.
type ExprAssign struct {
	Sp     source.Span
	Op     AssignOp
	Target Expr
	Value  Expr
}

func (e *ExprAssign) Span() source.Span { return e.Sp }
func (e *ExprAssign) exprNode()         {}

// ExprAs is `expr as Type` — a dynamic conversion request, checked at
// runtime since Rune has no static types.
type ExprAs struct {
	Sp    source.Span
	Value Expr
	Type  *Path
}

func (e *ExprAs) Span() source.Span { return e.Sp }
func (e *ExprAs) exprNode()         {}

// ExprCall is `callee(args...)`.
type ExprCall struct {
	Sp     source.Span
	Callee Expr
	Args   []Expr
}

func (e *ExprCall) Span() source.Span { return e.Sp }
func (e *ExprCall) exprNode()         {}

// ExprMethodCall is `receiver.name(args...)`, lowered to CallInstance.
type ExprMethodCall struct {
	Sp       source.Span
	Receiver Expr
	Name     *Ident
	Args     []Expr
}

func (e *ExprMethodCall) Span() source.Span { return e.Sp }
func (e *ExprMethodCall) exprNode()         {}

// ExprField is `value.name`.
type ExprField struct {
	Sp    source.Span
	Value Expr
	Name  *Ident
}

func (e *ExprField) Span() source.Span { return e.Sp }
func (e *ExprField) exprNode()         {}

// ExprTupleField is `value.0`.
type ExprTupleField struct {
	Sp    source.Span
	Value Expr
	Index int
}

func (e *ExprTupleField) Span() source.Span { return e.Sp }
func (e *ExprTupleField) exprNode()         {}

// ExprIndex is `value[index]`.
type ExprIndex struct {
	Sp    source.Span
	Value Expr
	Index Expr
}

func (e *ExprIndex) Span() source.Span { return e.Sp }
func (e *ExprIndex) exprNode()         {}

// ExprBlock is `{ stmts...; [tail] }`; the last statement without a
// trailing semicolon is Tail (nil if the block evaluates to Unit).
type ExprBlock struct {
	Sp    source.Span
	Stmts []Stmt
	Tail  Expr
}

func (e *ExprBlock) Span() source.Span { return e.Sp }
func (e *ExprBlock) exprNode()         {}

// ExprLet is `let pattern = value;` used as a statement, and also as
// the condition form `if let pattern = value { ... }`.
type ExprLet struct {
	Sp      source.Span
	Pattern Pattern
	Value   Expr
}

func (e *ExprLet) Span() source.Span { return e.Sp }
func (e *ExprLet) exprNode()         {}

// ExprIf is `if cond { then } [else else_]`; cond may itself be an
// ExprLet for `if let` matching.
type ExprIf struct {
	Sp   source.Span
	Cond Expr
	Then *ExprBlock
	Else Expr // *ExprBlock or *ExprIf, nil if absent
}

func (e *ExprIf) Span() source.Span { return e.Sp }
func (e *ExprIf) exprNode()         {}

// ExprWhile is `while cond { body }`, with an optional loop Label.
type ExprWhile struct {
	Sp    source.Span
	Label *Ident
	Cond  Expr
	Body  *ExprBlock
}

func (e *ExprWhile) Span() source.Span { return e.Sp }
func (e *ExprWhile) exprNode()         {}

// ExprLoop is an unconditional `loop { body }`; unlike while/for its
// `break value` makes the loop itself evaluate to value.
type ExprLoop struct {
	Sp    source.Span
	Label *Ident
	Body  *ExprBlock
}

func (e *ExprLoop) Span() source.Span { return e.Sp }
func (e *ExprLoop) exprNode()         {}

// ExprFor is `for pattern in iter { body }`.
type ExprFor struct {
	Sp      source.Span
	Label   *Ident
	Pattern Pattern
	Iter    Expr
	Body    *ExprBlock
}

func (e *ExprFor) Span() source.Span { return e.Sp }
func (e *ExprFor) exprNode()         {}

// ExprBreak is `break [label] [value]`.
type ExprBreak struct {
	Sp    source.Span
	Label *Ident
	Value Expr
}

func (e *ExprBreak) Span() source.Span { return e.Sp }
func (e *ExprBreak) exprNode()         {}

// ExprContinue is `continue [label]`.
type ExprContinue struct {
	Sp    source.Span
	Label *Ident
}

func (e *ExprContinue) Span() source.Span { return e.Sp }
func (e *ExprContinue) exprNode()         {}

// ExprReturn is `return [value]`.
type ExprReturn struct {
	Sp    source.Span
	Value Expr
}

func (e *ExprReturn) Span() source.Span { return e.Sp }
func (e *ExprReturn) exprNode()         {}

// ExprClosure is `[move] |params| body`.
type ExprClosure struct {
	Sp      source.Span
	Params  []*FnParam
	Body    Expr
	DoMove  bool
	IsAsync bool
}

func (e *ExprClosure) Span() source.Span { return e.Sp }
func (e *ExprClosure) exprNode()         {}

// ExprAsync is an `async { body }` block, lowered to a sub-function
// returning a Future.
type ExprAsync struct {
	Sp     source.Span
	Body   *ExprBlock
	DoMove bool
}

func (e *ExprAsync) Span() source.Span { return e.Sp }
func (e *ExprAsync) exprNode()         {}

// ExprAwait is `expr.await`.
type ExprAwait struct {
	Sp    source.Span
	Value Expr
}

func (e *ExprAwait) Span() source.Span { return e.Sp }
func (e *ExprAwait) exprNode()         {}

// ExprYield is `yield [value]`.
type ExprYield struct {
	Sp    source.Span
	Value Expr
}

func (e *ExprYield) Span() source.Span { return e.Sp }
func (e *ExprYield) exprNode()         {}

// ExprTry is `expr?`.
type ExprTry struct {
	Sp    source.Span
	Value Expr
}

func (e *ExprTry) Span() source.Span { return e.Sp }
func (e *ExprTry) exprNode()         {}

// ExprVec is `[a, b, c]`.
type ExprVec struct {
	Sp    source.Span
	Items []Expr
}

func (e *ExprVec) Span() source.Span { return e.Sp }
func (e *ExprVec) exprNode()         {}

// ExprTuple is `(a, b, c)`; `()` (zero items) is the Unit literal and is
// parsed as ExprLit{Kind: LitUnit} instead.
type ExprTuple struct {
	Sp    source.Span
	Items []Expr
}

func (e *ExprTuple) Span() source.Span { return e.Sp }
func (e *ExprTuple) exprNode()         {}

// ObjectEntry is one `key: value` pair in an object or struct literal.
type ObjectEntry struct {
	Key   *Ident
	Value Expr
}

// ExprObject is `#{ key: value, ... }`, an anonymous insertion-ordered
// map literal.
type ExprObject struct {
	Sp      source.Span
	Entries []ObjectEntry
}

func (e *ExprObject) Span() source.Span { return e.Sp }
func (e *ExprObject) exprNode()         {}

// ExprStructLit is `Path { key: value, ... }`, including `Path { ..base }`
// functional update via Rest.
type ExprStructLit struct {
	Sp      source.Span
	Path    *Path
	Entries []ObjectEntry
	Rest    Expr // non-nil for `..base`
}

func (e *ExprStructLit) Span() source.Span { return e.Sp }
func (e *ExprStructLit) exprNode()         {}

// ExprRange is `start..end` or `start..=end`, either bound optional.
type ExprRange struct {
	Sp         source.Span
	Start, End Expr
	Inclusive  bool
}

func (e *ExprRange) Span() source.Span { return e.Sp }
func (e *ExprRange) exprNode()         {}

// ExprTemplate is a backtick template literal, lowered by the assembler
// to StringConcat over Display-formatted components.
type ExprTemplate struct {
	Sp       source.Span
	Literals []string
	Exprs    []Expr
	// Order records, for each slot in the original source order, whether
	// it's a literal (consumed from Literals in order) or an expression
	// (consumed from Exprs in order) — mirrors lexer.TemplateComponent.
	Order []bool // true = expr
}

func (e *ExprTemplate) Span() source.Span { return e.Sp }
func (e *ExprTemplate) exprNode()         {}

// MatchArm is one `pattern [if guard] => body` arm of a match.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr
	Body    Expr
}

// ExprMatch is `match scrutinee { arms... }`.
type ExprMatch struct {
	Sp        source.Span
	Scrutinee Expr
	Arms      []MatchArm
}

func (e *ExprMatch) Span() source.Span { return e.Sp }
func (e *ExprMatch) exprNode()         {}

// SelectArm is one `pattern = future_expr => body` arm of a select.
type SelectArm struct {
	Pattern Pattern
	Future  Expr
	Body    Expr
}

// ExprSelect is `select { arms... }`.
type ExprSelect struct {
	Sp   source.Span
	Arms []SelectArm
}

func (e *ExprSelect) Span() source.Span { return e.Sp }
func (e *ExprSelect) exprNode()         {}

// ExprMacroCall is `name!(tokens)` in expression position.
type ExprMacroCall struct {
	Sp     source.Span
	Name   *Ident
	Tokens source.Span
}

func (e *ExprMacroCall) Span() source.Span { return e.Sp }
func (e *ExprMacroCall) exprNode()         {}

// ExprGroup is a parenthesized expression kept only to preserve spans
// for diagnostics; the assembler unwraps it without emitting anything.
type ExprGroup struct {
	Sp    source.Span
	Inner Expr
}

func (e *ExprGroup) Span() source.Span { return e.Sp }
func (e *ExprGroup) exprNode()         {}
