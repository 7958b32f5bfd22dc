package ast

import "github.com/rune-rs/rune/source"

// Item is implemented by every top-level (or nested mod-level) item
// form: functions, structs, enums, consts, modules, imports, impls.
type Item interface {
	Node
	itemNode()
	ItemId() Id
	SetItemId(Id)
	Visibility() Vis
}

// Vis is the syntactic visibility keyword attached to an item, resolved
// against item.Visibility during indexing.
type Vis byte

const (
	VisInherited Vis = iota
	VisPublic
	VisCrate
	VisSuper
	VisSelf
)

// ItemBase is embedded by every concrete Item to supply the common
// Id/Visibility/Span bookkeeping. It is exported (unlike ast's other
// *base types) because the parser, living in another package, needs to
// construct item literals directly.
type ItemBase struct {
	Id Id
	V  Vis
	Sp source.Span
}

func (b *ItemBase) itemNode()         {}
func (b *ItemBase) ItemId() Id        { return b.Id }
func (b *ItemBase) SetItemId(id Id)   { b.Id = id }
func (b *ItemBase) Visibility() Vis   { return b.V }
func (b *ItemBase) Span() source.Span { return b.Sp }

// FnItem is a `fn`/`async fn` declaration.
type FnItem struct {
	ItemBase
	Name    *Ident
	Params  []*FnParam
	IsAsync bool
	IsTest  bool
	IsBench bool
	Body    *ExprBlock
	Docs    []string
}

// FnParam is one function parameter pattern (no type annotations — Rune
// is dynamically typed, per spec.md §1 Non-goals).
type FnParam struct {
	Pattern Pattern
}

// StructItem is a `struct` declaration with named, unnamed (tuple), or
// empty fields.
type StructItem struct {
	ItemBase
	Name  *Ident
	Named []*Ident // non-nil for struct { a, b }
	Arity int      // > 0 for tuple structs
	Docs  []string
}

// EnumItem is an `enum` declaration; each variant is itself an item so
// it gets its own Item path, per spec.md §3 ("Variant{enum_hash, fields}").
type EnumItem struct {
	ItemBase
	Name     *Ident
	Variants []*VariantItem
	Docs     []string
}

// VariantItem is one arm of an enum.
type VariantItem struct {
	ItemBase
	Name  *Ident
	Named []*Ident
	Arity int
}

// ConstItem is a `const NAME = expr;` declaration evaluated by the IR
// interpreter at compile time.
type ConstItem struct {
	ItemBase
	Name  *Ident
	Value Expr
	Docs  []string
}

// ModItem is either `mod name;` (loaded from an external source) or
// `mod name { ... }` (inline).
type ModItem struct {
	ItemBase
	Name  *Ident
	Items []Item // nil when loaded externally
	Docs  []string
}

// UseItem is a `use path::to::item [as alias];` import, possibly a
// wildcard `use path::*;`.
type UseItem struct {
	ItemBase
	Path     *Path
	Wildcard bool
	Alias    *Ident // nil when not renamed
}

// ImplItem is an `impl Type { fn ... }` block; each contained fn is
// indexed as an AssociatedFn or InstanceFn depending on whether its
// first parameter pattern binds `self`.
type ImplItem struct {
	ItemBase
	Type *Path
	Fns  []*FnItem
}

// MacroCallItem is a macro invoked in item position, e.g. `my_macro! { ... }`.
type MacroCallItem struct {
	ItemBase
	Name   *Ident
	Tokens source.Span // the raw token span handed to the macro
}
