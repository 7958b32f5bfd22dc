package ast

import "github.com/rune-rs/rune/source"

// Pattern is implemented by every pattern form, per spec.md §4.2:
// literal, identifier binding, wildcard, tuple, tuple-struct, struct,
// vec, object, rest, or-patterns.
type Pattern interface {
	Node
	patternNode()
}

// PatWildcard is `_`.
type PatWildcard struct{ Sp source.Span }

func (p *PatWildcard) Span() source.Span { return p.Sp }
func (p *PatWildcard) patternNode()      {}

// PatLit is a literal pattern, e.g. `0`, `"s"`, `true`.
type PatLit struct {
	Sp    source.Span
	Value Expr // always an ExprLit
}

func (p *PatLit) Span() source.Span { return p.Sp }
func (p *PatLit) patternNode()      {}

// PatBind is `[ref] [mut] name [@ subpattern]`.
type PatBind struct {
	Sp     source.Span
	Name   *Ident
	Ref    bool
	Mut    bool
	SubPat Pattern // non-nil for `name @ pattern`
}

func (p *PatBind) Span() source.Span { return p.Sp }
func (p *PatBind) patternNode()      {}

// PatPath is a bare path pattern naming a unit enum variant or const.
type PatPath struct {
	Sp   source.Span
	Path *Path
}

func (p *PatPath) Span() source.Span { return p.Sp }
func (p *PatPath) patternNode()      {}

// PatRest is `..` inside a tuple/vec/struct pattern.
type PatRest struct{ Sp source.Span }

func (p *PatRest) Span() source.Span { return p.Sp }
func (p *PatRest) patternNode()      {}

// PatTuple matches `(a, b, ..)`, optionally prefixed by a type Path for
// tuple-struct/variant patterns (`Path(a, b)`).
type PatTuple struct {
	Sp    source.Span
	Path  *Path // nil for a plain tuple pattern
	Items []Pattern
}

func (p *PatTuple) Span() source.Span { return p.Sp }
func (p *PatTuple) patternNode()      {}

// PatVec matches `[a, b, ..]`.
type PatVec struct {
	Sp    source.Span
	Items []Pattern
}

func (p *PatVec) Span() source.Span { return p.Sp }
func (p *PatVec) patternNode()      {}

// PatFieldEntry is one `name: pattern` (or shorthand `name`, where
// Pattern is a PatBind of the same name) in a struct/object pattern.
type PatFieldEntry struct {
	Name    *Ident
	Pattern Pattern
}

// PatStruct matches `Path { name: pattern, .. }` or, when Path is nil,
// an object pattern `#{ name: pattern, .. }`.
type PatStruct struct {
	Sp      source.Span
	Path    *Path
	Fields  []PatFieldEntry
	HasRest bool
}

func (p *PatStruct) Span() source.Span { return p.Sp }
func (p *PatStruct) patternNode()      {}

// PatOr matches `a | b | c`.
type PatOr struct {
	Sp           source.Span
	Alternatives []Pattern
}

func (p *PatOr) Span() source.Span { return p.Sp }
func (p *PatOr) patternNode()      {}
