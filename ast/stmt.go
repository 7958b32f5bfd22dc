package ast

import "github.com/rune-rs/rune/source"

// Stmt is implemented by every statement form inside a block.
type Stmt interface {
	Node
	stmtNode()
}

// StmtLet is `let pattern = value;`.
type StmtLet struct {
	Sp      source.Span
	Pattern Pattern
	Value   Expr
}

func (s *StmtLet) Span() source.Span { return s.Sp }
func (s *StmtLet) stmtNode()         {}

// StmtExpr is an expression used as a statement, with or without a
// trailing semicolon (TrailingSemi distinguishes the two — only the
// final statement of a block may omit it and still contribute a value).
type StmtExpr struct {
	Value        Expr
	TrailingSemi bool
}

func (s *StmtExpr) Span() source.Span { return s.Value.Span() }
func (s *StmtExpr) stmtNode()         {}

// StmtItem is a local item declaration nested inside a block (a local
// fn, struct, const, etc).
type StmtItem struct {
	Item Item
}

func (s *StmtItem) Span() source.Span { return s.Item.Span() }
func (s *StmtItem) stmtNode()         {}
