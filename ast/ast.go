// Package ast defines Rune's abstract syntax tree. Nodes carry a Span
// for diagnostics and, for items and paths, an Id assigned later by the
// indexer (package query) so that pass can associate metadata without
// mutating the tree itself — mirroring the teacher's own node.index /
// node.findex side-table fields, but kept off the syntax tree proper.
package ast

import "github.com/rune-rs/rune/source"

// Id names a tree position the indexer has visited, handed out in
// visitation order. The zero value means "not yet indexed."
type Id uint32

// Node is implemented by every AST node.
type Node interface {
	Span() source.Span
}

// Ident is a simple identifier with its span.
type Ident struct {
	Name string
	Sp   source.Span
}

func (i *Ident) Span() source.Span { return i.Sp }

// Path is a `::`-separated sequence of identifiers, e.g. `std::iter::sum`.
type Path struct {
	Segments []*Ident
	Global   bool // leading `::`
	Id       Id
	Sp       source.Span
}

func (p *Path) Span() source.Span { return p.Sp }

// File is the root of one parsed source: a flat list of top-level items.
type File struct {
	Items []Item
	Sp    source.Span
}

func (f *File) Span() source.Span { return f.Sp }
