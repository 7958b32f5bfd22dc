// Package compile implements the assembler: it lowers the body of every
// function, closure, async block, and const expression that the query
// store has indexed into bytecode accumulated in a unit.Builder, then
// seals the result into an immutable unit.Unit.
//
// The split between Compiler (one per build) and funcCompiler (one per
// function body) mirrors the pcomp/fcomp split of
// _examples/other_examples/adf938d2_mna-nenuphar__lang-compiler-compiler.go.go,
// adapted from Starlark's single compile pass over a resolved AST to
// Rune's on-demand, query-driven one: a funcCompiler is spun up lazily,
// the first time something calls for a given item's Meta to be
// materialized, rather than eagerly over every file.
package compile

import (
	"context"
	"fmt"

	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/diagnostics"
	"github.com/rune-rs/rune/ir"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/query"
	"github.com/rune-rs/rune/runtime/limit"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// Options mirrors spec.md §6's design-time build options.
type Options struct {
	DebugInfo bool
	Test      bool
	Bench     bool
}

// Compiler owns the build-wide state shared by every item assembled
// into one Unit: the builder accumulating instructions and tables, the
// query store items are resolved against, the source text diagnostics
// are rendered from, and the set of hashes the host supplies (so
// Call/LoadFn can be resolved against it).
type Compiler struct {
	store      *query.Store
	sources    *source.Sources
	builder    *unit.Builder
	diags      *diagnostics.Bag
	hostHashes map[item.Hash]bool
	opts       Options

	// visiting guards against re-entrant compilation of the same item
	// (e.g. mutual recursion between two fns) driving the query store
	// into materializing the same Meta twice.
	visiting map[item.ID]bool
	done     map[item.ID]bool

	// closureSeq numbers closures and async blocks in compile order so
	// each gets a distinct synthetic hash; neither has a query-indexed
	// item.ID of its own (they're nested inside a function's body, not
	// top-level items), so they can't be named by path the way a fn can.
	closureSeq int
}

// nextClosureHash returns a fresh hash for an anonymous closure or async
// block body, distinct from every item path hash (HashBytes tags its
// input as a protocol name, but the "$closure" prefix can't collide with
// a well-known protocol name, and the sequence number can't collide with
// another closure's).
func (c *Compiler) nextClosureHash() item.Hash {
	c.closureSeq++
	return item.HashBytes(fmt.Sprintf("$closure%d", c.closureSeq))
}

// New returns a Compiler that will assemble items resolved out of
// store, recording diagnostics into diags, against a host function
// table of hostHashes.
func New(store *query.Store, sources *source.Sources, hostHashes map[item.Hash]bool, opts Options) *Compiler {
	return &Compiler{
		store:      store,
		sources:    sources,
		builder:    unit.NewBuilder(),
		diags:      diagnostics.NewBag(),
		hostHashes: hostHashes,
		opts:       opts,
		visiting:   map[item.ID]bool{},
		done:       map[item.ID]bool{},
	}
}

// Diagnostics returns the bag accumulated so far.
func (c *Compiler) Diagnostics() *diagnostics.Bag { return c.diags }

// CompileItem materializes id's Meta (triggering assembly of a function
// body, evaluation of a const, or registration of a struct/enum's Rtti)
// if it has not already been compiled in this build.
func (c *Compiler) CompileItem(id item.ID) {
	if c.done[id] || c.visiting[id] {
		return
	}
	meta, ok := c.store.Meta(id)
	if !ok {
		return
	}
	node, _ := c.store.Node(id)
	c.visiting[id] = true
	defer func() { c.visiting[id] = false; c.done[id] = true }()

	switch meta.Kind {
	case item.KindFunction:
		if fn, ok := node.(*ast.FnItem); ok {
			c.compileFn(id, meta, fn)
		}
	case item.KindConst:
		if ce, ok := node.(*ast.ConstItem); ok {
			c.compileConst(id, meta, ce)
		}
	case item.KindStruct:
		c.registerStructRtti(id, meta)
	case item.KindEnum:
		c.registerEnumRtti(id, meta)
	case item.KindVariant:
		// A variant's Rtti is registered as a side effect of compiling
		// its parent enum; resolve and compile that instead of the
		// variant itself, which has no independent body.
		if parent, ok := meta.Item.Parent(); ok {
			if enumID, err := c.store.ResolvePath(item.InvalidID, pathOf(parent)); err == nil {
				c.CompileItem(enumID)
			}
		}
	default:
		// Modules and imports carry no body of their own to assemble.
	}
}

// CompileAll walks every item the store has indexed and compiles each
// in turn, assembling a whole program rather than one lazily-demanded
// item.
func (c *Compiler) CompileAll(roots []item.ID) {
	var walk func(item.ID)
	walk = func(id item.ID) {
		c.CompileItem(id)
		for _, child := range c.store.Children(id) {
			walk(child)
		}
	}
	for _, r := range roots {
		walk(r)
	}
}

// Build finalizes the accumulated builder into a sealed Unit. Returns
// an error (without a Unit) if any diagnostic raised during assembly
// was an error, or if sealing itself fails (an unresolved Call/LoadFn
// hash, or a duplicate function registration).
func (c *Compiler) Build() (*unit.Unit, error) {
	if c.diags.HasError() {
		return nil, c.diags.Err()
	}
	u, err := c.builder.Seal(c.hostHashes)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Compiler) registerStructRtti(id item.ID, meta *item.Meta) {
	rtti := &value.Rtti{
		Hash:        meta.Item.Hash(),
		Item:        meta.Item,
		FieldLayout: fieldLayoutOf(meta.Struct),
	}
	c.builder.RegisterStructRtti(rtti.Hash, rtti)
}

func (c *Compiler) registerEnumRtti(id item.ID, meta *item.Meta) {
	enumHash := meta.Item.Hash()
	for i, v := range meta.Enum.Variants {
		vMeta, ok := c.store.Meta(c.lookupByItem(v))
		if !ok {
			continue
		}
		rtti := &value.VariantRtti{
			Rtti: value.Rtti{
				Hash:        v.Hash(),
				Item:        v,
				FieldLayout: fieldLayoutOf(&vMeta.Variant.Fields),
			},
			EnumHash: enumHash,
			Index:    i,
		}
		c.builder.RegisterVariantRtti(rtti.Hash, rtti)
	}
}

// lookupByItem is a small convenience over the store's path index;
// enum variants are already interned by the indexer so this always
// succeeds for a well-formed EnumMeta.
func (c *Compiler) lookupByItem(it item.Item) item.ID {
	id, _ := c.store.ResolvePath(item.InvalidID, pathOf(it))
	return id
}

func pathOf(it item.Item) *ast.Path {
	comps := it.Components()
	segs := make([]*ast.Ident, len(comps))
	for i, c := range comps {
		segs[i] = &ast.Ident{Name: c.String()}
	}
	return &ast.Path{Segments: segs}
}

func fieldLayoutOf(s *item.StructMeta) value.FieldLayout {
	if s == nil {
		return value.FieldLayout{Kind: value.FieldsEmpty}
	}
	switch s.FieldsKind {
	case item.FieldsNamed:
		return value.FieldLayout{Kind: value.FieldsNamed, Names: s.Named}
	case item.FieldsUnnamed:
		return value.FieldLayout{Kind: value.FieldsUnnamed, Arity: s.Arity}
	default:
		return value.FieldLayout{Kind: value.FieldsEmpty}
	}
}

// constResolver adapts a Compiler + query.Store to ir.Resolver so the
// const evaluator can call other const fns without importing package
// query (which would cycle back through compile).
type constResolver struct {
	c      *Compiler
	fromID item.ID
}

func (r *constResolver) ResolveConstFn(name string) (ir.Ir, []string, bool) {
	path := &ast.Path{Segments: []*ast.Ident{{Name: name}}}
	id, err := r.c.store.ResolvePath(r.fromID, path)
	if err != nil {
		return nil, nil, false
	}
	meta, ok := r.c.store.Meta(id)
	if !ok || meta.Kind != item.KindFunction {
		return nil, nil, false
	}
	node, ok := r.c.store.Node(id)
	if !ok {
		return nil, nil, false
	}
	fn, ok := node.(*ast.FnItem)
	if !ok || fn.Body == nil {
		return nil, nil, false
	}
	body, err := ir.Lower(fn.Body, r)
	if err != nil {
		return nil, nil, false
	}
	return body, meta.Function.Arguments, true
}

func (c *Compiler) compileConst(id item.ID, meta *item.Meta, ce *ast.ConstItem) {
	root, err := ir.Lower(ce.Value, &constResolver{c: c, fromID: id})
	if err != nil {
		c.errorAt(ce.Value.Span(), ExpectedConstExpr, err.Error())
		return
	}
	ctx, _ := limit.With(context.Background(), ir.DefaultBudget)
	val, err := ir.NewInterpreter(ctx).Eval(root)
	if err != nil {
		c.errorAt(ce.Value.Span(), ExpectedConstExpr, err.Error())
		return
	}
	meta.Const.Value = val
	c.builder.RegisterConst(meta.Item.Hash(), val)
}
