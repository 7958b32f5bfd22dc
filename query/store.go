// Package query implements the indexer and on-demand Meta store: it
// walks parsed files, assigns every item a canonical Item path, and
// resolves imports and name lookups against spec.md §4.3's rules.
package query

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
)

// Options configures a Store. Currently empty; reserved for wiring a
// host-provided Context prefix tree into wildcard import resolution
// (see ResolveImports).
type Options struct{}

// Store owns the item pool and the Meta produced for each interned
// item, plus enough bookkeeping (children, originating AST node) to
// answer queries on demand rather than eagerly compiling everything
// reachable from a source file.
//
// Grounded on the teacher's Interpreter fields scopes map[string]*scope
// (here: children map[item.ID][]item.ID) and pkgNames/srcPkg (here:
// pendingImport records resolved by ResolveImports), generalized from
// Go import paths to Rune Item paths.
type Store struct {
	pool       *item.Pool
	metas      map[item.ID]*item.Meta
	nodes      map[item.ID]ast.Item
	children   map[item.ID][]item.ID
	imports    []*pendingImport
	importByID map[item.ID]*pendingImport
	crateRoots map[string]item.ID
	byPath     map[string]item.ID
	wildcards  map[item.ID][]item.ID

	nextAstID ast.Id
}

// New returns an empty Store.
func New(options Options) *Store {
	return &Store{
		pool:       item.NewPool(),
		metas:      map[item.ID]*item.Meta{},
		nodes:      map[item.ID]ast.Item{},
		children:   map[item.ID][]item.ID{},
		importByID: map[item.ID]*pendingImport{},
		crateRoots: map[string]item.ID{},
		byPath:     map[string]item.ID{},
		wildcards:  map[item.ID][]item.ID{},
	}
}

// Pool returns the store's item pool, e.g. so the assembler can resolve
// an item.ID it already holds back to its path.
func (s *Store) Pool() *item.Pool { return s.pool }

// Meta returns the Meta materialized for id, if any has been recorded.
func (s *Store) Meta(id item.ID) (*item.Meta, bool) {
	m, ok := s.metas[id]
	return m, ok
}

// Node returns the AST item that produced id's Meta, so a later pass
// (assembler, const evaluator) can walk its body.
func (s *Store) Node(id item.ID) (ast.Item, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Children returns the item IDs indexed directly under id, in
// declaration order. Used by wildcard-import enumeration and by
// module-path listing.
func (s *Store) Children(id item.ID) []item.ID {
	return s.children[id]
}

// Intern is a thin pass-through to the underlying pool, exposed so
// callers building synthetic paths (macro-generated items) share the
// same interning table as the indexer.
func (s *Store) Intern(it item.Item) item.ID {
	return s.pool.Intern(it)
}

func (s *Store) allocAstID() ast.Id {
	s.nextAstID++
	return s.nextAstID
}

func (s *Store) addChild(parentID, childID item.ID) {
	s.children[parentID] = append(s.children[parentID], childID)
}

func (s *Store) recordMeta(id item.ID, it ast.Item, meta *item.Meta) {
	s.nodes[id] = it
	s.metas[id] = meta
	s.byPath[meta.Item.String()] = id
}

// lookupChild finds the indexed child of parentID whose final path
// component is name, per spec.md §4.3's component-by-component name
// resolution.
func (s *Store) lookupChild(parentID item.ID, name string) (item.ID, bool) {
	for _, id := range s.children[parentID] {
		meta, ok := s.metas[id]
		if !ok {
			continue
		}
		if last, ok := meta.Item.Last(); ok && last.Str == name {
			return id, true
		}
	}
	for _, wID := range s.wildcards[parentID] {
		if id, ok := s.lookupChild(wID, name); ok {
			return id, true
		}
	}
	return item.InvalidID, false
}

// byItemID resolves a fully qualified Item back to its pool ID, if
// something has been indexed at that path.
func (s *Store) byItemID(it item.Item) (item.ID, bool) {
	id, ok := s.byPath[it.String()]
	return id, ok
}

func visOf(v ast.Vis) item.Visibility {
	switch v {
	case ast.VisPublic:
		return item.Public
	case ast.VisCrate:
		return item.Crate
	case ast.VisSuper:
		return item.Super
	case ast.VisSelf:
		return item.SelfValue
	default:
		return item.Inherited
	}
}
