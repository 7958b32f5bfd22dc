package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/parser"
	"github.com/rune-rs/rune/source"
)

func singleSegmentPath(name string) *ast.Path {
	return &ast.Path{Segments: []*ast.Ident{{Name: name}}}
}

func indexCrate(t *testing.T, s *Store, crate, code string) {
	t.Helper()
	file, err := parser.ParseFile(source.Memory(crate, code))
	require.NoError(t, err)
	require.NoError(t, s.IndexFile(crate, file))
}

func TestIndexFileAssignsItemPaths(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `fn add(a, b) { a + b } struct Point { x, y }`)

	root := s.crateRoots["test"]
	require.Len(t, s.children[root], 2)

	fnID := s.children[root][0]
	fnMeta := s.metas[fnID]
	require.NotNil(t, fnMeta)
	assert.Equal(t, "test::add", fnMeta.Item.String())
	require.NotNil(t, fnMeta.Function)
	assert.Equal(t, []string{"a", "b"}, fnMeta.Function.Arguments)
	assert.Equal(t, item.Free, fnMeta.Function.Kind)

	structID := s.children[root][1]
	structMeta := s.metas[structID]
	require.NotNil(t, structMeta.Struct)
	assert.Equal(t, item.FieldsNamed, structMeta.Struct.FieldsKind)
	assert.Equal(t, []string{"x", "y"}, structMeta.Struct.Named)
}

func TestIndexEnumVariantsLinkBackToEnum(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `
		enum Shape {
			Circle(radius),
			Point,
		}
	`)

	root := s.crateRoots["test"]
	enumID := s.children[root][0]
	enumMeta := s.metas[enumID]
	require.NotNil(t, enumMeta.Enum)
	require.Len(t, enumMeta.Enum.Variants, 2)

	circleID := s.children[enumID][0]
	circleMeta := s.metas[circleID]
	require.NotNil(t, circleMeta.Variant)
	assert.Equal(t, enumMeta.Item.Hash(), circleMeta.Variant.EnumHash)
	assert.Equal(t, item.FieldsUnnamed, circleMeta.Variant.Fields.FieldsKind)
	assert.Equal(t, 1, circleMeta.Variant.Fields.Arity)

	pointID := s.children[enumID][1]
	pointMeta := s.metas[pointID]
	assert.Equal(t, item.FieldsEmpty, pointMeta.Variant.Fields.FieldsKind)
}

func TestImplInstanceVsAssociatedFn(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `
		impl Point {
			fn new(x, y) { Point { x, y } }
			fn len(self) { self.x }
		}
	`)

	root := s.crateRoots["test"]
	require.Len(t, s.children[root], 2)

	newMeta := s.metas[s.children[root][0]]
	assert.Equal(t, item.AssociatedFn, newMeta.Function.Kind)
	assert.False(t, newMeta.Function.Instance)

	lenMeta := s.metas[s.children[root][1]]
	assert.Equal(t, item.InstanceFn, lenMeta.Function.Kind)
	assert.True(t, lenMeta.Function.Instance)
	assert.Equal(t, "test::Point::len", lenMeta.Item.String())
}

func TestResolveImportsDirectUseAndVisibility(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `
		mod inner {
			pub fn greet() { 0 }
		}
		use inner::greet;
		fn main() { greet() }
	`)
	require.NoError(t, s.ResolveImports())

	root := s.crateRoots["test"]
	mainID := s.children[root][2]

	path := singleSegmentPath("greet")
	resolvedID, err := s.ResolvePath(mainID, path)
	require.NoError(t, err)
	assert.Equal(t, "test::inner::greet", s.metas[resolvedID].Item.String())
}

func TestResolveImportsWildcard(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `
		mod inner {
			pub fn greet() { 0 }
		}
		use inner::*;
		fn main() { greet() }
	`)
	require.NoError(t, s.ResolveImports())

	root := s.crateRoots["test"]
	mainID := s.children[root][2]
	innerID := s.children[root][0]

	require.Contains(t, s.wildcards[root], innerID)

	path := singleSegmentPath("greet")
	resolvedID, err := s.ResolvePath(mainID, path)
	require.NoError(t, err)
	assert.Equal(t, "test::inner::greet", s.metas[resolvedID].Item.String())
}

func TestResolveImportsReExportChain(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "a", `pub fn thing() { 0 }`)
	indexCrate(t, s, "b", `use a::thing;`)
	indexCrate(t, s, "c", `use b::thing;`)
	require.NoError(t, s.ResolveImports())

	cRoot := s.crateRoots["c"]
	useID := s.children[cRoot][0]
	meta := s.metas[useID]
	require.NotNil(t, meta.Import)
	assert.Equal(t, "a::thing", meta.Import.Target.String())
}

func TestResolveImportsCycleIsDetected(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "a", `use b::thing;`)
	indexCrate(t, s, "b", `use a::thing;`)

	err := s.ResolveImports()
	require.Error(t, err)
	qerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ImportCycle, qerr.Kind)
}

func TestVisibilityInheritedDeniesOutsideAccess(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `
		mod inner {
			fn secret() { 0 }
		}
		fn main() { secret() }
	`)
	require.NoError(t, s.ResolveImports())

	root := s.crateRoots["test"]
	mainID := s.children[root][1]

	path := singleSegmentPath("inner")
	innerModID, err := s.ResolvePath(mainID, path)
	require.NoError(t, err)

	secretID := s.children[innerModID][0]
	secretMeta := s.metas[secretID]
	parent, _ := secretMeta.Item.Parent()
	mainModule := s.itemOf(s.enclosingModule(mainID))
	assert.False(t, item.Visible(secretMeta.Vis, mainModule, parent))
}

func TestVisibilityPublicAllowsAnywhere(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `
		mod inner {
			pub fn greet() { 0 }
		}
		fn main() { 0 }
	`)
	require.NoError(t, s.ResolveImports())

	root := s.crateRoots["test"]
	mainID := s.children[root][1]
	innerID := s.children[root][0]
	greetID := s.children[innerID][0]

	mainModule := s.itemOf(s.enclosingModule(mainID))
	require.NoError(t, s.checkVisible(greetID, mainModule))
}

func TestResolvePathMissingItemErrors(t *testing.T) {
	s := New(Options{})
	indexCrate(t, s, "test", `fn main() { 0 }`)
	require.NoError(t, s.ResolveImports())

	root := s.crateRoots["test"]
	mainID := s.children[root][0]

	_, err := s.ResolvePath(mainID, singleSegmentPath("nope"))
	require.Error(t, err)
	qerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, MissingItem, qerr.Kind)
}
