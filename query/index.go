package query

import (
	"fmt"

	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
)

// IndexFile walks every item in file and records it under a crate root
// named crate, enqueuing any `use` items found along the way. Call
// ResolveImports afterward (once all sources in a build are indexed) to
// fix-point-resolve them.
func (s *Store) IndexFile(crate string, file *ast.File) error {
	root := item.FromComponents(item.CrateComponent(crate))
	rootID := s.pool.Intern(root)
	s.crateRoots[crate] = rootID
	s.byPath[root.String()] = rootID
	return s.indexItems(rootID, root, file.Items)
}

func (s *Store) indexItems(parentID item.ID, parent item.Item, items []ast.Item) error {
	for _, it := range items {
		if err := s.indexItem(parentID, parent, it); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) indexItem(parentID item.ID, parent item.Item, it ast.Item) error {
	it.SetItemId(s.allocAstID())

	switch node := it.(type) {
	case *ast.FnItem:
		s.indexFn(parentID, parent, node, item.Free)
		return nil
	case *ast.StructItem:
		s.indexStruct(parentID, parent, node)
		return nil
	case *ast.EnumItem:
		s.indexEnum(parentID, parent, node)
		return nil
	case *ast.ConstItem:
		s.indexConst(parentID, parent, node)
		return nil
	case *ast.ModItem:
		return s.indexMod(parentID, parent, node)
	case *ast.UseItem:
		s.indexUse(parentID, parent, node)
		return nil
	case *ast.ImplItem:
		return s.indexImpl(parentID, parent, node)
	case *ast.MacroCallItem:
		// Item-position macro calls are expanded before indexing (the
		// macro package's ExpandFile splices their items into the
		// file); a call still present here is skipped.
		return nil
	default:
		return fmt.Errorf("query: unindexed item type %T", it)
	}
}

func (s *Store) indexFn(parentID item.ID, parent item.Item, fn *ast.FnItem, kind item.FunctionKind) item.ID {
	path := parent.Join(item.StrComponent(fn.Name.Name))
	id := s.pool.Intern(path)
	s.recordMeta(id, fn, &item.Meta{
		Item: path,
		Vis:  visOf(fn.Visibility()),
		Kind: item.KindFunction,
		Function: &item.FunctionMeta{
			Arguments: paramNames(fn.Params),
			IsTest:    fn.IsTest,
			IsBench:   fn.IsBench,
			IsAsync:   fn.IsAsync,
			Instance:  kind == item.InstanceFn,
			Kind:      kind,
		},
		Docs: fn.Docs,
	})
	s.addChild(parentID, id)
	return id
}

func (s *Store) indexStruct(parentID item.ID, parent item.Item, st *ast.StructItem) item.ID {
	path := parent.Join(item.StrComponent(st.Name.Name))
	id := s.pool.Intern(path)
	s.recordMeta(id, st, &item.Meta{
		Item:   path,
		Vis:    visOf(st.Visibility()),
		Kind:   item.KindStruct,
		Struct: structMetaOf(st.Named, st.Arity),
		Docs:   st.Docs,
	})
	s.addChild(parentID, id)
	return id
}

func (s *Store) indexEnum(parentID item.ID, parent item.Item, en *ast.EnumItem) item.ID {
	path := parent.Join(item.StrComponent(en.Name.Name))
	id := s.pool.Intern(path)

	variants := make([]item.Item, 0, len(en.Variants))
	for _, v := range en.Variants {
		vPath := path.Join(item.StrComponent(v.Name.Name))
		vID := s.pool.Intern(vPath)
		s.recordMeta(vID, v, &item.Meta{
			Item: vPath,
			Vis:  visOf(en.Visibility()),
			Kind: item.KindVariant,
			Variant: &item.VariantMeta{
				EnumHash: path.Hash(),
				Fields:   *structMetaOf(v.Named, v.Arity),
			},
		})
		s.addChild(id, vID)
		variants = append(variants, vPath)
	}

	s.recordMeta(id, en, &item.Meta{
		Item: path,
		Vis:  visOf(en.Visibility()),
		Kind: item.KindEnum,
		Enum: &item.EnumMeta{Variants: variants},
		Docs: en.Docs,
	})
	s.addChild(parentID, id)
	return id
}

func (s *Store) indexConst(parentID item.ID, parent item.Item, c *ast.ConstItem) item.ID {
	path := parent.Join(item.StrComponent(c.Name.Name))
	id := s.pool.Intern(path)
	s.recordMeta(id, c, &item.Meta{
		Item: path,
		Vis:  visOf(c.Visibility()),
		Kind: item.KindConst,
		// Const.Value is populated once the ir package evaluates c.Value;
		// the indexer only reserves the item path and pending node.
		Const: &item.ConstMeta{},
		Docs:  c.Docs,
	})
	s.addChild(parentID, id)
	return id
}

func (s *Store) indexMod(parentID item.ID, parent item.Item, m *ast.ModItem) error {
	path := parent.Join(item.StrComponent(m.Name.Name))
	id := s.pool.Intern(path)
	s.recordMeta(id, m, &item.Meta{
		Item:   path,
		Vis:    visOf(m.Visibility()),
		Kind:   item.KindModule,
		Module: &item.ModuleMeta{},
		Docs:   m.Docs,
	})
	s.addChild(parentID, id)

	if m.Items == nil {
		// `mod name;` with no inline body: the host build pipeline is
		// responsible for loading the external source and calling
		// IndexFile again with this item's path as the crate prefix.
		return nil
	}
	return s.indexItems(id, path, m.Items)
}

func (s *Store) indexUse(parentID item.ID, parent item.Item, u *ast.UseItem) item.ID {
	name := useBindingName(u)
	path := parent.Join(item.StrComponent(name))
	id := s.pool.Intern(path)
	s.recordMeta(id, u, &item.Meta{
		Item: path,
		Vis:  visOf(u.Visibility()),
		Kind: item.KindImport,
		// Import.Target is filled in by ResolveImports.
		Import: &item.ImportMeta{},
	})
	s.addChild(parentID, id)

	pending := &pendingImport{
		id:       id,
		atID:     parentID,
		source:   pathItem(u.Path),
		wildcard: u.Wildcard,
	}
	s.imports = append(s.imports, pending)
	s.importByID[id] = pending
	return id
}

// useBindingName returns the local name a `use` item binds: the alias
// if given, otherwise the last path segment, or "*::" followed by the
// last segment for a wildcard import (which binds no single name but
// still needs a pool entry so
// it can be recorded as pending work).
func useBindingName(u *ast.UseItem) string {
	if u.Alias != nil {
		return u.Alias.Name
	}
	if u.Wildcard {
		return "*::" + u.Path.Segments[len(u.Path.Segments)-1].Name
	}
	return u.Path.Segments[len(u.Path.Segments)-1].Name
}

func (s *Store) indexImpl(parentID item.ID, parent item.Item, impl *ast.ImplItem) error {
	// The target type is named relative to the enclosing module: only
	// the final segment is used, so instance methods are placed under
	// parent::Type; a path such as `impl other::Type` is not resolved to
	// the module that defines the type.
	typeName := impl.Type.Segments[len(impl.Type.Segments)-1].Name
	typePath := parent.Join(item.StrComponent(typeName))

	for _, fn := range impl.Fns {
		fn.SetItemId(s.allocAstID())
		kind := item.AssociatedFn
		if fnHasSelfParam(fn) {
			kind = item.InstanceFn
		}
		s.indexFn(parentID, typePath, fn, kind)
	}
	return nil
}

func fnHasSelfParam(fn *ast.FnItem) bool {
	if len(fn.Params) == 0 {
		return false
	}
	bind, ok := fn.Params[0].Pattern.(*ast.PatBind)
	return ok && bind.Name != nil && bind.Name.Name == "self"
}

func paramNames(params []*ast.FnParam) []string {
	if len(params) == 0 {
		return nil
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = patternBindingName(p.Pattern)
	}
	return names
}

// patternBindingName returns a display name for a parameter pattern:
// the bound identifier for a plain binding, or a placeholder for any
// pattern that destructures rather than binds a single name.
func patternBindingName(p ast.Pattern) string {
	switch pat := p.(type) {
	case *ast.PatBind:
		return pat.Name.Name
	case *ast.PatWildcard:
		return "_"
	default:
		return "_"
	}
}

func structMetaOf(named []*ast.Ident, arity int) *item.StructMeta {
	switch {
	case named != nil:
		names := make([]string, len(named))
		for i, n := range named {
			names[i] = n.Name
		}
		return &item.StructMeta{FieldsKind: item.FieldsNamed, Named: names}
	case arity > 0:
		return &item.StructMeta{FieldsKind: item.FieldsUnnamed, Arity: arity}
	default:
		return &item.StructMeta{FieldsKind: item.FieldsEmpty}
	}
}

// pathItem converts a parsed ast.Path into an item.Item, ignoring
// Global (Rune paths are always resolved from the crate root set they
// name; a leading `::` selects the host Context rather than changing
// the component sequence).
func pathItem(p *ast.Path) item.Item {
	components := make([]item.Component, len(p.Segments))
	for i, seg := range p.Segments {
		if i == 0 {
			components[i] = item.CrateComponent(seg.Name)
		} else {
			components[i] = item.StrComponent(seg.Name)
		}
	}
	return item.FromComponents(components...)
}
