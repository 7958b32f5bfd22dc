package query

import (
	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/item"
)

// ResolvePath resolves path as used from the item at fromID, per
// spec.md §4.3: each prefix segment must name a module visible from
// the current item, and the final segment selects the target item
// whose Meta is returned.
//
// The first segment is resolved lexically: the enclosing module (and
// its ancestors) is searched first, falling back to a crate root of
// the same name, so both `use`d/local names and fully qualified
// `std::collections::HashMap`-style paths work through the same call.
func (s *Store) ResolvePath(fromID item.ID, path *ast.Path) (item.ID, error) {
	if len(path.Segments) == 0 {
		return item.InvalidID, &Error{Kind: MissingItem}
	}

	scope := s.enclosingModule(fromID)
	from := s.itemOf(scope)

	curID, ok := s.resolveInScope(scope, path.Segments[0].Name)
	if !ok {
		curID, ok = s.crateRoots[path.Segments[0].Name]
	}
	if !ok {
		return item.InvalidID, &Error{Kind: MissingItem, Item: pathItem(path)}
	}

	for _, seg := range path.Segments[1:] {
		resolved, ok := s.followImport(curID)
		if !ok {
			return item.InvalidID, &Error{Kind: MissingItem, Item: pathItem(path)}
		}
		if err := s.checkVisible(resolved, from); err != nil {
			return item.InvalidID, err
		}
		next, ok := s.lookupChild(resolved, seg.Name)
		if !ok {
			return item.InvalidID, &Error{Kind: MissingItem, Item: pathItem(path)}
		}
		curID = next
	}

	final, ok := s.followImport(curID)
	if !ok {
		return item.InvalidID, &Error{Kind: MissingItem, Item: pathItem(path)}
	}
	if err := s.checkVisible(final, from); err != nil {
		return item.InvalidID, err
	}
	return final, nil
}

// followImport resolves id through an already-resolved `use` item (or
// chain of them) to the final non-import item it names. Safe to call
// only after ResolveImports has succeeded, since it assumes every
// KindImport it meets carries a populated Target and bounds the chase
// defensively rather than re-deriving cycle detection.
func (s *Store) followImport(id item.ID) (item.ID, bool) {
	const maxImportHops = 64
	for i := 0; i < maxImportHops; i++ {
		meta, ok := s.metas[id]
		if !ok || meta.Kind != item.KindImport {
			return id, true
		}
		next, ok := s.byItemID(meta.Import.Target)
		if !ok {
			return item.InvalidID, false
		}
		id = next
	}
	return item.InvalidID, false
}

// checkVisible applies is_visible(from, to) from spec.md §4.3 to the
// item at id, as referenced from the item from.
func (s *Store) checkVisible(id item.ID, from item.Item) error {
	meta, ok := s.metas[id]
	if !ok {
		return nil
	}
	parent, ok := meta.Item.Parent()
	if !ok {
		return nil // crate root: always visible
	}
	if !item.Visible(meta.Vis, from, parent) {
		return &Error{Kind: NotVisible, Item: meta.Item}
	}
	return nil
}

func (s *Store) itemOf(id item.ID) item.Item {
	if meta, ok := s.metas[id]; ok {
		return meta.Item
	}
	if id != item.InvalidID {
		return s.pool.Get(id)
	}
	return item.Item{}
}

// enclosingModule returns the pool ID of id's parent item, or id
// itself if it has no indexed parent (the crate root).
func (s *Store) enclosingModule(id item.ID) item.ID {
	parent, ok := s.itemOf(id).Parent()
	if !ok {
		return id
	}
	if parentID, ok := s.byItemID(parent); ok {
		return parentID
	}
	return id
}

// resolveInScope looks up name as a direct child of scope or one of
// its ancestor modules, nearest first, matching ordinary lexical
// scoping for an unqualified or locally `use`d name.
func (s *Store) resolveInScope(scope item.ID, name string) (item.ID, bool) {
	for {
		if id, ok := s.lookupChild(scope, name); ok {
			return id, true
		}
		next := s.enclosingModule(scope)
		if next == scope {
			return item.InvalidID, false
		}
		scope = next
	}
}
