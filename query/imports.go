package query

import "github.com/rune-rs/rune/item"

// pendingImport is one `use` item waiting to be resolved against the
// rest of the indexed crates. atID is the module the `use` lives in;
// id is the `use` item's own pool entry (KindImport), whose
// Meta.Import.Target is filled in once resolved (wildcard imports
// instead register their resolved source in Store.wildcards, since
// they bind no single name).
type pendingImport struct {
	id       item.ID
	atID     item.ID
	source   item.Item
	wildcard bool
}

// ResolveImports resolves every `use` item recorded across all sources
// indexed so far, following re-exports (a `use` that targets another
// `use`) by resolving them on demand, per spec.md §4.3. A re-export
// chain that revisits an import already being resolved is reported as
// ImportCycle, tracking the path exactly as the original compiler's
// fix-point algorithm does — by aborting the moment a step reaches an
// item already on the current resolution path, rather than looping.
func (s *Store) ResolveImports() error {
	resolving := map[item.ID]bool{}
	resolved := map[item.ID]bool{}
	for _, imp := range s.imports {
		if resolved[imp.id] {
			continue
		}
		if err := s.resolveImport(imp, resolving, resolved); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) resolveImport(imp *pendingImport, resolving, resolved map[item.ID]bool) error {
	if resolving[imp.id] {
		return &Error{Kind: ImportCycle, Path: imp.source.String()}
	}
	resolving[imp.id] = true
	defer delete(resolving, imp.id)

	target, err := s.resolveImportSource(imp, resolving, resolved)
	if err != nil {
		return err
	}

	if imp.wildcard {
		s.wildcards[imp.atID] = append(s.wildcards[imp.atID], target)
	} else if meta, ok := s.metas[imp.id]; ok {
		meta.Import.Target = s.itemOf(target)
	}
	resolved[imp.id] = true
	return nil
}

// resolveImportSource walks imp.source component by component from its
// crate root, per spec.md §4.3's "Wildcard imports enumerate the
// components under their source prefix" and the general "resolved
// component by component" rule. Every intermediate hop is chased
// through resolveThroughImport so a re-export is resolved (or found
// cyclic) lazily, the first time something actually depends on it.
func (s *Store) resolveImportSource(imp *pendingImport, resolving, resolved map[item.ID]bool) (item.ID, error) {
	comps := imp.source.Components()
	if len(comps) == 0 {
		return item.InvalidID, &Error{Kind: MissingItem, Item: imp.source}
	}

	// The first segment may name a sibling module local to the `use`
	// item (`use inner::thing`) rather than an external crate, so try
	// lexical scope resolution before falling back to a crate root.
	curID, ok := s.resolveInScope(imp.atID, comps[0].Str)
	if !ok {
		curID, ok = s.crateRoots[comps[0].Str]
	}
	if !ok {
		return item.InvalidID, &Error{Kind: MissingItem, Item: imp.source}
	}

	for _, c := range comps[1:] {
		through, err := s.resolveThroughImport(curID, resolving, resolved)
		if err != nil {
			return item.InvalidID, err
		}
		next, ok := s.lookupChild(through, c.Str)
		if !ok {
			return item.InvalidID, &Error{Kind: MissingItem, Item: imp.source}
		}
		curID = next
	}

	return s.resolveThroughImport(curID, resolving, resolved)
}

// resolveThroughImport follows id to the final non-import item it
// names, recursively resolving id itself first if it is a `use` item
// that hasn't been resolved yet.
func (s *Store) resolveThroughImport(id item.ID, resolving, resolved map[item.ID]bool) (item.ID, error) {
	meta, ok := s.metas[id]
	if !ok || meta.Kind != item.KindImport {
		return id, nil
	}
	if !resolved[id] {
		pending := s.importByID[id]
		if pending == nil {
			return id, nil
		}
		if err := s.resolveImport(pending, resolving, resolved); err != nil {
			return item.InvalidID, err
		}
	}
	target, ok := s.byItemID(meta.Import.Target)
	if !ok {
		return item.InvalidID, &Error{Kind: MissingItem, Item: meta.Item}
	}
	return target, nil
}
