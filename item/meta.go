package item

// Meta is the compiler's description of an item: the single source of
// truth the assembler consumes once an item's body has been queried and
// produced. Exactly one of the MetaKind-tagged fields below is populated,
// selected by Kind.
type Meta struct {
	Item Item
	Vis  Visibility
	Kind MetaKind

	Function *FunctionMeta
	Closure  *ClosureMeta
	Async    *AsyncBlockMeta
	Struct   *StructMeta
	Variant  *VariantMeta
	Enum     *EnumMeta
	Const    *ConstMeta
	Module   *ModuleMeta
	Import   *ImportMeta

	// Docs holds doc-comment lines attached to the item, preserved (not
	// discarded as trivia) so a host embedding the compiler can surface
	// them — see SPEC_FULL.md's docs-extraction supplement.
	Docs []string
}

// MetaKind selects which of Meta's variant fields is populated.
type MetaKind byte

const (
	KindFunction MetaKind = iota
	KindClosure
	KindAsyncBlock
	KindStruct
	KindVariant
	KindEnum
	KindConst
	KindModule
	KindImport
)

// FunctionKind distinguishes how a function is invoked.
type FunctionKind byte

const (
	// Free is an ordinary top-level or module-level function.
	Free FunctionKind = iota
	// AssociatedFn is called as Type::name(...).
	AssociatedFn
	// InstanceFn is called as receiver.name(...) and is looked up by
	// instance_fn_hash at the call site.
	InstanceFn
)

// FunctionMeta describes a `fn`/`async fn` item.
type FunctionMeta struct {
	Arguments []string
	IsTest    bool
	IsBench   bool
	IsAsync   bool
	Instance  bool
	Kind      FunctionKind
}

// ClosureMeta describes a closure expression's captures.
type ClosureMeta struct {
	Captures []string
	DoMove   bool
}

// AsyncBlockMeta describes an `async { }` block's captures.
type AsyncBlockMeta struct {
	Captures []string
	DoMove   bool
}

// FieldsKind distinguishes the three struct-field shapes Rune supports.
type FieldsKind byte

const (
	FieldsEmpty FieldsKind = iota
	FieldsUnnamed
	FieldsNamed
)

// StructMeta describes a `struct` item's field layout.
type StructMeta struct {
	FieldsKind FieldsKind
	Named      []string // populated when FieldsKind == FieldsNamed
	Arity      int       // populated when FieldsKind == FieldsUnnamed
}

// VariantMeta describes one `enum` variant.
type VariantMeta struct {
	EnumHash Hash
	Fields   StructMeta
}

// EnumMeta describes an `enum` item; its variants are separate items
// whose Meta.Variant.EnumHash points back at this item's Hash.
type EnumMeta struct {
	Variants []Item
}

// ConstMeta describes a `const` item. Value is an ir.ConstValue; it is
// held as interface{} here so the item package (which everything else
// depends on) doesn't need to import ir.
type ConstMeta struct {
	Value interface{}
}

// ModuleMeta marks a `mod` item; it carries no extra data beyond its
// Item path and the items nested under it (tracked by the query store).
type ModuleMeta struct{}

// ImportMeta describes a `use` item's resolved target.
type ImportMeta struct {
	Target Item
}
