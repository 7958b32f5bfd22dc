package value

import "github.com/rune-rs/rune/item"

// Rtti is the runtime type info attached to a struct (or unit-struct)
// value: enough to format, match, and field-access it without walking
// back through the compiler's Meta, per spec.md §3's "variants/structs:
// runtime type info (Rtti/VariantRtti) holding {hash, item_path,
// field_layout}".
type Rtti struct {
	Hash       item.Hash
	Item       item.Item
	FieldLayout FieldLayout
}

// VariantRtti is Rtti for one enum variant, additionally carrying the
// owning enum's hash so `match` can test "is this a variant of enum E"
// without re-deriving it from the item path.
type VariantRtti struct {
	Rtti
	EnumHash item.Hash
	Index    int
}

// FieldLayoutKind mirrors item.FieldsKind at the value layer, so the VM
// can tell apart `TupleStruct`/`Struct`/`UnitStruct` dispatch without an
// import on the compile-time item package's MetaKind.
type FieldLayoutKind byte

const (
	FieldsEmpty FieldLayoutKind = iota
	FieldsUnnamed
	FieldsNamed
)

// FieldLayout records a struct or variant's field shape.
type FieldLayout struct {
	Kind  FieldLayoutKind
	Names []string // populated when Kind == FieldsNamed
	Arity int       // populated when Kind == FieldsUnnamed
}
