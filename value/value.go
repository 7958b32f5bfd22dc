// Package value implements Rune's runtime value model: the tagged
// Value union of spec.md §3, its Shared<T> reference-counted borrow
// cells, and the insertion-ordered Object map backing object and named
// struct literals.
package value

import (
	"fmt"

	"github.com/rune-rs/rune/item"
)

// Kind tags which alternative of Value is populated. Inline kinds are
// bit-for-bit copies; everything after KindString lives behind a shared
// cell (or, for Variant/TupleStruct/Struct, an Rtti tag plus one).
type Kind byte

const (
	KindUnit Kind = iota
	KindBool
	KindByte
	KindChar
	KindInteger
	KindFloat
	KindType
	KindStaticString
	KindFn

	KindString
	KindBytes
	KindVec
	KindTuple
	KindObject
	KindRange
	KindFuture
	KindGenerator
	KindStream
	KindGeneratorState
	KindFunction
	KindFormat
	KindIterator
	KindUnitStruct
	KindTupleStruct
	KindStruct
	KindVariant
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "Unit"
	case KindBool:
		return "Bool"
	case KindByte:
		return "Byte"
	case KindChar:
		return "Char"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindType:
		return "Type"
	case KindStaticString:
		return "StaticString"
	case KindFn:
		return "Fn"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindVec:
		return "Vec"
	case KindTuple:
		return "Tuple"
	case KindObject:
		return "Object"
	case KindRange:
		return "Range"
	case KindFuture:
		return "Future"
	case KindGenerator:
		return "Generator"
	case KindStream:
		return "Stream"
	case KindGeneratorState:
		return "GeneratorState"
	case KindFunction:
		return "Function"
	case KindFormat:
		return "Format"
	case KindIterator:
		return "Iterator"
	case KindUnitStruct:
		return "UnitStruct"
	case KindTupleStruct:
		return "TupleStruct"
	case KindStruct:
		return "Struct"
	case KindVariant:
		return "Variant"
	case KindAny:
		return "Any"
	default:
		return "<invalid-kind>"
	}
}

// Value is Rune's runtime tagged union: inline primitives stored
// directly, everything else carried in data (usually a *Shared[T] cell,
// per spec.md §3's split between inline Values and heap cells).
type Value struct {
	kind Kind
	i    int64
	f    float64
	data any
}

func Unit() Value          { return Value{kind: KindUnit} }
func Bool(b bool) Value    { return Value{kind: KindBool, i: boolToInt(b)} }
func Byte(b byte) Value    { return Value{kind: KindByte, i: int64(b)} }
func Char(r rune) Value    { return Value{kind: KindChar, i: int64(r)} }
func Integer(n int64) Value { return Value{kind: KindInteger, i: n} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func TypeOf(h item.Hash) Value     { return Value{kind: KindType, i: int64(h)} }
func StaticString(slot uint32) Value { return Value{kind: KindStaticString, i: int64(slot)} }
func Fn(h item.Hash) Value  { return Value{kind: KindFn, i: int64(h)} }

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsUnit() bool { return v.kind == KindUnit }

func (v Value) AsBool() (bool, bool)     { return v.i != 0, v.kind == KindBool }
func (v Value) AsByte() (byte, bool)     { return byte(v.i), v.kind == KindByte }
func (v Value) AsChar() (rune, bool)     { return rune(v.i), v.kind == KindChar }
func (v Value) AsInteger() (int64, bool) { return v.i, v.kind == KindInteger }
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) AsType() (item.Hash, bool) { return item.Hash(v.i), v.kind == KindType }
func (v Value) AsStaticString() (uint32, bool) { return uint32(v.i), v.kind == KindStaticString }
func (v Value) AsFn() (item.Hash, bool)  { return item.Hash(v.i), v.kind == KindFn }

// String wraps a shared string cell.
func String(s *Shared[string]) Value { return Value{kind: KindString, data: s} }

func (v Value) AsString() (*Shared[string], bool) {
	s, ok := v.data.(*Shared[string])
	return s, ok && v.kind == KindString
}

// Bytes wraps a shared byte-slice cell.
func Bytes(b *Shared[[]byte]) Value { return Value{kind: KindBytes, data: b} }

func (v Value) AsBytes() (*Shared[[]byte], bool) {
	b, ok := v.data.(*Shared[[]byte])
	return b, ok && v.kind == KindBytes
}

// Vec wraps a shared, growable list cell.
func Vec(items *Shared[[]Value]) Value { return Value{kind: KindVec, data: items} }

func (v Value) AsVec() (*Shared[[]Value], bool) {
	s, ok := v.data.(*Shared[[]Value])
	return s, ok && v.kind == KindVec
}

// Tuple wraps a shared fixed-arity list cell.
func Tuple(items *Shared[[]Value]) Value { return Value{kind: KindTuple, data: items} }

func (v Value) AsTuple() (*Shared[[]Value], bool) {
	s, ok := v.data.(*Shared[[]Value])
	return s, ok && v.kind == KindTuple
}

// Obj wraps a shared insertion-ordered map cell.
func Obj(o *Shared[*Object]) Value { return Value{kind: KindObject, data: o} }

func (v Value) AsObject() (*Shared[*Object], bool) {
	o, ok := v.data.(*Shared[*Object])
	return o, ok && v.kind == KindObject
}

// Range is the payload of a `start..end`/`start..=end` value; either
// bound may be absent (open range).
type Range struct {
	Start, End   *Value
	HasStart     bool
	HasEnd       bool
	Inclusive    bool
}

func RangeVal(r *Shared[Range]) Value { return Value{kind: KindRange, data: r} }

func (v Value) AsRange() (*Shared[Range], bool) {
	r, ok := v.data.(*Shared[Range])
	return r, ok && v.kind == KindRange
}

// Future/Generator/Stream/Iterator carry opaque data owned by package
// vm (frame chains, resumption state): value only tags and stores it,
// so the value package never needs to import vm.

func Future(data any) Value { return Value{kind: KindFuture, data: data} }
func (v Value) FutureData() (any, bool) {
	return v.data, v.kind == KindFuture
}

func Generator(data any) Value { return Value{kind: KindGenerator, data: data} }
func (v Value) GeneratorData() (any, bool) {
	return v.data, v.kind == KindGenerator
}

func Stream(data any) Value { return Value{kind: KindStream, data: data} }
func (v Value) StreamData() (any, bool) {
	return v.data, v.kind == KindStream
}

func Iterator(data any) Value { return Value{kind: KindIterator, data: data} }
func (v Value) IteratorData() (any, bool) {
	return v.data, v.kind == KindIterator
}

// GeneratorState is the result of resuming a generator/stream: either it
// yielded a value or it's complete, mirroring Rust's `Option` result of
// `next()` (spec.md §8 scenario 5: `[Some(1), Some(2), None]`).
type GeneratorState struct {
	Done  bool
	Value Value
}

func GeneratorStateVal(s GeneratorState) Value { return Value{kind: KindGeneratorState, data: s} }

func (v Value) AsGeneratorState() (GeneratorState, bool) {
	s, ok := v.data.(GeneratorState)
	return s, ok && v.kind == KindGeneratorState
}

// FunctionValue is a closure value: the hash of its compiled entry plus
// the locals it captured.
type FunctionValue struct {
	Hash     item.Hash
	Captures []Value
}

func Function(f *Shared[FunctionValue]) Value { return Value{kind: KindFunction, data: f} }

func (v Value) AsFunction() (*Shared[FunctionValue], bool) {
	f, ok := v.data.(*Shared[FunctionValue])
	return f, ok && v.kind == KindFunction
}

// FormatSpec is the payload of a `Format{spec}` instruction result: a
// value paired with the display options used to render it.
type FormatSpec struct {
	Value     Value
	Fill      rune
	Align     byte // '<', '>', '^'
	Width     int
	Precision int
	HasWidth  bool
	HasPrec   bool
}

func Format(f *Shared[FormatSpec]) Value { return Value{kind: KindFormat, data: f} }

func (v Value) AsFormat() (*Shared[FormatSpec], bool) {
	f, ok := v.data.(*Shared[FormatSpec])
	return f, ok && v.kind == KindFormat
}

// UnitStruct is a struct with no fields; its identity is entirely its
// Rtti.
func UnitStruct(rtti *Rtti) Value { return Value{kind: KindUnitStruct, data: rtti} }

func (v Value) AsUnitStruct() (*Rtti, bool) {
	r, ok := v.data.(*Rtti)
	return r, ok && v.kind == KindUnitStruct
}

type tupleStructData struct {
	Rtti   *Rtti
	Fields *Shared[[]Value]
}

func TupleStruct(rtti *Rtti, fields *Shared[[]Value]) Value {
	return Value{kind: KindTupleStruct, data: tupleStructData{Rtti: rtti, Fields: fields}}
}

func (v Value) AsTupleStruct() (*Rtti, *Shared[[]Value], bool) {
	d, ok := v.data.(tupleStructData)
	if !ok || v.kind != KindTupleStruct {
		return nil, nil, false
	}
	return d.Rtti, d.Fields, true
}

type structData struct {
	Rtti   *Rtti
	Fields *Shared[*Object]
}

func Struct(rtti *Rtti, fields *Shared[*Object]) Value {
	return Value{kind: KindStruct, data: structData{Rtti: rtti, Fields: fields}}
}

func (v Value) AsStruct() (*Rtti, *Shared[*Object], bool) {
	d, ok := v.data.(structData)
	if !ok || v.kind != KindStruct {
		return nil, nil, false
	}
	return d.Rtti, d.Fields, true
}

// VariantPayloadKind distinguishes which shape an enum variant's data
// takes, mirroring its StructMeta.
type VariantPayloadKind byte

const (
	VariantUnit VariantPayloadKind = iota
	VariantTuple
	VariantObject
)

type variantData struct {
	Rtti    *VariantRtti
	Kind    VariantPayloadKind
	Tuple   *Shared[[]Value]
	Fields  *Shared[*Object]
}

func VariantUnitVal(rtti *VariantRtti) Value {
	return Value{kind: KindVariant, data: variantData{Rtti: rtti, Kind: VariantUnit}}
}

func VariantTupleVal(rtti *VariantRtti, fields *Shared[[]Value]) Value {
	return Value{kind: KindVariant, data: variantData{Rtti: rtti, Kind: VariantTuple, Tuple: fields}}
}

func VariantObjectVal(rtti *VariantRtti, fields *Shared[*Object]) Value {
	return Value{kind: KindVariant, data: variantData{Rtti: rtti, Kind: VariantObject, Fields: fields}}
}

func (v Value) AsVariant() (*VariantRtti, VariantPayloadKind, *Shared[[]Value], *Shared[*Object], bool) {
	d, ok := v.data.(variantData)
	if !ok || v.kind != KindVariant {
		return nil, 0, nil, nil, false
	}
	return d.Rtti, d.Kind, d.Tuple, d.Fields, true
}

// Any carries a type-erased host value registered via Module::ty, plus
// the Hash identifying its foreign type.
type AnyValue struct {
	Hash item.Hash
	Data any
}

func Any(v *Shared[AnyValue]) Value { return Value{kind: KindAny, data: v} }

func (v Value) AsAny() (*Shared[AnyValue], bool) {
	a, ok := v.data.(*Shared[AnyValue])
	return a, ok && v.kind == KindAny
}

// TypeHash returns the Hash the VM uses to resolve this value's
// instance-function dispatch: a fixed per-Kind hash for inline/builtin
// kinds, or the carried Rtti/AnyValue hash for struct/variant/any
// values. Protocol dispatch (`ADD`, `EQ`, ...) composes this with a
// protocol hash via item.Mix.
func (v Value) TypeHash() item.Hash {
	switch v.kind {
	case KindUnitStruct:
		if r, ok := v.AsUnitStruct(); ok {
			return r.Hash
		}
	case KindTupleStruct:
		if r, _, ok := v.AsTupleStruct(); ok {
			return r.Hash
		}
	case KindStruct:
		if r, _, ok := v.AsStruct(); ok {
			return r.Hash
		}
	case KindVariant:
		if r, _, _, _, ok := v.AsVariant(); ok {
			return r.EnumHash
		}
	case KindAny:
		if a, ok := v.AsAny(); ok {
			if g, err := a.Ref(); err == nil {
				h := g.Get().Hash
				g.Release()
				return h
			}
		}
	}
	return builtinTypeHash(v.kind)
}

var builtinTypeHashes = map[Kind]item.Hash{
	KindUnit:         item.HashType("Unit"),
	KindBool:         item.HashType("bool"),
	KindByte:         item.HashType("byte"),
	KindChar:         item.HashType("char"),
	KindInteger:      item.HashType("i64"),
	KindFloat:        item.HashType("f64"),
	KindType:         item.HashType("Type"),
	KindStaticString: item.HashType("String"),
	KindFn:           item.HashType("Fn"),
	KindString:       item.HashType("String"),
	KindBytes:        item.HashType("Bytes"),
	KindVec:          item.HashType("Vec"),
	KindTuple:        item.HashType("Tuple"),
	KindObject:       item.HashType("Object"),
	KindRange:        item.HashType("Range"),
	KindFuture:       item.HashType("Future"),
	KindGenerator:    item.HashType("Generator"),
	KindStream:       item.HashType("Stream"),
	KindFunction:     item.HashType("Function"),
	KindFormat:       item.HashType("Format"),
	KindIterator:     item.HashType("Iterator"),
}

func builtinTypeHash(k Kind) item.Hash {
	if h, ok := builtinTypeHashes[k]; ok {
		return h
	}
	return item.HashType(k.String())
}

// DebugString renders v for diagnostics. It never borrows-fails silently
// (a taken/conflicted cell renders its error inline) since this is used
// by `dbg!`/panic messages, not by user-observable Display formatting.
func (v Value) DebugString() string {
	switch v.kind {
	case KindUnit:
		return "()"
	case KindBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%v", b)
	case KindByte:
		b, _ := v.AsByte()
		return fmt.Sprintf("%db", b)
	case KindChar:
		c, _ := v.AsChar()
		return fmt.Sprintf("%q", c)
	case KindInteger:
		i, _ := v.AsInteger()
		return fmt.Sprintf("%d", i)
	case KindFloat:
		f, _ := v.AsFloat()
		return fmt.Sprintf("%g", f)
	case KindString:
		s, _ := v.AsString()
		g, err := s.Ref()
		if err != nil {
			return fmt.Sprintf("<string: %v>", err)
		}
		defer g.Release()
		return fmt.Sprintf("%q", g.Get())
	case KindVec:
		items, _ := v.AsVec()
		g, err := items.Ref()
		if err != nil {
			return fmt.Sprintf("<vec: %v>", err)
		}
		defer g.Release()
		parts := make([]string, len(g.Get()))
		for i, e := range g.Get() {
			parts[i] = e.DebugString()
		}
		return "[" + join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("<%s>", v.kind)
	}
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
