package ir

import "fmt"

// ValueKind tags a ConstValue's alternative, a cut-down version of
// value.Kind: the const evaluator never produces a Shared<T> cell (no
// generators, futures, or host Any values can exist at compile time),
// so ConstValue stores vecs/tuples/objects directly instead of behind a
// borrow-checked cell.
type ValueKind byte

const (
	KindUnit ValueKind = iota
	KindBool
	KindByte
	KindChar
	KindInteger
	KindFloat
	KindString
	KindBytes
	KindVec
	KindTuple
	KindObject
)

// ConstValue is the result of evaluating a const expression or const fn
// call, per spec.md §4.5.
type ConstValue struct {
	Kind    ValueKind
	Bool    bool
	Byte    byte
	Char    rune
	Integer int64
	Float   float64
	String  string
	Bytes   []byte
	Items   []ConstValue // Vec or Tuple, selected by Kind
	Keys    []string     // Object: parallel to Items, insertion order
}

func Unit() ConstValue           { return ConstValue{Kind: KindUnit} }
func Bool(b bool) ConstValue     { return ConstValue{Kind: KindBool, Bool: b} }
func Byte(b byte) ConstValue     { return ConstValue{Kind: KindByte, Byte: b} }
func Char(c rune) ConstValue     { return ConstValue{Kind: KindChar, Char: c} }
func Integer(i int64) ConstValue { return ConstValue{Kind: KindInteger, Integer: i} }
func Float(f float64) ConstValue { return ConstValue{Kind: KindFloat, Float: f} }
func String(s string) ConstValue { return ConstValue{Kind: KindString, String: s} }
func Bytes(b []byte) ConstValue  { return ConstValue{Kind: KindBytes, Bytes: b} }
func VecValue(items []ConstValue) ConstValue   { return ConstValue{Kind: KindVec, Items: items} }
func TupleValue(items []ConstValue) ConstValue { return ConstValue{Kind: KindTuple, Items: items} }
func ObjectValue(keys []string, items []ConstValue) ConstValue {
	return ConstValue{Kind: KindObject, Keys: keys, Items: items}
}

// Truthy reports whether v is the "true" branch of an `if`/`while`
// condition; only Bool is accepted, matching the runtime VM's refusal
// to treat other kinds as conditions.
func (v ConstValue) Truthy() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// Equal reports deep equality, used by spec.md §8's "const item
// evaluated twice with the same inputs produces an equal ConstValue".
func (v ConstValue) Equal(other ConstValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindUnit:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindByte:
		return v.Byte == other.Byte
	case KindChar:
		return v.Char == other.Char
	case KindInteger:
		return v.Integer == other.Integer
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.String == other.String
	case KindBytes:
		if len(v.Bytes) != len(other.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != other.Bytes[i] {
				return false
			}
		}
		return true
	case KindVec, KindTuple:
		if len(v.Items) != len(other.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Keys) != len(other.Keys) {
			return false
		}
		for i := range v.Keys {
			if v.Keys[i] != other.Keys[i] || !v.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v ConstValue) String_() string {
	switch v.Kind {
	case KindUnit:
		return "()"
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindByte:
		return fmt.Sprintf("%d", v.Byte)
	case KindChar:
		return fmt.Sprintf("%q", v.Char)
	case KindInteger:
		return fmt.Sprintf("%d", v.Integer)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.String
	default:
		return fmt.Sprintf("<ir %v>", v.Kind)
	}
}
