package unit

import "github.com/rune-rs/rune/item"

// Op is the VM's opcode, one entry per instruction form spec.md §4.6
// enumerates. The operand fields actually used vary by Op; see the
// comment on each group below.
//
// Grounded on the opcode-table shape of
// _examples/other_examples/441348bf_deepnoodle-ai-risor__vm-vm.go.go's
// `op` package and
// _examples/other_examples/3fe95aab_funvibe-funxy__internal-vm-compiler.go.go's
// compiler, adapted to the exact instruction set spec.md §4.6 lists
// rather than either pack example's own opcode set.
type Op uint8

const (
	// Stack.
	OpPush Op = iota
	OpPop
	OpClean
	OpCopy
	OpMove
	OpDrop
	OpReplace
	OpSwap
	OpDup

	// Control.
	OpJump
	OpJumpIf
	OpJumpIfNot
	// OpJumpIfBranch tests the iteration-result value on top of the stack
	// (the shape protocol::NEXT and a generator/stream resume both
	// produce, value.GeneratorState: done-or-value). If it signals done,
	// the wrapper is popped and execution jumps to Target; otherwise the
	// wrapper is replaced by its inner value in place and execution falls
	// through, so a for-loop's pattern binds that unwrapped value
	// directly with no further unpacking instruction needed.
	OpJumpIfBranch
	OpReturn
	OpReturnUnit
	OpYield
	OpYieldUnit
	OpAwait

	// Call.
	OpCall
	OpCallInstance
	OpCallFn
	OpLoadFn

	// Data.
	OpVec
	OpTuple
	OpObject
	OpStruct
	OpTupleStruct
	OpVariantUnit
	OpVariantTuple
	OpVariantObject
	OpString
	OpBytes
	OpRange
	OpStringConcat
	OpFormat

	// Access.
	OpIndexGet
	OpIndexSet
	OpTupleIndexGet
	OpTupleIndexSet
	OpObjectIndexGet
	OpObjectIndexSet

	// Match.
	OpEqInlineValue
	OpMatchType
	OpMatchVariant
	OpMatchTuple
	OpMatchObject
	OpMatchSequence

	// Arithmetic/logic, and its op-assign counterpart (Assign=true).
	OpArith
)

// ArithKind selects which operator OpArith performs, per spec.md §4.6's
// `Op(kind)` instruction.
type ArithKind uint8

const (
	ArithAdd ArithKind = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithRem
	ArithShl
	ArithShr
	ArithBitAnd
	ArithBitOr
	ArithBitXor
	ArithEq
	ArithNeq
	ArithLt
	ArithLte
	ArithGt
	ArithGte
	ArithAnd
	ArithOr
	ArithNot
	ArithNeg
)

// RangeLimits selects which bounds a Range instruction's operands
// supply.
type RangeLimits uint8

const (
	RangeBoth RangeLimits = iota
	RangeFrom
	RangeTo
	RangeFull
)

// Inst is one bytecode instruction. Not every field is meaningful for
// every Op; each constructor below (Push, Jump, Call, ...) only sets the
// fields its form uses, so a disassembler switching on Op knows exactly
// which to read.
type Inst struct {
	Op Op

	// Hash addresses a function/type/protocol for Call, CallInstance,
	// LoadFn, Struct, TupleStruct, Variant*, MatchType, MatchVariant.
	Hash item.Hash

	// Slot addresses a static string/bytes/object-key-list table entry
	// (String, Bytes, Object, ObjectIndexGet/Set, Format), a local
	// stack slot (Copy, Move, Drop, Replace), or a tuple element index
	// (TupleIndexGet/Set).
	Slot uint32

	// Count is a generic arity/length operand: Vec/Tuple/TupleStruct
	// item count, Call/CallInstance/CallFn argument count,
	// StringConcat component count, MatchTuple/MatchSequence length,
	// the number of values Clean drops beneath the top.
	Count uint32

	// Target is a resolved instruction index, filled in by the
	// builder's label-fixup pass; -1 until then.
	Target int32

	// Arith selects OpArith's operator.
	Arith ArithKind

	// Exact marks MatchTuple/MatchObject/MatchSequence as requiring no
	// leftover elements/fields beyond those matched (no trailing `..`).
	Exact bool

	// Range selects which bounds a Range instruction reads from the
	// stack.
	Range RangeLimits

	// Inline carries Push's literal operand and EqInlineValue's
	// comparison operand. Only inline-safe kinds are valid here; heap
	// kinds are built by dedicated Data instructions instead.
	Inline InlineValue
}

// InlineValueKind tags Inst.Inline, mirroring value.Value's inline
// alternatives without importing package value from unit (unit is
// lower in the dependency graph; value stays free of any unit import).
type InlineValueKind uint8

const (
	InlineUnit InlineValueKind = iota
	InlineBool
	InlineByte
	InlineChar
	InlineInteger
	InlineFloat
	InlineType
	InlineFn
)

// InlineValue is the payload of a Push/EqInlineValue instruction.
type InlineValue struct {
	Kind    InlineValueKind
	Bool    bool
	Byte    byte
	Char    rune
	Integer int64
	Float   float64
	Hash    item.Hash
}
