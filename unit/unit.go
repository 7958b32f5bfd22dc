// Package unit implements the sealed, immutable compiled program
// spec.md §3/§4.7 calls a Unit: bytecode, constant/static tables, a
// hash→function table, debug spans, and struct/variant runtime type
// info, plus the Builder that accumulates them while the assembler
// (package compile) lowers one item at a time.
package unit

import (
	"github.com/rune-rs/rune/ir"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/value"
)

// FunctionKind mirrors item.FunctionKind at the Unit layer so the VM's
// call protocol doesn't need to import package item's compiler-facing
// Meta types, only the Hash-keyed runtime facts it actually needs.
type FunctionKind byte

const (
	FunctionFree FunctionKind = iota
	FunctionAssociated
	FunctionInstance
)

// FunctionInfo is one entry of a Unit's function table: where its body
// starts, how many arguments (and, for a closure, captures) it expects.
type FunctionInfo struct {
	Offset   int
	Arity    int
	Captures int
	Kind     FunctionKind
	// IsAsync marks a function assembled from `async fn`/`async {}`: the
	// VM wraps its invocation in a value.Future rather than running it
	// to completion immediately, per spec.md §4.8.
	IsAsync bool
	// IsGenerator marks a function whose body contains `yield`: the VM
	// returns a value.Generator from Call instead of running to
	// completion, per spec.md §4.8.
	IsGenerator bool
	// Name is kept for diagnostics/backtraces; it is not part of the
	// function's identity (Hash is).
	Name string
}

// DebugInfo is auxiliary information the VM never needs for correct
// execution but diagnostics and backtraces do: the span each
// instruction was assembled from, label names, and local-slot comments.
type DebugInfo struct {
	Spans         []source.Span // parallel to Unit.Instructions
	Labels        map[uint32]string
	LocalComments map[int]string
}

// Unit is the sealed output of a build: immutable once returned by
// Builder.Seal, and safe to share (by pointer) between a single
// compilation and however many VMs execute it concurrently, per
// spec.md §5.
type Unit struct {
	Instructions []Inst
	Functions    map[item.Hash]FunctionInfo
	Constants    map[item.Hash]ir.ConstValue

	StaticStrings    []string
	StaticBytes      [][]byte
	StaticObjectKeys [][]string

	StructRtti  map[item.Hash]*value.Rtti
	VariantRtti map[item.Hash]*value.VariantRtti

	Debug DebugInfo

	// FormatVersion is the compiler's format identity, checked against
	// the running binary's own FormatVersion before a VM will execute
	// this Unit (see version.go).
	FormatVersion string
}

// FunctionByHash looks up a function entry by its item or instance
// hash.
func (u *Unit) FunctionByHash(h item.Hash) (FunctionInfo, bool) {
	fi, ok := u.Functions[h]
	return fi, ok
}

// ConstantByHash looks up a const item's pre-evaluated value.
func (u *Unit) ConstantByHash(h item.Hash) (ir.ConstValue, bool) {
	cv, ok := u.Constants[h]
	return cv, ok
}

// StaticString resolves a String instruction's Slot operand.
func (u *Unit) StaticString(slot uint32) string {
	if int(slot) >= len(u.StaticStrings) {
		return ""
	}
	return u.StaticStrings[slot]
}

// StaticBytesAt resolves a Bytes instruction's Slot operand.
func (u *Unit) StaticBytesAt(slot uint32) []byte {
	if int(slot) >= len(u.StaticBytes) {
		return nil
	}
	return u.StaticBytes[slot]
}

// StaticObjectKeysAt resolves an Object instruction's Slot operand.
func (u *Unit) StaticObjectKeysAt(slot uint32) []string {
	if int(slot) >= len(u.StaticObjectKeys) {
		return nil
	}
	return u.StaticObjectKeys[slot]
}

// SpanAt returns the source span the instruction at ip was assembled
// from, for diagnostics and runtime backtraces.
func (u *Unit) SpanAt(ip int) (source.Span, bool) {
	if ip < 0 || ip >= len(u.Debug.Spans) {
		return source.Span{}, false
	}
	return u.Debug.Spans[ip], true
}
