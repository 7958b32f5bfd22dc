package unit

import (
	"github.com/rune-rs/rune/ir"
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/value"
)

// Label names a jump target that may be placed after it is first
// referenced; the Builder records every reference and patches them in
// one pass once the label's final position is known, per spec.md
// §4.6's "Label fixup: labels are created lazily and resolved when the
// assembler finalizes."
type Label uint32

// Builder accumulates the output of assembling every item in a build:
// one Builder is shared across all functions, closures, and const
// expressions the assembler (package compile) lowers, then sealed once
// into an immutable Unit.
//
// Grounded on the teacher's resizeFrame/frame.data []reflect.Value
// sizing logic (interp/value.go) as the model for "grow a table,
// remember the index you handed out" — generalized from a single
// frame's locals to the builder's four interning tables (strings,
// bytes, object-key lists, and the instruction stream itself).
type Builder struct {
	instructions []Inst
	spans        []source.Span

	functions map[item.Hash]FunctionInfo
	constants map[item.Hash]ir.ConstValue

	strings    []string
	stringIdx  map[string]uint32
	bytesList  [][]byte
	bytesIdx   map[string]uint32
	objectKeys []([]string)
	objectIdx  map[string]uint32

	structRtti  map[item.Hash]*value.Rtti
	variantRtti map[item.Hash]*value.VariantRtti

	nextLabel   uint32
	labelAt     map[uint32]int
	labelSites  map[uint32][]int
	labelNames  map[uint32]string

	localComments map[int]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		functions:     map[item.Hash]FunctionInfo{},
		constants:     map[item.Hash]ir.ConstValue{},
		stringIdx:     map[string]uint32{},
		bytesIdx:      map[string]uint32{},
		objectIdx:     map[string]uint32{},
		structRtti:    map[item.Hash]*value.Rtti{},
		variantRtti:   map[item.Hash]*value.VariantRtti{},
		labelAt:       map[uint32]int{},
		labelSites:    map[uint32][]int{},
		labelNames:    map[uint32]string{},
		localComments: map[int]string{},
	}
}

// Offset is the index the next Emit call will use; the assembler
// records this as a function's entry point before assembling its body.
func (b *Builder) Offset() int { return len(b.instructions) }

// NewLabel allocates a label, unresolved until PlaceLabel is called on
// it. name is purely for debug_info.
func (b *Builder) NewLabel(name string) Label {
	id := b.nextLabel
	b.nextLabel++
	b.labelNames[id] = name
	return Label(id)
}

// PlaceLabel marks the current emit position as label's target.
func (b *Builder) PlaceLabel(l Label) {
	b.labelAt[uint32(l)] = len(b.instructions)
}

// Emit appends inst (recorded against span for diagnostics) and returns
// its index.
func (b *Builder) Emit(inst Inst, span source.Span) int {
	idx := len(b.instructions)
	b.instructions = append(b.instructions, inst)
	b.spans = append(b.spans, span)
	return idx
}

// EmitJump appends a control-flow instruction (Jump/JumpIf/JumpIfNot/
// JumpIfBranch) targeting l, whether or not l has been placed yet; the
// Target field is patched in by Seal's fixup pass.
func (b *Builder) EmitJump(op Op, l Label, span source.Span) int {
	inst := Inst{Op: op, Target: -1}
	idx := b.Emit(inst, span)
	b.labelSites[uint32(l)] = append(b.labelSites[uint32(l)], idx)
	return idx
}

// SetLocalComment attaches a debug_info comment to the instruction at
// idx (typically a Copy/Move naming the local slot it loads).
func (b *Builder) SetLocalComment(idx int, comment string) {
	b.localComments[idx] = comment
}

// InternString returns s's static-string slot, interning it if new.
func (b *Builder) InternString(s string) uint32 {
	if slot, ok := b.stringIdx[s]; ok {
		return slot
	}
	slot := uint32(len(b.strings))
	b.strings = append(b.strings, s)
	b.stringIdx[s] = slot
	return slot
}

// InternBytes returns bs's static-bytes slot, interning it if new.
func (b *Builder) InternBytes(bs []byte) uint32 {
	key := string(bs)
	if slot, ok := b.bytesIdx[key]; ok {
		return slot
	}
	slot := uint32(len(b.bytesList))
	b.bytesList = append(b.bytesList, bs)
	b.bytesIdx[key] = slot
	return slot
}

// InternObjectKeys returns keys' static object-key-list slot, interning
// it if new. Order matters (it's the layout Object/Struct instructions
// read positionally), so the intern key includes position.
func (b *Builder) InternObjectKeys(keys []string) uint32 {
	key := objectKeysKey(keys)
	if slot, ok := b.objectIdx[key]; ok {
		return slot
	}
	slot := uint32(len(b.objectKeys))
	b.objectKeys = append(b.objectKeys, keys)
	b.objectIdx[key] = slot
	return slot
}

func objectKeysKey(keys []string) string {
	out := ""
	for _, k := range keys {
		out += k + "\x00"
	}
	return out
}

// RegisterFunction adds hash to the function table. A second
// registration of the same hash is a DuplicateFunction error unless
// allowReexport is set (an explicit re-export of the same underlying
// function under a different path resolves to the same hash and entry).
func (b *Builder) RegisterFunction(hash item.Hash, info FunctionInfo, allowReexport bool) error {
	if existing, ok := b.functions[hash]; ok {
		if allowReexport && existing.Offset == info.Offset {
			return nil
		}
		return &LinkerError{Kind: DuplicateFunction, Hash: hash}
	}
	b.functions[hash] = info
	return nil
}

// RegisterConst records a const item's pre-evaluated value.
func (b *Builder) RegisterConst(hash item.Hash, v ir.ConstValue) {
	b.constants[hash] = v
}

// Constant looks up a previously registered const item's value, so the
// assembler can inline it at every reference site without re-running
// the const evaluator.
func (b *Builder) Constant(hash item.Hash) (ir.ConstValue, bool) {
	v, ok := b.constants[hash]
	return v, ok
}

// RegisterStructRtti records a struct type's runtime type info.
func (b *Builder) RegisterStructRtti(hash item.Hash, rtti *value.Rtti) {
	b.structRtti[hash] = rtti
}

// RegisterVariantRtti records an enum variant's runtime type info.
func (b *Builder) RegisterVariantRtti(hash item.Hash, rtti *value.VariantRtti) {
	b.variantRtti[hash] = rtti
}

func (b *Builder) fixupLabels() error {
	for labelID, sites := range b.labelSites {
		target, ok := b.labelAt[labelID]
		if !ok {
			return &LinkerError{Kind: MissingFunction} // unresolved label: assembler bug
		}
		for _, idx := range sites {
			b.instructions[idx].Target = int32(target)
		}
	}
	return nil
}

// Seal verifies every Call/LoadFn hash resolves to either a unit-local
// function or a hash present in hostHashes (the link-time Context's
// function table), patches every label reference, and returns the
// immutable Unit. No partial Unit survives a failed Seal.
func (b *Builder) Seal(hostHashes map[item.Hash]bool) (*Unit, error) {
	if err := b.fixupLabels(); err != nil {
		return nil, err
	}
	for _, inst := range b.instructions {
		if inst.Op != OpCall && inst.Op != OpLoadFn {
			continue
		}
		if _, ok := b.functions[inst.Hash]; ok {
			continue
		}
		if hostHashes[inst.Hash] {
			continue
		}
		return nil, &LinkerError{Kind: MissingFunction, Hash: inst.Hash}
	}

	return &Unit{
		Instructions:     append([]Inst(nil), b.instructions...),
		Functions:        b.functions,
		Constants:        b.constants,
		StaticStrings:    append([]string(nil), b.strings...),
		StaticBytes:      append([][]byte(nil), b.bytesList...),
		StaticObjectKeys: append([][]string(nil), b.objectKeys...),
		StructRtti:       b.structRtti,
		VariantRtti:      b.variantRtti,
		Debug: DebugInfo{
			Spans:         append([]source.Span(nil), b.spans...),
			Labels:        b.labelNames,
			LocalComments: b.localComments,
		},
		FormatVersion: CurrentFormatVersion,
	}, nil
}
