package compile

import (
	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/unit"
)

// blockScope is one lexical block's bindings, layered so nested blocks
// can shadow outer names and are unwound (their locals Dropped) when
// the block ends, per spec.md §4.6's "scope cleaning."
type blockScope struct {
	names map[string]int // name -> stack slot, relative to the function's base
	base  int            // depth (slot count) on entry to this block
}

// loopCtx tracks one enclosing loop so break/continue know how many
// locals to drop on the way out and which labels to jump to.
type loopCtx struct {
	name          string // loop label, "" if unlabelled
	breakLabel    unit.Label
	continueLabel unit.Label
	depth         int  // stack depth (locals only) at the loop's entry, for scope cleaning
	isLoop        bool // true for `loop` (break-with-value allowed), false for while/for
	resultSlot    int  // slot a `loop`'s break value is written to, -1 if none
}

// funcCompiler assembles one function body (or closure, async block, or
// const fn) into the shared Compiler's builder. depth tracks the number
// of values currently pushed above the frame's base (locals plus live
// temporaries), so Copy/Move/Drop instructions can address a name's
// slot without a separate runtime symbol table.
type funcCompiler struct {
	*Compiler
	fromID item.ID
	scopes []blockScope
	loops  []loopCtx
	depth  int
}
