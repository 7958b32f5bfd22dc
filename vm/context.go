package vm

import (
	"context"

	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/value"
)

// NativeFunc is a host (Go) function reachable from Rune code. It
// receives the active call's context (for cancellation and the
// installed memory budget), the VM instance it was called from (to
// recurse into protocol dispatch), and the argument slice the call
// site supplied.
type NativeFunc func(ctx context.Context, m *VM, args []value.Value) (value.Value, error)

// RuntimeContext is the embedding host's function table: the second
// place Call/CallInstance/CallFn look a hash up after a Unit's own
// function table comes back empty, per spec.md §4.8's Call protocol.
// A host builds one of these and hands it to New; this package also
// seeds a default one (see prelude.go) with the iteration protocol
// every for-loop needs.
type RuntimeContext struct {
	functions map[item.Hash]NativeFunc
}

// NewRuntimeContext returns an empty host function table.
func NewRuntimeContext() *RuntimeContext {
	return &RuntimeContext{functions: map[item.Hash]NativeFunc{}}
}

// Register installs fn under hash, overwriting any previous
// registration — the same "last install wins" rule package unit's
// Builder.RegisterFunction applies to unit-local functions.
func (c *RuntimeContext) Register(hash item.Hash, fn NativeFunc) {
	c.functions[hash] = fn
}

// Lookup resolves hash against the host's function table.
func (c *RuntimeContext) Lookup(hash item.Hash) (NativeFunc, bool) {
	fn, ok := c.functions[hash]
	return fn, ok
}

// Hashes returns the set a compile.Compiler needs as its hostHashes
// argument so Builder.Seal treats every Call/LoadFn resolving here as
// linked, not missing.
func (c *RuntimeContext) Hashes() map[item.Hash]bool {
	out := make(map[item.Hash]bool, len(c.functions))
	for h := range c.functions {
		out[h] = true
	}
	return out
}
