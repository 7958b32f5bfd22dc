// Package limit implements the scoped allocation/instruction budget guard
// shared by the const IR evaluator and the VM: a caller installs a budget
// on a context.Context, every allocation or instruction step decrements
// it, and exceeding zero reports ErrExceeded without otherwise touching
// control flow.
//
// Grounded on original_source/crates/rune-alloc/src/limit.rs's scoped,
// restore-on-drop thread-local budget, adapted to Go's lack of real
// thread-locals by riding context.Context the way the teacher's
// Interpreter.EvalWithContext threads a context for cancellation
// (interp/interp.go) — installing a budget returns a child context, and
// the parent's budget (or its absence) is restored simply by the caller
// going back to using the parent context once the scope ends.
package limit

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrExceeded is returned by Take once a budget's remaining count would
// go negative.
var ErrExceeded = errors.New("limit: budget exceeded")

// Limit is a scoped counter. The zero value is not useful; construct one
// with New. A nil *Limit is treated as "unbounded" throughout this
// package so callers that never install a budget pay no cost.
type Limit struct {
	remaining int64
}

// New returns a budget that allows n more units to be Taken before
// ErrExceeded.
func New(n int64) *Limit {
	return &Limit{remaining: n}
}

// Take decrements the budget by n, returning ErrExceeded if doing so
// would take it below zero. The decrement happens either way: a caller
// that ignores the error and keeps going is charged for the overage,
// matching the original's "budget already spent" semantics on a single
// offending allocation.
func (l *Limit) Take(n int64) error {
	if l == nil {
		return nil
	}
	if atomic.AddInt64(&l.remaining, -n) < 0 {
		return ErrExceeded
	}
	return nil
}

// Remaining reports the budget left, or -1 for an unbounded (nil) limit.
func (l *Limit) Remaining() int64 {
	if l == nil {
		return -1
	}
	return atomic.LoadInt64(&l.remaining)
}

type contextKey struct{}

// With returns a child context carrying a fresh budget of n units. The
// parent ctx is untouched, so letting the child context fall out of
// scope is all "restoring the prior budget" takes — there is no global
// mutable state to undo.
func With(ctx context.Context, n int64) (context.Context, *Limit) {
	l := New(n)
	return context.WithValue(ctx, contextKey{}, l), l
}

// From returns the budget installed on ctx by With, or nil if none was
// installed (meaning callers should treat the budget as unbounded).
func From(ctx context.Context) *Limit {
	l, _ := ctx.Value(contextKey{}).(*Limit)
	return l
}

// Take is a convenience that looks up ctx's budget and charges it n
// units, doing nothing when ctx carries no budget.
func Take(ctx context.Context, n int64) error {
	return From(ctx).Take(n)
}
