package vm

import (
	"context"

	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// futureState is the payload a value.Future wraps: an async function
// invocation already running in the background, driven to completion
// by its own goroutine rather than by a host event loop reaching back
// in, per spec.md §4.8 ("host drives the future to completion
// externally") adapted the same way generatorState adapts frame-chain
// suspension — Go channels standing in for a saved VM state.
type futureState struct {
	done chan struct{}
	val  value.Value
	err  error
}

// spawnFuture runs fn on its own goroutine and returns a *futureState
// immediately; Await blocks on its done channel.
func spawnFuture(fn func() (value.Value, error)) *futureState {
	fs := &futureState{done: make(chan struct{})}
	go func() {
		fs.val, fs.err = fn()
		close(fs.done)
	}()
	return fs
}

// spawnAsync starts info's body (an `async fn`/`async {}` block,
// per unit.FunctionInfo.IsAsync) on a fresh sub-VM and returns a Future
// value without blocking the calling VM at all — compile/expr.go's
// compileAsync emits an ordinary OpCall for the async block, so this
// is reached from the same Call dispatch as any other function, keyed
// off FunctionInfo.IsAsync rather than a dedicated opcode.
func (m *VM) spawnAsync(ctx context.Context, info unit.FunctionInfo, args []value.Value) value.Value {
	sub := New(m.unit, m.rt)
	fs := spawnFuture(func() (value.Value, error) {
		// runBody, not callInfo: info.IsAsync is already true here, so
		// re-entering callInfo would just spawn another future instead of
		// executing the body this one is meant to drive.
		return sub.runBody(ctx, info, args)
	})
	return value.Future(fs)
}

// awaitFuture blocks the calling VM until v's future resolves (or ctx
// is cancelled), returning its resolved value.
func (m *VM) awaitFuture(ctx context.Context, v value.Value) (value.Value, error) {
	data, ok := v.FutureData()
	if !ok {
		return value.Value{}, newPanic("await on a non-future value")
	}
	fs, ok := data.(*futureState)
	if !ok {
		return value.Value{}, newPanic("malformed future value")
	}
	select {
	case <-fs.done:
		return fs.val, fs.err
	case <-ctx.Done():
		return value.Value{}, ctx.Err()
	}
}
