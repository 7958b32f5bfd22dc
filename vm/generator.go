package vm

import (
	"context"
	"sync"

	"github.com/rune-rs/rune/unit"
	"github.com/rune-rs/rune/value"
)

// generatorState drives a suspended function body: spec.md §4.8 says
// "the VM saves frame chain into a Generator value... resumption
// re-installs the frame chain and resumes at ip." Go has no portable
// way to save and restore a call stack, so this is adapted the way the
// teacher's own concurrency primitives are (goroutines and channels,
// per its Interpreter.EvalWithContext/cancellation pattern) instead of
// by hand-unwinding frames: the body runs in its own goroutine, driven
// by a dedicated sub-VM, and OpYield/OpYieldUnit block that goroutine
// on a channel handshake rather than unwinding it. Each resume (a
// protocol::NEXT call) is one round trip of that handshake.
type generatorState struct {
	mu       sync.Mutex
	started  bool
	done     bool
	lastErr  error
	lastVal  value.Value
	sub      *VM
	info     unit.FunctionInfo
	args     []value.Value
	toBody   chan struct{}
	fromBody chan value.Value
	doneCh   chan genDone
}

type genDone struct {
	val value.Value
	err error
}

// newGeneratorState builds a lazy generator bound to a fresh sub-VM
// cloned from parent's unit, host function table, and memory budget —
// its own stack and frame chain, never touching parent's.
func newGeneratorState(parent *VM, info unit.FunctionInfo, args []value.Value) *generatorState {
	sub := New(parent.unit, parent.rt)
	return &generatorState{sub: sub, info: info, args: args}
}

func (g *generatorState) start(ctx context.Context) {
	g.toBody = make(chan struct{})
	g.fromBody = make(chan value.Value)
	g.doneCh = make(chan genDone, 1)
	g.sub.genCh = &generatorChannels{toBody: g.toBody, fromBody: g.fromBody}
	go func() {
		// runBody, not callInfo: info.IsGenerator is already true here (it's
		// why this generatorState exists), so re-entering callInfo would
		// just wrap it in another generator instead of executing its body.
		val, err := g.sub.runBody(ctx, g.info, g.args)
		g.doneCh <- genDone{val: val, err: err}
	}()
}

// resume drives the generator one step: starting its goroutine on the
// first call, or unblocking its pending Yield on every call after.
func (g *generatorState) resume(ctx context.Context) (value.Value, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done {
		return g.lastVal, true, g.lastErr
	}
	if !g.started {
		g.started = true
		g.start(ctx)
	} else {
		select {
		case g.toBody <- struct{}{}:
		case <-ctx.Done():
			return value.Value{}, true, ctx.Err()
		}
	}

	select {
	case v := <-g.fromBody:
		return v, false, nil
	case d := <-g.doneCh:
		g.done = true
		g.lastVal, g.lastErr = d.val, d.err
		return d.val, true, d.err
	case <-ctx.Done():
		g.done = true
		g.lastErr = ctx.Err()
		return value.Value{}, true, ctx.Err()
	}
}

// generatorChannels is installed on a sub-VM running as a generator's
// body; OpYield/OpYieldUnit use it to suspend.
type generatorChannels struct {
	toBody   chan struct{}
	fromBody chan value.Value
}

// yield hands val to whoever is resuming this generator and blocks
// until the next resume call, returning Unit — this VM's next() takes
// no resume argument, so every suspension point always wakes back up
// with Unit on the stack.
func (c *generatorChannels) yield(val value.Value) value.Value {
	c.fromBody <- val
	<-c.toBody
	return value.Unit()
}
