// Package vm implements Rune's bytecode interpreter: the dispatch loop
// over unit.Inst, the Call/CallInstance/CallFn/LoadFn/Return protocol,
// instance-function dispatch via item.Mix, generators and futures, and
// the borrow/memory-budget discipline spec.md §4.8 and §5 describe.
//
// Grounded on the frame-array/activate-code dispatch shape of
// _examples/other_examples/441348bf_deepnoodle-ai-risor__vm-vm.go.go
// (register-style ip/stack/frame loop, periodic context.Done() check
// every N steps) and on the teacher's frame/newFrame/clone (atomic
// run-id, ancestor chain) for the cooperative-cancellation precedent —
// interp/interp.go. Unlike either, this VM uses growable slices instead
// of fixed-capacity arrays: the teacher repo and most of the pack favor
// idiomatic, unbounded Go slices over Risor's pre-sized buffers.
package vm

import (
	"fmt"

	"github.com/rune-rs/rune/item"
)

// ErrorKind enumerates spec.md §7's VmError taxonomy: the third and
// final layer of Rune's error model, raised only once a Unit has
// already linked successfully (package unit's LinkerError) against
// code that already compiled (package diagnostics' CompileError).
type ErrorKind int

const (
	Panic ErrorKind = iota
	BadArgument
	BadArgumentCount
	MissingFunction
	MissingInstanceFunction
	ExpectedType
	MissingField
	MissingIndex
	MissingVariant
	UnsupportedBinaryOperation
	UnsupportedUnaryOperation
	IterationError
	Overflow
	Underflow
	DivideByZero
	AccessError
	ValueTaken
	Yielded
	Awaited
)

func (k ErrorKind) String() string {
	switch k {
	case Panic:
		return "Panic"
	case BadArgument:
		return "BadArgument"
	case BadArgumentCount:
		return "BadArgumentCount"
	case MissingFunction:
		return "MissingFunction"
	case MissingInstanceFunction:
		return "MissingInstanceFunction"
	case ExpectedType:
		return "ExpectedType"
	case MissingField:
		return "MissingField"
	case MissingIndex:
		return "MissingIndex"
	case MissingVariant:
		return "MissingVariant"
	case UnsupportedBinaryOperation:
		return "UnsupportedBinaryOperation"
	case UnsupportedUnaryOperation:
		return "UnsupportedUnaryOperation"
	case IterationError:
		return "IterationError"
	case Overflow:
		return "Overflow"
	case Underflow:
		return "Underflow"
	case DivideByZero:
		return "DivideByZero"
	case AccessError:
		return "AccessError"
	case ValueTaken:
		return "ValueTaken"
	case Yielded:
		return "Yielded"
	case Awaited:
		return "Awaited"
	default:
		return "Unknown"
	}
}

// Error is a runtime fault raised while executing a Unit. It never
// unwinds via a Go panic; every dispatch-loop case returns one
// explicitly, the same discipline the teacher's frame/vm layer uses
// for interpretation errors rather than letting a reflect panic escape.
type Error struct {
	Kind     ErrorKind
	Reason   string
	Argument int
	Expected string
	Actual   string
	Hash     item.Hash
	Target   string
	Field    string
}

func (e *Error) Error() string {
	switch e.Kind {
	case Panic:
		return fmt.Sprintf("panic: %s", e.Reason)
	case BadArgument:
		return fmt.Sprintf("bad argument #%d: %s", e.Argument, e.Reason)
	case BadArgumentCount:
		return fmt.Sprintf("expected %s arguments, got %s", e.Expected, e.Actual)
	case MissingFunction:
		return fmt.Sprintf("missing function (hash %#x)", uint64(e.Hash))
	case MissingInstanceFunction:
		return fmt.Sprintf("missing instance function (hash %#x) on type %#x", uint64(e.Hash), uint64(e.Argument))
	case ExpectedType:
		return fmt.Sprintf("expected type %s, found %s", e.Expected, e.Actual)
	case MissingField:
		return fmt.Sprintf("missing field %q on %s", e.Field, e.Target)
	case MissingIndex:
		return "missing index"
	case MissingVariant:
		return fmt.Sprintf("missing variant (hash %#x)", uint64(e.Hash))
	case UnsupportedBinaryOperation:
		return fmt.Sprintf("unsupported binary operation: %s", e.Reason)
	case UnsupportedUnaryOperation:
		return fmt.Sprintf("unsupported unary operation: %s", e.Reason)
	case IterationError:
		return fmt.Sprintf("iteration error: %s", e.Reason)
	case Overflow:
		return "arithmetic overflow"
	case Underflow:
		return "arithmetic underflow"
	case DivideByZero:
		return "division by zero"
	case AccessError:
		return "value already borrowed (AccessError)"
	case ValueTaken:
		return "value already taken"
	case Yielded:
		return "value suspended in a yield"
	case Awaited:
		return "value suspended in an await"
	default:
		return e.Reason
	}
}

func newPanic(format string, args ...any) *Error {
	return &Error{Kind: Panic, Reason: fmt.Sprintf(format, args...)}
}

func accessErr(err error) *Error {
	if err.Error() == "value: value taken" {
		return &Error{Kind: ValueTaken, Reason: err.Error()}
	}
	return &Error{Kind: AccessError, Reason: err.Error()}
}
