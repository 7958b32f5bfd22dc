package compile

import (
	"fmt"

	"github.com/rune-rs/rune/item"
	"github.com/rune-rs/rune/source"
)

// ErrorKind enumerates the assembler's compile-time failure modes, per
// spec.md §7's CompileError taxonomy. MissingLabel, UnsupportedSelf,
// LitObjectMissingField, MissingLocal, NotVisible, NestedTest,
// NestedBench and UnsupportedAsyncBlock are declared but never raised
// by this assembler; the parser and query layers define their own
// error kinds.
type ErrorKind string

const (
	ExpectedConstExpr      ErrorKind = "ExpectedConstExpr"
	BreakOutsideOfLoop      ErrorKind = "BreakOutsideOfLoop"
	ContinueOutsideOfLoop   ErrorKind = "ContinueOutsideOfLoop"
	MissingLabel            ErrorKind = "MissingLabel"
	UnsupportedSelf         ErrorKind = "UnsupportedSelf"
	LitObjectMissingField   ErrorKind = "LitObjectMissingField"
	UnsupportedArgCount     ErrorKind = "UnsupportedArgumentCount"
	MissingItem             ErrorKind = "MissingItem"
	MissingLocal            ErrorKind = "MissingLocal"
	NotVisible              ErrorKind = "NotVisible"
	NestedTest              ErrorKind = "NestedTest"
	NestedBench             ErrorKind = "NestedBench"
	UnsupportedAsyncBlock   ErrorKind = "UnsupportedAsyncBlock"
	UnsupportedExpr         ErrorKind = "UnsupportedExpr"
	UnsupportedPattern      ErrorKind = "UnsupportedPattern"
)

// Error is one assembler diagnostic: a span plus a structured kind, per
// spec.md §4.6's "assembly errors surface through CompileError with a
// Span and a structured ErrorKind."
type Error struct {
	Span source.Span
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return string(e.Kind)
}

// errorAt records a compile error as a rendered diagnostic (for
// Diagnostics().Emit); Build reports failure by checking
// Diagnostics().HasError() rather than threading this Error value back
// up the call stack, matching spec.md §7's "assembly errors ... never
// panic the compiler; they accumulate into Diagnostics."
func (c *Compiler) errorAt(span source.Span, kind ErrorKind, msg string) {
	c.diags.Error(span, "%s: %s", kind, msg)
}

// missingLocal builds the diagnostic for a name that resolves to
// neither a local binding nor a path item.
func missingLocal(span source.Span, name string) *Error {
	return &Error{Span: span, Kind: MissingLocal, Msg: name}
}

// missingItem builds the diagnostic for a path that names nothing
// reachable from the current item.
func missingItem(span source.Span, it item.Item) *Error {
	return &Error{Span: span, Kind: MissingItem, Msg: it.String()}
}
