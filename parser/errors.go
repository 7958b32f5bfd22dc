// Package parser builds an AST from a token stream by recursive descent
// with Pratt-style expression parsing, per spec.md §4.2.
package parser

import (
	"fmt"

	"github.com/rune-rs/rune/source"
)

// ErrorKind names one of the parse-error categories spec.md §4.2 and §7
// enumerate.
type ErrorKind string

const (
	ExpectedDecl         ErrorKind = "expected a declaration"
	ExpectedBlock        ErrorKind = "expected a block"
	UnsupportedCloseBrace ErrorKind = "unsupported close brace"
	ExpectedExpr         ErrorKind = "expected an expression"
	ExpectedPattern      ErrorKind = "expected a pattern"
	ExpectedToken        ErrorKind = "expected a specific token"
	UnexpectedToken      ErrorKind = "unexpected token"
	RecursionLimit       ErrorKind = "recursion limit exceeded"
)

// Error is a single parse error with its primary span.
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
