// Package macro implements name!(...) and name!{...} expansion: every
// macro is a plain Go function taking a Context and a TokenStream and
// returning a TokenStream, run before the const IR evaluator and the
// assembler ever see the call, per spec.md §4.4. A macro's output is
// re-lexed and re-parsed at the AST position its call occupied
// (expression or item), the same technique parser.parseSubExpr already
// uses for `${...}` template interpolation — a macro body is just
// Rune source text synthesized on the fly.
//
// Grounded on the teacher's flat builtin-function table
// (interp.initUniverse's bltnAppend..bltnRecover constants plus a
// name->implementation map), generalized from a closed set of Go
// builtins to a registry a host can extend with its own macros.
package macro

import (
	"fmt"

	"github.com/rune-rs/rune/source"
)

// TokenStream is the token sequence a macro consumes or produces,
// represented as the Rune source text those tokens cover. Keeping it a
// text span (rather than a separate token-tree type) means expansion
// output flows through the same lexer/parser the rest of the front end
// already uses.
type TokenStream struct {
	Text string
}

func (t TokenStream) String() string { return t.Text }

// Func is a macro implementation: a host function from invocation
// context and input tokens to replacement tokens.
type Func func(ctx *Context, input TokenStream) (TokenStream, error)

// Context is passed to every macro invocation. It carries the
// invocation's span (for diagnostics and for file!/line!) and a
// per-expansion-pass counter so macros can mint identifiers that can't
// collide with anything hand-written in the expanding source.
type Context struct {
	// Span covers the whole call, `name!(...)` or `name!{...}`,
	// including the name and delimiters.
	Span source.Span

	// Name is the macro's own name, as written at the call site.
	Name string

	home   *source.Source
	gensym *int
}

// HomeName returns the name of the source the macro was invoked from,
// the value file!() resolves to.
func (c *Context) HomeName() string { return c.home.Name() }

// Line returns the 1-based source line the macro call starts on, the
// value line!() resolves to.
func (c *Context) Line() int {
	line, _ := c.home.Position(c.Span.Start)
	return line
}

// Synthetic returns a fresh identifier prefixed with prefix, unique
// within the expansion pass this context belongs to. Used by macros
// that need to bind an intermediate value without risking a collision
// with a name in the surrounding, hand-written source (dbg!'s captured
// expression value, for instance).
func (c *Context) Synthetic(prefix string) string {
	*c.gensym++
	return fmt.Sprintf("__%s_%d", prefix, *c.gensym)
}

// quoteString renders s as a double-quoted Rune string literal.
func quoteString(s string) string {
	var b []byte
	b = append(b, '"')
	for _, r := range s {
		switch r {
		case '"':
			b = append(b, '\\', '"')
		case '\\':
			b = append(b, '\\', '\\')
		case '\n':
			b = append(b, '\\', 'n')
		case '\r':
			b = append(b, '\\', 'r')
		case '\t':
			b = append(b, '\\', 't')
		default:
			b = append(b, string(r)...)
		}
	}
	b = append(b, '"')
	return string(b)
}
