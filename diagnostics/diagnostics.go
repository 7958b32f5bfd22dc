// Package diagnostics collects compile-time errors and warnings and
// renders them with source snippets and carets, per spec.md §7's
// "Diagnostics::emit ... in the style of a modern compiler."
//
// Grounded on the teacher's REPL error handling
// (interp/interp.go/program.go's scanner.ErrorList accumulation and
// writer-based printing via fmt.Fprintln(errs, ...)): a Bag plays the
// same "accumulate everything, print it all at once" role that
// scanner.ErrorList plays for the teacher's parse errors, generalized
// from parse-only to parse+link+runtime-adjacent diagnostics.
package diagnostics

import (
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/rune-rs/rune/source"
)

// Severity distinguishes a Diagnostic that fails the build from one that
// merely gets reported.
type Severity byte

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Label is a secondary span attached to a Diagnostic, e.g. "previous
// definition here" alongside a DuplicateFunction error's primary span.
type Label struct {
	Span    source.Span
	Message string
}

// Diagnostic is one reported error or warning.
type Diagnostic struct {
	Severity Severity
	Span     source.Span
	Message  string
	Labels   []Label
}

// Bag accumulates diagnostics across an entire build, per spec.md §7's
// propagation policy: "Parse/compile errors never panic the compiler;
// they accumulate into Diagnostics ... the build function returns the
// last error but emits all."
type Bag struct {
	diags []Diagnostic
}

// NewBag returns an empty Bag.
func NewBag() *Bag { return &Bag{} }

// Error records an error-severity diagnostic.
func (b *Bag) Error(span source.Span, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{Severity: SeverityError, Span: span, Message: fmt.Sprintf(format, args...)})
}

// ErrorWithLabels records an error with secondary spans.
func (b *Bag) ErrorWithLabels(span source.Span, labels []Label, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{Severity: SeverityError, Span: span, Message: fmt.Sprintf(format, args...), Labels: labels})
}

// Warning records a warning-severity diagnostic.
func (b *Bag) Warning(span source.Span, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{Severity: SeverityWarning, Span: span, Message: fmt.Sprintf(format, args...)})
}

// Diagnostics returns every recorded diagnostic in report order.
func (b *Bag) Diagnostics() []Diagnostic { return b.diags }

// HasError reports whether any recorded diagnostic is error-severity; a
// build is only successful when this is false (spec.md §7).
func (b *Bag) HasError() bool {
	for _, d := range b.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err combines every error-severity diagnostic into one error via
// multierr, so a caller that wants a plain `error` return (rather than
// walking the Bag) gets one that still Is/As-unwraps to each individual
// cause.
func (b *Bag) Err() error {
	var combined error
	for _, d := range b.diags {
		if d.Severity != SeverityError {
			continue
		}
		combined = multierr.Append(combined, fmt.Errorf("%s", d.Message))
	}
	return combined
}

// Emit renders every diagnostic to w with a source snippet, a caret
// under the offending span, and any labelled secondary spans, in the
// order they were recorded.
func (b *Bag) Emit(w io.Writer, sources *source.Sources) {
	for _, d := range b.diags {
		emitOne(w, sources, d)
	}
}

func emitOne(w io.Writer, sources *source.Sources, d Diagnostic) {
	src := sources.Get(d.Span.Source)
	if src == nil {
		fmt.Fprintf(w, "%s: %s\n", d.Severity, d.Message)
		return
	}
	line, col := src.Position(d.Span.Start)
	fmt.Fprintf(w, "%s: %s\n", d.Severity, d.Message)
	fmt.Fprintf(w, "  --> %s:%d:%d\n", src.Name(), line, col)
	emitSnippet(w, src, d.Span)
	for _, lbl := range d.Labels {
		lline, lcol := src.Position(lbl.Span.Start)
		fmt.Fprintf(w, "  note: %s (%s:%d:%d)\n", lbl.Message, src.Name(), lline, lcol)
	}
}

func emitSnippet(w io.Writer, src *source.Source, span source.Span) {
	lineStart := span.Start
	for lineStart > 0 && src.Content()[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := span.Start
	content := src.Content()
	for int(lineEnd) < len(content) && content[lineEnd] != '\n' {
		lineEnd++
	}
	fmt.Fprintf(w, "  | %s\n", content[lineStart:lineEnd])

	width := span.End - span.Start
	if width == 0 {
		width = 1
	}
	caretCol := span.Start - lineStart
	fmt.Fprintf(w, "  | %s%s\n", spaces(int(caretCol)), carets(int(width)))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

func carets(n int) string {
	if n <= 0 {
		n = 1
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = '^'
	}
	return string(b)
}
