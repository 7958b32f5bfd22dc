package macro

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rune-rs/rune/lexer"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/token"
)

// Names of the built-in macros spec.md §4.4 lists (`template` is not
// among them: a backtick literal parses straight to ast.ExprTemplate
// and never reaches the macro registry at all).
const (
	NameFormat    = "format"
	NamePrintln   = "println"
	NamePrint     = "print"
	NameDbg       = "dbg"
	NameFile      = "file"
	NameLine      = "line"
	NameStringify = "stringify"
)

func registerBuiltins(e *Expander) {
	e.Register(NameFormat, builtinFormat)
	e.Register(NamePrintln, builtinPrintln)
	e.Register(NamePrint, builtinPrint)
	e.Register(NameDbg, builtinDbg)
	e.Register(NameFile, builtinFile)
	e.Register(NameLine, builtinLine)
	e.Register(NameStringify, builtinStringify)
}

// splitTopLevelArgs lexes text and splits it on commas that are not
// nested inside parens/brackets/braces, returning each argument's
// trimmed source text. An empty (all-whitespace) input yields no
// arguments.
func splitTopLevelArgs(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lex := lexer.New(source.Memory("<macro args>", text))
	var args []string
	depth := 0
	argStart := 0
	lastEnd := 0
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.EOF {
			break
		}
		switch tok.Kind {
		case token.LParen, token.LBracket, token.LBrace:
			depth++
		case token.RParen, token.RBracket, token.RBrace:
			depth--
		case token.Comma:
			if depth == 0 {
				args = append(args, strings.TrimSpace(text[argStart:lastEnd]))
				argStart = int(tok.Span.End)
			}
		}
		lastEnd = int(tok.Span.End)
	}
	if tail := strings.TrimSpace(text[argStart:]); tail != "" {
		args = append(args, tail)
	}
	return args, nil
}

// formatArgs splits a format!/println!/print! argument list into its
// leading format-string literal and the remaining value expressions'
// raw source text.
func formatArgs(input TokenStream) (fmtStr string, values []string, err error) {
	args, err := splitTopLevelArgs(input.Text)
	if err != nil {
		return "", nil, err
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("macro: expected a format string")
	}
	fmtStr, err = unquoteStringLiteral(args[0])
	if err != nil {
		return "", nil, err
	}
	return fmtStr, args[1:], nil
}

// unquoteStringLiteral strips and decodes a double-quoted Rune string
// literal's surface syntax, reusing lexer.ResolveString so escapes
// match the grammar exactly.
func unquoteStringLiteral(text string) (string, error) {
	src := source.Memory("<macro fmt string>", text)
	lex := lexer.New(src)
	tok, err := lex.Next()
	if err != nil {
		return "", err
	}
	if tok.Kind != token.LitString {
		return "", fmt.Errorf("macro: expected a string literal, found %s", tok.Kind)
	}
	return lexer.ResolveString(src, tok)
}

// renderTemplate builds backtick template-literal source text from a
// `{}`-style format string and the already-rendered source text of each
// positional argument, the same shape format!/println!/print!/dbg! all
// need. A literal `{{` or `}}` escapes to a single brace.
func renderTemplate(fmtStr string, values []string) (string, error) {
	var b strings.Builder
	b.WriteByte('`')
	next := 0
	for i := 0; i < len(fmtStr); i++ {
		switch fmtStr[i] {
		case '{':
			if i+1 < len(fmtStr) && fmtStr[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(fmtStr[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("macro: unterminated format placeholder")
			}
			if next >= len(values) {
				return "", fmt.Errorf("macro: not enough arguments for format string")
			}
			b.WriteString("${")
			b.WriteString(values[next])
			b.WriteByte('}')
			next++
			i += end
		case '}':
			if i+1 < len(fmtStr) && fmtStr[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("macro: unmatched '}' in format string")
		case '`':
			b.WriteString("\\`")
		case '\\':
			b.WriteString("\\\\")
		case '$':
			if i+1 < len(fmtStr) && fmtStr[i+1] == '{' {
				b.WriteString("\\$")
				continue
			}
			b.WriteByte('$')
		default:
			b.WriteByte(fmtStr[i])
		}
	}
	b.WriteByte('`')
	return b.String(), nil
}

func builtinFormat(ctx *Context, input TokenStream) (TokenStream, error) {
	fmtStr, values, err := formatArgs(input)
	if err != nil {
		return TokenStream{}, err
	}
	tmpl, err := renderTemplate(fmtStr, values)
	if err != nil {
		return TokenStream{}, err
	}
	return TokenStream{Text: tmpl}, nil
}

// printMacro is shared by println!/print!: both lower to a call against
// a host-provided function at the named global path, passing the
// formatted template as its sole argument.
func printMacro(path string) Func {
	return func(ctx *Context, input TokenStream) (TokenStream, error) {
		fmtStr, values, err := formatArgs(input)
		if err != nil {
			return TokenStream{}, err
		}
		tmpl, err := renderTemplate(fmtStr, values)
		if err != nil {
			return TokenStream{}, err
		}
		return TokenStream{Text: fmt.Sprintf("::%s(%s)", path, tmpl)}, nil
	}
}

func builtinPrintln(ctx *Context, input TokenStream) (TokenStream, error) {
	return printMacro("println")(ctx, input)
}

func builtinPrint(ctx *Context, input TokenStream) (TokenStream, error) {
	return printMacro("print")(ctx, input)
}

// builtinDbg mirrors dbg!(expr): evaluate expr once, report its source
// text and value to the host's debug sink, and yield the value back so
// dbg! can be wrapped around any subexpression transparently.
func builtinDbg(ctx *Context, input TokenStream) (TokenStream, error) {
	expr := strings.TrimSpace(input.Text)
	if expr == "" {
		return TokenStream{}, fmt.Errorf("macro: dbg! expects an expression")
	}
	tmp := ctx.Synthetic("dbg")
	header := fmt.Sprintf("%s:%d: %s = ", ctx.HomeName(), ctx.Line(), expr)
	text := fmt.Sprintf(
		"{ let %s = (%s); ::dbg(`%s${%s}`); %s }",
		tmp, expr, escapeTemplateLiteralText(header), tmp, tmp,
	)
	return TokenStream{Text: text}, nil
}

func escapeTemplateLiteralText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

func builtinFile(ctx *Context, input TokenStream) (TokenStream, error) {
	return TokenStream{Text: quoteString(ctx.HomeName())}, nil
}

func builtinLine(ctx *Context, input TokenStream) (TokenStream, error) {
	return TokenStream{Text: strconv.Itoa(ctx.Line())}, nil
}

func builtinStringify(ctx *Context, input TokenStream) (TokenStream, error) {
	return TokenStream{Text: quoteString(strings.TrimSpace(input.Text))}, nil
}
