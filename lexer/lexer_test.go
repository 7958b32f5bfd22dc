package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/token"
)

func lexAll(t *testing.T, code string) ([]token.Token, *source.Source) {
	t.Helper()
	sources := source.NewSources()
	src := source.Memory("test", code)
	sources.Insert(src)
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks, src
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestMaximalMunch(t *testing.T) {
	toks, _ := lexAll(t, "a ..= b << c <<= d")
	got := kinds(toks)
	assert.Equal(t, []token.Kind{
		token.Ident, token.DotDotEq, token.Ident, token.LtLt, token.Ident,
		token.LtLtEq, token.Ident, token.EOF,
	}, got)
}

func TestKeywordsVsIdents(t *testing.T) {
	toks, _ := lexAll(t, "fn foo_bar if elseif")
	got := kinds(toks)
	assert.Equal(t, []token.Kind{token.KwFn, token.Ident, token.KwIf, token.Ident, token.EOF}, got)
}

func TestStringEscapes(t *testing.T) {
	src := source.Memory("test", `"a\nb\tc\x41\u{1F600}"`)
	source.NewSources().Insert(src)
	l := New(src)
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, token.LitString, tok.Kind)
	resolved, err := ResolveString(src, tok)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\tcA\U0001F600", resolved)
}

func TestByteLiteral(t *testing.T) {
	toks, _ := lexAll(t, `b'x' b"hi"`)
	got := kinds(toks)
	assert.Equal(t, []token.Kind{token.LitByte, token.LitByteString, token.EOF}, got)
}

func TestTemplateComponents(t *testing.T) {
	code := "`hello ${1 + 1}!`"
	toks, src := lexAll(t, code)
	require.Equal(t, token.LitTemplate, toks[0].Kind)
	comps, err := TemplateComponents(src, toks[0].Span)
	require.NoError(t, err)
	require.Len(t, comps, 3)
	assert.Equal(t, "hello ", comps[0].Literal)
	assert.True(t, comps[1].IsExpr)
	assert.Equal(t, "1 + 1", src.Slice(comps[1].Expr))
	assert.Equal(t, "!", comps[2].Literal)
}

func TestNumberKinds(t *testing.T) {
	toks, _ := lexAll(t, "1 1.5 0xFF 0b101 1e10")
	got := kinds(toks)
	assert.Equal(t, []token.Kind{
		token.LitInteger, token.LitFloat, token.LitInteger, token.LitInteger,
		token.LitFloat, token.EOF,
	}, got)
}

func TestUnterminatedStringIsError(t *testing.T) {
	src := source.Memory("test", `"abc`)
	source.NewSources().Insert(src)
	l := New(src)
	_, err := l.Next()
	require.Error(t, err)
}

func TestNestedBlockComment(t *testing.T) {
	toks, _ := lexAll(t, "/* outer /* inner */ still outer */ x")
	got := kinds(toks)
	assert.Equal(t, []token.Kind{token.Ident, token.EOF}, got)
}

func TestShebangConsumedOnLineOne(t *testing.T) {
	toks, _ := lexAll(t, "#!/usr/bin/env rune\nfn main() {}")
	require.Equal(t, token.Shebang, toks[0].Kind)
}
