package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/parser"
	"github.com/rune-rs/rune/source"
)

func expandCode(t *testing.T, code string) *ast.File {
	t.Helper()
	src := source.Memory("test", code)
	file, err := parser.ParseFile(src)
	require.NoError(t, err)
	require.NoError(t, NewExpander().ExpandFile(src, file))
	return file
}

func TestStringifyExpandsToSourceText(t *testing.T) {
	file := expandCode(t, `fn f() { stringify!(1 + 2) }`)
	fn := file.Items[0].(*ast.FnItem)
	lit, ok := fn.Body.Tail.(*ast.ExprLit)
	require.True(t, ok)
	assert.Equal(t, ast.LitString, lit.Kind)
	assert.Equal(t, "1 + 2", lit.StringValue)
}

func TestFileAndLineExpandToLiterals(t *testing.T) {
	file := expandCode(t, "fn f() {\n  file!()\n}")
	fn := file.Items[0].(*ast.FnItem)
	lit := fn.Body.Tail.(*ast.ExprLit)
	assert.Equal(t, ast.LitString, lit.Kind)
	assert.Equal(t, "test", lit.StringValue)

	file = expandCode(t, "fn f() {\n  line!()\n}")
	fn = file.Items[0].(*ast.FnItem)
	lit = fn.Body.Tail.(*ast.ExprLit)
	assert.Equal(t, ast.LitInteger, lit.Kind)
	assert.Equal(t, int64(2), lit.IntValue)
}

func TestFormatExpandsToTemplate(t *testing.T) {
	file := expandCode(t, `fn f(x) { format!("x = {}", x) }`)
	fn := file.Items[0].(*ast.FnItem)
	tmpl, ok := fn.Body.Tail.(*ast.ExprTemplate)
	require.True(t, ok)
	require.Len(t, tmpl.Literals, 1)
	assert.Equal(t, "x = ", tmpl.Literals[0])
	require.Len(t, tmpl.Exprs, 1)
	path, ok := tmpl.Exprs[0].(*ast.ExprPath)
	require.True(t, ok)
	assert.Equal(t, "x", path.Path.Segments[0].Name)
}

func TestPrintlnExpandsToHostCall(t *testing.T) {
	file := expandCode(t, `fn f() { println!("hi") }`)
	fn := file.Items[0].(*ast.FnItem)
	call, ok := fn.Body.Tail.(*ast.ExprCall)
	require.True(t, ok)
	callee, ok := call.Callee.(*ast.ExprPath)
	require.True(t, ok)
	assert.True(t, callee.Path.Global)
	assert.Equal(t, "println", callee.Path.Segments[0].Name)
	require.Len(t, call.Args, 1)
	_, ok = call.Args[0].(*ast.ExprTemplate)
	assert.True(t, ok)
}

func TestDbgExpandsToBlockCapturingValue(t *testing.T) {
	file := expandCode(t, `fn f(x) { dbg!(x + 1) }`)
	fn := file.Items[0].(*ast.FnItem)
	block, ok := fn.Body.Tail.(*ast.ExprBlock)
	require.True(t, ok)
	require.Len(t, block.Stmts, 2)
	let, ok := block.Stmts[0].(*ast.StmtLet)
	require.True(t, ok)
	_, ok = let.Value.(*ast.ExprGroup)
	assert.True(t, ok)
	bind, ok := let.Pattern.(*ast.PatBind)
	require.True(t, ok)
	tail, ok := block.Tail.(*ast.ExprPath)
	require.True(t, ok)
	assert.Equal(t, bind.Name.Name, tail.Path.Segments[0].Name)
}

func TestItemPositionMacroSplicesItems(t *testing.T) {
	// A macro invoked in item position that expands to more than one
	// item must splice all of them into the enclosing item list.
	exp := NewExpander()
	exp.Register("two_fns", func(ctx *Context, input TokenStream) (TokenStream, error) {
		return TokenStream{Text: "fn a() { 1 }\nfn b() { 2 }"}, nil
	})
	src := source.Memory("test", `two_fns!{}`)
	file, err := parser.ParseFile(src)
	require.NoError(t, err)
	require.NoError(t, exp.ExpandFile(src, file))
	require.Len(t, file.Items, 2)
	assert.Equal(t, "a", file.Items[0].(*ast.FnItem).Name.Name)
	assert.Equal(t, "b", file.Items[1].(*ast.FnItem).Name.Name)
}

func TestUnknownMacroErrors(t *testing.T) {
	src := source.Memory("test", `fn f() { nope!() }`)
	file, err := parser.ParseFile(src)
	require.NoError(t, err)
	err = NewExpander().ExpandFile(src, file)
	require.Error(t, err)
}

func TestSyntheticNamesDoNotCollideAcrossCalls(t *testing.T) {
	file := expandCode(t, "fn f(x) {\n  dbg!(x);\n  dbg!(x)\n}")
	fn := file.Items[0].(*ast.FnItem)
	require.Len(t, fn.Body.Stmts, 1)
	first := fn.Body.Stmts[0].(*ast.StmtExpr).Value.(*ast.ExprBlock)
	second := fn.Body.Tail.(*ast.ExprBlock)
	firstName := first.Stmts[0].(*ast.StmtLet).Pattern.(*ast.PatBind).Name.Name
	secondName := second.Stmts[0].(*ast.StmtLet).Pattern.(*ast.PatBind).Name.Name
	assert.NotEqual(t, firstName, secondName)
}
