package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/source"
)

func parse(t *testing.T, code string) *ast.File {
	t.Helper()
	src := source.Memory("test", code)
	file, err := ParseFile(src)
	require.NoError(t, err)
	return file
}

func TestParseFnWithBody(t *testing.T) {
	file := parse(t, `fn add(a, b) { a + b }`)
	require.Len(t, file.Items, 1)
	fn, ok := file.Items[0].(*ast.FnItem)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name.Name)
	require.Len(t, fn.Params, 2)
	require.NotNil(t, fn.Body.Tail)
	bin, ok := fn.Body.Tail.(*ast.ExprBinary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
}

func TestParsePubAsyncFn(t *testing.T) {
	file := parse(t, `pub async fn run() { 1 }`)
	fn := file.Items[0].(*ast.FnItem)
	assert.Equal(t, ast.VisPublic, fn.Visibility())
	assert.True(t, fn.IsAsync)
}

func TestParseStructTupleAndNamed(t *testing.T) {
	file := parse(t, `
		struct Point(x, y);
		struct Named { a, b }
		struct Empty;
	`)
	require.Len(t, file.Items, 3)
	tup := file.Items[0].(*ast.StructItem)
	assert.Equal(t, 2, tup.Arity)
	named := file.Items[1].(*ast.StructItem)
	require.Len(t, named.Named, 2)
	assert.Equal(t, "a", named.Named[0].Name)
	empty := file.Items[2].(*ast.StructItem)
	assert.Equal(t, 0, empty.Arity)
	assert.Nil(t, empty.Named)
}

func TestParseEnumVariants(t *testing.T) {
	file := parse(t, `
		enum Shape {
			Circle(radius),
			Rect { w, h },
			Point,
		}
	`)
	en := file.Items[0].(*ast.EnumItem)
	require.Len(t, en.Variants, 3)
	assert.Equal(t, 1, en.Variants[0].Arity)
	require.Len(t, en.Variants[1].Named, 2)
	assert.Equal(t, 0, en.Variants[2].Arity)
}

func TestParseConstAndUse(t *testing.T) {
	file := parse(t, `
		const MAX = 10;
		use std::collections::HashMap;
		use std::io::*;
	`)
	c := file.Items[0].(*ast.ConstItem)
	lit := c.Value.(*ast.ExprLit)
	assert.Equal(t, int64(10), lit.IntValue)
	use1 := file.Items[1].(*ast.UseItem)
	assert.False(t, use1.Wildcard)
	assert.Equal(t, "HashMap", use1.Path.Segments[len(use1.Path.Segments)-1].Name)
	use2 := file.Items[2].(*ast.UseItem)
	assert.True(t, use2.Wildcard)
}

func TestOperatorPrecedence(t *testing.T) {
	file := parse(t, `fn f() { 1 + 2 * 3 == 7 && true }`)
	fn := file.Items[0].(*ast.FnItem)
	and := fn.Body.Tail.(*ast.ExprBinary)
	require.Equal(t, ast.OpAnd, and.Op)
	eq := and.LHS.(*ast.ExprBinary)
	require.Equal(t, ast.OpEq, eq.Op)
	add := eq.LHS.(*ast.ExprBinary)
	require.Equal(t, ast.OpAdd, add.Op)
	mul := add.RHS.(*ast.ExprBinary)
	require.Equal(t, ast.OpMul, mul.Op)
}

func TestParseIfElseChain(t *testing.T) {
	file := parse(t, `
		fn f(x) {
			if x == 1 {
				"one"
			} else if x == 2 {
				"two"
			} else {
				"other"
			}
		}
	`)
	fn := file.Items[0].(*ast.FnItem)
	ifExpr := fn.Body.Tail.(*ast.ExprIf)
	require.NotNil(t, ifExpr.Else)
	elseIf, ok := ifExpr.Else.(*ast.ExprIf)
	require.True(t, ok)
	require.NotNil(t, elseIf.Else)
	_, ok = elseIf.Else.(*ast.ExprBlock)
	require.True(t, ok)
}

func TestParseIfLetAvoidsStructLitAmbiguity(t *testing.T) {
	file := parse(t, `
		fn f(opt) {
			if let Some(x) = opt {
				x
			} else {
				0
			}
		}
	`)
	fn := file.Items[0].(*ast.FnItem)
	ifExpr := fn.Body.Tail.(*ast.ExprIf)
	letExpr, ok := ifExpr.Cond.(*ast.ExprLet)
	require.True(t, ok)
	_, ok = letExpr.Pattern.(*ast.PatTuple)
	require.True(t, ok)
}

func TestParseMatchWithGuardsAndPatterns(t *testing.T) {
	file := parse(t, `
		fn f(x) {
			match x {
				0 => "zero",
				n if n > 0 => "pos",
				(a, b) => "pair",
				Point { x, y } => "point",
				_ => "other",
			}
		}
	`)
	fn := file.Items[0].(*ast.FnItem)
	m := fn.Body.Tail.(*ast.ExprMatch)
	require.Len(t, m.Arms, 5)
	assert.NotNil(t, m.Arms[1].Guard)
	_, ok := m.Arms[2].Pattern.(*ast.PatTuple)
	require.True(t, ok)
	_, ok = m.Arms[3].Pattern.(*ast.PatStruct)
	require.True(t, ok)
	_, ok = m.Arms[4].Pattern.(*ast.PatWildcard)
	require.True(t, ok)
}

func TestParseClosureAndCall(t *testing.T) {
	file := parse(t, `fn f() { [1, 2, 3].iter().map(|x| x * 2) }`)
	fn := file.Items[0].(*ast.FnItem)
	call := fn.Body.Tail.(*ast.ExprMethodCall)
	assert.Equal(t, "map", call.Name.Name)
	require.Len(t, call.Args, 1)
	closure, ok := call.Args[0].(*ast.ExprClosure)
	require.True(t, ok)
	require.Len(t, closure.Params, 1)
}

func TestParseRangeForms(t *testing.T) {
	file := parse(t, `
		fn f() {
			for i in 0..10 {
				let r = 0..=i;
			}
		}
	`)
	fn := file.Items[0].(*ast.FnItem)
	forExpr := fn.Body.Tail.(*ast.ExprFor)
	rng := forExpr.Iter.(*ast.ExprRange)
	assert.False(t, rng.Inclusive)
	require.NotNil(t, rng.Start)
	require.NotNil(t, rng.End)
}

func TestParseStructLiteralAndObject(t *testing.T) {
	file := parse(t, `
		fn f() {
			let p = Point { x: 1, y: 2 };
			let o = #{ a: 1, b: 2 };
		}
	`)
	fn := file.Items[0].(*ast.FnItem)
	let1 := fn.Body.Stmts[0].(*ast.StmtLet)
	structLit := let1.Value.(*ast.ExprStructLit)
	require.Len(t, structLit.Entries, 2)
	let2 := fn.Body.Stmts[1].(*ast.StmtLet)
	obj := let2.Value.(*ast.ExprObject)
	require.Len(t, obj.Entries, 2)
}

func TestParseTemplateLiteral(t *testing.T) {
	file := parse(t, "fn f(name) { `hello ${name}!` }")
	fn := file.Items[0].(*ast.FnItem)
	tmpl := fn.Body.Tail.(*ast.ExprTemplate)
	require.Equal(t, []bool{false, true, false}, tmpl.Order)
	require.Len(t, tmpl.Exprs, 1)
	path, ok := tmpl.Exprs[0].(*ast.ExprPath)
	require.True(t, ok)
	assert.Equal(t, "name", path.Path.Segments[0].Name)
}

func TestParseTryAndAwait(t *testing.T) {
	file := parse(t, `async fn f() { foo()?.bar().await }`)
	fn := file.Items[0].(*ast.FnItem)
	await, ok := fn.Body.Tail.(*ast.ExprAwait)
	require.True(t, ok)
	_, ok = await.Value.(*ast.ExprMethodCall)
	require.True(t, ok)
}

func TestParseMacroCallExpr(t *testing.T) {
	file := parse(t, `fn f() { println!("hi {}", 1) }`)
	fn := file.Items[0].(*ast.FnItem)
	mc, ok := fn.Body.Tail.(*ast.ExprMacroCall)
	require.True(t, ok)
	assert.Equal(t, "println", mc.Name.Name)
}

func TestParseImplBlock(t *testing.T) {
	file := parse(t, `
		impl Point {
			fn new(x, y) { Point { x, y } }
			fn len(self) { self.x }
		}
	`)
	impl := file.Items[0].(*ast.ImplItem)
	require.Len(t, impl.Fns, 2)
	assert.Equal(t, "new", impl.Fns[0].Name.Name)
}

func TestRecursionLimitOnDeeplyNestedExpr(t *testing.T) {
	code := "fn f() { "
	for i := 0; i < 600; i++ {
		code += "("
	}
	code += "1"
	for i := 0; i < 600; i++ {
		code += ")"
	}
	code += " }"
	src := source.Memory("test", code)
	_, err := ParseFile(src)
	require.Error(t, err)
	perr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, RecursionLimit, perr.Kind)
}

func TestParseErrorOnBadDecl(t *testing.T) {
	src := source.Memory("test", `???`)
	_, err := ParseFile(src)
	require.Error(t, err)
}
