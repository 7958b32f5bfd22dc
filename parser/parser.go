package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rune-rs/rune/ast"
	"github.com/rune-rs/rune/lexer"
	"github.com/rune-rs/rune/source"
	"github.com/rune-rs/rune/token"
)

// maxExprDepth bounds recursive descent so deeply nested expressions
// fail with RecursionLimit instead of overflowing the Go call stack,
// per spec.md §8's boundary behavior requirement.
const maxExprDepth = 512

// Parser holds the state for parsing one Source into an ast.File. Two
// tokens of lookahead (cur, peeked) are enough for the whole grammar,
// per spec.md §4.2.
type Parser struct {
	src    *source.Source
	lex    *lexer.Lexer
	cur    token.Token
	peeked *token.Token
	depth  int
	lexErr error
}

// New returns a Parser over src.
func New(src *source.Source) *Parser {
	p := &Parser{src: src, lex: lexer.New(src)}
	p.bump()
	return p
}

// ParseFile parses src into a complete ast.File.
func ParseFile(src *source.Source) (*ast.File, error) {
	p := New(src)
	items, err := p.parseItems(token.EOF)
	if err != nil {
		return nil, err
	}
	return &ast.File{Items: items, Sp: source.NewSpan(src.ID(), 0, uint32(len(src.Content())))}, nil
}

// ParseExpr parses src as a single, complete expression. Used by macro
// expansion to re-parse a macro's token-stream output at an
// expression-position call site; a trailing token that isn't EOF is
// rejected rather than silently ignored.
func ParseExpr(src *source.Source) (ast.Expr, error) {
	p := New(src)
	expr, err := p.parseExpr0()
	if err != nil {
		return nil, err
	}
	if !p.at(token.EOF) {
		return nil, &Error{Span: p.cur.Span, Kind: ExpectedToken, Msg: token.EOF.String()}
	}
	return expr, nil
}

// ParseItems parses src as a sequence of items with no enclosing braces
// (the same grammar ParseFile uses for a file's top level). Used by
// macro expansion to re-parse a macro's output at an item-position call
// site.
func ParseItems(src *source.Source) ([]ast.Item, error) {
	p := New(src)
	return p.parseItems(token.EOF)
}

func (p *Parser) bump() {
	if p.peeked != nil {
		p.cur = *p.peeked
		p.peeked = nil
		return
	}
	tok, err := p.lex.Next()
	if err != nil {
		// A lexer error surfaces as an Error-kind token the parser turns
		// into a parse error at the point it's consumed.
		p.cur = token.Token{Kind: token.Error, Span: tok.Span}
		p.lexErr = err
		return
	}
	p.cur = tok
}

func (p *Parser) peek() token.Token {
	if p.peeked == nil {
		tok, err := p.lex.Next()
		if err != nil {
			tok = token.Token{Kind: token.Error, Span: tok.Span}
		}
		p.peeked = &tok
	}
	return *p.peeked
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.bump()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, &Error{Span: p.cur.Span, Kind: ExpectedToken, Msg: k.String()}
	}
	tok := p.cur
	p.bump()
	return tok, nil
}

func (p *Parser) errorf(kind ErrorKind, msg string) error {
	if p.cur.Kind == token.Error && p.lexErr != nil {
		return &Error{Span: p.cur.Span, Kind: UnexpectedToken, Msg: p.lexErr.Error()}
	}
	return &Error{Span: p.cur.Span, Kind: kind, Msg: msg}
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > maxExprDepth {
		return &Error{Span: p.cur.Span, Kind: RecursionLimit}
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

func (p *Parser) text() string { return p.src.Slice(p.cur.Span) }

// --- Items ---------------------------------------------------------------

func (p *Parser) parseItems(stop token.Kind) ([]ast.Item, error) {
	var items []ast.Item
	for !p.at(stop) && !p.at(token.EOF) {
		if p.at(token.Shebang) {
			p.bump()
			continue
		}
		it, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (p *Parser) parseVis() ast.Vis {
	if !p.at(token.KwPub) {
		return ast.VisInherited
	}
	p.bump()
	if p.eat(token.LParen) {
		defer func() { p.eat(token.RParen) }()
		switch {
		case p.at(token.KwCrate):
			p.bump()
			return ast.VisCrate
		case p.at(token.KwSuper):
			p.bump()
			return ast.VisSuper
		case p.at(token.KwSelfValue):
			p.bump()
			return ast.VisSelf
		}
	}
	return ast.VisPublic
}

func (p *Parser) parseItem() (ast.Item, error) {
	start := p.cur.Span
	vis := p.parseVis()
	switch {
	case p.at(token.KwAsync), p.at(token.KwFn):
		return p.parseFn(start, vis)
	case p.at(token.KwStruct):
		return p.parseStruct(start, vis)
	case p.at(token.KwEnum):
		return p.parseEnum(start, vis)
	case p.at(token.KwConst):
		return p.parseConst(start, vis)
	case p.at(token.KwMod):
		return p.parseMod(start, vis)
	case p.at(token.KwUse):
		return p.parseUse(start, vis)
	case p.at(token.KwImpl):
		return p.parseImpl(start, vis)
	case p.at(token.Ident) && p.peek().Kind == token.Bang:
		return p.parseMacroItem(start, vis)
	default:
		return nil, p.errorf(ExpectedDecl, "expected fn, struct, enum, const, mod, use, or impl")
	}
}

func (p *Parser) parseFn(start source.Span, vis ast.Vis) (*ast.FnItem, error) {
	isAsync := p.eat(token.KwAsync)
	if _, err := p.expect(token.KwFn); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []*ast.FnParam
	for !p.at(token.RParen) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		params = append(params, &ast.FnParam{Pattern: pat})
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FnItem{
		ItemBase: itemBaseOf(vis, start.Join(body.Sp)),
		Name:     name, Params: params, IsAsync: isAsync, Body: body,
	}, nil
}

func itemBaseOf(vis ast.Vis, sp source.Span) ast.ItemBase { return ast.ItemBase{V: vis, Sp: sp} }

func (p *Parser) parseStruct(start source.Span, vis ast.Vis) (*ast.StructItem, error) {
	if _, err := p.expect(token.KwStruct); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
	item := &ast.StructItem{Name: name}
	switch {
	case p.eat(token.Semi):
		item.Sp = start.Join(nameTok.Span)
	case p.at(token.LParen):
		p.bump()
		arity := 0
		for !p.at(token.RParen) {
			if _, err := p.parseExpr0(); err != nil {
				return nil, err
			}
			arity++
			if !p.eat(token.Comma) {
				break
			}
		}
		end, err := p.expect(token.RParen)
		if err != nil {
			return nil, err
		}
		p.eat(token.Semi)
		item.Arity = arity
		item.Sp = start.Join(end.Span)
	case p.at(token.LBrace):
		p.bump()
		for !p.at(token.RBrace) {
			ft, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			item.Named = append(item.Named, &ast.Ident{Name: p.src.Slice(ft.Span), Sp: ft.Span})
			if !p.eat(token.Comma) {
				break
			}
		}
		end, err := p.expect(token.RBrace)
		if err != nil {
			return nil, err
		}
		item.Sp = start.Join(end.Span)
	default:
		return nil, p.errorf(ExpectedDecl, "expected struct body")
	}
	item.V = vis
	return item, nil
}

func (p *Parser) parseEnum(start source.Span, vis ast.Vis) (*ast.EnumItem, error) {
	if _, err := p.expect(token.KwEnum); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var variants []*ast.VariantItem
	for !p.at(token.RBrace) {
		vTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		v := &ast.VariantItem{Name: &ast.Ident{Name: p.src.Slice(vTok.Span), Sp: vTok.Span}}
		v.Sp = vTok.Span
		switch {
		case p.at(token.LParen):
			p.bump()
			for !p.at(token.RParen) {
				v.Arity++
				p.bump() // skip type-shaped placeholder tokens until comma/paren
				for !p.at(token.Comma) && !p.at(token.RParen) {
					p.bump()
				}
				if !p.eat(token.Comma) {
					break
				}
			}
			end, err := p.expect(token.RParen)
			if err != nil {
				return nil, err
			}
			v.Sp = v.Sp.Join(end.Span)
		case p.at(token.LBrace):
			p.bump()
			for !p.at(token.RBrace) {
				ft, err := p.expect(token.Ident)
				if err != nil {
					return nil, err
				}
				v.Named = append(v.Named, &ast.Ident{Name: p.src.Slice(ft.Span), Sp: ft.Span})
				if !p.eat(token.Comma) {
					break
				}
			}
			end, err := p.expect(token.RBrace)
			if err != nil {
				return nil, err
			}
			v.Sp = v.Sp.Join(end.Span)
		}
		variants = append(variants, v)
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.EnumItem{ItemBase: itemBaseOf(vis, start.Join(end.Span)), Name: name, Variants: variants}, nil
}

func (p *Parser) parseConst(start source.Span, vis ast.Vis) (*ast.ConstItem, error) {
	if _, err := p.expect(token.KwConst); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
	if _, err := p.expect(token.Eq); err != nil {
		return nil, err
	}
	value, err := p.parseExpr0()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(token.Semi)
	if err != nil {
		return nil, err
	}
	return &ast.ConstItem{ItemBase: itemBaseOf(vis, start.Join(end.Span)), Name: name, Value: value}, nil
}

func (p *Parser) parseMod(start source.Span, vis ast.Vis) (*ast.ModItem, error) {
	if _, err := p.expect(token.KwMod); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
	if p.eat(token.Semi) {
		return &ast.ModItem{ItemBase: itemBaseOf(vis, start.Join(nameTok.Span)), Name: name}, nil
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	items, err := p.parseItems(token.RBrace)
	if err != nil {
		return nil, err
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ModItem{ItemBase: itemBaseOf(vis, start.Join(end.Span)), Name: name, Items: items}, nil
}

func (p *Parser) parsePath() (*ast.Path, error) {
	start := p.cur.Span
	global := p.eat(token.ColonColon)
	var segs []*ast.Ident
	for {
		var tok token.Token
		var err error
		switch {
		case p.at(token.KwSelfType), p.at(token.KwSelfValue):
			tok = p.cur
			p.bump()
		case p.at(token.KwCrate):
			tok = p.cur
			p.bump()
		default:
			tok, err = p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
		}
		segs = append(segs, &ast.Ident{Name: p.src.Slice(tok.Span), Sp: tok.Span})
		if p.at(token.ColonColon) && p.peek().Kind == token.Ident {
			p.bump()
			continue
		}
		break
	}
	last := segs[len(segs)-1]
	return &ast.Path{Segments: segs, Global: global, Sp: start.Join(last.Sp)}, nil
}

func (p *Parser) parseUse(start source.Span, vis ast.Vis) (*ast.UseItem, error) {
	if _, err := p.expect(token.KwUse); err != nil {
		return nil, err
	}
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	item := &ast.UseItem{Path: path}
	if p.eat(token.ColonColon) {
		if _, err := p.expect(token.Star); err != nil {
			return nil, err
		}
		item.Wildcard = true
	}
	if p.eat(token.KwAs) {
		aliasTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		item.Alias = &ast.Ident{Name: p.src.Slice(aliasTok.Span), Sp: aliasTok.Span}
	}
	end, err := p.expect(token.Semi)
	if err != nil {
		return nil, err
	}
	item.ItemBase = itemBaseOf(vis, start.Join(end.Span))
	return item, nil
}

func (p *Parser) parseImpl(start source.Span, vis ast.Vis) (*ast.ImplItem, error) {
	if _, err := p.expect(token.KwImpl); err != nil {
		return nil, err
	}
	ty, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var fns []*ast.FnItem
	for !p.at(token.RBrace) {
		fnStart := p.cur.Span
		fnVis := p.parseVis()
		fn, err := p.parseFn(fnStart, fnVis)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ImplItem{ItemBase: itemBaseOf(vis, start.Join(end.Span)), Type: ty, Fns: fns}, nil
}

func (p *Parser) parseMacroItem(start source.Span, vis ast.Vis) (*ast.MacroCallItem, error) {
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Bang); err != nil {
		return nil, err
	}
	open, close := p.delimPair()
	if _, err := p.expect(open); err != nil {
		return nil, err
	}
	tokStart := p.cur.Span
	depth := 1
	for depth > 0 {
		if p.at(token.EOF) {
			return nil, p.errorf(UnexpectedToken, "unterminated macro invocation")
		}
		if p.at(open) {
			depth++
		} else if p.at(close) {
			depth--
			if depth == 0 {
				break
			}
		}
		p.bump()
	}
	tokEnd := p.cur.Span
	end, err := p.expect(close)
	if err != nil {
		return nil, err
	}
	name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
	return &ast.MacroCallItem{
		ItemBase: itemBaseOf(vis, start.Join(end.Span)),
		Name:     name,
		Tokens:   source.NewSpan(tokStart.Source, tokStart.Start, tokEnd.Start),
	}, nil
}

func (p *Parser) delimPair() (token.Kind, token.Kind) {
	switch p.cur.Kind {
	case token.LBracket:
		return token.LBracket, token.RBracket
	case token.LBrace:
		return token.LBrace, token.RBrace
	default:
		return token.LParen, token.RParen
	}
}

// parseExpr0 is the entry point other productions (const values, struct
// tuple-field placeholders) use to parse one full expression.
func (p *Parser) parseExpr0() (ast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.parseAssign()
}

// --- Blocks and statements -------------------------------------------------

func isItemStart(p *Parser) bool {
	switch {
	case p.at(token.KwFn):
		return true
	case p.at(token.KwAsync) && p.peek().Kind == token.KwFn:
		return true
	case p.at(token.KwStruct), p.at(token.KwEnum), p.at(token.KwConst),
		p.at(token.KwMod), p.at(token.KwUse), p.at(token.KwImpl), p.at(token.KwPub):
		return true
	}
	return false
}

func (p *Parser) parseBlock() (*ast.ExprBlock, error) {
	start, err := p.expect(token.LBrace)
	if err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	var tail ast.Expr
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if p.eat(token.Semi) {
			continue
		}
		if p.at(token.KwLet) {
			st, err := p.parseLet()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, st)
			continue
		}
		if isItemStart(p) {
			it, err := p.parseItem()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, &ast.StmtItem{Item: it})
			continue
		}
		expr, err := p.parseExpr0()
		if err != nil {
			return nil, err
		}
		if p.eat(token.Semi) {
			stmts = append(stmts, &ast.StmtExpr{Value: expr, TrailingSemi: true})
			continue
		}
		if p.at(token.RBrace) {
			tail = expr
			break
		}
		stmts = append(stmts, &ast.StmtExpr{Value: expr})
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ExprBlock{Stmts: stmts, Tail: tail, Sp: start.Span.Join(end.Span)}, nil
}

func (p *Parser) parseLet() (*ast.StmtLet, error) {
	start, err := p.expect(token.KwLet)
	if err != nil {
		return nil, err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Eq); err != nil {
		return nil, err
	}
	value, err := p.parseExpr0()
	if err != nil {
		return nil, err
	}
	end, err := p.expect(token.Semi)
	if err != nil {
		return nil, err
	}
	return &ast.StmtLet{Pattern: pat, Value: value, Sp: start.Span.Join(end.Span)}, nil
}

// --- Patterns --------------------------------------------------------------

func (p *Parser) parsePattern() (ast.Pattern, error) {
	first, err := p.parsePatternPrimary()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Pipe) {
		return first, nil
	}
	alts := []ast.Pattern{first}
	for p.eat(token.Pipe) {
		next, err := p.parsePatternPrimary()
		if err != nil {
			return nil, err
		}
		alts = append(alts, next)
	}
	return &ast.PatOr{Alternatives: alts}, nil
}

func (p *Parser) parsePatternPrimary() (ast.Pattern, error) {
	start := p.cur.Span
	switch {
	case p.at(token.Underscore):
		p.bump()
		return &ast.PatWildcard{Sp: start}, nil
	case p.at(token.DotDot):
		p.bump()
		return &ast.PatRest{Sp: start}, nil
	case p.at(token.Pound):
		return p.parseObjectPattern()
	case p.at(token.Minus):
		p.bump()
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		negated := negateLit(lit)
		return &ast.PatLit{Value: negated, Sp: start.Join(negated.Span())}, nil
	case p.at(token.LitInteger), p.at(token.LitFloat), p.at(token.LitChar),
		p.at(token.LitByte), p.at(token.LitString), p.at(token.LitByteString),
		p.at(token.KwTrue), p.at(token.KwFalse):
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.PatLit{Value: lit, Sp: lit.Sp}, nil
	case p.at(token.LParen):
		return p.parseTuplePattern(nil, start)
	case p.at(token.LBracket):
		return p.parseVecPattern(start)
	case p.at(token.KwRef), p.at(token.KwMut):
		isRef := p.eat(token.KwRef)
		isMut := p.eat(token.KwMut)
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
		bind := &ast.PatBind{Name: name, Ref: isRef, Mut: isMut}
		bind.Sp = start.Join(nameTok.Span)
		if p.eat(token.At) {
			sub, err := p.parsePatternPrimary()
			if err != nil {
				return nil, err
			}
			bind.SubPat = sub
		}
		return bind, nil
	case p.at(token.KwSelfValue):
		p.bump()
		bind := &ast.PatBind{Name: &ast.Ident{Name: "self", Sp: start}, Sp: start}
		return bind, nil
	case p.at(token.Ident), p.at(token.KwSelfType), p.at(token.KwCrate):
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		switch {
		case p.at(token.LParen):
			return p.parseTuplePattern(path, start)
		case p.at(token.LBrace):
			return p.parseStructPattern(path, start)
		case len(path.Segments) == 1 && !p.at(token.ColonColon):
			name := path.Segments[0]
			bind := &ast.PatBind{Name: name}
			bind.Sp = name.Sp
			if p.eat(token.At) {
				sub, err := p.parsePatternPrimary()
				if err != nil {
					return nil, err
				}
				bind.SubPat = sub
			}
			return bind, nil
		default:
			return &ast.PatPath{Path: path}, nil
		}
	}
	return nil, p.errorf(ExpectedPattern, "")
}

func negateLit(e ast.Expr) ast.Expr {
	lit, ok := e.(*ast.ExprLit)
	if !ok {
		return e
	}
	switch lit.Kind {
	case ast.LitInteger:
		lit.IntValue = -lit.IntValue
	case ast.LitFloat:
		lit.FloatValue = -lit.FloatValue
	}
	return lit
}

func (p *Parser) parseTuplePattern(path *ast.Path, start source.Span) (ast.Pattern, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var items []ast.Pattern
	for !p.at(token.RParen) {
		if p.at(token.DotDot) {
			restSp := p.cur.Span
			p.bump()
			items = append(items, &ast.PatRest{Sp: restSp})
			p.eat(token.Comma)
			continue
		}
		item, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	return &ast.PatTuple{Path: path, Items: items, Sp: start.Join(end.Span)}, nil
}

func (p *Parser) parseVecPattern(start source.Span) (ast.Pattern, error) {
	if _, err := p.expect(token.LBracket); err != nil {
		return nil, err
	}
	var items []ast.Pattern
	for !p.at(token.RBracket) {
		if p.at(token.DotDot) {
			restSp := p.cur.Span
			p.bump()
			items = append(items, &ast.PatRest{Sp: restSp})
			p.eat(token.Comma)
			continue
		}
		item, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBracket)
	if err != nil {
		return nil, err
	}
	return &ast.PatVec{Items: items, Sp: start.Join(end.Span)}, nil
}

func (p *Parser) parseStructPattern(path *ast.Path, start source.Span) (ast.Pattern, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var fields []ast.PatFieldEntry
	hasRest := false
	for !p.at(token.RBrace) {
		if p.at(token.DotDot) {
			p.bump()
			hasRest = true
			break
		}
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
		var fp ast.Pattern
		if p.eat(token.Colon) {
			fp, err = p.parsePattern()
			if err != nil {
				return nil, err
			}
		} else {
			b := &ast.PatBind{Name: name}
			b.Sp = name.Sp
			fp = b
		}
		fields = append(fields, ast.PatFieldEntry{Name: name, Pattern: fp})
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.PatStruct{Path: path, Fields: fields, HasRest: hasRest, Sp: start.Join(end.Span)}, nil
}

func (p *Parser) parseObjectPattern() (ast.Pattern, error) {
	start, err := p.expect(token.Pound)
	if err != nil {
		return nil, err
	}
	return p.parseStructPattern(nil, start.Span)
}

// --- Expressions: Pratt chain ----------------------------------------------

func (p *Parser) parseAssign() (ast.Expr, error) {
	lhs, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	op, ok := assignOpOf(p.cur.Kind)
	if !ok {
		return lhs, nil
	}
	p.bump()
	rhs, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &ast.ExprAssign{Op: op, Target: lhs, Value: rhs, Sp: lhs.Span().Join(rhs.Span())}, nil
}

func assignOpOf(k token.Kind) (ast.AssignOp, bool) {
	switch k {
	case token.Eq:
		return ast.AssignSet, true
	case token.PlusEq:
		return ast.AssignAdd, true
	case token.MinusEq:
		return ast.AssignSub, true
	case token.StarEq:
		return ast.AssignMul, true
	case token.SlashEq:
		return ast.AssignDiv, true
	case token.PercentEq:
		return ast.AssignRem, true
	case token.LtLtEq:
		return ast.AssignShl, true
	case token.GtGtEq:
		return ast.AssignShr, true
	case token.AmpEq:
		return ast.AssignBitAnd, true
	case token.PipeEq:
		return ast.AssignBitOr, true
	case token.CaretEq:
		return ast.AssignBitXor, true
	}
	return 0, false
}

func (p *Parser) parseRange() (ast.Expr, error) {
	if p.at(token.DotDot) || p.at(token.DotDotEq) {
		inclusive := p.at(token.DotDotEq)
		start := p.cur.Span
		p.bump()
		if p.atExprEnd() {
			return &ast.ExprRange{Inclusive: inclusive, Sp: start}, nil
		}
		end, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return &ast.ExprRange{End: end, Inclusive: inclusive, Sp: start.Join(end.Span())}, nil
	}
	lhs, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.at(token.DotDot) && !p.at(token.DotDotEq) {
		return lhs, nil
	}
	inclusive := p.at(token.DotDotEq)
	p.bump()
	if p.atExprEnd() {
		return &ast.ExprRange{Start: lhs, Inclusive: inclusive, Sp: lhs.Span()}, nil
	}
	end, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprRange{Start: lhs, End: end, Inclusive: inclusive, Sp: lhs.Span().Join(end.Span())}, nil
}

// atExprEnd reports whether the current token cannot start an expression,
// used to recognize an open-ended range's missing bound (`a..`, `..`).
func (p *Parser) atExprEnd() bool {
	switch p.cur.Kind {
	case token.RParen, token.RBracket, token.RBrace, token.Semi, token.Comma, token.EOF:
		return true
	}
	return false
}

func (p *Parser) parseOr() (ast.Expr, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.PipePipe) {
		p.bump()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: ast.OpOr, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	lhs, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for p.at(token.AmpAmp) {
		p.bump()
		rhs, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: ast.OpAnd, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseBitOr() (ast.Expr, error) {
	lhs, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.at(token.Pipe) {
		p.bump()
		rhs, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: ast.OpBitOr, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseBitXor() (ast.Expr, error) {
	lhs, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.Caret) {
		p.bump()
		rhs, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: ast.OpBitXor, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseBitAnd() (ast.Expr, error) {
	lhs, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.at(token.Amp) {
		p.bump()
		rhs, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: ast.OpBitAnd, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseCompare() (ast.Expr, error) {
	lhs, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	op, ok := compareOpOf(p.cur.Kind)
	if !ok {
		return lhs, nil
	}
	p.bump()
	rhs, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	return &ast.ExprBinary{Op: op, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}, nil
}

func compareOpOf(k token.Kind) (ast.BinOp, bool) {
	switch k {
	case token.EqEq:
		return ast.OpEq, true
	case token.BangEq:
		return ast.OpNeq, true
	case token.Lt:
		return ast.OpLt, true
	case token.LtEq:
		return ast.OpLte, true
	case token.Gt:
		return ast.OpGt, true
	case token.GtEq:
		return ast.OpGte, true
	}
	return 0, false
}

func (p *Parser) parseShift() (ast.Expr, error) {
	lhs, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for p.at(token.LtLt) || p.at(token.GtGt) {
		op := ast.OpShl
		if p.at(token.GtGt) {
			op = ast.OpShr
		}
		p.bump()
		rhs, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: op, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseAdd() (ast.Expr, error) {
	lhs, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.at(token.Plus) || p.at(token.Minus) {
		op := ast.OpAdd
		if p.at(token.Minus) {
			op = ast.OpSub
		}
		p.bump()
		rhs, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: op, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseMul() (ast.Expr, error) {
	lhs, err := p.parseAs()
	if err != nil {
		return nil, err
	}
	for p.at(token.Star) || p.at(token.Slash) || p.at(token.Percent) {
		var op ast.BinOp
		switch p.cur.Kind {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		default:
			op = ast.OpRem
		}
		p.bump()
		rhs, err := p.parseAs()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprBinary{Op: op, LHS: lhs, RHS: rhs, Sp: lhs.Span().Join(rhs.Span())}
	}
	return lhs, nil
}

func (p *Parser) parseAs() (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.eat(token.KwAs) {
		ty, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		lhs = &ast.ExprAs{Value: lhs, Type: ty, Sp: lhs.Span().Join(ty.Sp)}
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	switch {
	case p.at(token.Bang):
		start := p.cur.Span
		p.bump()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ExprUnary{Op: ast.UnNot, Operand: operand, Sp: start.Join(operand.Span())}, nil
	case p.at(token.Minus):
		start := p.cur.Span
		p.bump()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ExprUnary{Op: ast.UnNeg, Operand: operand, Sp: start.Join(operand.Span())}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(token.Dot) && p.peek().Kind == token.KwAwait:
			p.bump()
			end := p.cur.Span
			p.bump()
			expr = &ast.ExprAwait{Value: expr, Sp: expr.Span().Join(end)}
		case p.at(token.Dot) && p.peek().Kind == token.LitInteger:
			p.bump()
			idxTok := p.cur
			p.bump()
			idx, convErr := strconv.Atoi(p.src.Slice(idxTok.Span))
			if convErr != nil {
				return nil, p.errorf(UnexpectedToken, "bad tuple field index")
			}
			expr = &ast.ExprTupleField{Value: expr, Index: idx, Sp: expr.Span().Join(idxTok.Span)}
		case p.at(token.Dot):
			p.bump()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
			if p.at(token.LParen) {
				args, end, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				expr = &ast.ExprMethodCall{Receiver: expr, Name: name, Args: args, Sp: expr.Span().Join(end)}
			} else {
				expr = &ast.ExprField{Value: expr, Name: name, Sp: expr.Span().Join(nameTok.Span)}
			}
		case p.at(token.LParen):
			args, end, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.ExprCall{Callee: expr, Args: args, Sp: expr.Span().Join(end)}
		case p.at(token.LBracket):
			p.bump()
			idx, err := p.parseExpr0()
			if err != nil {
				return nil, err
			}
			end, err := p.expect(token.RBracket)
			if err != nil {
				return nil, err
			}
			expr = &ast.ExprIndex{Value: expr, Index: idx, Sp: expr.Span().Join(end.Span)}
		case p.at(token.Question):
			end := p.cur.Span
			p.bump()
			expr = &ast.ExprTry{Value: expr, Sp: expr.Span().Join(end)}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, source.Span, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, source.Span{}, err
	}
	var args []ast.Expr
	for !p.at(token.RParen) {
		arg, err := p.parseExpr0()
		if err != nil {
			return nil, source.Span{}, err
		}
		args = append(args, arg)
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RParen)
	if err != nil {
		return nil, source.Span{}, err
	}
	return args, end.Span, nil
}

// noStructLit suppresses struct-literal parsing (`Path { .. }`) while
// parsing the condition of if/while/for/match, so the opening brace is
// read as the body block instead — the same ambiguity Rust's own grammar
// resolves this way.
var noStructLitDepth int

func (p *Parser) parseCondExpr() (ast.Expr, error) {
	noStructLitDepth++
	defer func() { noStructLitDepth-- }()
	return p.parseExpr0()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	start := p.cur.Span
	switch {
	case p.at(token.LitInteger), p.at(token.LitFloat), p.at(token.LitChar),
		p.at(token.LitByte), p.at(token.LitString), p.at(token.LitByteString),
		p.at(token.KwTrue), p.at(token.KwFalse):
		return p.parseLiteral()
	case p.at(token.LitTemplate):
		return p.parseTemplate()
	case p.at(token.LParen):
		return p.parseParenOrTuple()
	case p.at(token.LBracket):
		return p.parseVecExpr()
	case p.at(token.Pound):
		return p.parseObjectExpr()
	case p.at(token.LBrace):
		return p.parseBlock()
	case p.at(token.KwIf):
		return p.parseIf()
	case p.at(token.KwWhile):
		return p.parseWhile()
	case p.at(token.KwLoop):
		return p.parseLoop()
	case p.at(token.KwFor):
		return p.parseFor()
	case p.at(token.KwMatch):
		return p.parseMatch()
	case p.at(token.KwSelect):
		return p.parseSelect()
	case p.at(token.KwBreak):
		p.bump()
		brk := &ast.ExprBreak{Sp: start}
		if !p.atExprEnd() {
			val, err := p.parseExpr0()
			if err != nil {
				return nil, err
			}
			brk.Value = val
			brk.Sp = start.Join(val.Span())
		}
		return brk, nil
	case p.at(token.KwContinue):
		p.bump()
		return &ast.ExprContinue{Sp: start}, nil
	case p.at(token.KwReturn):
		p.bump()
		ret := &ast.ExprReturn{Sp: start}
		if !p.atExprEnd() {
			val, err := p.parseExpr0()
			if err != nil {
				return nil, err
			}
			ret.Value = val
			ret.Sp = start.Join(val.Span())
		}
		return ret, nil
	case p.at(token.KwYield):
		p.bump()
		y := &ast.ExprYield{Sp: start}
		if !p.atExprEnd() {
			val, err := p.parseExpr0()
			if err != nil {
				return nil, err
			}
			y.Value = val
			y.Sp = start.Join(val.Span())
		}
		return y, nil
	case p.at(token.KwAsync):
		p.bump()
		doMove := p.eat(token.KwMove)
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ExprAsync{Body: body, DoMove: doMove, Sp: start.Join(body.Sp)}, nil
	case p.at(token.KwMove), p.at(token.Pipe), p.at(token.PipePipe):
		return p.parseClosure(start)
	case p.at(token.Ident), p.at(token.KwSelfType), p.at(token.KwSelfValue), p.at(token.KwCrate), p.at(token.ColonColon):
		return p.parsePathExpr(start)
	}
	return nil, p.errorf(ExpectedExpr, p.cur.Kind.String())
}

func (p *Parser) parsePathExpr(start source.Span) (ast.Expr, error) {
	if p.at(token.Ident) && p.peek().Kind == token.Bang {
		return p.parseMacroCallExpr(start)
	}
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if p.at(token.LBrace) && noStructLitDepth == 0 {
		return p.parseStructLitExpr(path, start)
	}
	return &ast.ExprPath{Path: path, Sp: path.Sp}, nil
}

func (p *Parser) parseMacroCallExpr(start source.Span) (ast.Expr, error) {
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Bang); err != nil {
		return nil, err
	}
	open, close := p.delimPair()
	if _, err := p.expect(open); err != nil {
		return nil, err
	}
	tokStart := p.cur.Span
	depth := 1
	for depth > 0 {
		if p.at(token.EOF) {
			return nil, p.errorf(UnexpectedToken, "unterminated macro invocation")
		}
		if p.at(open) {
			depth++
		} else if p.at(close) {
			depth--
			if depth == 0 {
				break
			}
		}
		p.bump()
	}
	tokEnd := p.cur.Span
	end, err := p.expect(close)
	if err != nil {
		return nil, err
	}
	name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
	return &ast.ExprMacroCall{Name: name, Tokens: source.NewSpan(tokStart.Source, tokStart.Start, tokEnd.Start), Sp: start.Join(end.Span)}, nil
}

func (p *Parser) parseStructLitExpr(path *ast.Path, start source.Span) (ast.Expr, error) {
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var entries []ast.ObjectEntry
	var rest ast.Expr
	for !p.at(token.RBrace) {
		if p.eat(token.DotDot) {
			r, err := p.parseExpr0()
			if err != nil {
				return nil, err
			}
			rest = r
			break
		}
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
		var value ast.Expr
		if p.eat(token.Colon) {
			value, err = p.parseExpr0()
			if err != nil {
				return nil, err
			}
		} else {
			value = &ast.ExprPath{Path: &ast.Path{Segments: []*ast.Ident{name}, Sp: name.Sp}, Sp: name.Sp}
		}
		entries = append(entries, ast.ObjectEntry{Key: name, Value: value})
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ExprStructLit{Path: path, Entries: entries, Rest: rest, Sp: start.Join(end.Span)}, nil
}

func (p *Parser) parseObjectExpr() (ast.Expr, error) {
	start, err := p.expect(token.Pound)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var entries []ast.ObjectEntry
	for !p.at(token.RBrace) {
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		name := &ast.Ident{Name: p.src.Slice(nameTok.Span), Sp: nameTok.Span}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		value, err := p.parseExpr0()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.ObjectEntry{Key: name, Value: value})
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ExprObject{Entries: entries, Sp: start.Span.Join(end.Span)}, nil
}

func (p *Parser) parseVecExpr() (ast.Expr, error) {
	start, err := p.expect(token.LBracket)
	if err != nil {
		return nil, err
	}
	var items []ast.Expr
	for !p.at(token.RBracket) {
		item, err := p.parseExpr0()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBracket)
	if err != nil {
		return nil, err
	}
	return &ast.ExprVec{Items: items, Sp: start.Span.Join(end.Span)}, nil
}

func (p *Parser) parseParenOrTuple() (ast.Expr, error) {
	start, err := p.expect(token.LParen)
	if err != nil {
		return nil, err
	}
	if p.at(token.RParen) {
		end := p.cur.Span
		p.bump()
		return &ast.ExprLit{Kind: ast.LitUnit, Sp: start.Span.Join(end)}, nil
	}
	first, err := p.parseExpr0()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Comma) {
		end, err := p.expect(token.RParen)
		if err != nil {
			return nil, err
		}
		return &ast.ExprGroup{Inner: first, Sp: start.Span.Join(end.Span)}, nil
	}
	items := []ast.Expr{first}
	for p.eat(token.Comma) {
		if p.at(token.RParen) {
			break
		}
		item, err := p.parseExpr0()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	end, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	return &ast.ExprTuple{Items: items, Sp: start.Span.Join(end.Span)}, nil
}

func (p *Parser) parseClosure(start source.Span) (ast.Expr, error) {
	doMove := p.eat(token.KwMove)
	var params []*ast.FnParam
	if p.eat(token.PipePipe) {
		// no parameters
	} else {
		if _, err := p.expect(token.Pipe); err != nil {
			return nil, err
		}
		for !p.at(token.Pipe) {
			pat, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			params = append(params, &ast.FnParam{Pattern: pat})
			if !p.eat(token.Comma) {
				break
			}
		}
		if _, err := p.expect(token.Pipe); err != nil {
			return nil, err
		}
	}
	body, err := p.parseExpr0()
	if err != nil {
		return nil, err
	}
	return &ast.ExprClosure{Params: params, Body: body, DoMove: doMove, Sp: start.Join(body.Span())}, nil
}

func (p *Parser) parseIf() (ast.Expr, error) {
	start, err := p.expect(token.KwIf)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseIfCond()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ifExpr := &ast.ExprIf{Cond: cond, Then: then, Sp: start.Span.Join(then.Sp)}
	if p.eat(token.KwElse) {
		if p.at(token.KwIf) {
			elseExpr, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			ifExpr.Else = elseExpr
			ifExpr.Sp = ifExpr.Sp.Join(elseExpr.Span())
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			ifExpr.Else = elseBlock
			ifExpr.Sp = ifExpr.Sp.Join(elseBlock.Sp)
		}
	}
	return ifExpr, nil
}

func (p *Parser) parseIfCond() (ast.Expr, error) {
	if p.at(token.KwLet) {
		start := p.cur.Span
		p.bump()
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Eq); err != nil {
			return nil, err
		}
		value, err := p.parseCondExpr()
		if err != nil {
			return nil, err
		}
		return &ast.ExprLet{Pattern: pat, Value: value, Sp: start.Join(value.Span())}, nil
	}
	return p.parseCondExpr()
}

func (p *Parser) parseWhile() (ast.Expr, error) {
	start, err := p.expect(token.KwWhile)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseIfCond()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ExprWhile{Cond: cond, Body: body, Sp: start.Span.Join(body.Sp)}, nil
}

func (p *Parser) parseLoop() (ast.Expr, error) {
	start, err := p.expect(token.KwLoop)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ExprLoop{Body: body, Sp: start.Span.Join(body.Sp)}, nil
}

func (p *Parser) parseFor() (ast.Expr, error) {
	start, err := p.expect(token.KwFor)
	if err != nil {
		return nil, err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwIn); err != nil {
		return nil, err
	}
	iter, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ExprFor{Pattern: pat, Iter: iter, Body: body, Sp: start.Span.Join(body.Sp)}, nil
}

func (p *Parser) parseMatch() (ast.Expr, error) {
	start, err := p.expect(token.KwMatch)
	if err != nil {
		return nil, err
	}
	scrutinee, err := p.parseCondExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var arms []ast.MatchArm
	for !p.at(token.RBrace) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		var guard ast.Expr
		if p.eat(token.KwIf) {
			guard, err = p.parseExpr0()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.FatArrow); err != nil {
			return nil, err
		}
		body, err := p.parseExpr0()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
		if !p.eat(token.Comma) {
			p.eat(token.Semi)
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ExprMatch{Scrutinee: scrutinee, Arms: arms, Sp: start.Span.Join(end.Span)}, nil
}

func (p *Parser) parseSelect() (ast.Expr, error) {
	start, err := p.expect(token.KwSelect)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var arms []ast.SelectArm
	for !p.at(token.RBrace) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Eq); err != nil {
			return nil, err
		}
		future, err := p.parseCondExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.FatArrow); err != nil {
			return nil, err
		}
		body, err := p.parseExpr0()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.SelectArm{Pattern: pat, Future: future, Body: body})
		if !p.eat(token.Comma) {
			break
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ExprSelect{Arms: arms, Sp: start.Span.Join(end.Span)}, nil
}

func (p *Parser) parseTemplate() (ast.Expr, error) {
	tok := p.cur
	p.bump()
	comps, err := lexer.TemplateComponents(p.src, tok.Span)
	if err != nil {
		return nil, err
	}
	lit := &ast.ExprTemplate{Sp: tok.Span}
	for _, c := range comps {
		lit.Order = append(lit.Order, c.IsExpr)
		if c.IsExpr {
			expr, err := p.parseSubExpr(c.Expr)
			if err != nil {
				return nil, err
			}
			lit.Exprs = append(lit.Exprs, expr)
		} else {
			lit.Literals = append(lit.Literals, c.Literal)
		}
	}
	return lit, nil
}

// parseSubExpr reparses a nested ${expr} span (recovered by
// lexer.TemplateComponents) as a standalone expression. It runs over a
// fresh in-memory Source holding just that slice, since the inner
// expression has its own token stream independent of the outer template
// literal's single LitTemplate token.
func (p *Parser) parseSubExpr(span source.Span) (ast.Expr, error) {
	sub := source.Memory(p.src.Name(), p.src.Slice(span))
	inner := New(sub)
	return inner.parseExpr0()
}

func (p *Parser) parseLiteral() (*ast.ExprLit, error) {
	tok := p.cur
	switch tok.Kind {
	case token.KwTrue:
		p.bump()
		return &ast.ExprLit{Kind: ast.LitBool, BoolValue: true, Sp: tok.Span}, nil
	case token.KwFalse:
		p.bump()
		return &ast.ExprLit{Kind: ast.LitBool, BoolValue: false, Sp: tok.Span}, nil
	case token.LitInteger:
		p.bump()
		v, err := parseIntText(p.src.Slice(tok.Span))
		if err != nil {
			return nil, p.wrapLitErr(tok, err)
		}
		return &ast.ExprLit{Kind: ast.LitInteger, IntValue: v, Sp: tok.Span}, nil
	case token.LitFloat:
		p.bump()
		v, err := parseFloatText(p.src.Slice(tok.Span))
		if err != nil {
			return nil, p.wrapLitErr(tok, err)
		}
		return &ast.ExprLit{Kind: ast.LitFloat, FloatValue: v, Sp: tok.Span}, nil
	case token.LitString:
		p.bump()
		s, err := lexer.ResolveString(p.src, tok)
		if err != nil {
			return nil, p.wrapLitErr(tok, err)
		}
		return &ast.ExprLit{Kind: ast.LitString, StringValue: s, Sp: tok.Span}, nil
	case token.LitByteString:
		p.bump()
		s, err := lexer.ResolveString(p.src, tok)
		if err != nil {
			return nil, p.wrapLitErr(tok, err)
		}
		return &ast.ExprLit{Kind: ast.LitByteString, StringValue: s, Sp: tok.Span}, nil
	case token.LitChar:
		p.bump()
		r, err := parseCharText(p.src.Slice(tok.Span))
		if err != nil {
			return nil, p.wrapLitErr(tok, err)
		}
		return &ast.ExprLit{Kind: ast.LitChar, CharValue: r, Sp: tok.Span}, nil
	case token.LitByte:
		p.bump()
		b, err := parseByteText(p.src.Slice(tok.Span))
		if err != nil {
			return nil, p.wrapLitErr(tok, err)
		}
		return &ast.ExprLit{Kind: ast.LitByte, ByteValue: b, Sp: tok.Span}, nil
	}
	return nil, p.errorf(ExpectedExpr, "expected a literal")
}

func (p *Parser) wrapLitErr(tok token.Token, err error) error {
	return &Error{Span: tok.Span, Kind: UnexpectedToken, Msg: err.Error()}
}

var intSuffixes = []string{
	"i8", "i16", "i32", "i64", "i128", "isize",
	"u8", "u16", "u32", "u64", "u128", "usize",
}

func stripIntSuffix(s string) string {
	for _, suf := range intSuffixes {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}

func parseIntText(text string) (int64, error) {
	text = stripIntSuffix(text)
	text = strings.ReplaceAll(text, "_", "")
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		v, err := strconv.ParseUint(text[2:], 16, 64)
		return int64(v), err
	case strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B"):
		v, err := strconv.ParseUint(text[2:], 2, 64)
		return int64(v), err
	default:
		return strconv.ParseInt(text, 10, 64)
	}
}

func parseFloatText(text string) (float64, error) {
	text = strings.TrimSuffix(text, "f64")
	text = strings.TrimSuffix(text, "f32")
	text = strings.ReplaceAll(text, "_", "")
	return strconv.ParseFloat(text, 64)
}

func parseCharText(text string) (rune, error) {
	body := text[1 : len(text)-1]
	if strings.HasPrefix(body, "\\") {
		r, _, err := decodeLitEscape(body)
		return r, err
	}
	r, _ := utf8.DecodeRuneInString(body)
	return r, nil
}

func parseByteText(text string) (byte, error) {
	body := text[2 : len(text)-1] // skip leading b'
	if strings.HasPrefix(body, "\\") {
		r, _, err := decodeLitEscape(body)
		return byte(r), err
	}
	return body[0], nil
}

// decodeLitEscape decodes one backslash escape at the start of s,
// duplicating the subset of lexer.decodeEscape needed for literal value
// resolution (that helper is unexported and scanner-internal).
func decodeLitEscape(s string) (rune, int, error) {
	if len(s) < 2 {
		return 0, 0, &Error{Kind: UnexpectedToken, Msg: "truncated escape"}
	}
	switch s[1] {
	case 'n':
		return '\n', 2, nil
	case 't':
		return '\t', 2, nil
	case 'r':
		return '\r', 2, nil
	case '0':
		return 0, 2, nil
	case '\\':
		return '\\', 2, nil
	case '\'':
		return '\'', 2, nil
	case '"':
		return '"', 2, nil
	case 'x':
		if len(s) < 4 {
			return 0, 0, &Error{Kind: UnexpectedToken, Msg: "truncated \\x escape"}
		}
		v, err := strconv.ParseUint(s[2:4], 16, 8)
		if err != nil {
			return 0, 0, &Error{Kind: UnexpectedToken, Msg: "bad \\x escape"}
		}
		return rune(v), 4, nil
	case 'u':
		if len(s) < 4 || s[2] != '{' {
			return 0, 0, &Error{Kind: UnexpectedToken, Msg: "bad \\u escape"}
		}
		end := strings.IndexByte(s[3:], '}')
		if end < 0 {
			return 0, 0, &Error{Kind: UnexpectedToken, Msg: "unterminated \\u escape"}
		}
		v, err := strconv.ParseUint(s[3:3+end], 16, 32)
		if err != nil {
			return 0, 0, &Error{Kind: UnexpectedToken, Msg: "bad \\u escape"}
		}
		return rune(v), 3 + end + 1, nil
	}
	return 0, 0, &Error{Kind: UnexpectedToken, Msg: "unknown escape"}
}
