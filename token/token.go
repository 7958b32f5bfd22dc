// Package token defines Rune's lexical token kinds and the Token value
// the lexer produces.
package token

import "github.com/rune-rs/rune/source"

// Kind enumerates every lexeme shape the lexer can produce.
type Kind int

const (
	EOF Kind = iota
	Error

	Ident
	RawIdent

	// Literals.
	LitInteger
	LitFloat
	LitChar
	LitByte
	LitString
	LitByteString
	LitTemplate

	// Keywords.
	KwAs
	KwAsync
	KwAwait
	KwBreak
	KwConst
	KwContinue
	KwCrate
	KwElse
	KwEnum
	KwFn
	KwFor
	KwIf
	KwImpl
	KwIn
	KwLet
	KwLoop
	KwMacro
	KwMatch
	KwMod
	KwMove
	KwMut
	KwPub
	KwRef
	KwReturn
	KwSelfType
	KwSelfValue
	KwStruct
	KwSuper
	KwTrait
	KwTrue
	KwFalse
	KwUse
	KwWhile
	KwYield
	KwSelect
	KwSelfFn

	// Delimiters.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket

	// Punctuation (one- and two-character operators).
	Amp
	AmpAmp
	AmpEq
	Bang
	BangEq
	Caret
	CaretEq
	Colon
	ColonColon
	Comma
	Dot
	DotDot
	DotDotEq
	Eq
	EqEq
	FatArrow
	Gt
	GtEq
	GtGt
	GtGtEq
	Lt
	LtEq
	LtLt
	LtLtEq
	Minus
	MinusEq
	Arrow
	Percent
	PercentEq
	Pipe
	PipePipe
	PipeEq
	Plus
	PlusEq
	Pound
	Question
	Semi
	Slash
	SlashEq
	Star
	StarEq
	Underscore
	At
	Dollar

	// Trivia, preserved for the formatter.
	LineComment
	BlockComment
	Shebang
)

// Token pairs a Kind with its Span in some Source.
type Token struct {
	Kind Kind
	Span source.Span
}

var keywords = map[string]Kind{
	"as": KwAs, "async": KwAsync, "await": KwAwait, "break": KwBreak,
	"const": KwConst, "continue": KwContinue, "crate": KwCrate, "else": KwElse,
	"enum": KwEnum, "fn": KwFn, "for": KwFor, "if": KwIf, "impl": KwImpl,
	"in": KwIn, "let": KwLet, "loop": KwLoop, "macro": KwMacro, "match": KwMatch,
	"mod": KwMod, "move": KwMove, "mut": KwMut, "pub": KwPub, "ref": KwRef,
	"return": KwReturn, "Self": KwSelfType, "self": KwSelfValue,
	"struct": KwStruct, "super": KwSuper, "trait": KwTrait, "true": KwTrue,
	"false": KwFalse, "use": KwUse, "while": KwWhile, "yield": KwYield,
	"select": KwSelect, "_": Underscore,
}

// LookupKeyword returns the keyword Kind for ident, and whether ident is
// a keyword at all.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// String names a Kind for diagnostics; it never needs to round-trip.
func (k Kind) String() string {
	switch k {
	case EOF:
		return "<eof>"
	case Ident:
		return "identifier"
	case LitInteger:
		return "integer literal"
	case LitFloat:
		return "float literal"
	case LitString:
		return "string literal"
	case LitTemplate:
		return "template literal"
	default:
		return "token"
	}
}
