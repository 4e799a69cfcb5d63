package script

import "fmt"

// TokenType identifies the kind of a lexical token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL
	NEWLINE

	// Literals and identifiers.
	IDENT
	INT
	FLOAT
	STRING

	// Punctuation.
	LPAREN
	RPAREN
	COMMA

	// Operators.
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	ASSIGN
	EQ
	NEQ
	LT
	LTE
	GT
	GTE

	// Keywords.
	KwAnd
	KwOr
	KwNot
	KwTrue
	KwFalse
	KwNil
	KwIf
	KwThen
	KwElif
	KwElse
	KwWhile
	KwFor
	KwIn
	KwDo
	KwEnd
	KwFun
	KwReturn
	KwBreak
	KwContinue
	KwAsync
	KwAwait
)

var keywords = map[string]TokenType{
	"and":      KwAnd,
	"or":       KwOr,
	"not":      KwNot,
	"true":     KwTrue,
	"false":    KwFalse,
	"nil":      KwNil,
	"if":       KwIf,
	"then":     KwThen,
	"elif":     KwElif,
	"else":     KwElse,
	"while":    KwWhile,
	"for":      KwFor,
	"in":       KwIn,
	"do":       KwDo,
	"end":      KwEnd,
	"fun":      KwFun,
	"return":   KwReturn,
	"break":    KwBreak,
	"continue": KwContinue,
	"async":    KwAsync,
	"await":    KwAwait,
}

// Token is a lexical token with its decoded literal value.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal any // int64 for INT, float64 for FLOAT, string for STRING
	Line    int
	Col     int
}

func (t Token) String() string {
	return fmt.Sprintf("%d:%d %q", t.Line, t.Col, t.Lexeme)
}
