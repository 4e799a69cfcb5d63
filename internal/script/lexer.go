package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Lexer scans Step source text into tokens. Newlines are significant and
// emitted as NEWLINE tokens; runs of blank lines collapse to one.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// Lex scans the entire input. It stops at the first illegal character and
// returns an error naming the offending line.
func Lex(src string) ([]Token, error) {
	lx := NewLexer(src)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		// Collapse consecutive newlines.
		if tok.Type == NEWLINE && len(toks) > 0 && toks[len(toks)-1].Type == NEWLINE {
			continue
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

func (lx *Lexer) peek() byte {
	if lx.pos >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *Lexer) peekAt(offset int) byte {
	if lx.pos+offset >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+offset]
}

func (lx *Lexer) advance() byte {
	c := lx.src[lx.pos]
	lx.pos++
	if c == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return c
}

// Next returns the next token.
func (lx *Lexer) Next() (Token, error) {
	lx.skipSpacesAndComments()

	line, col := lx.line, lx.col
	if lx.pos >= len(lx.src) {
		return Token{Type: EOF, Line: line, Col: col}, nil
	}

	c := lx.peek()

	switch {
	case c == '\n':
		lx.advance()
		return Token{Type: NEWLINE, Lexeme: "\n", Line: line, Col: col}, nil
	case isDigit(c) || (c == '.' && isDigit(lx.peekAt(1))):
		return lx.lexNumber(line, col)
	case isIdentStart(c):
		return lx.lexIdent(line, col)
	case c == '"':
		return lx.lexString(line, col)
	}

	lx.advance()
	single := func(t TokenType) (Token, error) {
		return Token{Type: t, Lexeme: string(c), Line: line, Col: col}, nil
	}
	switch c {
	case '(':
		return single(LPAREN)
	case ')':
		return single(RPAREN)
	case ',':
		return single(COMMA)
	case '+':
		return single(PLUS)
	case '-':
		return single(MINUS)
	case '*':
		return single(STAR)
	case '/':
		return single(SLASH)
	case '%':
		return single(PERCENT)
	case '=':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Type: EQ, Lexeme: "==", Line: line, Col: col}, nil
		}
		return single(ASSIGN)
	case '!':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Type: NEQ, Lexeme: "!=", Line: line, Col: col}, nil
		}
	case '<':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Type: LTE, Lexeme: "<=", Line: line, Col: col}, nil
		}
		return single(LT)
	case '>':
		if lx.peek() == '=' {
			lx.advance()
			return Token{Type: GTE, Lexeme: ">=", Line: line, Col: col}, nil
		}
		return single(GT)
	}

	return Token{}, fmt.Errorf("line %d: unexpected character %q", line, string(c))
}

// skipSpacesAndComments consumes spaces, tabs, carriage returns and
// '#' comments up to (but not including) the newline.
func (lx *Lexer) skipSpacesAndComments() {
	for lx.pos < len(lx.src) {
		c := lx.peek()
		if c == ' ' || c == '\t' || c == '\r' {
			lx.advance()
			continue
		}
		if c == '#' {
			for lx.pos < len(lx.src) && lx.peek() != '\n' {
				lx.advance()
			}
			continue
		}
		return
	}
}

func (lx *Lexer) lexNumber(line, col int) (Token, error) {
	start := lx.pos
	isFloat := false
	for lx.pos < len(lx.src) && isDigit(lx.peek()) {
		lx.advance()
	}
	if lx.peek() == '.' && isDigit(lx.peekAt(1)) {
		isFloat = true
		lx.advance()
		for lx.pos < len(lx.src) && isDigit(lx.peek()) {
			lx.advance()
		}
	}
	text := lx.src[start:lx.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, fmt.Errorf("line %d: bad number %q", line, text)
		}
		return Token{Type: FLOAT, Lexeme: text, Literal: f, Line: line, Col: col}, nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("line %d: bad number %q", line, text)
	}
	return Token{Type: INT, Lexeme: text, Literal: n, Line: line, Col: col}, nil
}

func (lx *Lexer) lexIdent(line, col int) (Token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentPart(lx.peek()) {
		lx.advance()
	}
	text := lx.src[start:lx.pos]
	if kw, ok := keywords[text]; ok {
		return Token{Type: kw, Lexeme: text, Line: line, Col: col}, nil
	}
	return Token{Type: IDENT, Lexeme: text, Line: line, Col: col}, nil
}

func (lx *Lexer) lexString(line, col int) (Token, error) {
	lx.advance() // opening quote
	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) || lx.peek() == '\n' {
			return Token{}, fmt.Errorf("line %d: unterminated string", line)
		}
		c := lx.advance()
		if c == '"' {
			break
		}
		if c == '\\' {
			if lx.pos >= len(lx.src) {
				return Token{}, fmt.Errorf("line %d: unterminated string", line)
			}
			esc := lx.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				return Token{}, fmt.Errorf("line %d: unknown escape \\%s", line, string(esc))
			}
			continue
		}
		b.WriteByte(c)
	}
	return Token{Type: STRING, Lexeme: b.String(), Literal: b.String(), Line: line, Col: col}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
