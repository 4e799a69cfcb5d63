package script

import (
	"fmt"
)

// Parser is a recursive-descent parser over the token stream. Statements
// are newline-separated; block keywords (then/do/end) delimit bodies.
type Parser struct {
	toks []Token
	pos  int
}

// Parse lexes and parses a complete Step program.
func Parse(src string) (*Program, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) next() Token { t := p.toks[p.pos]; p.pos++; return t }

func (p *Parser) accept(t TokenType) bool {
	if p.cur().Type == t {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType, what string) (Token, error) {
	if p.cur().Type != t {
		return Token{}, fmt.Errorf("line %d: expected %s, got %q", p.cur().Line, what, p.cur().Lexeme)
	}
	return p.next(), nil
}

func (p *Parser) skipNewlines() {
	for p.cur().Type == NEWLINE {
		p.pos++
	}
}

func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{}
	p.skipNewlines()
	for p.cur().Type != EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
		p.skipNewlines()
	}
	return prog, nil
}

// parseBlock parses statements until one of the terminator token types.
// The terminator is not consumed.
func (p *Parser) parseBlock(terms ...TokenType) ([]Stmt, error) {
	var body []Stmt
	p.skipNewlines()
	for {
		t := p.cur().Type
		if t == EOF {
			return nil, fmt.Errorf("line %d: unexpected end of input, unclosed block", p.cur().Line)
		}
		for _, term := range terms {
			if t == term {
				return body, nil
			}
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		p.skipNewlines()
	}
}

func (p *Parser) parseStmt() (Stmt, error) {
	tok := p.cur()
	switch tok.Type {
	case KwIf:
		return p.parseIf()
	case KwWhile:
		return p.parseWhile()
	case KwFor:
		return p.parseFor()
	case KwFun, KwAsync:
		return p.parseFun()
	case KwReturn:
		p.next()
		ret := &ReturnStmt{baseNode: baseNode{Line: tok.Line}}
		if p.cur().Type != NEWLINE && p.cur().Type != EOF && p.cur().Type != KwEnd {
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ret.Value = val
		}
		return ret, nil
	case KwBreak:
		p.next()
		return &BreakStmt{baseNode{Line: tok.Line}}, nil
	case KwContinue:
		p.next()
		return &ContinueStmt{baseNode{Line: tok.Line}}, nil
	case IDENT:
		// Lookahead for assignment: `name = expr`.
		if p.toks[p.pos+1].Type == ASSIGN {
			name := p.next()
			p.next() // "="
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &AssignStmt{baseNode: baseNode{Line: name.Line}, Name: name.Lexeme, Value: val}, nil
		}
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{baseNode: baseNode{Line: tok.Line}, X: expr}, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	tok := p.next() // "if"
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwThen, "'then'"); err != nil {
		return nil, err
	}
	thenBody, err := p.parseBlock(KwElif, KwElse, KwEnd)
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{baseNode: baseNode{Line: tok.Line}, Cond: cond, Then: thenBody}

	for p.cur().Type == KwElif {
		p.next()
		econd, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(KwThen, "'then'"); err != nil {
			return nil, err
		}
		ebody, err := p.parseBlock(KwElif, KwElse, KwEnd)
		if err != nil {
			return nil, err
		}
		stmt.Elifs = append(stmt.Elifs, ElifClause{Cond: econd, Body: ebody})
	}
	if p.accept(KwElse) {
		ebody, err := p.parseBlock(KwEnd)
		if err != nil {
			return nil, err
		}
		stmt.Else = ebody
	}
	if _, err := p.expect(KwEnd, "'end'"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	tok := p.next() // "while"
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwDo, "'do'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(KwEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwEnd, "'end'"); err != nil {
		return nil, err
	}
	return &WhileStmt{baseNode: baseNode{Line: tok.Line}, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	tok := p.next() // "for"
	name, err := p.expect(IDENT, "loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwIn, "'in'"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwDo, "'do'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(KwEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwEnd, "'end'"); err != nil {
		return nil, err
	}
	return &ForStmt{baseNode: baseNode{Line: tok.Line}, Var: name.Lexeme, Iter: iter, Body: body}, nil
}

func (p *Parser) parseFun() (Stmt, error) {
	tok := p.cur()
	async := p.accept(KwAsync)
	if _, err := p.expect(KwFun, "'fun'"); err != nil {
		return nil, err
	}
	name, err := p.expect(IDENT, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN, "'('"); err != nil {
		return nil, err
	}
	var params []string
	if p.cur().Type != RPAREN {
		for {
			param, err := p.expect(IDENT, "parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, param.Lexeme)
			if !p.accept(COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(KwEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KwEnd, "'end'"); err != nil {
		return nil, err
	}
	return &FuncDecl{
		baseNode: baseNode{Line: tok.Line},
		Name:     name.Lexeme,
		Params:   params,
		Body:     body,
		Async:    async,
	}, nil
}

// Expression parsing by precedence climbing. Lowest binds first:
// or < and < not < comparison < additive < multiplicative < unary < primary.

func (p *Parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == KwOr {
		tok := p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{baseNode: baseNode{Line: tok.Line}, Op: "or", LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == KwAnd {
		tok := p.next()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{baseNode: baseNode{Line: tok.Line}, Op: "and", LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.cur().Type == KwNot {
		tok := p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{baseNode: baseNode{Line: tok.Line}, Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[TokenType]string{
	EQ: "==", NEQ: "!=", LT: "<", LTE: "<=", GT: ">", GTE: ">=",
}

func (p *Parser) parseComparison() (Expr, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.cur().Type]; ok {
		tok := p.next()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{baseNode: baseNode{Line: tok.Line}, Op: op, LHS: lhs, RHS: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == PLUS || p.cur().Type == MINUS {
		tok := p.next()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{baseNode: baseNode{Line: tok.Line}, Op: tok.Lexeme, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == STAR || p.cur().Type == SLASH || p.cur().Type == PERCENT {
		tok := p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{baseNode: baseNode{Line: tok.Line}, Op: tok.Lexeme, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur().Type == MINUS {
		tok := p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{baseNode: baseNode{Line: tok.Line}, Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case KwAwait:
		p.next()
		inner, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		call, ok := inner.(*CallExpr)
		if !ok {
			return nil, fmt.Errorf("line %d: await must be applied to a call", tok.Line)
		}
		call.Await = true
		return call, nil
	case INT:
		p.next()
		return &IntLit{baseNode: baseNode{Line: tok.Line}, Value: tok.Literal.(int64)}, nil
	case FLOAT:
		p.next()
		return &FloatLit{baseNode: baseNode{Line: tok.Line}, Value: tok.Literal.(float64)}, nil
	case STRING:
		p.next()
		return &StringLit{baseNode: baseNode{Line: tok.Line}, Value: tok.Literal.(string)}, nil
	case KwTrue, KwFalse:
		p.next()
		return &BoolLit{baseNode: baseNode{Line: tok.Line}, Value: tok.Type == KwTrue}, nil
	case KwNil:
		p.next()
		return &NilLit{baseNode{Line: tok.Line}}, nil
	case IDENT:
		p.next()
		if p.cur().Type == LPAREN {
			return p.parseCallArgs(tok)
		}
		return &Ident{baseNode: baseNode{Line: tok.Line}, Name: tok.Lexeme}, nil
	case LPAREN:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, fmt.Errorf("line %d: unexpected %q", tok.Line, tok.Lexeme)
}

func (p *Parser) parseCallArgs(name Token) (Expr, error) {
	p.next() // "("
	call := &CallExpr{baseNode: baseNode{Line: name.Line}, Func: name.Lexeme}
	p.skipNewlines()
	if p.cur().Type != RPAREN {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			p.skipNewlines()
			if !p.accept(COMMA) {
				break
			}
			p.skipNewlines()
		}
	}
	if _, err := p.expect(RPAREN, "')'"); err != nil {
		return nil, err
	}
	return call, nil
}
