package parser

import (
	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// parseIn parses one `in pattern [if guard] then body` clause. Pattern
// variables are bound at match time and are not declared as locals.
func (p *Parser) parseIn() *ast.Node {
	tok := p.advance()
	pat := p.parseTopPattern()

	switch guard := p.current(); guard.Type {
	case lexer.IF:
		p.advance()
		pat = p.node(guard, "if", p.parseExpression(precLowest), pat, nil)
	case lexer.UNLESS:
		p.advance()
		pat = p.node(guard, "if", p.parseExpression(precLowest), nil, pat)
	}

	p.expectThen(lexer.THEN)
	body := p.parseStatements(lexer.IN, lexer.ELSE, lexer.END)
	return p.clause(tok, "in", pat, body)
}

// parseTopPattern allows the unbracketed forms: in a, *b and in x: 1.
func (p *Parser) parseTopPattern() *ast.Node {
	tok := p.current()
	switch tok.Type {
	case lexer.SYMBOL_KEY, lexer.STAR_STAR:
		pat := p.node(tok, "hash_pat", nil)
		return pat.Append(p.parseHashPatternPairs("")...)
	}

	var first any
	if tok.Type == lexer.STAR {
		first = p.parseSplatPattern()
	} else {
		first = p.parsePattern()
		if !p.at(lexer.COMMA) {
			return first.(*ast.Node)
		}
	}
	elems := []any{first}
	for p.accept(lexer.COMMA) {
		if p.at(lexer.THEN, lexer.NEWLINE, lexer.IF, lexer.UNLESS) {
			break
		}
		elems = append(elems, p.parseArrayPatternElem())
	}
	return p.arrayPattern(tok, nil, elems)
}

// parsePattern parses alternatives with an optional => binding.
func (p *Parser) parsePattern() *ast.Node {
	pat := p.parsePrimaryPattern()
	for p.at(lexer.PIPE) {
		p.advance()
		pat = p.nodeFrom(pat, "or", pat, p.parsePrimaryPattern())
	}
	for p.at(lexer.HASH_ROCKET) {
		p.advance()
		name := p.expect(lexer.NAME, "local variable")
		pat = p.nodeFrom(pat, "lasgn", ast.Symbol(name.Literal), pat)
	}
	return pat
}

func (p *Parser) parsePrimaryPattern() *ast.Node {
	tok := p.current()
	switch tok.Type {
	case lexer.NAME:
		p.advance()
		return p.node(tok, "lvar", ast.Symbol(tok.Literal))
	case lexer.CARET:
		return p.parsePinPattern()
	case lexer.CONSTANT, lexer.COLON_COLON:
		return p.parseConstantPattern()
	case lexer.LBRACKET_RBRACKET:
		p.advance()
		return p.node(tok, "array_pat")
	case lexer.LBRACKET:
		p.advance()
		elems := p.parseArrayPatternElems(lexer.RBRACKET)
		p.expect(lexer.RBRACKET, "]")
		return p.arrayPattern(tok, nil, elems)
	case lexer.LBRACE:
		p.advance()
		pat := p.node(tok, "hash_pat", nil)
		pat.Append(p.parseHashPatternPairs(lexer.RBRACE)...)
		p.expect(lexer.RBRACE, "}")
		return pat
	case lexer.LPAREN:
		p.advance()
		pat := p.parsePattern()
		p.expect(lexer.RPAREN, ")")
		return pat
	}
	return p.parseValuePattern()
}

// parseValuePattern parses literals and ranges matched with ===.
func (p *Parser) parseValuePattern() *ast.Node {
	tok := p.current()
	if tok.Type == lexer.DOT_DOT || tok.Type == lexer.DOT_DOT_DOT {
		p.advance()
		return p.node(tok, rangeTag(tok), nil, p.parseExpression(precBitwiseOr))
	}
	value := p.parseExpression(precBitwiseOr)
	if op := p.current(); op.Type == lexer.DOT_DOT || op.Type == lexer.DOT_DOT_DOT {
		p.advance()
		var high *ast.Node
		if next := p.current(); next.CanBeRangeArg() && next.Type != lexer.PIPE {
			high = p.parseExpression(precBitwiseOr)
		}
		return p.rangeNode(op, value, high)
	}
	return value
}

// parsePinPattern parses ^name, ^@ivar and ^(expr).
func (p *Parser) parsePinPattern() *ast.Node {
	tok := p.advance()
	cur := p.current()
	switch cur.Type {
	case lexer.NAME:
		p.advance()
		return p.node(tok, "pin", p.node(cur, "lvar", ast.Symbol(cur.Literal)))
	case lexer.IVAR, lexer.CVAR, lexer.GVAR:
		return p.node(tok, "pin", p.parseIdentifier())
	case lexer.LPAREN:
		p.advance()
		expr := p.parseExpression(precLowest)
		p.expect(lexer.RPAREN, ")")
		return p.node(tok, "pin", expr)
	}
	p.unexpected(cur, "pinned expression")
	return nil
}

// parseConstantPattern parses Const, Const::Path, Const(...) and
// Const[...].
func (p *Parser) parseConstantPattern() *ast.Node {
	tok := p.advance()
	var c *ast.Node
	if tok.Type == lexer.COLON_COLON {
		name := p.expect(lexer.CONSTANT, "constant")
		c = p.node(tok, "colon3", ast.Symbol(name.Literal))
	} else {
		c = p.node(tok, "const", ast.Symbol(tok.Literal))
	}
	for p.at(lexer.COLON_COLON) {
		p.advance()
		name := p.expect(lexer.CONSTANT, "constant")
		c = p.nodeFrom(c, "colon2", c, ast.Symbol(name.Literal))
	}

	open := p.current()
	if open.WhitespacePrecedes || (open.Type != lexer.LPAREN && open.Type != lexer.LBRACKET) {
		if open.Type == lexer.DOT_DOT || open.Type == lexer.DOT_DOT_DOT {
			p.advance()
			return p.rangeNode(open, c, p.parseExpression(precBitwiseOr))
		}
		return c
	}
	closer := lexer.RPAREN
	if open.Type == lexer.LBRACKET {
		closer = lexer.RBRACKET
	}
	p.advance()
	var pat *ast.Node
	if p.at(lexer.SYMBOL_KEY, lexer.STAR_STAR) {
		pat = p.nodeFrom(c, "hash_pat", c)
		pat.Append(p.parseHashPatternPairs(closer)...)
	} else {
		pat = p.arrayPattern(tok, c, p.parseArrayPatternElems(closer))
		pat.PositionFrom(c)
	}
	p.expect(closer, string(closer))
	return pat
}

// parseArrayPatternElems parses elements up to closer, which is left for
// the caller.
func (p *Parser) parseArrayPatternElems(closer lexer.TokenType) []any {
	var elems []any
	p.skipNewlines()
	for !p.at(closer) {
		elems = append(elems, p.parseArrayPatternElem())
		if !p.accept(lexer.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.skipNewlines()
	return elems
}

func (p *Parser) parseArrayPatternElem() any {
	if p.at(lexer.STAR) {
		return p.parseSplatPattern()
	}
	return p.parsePattern()
}

// parseSplatPattern parses *rest or a bare * and renders it as a symbol.
func (p *Parser) parseSplatPattern() ast.Symbol {
	p.expect(lexer.STAR, "*")
	if name := p.current(); name.Type == lexer.NAME {
		p.advance()
		return ast.Symbol("*" + name.Literal)
	}
	return ast.Symbol("*")
}

// arrayPattern builds array_pat, or find_pat when the elements are
// bracketed by splats: [*, x, *].
func (p *Parser) arrayPattern(tok lexer.Token, c *ast.Node, elems []any) *ast.Node {
	tag := "array_pat"
	if len(elems) >= 3 {
		_, firstSplat := elems[0].(ast.Symbol)
		_, lastSplat := elems[len(elems)-1].(ast.Symbol)
		if firstSplat && lastSplat {
			tag = "find_pat"
		}
	}
	if c == nil && len(elems) == 0 {
		return p.node(tok, tag)
	}
	n := p.node(tok, tag, optional(c))
	return n.Append(elems...)
}

// parseHashPatternPairs parses key: pattern pairs and **rest. A key
// without a pattern binds a variable of the same name.
func (p *Parser) parseHashPatternPairs(closer lexer.TokenType) []any {
	var pairs []any
	p.skipNewlines()
	for closer == "" || !p.at(closer) {
		tok := p.current()
		if tok.Type == lexer.STAR_STAR {
			p.advance()
			rest := "**"
			switch name := p.current(); name.Type {
			case lexer.NAME:
				p.advance()
				rest += name.Literal
			case lexer.NIL:
				p.advance()
				rest += "nil"
			}
			pairs = append(pairs, p.node(tok, "kwrest", ast.Symbol(rest)))
		} else {
			key := p.parseHashPatternKey()
			if p.at(lexer.COMMA, lexer.NEWLINE, lexer.THEN, lexer.IF, lexer.UNLESS) || (closer != "" && p.at(closer)) {
				pairs = append(pairs, key, nil)
			} else {
				pairs = append(pairs, key, p.parsePattern())
			}
		}
		if !p.accept(lexer.COMMA) {
			break
		}
		if closer != "" {
			p.skipNewlines()
		}
	}
	if closer != "" {
		p.skipNewlines()
	}
	return pairs
}

func (p *Parser) parseHashPatternKey() *ast.Node {
	tok := p.current()
	switch tok.Type {
	case lexer.SYMBOL_KEY:
		p.advance()
		return p.node(tok, "lit", ast.Symbol(tok.Literal))
	case lexer.DSTR:
		key := p.parseString(false)
		if p.flagged(key, markSymbolKey) {
			return key
		}
	}
	p.unexpected(tok, "symbol key")
	return nil
}
