package parser

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// parseExpression parses one expression, continuing while the next
// operator binds tighter than prec.
func (p *Parser) parseExpression(prec precedence) *ast.Node {
	p.skipNewlines()
	tok := p.current()

	p.depth++
	if p.depth > p.maxDepth {
		p.failAt(tok, ResourceExhausted, "nesting too deep")
	}
	p.precs = append(p.precs, prec)
	defer func() {
		p.precs = p.precs[:len(p.precs)-1]
		p.depth--
	}()

	left := p.parseNull(tok)
	for {
		tok = p.current()
		next := p.precedenceOf(tok, left)
		if !p.higher(next, prec, left) {
			return left
		}
		left = p.parseLeft(tok, left, next)
	}
}

// currentPrecedence is the level the innermost parseExpression was
// entered with.
func (p *Parser) currentPrecedence() precedence {
	if len(p.precs) == 0 {
		return precLowest
	}
	return p.precs[len(p.precs)-1]
}

// parseNull parses a token that starts an expression.
func (p *Parser) parseNull(tok lexer.Token) *ast.Node {
	switch tok.Type {
	case lexer.ALIAS:
		return p.parseAlias()
	case lexer.LBRACKET, lexer.LBRACKET_RBRACKET:
		return p.parseArray()
	case lexer.BACK_REF:
		p.advance()
		return p.node(tok, "back_ref", ast.Symbol(strings.TrimPrefix(tok.Literal, "$")))
	case lexer.NTH_REF:
		p.advance()
		return p.node(tok, "nth_ref", tok.Fixnum)
	case lexer.BEGIN:
		return p.parseBegin()
	case lexer.BEGIN_UPPER, lexer.END_UPPER:
		return p.parsePrePostExe()
	case lexer.AMP:
		return p.parseBlockPass()
	case lexer.TRUE, lexer.FALSE, lexer.NIL, lexer.SELF, lexer.REDO, lexer.RETRY:
		p.advance()
		return p.node(tok, string(tok.Type))
	case lexer.BREAK, lexer.NEXT:
		return p.parseBreakNext()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.CASE:
		return p.parseCase()
	case lexer.CLASS:
		return p.parseClass()
	case lexer.MODULE:
		return p.parseModule()
	case lexer.DEF:
		return p.parseDef()
	case lexer.DEFINED:
		return p.parseDefined()
	case lexer.DOT_DOT, lexer.DOT_DOT_DOT:
		p.advance()
		high := p.parseExpression(precRange)
		return p.node(tok, rangeTag(tok), nil, high)
	case lexer.FILE_KW:
		p.advance()
		return p.node(tok, "str", p.file)
	case lexer.LINE_KW:
		p.advance()
		return p.node(tok, "lit", int64(tok.Line))
	case lexer.ENCODING_KW:
		p.advance()
		return p.node(tok, "colon2", p.node(tok, "const", ast.Symbol("Encoding")), ast.Symbol("UTF_8"))
	case lexer.LPAREN:
		return p.parseGroup()
	case lexer.LBRACE:
		return p.parseHash()
	case lexer.NAME, lexer.CONSTANT, lexer.IVAR, lexer.CVAR, lexer.GVAR:
		return p.parseIdentifier()
	case lexer.IF:
		return p.parseIf()
	case lexer.UNLESS:
		return p.parseUnless()
	case lexer.WHILE, lexer.UNTIL:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.DSTR, lexer.DXSTR, lexer.DREGX, lexer.DSYM, lexer.STRING:
		return p.parseString(true)
	case lexer.STAR_STAR:
		p.advance()
		return p.node(tok, "kwsplat", p.parseExpression(precSplat))
	case lexer.STAR:
		return p.parseSplat()
	case lexer.FIXNUM, lexer.BIGNUM, lexer.FLOAT, lexer.RATIONAL, lexer.COMPLEX, lexer.RATIONAL_COMPLEX:
		p.advance()
		return p.node(tok, "lit", p.numberValue(tok))
	case lexer.BANG, lexer.NOT_KW:
		return p.parseNot()
	case lexer.ARROW:
		return p.parseLambda()
	case lexer.SUPER:
		return p.parseSuper()
	case lexer.YIELD:
		return p.parseYield()
	case lexer.SYMBOL:
		p.advance()
		return p.node(tok, "lit", ast.Symbol(tok.Literal))
	case lexer.SYMBOL_KEY:
		p.advance()
		return p.flag(p.node(tok, "lit", ast.Symbol(tok.Literal)), markSymbolKey)
	case lexer.COLON_COLON:
		p.advance()
		name := p.expect(lexer.CONSTANT, "constant")
		return p.node(tok, "colon3", ast.Symbol(name.Literal))
	case lexer.MINUS, lexer.PLUS, lexer.TILDE:
		return p.parseUnary()
	case lexer.UNDEF:
		return p.parseUndef()
	case lexer.WORDS_LOWER_W, lexer.WORDS_UPPER_W, lexer.WORDS_LOWER_I, lexer.WORDS_UPPER_I:
		return p.parseWords()
	}
	p.unexpected(tok, "expression")
	return nil
}

// parseLeft continues left with the operator tok.
func (p *Parser) parseLeft(tok lexer.Token, left *ast.Node, prec precedence) *ast.Node {
	if prec == precCall && p.isCallable(left) && (tok.Type != lexer.LPAREN || tok.WhitespacePrecedes) {
		return p.parseCommandCall(left)
	}

	switch tok.Type {
	case lexer.EQUAL:
		return p.parseAssignment(left)
	case lexer.LPAREN:
		return p.parseCallWithParens(left)
	case lexer.COLON_COLON:
		return p.parseConstantResolution(left)
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT, lexer.CMP,
		lexer.LT, lexer.LE, lexer.GT, lexer.GE, lexer.EQ_EQ, lexer.EQ_EQ_EQ, lexer.NOT_EQ,
		lexer.LSHIFT, lexer.RSHIFT, lexer.AMP, lexer.PIPE, lexer.CARET:
		p.advance()
		right := p.parseExpression(prec)
		return p.nodeFrom(left, "call", left, ast.Symbol(tok.TypeValue()), right)
	case lexer.STAR_STAR:
		// right associative
		p.advance()
		right := p.parseExpression(prec - 1)
		return p.nodeFrom(left, "call", left, ast.Symbol("**"), right)
	case lexer.MATCH:
		p.advance()
		return p.matchNode(left, p.parseExpression(prec))
	case lexer.NOT_MATCH:
		p.advance()
		return p.nodeFrom(left, "not", p.matchNode(left, p.parseExpression(prec)))
	case lexer.DO, lexer.LBRACE:
		return p.parseIter(left)
	case lexer.AMP_AMP, lexer.AND_KW:
		p.advance()
		return p.logical("and", left, p.parseExpression(prec))
	case lexer.PIPE_PIPE, lexer.OR_KW:
		p.advance()
		return p.logical("or", left, p.parseExpression(prec))
	case lexer.IF, lexer.UNLESS, lexer.WHILE, lexer.UNTIL:
		return p.parseModifier(left)
	case lexer.RESCUE:
		p.advance()
		value := p.parseExpression(prec)
		resbody := p.nodeFrom(value, "resbody", p.node(tok, "array"), value)
		return p.nodeFrom(left, "rescue", left, resbody)
	case lexer.COMMA:
		return p.parseMultipleAssignment(left)
	case lexer.DOT_DOT, lexer.DOT_DOT_DOT:
		return p.parseRange(left)
	case lexer.LBRACKET, lexer.LBRACKET_RBRACKET:
		return p.parseElementReference(left)
	case lexer.DOT, lexer.SAFE_NAV:
		return p.parseSend(left)
	case lexer.TERNARY_QUESTION:
		return p.parseTernary(left)
	}
	if tok.IsOpAssign() {
		return p.parseOpAssignment(left)
	}
	p.unexpected(tok, "expression")
	return nil
}

// =============================================================================
// Identifiers and literals
// =============================================================================

func (p *Parser) parseIdentifier() *ast.Node {
	tok := p.advance()
	name := ast.Symbol(tok.Literal)
	switch tok.Type {
	case lexer.NAME:
		if p.isLocal(tok.Literal) {
			return p.flag(p.node(tok, "lvar", name), markLvar|markBareIdent)
		}
		return p.flag(p.node(tok, "call", nil, name), markBareIdent|markCallable)
	case lexer.CONSTANT:
		return p.flag(p.node(tok, "const", name), markBareIdent|markCallable)
	case lexer.IVAR:
		return p.node(tok, "ivar", name)
	case lexer.CVAR:
		return p.node(tok, "cvar", name)
	}
	return p.node(tok, "gvar", name)
}

// numberValue converts a numeric token to its literal atom.
func (p *Parser) numberValue(tok lexer.Token) any {
	switch tok.Type {
	case lexer.FIXNUM:
		return tok.Fixnum
	case lexer.FLOAT:
		return tok.Float
	case lexer.BIGNUM:
		return p.bignum(tok, tok.Literal)
	case lexer.RATIONAL:
		return p.rational(tok, tok.Literal)
	case lexer.RATIONAL_COMPLEX:
		return ast.Complex{Imag: p.rational(tok, tok.Literal)}
	case lexer.COMPLEX:
		if strings.ContainsAny(tok.Literal, ".eE") {
			f, err := strconv.ParseFloat(strings.ReplaceAll(tok.Literal, "_", ""), 64)
			if err != nil {
				p.failAt(tok, UnexpectedToken, "invalid number '%s'", tok.Literal)
			}
			return ast.Complex{Imag: f}
		}
		if i, err := strconv.ParseInt(strings.ReplaceAll(tok.Literal, "_", ""), 10, 64); err == nil {
			return ast.Complex{Imag: i}
		}
		return ast.Complex{Imag: p.bignum(tok, tok.Literal)}
	}
	p.unexpected(tok, "number")
	return nil
}

// bignum parses raw integer text in any of Ruby's bases.
func (p *Parser) bignum(tok lexer.Token, raw string) ast.Bignum {
	text := raw
	if len(text) > 2 && text[0] == '0' && (text[1] == 'd' || text[1] == 'D') {
		text = text[2:]
	}
	i, ok := new(big.Int).SetString(text, 0)
	if !ok {
		p.failAt(tok, UnexpectedToken, "invalid number '%s'", raw)
	}
	return ast.Bignum{Decimal: decimal.NewFromBigInt(i, 0)}
}

func (p *Parser) rational(tok lexer.Token, digits string) ast.Rational {
	r, err := ast.NewRational(strings.ReplaceAll(digits, "_", ""))
	if err != nil {
		p.failAt(tok, UnexpectedToken, "invalid number '%s'", digits)
	}
	return r
}

// negate flips the sign of a numeric literal atom.
func negate(v any) any {
	switch x := v.(type) {
	case int64:
		return -x
	case float64:
		return -x
	case ast.Bignum:
		neg := x.Neg()
		if neg.GreaterThanOrEqual(decimal.NewFromInt(math.MinInt64)) && neg.LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
			return neg.IntPart()
		}
		return ast.Bignum{Decimal: neg}
	case ast.Rational:
		return ast.Rational{Rat: new(big.Rat).Neg(x.Rat)}
	case ast.Complex:
		return ast.Complex{Imag: negate(x.Imag)}
	}
	return v
}

// =============================================================================
// Operators
// =============================================================================

// parseUnary handles prefix - + and ~. A sign directly on a number folds
// into the literal.
func (p *Parser) parseUnary() *ast.Node {
	tok := p.advance()
	prec := precUnaryPlus
	if tok.Type == lexer.MINUS {
		prec = precUnaryMinus
	}
	operand := p.parseExpression(prec)
	if tok.Type != lexer.TILDE && isNumericLit(operand) && !p.flagged(operand, markParens) {
		if tok.Type == lexer.MINUS {
			operand.Children[0] = negate(operand.Children[0])
		}
		operand.Location = ast.Location{Line: tok.Line, Col: tok.Column + 1}
		return operand
	}
	method := "~"
	switch tok.Type {
	case lexer.MINUS:
		method = "-@"
	case lexer.PLUS:
		method = "+@"
	}
	return p.node(tok, "call", operand, ast.Symbol(method))
}

func (p *Parser) parseNot() *ast.Node {
	tok := p.advance()
	prec := precUnaryPlus
	if tok.Type == lexer.NOT_KW {
		prec = precExprModifier
		if p.at(lexer.LPAREN) && p.peekAt(1).Type == lexer.RPAREN {
			p.advance()
			p.advance()
			return p.node(tok, "call", p.node(tok, "nil"), ast.Symbol("!"))
		}
	}
	operand := p.parseExpression(prec)
	return p.node(tok, "call", operand, ast.Symbol("!"))
}

func (p *Parser) parseSplat() *ast.Node {
	tok := p.advance()
	switch p.current().Type {
	case lexer.COMMA, lexer.EQUAL, lexer.RPAREN, lexer.PIPE, lexer.RBRACKET, lexer.NEWLINE, lexer.EOF:
		return p.node(tok, "splat")
	}
	return p.node(tok, "splat", p.parseExpression(precSplat))
}

func (p *Parser) parseBlockPass() *ast.Node {
	tok := p.advance()
	if p.at(lexer.RPAREN, lexer.COMMA) {
		return p.node(tok, "block_pass")
	}
	return p.node(tok, "block_pass", p.parseExpression(precUnaryPlus))
}

// matchNode builds =~: match2 for a regexp literal on the left, match3
// for one on the right, a plain call otherwise.
func (p *Parser) matchNode(left, right *ast.Node) *ast.Node {
	switch {
	case isRegexp(left):
		return p.nodeFrom(left, "match2", left, right)
	case isRegexp(right):
		return p.nodeFrom(left, "match3", right, left)
	}
	return p.nodeFrom(left, "call", left, ast.Symbol("=~"), right)
}

func isRegexp(n *ast.Node) bool {
	if n.Is("dregx", "dregx_once") {
		return true
	}
	if !n.Is("lit") {
		return false
	}
	_, ok := n.Child(0).(ast.Regexp)
	return ok
}

// logical builds and/or nodes, nesting chains to the right:
// a && b && c becomes and(a, and(b, c)).
func (p *Parser) logical(tag string, left, right *ast.Node) *ast.Node {
	if left.Is(tag) && !p.flagged(left, markParens) {
		inner := left.NodeAt(1)
		return p.nodeFrom(left, tag, left.Child(0), p.logical(tag, inner, right))
	}
	return p.nodeFrom(left, tag, left, right)
}

func (p *Parser) parseTernary(cond *ast.Node) *ast.Node {
	p.advance()
	p.skipNewlines()
	then := p.parseExpression(precTernaryTrue)
	p.skipNewlines()
	p.expect(lexer.TERNARY_COLON, ":")
	els := p.parseExpression(precTernaryFalse)
	return p.nodeFrom(cond, "if", cond, then, els)
}

func rangeTag(tok lexer.Token) string {
	if tok.Type == lexer.DOT_DOT_DOT {
		return "dot3"
	}
	return "dot2"
}

// parseRange parses low..high. A missing high end makes an endless
// range; a newline is skipped when a range argument follows it.
func (p *Parser) parseRange(low *ast.Node) *ast.Node {
	tok := p.advance()
	if p.current().IsNewline() && p.peekAt(1).CanBeRangeArg() {
		p.skipNewlines()
	}
	var high *ast.Node
	if p.current().CanBeRangeArg() {
		high = p.parseExpression(precRange)
	}
	return p.rangeNode(tok, low, high)
}

// rangeNode folds integer endpoints into a range literal.
func (p *Parser) rangeNode(tok lexer.Token, low, high *ast.Node) *ast.Node {
	if low.Is("lit") && high.Is("lit") {
		lo, lok := low.Child(0).(int64)
		hi, hok := high.Child(0).(int64)
		if lok && hok {
			return p.nodeFrom(low, "lit", ast.Range{Low: lo, High: hi, Exclusive: tok.Type == lexer.DOT_DOT_DOT})
		}
	}
	n := p.node(tok, rangeTag(tok), optional(low), optional(high))
	if low != nil {
		n.PositionFrom(low)
	}
	return n
}

// =============================================================================
// Groups and collections
// =============================================================================

func (p *Parser) parseGroup() *ast.Node {
	tok := p.advance()
	defer p.allowDo()()
	p.skipNewlines()
	if p.accept(lexer.RPAREN) {
		return p.flag(p.node(tok, "nil"), markParens)
	}
	stmts := p.parseStatements(lexer.RPAREN)
	p.expect(lexer.RPAREN, ")")
	n := p.blockOf(stmts)
	if n == nil {
		return p.flag(p.node(tok, "nil"), markParens)
	}
	if n.Is("masgn") && n.Len() == 1 && !p.at(lexer.EQUAL, lexer.COMMA, lexer.RPAREN, lexer.IN, lexer.PIPE) {
		p.unexpected(p.current(), "=")
	}
	p.unflag(n, markCallable|markBareIdent)
	return p.flag(n, markParens)
}

// parseArray parses [a, b]. Trailing pairs become a bare hash that must
// close the array.
func (p *Parser) parseArray() *ast.Node {
	tok := p.advance()
	arr := p.node(tok, "array")
	if tok.Type == lexer.LBRACKET_RBRACKET {
		return arr
	}
	defer p.allowDo()()
	p.skipNewlines()
	for !p.at(lexer.RBRACKET) {
		el := p.parseExpression(precArray)
		if p.startsPair(el) {
			pairs := p.parseHashInner(el, precArray, lexer.RBRACKET)
			arr.Append(p.nodeFrom(el, "bare_hash", pairs...))
			p.skipNewlines()
			if !p.at(lexer.RBRACKET) {
				p.unexpected(p.current(), "array closing bracket")
			}
			break
		}
		arr.Append(el)
		if !p.accept(lexer.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.skipNewlines()
	p.expect(lexer.RBRACKET, "]")
	return arr
}

func (p *Parser) parseHash() *ast.Node {
	tok := p.advance()
	defer p.allowDo()()
	h := p.node(tok, "hash")
	p.skipNewlines()
	if !p.at(lexer.RBRACE) {
		first := p.parseExpression(precHash)
		h.Append(p.parseHashInner(first, precHash, lexer.RBRACE)...)
	}
	p.skipNewlines()
	p.expect(lexer.RBRACE, "}")
	return h
}

// startsPair reports whether el opens key/value pairs.
func (p *Parser) startsPair(el *ast.Node) bool {
	return p.flagged(el, markSymbolKey) || el.Is("kwsplat") || p.at(lexer.HASH_ROCKET)
}

// parseHashInner parses pairs starting with an already parsed key. It
// stops before closer, or after a comma that precedes a block pass.
func (p *Parser) parseHashInner(key *ast.Node, prec precedence, closer lexer.TokenType) []any {
	var pairs []any
	for {
		switch {
		case key.Is("kwsplat"):
			pairs = append(pairs, key)
		case p.flagged(key, markSymbolKey):
			pairs = append(pairs, key, p.parseExpression(prec))
		default:
			p.expect(lexer.HASH_ROCKET, "hash rocket")
			pairs = append(pairs, key, p.parseExpression(prec))
		}
		if !p.at(lexer.COMMA) {
			return pairs
		}
		p.advance()
		p.skipNewlines()
		if (closer != "" && p.at(closer)) || p.at(lexer.AMP) {
			return pairs
		}
		key = p.parseExpression(prec)
	}
}

// parseWords parses %w %W %i %I arrays.
func (p *Parser) parseWords() *ast.Node {
	tok := p.advance()
	arr := p.node(tok, "array")
	symbols := tok.Type == lexer.WORDS_LOWER_I || tok.Type == lexer.WORDS_UPPER_I
	for _, w := range tok.Words {
		if w.Parts == nil {
			if symbols {
				arr.Append(p.node(tok, "lit", ast.Symbol(w.Text)))
			} else {
				arr.Append(p.node(tok, "str", w.Text))
			}
			continue
		}
		p.buf = append(append([]lexer.Token(nil), w.Parts...), p.buf...)
		word := p.parseString(false)
		if symbols {
			word = p.toSymbol(word)
		}
		arr.Append(word)
	}
	return arr
}

// allowDo lets do open blocks again inside brackets; the returned func
// restores the previous setting.
func (p *Parser) allowDo() func() {
	saved := p.noDo
	p.noDo = false
	return func() { p.noDo = saved }
}
