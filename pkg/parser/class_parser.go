package parser

import (
	"strings"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// =============================================================================
// Classes and modules
// =============================================================================

// parseClass parses class Name < Super ... end and class << obj ... end.
func (p *Parser) parseClass() *ast.Node {
	tok := p.advance()
	if p.accept(lexer.LSHIFT) {
		target := p.parseExpression(precLowest)
		p.pushScope(false)
		defer p.popScope()
		body := p.parseBodyWithRescue(lexer.END)
		p.expect(lexer.END, "end")
		n := p.node(tok, "sclass", target)
		return n.Append(nodes(body)...)
	}

	name := p.parseDefinitionName(tok)
	var super *ast.Node
	if p.accept(lexer.LT) {
		super = p.parseExpression(precLowest)
	}

	p.pushScope(false)
	defer p.popScope()
	defer p.allowDo()()
	body := p.parseBodyWithRescue(lexer.END)
	p.expect(lexer.END, "end")

	n := p.node(tok, "class", name, optional(super))
	n.Comments = tok.Doc
	return n.Append(nodes(body)...)
}

func (p *Parser) parseModule() *ast.Node {
	tok := p.advance()
	name := p.parseDefinitionName(tok)

	p.pushScope(false)
	defer p.popScope()
	defer p.allowDo()()
	body := p.parseBodyWithRescue(lexer.END)
	p.expect(lexer.END, "end")

	n := p.node(tok, "module", name)
	n.Comments = tok.Doc
	return n.Append(nodes(body)...)
}

// parseDefinitionName parses the constant path after class or module. A
// plain constant is rendered as a symbol, a scoped one as its colon2 or
// colon3 node.
func (p *Parser) parseDefinitionName(kw lexer.Token) any {
	if !p.at(lexer.CONSTANT, lexer.COLON_COLON) {
		p.failAt(p.current(), SemanticConstraint, "class/module name must be CONSTANT")
	}
	path := p.parseExpression(precLessGreater)
	switch {
	case path.Is("const"):
		return path.Child(0)
	case path.Is("colon2", "colon3"):
		return path
	}
	p.failAt(kw, SemanticConstraint, "class/module name must be CONSTANT")
	return nil
}

// =============================================================================
// Method definitions
// =============================================================================

// parseDef parses def name(params) ... end, def recv.name, and the
// endless form def name(params) = expr.
func (p *Parser) parseDef() *ast.Node {
	tok := p.advance()
	defer p.allowDo()()

	recv := p.parseDefReceiver()
	name := p.defName()

	p.pushScope(false)
	defer p.popScope()

	params := p.parseDefParams()

	var n *ast.Node
	if recv != nil {
		n = p.node(tok, "defs", recv, ast.Symbol(name), params)
	} else {
		n = p.node(tok, "defn", ast.Symbol(name), params)
	}
	n.Comments = tok.Doc

	if eq := p.current(); eq.Type == lexer.EQUAL {
		if isSetterName(name) {
			p.failAt(eq, SemanticConstraint, "setter method cannot be defined in an endless method definition")
		}
		p.advance()
		return n.Append(p.parseExpression(precAssignmentRHS))
	}

	body := p.parseBodyWithRescue(lexer.END)
	p.expect(lexer.END, "end")
	if len(body) == 0 {
		return n.Append(p.node(tok, "nil"))
	}
	return n.Append(nodes(body)...)
}

// parseDefReceiver parses the singleton receiver of def self.foo,
// def obj.foo or def (expr).foo.
func (p *Parser) parseDefReceiver() *ast.Node {
	tok := p.current()
	if p.peekAt(1).Type != lexer.DOT && tok.Type != lexer.LPAREN {
		return nil
	}
	var recv *ast.Node
	switch tok.Type {
	case lexer.SELF:
		p.advance()
		recv = p.node(tok, "self")
	case lexer.NAME, lexer.CONSTANT, lexer.IVAR, lexer.CVAR, lexer.GVAR:
		recv = p.parseIdentifier()
	case lexer.LPAREN:
		p.advance()
		recv = p.parseExpression(precLowest)
		p.expect(lexer.RPAREN, ")")
	default:
		return nil
	}
	p.expect(lexer.DOT, ".")
	return recv
}

// defName reads the method name. An = written directly after the name
// makes a setter unless it starts an endless body.
func (p *Parser) defName() string {
	tok := p.current()
	name := p.methodName("method name")
	switch name {
	case "!@":
		return "!"
	case "~@":
		return "~"
	}
	if tok.Type == lexer.NAME || tok.Type == lexer.CONSTANT {
		if eq := p.current(); eq.Type == lexer.EQUAL && !eq.WhitespacePrecedes && startsSetterParams(p.peekAt(1).Type) {
			p.advance()
			name += "="
		}
	}
	return name
}

// startsSetterParams reports whether typ may follow the = of a setter
// name: a parameter list, with or without parens, or the end of the
// header.
func startsSetterParams(typ lexer.TokenType) bool {
	switch typ {
	case lexer.LPAREN, lexer.SEMICOLON, lexer.NEWLINE, lexer.EOF,
		lexer.NAME, lexer.STAR, lexer.STAR_STAR, lexer.AMP, lexer.SYMBOL_KEY, lexer.DOT_DOT_DOT:
		return true
	}
	return false
}

func isSetterName(name string) bool {
	switch name {
	case "==", "!=", "<=", ">=", "===":
		return false
	}
	return strings.HasSuffix(name, "=")
}

// parseDefParams parses a parameter list with or without parentheses.
func (p *Parser) parseDefParams() *ast.Node {
	tok := p.current()
	args := p.node(tok, "args")
	if p.accept(lexer.LPAREN) {
		p.skipNewlines()
		for !p.at(lexer.RPAREN) {
			args.Append(p.parseParam(false))
			if !p.accept(lexer.COMMA) {
				break
			}
			p.skipNewlines()
		}
		p.skipNewlines()
		p.expect(lexer.RPAREN, ")")
		return args
	}
	switch tok.Type {
	case lexer.NAME, lexer.STAR, lexer.STAR_STAR, lexer.AMP, lexer.SYMBOL_KEY, lexer.DOT_DOT_DOT:
		for {
			args.Append(p.parseParam(false))
			if !p.accept(lexer.COMMA) {
				break
			}
		}
	}
	return args
}

// parseParam parses one parameter of a def, block or lambda. Plain,
// splat and block parameters render as symbols; defaults and keywords
// as nodes.
func (p *Parser) parseParam(block bool) any {
	tok := p.current()
	switch tok.Type {
	case lexer.NAME:
		p.advance()
		p.declare(tok.Literal)
		if p.accept(lexer.EQUAL) {
			value := p.parseExpression(precDefArg)
			return p.node(tok, "lasgn", ast.Symbol(tok.Literal), value)
		}
		return ast.Symbol(tok.Literal)
	case lexer.STAR:
		p.advance()
		if name := p.current(); name.Type == lexer.NAME {
			p.advance()
			p.declare(name.Literal)
			return ast.Symbol("*" + name.Literal)
		}
		return ast.Symbol("*")
	case lexer.STAR_STAR:
		p.advance()
		switch name := p.current(); name.Type {
		case lexer.NAME:
			p.advance()
			p.declare(name.Literal)
			return ast.Symbol("**" + name.Literal)
		case lexer.NIL:
			p.advance()
			return ast.Symbol("**nil")
		}
		return ast.Symbol("**")
	case lexer.AMP:
		p.advance()
		if name := p.current(); name.Type == lexer.NAME {
			p.advance()
			p.declare(name.Literal)
			return ast.Symbol("&" + name.Literal)
		}
		return ast.Symbol("&")
	case lexer.SYMBOL_KEY:
		p.advance()
		p.declare(tok.Literal)
		kw := p.node(tok, "kwarg", ast.Symbol(tok.Literal))
		if p.at(lexer.COMMA, lexer.RPAREN, lexer.PIPE, lexer.NEWLINE, lexer.EQUAL, lexer.LBRACE, lexer.DO) || p.current().IsEOF() {
			return kw
		}
		return kw.Append(p.parseExpression(precDefArg))
	case lexer.LPAREN:
		return p.parseDestructuringParam()
	case lexer.DOT_DOT_DOT:
		if !block {
			p.advance()
			p.scope.forwarding = true
			return p.node(tok, "forward_args")
		}
	}
	p.unexpected(tok, "parameter")
	return nil
}

// parseDestructuringParam parses a nested (a, b) parameter.
func (p *Parser) parseDestructuringParam() *ast.Node {
	tok := p.advance()
	m := p.node(tok, "masgn")
	for !p.at(lexer.RPAREN) {
		m.Append(p.parseParam(true))
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RPAREN, ")")
	return m
}

// =============================================================================
// alias and undef
// =============================================================================

func (p *Parser) parseAlias() *ast.Node {
	tok := p.advance()
	newName, newGlobal := p.parseAliasName()
	oldTok := p.current()
	oldName, oldGlobal := p.parseAliasName()
	if newGlobal && oldGlobal {
		return p.node(tok, "valias", newName.Child(0), oldName.Child(0))
	}
	// an operator name swallowed the line break that ended the statement
	if oldTok.CanPrecedeCollapsibleNewline() && p.current().Line > oldTok.Line {
		p.unread(lexer.NewToken(lexer.NEWLINE, "", oldTok.Line, oldTok.Column+len(oldTok.TypeValue())))
	}
	return p.node(tok, "alias", newName, oldName)
}

// parseAliasName reads one method name for alias or undef. The flag
// reports a global variable name.
func (p *Parser) parseAliasName() (*ast.Node, bool) {
	tok := p.current()
	switch tok.Type {
	case lexer.GVAR, lexer.BACK_REF, lexer.NTH_REF:
		p.advance()
		return p.node(tok, "lit", ast.Symbol(tok.Literal)), true
	case lexer.SYMBOL:
		p.advance()
		return p.node(tok, "lit", ast.Symbol(tok.Literal)), false
	case lexer.DSYM:
		return p.parseString(false), false
	}
	return p.node(tok, "lit", ast.Symbol(p.methodName("method name"))), false
}

func (p *Parser) parseUndef() *ast.Node {
	tok := p.advance()
	var list []*ast.Node
	for {
		name, _ := p.parseAliasName()
		list = append(list, p.nodeFrom(name, "undef", name))
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	if len(list) == 1 {
		return list[0]
	}
	return p.node(tok, "block", nodes(list)...)
}
