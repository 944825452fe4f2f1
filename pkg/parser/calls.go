package parser

import (
	"strconv"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// =============================================================================
// Call targets and arguments
// =============================================================================

// callTarget turns left into a call node that can take arguments or a
// block. A bare local or constant followed by arguments is a method call.
func (p *Parser) callTarget(left *ast.Node) (*ast.Node, bool) {
	switch {
	case left.Is("call", "safe_call", "super", "zsuper"):
		return left, true
	case left.Is("lvar", "const") && p.flagged(left, markBareIdent):
		return p.nodeFrom(left, "call", nil, left.Child(0)), true
	}
	return nil, false
}

// parseCommandCall parses the arguments of a call written without
// parentheses: puts 1, 2.
func (p *Parser) parseCommandCall(left *ast.Node) *ast.Node {
	call, ok := p.callTarget(left)
	if !ok {
		p.failAt(p.current(), NotCallable, "%s cannot take arguments", left.Tag)
	}
	call.Append(nodes(p.parseArgs(precBareCallArg, ""))...)
	p.unflag(call, markCallable|markBareIdent)
	return call
}

// parseCallWithParens parses foo(...) with the ( as current token.
func (p *Parser) parseCallWithParens(left *ast.Node) *ast.Node {
	tok := p.current()
	call, ok := p.callTarget(left)
	if !ok {
		p.failAt(tok, NotCallable, "%s is not callable", left.Tag)
	}
	call.Append(nodes(p.parseParenArgs())...)
	p.unflag(call, markCallable|markBareIdent)
	return p.flag(call, markParens)
}

// parseParenArgs parses a parenthesized argument list.
func (p *Parser) parseParenArgs() []*ast.Node {
	p.expect(lexer.LPAREN, "(")
	restore := p.allowDo()
	args := p.parseArgs(precCallArg, lexer.RPAREN)
	restore()
	p.skipNewlines()
	p.expect(lexer.RPAREN, ")")
	return args
}

// parseArgs parses call arguments. With a closer the list may be empty
// and may end in a trailing comma; without one it ends at the first
// argument not followed by a comma. Trailing pairs collect into a bare
// hash.
func (p *Parser) parseArgs(prec precedence, closer lexer.TokenType) []*ast.Node {
	var args []*ast.Node
	if closer != "" {
		p.skipNewlines()
		if p.at(closer) {
			return nil
		}
	}
	for {
		if closer == lexer.RPAREN && p.at(lexer.DOT_DOT_DOT) && p.peekAt(1).Type == lexer.RPAREN {
			tok := p.advance()
			if !p.canForward() {
				p.failAt(tok, SemanticConstraint, "unexpected ... (no anonymous rest parameter)")
			}
			args = append(args, p.node(tok, "forward_args"))
			break
		}
		arg := p.parseExpression(prec)
		if p.startsPair(arg) {
			pairs := p.parseHashInner(arg, prec, closer)
			args = append(args, p.nodeFrom(arg, "bare_hash", pairs...))
			if p.at(lexer.AMP) {
				args = append(args, p.parseExpression(prec))
			}
			break
		}
		args = append(args, arg)
		if !p.accept(lexer.COMMA) {
			break
		}
		p.skipNewlines()
		if closer != "" && p.at(closer) {
			break
		}
	}
	return args
}

// commandArgFollows reports whether the current token starts arguments
// for a keyword like super or yield written without parentheses.
func (p *Parser) commandArgFollows() bool {
	tok := p.current()
	switch tok.Type {
	case lexer.MINUS, lexer.PLUS, lexer.STAR, lexer.STAR_STAR, lexer.AMP, lexer.COLON_COLON:
		next := p.peekAt(1)
		return tok.WhitespacePrecedes && !next.WhitespacePrecedes && !next.IsNewline() && !next.IsEOF()
	case lexer.LBRACKET, lexer.LBRACKET_RBRACKET, lexer.LPAREN:
		return tok.WhitespacePrecedes
	}
	return tok.CanBeFirstArgOfImplicitCall()
}

// =============================================================================
// Sends
// =============================================================================

// parseSend parses recv.name and recv&.name, with optional arguments in
// parentheses. recv.() calls :call.
func (p *Parser) parseSend(recv *ast.Node) *ast.Node {
	op := p.advance()
	tag := "call"
	if op.Type == lexer.SAFE_NAV {
		tag = "safe_call"
	}
	p.skipNewlines()
	if p.at(lexer.LPAREN) {
		call := p.nodeFrom(recv, tag, recv, ast.Symbol("call"))
		call.Append(nodes(p.parseParenArgs())...)
		return p.flag(call, markParens)
	}
	name := p.methodName("method name")
	return p.finishSend(p.nodeFrom(recv, tag, recv, ast.Symbol(name)))
}

// finishSend attaches parenthesized arguments if they follow directly,
// otherwise leaves the call open for command arguments.
func (p *Parser) finishSend(call *ast.Node) *ast.Node {
	if tok := p.current(); tok.Type == lexer.LPAREN && !tok.WhitespacePrecedes {
		call.Append(nodes(p.parseParenArgs())...)
		return p.flag(call, markParens)
	}
	return p.flag(call, markCallable)
}

// methodName consumes a method name after . :: def or alias.
func (p *Parser) methodName(expected string) string {
	tok := p.current()
	switch {
	case tok.Type == lexer.NAME, tok.Type == lexer.CONSTANT:
		p.advance()
		return tok.Literal
	case tok.IsOperator(), tok.IsKeyword():
		p.advance()
		return tok.TypeValue()
	case tok.Type == lexer.IVAR, tok.Type == lexer.GVAR, tok.Type == lexer.CVAR:
		p.advance()
		return tok.Literal
	}
	p.unexpected(tok, expected)
	return ""
}

// parseConstantResolution parses Foo::Bar, Foo::bar and Foo::(args).
func (p *Parser) parseConstantResolution(left *ast.Node) *ast.Node {
	p.advance()
	tok := p.current()
	switch tok.Type {
	case lexer.CONSTANT:
		p.advance()
		if next := p.current(); next.Type == lexer.LPAREN && !next.WhitespacePrecedes {
			call := p.nodeFrom(left, "call", left, ast.Symbol(tok.Literal))
			call.Append(nodes(p.parseParenArgs())...)
			return p.flag(call, markParens)
		}
		return p.nodeFrom(left, "colon2", left, ast.Symbol(tok.Literal))
	case lexer.LPAREN:
		call := p.nodeFrom(left, "call", left, ast.Symbol("call"))
		call.Append(nodes(p.parseParenArgs())...)
		return p.flag(call, markParens)
	}
	name := p.methodName("constant")
	return p.finishSend(p.nodeFrom(left, "call", left, ast.Symbol(name)))
}

// parseElementReference parses recv[args].
func (p *Parser) parseElementReference(recv *ast.Node) *ast.Node {
	tok := p.advance()
	if recv.Is("call") && p.flagged(recv, markBareIdent) {
		p.unflag(recv, markCallable|markBareIdent)
	}
	call := p.nodeFrom(recv, "call", recv, ast.Symbol("[]"))
	if tok.Type == lexer.LBRACKET_RBRACKET {
		return call
	}
	restore := p.allowDo()
	call.Append(nodes(p.parseArgs(precCallArg, lexer.RBRACKET))...)
	restore()
	p.skipNewlines()
	p.expect(lexer.RBRACKET, "]")
	return call
}

// =============================================================================
// Blocks
// =============================================================================

// parseIter attaches a do or brace block to the call on its left.
func (p *Parser) parseIter(left *ast.Node) *ast.Node {
	tok := p.current()
	call, ok := p.callTarget(left)
	if !ok {
		p.failAt(tok, NotCallable, "block given to %s", left.Tag)
	}
	p.unflag(call, markCallable|markBareIdent)
	p.advance()

	p.pushScope(true)
	defer p.popScope()
	defer p.allowDo()()

	params := p.parseBlockParams()
	closer := lexer.RBRACE
	if tok.Type == lexer.DO {
		closer = lexer.END
	}
	return p.parseBlockBody(call, call, params, closer)
}

// parseBlockBody parses a block body up to closer and builds the iter.
// When the block declares no parameters but uses _1 .. _9, the body is
// parsed again with those names declared.
func (p *Parser) parseBlockBody(pos, call *ast.Node, params *ast.Node, closer lexer.TokenType) *ast.Node {
	cp := p.checkpoint()
	body := p.blockStatements(closer)
	if params == nil {
		if n := numberedParams(body); n > 0 {
			p.rewind(cp)
			params = p.nodeFrom(pos, "args")
			for i := 1; i <= n; i++ {
				name := "_" + strconv.Itoa(i)
				p.declare(name)
				params.Append(ast.Symbol(name))
			}
			p.logger.Debug("numbered block parameters", "line", pos.Location.Line, "count", n)
			body = p.blockStatements(closer)
		}
	}
	p.expect(closer, string(closer))

	iter := p.nodeFrom(pos, "iter", call)
	if params == nil {
		iter.Append(int64(0))
	} else {
		iter.Append(params)
	}
	if b := p.blockOf(body); b != nil {
		iter.Append(b)
	}
	return iter
}

// blockStatements parses a block body. do ... end bodies may carry
// rescue and ensure clauses.
func (p *Parser) blockStatements(closer lexer.TokenType) []*ast.Node {
	if closer == lexer.END {
		return p.parseBodyWithRescue(lexer.END)
	}
	return p.parseStatements(closer)
}

// numberedParams returns the highest _N referenced in body outside
// nested blocks.
func numberedParams(body []*ast.Node) int {
	highest := 0
	for _, stmt := range body {
		stmt.Walk(func(n *ast.Node) bool {
			if n.Is("iter") {
				return false
			}
			if n.Is("call") && n.Len() == 2 && n.Child(0) == nil {
				if name, ok := n.SymbolAt(1); ok && len(name) == 2 && name[0] == '_' && name[1] >= '1' && name[1] <= '9' {
					highest = max(highest, int(name[1]-'0'))
				}
			}
			return true
		})
	}
	return highest
}

// parseBlockParams parses |a, b| and returns nil when the block has none.
func (p *Parser) parseBlockParams() *ast.Node {
	tok := p.current()
	if p.accept(lexer.PIPE_PIPE) {
		return p.node(tok, "args")
	}
	if !p.accept(lexer.PIPE) {
		return nil
	}
	args := p.node(tok, "args")
	for !p.at(lexer.PIPE, lexer.NEWLINE) {
		args.Append(p.parseParam(true))
		if !p.accept(lexer.COMMA) {
			break
		}
		if p.at(lexer.PIPE) {
			// |a, | destructures its argument; nil marks the comma
			args.Append(nil)
		}
	}
	if p.accept(lexer.NEWLINE) {
		// block-local variables: |a; b, c|
		for p.at(lexer.NAME) {
			name := p.advance()
			p.declare(name.Literal)
			args.Append(p.node(name, "shadow", ast.Symbol(name.Literal)))
			if !p.accept(lexer.COMMA) {
				break
			}
		}
	}
	p.expect(lexer.PIPE, "|")
	return args
}

// parseLambda parses -> (params) { body } and -> do ... end.
func (p *Parser) parseLambda() *ast.Node {
	tok := p.advance()
	p.pushScope(true)
	defer p.popScope()
	defer p.allowDo()()

	var params *ast.Node
	switch {
	case p.at(lexer.LPAREN):
		params = p.node(p.advance(), "args")
		p.skipNewlines()
		for !p.at(lexer.RPAREN) {
			params.Append(p.parseParam(true))
			if !p.accept(lexer.COMMA) {
				break
			}
			p.skipNewlines()
		}
		p.skipNewlines()
		p.expect(lexer.RPAREN, ")")
	case !p.at(lexer.LBRACE, lexer.DO):
		params = p.node(p.current(), "args")
		for {
			params.Append(p.parseParam(true))
			if !p.accept(lexer.COMMA) {
				break
			}
		}
	}

	open := p.current()
	closer := lexer.RBRACE
	switch open.Type {
	case lexer.LBRACE:
	case lexer.DO:
		closer = lexer.END
	default:
		p.unexpected(open, "{")
	}
	p.advance()
	lambda := p.node(tok, "lambda")
	return p.parseBlockBody(lambda, lambda, params, closer)
}

// parsePrePostExe parses BEGIN { } and END { }.
func (p *Parser) parsePrePostExe() *ast.Node {
	tok := p.current()
	tag := "postexe"
	if tok.Type == lexer.BEGIN_UPPER {
		if !p.atTopLevel() {
			p.failAt(tok, SemanticConstraint, "BEGIN is permitted only at toplevel")
		}
		tag = "preexe"
	}
	p.advance()
	p.expect(lexer.LBRACE, "{")
	defer p.allowDo()()
	body := p.parseStatements(lexer.RBRACE)
	p.expect(lexer.RBRACE, "}")
	iter := p.node(tok, "iter", p.node(tok, tag), int64(0))
	if b := p.blockOf(body); b != nil {
		iter.Append(b)
	}
	return iter
}

// =============================================================================
// Keyword calls
// =============================================================================

// parseSuper parses super(args), super args and zsuper.
func (p *Parser) parseSuper() *ast.Node {
	tok := p.advance()
	if next := p.current(); next.Type == lexer.LPAREN && !next.WhitespacePrecedes {
		return p.flag(p.node(tok, "super", nodes(p.parseParenArgs())...), markParens)
	}
	if p.commandArgFollows() {
		return p.node(tok, "super", nodes(p.parseArgs(precBareCallArg, ""))...)
	}
	return p.node(tok, "zsuper")
}

func (p *Parser) parseYield() *ast.Node {
	tok := p.advance()
	if next := p.current(); next.Type == lexer.LPAREN && !next.WhitespacePrecedes {
		return p.flag(p.node(tok, "yield", nodes(p.parseParenArgs())...), markParens)
	}
	if p.commandArgFollows() {
		return p.node(tok, "yield", nodes(p.parseArgs(precBareCallArg, ""))...)
	}
	return p.node(tok, "yield")
}

func (p *Parser) parseDefined() *ast.Node {
	tok := p.advance()
	if next := p.current(); next.Type == lexer.LPAREN && !next.WhitespacePrecedes {
		p.advance()
		restore := p.allowDo()
		expr := p.parseExpression(precLowest)
		restore()
		p.skipNewlines()
		p.expect(lexer.RPAREN, ")")
		return p.node(tok, "defined", expr)
	}
	return p.node(tok, "defined", p.parseExpression(precBareCallArg))
}

// jumpValue parses the optional value of return, break and next. A
// comma list becomes an array.
func (p *Parser) jumpValue() *ast.Node {
	if !p.current().CanBeFirstArgOfImplicitCall() {
		return nil
	}
	args := p.parseArgs(precCallArg, "")
	if len(args) == 1 {
		if args[0].Is("splat") {
			return p.nodeFrom(args[0], "svalue", args[0])
		}
		return args[0]
	}
	return p.nodeFrom(args[0], "array", nodes(args)...)
}

func (p *Parser) parseReturn() *ast.Node {
	tok := p.advance()
	n := p.node(tok, "return")
	if v := p.jumpValue(); v != nil {
		n.Append(v)
	}
	return n
}

func (p *Parser) parseBreakNext() *ast.Node {
	tok := p.advance()
	n := p.node(tok, string(tok.Type))
	if v := p.jumpValue(); v != nil {
		n.Append(v)
	}
	return n
}
