package parser

import (
	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// =============================================================================
// Conditionals and loops
// =============================================================================

func (p *Parser) parseIf() *ast.Node {
	tok := p.advance()
	n := p.parseConditional(tok, false)
	p.expect(lexer.END, "end")
	return n
}

func (p *Parser) parseUnless() *ast.Node {
	tok := p.advance()
	n := p.parseConditional(tok, true)
	p.expect(lexer.END, "end")
	return n
}

// parseConditional parses the rest of an if, elsif or unless up to but
// not including the closing end. unless swaps the branches.
func (p *Parser) parseConditional(tok lexer.Token, unless bool) *ast.Node {
	cond := p.parseExpression(precLowest)
	p.expectThen(lexer.THEN)
	then := p.blockOf(p.parseStatements(lexer.ELSIF, lexer.ELSE, lexer.END))

	var els *ast.Node
	switch {
	case !unless && p.at(lexer.ELSIF):
		els = p.parseConditional(p.advance(), false)
	case p.accept(lexer.ELSE):
		els = p.blockOf(p.parseStatements(lexer.END))
	}
	if unless {
		then, els = els, then
	}
	return p.node(tok, "if", cond, optional(then), optional(els))
}

// expectThen accepts the separator between a condition and its body:
// the given keyword, a newline, or both.
func (p *Parser) expectThen(keyword lexer.TokenType) {
	if p.accept(keyword) {
		return
	}
	if p.current().IsNewline() {
		p.skipNewlines()
		p.accept(keyword)
		return
	}
	p.unexpected(p.current(), string(keyword))
}

// parseWhile parses while and until loops. do after the condition
// belongs to the loop.
func (p *Parser) parseWhile() *ast.Node {
	tok := p.advance()
	saved := p.noDo
	p.noDo = true
	cond := p.parseExpression(precLowest)
	p.noDo = saved
	p.expectThen(lexer.DO)

	restore := p.allowDo()
	body := p.blockOf(p.parseStatements(lexer.END))
	restore()
	p.expect(lexer.END, "end")
	return p.node(tok, string(tok.Type), cond, optional(body), true)
}

func (p *Parser) parseFor() *ast.Node {
	tok := p.advance()
	target := p.parseMlhsItem()
	if p.at(lexer.COMMA) {
		lhs := p.nodeFrom(target, "array", target)
		for p.accept(lexer.COMMA) {
			lhs.Append(p.parseMlhsItem())
		}
		target = p.nodeFrom(target, "masgn", lhs)
	}
	p.expect(lexer.IN, "in")

	saved := p.noDo
	p.noDo = true
	iter := p.parseExpression(precLowest)
	p.noDo = saved
	p.expectThen(lexer.DO)

	restore := p.allowDo()
	body := p.blockOf(p.parseStatements(lexer.END))
	restore()
	p.expect(lexer.END, "end")

	n := p.node(tok, "for", iter, target)
	if body != nil {
		n.Append(body)
	}
	return n
}

// parseModifier parses trailing if, unless, while and until.
func (p *Parser) parseModifier(body *ast.Node) *ast.Node {
	tok := p.advance()
	cond := p.parseExpression(precExprModifier)
	switch tok.Type {
	case lexer.IF:
		return p.nodeFrom(body, "if", cond, body, nil)
	case lexer.UNLESS:
		return p.nodeFrom(body, "if", cond, nil, body)
	}
	// begin ... end while cond runs the body before the first test
	pre := !p.flagged(body, markBeginBlock)
	return p.nodeFrom(body, string(tok.Type), cond, body, pre)
}

// =============================================================================
// case
// =============================================================================

func (p *Parser) parseCase() *ast.Node {
	tok := p.advance()
	var subject *ast.Node
	if !p.at(lexer.WHEN, lexer.IN, lexer.NEWLINE) {
		subject = p.parseExpression(precLowest)
	}
	p.skipNewlines()

	n := p.node(tok, "case", optional(subject))
	switch {
	case p.at(lexer.WHEN):
		for p.at(lexer.WHEN) {
			n.Append(p.parseWhen())
		}
	case p.at(lexer.IN):
		for p.at(lexer.IN) {
			n.Append(p.parseIn())
		}
	default:
		p.unexpected(p.current(), "when")
	}

	var els *ast.Node
	if p.accept(lexer.ELSE) {
		els = p.blockOf(p.parseStatements(lexer.END))
	}
	p.expect(lexer.END, "end")
	return n.Append(optional(els))
}

func (p *Parser) parseWhen() *ast.Node {
	tok := p.advance()
	conds := p.node(tok, "array")
	for {
		conds.Append(p.parseExpression(precCase))
		if !p.accept(lexer.COMMA) {
			break
		}
	}
	p.expectThen(lexer.THEN)
	body := p.parseStatements(lexer.WHEN, lexer.IN, lexer.ELSE, lexer.END)
	return p.clause(tok, "when", conds, body)
}

// clause builds when and in nodes; an empty body renders as nil.
func (p *Parser) clause(tok lexer.Token, tag string, head *ast.Node, body []*ast.Node) *ast.Node {
	n := p.node(tok, tag, head)
	if len(body) == 0 {
		return n.Append(nil)
	}
	return n.Append(nodes(body)...)
}

// =============================================================================
// begin, rescue, ensure
// =============================================================================

func (p *Parser) parseBegin() *ast.Node {
	tok := p.advance()
	restore := p.allowDo()
	body := p.parseBodyWithRescue(lexer.END)
	restore()
	p.expect(lexer.END, "end")

	n := p.blockOf(body)
	if n == nil {
		n = p.node(tok, "nil")
	}
	return p.flag(n, markBeginBlock)
}

// parseBodyWithRescue parses a statement list that may carry rescue,
// else and ensure clauses, as in begin, def, class and do blocks. Without
// clauses the plain statements come back; otherwise a single rescue or
// ensure node.
func (p *Parser) parseBodyWithRescue(terminator lexer.TokenType) []*ast.Node {
	start := p.current()
	stmts := p.parseStatements(lexer.RESCUE, lexer.ELSE, lexer.ENSURE, terminator)
	if !p.at(lexer.RESCUE, lexer.ELSE, lexer.ENSURE) {
		return stmts
	}

	body := p.blockOf(stmts)
	var resbodies []*ast.Node
	for p.at(lexer.RESCUE) {
		resbodies = append(resbodies, p.parseRescueClause(terminator))
	}
	hasElse := false
	var els *ast.Node
	if p.accept(lexer.ELSE) {
		hasElse = true
		els = p.blockOf(p.parseStatements(lexer.ENSURE, terminator))
	}
	if len(resbodies) > 0 || hasElse {
		r := p.node(start, "rescue")
		if body != nil {
			r.PositionFrom(body)
			r.Append(body)
		}
		r.Append(nodes(resbodies)...)
		if hasElse {
			r.Append(optional(els))
		}
		body = r
	}
	if ensureTok := p.current(); p.accept(lexer.ENSURE) {
		ens := p.blockOf(p.parseStatements(terminator))
		if body == nil {
			body = p.node(ensureTok, "nil")
		}
		body = p.nodeFrom(body, "ensure", body, optional(ens))
	}
	return []*ast.Node{body}
}

// parseRescueClause parses rescue A, B => e followed by its body.
func (p *Parser) parseRescueClause(terminator lexer.TokenType) *ast.Node {
	tok := p.advance()
	classes := p.node(tok, "array")
	if !p.at(lexer.NEWLINE, lexer.THEN, lexer.HASH_ROCKET) {
		for {
			classes.Append(p.parseExpression(precBareCallArg))
			if !p.accept(lexer.COMMA) {
				break
			}
		}
	}
	if arrow := p.current(); p.accept(lexer.HASH_ROCKET) {
		target := p.assignTarget(p.parseExpression(precAssignmentLHS), arrow)
		classes.Append(target.Append(p.node(arrow, "gvar", ast.Symbol("$!"))))
	}
	p.expectThen(lexer.THEN)
	body := p.parseStatements(lexer.RESCUE, lexer.ELSE, lexer.ENSURE, terminator)
	return p.clause(tok, "resbody", classes, body)
}
