package parser

import (
	"strings"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// assignTarget converts the expression parsed on the left of = into the
// node that receives the value. Names become locals from here on.
func (p *Parser) assignTarget(left *ast.Node, at lexer.Token) *ast.Node {
	switch {
	case left.Is("lvar"):
		return p.nodeFrom(left, "lasgn", left.Child(0))
	case left.Is("call") && p.flagged(left, markBareIdent) && left.Len() == 2:
		name, _ := left.SymbolAt(1)
		if strings.HasSuffix(string(name), "?") || strings.HasSuffix(string(name), "!") {
			break
		}
		p.declare(string(name))
		return p.nodeFrom(left, "lasgn", name)
	case left.Is("ivar"):
		return p.nodeFrom(left, "iasgn", left.Child(0))
	case left.Is("gvar"):
		return p.nodeFrom(left, "gasgn", left.Child(0))
	case left.Is("cvar"):
		return p.nodeFrom(left, "cvdecl", left.Child(0))
	case left.Is("const"):
		return p.nodeFrom(left, "cdecl", left.Child(0))
	case left.Is("colon2", "colon3"):
		return p.nodeFrom(left, "cdecl", left)
	case left.Is("call", "safe_call") && left.Child(0) != nil && !p.flagged(left, markParens):
		tag := "attrasgn"
		if left.Is("safe_call") {
			tag = "safe_attrasgn"
		}
		name, _ := left.SymbolAt(1)
		n := p.nodeFrom(left, tag, left.Child(0), ast.Symbol(string(name)+"="))
		return n.Append(left.Children[2:]...)
	case left.Is("splat"):
		n := p.nodeFrom(left, "splat")
		if inner := left.NodeAt(0); inner != nil {
			n.Append(p.assignTarget(inner, at))
		}
		return n
	case left.Is("masgn") && left.Len() == 1:
		return left
	}
	p.fail(&SyntaxError{
		Kind:     InvalidAssignmentTarget,
		Message:  "syntax error, cannot assign to " + describeNode(left),
		Line:     at.Line,
		Column:   at.Column + 1,
		Found:    describe(at),
		Expected: "assignable expression",
	})
	return nil
}

func describeNode(n *ast.Node) string {
	switch {
	case n.Is("call") && n.Len() > 1:
		if name, ok := n.SymbolAt(1); ok {
			return "method call '" + string(name) + "'"
		}
	case n.Is("lit", "str"):
		return "a literal"
	}
	return n.Tag
}

// parseAssignment parses left = value. Outside argument lists a bare
// comma list on the right becomes an array.
func (p *Parser) parseAssignment(left *ast.Node) *ast.Node {
	eq := p.advance()
	target := p.assignTarget(left, eq)
	if target.Is("splat") {
		// *a = v destructures like a, b = v
		target = p.nodeFrom(target, "masgn", p.nodeFrom(target, "array", target))
	}

	multiple := true
	switch p.currentPrecedence() {
	case precArray, precBareCallArg, precCallArg, precHash:
		multiple = false
	}

	value := p.parseExpression(precAssignmentRHS)
	if multiple && p.at(lexer.COMMA) {
		list := []*ast.Node{value}
		for p.accept(lexer.COMMA) {
			list = append(list, p.parseExpression(precAssignmentRHS))
		}
		value = p.flag(p.nodeFrom(value, "array", nodes(list)...), markCommaList)
	}

	if target.Is("masgn") {
		if !p.flagged(value, markCommaList) && !value.Is("splat") {
			value = p.nodeFrom(value, "to_ary", value)
		}
		return target.Append(value)
	}
	if p.flagged(value, markCommaList) || value.Is("splat") {
		value = p.nodeFrom(value, "svalue", value)
	}
	return target.Append(value)
}

// parseMultipleAssignment collects a, b, *c on the left of =. The value
// is attached when the = is reached.
func (p *Parser) parseMultipleAssignment(first *ast.Node) *ast.Node {
	comma := p.current()
	lhs := p.nodeFrom(first, "array", p.mlhsTarget(first, comma))
	for p.accept(lexer.COMMA) {
		if p.at(lexer.EQUAL, lexer.RPAREN, lexer.IN) {
			break
		}
		lhs.Append(p.parseMlhsItem())
	}
	if !p.at(lexer.EQUAL, lexer.RPAREN, lexer.IN) {
		p.unexpected(p.current(), "=")
	}
	return p.nodeFrom(first, "masgn", lhs)
}

// parseMlhsItem parses one element of a multiple assignment target list.
func (p *Parser) parseMlhsItem() *ast.Node {
	tok := p.current()
	switch tok.Type {
	case lexer.STAR:
		p.advance()
		splat := p.node(tok, "splat")
		if !p.at(lexer.COMMA, lexer.EQUAL, lexer.RPAREN, lexer.IN) {
			item := p.parseExpression(precAssignmentLHS)
			splat.Append(p.assignTarget(item, tok))
		}
		return splat
	case lexer.LPAREN:
		p.advance()
		lhs := p.node(tok, "array", p.parseMlhsItem())
		for p.accept(lexer.COMMA) {
			if p.at(lexer.RPAREN) {
				break
			}
			lhs.Append(p.parseMlhsItem())
		}
		p.expect(lexer.RPAREN, ")")
		return p.node(tok, "masgn", lhs)
	}
	item := p.parseExpression(precAssignmentLHS)
	return p.mlhsTarget(item, tok)
}

// mlhsTarget is assignTarget for one element of a target list, where a
// scoped constant stays a const reference rather than a cdecl.
func (p *Parser) mlhsTarget(item *ast.Node, at lexer.Token) *ast.Node {
	if item.Is("colon2", "colon3") {
		return p.nodeFrom(item, "const", item)
	}
	return p.assignTarget(item, at)
}

// parseOpAssignment parses x += 1, x ||= y, a.b += 1 and a[i] += 1.
func (p *Parser) parseOpAssignment(left *ast.Node) *ast.Node {
	opTok := p.advance()
	op := strings.TrimSuffix(opTok.TypeValue(), "=")

	switch {
	case left.Is("call", "safe_call") && left.Child(0) != nil && !p.flagged(left, markBareIdent):
		value := p.parseExpression(precAssignmentRHS)
		name, _ := left.SymbolAt(1)
		if name == "[]" {
			args := p.nodeFrom(left, "arglist", left.Children[2:]...)
			return p.nodeFrom(left, "op_asgn1", left.Child(0), args, ast.Symbol(op), value)
		}
		tag := "op_asgn2"
		if left.Is("safe_call") {
			tag = "safe_op_asgn2"
		}
		return p.nodeFrom(left, tag, left.Child(0), ast.Symbol(string(name)+"="), ast.Symbol(op), value)
	case left.Is("colon2", "colon3"):
		value := p.parseExpression(precAssignmentRHS)
		switch op {
		case "||":
			return p.nodeFrom(left, "op_asgn_or", left, p.nodeFrom(left, "cdecl", left, value))
		case "&&":
			return p.nodeFrom(left, "op_asgn_and", left, p.nodeFrom(left, "cdecl", left, value))
		}
		return p.nodeFrom(left, "op_asgn", left, ast.Symbol(op), value)
	}

	target := p.assignTarget(left, opTok)
	reader := p.readerFor(target)
	value := p.parseExpression(precAssignmentRHS)
	switch op {
	case "||":
		return p.nodeFrom(left, "op_asgn_or", reader, target.Append(value))
	case "&&":
		return p.nodeFrom(left, "op_asgn_and", reader, target.Append(value))
	}
	return target.Append(p.nodeFrom(left, "call", reader, ast.Symbol(op), value))
}

// readerFor returns the variable reference matching an assignment node.
func (p *Parser) readerFor(target *ast.Node) *ast.Node {
	tag := map[string]string{
		"lasgn":  "lvar",
		"iasgn":  "ivar",
		"gasgn":  "gvar",
		"cvdecl": "cvar",
		"cdecl":  "const",
	}[target.Tag]
	if tag == "" {
		p.failAt(p.current(), InvalidAssignmentTarget, "cannot op-assign to %s", target.Tag)
	}
	return p.nodeFrom(target, tag, target.Child(0))
}
