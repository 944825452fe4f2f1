package parser

import (
	"strings"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

var stringRuns = map[lexer.TokenType]struct {
	tag string
	end lexer.TokenType
}{
	lexer.DSTR:  {"dstr", lexer.DSTR_END},
	lexer.DXSTR: {"dxstr", lexer.DXSTR_END},
	lexer.DREGX: {"dregx", lexer.DREGX_END},
	lexer.DSYM:  {"dsym", lexer.DSYM_END},
}

// parseString parses a string, symbol, command or regexp literal. With
// concat set, directly adjacent string literals are joined: "a" "b".
func (p *Parser) parseString(concat bool) *ast.Node {
	open := p.current()
	tag, parts, opts, key := p.parseStringRun()
	for concat && !key && (tag == "str" || tag == "dstr") && p.at(lexer.STRING, lexer.DSTR) {
		next, more, _, _ := p.parseStringRun()
		if next == "dstr" {
			tag = "dstr"
		}
		parts = append(parts, more...)
	}
	n := p.finishString(open, tag, parts, opts)
	if key {
		return p.flag(p.toSymbol(n), markSymbolKey)
	}
	return n
}

// parseStringRun consumes one literal: a single STRING or a D* ... end
// run of text pieces and interpolations.
func (p *Parser) parseStringRun() (tag string, parts []*ast.Node, opts string, symbolKey bool) {
	open := p.advance()
	if open.Type == lexer.STRING {
		return "str", []*ast.Node{p.node(open, "str", open.Literal)}, "", false
	}
	run, ok := stringRuns[open.Type]
	if !ok {
		p.unexpected(open, "string")
	}
	for {
		tok := p.current()
		switch {
		case tok.Type == lexer.STRING:
			p.advance()
			parts = append(parts, p.node(tok, "str", tok.Literal))
		case tok.Type == lexer.EVSTR:
			parts = append(parts, p.parseInterpolation())
		case tok.Type == run.end:
			p.advance()
			return run.tag, parts, tok.Options, false
		case tok.Type == lexer.DSTR_SYMBOL_KEY && open.Type == lexer.DSTR:
			p.advance()
			return run.tag, parts, "", true
		default:
			p.unexpected(tok, string(run.end))
		}
	}
}

// parseInterpolation parses #{...}. A plain string inside becomes a text
// piece and a nested "#{x}" unwraps to its evstr.
func (p *Parser) parseInterpolation() *ast.Node {
	tok := p.advance()
	restore := p.allowDo()
	stmts := p.parseStatements(lexer.EVSTR_END)
	restore()
	p.expect(lexer.EVSTR_END, "}")

	switch len(stmts) {
	case 0:
		return p.node(tok, "evstr")
	case 1:
		inner := stmts[0]
		switch {
		case inner.Is("str"):
			return inner
		case inner.Is("dstr") && inner.Len() == 2 && inner.Child(0) == "" && inner.NodeAt(1).Is("evstr"):
			return inner.NodeAt(1)
		}
		return p.node(tok, "evstr", inner)
	}
	return p.node(tok, "evstr", p.blockOf(stmts))
}

// finishString renders collected pieces. Leading text merges into the
// head string; with no interpolation left the literal is static.
func (p *Parser) finishString(open lexer.Token, tag string, parts []*ast.Node, opts string) *ast.Node {
	var lead strings.Builder
	i := 0
	for ; i < len(parts) && parts[i].Is("str"); i++ {
		lead.WriteString(parts[i].Child(0).(string))
	}
	rest := nodes(parts[i:])
	static := len(rest) == 0

	switch tag {
	case "str":
		return p.node(open, "str", lead.String())
	case "dstr":
		if static {
			return p.node(open, "str", lead.String())
		}
	case "dxstr":
		if static {
			return p.node(open, "xstr", lead.String())
		}
	case "dsym":
		if static {
			return p.node(open, "lit", ast.Symbol(lead.String()))
		}
	case "dregx":
		flags := regexpFlags(opts)
		if static {
			return p.node(open, "lit", ast.Regexp{Source: lead.String(), Options: flags})
		}
		if strings.Contains(opts, "o") {
			tag = "dregx_once"
		}
		n := p.node(open, tag, lead.String())
		n.Append(rest...)
		if flags != 0 {
			n.Append(int64(flags))
		}
		return n
	}
	n := p.node(open, tag, lead.String())
	return n.Append(rest...)
}

// regexpFlags maps trailing regexp letters to option bits.
func regexpFlags(opts string) int {
	flags := 0
	for _, c := range opts {
		switch c {
		case 'i':
			flags |= ast.RegexpIgnoreCase
		case 'x':
			flags |= ast.RegexpExtended
		case 'm':
			flags |= ast.RegexpMultiline
		case 'e', 's', 'u':
			flags |= ast.RegexpFixedEnc
		case 'n':
			flags |= ast.RegexpNoEncoding
		}
	}
	return flags
}

// toSymbol turns a string literal into the matching symbol.
func (p *Parser) toSymbol(n *ast.Node) *ast.Node {
	switch {
	case n.Is("str"):
		return p.nodeFrom(n, "lit", ast.Symbol(n.Child(0).(string)))
	case n.Is("dstr"):
		return p.nodeFrom(n, "dsym", n.Children...)
	}
	return n
}
