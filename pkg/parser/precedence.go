package parser

import (
	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// precedence orders binding power from loosest to tightest. Several
// levels exist only as contexts: an argument or hash value is parsed at
// its context level so the loop stops at the right tokens.
type precedence int

const (
	precLowest precedence = iota
	precArray
	precWordArray
	precHash
	precCase
	precComposition // and, or
	precExprModifier
	precTernaryFalse
	precAssignmentRHS
	precInlineRescue
	precIterBlock // do ... end
	precBareCallArg
	precOpAssignment
	precTernaryTrue
	precCallArg
	precTernaryQuestion
	precLogicalOr
	precLogicalAnd
	precAssignmentLHS
	precSplat
	precRange
	precLogicalNot
	precEquality
	precLessGreater
	precBitwiseOr
	precBitwiseAnd
	precBitwiseShift
	precDefArg
	precSum
	precProduct
	precNumberDot
	precUnaryMinus
	precExponent
	precUnaryPlus
	precIterCurly
	precConstantResolution
	precDot
	precCall
	precRef
)

// precedenceOf returns how tightly tok binds to the expression on its left.
func (p *Parser) precedenceOf(tok lexer.Token, left *ast.Node) precedence {
	switch tok.Type {
	case lexer.PLUS, lexer.MINUS:
		if p.startsCommandArg(tok, left) {
			return precCall
		}
		return precSum
	case lexer.STAR, lexer.STAR_STAR, lexer.AMP, lexer.COLON_COLON:
		if p.startsCommandArg(tok, left) {
			return precCall
		}
		switch tok.Type {
		case lexer.STAR:
			return precProduct
		case lexer.STAR_STAR:
			return precExponent
		case lexer.AMP:
			return precBitwiseAnd
		}
		return precConstantResolution
	case lexer.EQUAL:
		return precAssignmentLHS
	case lexer.PLUS_EQ, lexer.MINUS_EQ, lexer.STAR_EQ, lexer.STAR_STAR_EQ, lexer.SLASH_EQ,
		lexer.PERCENT_EQ, lexer.LSHIFT_EQ, lexer.RSHIFT_EQ, lexer.AMP_EQ, lexer.AMP_AMP_EQ,
		lexer.PIPE_EQ, lexer.PIPE_PIPE_EQ, lexer.CARET_EQ:
		return precOpAssignment
	case lexer.PIPE, lexer.CARET:
		return precBitwiseOr
	case lexer.COMMA:
		return precArray
	case lexer.LSHIFT, lexer.RSHIFT:
		return precBitwiseShift
	case lexer.LPAREN:
		if !tok.WhitespacePrecedes && (p.flagged(left, markBareIdent) || p.flagged(left, markCallable)) {
			return precCall
		}
		if p.isCallable(left) {
			return precCall
		}
		return precLowest
	case lexer.AND_KW, lexer.OR_KW:
		return precComposition
	case lexer.DOT, lexer.SAFE_NAV:
		if isNumericLit(left) {
			return precNumberDot
		}
		return precDot
	case lexer.EQ_EQ, lexer.EQ_EQ_EQ, lexer.NOT_EQ, lexer.MATCH, lexer.NOT_MATCH:
		return precEquality
	case lexer.RESCUE:
		return precInlineRescue
	case lexer.IF, lexer.UNLESS, lexer.WHILE, lexer.UNTIL:
		return precExprModifier
	case lexer.DO:
		if p.noDo {
			return precLowest
		}
		return precIterBlock
	case lexer.LBRACE:
		return precIterCurly
	case lexer.CMP, lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		return precLessGreater
	case lexer.AMP_AMP:
		return precLogicalAnd
	case lexer.PIPE_PIPE:
		return precLogicalOr
	case lexer.SLASH, lexer.PERCENT:
		return precProduct
	case lexer.DOT_DOT, lexer.DOT_DOT_DOT:
		return precRange
	case lexer.LBRACKET, lexer.LBRACKET_RBRACKET:
		if p.isElementReference(tok, left) {
			return precRef
		}
	case lexer.TERNARY_QUESTION:
		return precTernaryQuestion
	case lexer.TERNARY_COLON:
		return precTernaryFalse
	}
	if p.isCallable(left) && tok.CanBeFirstArgOfImplicitCall() {
		return precCall
	}
	return precLowest
}

// higher reports whether an operator of precedence next continues an
// expression entered at current.
func (p *Parser) higher(next, current precedence, left *ast.Node) bool {
	if p.flagged(left, markSymbolKey) {
		return false
	}
	if next == precIterBlock && next <= current {
		// do ... end belongs to the outermost command call
		for _, prec := range p.precs {
			if prec == precBareCallArg {
				return false
			}
		}
		return true
	}
	return next > current
}

// startsCommandArg reports whether an operator that is usually binary is
// really the first argument of a call without parentheses, as in
// `puts -1` or `foo *args`.
func (p *Parser) startsCommandArg(tok lexer.Token, left *ast.Node) bool {
	if !tok.WhitespacePrecedes || !p.isCallable(left) {
		return false
	}
	next := p.peekAt(1)
	return !next.WhitespacePrecedes && !next.IsNewline() && !next.IsEOF()
}

// isElementReference decides between foo[1] and foo [1].
func (p *Parser) isElementReference(tok lexer.Token, left *ast.Node) bool {
	return !tok.WhitespacePrecedes || p.flagged(left, markLvar)
}

// isCallable reports whether left can take arguments without parentheses.
func (p *Parser) isCallable(left *ast.Node) bool {
	if left == nil {
		return false
	}
	if p.flagged(left, markLvar) {
		return false
	}
	return p.flagged(left, markCallable)
}

func isNumericLit(n *ast.Node) bool {
	if !n.Is("lit") {
		return false
	}
	switch n.Child(0).(type) {
	case int64, float64, ast.Bignum, ast.Rational, ast.Complex:
		return true
	}
	return false
}
