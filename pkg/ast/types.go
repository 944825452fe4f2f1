// Package ast defines the S-expression tree produced by the Ruby parser.
//
// A Node is a tag plus positional children, printed the way ruby_parser
// prints its Sexp objects:
//
//	s(:call, s(:lvar, :x), :+, s(:lit, 1))
//
// Children are either nested *Node values or atoms: Symbol, string,
// int64, float64, Bignum, Rational, Complex, Regexp, Range or nil.
package ast

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Node is one tagged S-expression.
type Node struct {
	Tag      string
	Children []any
	Location Location
	File     string
	Comments string // leading comment block for class, module and method nodes
}

// Location represents a position in the source file. Both fields are
// 1-indexed.
type Location struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Symbol is a Ruby symbol atom, printed as :name.
type Symbol string

// Bignum is an integer literal too large for int64.
type Bignum struct {
	decimal.Decimal
}

// Rational is a rational literal such as 3r or 1.5r.
type Rational struct {
	*big.Rat
}

// Complex is an imaginary literal. Imag holds int64, float64 or Rational.
type Complex struct {
	Imag any
}

// Regexp is a static regular expression literal.
type Regexp struct {
	Source  string
	Options int
}

// Regexp option bits, matching Ruby's Regexp constants.
const (
	RegexpIgnoreCase = 1
	RegexpExtended   = 2
	RegexpMultiline  = 4
	RegexpFixedEnc   = 16
	RegexpNoEncoding = 32
)

// Range is a range literal with integer endpoints.
type Range struct {
	Low, High int64
	Exclusive bool
}

// S creates a node with the given tag and children.
func S(tag string, children ...any) *Node {
	if children == nil {
		children = []any{}
	}
	return &Node{Tag: tag, Children: children}
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.Children)
}

// Is reports whether the node has one of the given tags. A nil node
// matches nothing.
func (n *Node) Is(tags ...string) bool {
	if n == nil {
		return false
	}
	for _, tag := range tags {
		if n.Tag == tag {
			return true
		}
	}
	return false
}

// Child returns child i, or nil when out of range.
func (n *Node) Child(i int) any {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// NodeAt returns child i if it is a node.
func (n *Node) NodeAt(i int) *Node {
	c, _ := n.Child(i).(*Node)
	return c
}

// SymbolAt returns child i if it is a symbol.
func (n *Node) SymbolAt(i int) (Symbol, bool) {
	s, ok := n.Child(i).(Symbol)
	return s, ok
}

// Append adds children and returns the node.
func (n *Node) Append(children ...any) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// At sets the node's position and returns the node.
func (n *Node) At(line, col int, file string) *Node {
	n.Location = Location{Line: line, Col: col}
	n.File = file
	return n
}

// PositionFrom copies position and file from other.
func (n *Node) PositionFrom(other *Node) *Node {
	if other != nil {
		n.Location = other.Location
		n.File = other.File
	}
	return n
}

// Copy returns a shallow copy whose child slice may be modified freely.
func (n *Node) Copy() *Node {
	c := *n
	c.Children = append([]any{}, n.Children...)
	return &c
}

// Walk calls fn for n and every descendant node, depth first. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		if child, ok := c.(*Node); ok {
			child.Walk(fn)
		}
	}
}

// Equal reports whether two trees have the same tags and atoms.
// Positions, files and comments are ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !atomEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func atomEqual(a, b any) bool {
	switch x := a.(type) {
	case *Node:
		y, ok := b.(*Node)
		return ok && Equal(x, y)
	case Bignum:
		y, ok := b.(Bignum)
		return ok && x.Equal(y.Decimal)
	case Rational:
		y, ok := b.(Rational)
		return ok && x.Cmp(y.Rat) == 0
	case Complex:
		y, ok := b.(Complex)
		return ok && atomEqual(x.Imag, y.Imag)
	case nil:
		return b == nil
	}
	return a == b
}

// NewBignum parses the decimal digits of a large integer literal.
func NewBignum(digits string) (Bignum, error) {
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return Bignum{}, err
	}
	return Bignum{d}, nil
}

// NewRational parses a rational literal's digits, which may carry a
// fractional part: "1.5" becomes 3/2.
func NewRational(digits string) (Rational, error) {
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return Rational{}, err
	}
	return Rational{d.Rat()}, nil
}
