// Package parser converts Ruby source into ruby_parser-shaped
// S-expressions.
//
// The expression core is a Pratt loop: every token has a null denotation
// (how it starts an expression) and may have a left denotation (how it
// continues one), and precedenceOf decides whether the loop keeps
// going. Statements with their own keywords (def, class, if, case,
// begin ...) are parsed by recursive descent from the null denotations.
//
// Parse output always has a block root:
//
//	parser.Parse("x = 1", "t.rb")  // s(:block, s(:lasgn, :x, s(:lit, 1)))
package parser

import (
	"io"
	"log/slog"
	"math"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/lexer"
)

// DefaultMaxDepth bounds expression nesting.
const DefaultMaxDepth = 2000

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth sets the nesting limit for expressions and for #{...}
// inside literals. Deeper input fails with ResourceExhausted.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// WithLogger enables debug tracing of parser and lexer decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Parser holds the state for one parse. A Parser is not reusable.
type Parser struct {
	lex    *lexer.Lexer
	file   string
	logger *slog.Logger

	buf []lexer.Token // lookahead, buf[0] is the current token

	precs    []precedence
	depth    int
	maxDepth int
	nesting  int  // statement list depth, 1 at top level
	noDo     bool // do belongs to an enclosing while, until or for

	scope *scope
	undo  []undoEntry
	marks map[*ast.Node]markBits
}

// New creates a parser for src. path is recorded on every node and in
// errors; an empty path becomes "(string)".
func New(src, path string, opts ...Option) *Parser {
	if path == "" {
		path = "(string)"
	}
	p := &Parser{
		file:     path,
		logger:   slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		maxDepth: DefaultMaxDepth,
		marks:    make(map[*ast.Node]markBits),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lex = lexer.New(src,
		lexer.WithFile(path),
		lexer.WithLogger(p.logger),
		lexer.WithLocalLookup(p.isLocal),
		lexer.WithMaxDepth(p.maxDepth),
		lexer.WithCollapsedNewlines(),
	)
	return p
}

// Parse parses src and returns the root block node.
func Parse(src, path string, opts ...Option) (*ast.Node, error) {
	return New(src, path, opts...).Parse()
}

// Parse runs the parser over the whole input. It returns a *SyntaxError
// on failure and never a partial tree.
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.err
		}
	}()

	root = ast.S("block").At(1, 1, p.file)
	p.pushScope(false)
	for _, stmt := range p.parseStatements() {
		root.Append(stmt)
	}
	if tok := p.current(); !tok.IsEOF() {
		p.unexpected(tok, "end-of-input")
	}
	p.popScope()
	return root, nil
}

// =============================================================================
// Token buffer
// =============================================================================

// peekAt returns the token n places ahead without consuming anything.
func (p *Parser) peekAt(n int) lexer.Token {
	for len(p.buf) <= n {
		tok, err := p.lex.NextToken()
		if err != nil {
			se := p.fromLexError(err)
			p.logger.Debug("lexer error", "line", se.Line, "message", se.Message)
			panic(bailout{se})
		}
		p.buf = append(p.buf, tok)
	}
	return p.buf[n]
}

func (p *Parser) current() lexer.Token {
	return p.peekAt(0)
}

// advance consumes the current token. EOF is never consumed.
func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if !tok.IsEOF() {
		p.buf = p.buf[1:]
	}
	return tok
}

// unread puts tok back in front of the current token.
func (p *Parser) unread(tok lexer.Token) {
	p.buf = append([]lexer.Token{tok}, p.buf...)
}

func (p *Parser) at(types ...lexer.TokenType) bool {
	cur := p.current().Type
	for _, typ := range types {
		if cur == typ {
			return true
		}
	}
	return false
}

// accept consumes the current token if it has type typ.
func (p *Parser) accept(typ lexer.TokenType) bool {
	if p.current().Type == typ {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of type typ or fails naming expected.
func (p *Parser) expect(typ lexer.TokenType, expected string) lexer.Token {
	tok := p.current()
	if tok.Type != typ {
		p.unexpected(tok, expected)
	}
	return p.advance()
}

func (p *Parser) skipNewlines() {
	for p.current().IsNewline() {
		p.advance()
	}
}

// =============================================================================
// Checkpoints
// =============================================================================

// checkpoint is everything a speculative parse can change.
type checkpoint struct {
	lex   lexer.State
	buf   []lexer.Token
	scope *scope
	undo  int
	precs int
	depth int
}

func (p *Parser) checkpoint() checkpoint {
	return checkpoint{
		lex:   p.lex.Snapshot(),
		buf:   append([]lexer.Token(nil), p.buf...),
		scope: p.scope,
		undo:  len(p.undo),
		precs: len(p.precs),
		depth: p.depth,
	}
}

// rewind restores a checkpoint, forgetting locals declared since.
func (p *Parser) rewind(cp checkpoint) {
	p.lex.Restore(cp.lex)
	p.buf = append(p.buf[:0:0], cp.buf...)
	for i := len(p.undo) - 1; i >= cp.undo; i-- {
		delete(p.undo[i].scope.vars, p.undo[i].name)
	}
	p.undo = p.undo[:cp.undo]
	p.scope = cp.scope
	p.precs = p.precs[:cp.precs]
	p.depth = cp.depth
}

// =============================================================================
// Nodes and marks
// =============================================================================

// markBits are parse-time facts about a node that the tree itself does
// not record.
type markBits uint16

const (
	markLvar       markBits = 1 << iota // bare name that resolved to a local
	markBareIdent                       // plain name or constant, nothing attached
	markCallable                        // may still take arguments without parens
	markParens                          // written inside parentheses
	markSymbolKey                       // foo: or "foo": key
	markCommaList                       // array built from a bare a, b list
	markBeginBlock                      // begin ... end
)

func (p *Parser) flag(n *ast.Node, bits markBits) *ast.Node {
	p.marks[n] |= bits
	return n
}

func (p *Parser) unflag(n *ast.Node, bits markBits) {
	if m, ok := p.marks[n]; ok {
		p.marks[n] = m &^ bits
	}
}

func (p *Parser) flagged(n *ast.Node, bits markBits) bool {
	if n == nil {
		return false
	}
	return p.marks[n]&bits != 0
}

// node creates a node positioned at tok.
func (p *Parser) node(tok lexer.Token, tag string, children ...any) *ast.Node {
	return ast.S(tag, children...).At(tok.Line, tok.Column+1, p.file)
}

// nodeFrom creates a node positioned like other.
func (p *Parser) nodeFrom(other *ast.Node, tag string, children ...any) *ast.Node {
	n := ast.S(tag, children...)
	n.File = p.file
	return n.PositionFrom(other)
}

// blockOf wraps a statement list: nothing is nil, one statement stands
// alone, more become a block.
func (p *Parser) blockOf(stmts []*ast.Node) *ast.Node {
	switch len(stmts) {
	case 0:
		return nil
	case 1:
		return stmts[0]
	}
	return p.nodeFrom(stmts[0], "block", nodes(stmts)...)
}

// nodes converts a node slice to a child list.
func nodes(list []*ast.Node) []any {
	out := make([]any, len(list))
	for i, n := range list {
		out[i] = n
	}
	return out
}

// optional turns a nil *ast.Node into an untyped nil child.
func optional(n *ast.Node) any {
	if n == nil {
		return nil
	}
	return n
}

// =============================================================================
// Statement lists
// =============================================================================

// parseStatements parses separated statements until EOF or one of the
// terminators, which is left unconsumed.
func (p *Parser) parseStatements(terminators ...lexer.TokenType) []*ast.Node {
	p.nesting++
	defer func() { p.nesting-- }()

	var body []*ast.Node
	for {
		p.skipNewlines()
		if p.current().IsEOF() || p.at(terminators...) {
			return body
		}
		body = append(body, p.parseStatement())
		tok := p.current()
		if tok.IsNewline() {
			continue
		}
		if tok.IsEOF() || p.at(terminators...) {
			return body
		}
		p.unexpected(tok, "end-of-line")
	}
}

func (p *Parser) parseStatement() *ast.Node {
	return p.parseExpression(precLowest)
}

// atTopLevel reports whether the parser is at the start of a top-level
// statement.
func (p *Parser) atTopLevel() bool {
	return p.nesting == 1 && len(p.precs) == 1
}
