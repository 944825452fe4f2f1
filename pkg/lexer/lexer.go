// Package lexer provides tokenization for Ruby source code.
//
// The lexer is pull-based: NextToken produces one token at a time and
// tracks enough context to settle the ambiguities a context-free
// tokenizer cannot, such as division versus regexp, left shift versus
// heredoc and ternary versus symbol.
//
// Token Types (as reported by Tokens):
//
//	name        - Identifiers (e.g., foo, foo?, bar!)
//	constant    - Capitalized identifiers (e.g., Foo)
//	fixnum      - Integers that fit in 64 bits (e.g., 1, 0xff)
//	bignum      - Larger integers, raw digits kept
//	string      - Static string contents
//	dstr        - Start of a double-quoted string, ended by dstrend
//	evstr       - Start of an interpolated #{...}, ended by evstrend
//	dregx       - Start of a regexp, ended by dregxend (with options)
//	symbol_key  - Hash keys written as foo:
//	\n          - Statement separator (newlines and semicolons)
//
// Output Format (JSON array):
//
//	[{"type": "name", "literal": "foo"}, {"type": "=", ...}, ...]
package lexer

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDepth bounds #{...} nesting.
const DefaultMaxDepth = 2000

// Lexer tokenizes Ruby source code.
type Lexer struct {
	src        string
	file       string
	lineStarts []int // offset of each line start
	lineBase   int   // added to computed line numbers
	colBase    int   // added to columns on the first line

	logger   *slog.Logger
	isLocal  func(string) bool
	collapse bool
	stopChar byte // '}' inside #{...}
	depth    int  // #{...} nesting, 0 at the top level
	maxDepth int

	ws bool // whitespace preceded the token being scanned
	st state
}

// state is everything that changes while lexing. It holds no pointers
// into shared storage, so a copy is a complete snapshot.
type state struct {
	pos           int
	last          Token
	hasLast       bool
	heredocResume int // where to continue after the current line, or -1
	braceDepth    int
	defHeader     int  // tokens since def, 0 outside a def header
	setterEq      bool // last token is the = of def foo= or def recv.foo=

	pending []Token // scanned ahead by the raw layer

	out         []Token // ready to hand to the caller
	newlines    []Token // separators waiting on the next token
	skipNewline bool
	doc         string
	done        bool
}

// State is an opaque snapshot taken by Snapshot.
type State struct {
	s state
}

// Option configures a Lexer.
type Option func(*Lexer)

// WithFile sets the path reported in errors.
func WithFile(path string) Option {
	return func(l *Lexer) { l.file = path }
}

// WithLogger routes disambiguation traces to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lexer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLocalLookup lets the lexer ask whether a bare name is a known local
// variable. A known local ends an expression, so `x /2` divides.
func WithLocalLookup(fn func(string) bool) Option {
	return func(l *Lexer) { l.isLocal = fn }
}

// WithMaxDepth bounds #{...} nesting. Deeper input fails with
// NestingTooDeep.
func WithMaxDepth(n int) Option {
	return func(l *Lexer) {
		if n > 0 {
			l.maxDepth = n
		}
	}
}

// WithCollapsedNewlines merges runs of separators into one, the way the
// parser wants them. Without it each line end yields its own separator.
func WithCollapsedNewlines() Option {
	return func(l *Lexer) { l.collapse = true }
}

// New creates a new Lexer for the given input.
func New(input string, opts ...Option) *Lexer {
	l := &Lexer{
		src:      input,
		file:     "(string)",
		logger:   slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lineStarts = computeLineStarts(input)
	l.st.heredocResume = -1
	return l
}

// NewFromReader creates a new Lexer from an io.Reader.
func NewFromReader(r io.Reader, opts ...Option) (*Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return New(string(data), opts...), nil
}

// heredocLexer returns a lexer over a heredoc body that begins on the
// given line of the enclosing source.
func (l *Lexer) heredocLexer(body string, line int) *Lexer {
	h := &Lexer{
		src:      body,
		file:     l.file,
		lineBase: line - 1,
		logger:   l.logger,
		isLocal:  l.isLocal,
		collapse: true,
		depth:    l.depth,
		maxDepth: l.maxDepth,
	}
	h.lineStarts = computeLineStarts(body)
	h.st.heredocResume = -1
	return h
}

// interpolation returns a lexer for the code inside #{...} starting at
// pos. It reports EOF at the matching close brace.
func (l *Lexer) interpolation(pos int) *Lexer {
	in := *l
	in.collapse = true
	in.stopChar = '}'
	in.depth = l.depth + 1
	in.st = state{pos: pos, heredocResume: -1}
	return &in
}

func computeLineStarts(src string) []int {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// File returns the path used in error messages.
func (l *Lexer) File() string {
	return l.file
}

// Source returns the text being tokenized.
func (l *Lexer) Source() string {
	return l.src
}

// LineText returns the text of the given 1-indexed line without its
// newline, or "" when out of range.
func (l *Lexer) LineText(line int) string {
	i := line - 1 - l.lineBase
	if i < 0 || i >= len(l.lineStarts) {
		return ""
	}
	start := l.lineStarts[i]
	end := len(l.src)
	if i+1 < len(l.lineStarts) {
		end = l.lineStarts[i+1] - 1
	}
	return strings.TrimRight(l.src[start:end], "\r")
}

// position converts a byte offset into a 1-indexed line and 0-indexed
// column.
func (l *Lexer) position(pos int) (int, int) {
	i := sort.Search(len(l.lineStarts), func(i int) bool { return l.lineStarts[i] > pos }) - 1
	if i < 0 {
		i = 0
	}
	col := pos - l.lineStarts[i]
	if i == 0 {
		col += l.colBase
	}
	return i + 1 + l.lineBase, col
}

// Snapshot captures the complete lexer state.
func (l *Lexer) Snapshot() State {
	return State{s: l.st.clone()}
}

// Restore rewinds the lexer to a snapshot taken earlier.
func (l *Lexer) Restore(s State) {
	l.st = s.s.clone()
}

func (s state) clone() state {
	c := s
	c.pending = append([]Token(nil), s.pending...)
	c.out = append([]Token(nil), s.out...)
	c.newlines = append([]Token(nil), s.newlines...)
	return c
}

// Tokenize processes the entire input and returns all tokens up to, but
// not including, EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.IsEOF() {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// NextToken returns the next significant token. Comments are dropped,
// semicolons become newlines and newlines that cannot end a statement are
// removed. At end of input it keeps returning EOF.
func (l *Lexer) NextToken() (Token, error) {
	for len(l.st.out) == 0 {
		if err := l.fill(); err != nil {
			return Token{}, err
		}
	}
	tok := l.st.out[0]
	if tok.IsEOF() {
		return tok, nil
	}
	l.st.out = l.st.out[1:]
	if tok.inner != nil && l.depth == 0 {
		out := make([]Token, 0, len(tok.inner)+len(l.st.out))
		out = append(out, tok.inner...)
		l.st.out = append(out, l.st.out...)
		tok.inner = nil
	}
	return tok, nil
}

// flatten splices every #{...} run in toks back into a flat stream.
func flatten(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, tok := range toks {
		inner := tok.inner
		tok.inner = nil
		out = append(out, tok)
		if inner != nil {
			out = append(out, flatten(inner)...)
		}
	}
	return out
}

// fill pulls raw tokens until at least one token is ready for output.
func (l *Lexer) fill() error {
	tok, err := l.rawToken()
	if err != nil {
		return err
	}
	switch tok.Type {
	case COMMENT:
		return nil
	case DOC:
		l.st.doc += tok.Literal
		return nil
	case SEMICOLON:
		tok.Type = NEWLINE
		tok.Literal = ""
	}

	if tok.IsNewline() {
		if l.st.skipNewline {
			return nil
		}
		if l.collapse && len(l.st.newlines) > 0 {
			return nil
		}
		l.st.newlines = append(l.st.newlines, tok)
		return nil
	}
	l.st.skipNewline = false

	if len(l.st.newlines) > 0 {
		if !tok.CanFollowCollapsibleNewline() {
			l.st.out = append(l.st.out, l.st.newlines...)
		}
		l.st.newlines = l.st.newlines[:0]
	}

	if l.st.doc != "" {
		if tok.CanHaveDoc() {
			tok.Doc = l.st.doc
		}
		l.st.doc = ""
	}

	l.st.out = append(l.st.out, tok)
	if tok.CanPrecedeCollapsibleNewline() && !(tok.Type == EQUAL && l.st.setterEq) {
		l.st.skipNewline = true
	}
	return nil
}

// rawToken returns the next token exactly as scanned.
func (l *Lexer) rawToken() (Token, error) {
	if len(l.st.pending) > 0 {
		tok := l.st.pending[0]
		l.st.pending = l.st.pending[1:]
		l.remember(tok)
		return tok, nil
	}
	if l.st.done {
		return l.tokenAt(EOF, "", len(l.src)), nil
	}
	toks, err := l.scan()
	if err != nil {
		return Token{}, err
	}
	if toks[0].IsEOF() {
		l.st.done = true
	}
	l.st.pending = append(l.st.pending, toks[1:]...)
	l.remember(toks[0])
	return toks[0], nil
}

func (l *Lexer) remember(tok Token) {
	if tok.Type == COMMENT || tok.Type == DOC {
		return
	}
	l.st.setterEq = false
	switch {
	case tok.Type == DEF:
		l.st.defHeader = 1
	case l.st.defHeader > 0:
		l.st.defHeader++
		if tok.Type == EQUAL && !tok.WhitespacePrecedes &&
			(l.st.defHeader == 3 || l.st.defHeader == 5) &&
			(l.st.last.Type == NAME || l.st.last.Type == CONSTANT) {
			l.st.setterEq = true
		}
		if l.st.defHeader >= 5 {
			l.st.defHeader = 0
		}
	}
	l.st.last = tok
	l.st.hasLast = true
}

// lastType returns the type of the previous significant token, or EOF at
// the start of input.
func (l *Lexer) lastType() TokenType {
	if !l.st.hasLast {
		return EOF
	}
	return l.st.last.Type
}

// lastEndsExpression reports whether a value may be complete at this
// point, so the next operator is binary.
func (l *Lexer) lastEndsExpression() bool {
	if !l.st.hasLast {
		return false
	}
	return l.st.last.CanEndExpression()
}

// lastIsCommandName reports whether the previous token is a bare name
// that could be a method call taking arguments, rather than a local.
func (l *Lexer) lastIsCommandName() bool {
	if !l.st.hasLast || l.st.last.Type != NAME {
		return false
	}
	return l.isLocal == nil || !l.isLocal(l.st.last.Literal)
}

// lastIsMethodNamePosition reports whether the next token names a method,
// as after def or a dot.
func (l *Lexer) lastIsMethodNamePosition() bool {
	switch l.lastType() {
	case DEF, DOT, SAFE_NAV:
		return true
	}
	return false
}

// Helper methods for character access and movement

func (l *Lexer) isAtEnd() bool {
	return l.st.pos >= len(l.src)
}

func (l *Lexer) peek() byte {
	return l.peekAhead(0)
}

func (l *Lexer) peekNext() byte {
	return l.peekAhead(1)
}

func (l *Lexer) peekAhead(n int) byte {
	if l.st.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.st.pos+n]
}

func (l *Lexer) tokenAt(typ TokenType, literal string, start int) Token {
	line, col := l.position(start)
	tok := NewToken(typ, literal, line, col)
	tok.WhitespacePrecedes = l.ws
	return tok
}

// op consumes n bytes and returns an operator token.
func (l *Lexer) op(typ TokenType, start, n int) []Token {
	l.st.pos = start + n
	return []Token{l.tokenAt(typ, "", start)}
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c >= 0x80
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentChar(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// skipWhitespace skips blanks and escaped newlines.
func (l *Lexer) skipWhitespace() bool {
	found := false
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.st.pos++
		case c == '\\' && l.peekNext() == '\n':
			l.st.pos += 2
		case c == '\\' && l.peekNext() == '\r' && l.peekAhead(2) == '\n':
			l.st.pos += 3
		default:
			return found
		}
		found = true
	}
	return found
}

func (l *Lexer) atLineStart(pos int) bool {
	return pos == 0 || l.src[pos-1] == '\n'
}

// scan produces the next token, or a run of tokens for literals that are
// scanned as a whole.
func (l *Lexer) scan() ([]Token, error) {
	l.ws = l.skipWhitespace()
	start := l.st.pos
	if l.isAtEnd() {
		return []Token{l.tokenAt(EOF, "", start)}, nil
	}
	c := l.peek()
	next := l.peekNext()

	if l.stopChar != 0 {
		switch c {
		case '{':
			l.st.braceDepth++
		case l.stopChar:
			if l.st.braceDepth == 0 {
				return []Token{l.tokenAt(EOF, "", start)}, nil
			}
			l.st.braceDepth--
		}
	}

	switch c {
	case '\n':
		toks := l.op(NEWLINE, start, 1)
		if l.st.heredocResume >= 0 {
			l.st.pos = l.st.heredocResume
			l.st.heredocResume = -1
		}
		return toks, nil

	case ';':
		return l.op(SEMICOLON, start, 1), nil

	case ',':
		return l.op(COMMA, start, 1), nil

	case '#':
		return l.scanComment(start), nil

	case '=':
		switch {
		case strings.HasPrefix(l.src[start:], "==="):
			return l.op(EQ_EQ_EQ, start, 3), nil
		case next == '=':
			return l.op(EQ_EQ, start, 2), nil
		case next == '>':
			return l.op(HASH_ROCKET, start, 2), nil
		case next == '~':
			return l.op(MATCH, start, 2), nil
		case l.atLineStart(start) && strings.HasPrefix(l.src[start:], "=begin") &&
			(start+6 >= len(l.src) || isSpace(l.src[start+6])):
			return l.scanEmbeddedDoc(start)
		}
		return l.op(EQUAL, start, 1), nil

	case '+', '-':
		return l.scanPlusMinus(start, c, next), nil

	case '*':
		switch {
		case strings.HasPrefix(l.src[start:], "**="):
			return l.op(STAR_STAR_EQ, start, 3), nil
		case next == '*':
			return l.op(STAR_STAR, start, 2), nil
		case next == '=':
			return l.op(STAR_EQ, start, 2), nil
		}
		return l.op(STAR, start, 1), nil

	case '/':
		return l.scanSlash(start, next)

	case '%':
		return l.scanPercent(start, next)

	case '!':
		switch {
		case next == '=':
			return l.op(NOT_EQ, start, 2), nil
		case next == '~':
			return l.op(NOT_MATCH, start, 2), nil
		case next == '@' && l.lastIsMethodNamePosition():
			l.st.pos = start + 2
			return []Token{l.tokenAt(NAME, "!", start)}, nil
		}
		return l.op(BANG, start, 1), nil

	case '<':
		return l.scanLessThan(start, next)

	case '>':
		switch {
		case strings.HasPrefix(l.src[start:], ">>="):
			return l.op(RSHIFT_EQ, start, 3), nil
		case next == '>':
			return l.op(RSHIFT, start, 2), nil
		case next == '=':
			return l.op(GE, start, 2), nil
		}
		return l.op(GT, start, 1), nil

	case '&':
		switch {
		case strings.HasPrefix(l.src[start:], "&&="):
			return l.op(AMP_AMP_EQ, start, 3), nil
		case next == '&':
			return l.op(AMP_AMP, start, 2), nil
		case next == '=':
			return l.op(AMP_EQ, start, 2), nil
		case next == '.':
			return l.op(SAFE_NAV, start, 2), nil
		}
		return l.op(AMP, start, 1), nil

	case '|':
		switch {
		case strings.HasPrefix(l.src[start:], "||="):
			return l.op(PIPE_PIPE_EQ, start, 3), nil
		case next == '|':
			return l.op(PIPE_PIPE, start, 2), nil
		case next == '=':
			return l.op(PIPE_EQ, start, 2), nil
		}
		return l.op(PIPE, start, 1), nil

	case '^':
		if next == '=' {
			return l.op(CARET_EQ, start, 2), nil
		}
		return l.op(CARET, start, 1), nil

	case '~':
		if next == '@' && l.lastIsMethodNamePosition() {
			l.st.pos = start + 2
			return []Token{l.tokenAt(NAME, "~", start)}, nil
		}
		return l.op(TILDE, start, 1), nil

	case '?':
		return l.scanQuestion(start, next)

	case ':':
		return l.scanColon(start, next)

	case '@':
		return l.scanInstanceVariable(start, next)

	case '$':
		return l.scanGlobal(start, next)

	case '.':
		switch {
		case strings.HasPrefix(l.src[start:], "..."):
			return l.op(DOT_DOT_DOT, start, 3), nil
		case next == '.':
			return l.op(DOT_DOT, start, 2), nil
		}
		return l.op(DOT, start, 1), nil

	case '(':
		return l.op(LPAREN, start, 1), nil

	case ')':
		return l.op(RPAREN, start, 1), nil

	case '[':
		if next == ']' {
			if l.peekAhead(2) == '=' && l.lastIsMethodNamePosition() {
				return l.op(LBRACKET_RBRACKET_EQ, start, 3), nil
			}
			if l.lastIsMethodNamePosition() || !l.lastEndsExpression() || l.ws {
				return l.op(LBRACKET_RBRACKET, start, 2), nil
			}
		}
		return l.op(LBRACKET, start, 1), nil

	case ']':
		return l.op(RBRACKET, start, 1), nil

	case '{':
		return l.op(LBRACE, start, 1), nil

	case '}':
		return l.op(RBRACE, start, 1), nil

	case '"':
		l.st.pos = start + 1
		return l.scanStringLiteral(start, quoteDouble, '"', '"')

	case '\'':
		l.st.pos = start + 1
		return l.scanStringLiteral(start, quoteSingle, '\'', '\'')

	case '`':
		if l.lastIsMethodNamePosition() {
			l.st.pos = start + 1
			return []Token{l.tokenAt(NAME, "`", start)}, nil
		}
		l.st.pos = start + 1
		return l.scanStringLiteral(start, quoteShell, '`', '`')

	case '\\':
		return nil, l.unexpectedChar(start)
	}

	if isDigit(c) {
		tok, err := l.scanNumber(start)
		if err != nil {
			return nil, err
		}
		return []Token{tok}, nil
	}
	if isAlpha(c) {
		return l.scanIdentifier(start), nil
	}
	return nil, l.unexpectedChar(start)
}

// scanComment skips a # comment. A comment that starts its line may be
// documentation for a following class, module or def.
func (l *Lexer) scanComment(start int) []Token {
	end := strings.IndexByte(l.src[start:], '\n')
	if end < 0 {
		end = len(l.src)
	} else {
		end += start
	}
	l.st.pos = end
	text := l.src[start:end]
	if !l.st.hasLast || l.st.last.IsNewline() || l.st.last.Type == SEMICOLON {
		return []Token{l.tokenAt(DOC, text+"\n", start)}
	}
	return []Token{l.tokenAt(COMMENT, text, start)}
}

// scanEmbeddedDoc skips an =begin/=end block. These never attach as
// documentation.
func (l *Lexer) scanEmbeddedDoc(start int) ([]Token, error) {
	pos := start
	for {
		nl := strings.IndexByte(l.src[pos:], '\n')
		if nl < 0 {
			return nil, l.unterminated("embedded document", "=end", start)
		}
		pos += nl + 1
		if strings.HasPrefix(l.src[pos:], "=end") &&
			(pos+4 >= len(l.src) || isSpace(l.src[pos+4])) {
			end := strings.IndexByte(l.src[pos:], '\n')
			if end < 0 {
				l.st.pos = len(l.src)
			} else {
				l.st.pos = pos + end
			}
			return []Token{l.tokenAt(COMMENT, l.src[start:l.st.pos], start)}, nil
		}
	}
}

func (l *Lexer) scanPlusMinus(start int, c, next byte) []Token {
	plain, assign := PLUS, PLUS_EQ
	if c == '-' {
		plain, assign = MINUS, MINUS_EQ
		if next == '>' {
			return l.op(ARROW, start, 2)
		}
	}
	switch {
	case next == '=':
		return l.op(assign, start, 2)
	case next == '@' && l.lastIsMethodNamePosition():
		l.st.pos = start + 2
		return []Token{l.tokenAt(NAME, string(c)+"@", start)}
	}
	return l.op(plain, start, 1)
}

// scanSlash decides between division and the start of a regexp.
func (l *Lexer) scanSlash(start int, next byte) ([]Token, error) {
	if l.lastIsMethodNamePosition() {
		return l.op(SLASH, start, 1), nil
	}
	regexp := false
	switch {
	case !l.lastEndsExpression():
		regexp = true
	case next == '=':
		return l.op(SLASH_EQ, start, 2), nil
	case next == ' ' || next == '\t' || next == '\n':
		regexp = false
	case l.ws && l.lastIsCommandName():
		regexp = true
	}
	if !regexp {
		return l.op(SLASH, start, 1), nil
	}
	l.logger.Debug("slash opens regexp", "line", l.tokenAt(EOF, "", start).Line, "after", l.lastType())
	l.st.pos = start + 1
	return l.scanStringLiteral(start, quoteRegexp, '/', '/')
}

// scanPercent handles %= and the percent literals.
func (l *Lexer) scanPercent(start int, next byte) ([]Token, error) {
	if l.lastIsMethodNamePosition() {
		return l.op(PERCENT, start, 1), nil
	}
	literal := !l.lastEndsExpression() ||
		(l.ws && l.lastIsCommandName() && next != ' ' && next != '=' && next != '\n')
	if !literal {
		if next == '=' {
			return l.op(PERCENT_EQ, start, 2), nil
		}
		return l.op(PERCENT, start, 1), nil
	}

	kind, delimPos := quoteDouble, start+1
	if k, ok := percentLetters[next]; ok && start+2 < len(l.src) && isPercentDelimiter(l.src[start+2]) {
		kind, delimPos = k, start+2
	}
	if delimPos >= len(l.src) || !isPercentDelimiter(l.src[delimPos]) {
		if next == '=' {
			return l.op(PERCENT_EQ, start, 2), nil
		}
		return l.op(PERCENT, start, 1), nil
	}
	open := l.src[delimPos]
	closer := closingDelimiter(open)
	l.st.pos = delimPos + 1
	return l.scanStringLiteral(start, kind, open, closer)
}

// scanLessThan handles <, <=, <=>, <<, <<= and heredoc openers.
func (l *Lexer) scanLessThan(start int, next byte) ([]Token, error) {
	src := l.src
	switch {
	case strings.HasPrefix(src[start:], "<=>"):
		return l.op(CMP, start, 3), nil
	case next == '=':
		return l.op(LE, start, 2), nil
	case next != '<':
		return l.op(LT, start, 1), nil
	case strings.HasPrefix(src[start:], "<<="):
		return l.op(LSHIFT_EQ, start, 3), nil
	}
	if l.lastIsMethodNamePosition() {
		return l.op(LSHIFT, start, 2), nil
	}

	after := l.peekAhead(2)
	if after == '~' || after == '-' {
		c := l.peekAhead(3)
		if isAlpha(c) || c == '"' || c == '`' || c == '\'' {
			return l.scanHeredoc(start)
		}
		return l.op(LSHIFT, start, 2), nil
	}
	if !(isAlpha(after) || after == '"' || after == '`' || after == '\'') {
		return l.op(LSHIFT, start, 2), nil
	}

	heredoc := false
	if !l.ws {
		heredoc = !l.lastEndsExpression()
	} else {
		heredoc = !l.lastEndsExpression() || l.lastIsCommandName()
		if heredoc && isLowerStart(after) && l.isLocal != nil {
			end := start + 2
			for end < len(src) && isIdentChar(src[end]) {
				end++
			}
			if l.isLocal(src[start+2 : end]) {
				heredoc = false
			}
		}
	}
	if !heredoc {
		return l.op(LSHIFT, start, 2), nil
	}
	return l.scanHeredoc(start)
}

func isLowerStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || c == '_'
}

// scanQuestion handles the ternary ? and character literals like ?a.
func (l *Lexer) scanQuestion(start int, next byte) ([]Token, error) {
	if start+1 >= len(l.src) || isSpace(next) {
		return l.op(TERNARY_QUESTION, start, 1), nil
	}
	if l.lastEndsExpression() && !(l.ws && l.lastIsCommandName()) {
		return l.op(TERNARY_QUESTION, start, 1), nil
	}
	if next == '\\' {
		var b strings.Builder
		end, err := l.decodeEscape(&b, start+1)
		if err != nil {
			return nil, err
		}
		l.st.pos = end
		return []Token{l.tokenAt(STRING, b.String(), start)}, nil
	}
	r, size := utf8.DecodeRuneInString(l.src[start+1:])
	end := start + 1 + size
	if isIdentChar(next) && end < len(l.src) && isIdentChar(l.src[end]) {
		return l.op(TERNARY_QUESTION, start, 1), nil
	}
	if l.lastEndsExpression() && end < len(l.src) && l.src[end] == ':' &&
		(end+1 >= len(l.src) || l.src[end+1] != ':') {
		// x ?y:z
		return l.op(TERNARY_QUESTION, start, 1), nil
	}
	l.st.pos = end
	return []Token{l.tokenAt(STRING, string(r), start)}, nil
}

// scanColon handles ::, the ternary colon and symbols.
func (l *Lexer) scanColon(start int, next byte) ([]Token, error) {
	switch {
	case next == ':':
		return l.op(COLON_COLON, start, 2), nil
	case !l.ws && l.lastEndsExpression():
		// a ? b:c
		return l.op(TERNARY_COLON, start, 1), nil
	case next == '"':
		l.st.pos = start + 2
		return l.scanStringLiteral(start, quoteSymbol, '"', '"')
	case next == '\'':
		l.st.pos = start + 2
		toks, err := l.scanStringLiteral(start, quoteSingle, '\'', '\'')
		if err != nil {
			return nil, err
		}
		toks[0].Type = SYMBOL
		return toks[:1], nil
	case start+1 >= len(l.src) || isSpace(next):
		return l.op(TERNARY_COLON, start, 1), nil
	}
	name, end := scanSymbolName(l.src, start+1)
	if name == "" {
		return l.op(TERNARY_COLON, start, 1), nil
	}
	l.st.pos = end
	return []Token{l.tokenAt(SYMBOL, name, start)}, nil
}

// symbolOperators lists the operator method names a bare symbol may use,
// longest first.
var symbolOperators = []string{
	"[]=", "===", "<=>", "**", "==", "=~", "!=", "!~", ">=", ">>", "<=", "<<",
	"+@", "-@", "~@", "!@", "[]",
	"+", "-", "*", "/", "%", "!", ">", "<", "&", "|", "^", "~",
}

// scanSymbolName reads the name of a :symbol starting at pos.
func scanSymbolName(src string, pos int) (string, int) {
	c := src[pos]
	switch {
	case c == '@' || c == '$':
		end := pos + 1
		if c == '@' && end < len(src) && src[end] == '@' {
			end++
		}
		if c == '$' && end < len(src) && !isIdentChar(src[end]) {
			return src[pos : end+1], end + 1
		}
		identStart := end
		for end < len(src) && isIdentChar(src[end]) {
			end++
		}
		if end == identStart {
			return "", pos
		}
		return src[pos:end], end
	case isAlpha(c):
		end := pos
		for end < len(src) && isIdentChar(src[end]) {
			end++
		}
		if end < len(src) {
			switch src[end] {
			case '?', '!':
				if end+1 >= len(src) || src[end+1] != '=' || (end+2 < len(src) && src[end+2] == '=') {
					end++
				}
			case '=':
				if end+1 >= len(src) || (src[end+1] != '=' && src[end+1] != '~' && src[end+1] != '>') {
					end++
				}
			}
		}
		return src[pos:end], end
	}
	for _, op := range symbolOperators {
		if strings.HasPrefix(src[pos:], op) {
			return op, pos + len(op)
		}
	}
	return "", pos
}

func (l *Lexer) scanInstanceVariable(start int, next byte) ([]Token, error) {
	typ, pos := IVAR, start+1
	if next == '@' {
		typ, pos = CVAR, start+2
	}
	if pos >= len(l.src) || !isAlpha(l.src[pos]) {
		return nil, l.unexpectedChar(start)
	}
	for pos < len(l.src) && isIdentChar(l.src[pos]) {
		pos++
	}
	l.st.pos = pos
	return []Token{l.tokenAt(typ, l.src[start:pos], start)}, nil
}

// specialGlobals are the punctuation globals such as $! and $~.
const specialGlobals = "?!=~@/\\;,.<>_*$:\"0"

func (l *Lexer) scanGlobal(start int, next byte) ([]Token, error) {
	switch {
	case next == '&' || next == '`' || next == '\'' || next == '+':
		l.st.pos = start + 2
		return []Token{l.tokenAt(BACK_REF, l.src[start:start+2], start)}, nil
	case next >= '1' && next <= '9':
		pos, n := start+1, int64(0)
		for pos < len(l.src) && isDigit(l.src[pos]) {
			n = n*10 + int64(l.src[pos]-'0')
			pos++
		}
		l.st.pos = pos
		tok := l.tokenAt(NTH_REF, l.src[start:pos], start)
		tok.Fixnum = n
		return []Token{tok}, nil
	case next == '-' && isIdentChar(l.peekAhead(2)):
		l.st.pos = start + 3
		return []Token{l.tokenAt(GVAR, l.src[start:start+3], start)}, nil
	case next != 0 && strings.IndexByte(specialGlobals, next) >= 0 && !(next == '_' && isIdentChar(l.peekAhead(2))):
		l.st.pos = start + 2
		return []Token{l.tokenAt(GVAR, l.src[start:start+2], start)}, nil
	case isAlpha(next):
		pos := start + 1
		for pos < len(l.src) && isIdentChar(l.src[pos]) {
			pos++
		}
		l.st.pos = pos
		return []Token{l.tokenAt(GVAR, l.src[start:pos], start)}, nil
	}
	return nil, l.unexpectedChar(start)
}

// scanIdentifier reads names, constants, keywords and name: keys.
func (l *Lexer) scanIdentifier(start int) []Token {
	src := l.src
	if l.atLineStart(start) && strings.HasPrefix(src[start:], "__END__") &&
		(start+7 == len(src) || src[start+7] == '\n' || src[start+7] == '\r') {
		l.st.pos = len(src)
		return []Token{l.tokenAt(EOF, "", start)}
	}

	pos := start
	for pos < len(src) && isIdentChar(src[pos]) {
		pos++
	}
	if pos < len(src) && (src[pos] == '?' || src[pos] == '!') {
		following := byte(0)
		if pos+1 < len(src) {
			following = src[pos+1]
		}
		if following != '=' || (pos+2 < len(src) && (src[pos+2] == '=' || src[pos+2] == '~')) {
			if !(src[pos] == '?' && following == ':' && pos+2 < len(src) && src[pos+2] != ':') {
				pos++
			}
		}
	}
	word := src[start:pos]
	l.st.pos = pos

	if l.isSymbolKeyColon(pos) {
		l.st.pos = pos + 1
		return []Token{l.tokenAt(SYMBOL_KEY, word, start)}
	}

	if typ, ok := keywords[word]; ok {
		if !l.keywordIsMethodName(pos) {
			return []Token{l.tokenAt(typ, "", start)}
		}
	}

	typ := NAME
	if c := word[0]; c >= 'A' && c <= 'Z' {
		typ = CONSTANT
	}
	return []Token{l.tokenAt(typ, word, start)}
}

// keywordIsMethodName reports whether a keyword at this point is really a
// method name, as in foo.class or def end.
func (l *Lexer) keywordIsMethodName(end int) bool {
	switch l.lastType() {
	case DOT, SAFE_NAV:
		return true
	case DEF:
		return !(end < len(l.src) && l.src[end] == '.')
	}
	return false
}

// isSymbolKeyColon reports whether the colon at pos turns the preceding
// word into a hash key.
func (l *Lexer) isSymbolKeyColon(pos int) bool {
	src := l.src
	if pos >= len(src) || src[pos] != ':' {
		return false
	}
	if pos+1 < len(src) && src[pos+1] == ':' {
		return false
	}
	if l.lastIsMethodNamePosition() {
		return false
	}
	return !l.st.hasLast || l.st.last.CanPrecedeSymbolKey()
}

// String returns a string representation of the lexer state (for debugging).
func (l *Lexer) String() string {
	line, col := l.position(l.st.pos)
	return fmt.Sprintf("Lexer{pos=%d, line=%d, col=%d, pending=%d}",
		l.st.pos, line, col, len(l.st.pending)+len(l.st.out))
}
