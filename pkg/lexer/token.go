package lexer

// TokenType represents the type of a token. The string value is the
// name reported by Tokens and shown in syntax errors.
type TokenType string

// Token types.
const (
	// Keywords
	ALIAS       TokenType = "alias"
	AND_KW      TokenType = "and"
	BEGIN       TokenType = "begin"
	BEGIN_UPPER TokenType = "BEGIN"
	BREAK       TokenType = "break"
	CASE        TokenType = "case"
	CLASS       TokenType = "class"
	DEF         TokenType = "def"
	DEFINED     TokenType = "defined?"
	DO          TokenType = "do"
	ELSE        TokenType = "else"
	ELSIF       TokenType = "elsif"
	END         TokenType = "end"
	END_UPPER   TokenType = "END"
	ENCODING_KW TokenType = "__ENCODING__"
	ENSURE      TokenType = "ensure"
	FALSE       TokenType = "false"
	FILE_KW     TokenType = "__FILE__"
	FOR         TokenType = "for"
	IF          TokenType = "if"
	IN          TokenType = "in"
	LINE_KW     TokenType = "__LINE__"
	MODULE      TokenType = "module"
	NEXT        TokenType = "next"
	NIL         TokenType = "nil"
	NOT_KW      TokenType = "not"
	OR_KW       TokenType = "or"
	REDO        TokenType = "redo"
	RESCUE      TokenType = "rescue"
	RETRY       TokenType = "retry"
	RETURN      TokenType = "return"
	SELF        TokenType = "self"
	SUPER       TokenType = "super"
	THEN        TokenType = "then"
	TRUE        TokenType = "true"
	UNDEF       TokenType = "undef"
	UNLESS      TokenType = "unless"
	UNTIL       TokenType = "until"
	WHEN        TokenType = "when"
	WHILE       TokenType = "while"
	YIELD       TokenType = "yield"

	// Names and variables
	NAME       TokenType = "name"       // foo, foo?, foo!
	CONSTANT   TokenType = "constant"   // Foo
	IVAR       TokenType = "ivar"       // @foo
	CVAR       TokenType = "cvar"       // @@foo
	GVAR       TokenType = "gvar"       // $foo, $0, $!
	BACK_REF   TokenType = "back_ref"   // $&
	NTH_REF    TokenType = "nth_ref"    // $1
	SYMBOL_KEY TokenType = "symbol_key" // foo:

	// Literals
	FIXNUM           TokenType = "fixnum"
	BIGNUM           TokenType = "bignum"
	FLOAT            TokenType = "float"
	RATIONAL         TokenType = "rational"
	COMPLEX          TokenType = "complex"
	RATIONAL_COMPLEX TokenType = "rational_complex"
	STRING           TokenType = "string"
	SYMBOL           TokenType = "symbol"
	DSTR             TokenType = "dstr"
	DSTR_END         TokenType = "dstrend"
	DSTR_SYMBOL_KEY  TokenType = "dstr_symbol_key" // closes a "...": key
	DSYM             TokenType = "dsym"
	DSYM_END         TokenType = "dsymend"
	DXSTR            TokenType = "dxstr"
	DXSTR_END        TokenType = "dxstrend"
	DREGX            TokenType = "dregx"
	DREGX_END        TokenType = "dregxend"
	EVSTR            TokenType = "evstr"
	EVSTR_END        TokenType = "evstrend"
	WORDS_LOWER_W    TokenType = "%w"
	WORDS_UPPER_W    TokenType = "%W"
	WORDS_LOWER_I    TokenType = "%i"
	WORDS_UPPER_I    TokenType = "%I"

	// Operators
	PLUS             TokenType = "+"
	PLUS_EQ          TokenType = "+="
	MINUS            TokenType = "-"
	MINUS_EQ         TokenType = "-="
	STAR             TokenType = "*"
	STAR_EQ          TokenType = "*="
	STAR_STAR        TokenType = "**"
	STAR_STAR_EQ     TokenType = "**="
	SLASH            TokenType = "/"
	SLASH_EQ         TokenType = "/="
	PERCENT          TokenType = "%"
	PERCENT_EQ       TokenType = "%="
	EQUAL            TokenType = "="
	EQ_EQ            TokenType = "=="
	EQ_EQ_EQ         TokenType = "==="
	NOT_EQ           TokenType = "!="
	MATCH            TokenType = "=~"
	NOT_MATCH        TokenType = "!~"
	BANG             TokenType = "!"
	TILDE            TokenType = "~"
	LT               TokenType = "<"
	LE               TokenType = "<="
	GT               TokenType = ">"
	GE               TokenType = ">="
	CMP              TokenType = "<=>"
	LSHIFT           TokenType = "<<"
	LSHIFT_EQ        TokenType = "<<="
	RSHIFT           TokenType = ">>"
	RSHIFT_EQ        TokenType = ">>="
	AMP              TokenType = "&"
	AMP_EQ           TokenType = "&="
	AMP_AMP          TokenType = "&&"
	AMP_AMP_EQ       TokenType = "&&="
	PIPE             TokenType = "|"
	PIPE_EQ          TokenType = "|="
	PIPE_PIPE        TokenType = "||"
	PIPE_PIPE_EQ     TokenType = "||="
	CARET            TokenType = "^"
	CARET_EQ         TokenType = "^="
	HASH_ROCKET      TokenType = "=>"
	ARROW            TokenType = "->"
	SAFE_NAV         TokenType = "&."
	DOT              TokenType = "."
	DOT_DOT          TokenType = ".."
	DOT_DOT_DOT      TokenType = "..."
	COLON_COLON      TokenType = "::"
	TERNARY_QUESTION TokenType = "?"
	TERNARY_COLON    TokenType = ":"

	// Punctuation
	LPAREN               TokenType = "("
	RPAREN               TokenType = ")"
	LBRACKET             TokenType = "["
	RBRACKET             TokenType = "]"
	LBRACKET_RBRACKET    TokenType = "[]"
	LBRACKET_RBRACKET_EQ TokenType = "[]="
	LBRACE               TokenType = "{"
	RBRACE               TokenType = "}"
	COMMA                TokenType = ","
	SEMICOLON            TokenType = ";"

	// Structure
	NEWLINE TokenType = "\n"
	COMMENT TokenType = "comment"
	DOC     TokenType = "doc"
	EOF     TokenType = "EOF"
)

// Token represents a single token from the lexer. Tokens are values;
// nothing in the lexer retains them after emission.
type Token struct {
	Type    TokenType
	Literal string  // names, string contents, raw digits for bignum/rational
	Fixnum  int64   // fixnum and nth_ref values
	Float   float64 // float values
	Options string  // regexp flags on dregxend
	Words   []Word  // %w %W %i %I entries
	Doc     string  // leading comment block for class/module/def

	Line   int // 1-indexed
	Column int // 0-indexed

	WhitespacePrecedes bool

	inner []Token // the #{...} run that follows an EVSTR, spliced in by the outermost lexer
}

// Word is one element of a percent word array. Parts is non-nil when the
// word contains interpolation; it then holds a complete dstr token run.
type Word struct {
	Text  string
	Parts []Token
}

// NewToken creates a new token with the given properties.
func NewToken(typ TokenType, literal string, line, col int) Token {
	return Token{
		Type:    typ,
		Literal: literal,
		Line:    line,
		Column:  col,
	}
}

var keywords = map[string]TokenType{
	"__ENCODING__": ENCODING_KW,
	"__LINE__":     LINE_KW,
	"__FILE__":     FILE_KW,
	"BEGIN":        BEGIN_UPPER,
	"END":          END_UPPER,
	"alias":        ALIAS,
	"and":          AND_KW,
	"begin":        BEGIN,
	"break":        BREAK,
	"case":         CASE,
	"class":        CLASS,
	"def":          DEF,
	"defined?":     DEFINED,
	"do":           DO,
	"else":         ELSE,
	"elsif":        ELSIF,
	"end":          END,
	"ensure":       ENSURE,
	"false":        FALSE,
	"for":          FOR,
	"if":           IF,
	"in":           IN,
	"module":       MODULE,
	"next":         NEXT,
	"nil":          NIL,
	"not":          NOT_KW,
	"or":           OR_KW,
	"redo":         REDO,
	"rescue":       RESCUE,
	"retry":        RETRY,
	"return":       RETURN,
	"self":         SELF,
	"super":        SUPER,
	"then":         THEN,
	"true":         TRUE,
	"undef":        UNDEF,
	"unless":       UNLESS,
	"until":        UNTIL,
	"when":         WHEN,
	"while":        WHILE,
	"yield":        YIELD,
}

// LookupKeyword returns the keyword type for word, if it is one.
func LookupKeyword(word string) (TokenType, bool) {
	typ, ok := keywords[word]
	return typ, ok
}

// IsKeyword returns true if the token is a reserved word.
func (t Token) IsKeyword() bool {
	_, ok := keywords[string(t.Type)]
	return ok
}

// IsEOF returns true at end of input.
func (t Token) IsEOF() bool {
	return t.Type == EOF
}

// IsNewline returns true for statement separators.
func (t Token) IsNewline() bool {
	return t.Type == NEWLINE
}

// IsOperator returns true if the token is a binary or unary operator
// that can also be defined as a method.
func (t Token) IsOperator() bool {
	switch t.Type {
	case PLUS, MINUS, STAR, STAR_STAR, SLASH, PERCENT, EQ_EQ, EQ_EQ_EQ,
		NOT_EQ, MATCH, NOT_MATCH, BANG, TILDE, LT, LE, GT, GE, CMP,
		LSHIFT, RSHIFT, AMP, PIPE, CARET, LBRACKET_RBRACKET, LBRACKET_RBRACKET_EQ:
		return true
	}
	return false
}

// IsOpAssign returns true for compound assignment operators like +=.
func (t Token) IsOpAssign() bool {
	switch t.Type {
	case PLUS_EQ, MINUS_EQ, STAR_EQ, STAR_STAR_EQ, SLASH_EQ, PERCENT_EQ,
		LSHIFT_EQ, RSHIFT_EQ, AMP_EQ, AMP_AMP_EQ, PIPE_EQ, PIPE_PIPE_EQ, CARET_EQ:
		return true
	}
	return false
}

// IsLiteral returns true if the token represents a literal value.
func (t Token) IsLiteral() bool {
	switch t.Type {
	case FIXNUM, BIGNUM, FLOAT, RATIONAL, COMPLEX, RATIONAL_COMPLEX, STRING, SYMBOL:
		return true
	}
	return false
}

// IsModifier returns true for keywords that can trail a statement.
func (t Token) IsModifier() bool {
	switch t.Type {
	case IF, UNLESS, WHILE, UNTIL, RESCUE:
		return true
	}
	return false
}

// IsEndOfExpression returns true for tokens that terminate a statement.
func (t Token) IsEndOfExpression() bool {
	switch t.Type {
	case END, RBRACE, NEWLINE, SEMICOLON, EOF:
		return true
	}
	return t.IsModifier()
}

// CanHaveDoc returns true for tokens that receive a leading comment block.
func (t Token) CanHaveDoc() bool {
	switch t.Type {
	case CLASS, DEF, MODULE:
		return true
	}
	return false
}

// CanEndExpression reports whether a value could be complete after this
// token. It drives the operator-versus-literal decisions for / % << ? and [.
func (t Token) CanEndExpression() bool {
	switch t.Type {
	case NAME, CONSTANT, IVAR, CVAR, GVAR, BACK_REF, NTH_REF,
		FIXNUM, BIGNUM, FLOAT, RATIONAL, COMPLEX, RATIONAL_COMPLEX,
		STRING, SYMBOL, DSTR_END, DSYM_END, DXSTR_END, DREGX_END,
		WORDS_LOWER_W, WORDS_UPPER_W, WORDS_LOWER_I, WORDS_UPPER_I,
		RPAREN, RBRACKET, RBRACE, END, SELF, NIL, TRUE, FALSE,
		FILE_KW, LINE_KW, ENCODING_KW:
		return true
	}
	return false
}

// CanFollowCollapsibleNewline returns true for tokens that continue the
// previous line, so a newline before them is dropped.
func (t Token) CanFollowCollapsibleNewline() bool {
	switch t.Type {
	case DOT, RBRACE, RBRACKET, RPAREN, SAFE_NAV, TERNARY_COLON, THEN:
		return true
	}
	return false
}

// CanPrecedeCollapsibleNewline returns true for tokens after which a
// newline cannot end the statement.
func (t Token) CanPrecedeCollapsibleNewline() bool {
	switch t.Type {
	case AMP_AMP, AND_KW, ARROW, AMP, CARET, CASE, COMMA, CMP, COLON_COLON,
		DOT, EQUAL, EQ_EQ, EQ_EQ_EQ, GT, GE, HASH_ROCKET, IN, LBRACE,
		LBRACKET, LSHIFT, LT, LE, LPAREN, MATCH, MINUS, MINUS_EQ, BANG,
		NOT_EQ, NOT_MATCH, OR_KW, PERCENT, PERCENT_EQ, PIPE, PIPE_PIPE,
		PLUS, PLUS_EQ, RSHIFT, SAFE_NAV, SLASH, SLASH_EQ, STAR, STAR_EQ,
		STAR_STAR, STAR_STAR_EQ, TERNARY_COLON, TERNARY_QUESTION, TILDE:
		return true
	}
	return false
}

// CanBeFirstArgOfImplicitCall returns true for tokens that may open the
// argument list of a call written without parentheses.
func (t Token) CanBeFirstArgOfImplicitCall() bool {
	switch t.Type {
	case ARROW, NAME, BEGIN, BIGNUM, CVAR, CONSTANT, COLON_COLON, DEF, DEFINED,
		ENCODING_KW, FALSE, FILE_KW, FIXNUM, FLOAT, RATIONAL, COMPLEX,
		RATIONAL_COMPLEX, GVAR, BACK_REF, IVAR, DREGX, DXSTR, DSTR, DSYM,
		LBRACKET, LBRACKET_RBRACKET, LINE_KW, LPAREN, MINUS, NIL, BANG,
		NOT_KW, NTH_REF, WORDS_LOWER_I, WORDS_LOWER_W, WORDS_UPPER_I,
		WORDS_UPPER_W, SELF, STAR, STAR_STAR, STRING, SUPER, SYMBOL,
		SYMBOL_KEY, TILDE, TRUE, YIELD, AMP, CASE, PLUS:
		return true
	}
	return false
}

// CanPrecedeSymbolKey returns true if name: after this token is a hash key.
func (t Token) CanPrecedeSymbolKey() bool {
	switch t.Type {
	case ARROW, NAME, COMMA, CONSTANT, LBRACKET, LBRACE, LPAREN, PIPE,
		PIPE_PIPE, SUPER, YIELD, RETURN, BREAK, NEXT, STAR, STAR_STAR, IN,
		WHEN, NEWLINE, SEMICOLON:
		return true
	}
	return false
}

// CanPrecedeRegexpLiteral returns true for keywords after which a slash
// always opens a regexp.
func (t Token) CanPrecedeRegexpLiteral() bool {
	switch t.Type {
	case ELSIF, IF, RESCUE, RETURN, UNLESS, UNTIL, WHEN, WHILE, AND_KW, OR_KW, NOT_KW:
		return true
	}
	return false
}

// CanBeRangeArg returns true if the token can start the right-hand side of
// a range; anything else makes the range endless.
func (t Token) CanBeRangeArg() bool {
	switch t.Type {
	case RPAREN, RBRACKET, RBRACE, NEWLINE, SEMICOLON, EOF, ELSE, ELSIF, END,
		IN, THEN, WHEN, DO, COMMA, HASH_ROCKET:
		return false
	}
	return !t.IsModifier()
}

// TypeValue returns the token's display name as used in error messages.
func (t Token) TypeValue() string {
	return string(t.Type)
}
