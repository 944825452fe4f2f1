package lexer

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// rec builds an expected record without a literal.
func rec(typ TokenType) TokenRecord {
	return TokenRecord{Type: string(typ)}
}

// recLit builds an expected record with a literal.
func recLit(typ TokenType, literal any) TokenRecord {
	return TokenRecord{Type: string(typ), Literal: literal}
}

// compareRecords compares two record slices and reports differences.
func compareRecords(t *testing.T, expected, actual []TokenRecord) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("token count mismatch: got %d, expected %d", len(actual), len(expected))
		for i, r := range actual {
			t.Logf("  actual[%d] = %q: %#v", i, r.Type, r.Literal)
		}
		return
	}
	for i := range expected {
		if !reflect.DeepEqual(expected[i], actual[i]) {
			t.Errorf("token[%d] = {%q %#v %q}, expected {%q %#v %q}", i,
				actual[i].Type, actual[i].Literal, actual[i].Options,
				expected[i].Type, expected[i].Literal, expected[i].Options)
		}
	}
}

type recordTest struct {
	name     string
	input    string
	expected []TokenRecord
}

func runRecordTests(t *testing.T, tests []recordTest, opts ...Option) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Tokens(tt.input, false, opts...)
			if err != nil {
				t.Fatalf("Tokens() error = %v", err)
			}
			compareRecords(t, tt.expected, records)
		})
	}
}

// TestTokenize_Keywords tests that every reserved word lexes as itself.
func TestTokenize_Keywords(t *testing.T) {
	words := []string{
		"__ENCODING__", "__LINE__", "__FILE__", "BEGIN", "END", "alias", "and",
		"begin", "break", "case", "class", "def", "defined?", "do", "else",
		"elsif", "end", "ensure", "false", "for", "if", "in", "module", "next",
		"nil", "not", "or", "redo", "rescue", "retry", "return", "self",
		"super", "then", "true", "undef", "unless", "until", "when", "while",
		"yield",
	}
	for _, word := range words {
		t.Run(word, func(t *testing.T) {
			records, err := Tokens(word, false)
			if err != nil {
				t.Fatalf("Tokens() error = %v", err)
			}
			compareRecords(t, []TokenRecord{{Type: word}}, records)
		})
	}

	runRecordTests(t, []recordTest{
		{
			name:     "keyword prefix is a name",
			input:    "defx = 1",
			expected: []TokenRecord{recLit(NAME, "defx"), rec(EQUAL), recLit(FIXNUM, int64(1))},
		},
		{
			name:     "keyword after dot",
			input:    "foo.class",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(DOT), recLit(NAME, "class")},
		},
		{
			name:     "keyword after def",
			input:    "def end",
			expected: []TokenRecord{rec(DEF), recLit(NAME, "end")},
		},
		{
			name:     "keyword as hash key",
			input:    "foo(if: 1)",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(LPAREN), recLit(SYMBOL_KEY, "if"), recLit(FIXNUM, int64(1)), rec(RPAREN)},
		},
	})
}

// TestTokenize_DivisionAndRegexp tests the slash disambiguation.
func TestTokenize_DivisionAndRegexp(t *testing.T) {
	two := recLit(FIXNUM, int64(2))
	regexp2 := []TokenRecord{rec(DREGX), recLit(STRING, "2"), rec(DREGX_END)}

	runRecordTests(t, []recordTest{
		{
			name:     "no spaces",
			input:    "1/2",
			expected: []TokenRecord{recLit(FIXNUM, int64(1)), rec(SLASH), two},
		},
		{
			name:     "spaced",
			input:    "1 / 2 / 3",
			expected: []TokenRecord{recLit(FIXNUM, int64(1)), rec(SLASH), two, rec(SLASH), recLit(FIXNUM, int64(3))},
		},
		{
			name:     "name then spaced slash",
			input:    "foo / 2",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(SLASH), two},
		},
		{
			name:     "command argument",
			input:    "foo /2/",
			expected: append([]TokenRecord{recLit(NAME, "foo")}, regexp2...),
		},
		{
			name:     "name then slash",
			input:    "foo/2",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(SLASH), two},
		},
		{
			name:     "after paren",
			input:    "foo( /2/ )",
			expected: append(append([]TokenRecord{recLit(NAME, "foo"), rec(LPAREN)}, regexp2...), rec(RPAREN)),
		},
		{
			name:     "after comma",
			input:    "foo 1,/2/",
			expected: append([]TokenRecord{recLit(NAME, "foo"), recLit(FIXNUM, int64(1)), rec(COMMA)}, regexp2...),
		},
		{
			name:     "divide assign",
			input:    "x /= 2",
			expected: []TokenRecord{recLit(NAME, "x"), rec(SLASH_EQ), two},
		},
	})
}

// TestTokenize_KnownLocals tests that a known local ends an expression.
func TestTokenize_KnownLocals(t *testing.T) {
	isLocal := func(name string) bool { return name == "x" }
	runRecordTests(t, []recordTest{
		{
			name:     "local divided",
			input:    "x /2",
			expected: []TokenRecord{recLit(NAME, "x"), rec(SLASH), recLit(FIXNUM, int64(2))},
		},
		{
			name:     "local shifted",
			input:    "x <<FOO",
			expected: []TokenRecord{recLit(NAME, "x"), rec(LSHIFT), recLit(CONSTANT, "FOO")},
		},
		{
			name:     "local modulo",
			input:    "x %w",
			expected: []TokenRecord{recLit(NAME, "x"), rec(PERCENT), recLit(NAME, "w")},
		},
		{
			name:     "local before compact ternary",
			input:    "x ?y:z",
			expected: []TokenRecord{recLit(NAME, "x"), rec(TERNARY_QUESTION), recLit(NAME, "y"), rec(TERNARY_COLON), recLit(NAME, "z")},
		},
	}, WithLocalLookup(isLocal))
}

// TestTokenize_Regexps tests regexp bodies, escapes and options.
func TestTokenize_Regexps(t *testing.T) {
	runRecordTests(t, []recordTest{
		{
			name:     "empty with options",
			input:    "//mix",
			expected: []TokenRecord{rec(DREGX), {Type: string(DREGX_END), Options: "mix"}},
		},
		{
			name:     "plain",
			input:    "/foo/",
			expected: []TokenRecord{rec(DREGX), recLit(STRING, "foo"), rec(DREGX_END)},
		},
		{
			name:     "escaped delimiter is unescaped",
			input:    `/\/\*\/\n/`,
			expected: []TokenRecord{rec(DREGX), recLit(STRING, `/\*/\n`), rec(DREGX_END)},
		},
		{
			name:  "interpolation",
			input: "/foo #{1+1} bar/",
			expected: []TokenRecord{
				rec(DREGX),
				recLit(STRING, "foo "),
				rec(EVSTR),
				recLit(FIXNUM, int64(1)),
				rec(PLUS),
				recLit(FIXNUM, int64(1)),
				rec(NEWLINE),
				rec(EVSTR_END),
				recLit(STRING, " bar"),
				rec(DREGX_END),
			},
		},
		{
			name:     "after match operator",
			input:    "foo =~ /=$/",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(MATCH), rec(DREGX), recLit(STRING, "=$"), rec(DREGX_END)},
		},
		{
			name:     "percent r",
			input:    "%r{a/b/c}",
			expected: []TokenRecord{rec(DREGX), recLit(STRING, "a/b/c"), rec(DREGX_END)},
		},
		{
			name:     "percent r with pipes",
			input:    "%r|a/b/c|",
			expected: []TokenRecord{rec(DREGX), recLit(STRING, "a/b/c"), rec(DREGX_END)},
		},
	})
}

// TestTokenize_Operators tests binary operators between operands.
func TestTokenize_Operators(t *testing.T) {
	ops := []TokenType{
		PLUS, PLUS_EQ, MINUS, MINUS_EQ, STAR, STAR_EQ, STAR_STAR, STAR_STAR_EQ,
		SLASH, PERCENT, PERCENT_EQ, EQ_EQ, EQ_EQ_EQ, NOT_EQ, MATCH, NOT_MATCH,
		LT, LE, GT, GE, CMP, LSHIFT, LSHIFT_EQ, RSHIFT, RSHIFT_EQ, AMP, AMP_EQ,
		AMP_AMP, AMP_AMP_EQ, PIPE, PIPE_EQ, PIPE_PIPE, PIPE_PIPE_EQ, CARET,
		CARET_EQ, HASH_ROCKET, DOT_DOT, DOT_DOT_DOT,
	}
	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			records, err := Tokens("1 "+string(op)+" 2", false)
			if err != nil {
				t.Fatalf("Tokens() error = %v", err)
			}
			compareRecords(t, []TokenRecord{recLit(FIXNUM, int64(1)), rec(op), recLit(FIXNUM, int64(2))}, records)
		})
	}

	runRecordTests(t, []recordTest{
		{
			name:     "ternary",
			input:    "a ? b : c",
			expected: []TokenRecord{recLit(NAME, "a"), rec(TERNARY_QUESTION), recLit(NAME, "b"), rec(TERNARY_COLON), recLit(NAME, "c")},
		},
		{
			name:     "ternary with tight colon",
			input:    "x ? y: z",
			expected: []TokenRecord{recLit(NAME, "x"), rec(TERNARY_QUESTION), recLit(NAME, "y"), rec(TERNARY_COLON), recLit(NAME, "z")},
		},
		{
			name:     "compact ternary",
			input:    "x ? y:z",
			expected: []TokenRecord{recLit(NAME, "x"), rec(TERNARY_QUESTION), recLit(NAME, "y"), rec(TERNARY_COLON), recLit(NAME, "z")},
		},
		{
			name:     "compact ternary after literal",
			input:    "x ? 1:2",
			expected: []TokenRecord{recLit(NAME, "x"), rec(TERNARY_QUESTION), recLit(FIXNUM, int64(1)), rec(TERNARY_COLON), recLit(FIXNUM, int64(2))},
		},
		{
			name:     "compact ternary after command name",
			input:    "x ?y:z",
			expected: []TokenRecord{recLit(NAME, "x"), rec(TERNARY_QUESTION), recLit(NAME, "y"), rec(TERNARY_COLON), recLit(NAME, "z")},
		},
		{
			name:     "character literal argument",
			input:    "x ?y",
			expected: []TokenRecord{recLit(NAME, "x"), recLit(STRING, "y")},
		},
		{
			name:     "spaced symbol stays a symbol",
			input:    "x ? y :z",
			expected: []TokenRecord{recLit(NAME, "x"), rec(TERNARY_QUESTION), recLit(NAME, "y"), recLit(SYMBOL, "z")},
		},
		{
			name:     "safe navigation",
			input:    "a&.b",
			expected: []TokenRecord{recLit(NAME, "a"), rec(SAFE_NAV), recLit(NAME, "b")},
		},
		{
			name:     "scope",
			input:    "Foo::Bar",
			expected: []TokenRecord{recLit(CONSTANT, "Foo"), rec(COLON_COLON), recLit(CONSTANT, "Bar")},
		},
		{
			name:     "lambda",
			input:    "->(x) { }",
			expected: []TokenRecord{rec(ARROW), rec(LPAREN), recLit(NAME, "x"), rec(RPAREN), rec(LBRACE), rec(RBRACE)},
		},
		{
			name:     "not",
			input:    "!x",
			expected: []TokenRecord{rec(BANG), recLit(NAME, "x")},
		},
	})
}

// TestTokenize_Numbers tests integer, float, rational and imaginary literals.
func TestTokenize_Numbers(t *testing.T) {
	runRecordTests(t, []recordTest{
		{name: "decimal", input: "123", expected: []TokenRecord{recLit(FIXNUM, int64(123))}},
		{name: "underscores", input: "1_000", expected: []TokenRecord{recLit(FIXNUM, int64(1000))}},
		{name: "explicit decimal", input: "0d123", expected: []TokenRecord{recLit(FIXNUM, int64(123))}},
		{name: "hex", input: "0x1f", expected: []TokenRecord{recLit(FIXNUM, int64(31))}},
		{name: "binary", input: "0b101", expected: []TokenRecord{recLit(FIXNUM, int64(5))}},
		{name: "octal prefix", input: "0o17", expected: []TokenRecord{recLit(FIXNUM, int64(15))}},
		{name: "octal leading zero", input: "017", expected: []TokenRecord{recLit(FIXNUM, int64(15))}},
		{name: "zero", input: "0", expected: []TokenRecord{recLit(FIXNUM, int64(0))}},
		{name: "bignum", input: "9223372036854775808", expected: []TokenRecord{recLit(BIGNUM, "9223372036854775808")}},
		{name: "float", input: "1.5", expected: []TokenRecord{recLit(FLOAT, 1.5)}},
		{name: "exponent", input: "2e5", expected: []TokenRecord{recLit(FLOAT, 200000.0)}},
		{name: "signed exponent", input: "2.1E-5", expected: []TokenRecord{recLit(FLOAT, 2.1e-5)}},
		{name: "rational", input: "3r", expected: []TokenRecord{recLit(RATIONAL, "3")}},
		{name: "float rational", input: "1.5r", expected: []TokenRecord{recLit(RATIONAL, "1.5")}},
		{name: "hex rational", input: "0x10r", expected: []TokenRecord{recLit(RATIONAL, "16")}},
		{name: "imaginary", input: "2i", expected: []TokenRecord{recLit(COMPLEX, "2")}},
		{name: "rational imaginary", input: "2ri", expected: []TokenRecord{recLit(RATIONAL_COMPLEX, "2")}},
		{
			name:     "method call on number",
			input:    "1.odd?",
			expected: []TokenRecord{recLit(FIXNUM, int64(1)), rec(DOT), recLit(NAME, "odd?")},
		},
		{
			name:     "range",
			input:    "1..10",
			expected: []TokenRecord{recLit(FIXNUM, int64(1)), rec(DOT_DOT), recLit(FIXNUM, int64(10))},
		},
	})
}

// TestTokenize_NumberErrors tests malformed numeric literals.
func TestTokenize_NumberErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"0bb", "1: syntax error, unexpected 'b'"},
		{"0.1a", "1: syntax error, unexpected 'a'"},
		{"0.1e", "1: syntax error, unexpected 'e'"},
		{"0.1e--", "1: syntax error, unexpected '-'"},
		{"08", "1: syntax error, unexpected '8'"},
		{"1e5r", "1: syntax error, unexpected 'r'"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Tokens(tt.input, false)
			if err == nil {
				t.Fatal("Tokens() expected error, got nil")
			}
			if err.Error() != tt.message {
				t.Errorf("error = %q, expected %q", err.Error(), tt.message)
			}
			var lexErr *Error
			if !errors.As(err, &lexErr) || lexErr.Kind != InvalidNumericSuffix {
				t.Errorf("error kind = %v, expected InvalidNumericSuffix", err)
			}
		})
	}
}

// TestTokenize_Strings tests quoted strings and interpolation.
func TestTokenize_Strings(t *testing.T) {
	dstr := func(s string) []TokenRecord {
		return []TokenRecord{rec(DSTR), recLit(STRING, s), rec(DSTR_END)}
	}
	runRecordTests(t, []recordTest{
		{name: "double", input: `"foo"`, expected: dstr("foo")},
		{name: "escaped quotes", input: `"this is \"quoted\""`, expected: dstr(`this is "quoted"`)},
		{name: "empty double", input: `""`, expected: dstr("")},
		{name: "single", input: `'foo'`, expected: []TokenRecord{recLit(STRING, "foo")}},
		{name: "single escaped quote", input: `'this is \'quoted\''`, expected: []TokenRecord{recLit(STRING, "this is 'quoted'")}},
		{name: "single keeps other escapes", input: `'other \\ \n'`, expected: []TokenRecord{recLit(STRING, `other \ \n`)}},
		{name: "percent q", input: "%q(foo)", expected: []TokenRecord{recLit(STRING, "foo")}},
		{name: "percent q nested", input: "%q(a(b)c)", expected: []TokenRecord{recLit(STRING, "a(b)c")}},
		{name: "percent Q", input: "%Q(foo)", expected: dstr("foo")},
		{name: "bare percent", input: "%[foo]", expected: dstr("foo")},
		{name: "tab and newline", input: `"\t\n"`, expected: dstr("\t\n")},
		{name: "octal escapes", input: `"\7 \77 \777"`, expected: dstr("\a ? \xff")},
		{name: "hex escapes", input: `"\x77 \xaB"`, expected: dstr("w \xab")},
		{name: "unicode escapes", input: `"\u7777 \uabcd"`, expected: dstr("\u7777 \uabcd")},
		{name: "unicode braces", input: `"\u{0066 06f 6F}"`, expected: dstr("foo")},
		{
			name:  "interpolation",
			input: `"#{:foo} bar #{1 + 1}"`,
			expected: []TokenRecord{
				rec(DSTR),
				recLit(STRING, ""),
				rec(EVSTR),
				recLit(SYMBOL, "foo"),
				rec(NEWLINE),
				rec(EVSTR_END),
				recLit(STRING, " bar "),
				rec(EVSTR),
				recLit(FIXNUM, int64(1)),
				rec(PLUS),
				recLit(FIXNUM, int64(1)),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DSTR_END),
			},
		},
		{
			name:  "interpolated empty string",
			input: `"foo#{''}bar"`,
			expected: []TokenRecord{
				rec(DSTR),
				recLit(STRING, "foo"),
				rec(EVSTR),
				recLit(STRING, ""),
				rec(NEWLINE),
				rec(EVSTR_END),
				recLit(STRING, "bar"),
				rec(DSTR_END),
			},
		},
		{
			name:  "adjacent interpolations",
			input: `"#{1}#{2}"`,
			expected: []TokenRecord{
				rec(DSTR),
				recLit(STRING, ""),
				rec(EVSTR),
				recLit(FIXNUM, int64(1)),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(EVSTR),
				recLit(FIXNUM, int64(2)),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DSTR_END),
			},
		},
		{
			name:  "nested interpolation",
			input: `"a#{"b#{c}"}"`,
			expected: []TokenRecord{
				rec(DSTR),
				recLit(STRING, "a"),
				rec(EVSTR),
				rec(DSTR),
				recLit(STRING, "b"),
				rec(EVSTR),
				recLit(NAME, "c"),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DSTR_END),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DSTR_END),
			},
		},
		{
			name:  "instance variable shorthand",
			input: `"a#@b"`,
			expected: []TokenRecord{
				rec(DSTR),
				recLit(STRING, "a"),
				rec(EVSTR),
				recLit(IVAR, "@b"),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DSTR_END),
			},
		},
		{name: "hash sign without brace", input: `"a#b"`, expected: dstr("a#b")},
		{name: "character literal", input: "?a", expected: []TokenRecord{recLit(STRING, "a")}},
		{
			name:     "backticks",
			input:    "`ls`",
			expected: []TokenRecord{rec(DXSTR), recLit(STRING, "ls"), rec(DXSTR_END)},
		},
		{
			name:  "percent x with interpolation",
			input: "%x(ls #{path})",
			expected: []TokenRecord{
				rec(DXSTR),
				recLit(STRING, "ls "),
				rec(EVSTR),
				recLit(NAME, "path"),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DXSTR_END),
			},
		},
	})
}

// TestTokenize_StringErrors tests escape and termination errors.
func TestTokenize_StringErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    ErrorKind
		message string
	}{
		{"bad unicode", `"\u{0066x}"`, InvalidEscape, "1: invalid Unicode escape"},
		{"unterminated string", `"foo`, UnterminatedConstruct, "1: syntax error, unterminated string meets end of file"},
		{"unterminated regexp", "x = /foo\n\n", UnterminatedConstruct, "1: syntax error, unterminated regexp meets end of file"},
		{"unterminated list", "%w[a\nb", UnterminatedConstruct, "1: syntax error, unterminated list meets end of file"},
		{"stray ivar sigil", "@1", UnexpectedCharacter, "1: syntax error, unexpected '@'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokens(tt.input, false)
			if err == nil {
				t.Fatal("Tokens() expected error, got nil")
			}
			var lexErr *Error
			if !errors.As(err, &lexErr) {
				t.Fatalf("error type = %T, expected *Error", err)
			}
			if lexErr.Kind != tt.kind {
				t.Errorf("Kind = %v, expected %v", lexErr.Kind, tt.kind)
			}
			if err.Error() != tt.message {
				t.Errorf("error = %q, expected %q", err.Error(), tt.message)
			}
		})
	}
}

// nestedInterpolation builds a string literal with depth levels of #{...}.
func nestedInterpolation(depth int) string {
	return strings.Repeat(`"#{`, depth) + "x" + strings.Repeat(`}"`, depth)
}

// TestTokenize_InterpolationDepth tests the #{...} nesting limit.
func TestTokenize_InterpolationDepth(t *testing.T) {
	tests := []struct {
		name     string
		depth    int
		maxDepth int
		wantErr  bool
	}{
		{"within limit", 5, 5, false},
		{"past limit", 6, 5, true},
		{"far past limit", 500, 10, true},
		{"default limit", 200, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Tokens(nestedInterpolation(tt.depth), false, WithMaxDepth(tt.maxDepth))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Tokens() error = %v", err)
				}
				// DSTR, STRING and EVSTR open each level; DSTR_END, NEWLINE
				// and EVSTR_END close it around the innermost name.
				if want := tt.depth*6 + 1; len(records) != want {
					t.Errorf("got %d records, expected %d", len(records), want)
				}
				return
			}
			var lexErr *Error
			if !errors.As(err, &lexErr) {
				t.Fatalf("error = %v, expected *Error", err)
			}
			if lexErr.Kind != NestingTooDeep {
				t.Errorf("Kind = %s, expected NestingTooDeep", lexErr.Kind)
			}
			if err.Error() != "1: syntax error, nesting too deep" {
				t.Errorf("error = %q", err.Error())
			}
		})
	}
}

// TestTokenize_Symbols tests symbol literals including operator names.
func TestTokenize_Symbols(t *testing.T) {
	symbols := map[string]string{
		":foo":         "foo",
		":FooBar123":   "FooBar123",
		":foo?":        "foo?",
		":foo!":        "foo!",
		":foo=":        "foo=",
		":'foo bar'":   "foo bar",
		`:"foo\nbar"`:  "foo\nbar",
		":'@'":         "@",
		":@foo":        "@foo",
		":@@foo":       "@@foo",
		":$foo":        "$foo",
		":$0":          "$0",
		":+":           "+",
		":**":          "**",
		":/":           "/",
		":==":          "==",
		":!=":          "!=",
		":!":           "!",
		":!~":          "!~",
		":%":           "%",
		":[]":          "[]",
		":[]=":         "[]=",
		":+@":          "+@",
		":-@":          "-@",
		":===":         "===",
		":=~":          "=~",
		":>=":          ">=",
		":>>":          ">>",
		":<=>":         "<=>",
		":<<":          "<<",
		":~":           "~",
		":~@":          "~@",
		":'='":         "=",
	}
	for input, expected := range symbols {
		t.Run(input, func(t *testing.T) {
			records, err := Tokens(input, false)
			if err != nil {
				t.Fatalf("Tokens() error = %v", err)
			}
			compareRecords(t, []TokenRecord{recLit(SYMBOL, expected)}, records)
		})
	}

	runRecordTests(t, []recordTest{
		{
			name:  "interpolated symbol",
			input: `:"a#{b}"`,
			expected: []TokenRecord{
				rec(DSYM),
				recLit(STRING, "a"),
				rec(EVSTR),
				recLit(NAME, "b"),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DSYM_END),
			},
		},
	})
}

// TestTokenize_Arrays tests array brackets and word lists.
func TestTokenize_Arrays(t *testing.T) {
	runRecordTests(t, []recordTest{
		{
			name:     "brackets",
			input:    "['foo', 1]",
			expected: []TokenRecord{rec(LBRACKET), recLit(STRING, "foo"), rec(COMMA), recLit(FIXNUM, int64(1)), rec(RBRACKET)},
		},
		{name: "empty brackets", input: "[]", expected: []TokenRecord{rec(LBRACKET_RBRACKET)}},
		{
			name:     "index",
			input:    "x[1]",
			expected: []TokenRecord{recLit(NAME, "x"), rec(LBRACKET), recLit(FIXNUM, int64(1)), rec(RBRACKET)},
		},
		{name: "words", input: "%w[    foo\n 1\t 2  ]", expected: []TokenRecord{recLit(WORDS_LOWER_W, "foo 1 2")}},
		{name: "words with pipes", input: "%w|    foo\n 1\t 2  |", expected: []TokenRecord{recLit(WORDS_LOWER_W, "foo 1 2")}},
		{name: "interpolated words", input: "%W[    foo\n 1\t 2  ]", expected: []TokenRecord{recLit(WORDS_UPPER_W, "foo 1 2")}},
		{name: "symbols", input: "%i[    foo\n 1\t 2  ]", expected: []TokenRecord{recLit(WORDS_LOWER_I, "foo 1 2")}},
		{name: "interpolated symbols", input: "%I[a b]", expected: []TokenRecord{recLit(WORDS_UPPER_I, "a b")}},
		{name: "escaped space", input: `%w[a\ b c]`, expected: []TokenRecord{recLit(WORDS_LOWER_W, "a b c")}},
	})

	t.Run("word parts", func(t *testing.T) {
		tokens, err := New("%W[a#{b} c]").Tokenize()
		if err != nil {
			t.Fatalf("Tokenize() error = %v", err)
		}
		if len(tokens) != 1 || len(tokens[0].Words) != 2 {
			t.Fatalf("got %d tokens, expected one token with two words", len(tokens))
		}
		first := tokens[0].Words[0]
		expected := []TokenType{DSTR, STRING, EVSTR, NAME, NEWLINE, EVSTR_END, DSTR_END}
		if len(first.Parts) != len(expected) {
			t.Fatalf("got %d parts, expected %d", len(first.Parts), len(expected))
		}
		for i, typ := range expected {
			if first.Parts[i].Type != typ {
				t.Errorf("part[%d] = %s, expected %s", i, first.Parts[i].Type, typ)
			}
		}
		if tokens[0].Words[1].Parts != nil {
			t.Errorf("plain word should have no parts")
		}
	})
}

// TestTokenize_HashConstructs tests hash literals and keys.
func TestTokenize_HashConstructs(t *testing.T) {
	runRecordTests(t, []recordTest{
		{
			name:  "rocket and key",
			input: "{ 'foo' => 1, bar: 2 }",
			expected: []TokenRecord{
				rec(LBRACE),
				recLit(STRING, "foo"),
				rec(HASH_ROCKET),
				recLit(FIXNUM, int64(1)),
				rec(COMMA),
				recLit(SYMBOL_KEY, "bar"),
				recLit(FIXNUM, int64(2)),
				rec(RBRACE),
			},
		},
		{
			name:     "quoted key",
			input:    `{"a": 1}`,
			expected: []TokenRecord{rec(LBRACE), recLit(SYMBOL_KEY, "a"), recLit(FIXNUM, int64(1)), rec(RBRACE)},
		},
		{
			name:  "interpolated key",
			input: `{"a#{b}": 1}`,
			expected: []TokenRecord{
				rec(LBRACE),
				rec(DSTR),
				recLit(STRING, "a"),
				rec(EVSTR),
				recLit(NAME, "b"),
				rec(NEWLINE),
				rec(EVSTR_END),
				rec(DSTR_SYMBOL_KEY),
				recLit(FIXNUM, int64(1)),
				rec(RBRACE),
			},
		},
	})
}

// TestTokenize_Variables tests instance, class and global variables.
func TestTokenize_Variables(t *testing.T) {
	runRecordTests(t, []recordTest{
		{name: "class variable", input: "@@foo", expected: []TokenRecord{recLit(CVAR, "@@foo")}},
		{name: "instance variable", input: "@foo", expected: []TokenRecord{recLit(IVAR, "@foo")}},
		{name: "global", input: "$foo", expected: []TokenRecord{recLit(GVAR, "$foo")}},
		{name: "program name", input: "$0", expected: []TokenRecord{recLit(GVAR, "$0")}},
		{name: "last error", input: "$!", expected: []TokenRecord{recLit(GVAR, "$!")}},
		{name: "backslash", input: `$\`, expected: []TokenRecord{recLit(GVAR, `$\`)}},
		{name: "option", input: "$-w", expected: []TokenRecord{recLit(GVAR, "$-w")}},
		{name: "match", input: "$&", expected: []TokenRecord{recLit(BACK_REF, "$&")}},
		{name: "nth ref", input: "$12", expected: []TokenRecord{recLit(NTH_REF, int64(12))}},
	})
}

// TestTokenize_Newlines tests separator handling in raw mode.
func TestTokenize_Newlines(t *testing.T) {
	runRecordTests(t, []recordTest{
		{
			name:     "newline",
			input:    "foo\nbar",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(NEWLINE), recLit(NAME, "bar")},
		},
		{
			name:     "semicolon",
			input:    "foo ; bar",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(NEWLINE), recLit(NAME, "bar")},
		},
		{
			name:     "insignificant newlines",
			input:    "foo(\n1\n)",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(LPAREN), recLit(FIXNUM, int64(1)), rec(RPAREN)},
		},
		{
			name:     "leading dot continues",
			input:    "foo\n  .bar",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(DOT), recLit(NAME, "bar")},
		},
		{
			name:  "comments",
			input: "foo # comment 1\n# comment 2\nbar\n",
			expected: []TokenRecord{
				recLit(NAME, "foo"),
				rec(NEWLINE),
				rec(NEWLINE),
				recLit(NAME, "bar"),
				rec(NEWLINE),
			},
		},
		{name: "only a comment", input: "# only a comment", expected: []TokenRecord{}},
		{
			name:  "block params",
			input: "foo do |x, y|\nx\nend",
			expected: []TokenRecord{
				recLit(NAME, "foo"),
				rec(DO),
				rec(PIPE),
				recLit(NAME, "x"),
				rec(COMMA),
				recLit(NAME, "y"),
				rec(PIPE),
				recLit(NAME, "x"),
				rec(NEWLINE),
				rec(END),
			},
		},
		{
			name:  "embedded document",
			input: "=begin\nstuff\n=end\nclass Foo;end",
			expected: []TokenRecord{
				rec(NEWLINE),
				rec(CLASS),
				recLit(CONSTANT, "Foo"),
				rec(NEWLINE),
				rec(END),
			},
		},
		{
			name:     "end of program marker",
			input:    "foo\n__END__\nbar baz",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(NEWLINE)},
		},
	})

	t.Run("collapsed", func(t *testing.T) {
		tokens, err := New("foo\n\n;\nbar", WithCollapsedNewlines()).Tokenize()
		if err != nil {
			t.Fatalf("Tokenize() error = %v", err)
		}
		types := make([]TokenType, len(tokens))
		for i, tok := range tokens {
			types[i] = tok.Type
		}
		expected := []TokenType{NAME, NEWLINE, NAME}
		if !reflect.DeepEqual(types, expected) {
			t.Errorf("types = %v, expected %v", types, expected)
		}
	})
}

// TestTokenize_MethodNames tests names in method-name position.
func TestTokenize_MethodNames(t *testing.T) {
	runRecordTests(t, []recordTest{
		{
			name:     "setter",
			input:    "def foo=",
			expected: []TokenRecord{rec(DEF), recLit(NAME, "foo"), rec(EQUAL)},
		},
		{
			name:     "singleton setter",
			input:    "def self.foo=",
			expected: []TokenRecord{rec(DEF), rec(SELF), rec(DOT), recLit(NAME, "foo"), rec(EQUAL)},
		},
		{
			name:     "setter keeps its separator",
			input:    "def foo=; end",
			expected: []TokenRecord{rec(DEF), recLit(NAME, "foo"), rec(EQUAL), rec(NEWLINE), rec(END)},
		},
		{
			name:     "singleton setter keeps its newline",
			input:    "def foo.bar=\nend",
			expected: []TokenRecord{rec(DEF), recLit(NAME, "foo"), rec(DOT), recLit(NAME, "bar"), rec(EQUAL), rec(NEWLINE), rec(END)},
		},
		{
			name:     "assignment still joins lines",
			input:    "foo =\n1",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(EQUAL), recLit(FIXNUM, int64(1))},
		},
		{name: "predicate", input: "def foo?", expected: []TokenRecord{rec(DEF), recLit(NAME, "foo?")}},
		{name: "division method", input: "def /", expected: []TokenRecord{rec(DEF), rec(SLASH)}},
		{
			name:     "modulo method",
			input:    "def %(x)",
			expected: []TokenRecord{rec(DEF), rec(PERCENT), rec(LPAREN), recLit(NAME, "x"), rec(RPAREN)},
		},
		{
			name:     "modulo call",
			input:    "foo.%(x)",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(DOT), rec(PERCENT), rec(LPAREN), recLit(NAME, "x"), rec(RPAREN)},
		},
		{name: "unary minus", input: "def -@", expected: []TokenRecord{rec(DEF), recLit(NAME, "-@")}},
		{name: "unary plus", input: "def +@", expected: []TokenRecord{rec(DEF), recLit(NAME, "+@")}},
		{
			name:     "unary plus then argument",
			input:    "foo.+@bar",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(DOT), recLit(NAME, "+@"), recLit(NAME, "bar")},
		},
		{
			name:     "plus then ivar",
			input:    "foo.+ @bar",
			expected: []TokenRecord{recLit(NAME, "foo"), rec(DOT), rec(PLUS), recLit(IVAR, "@bar")},
		},
		{
			name:     "bang after scope",
			input:    "Foo::bar!",
			expected: []TokenRecord{recLit(CONSTANT, "Foo"), rec(COLON_COLON), recLit(NAME, "bar!")},
		},
		{name: "nil predicate", input: "nil?", expected: []TokenRecord{recLit(NAME, "nil?")}},
		{
			name:     "not equal after name",
			input:    "a!= b",
			expected: []TokenRecord{recLit(NAME, "a"), rec(NOT_EQ), recLit(NAME, "b")},
		},
		{name: "element assign", input: "def []=", expected: []TokenRecord{rec(DEF), rec(LBRACKET_RBRACKET_EQ)}},
	})
}

// TestTokenize_Heredocs tests heredoc bodies and the left shift ambiguity.
func TestTokenize_Heredocs(t *testing.T) {
	runRecordTests(t, []recordTest{
		{
			name:  "plain",
			input: "foo = <<FOO\n 1\n2\nFOO\nbar\n",
			expected: []TokenRecord{
				recLit(NAME, "foo"),
				rec(EQUAL),
				rec(DSTR),
				recLit(STRING, " 1\n2\n"),
				rec(DSTR_END),
				rec(NEWLINE),
				recLit(NAME, "bar"),
				rec(NEWLINE),
			},
		},
		{
			name:  "indented terminator inside call",
			input: "foo(1, <<-FOO, 2)\n 1\n2\n  FOO\nbar\n",
			expected: []TokenRecord{
				recLit(NAME, "foo"),
				rec(LPAREN),
				recLit(FIXNUM, int64(1)),
				rec(COMMA),
				rec(DSTR),
				recLit(STRING, " 1\n2\n"),
				rec(DSTR_END),
				rec(COMMA),
				recLit(FIXNUM, int64(2)),
				rec(RPAREN),
				rec(NEWLINE),
				recLit(NAME, "bar"),
				rec(NEWLINE),
			},
		},
		{
			name:     "single quoted",
			input:    "<<'FOO BAR'\n#{foo}\nFOO BAR",
			expected: []TokenRecord{recLit(STRING, "#{foo}\n"), rec(NEWLINE)},
		},
		{
			name:  "double quoted",
			input: "<<\"FOO BAR\"\n#{foo}\nFOO BAR",
			expected: []TokenRecord{
				rec(DSTR),
				recLit(STRING, ""),
				rec(EVSTR),
				recLit(NAME, "foo"),
				rec(NEWLINE),
				rec(EVSTR_END),
				recLit(STRING, "\n"),
				rec(DSTR_END),
				rec(NEWLINE),
			},
		},
		{
			name:  "backticks",
			input: "<<`FOO BAR`\n#{foo}\nFOO BAR",
			expected: []TokenRecord{
				rec(DXSTR),
				recLit(STRING, ""),
				rec(EVSTR),
				recLit(NAME, "foo"),
				rec(NEWLINE),
				rec(EVSTR_END),
				recLit(STRING, "\n"),
				rec(DXSTR_END),
				rec(NEWLINE),
			},
		},
		{
			name:     "squiggly",
			input:    "<<~FOO\n foo\n  bar\n   \nFOO",
			expected: []TokenRecord{rec(DSTR), recLit(STRING, "foo\n bar\n  \n"), rec(DSTR_END), rec(NEWLINE)},
		},
		{
			name:     "empty",
			input:    "<<FOO\nFOO",
			expected: []TokenRecord{rec(DSTR), recLit(STRING, ""), rec(DSTR_END), rec(NEWLINE)},
		},
		{
			name:  "two on one line",
			input: "foo(<<A, <<B)\na\nA\nb\nB\nbar",
			expected: []TokenRecord{
				recLit(NAME, "foo"),
				rec(LPAREN),
				rec(DSTR),
				recLit(STRING, "a\n"),
				rec(DSTR_END),
				rec(COMMA),
				rec(DSTR),
				recLit(STRING, "b\n"),
				rec(DSTR_END),
				rec(RPAREN),
				rec(NEWLINE),
				recLit(NAME, "bar"),
			},
		},
		{
			name:     "left shift",
			input:    "x<<y",
			expected: []TokenRecord{recLit(NAME, "x"), rec(LSHIFT), recLit(NAME, "y")},
		},
		{
			name:     "left shift of number",
			input:    "1<<y",
			expected: []TokenRecord{recLit(FIXNUM, int64(1)), rec(LSHIFT), recLit(NAME, "y")},
		},
		{
			name:     "left shift of underscore name",
			input:    "x<<_foo",
			expected: []TokenRecord{recLit(NAME, "x"), rec(LSHIFT), recLit(NAME, "_foo")},
		},
		{
			name:     "left shift assign",
			input:    "x <<= 1",
			expected: []TokenRecord{recLit(NAME, "x"), rec(LSHIFT_EQ), recLit(FIXNUM, int64(1))},
		},
	})

	for _, input := range []string{"x=<<FOO\nfoo\nFOO", "x*<<FOO\nfoo\nFOO"} {
		t.Run(input, func(t *testing.T) {
			records, err := Tokens(input, false)
			if err != nil {
				t.Fatalf("Tokens() error = %v", err)
			}
			found := false
			for _, r := range records {
				if r.Type == string(DSTR) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a heredoc in %v", records)
			}
		})
	}
}

// TestTokenize_Docs tests leading comments attached to definitions.
func TestTokenize_Docs(t *testing.T) {
	tokens, err := New("# A thing.\n# Really.\nclass Foo\n  # Does it.\n  def bar; end\n  x # not a doc\n  def baz; end\nend").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	docs := map[string]string{}
	for i, tok := range tokens {
		if tok.CanHaveDoc() && i+1 < len(tokens) {
			docs[tokens[i+1].Literal] = tok.Doc
		}
	}
	expected := map[string]string{
		"Foo": "# A thing.\n# Really.\n",
		"bar": "# Does it.\n",
		"baz": "",
	}
	if !reflect.DeepEqual(docs, expected) {
		t.Errorf("docs = %#v, expected %#v", docs, expected)
	}
}

// TestTokenize_LineColumnTracking tests token positions.
func TestTokenize_LineColumnTracking(t *testing.T) {
	records, err := Tokens("foo = 1\n  bar", true)
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	expected := [][2]int{{1, 0}, {1, 4}, {1, 6}, {1, 7}, {2, 2}}
	if len(records) != len(expected) {
		t.Fatalf("got %d records, expected %d", len(records), len(expected))
	}
	for i, pos := range expected {
		if records[i].Line == nil || records[i].Column == nil {
			t.Fatalf("record[%d] has no position", i)
		}
		if *records[i].Line != pos[0] || *records[i].Column != pos[1] {
			t.Errorf("record[%d] at %d:%d, expected %d:%d", i, *records[i].Line, *records[i].Column, pos[0], pos[1])
		}
	}
}

// TestLexer_SnapshotRestore tests rewinding the token stream.
func TestLexer_SnapshotRestore(t *testing.T) {
	l := New("foo bar\nbaz", WithCollapsedNewlines())
	first, err := l.NextToken()
	if err != nil || first.Literal != "foo" {
		t.Fatalf("NextToken() = %v, %v", first, err)
	}
	snap := l.Snapshot()
	var seen []string
	for i := 0; i < 3; i++ {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("NextToken() error = %v", err)
		}
		seen = append(seen, string(tok.Type)+tok.Literal)
	}
	l.Restore(snap)
	for i := 0; i < 3; i++ {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("NextToken() error = %v", err)
		}
		if got := string(tok.Type) + tok.Literal; got != seen[i] {
			t.Errorf("after restore token[%d] = %q, expected %q", i, got, seen[i])
		}
	}
	tok, _ := l.NextToken()
	if !tok.IsEOF() {
		t.Errorf("expected EOF, got %s", tok.Type)
	}
	tok, _ = l.NextToken()
	if !tok.IsEOF() {
		t.Errorf("expected EOF to repeat, got %s", tok.Type)
	}
}

// TestTokenizeJSON tests JSON output of the token stream.
func TestTokenizeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "simple tokens", input: "foo bar"},
		{name: "with operators", input: "x = 1 + 2"},
		{name: "with strings", input: `'hello' "world"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jsonStr, err := New(tt.input).TokenizeJSON()
			if err != nil {
				t.Fatalf("TokenizeJSON() error = %v", err)
			}
			var tokens []map[string]interface{}
			if err := json.Unmarshal([]byte(jsonStr), &tokens); err != nil {
				t.Fatalf("TokenizeJSON() produced invalid JSON: %v", err)
			}
			for i, tok := range tokens {
				if _, ok := tok["type"]; !ok {
					t.Errorf("token[%d] missing 'type' field", i)
				}
			}
		})
	}
}

// TestNewFromReader tests creating a lexer from an io.Reader.
func TestNewFromReader(t *testing.T) {
	l, err := NewFromReader(strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("NewFromReader() error = %v", err)
	}
	tokens, err := l.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if len(tokens) != 2 || tokens[0].Type != NAME || tokens[1].Type != NAME {
		t.Errorf("tokens = %v, expected two names", tokens)
	}
}

// TestNewFromReader_Error tests error handling when reader fails.
func TestNewFromReader_Error(t *testing.T) {
	_, err := NewFromReader(&errorReader{})
	if err == nil {
		t.Error("NewFromReader() expected error, got nil")
	}
}

// TestLexer_String tests the String() method for debugging.
func TestLexer_String(t *testing.T) {
	str := New("test input").String()
	if !strings.Contains(str, "Lexer{") {
		t.Errorf("String() = %q, expected to contain 'Lexer{'", str)
	}
}

// TestToken_Predicates tests the token classification helpers.
func TestToken_Predicates(t *testing.T) {
	tests := []struct {
		name     string
		token    Token
		check    func(Token) bool
		expected bool
	}{
		{"if is keyword", Token{Type: IF}, Token.IsKeyword, true},
		{"name is not keyword", Token{Type: NAME}, Token.IsKeyword, false},
		{"plus is operator", Token{Type: PLUS}, Token.IsOperator, true},
		{"plus-assign is op-assign", Token{Type: PLUS_EQ}, Token.IsOpAssign, true},
		{"string is literal", Token{Type: STRING}, Token.IsLiteral, true},
		{"rescue is modifier", Token{Type: RESCUE}, Token.IsModifier, true},
		{"def takes docs", Token{Type: DEF}, Token.CanHaveDoc, true},
		{"rparen ends expression", Token{Type: RPAREN}, Token.CanEndExpression, true},
		{"comma does not end expression", Token{Type: COMMA}, Token.CanEndExpression, false},
		{"dot follows newline", Token{Type: DOT}, Token.CanFollowCollapsibleNewline, true},
		{"comma precedes newline", Token{Type: COMMA}, Token.CanPrecedeCollapsibleNewline, true},
		{"symbol starts argument", Token{Type: SYMBOL}, Token.CanBeFirstArgOfImplicitCall, true},
		{"brace does not start argument", Token{Type: LBRACE}, Token.CanBeFirstArgOfImplicitCall, false},
		{"comma precedes key", Token{Type: COMMA}, Token.CanPrecedeSymbolKey, true},
		{"then cannot begin range end", Token{Type: THEN}, Token.CanBeRangeArg, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.token); got != tt.expected {
				t.Errorf("got %v, expected %v", got, tt.expected)
			}
		})
	}
}

// errorReader is a reader that always returns an error.
type errorReader struct{}

func (r *errorReader) Read(p []byte) (n int, err error) {
	return 0, io.ErrUnexpectedEOF
}
