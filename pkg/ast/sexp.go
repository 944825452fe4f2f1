package ast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options controls how a tree is printed.
type Options struct {
	// CompatHash prints bare_hash nodes as hash, the way ruby_parser
	// shows braceless hashes.
	CompatHash bool

	// Pretty breaks nodes that do not fit in Width columns across lines.
	Pretty bool
	Width  int
}

// String returns the tree in s(...) notation.
func (n *Node) String() string {
	return n.Format(Options{})
}

// Format returns the tree in s(...) notation using opts.
func (n *Node) Format(opts Options) string {
	var b strings.Builder
	if opts.Pretty && opts.Width <= 0 {
		opts.Width = 80
	}
	writeNode(&b, n, opts, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, opts Options, indent int) {
	if n == nil {
		b.WriteString("nil")
		return
	}
	if opts.Pretty {
		flat := n.Format(Options{CompatHash: opts.CompatHash})
		if indent+len(flat) <= opts.Width {
			b.WriteString(flat)
			return
		}
	}
	b.WriteString("s(:")
	b.WriteString(n.tagFor(opts))
	for _, c := range n.Children {
		if opts.Pretty {
			b.WriteString(",\n")
			b.WriteString(strings.Repeat(" ", indent+2))
		} else {
			b.WriteString(", ")
		}
		if child, ok := c.(*Node); ok {
			writeNode(b, child, opts, indent+2)
			continue
		}
		b.WriteString(Inspect(c))
	}
	b.WriteString(")")
}

func (n *Node) tagFor(opts Options) string {
	if opts.CompatHash && n.Tag == "bare_hash" {
		return "hash"
	}
	return n.Tag
}

// Inspect renders an atom the way Ruby's #inspect does.
func Inspect(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case *Node:
		return x.String()
	case Symbol:
		return inspectSymbol(string(x))
	case string:
		return inspectString(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return inspectFloat(x)
	case Bignum:
		return x.String()
	case Rational:
		return "(" + x.Num().String() + "/" + x.Denom().String() + ")"
	case Complex:
		return inspectComplex(x)
	case Regexp:
		return x.String()
	case Range:
		op := ".."
		if x.Exclusive {
			op = "..."
		}
		return strconv.FormatInt(x.Low, 10) + op + strconv.FormatInt(x.High, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprintf("%v", v)
}

func inspectComplex(c Complex) string {
	switch im := c.Imag.(type) {
	case Rational:
		return "(0+" + Inspect(im) + "*i)"
	default:
		return "(0+" + Inspect(im) + "i)"
	}
}

// String renders the regexp as /source/flags.
func (r Regexp) String() string {
	var b strings.Builder
	b.WriteByte('/')
	escaped := false
	for i := 0; i < len(r.Source); i++ {
		c := r.Source[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '/':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('/')
	if r.Options&RegexpMultiline != 0 {
		b.WriteByte('m')
	}
	if r.Options&RegexpIgnoreCase != 0 {
		b.WriteByte('i')
	}
	if r.Options&RegexpExtended != 0 {
		b.WriteByte('x')
	}
	if r.Options&RegexpNoEncoding != 0 {
		b.WriteByte('n')
	}
	return b.String()
}

// inspectFloat follows Ruby: fixed notation for exponents in [-4, 16),
// scientific otherwise, always with a fractional digit.
func inspectFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expText, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expText)
	if exp >= -4 && exp < 16 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	sign := "+"
	if exp < 0 {
		sign = "-"
		exp = -exp
	}
	return fmt.Sprintf("%se%s%02d", mant, sign, exp)
}

// inspectString quotes s with Ruby's double-quote escapes.
func inspectString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&b, "\\x%02X", s[i])
			i++
			continue
		}
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		case '\a':
			b.WriteString(`\a`)
		case '\b':
			b.WriteString(`\b`)
		case 0x1b:
			b.WriteString(`\e`)
		case '#':
			if i+1 < len(s) && (s[i+1] == '{' || s[i+1] == '$' || s[i+1] == '@') {
				b.WriteString(`\#`)
			} else {
				b.WriteByte('#')
			}
		default:
			switch {
			case r < 0x20 || r == 0x7f:
				fmt.Fprintf(&b, "\\x%02X", r)
			case !unicode.IsPrint(r) && r > 0x7f:
				fmt.Fprintf(&b, "\\u%04X", r)
			default:
				b.WriteRune(r)
			}
		}
		i += size
	}
	b.WriteByte('"')
	return b.String()
}

var operatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "===": true, "!=": true, "=~": true, "!~": true, "!": true,
	"<": true, "<=": true, ">": true, ">=": true, "<=>": true, "<<": true,
	">>": true, "&": true, "|": true, "^": true, "~": true, "+@": true,
	"-@": true, "[]": true, "[]=": true, "`": true,
}

// inspectSymbol renders a symbol, quoting names Ruby would quote.
func inspectSymbol(name string) string {
	if symbolNeedsNoQuotes(name) {
		return ":" + name
	}
	return ":" + inspectString(name)
}

func symbolNeedsNoQuotes(name string) bool {
	if name == "" {
		return false
	}
	if operatorSymbols[name] {
		return true
	}
	rest := name
	switch {
	case strings.HasPrefix(name, "@@"):
		rest = name[2:]
	case strings.HasPrefix(name, "@"):
		rest = name[1:]
	case strings.HasPrefix(name, "$"):
		rest = name[1:]
		if len(rest) == 1 && strings.ContainsRune("~*$?!@/\\;,.=:<>\"&`'+0_", rune(rest[0])) {
			return true
		}
		if len(rest) > 0 && isDigits(rest) {
			return true
		}
	}
	if rest == "" || isDigitByte(rest[0]) {
		return false
	}
	sigil := len(rest) != len(name)
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if isWordByte(c) {
			continue
		}
		if i == len(rest)-1 && !sigil && (c == '?' || c == '!' || c == '=') {
			return true
		}
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || isDigitByte(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigitByte(s[i]) {
			return false
		}
	}
	return true
}
