package lexer

import (
	"strconv"
	"strings"
)

type numberBase struct {
	base   int
	prefix string
	digit  func(byte) bool
}

var numberPrefixes = map[byte]numberBase{
	'd': {10, "", isDigit},
	'D': {10, "", isDigit},
	'o': {8, "0o", isOctal},
	'O': {8, "0o", isOctal},
	'x': {16, "0x", isHex},
	'X': {16, "0x", isHex},
	'b': {2, "0b", isBinary},
	'B': {2, "0b", isBinary},
}

// scanNumber scans an integer, float, rational or imaginary literal.
// Signs are never part of the literal; the parser folds unary minus.
func (l *Lexer) scanNumber(start int) (Token, error) {
	src := l.src
	pos := start

	if src[pos] == '0' && pos+1 < len(src) {
		if nb, ok := numberPrefixes[src[pos+1]]; ok {
			pos += 2
			digits, end, err := l.scanDigits(pos, nb.digit)
			if err != nil {
				return Token{}, err
			}
			return l.finishInteger(start, end, nb.prefix+digits, digits, nb.base)
		}
		if isDigit(src[pos+1]) || src[pos+1] == '_' {
			digits, end, err := l.scanDigits(pos+1, isOctal)
			if err != nil {
				return Token{}, err
			}
			return l.finishInteger(start, end, "0"+digits, digits, 8)
		}
	}

	digits, end, err := l.scanDigits(pos, isDigit)
	if err != nil {
		return Token{}, err
	}
	pos = end
	isFloat := false
	if pos+1 < len(src) && src[pos] == '.' && isDigit(src[pos+1]) {
		frac, fend, err := l.scanDigits(pos+1, isDigit)
		if err != nil {
			return Token{}, err
		}
		digits += "." + frac
		pos = fend
		isFloat = true
	}
	if pos < len(src) && (src[pos] == 'e' || src[pos] == 'E') {
		exp := "e"
		pos++
		if pos < len(src) && (src[pos] == '+' || src[pos] == '-') {
			exp += string(src[pos])
			pos++
		}
		if pos >= len(src) {
			return Token{}, l.badNumber(pos - 1)
		}
		if !isDigit(src[pos]) {
			return Token{}, l.badNumber(pos)
		}
		more, eend, err := l.scanDigits(pos, isDigit)
		if err != nil {
			return Token{}, err
		}
		digits += exp + more
		pos = eend
		isFloat = true
		if pos < len(src) && src[pos] == 'r' {
			return Token{}, l.badNumber(pos)
		}
	}
	if !isFloat {
		return l.finishInteger(start, pos, digits, digits, 10)
	}

	if typ, end, ok := l.numericSuffix(pos); ok {
		if end < len(src) && isIdentChar(src[end]) {
			return Token{}, l.badNumber(end)
		}
		l.st.pos = end
		return l.tokenAt(typ, digits, start), nil
	}
	if pos < len(src) && isIdentChar(src[pos]) {
		return Token{}, l.badNumber(pos)
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return Token{}, l.badNumber(start)
	}
	l.st.pos = pos
	tok := l.tokenAt(FLOAT, digits, start)
	tok.Float = f
	return tok, nil
}

// scanDigits reads digits accepted by ok, skipping single underscores
// between them.
func (l *Lexer) scanDigits(pos int, ok func(byte) bool) (string, int, error) {
	src := l.src
	if pos >= len(src) || !ok(src[pos]) {
		return "", 0, l.badNumber(pos)
	}
	var b strings.Builder
	for pos < len(src) {
		c := src[pos]
		if ok(c) {
			b.WriteByte(c)
			pos++
			continue
		}
		if c == '_' && pos+1 < len(src) && ok(src[pos+1]) {
			pos++
			continue
		}
		if c == '_' || (isDigit(c) && !ok(c)) {
			return "", 0, l.badNumber(pos)
		}
		break
	}
	return b.String(), pos, nil
}

func (l *Lexer) finishInteger(start, end int, raw, digits string, base int) (Token, error) {
	src := l.src
	if typ, send, ok := l.numericSuffix(end); ok {
		if send < len(src) && isIdentChar(src[send]) {
			return Token{}, l.badNumber(send)
		}
		l.st.pos = send
		if base != 10 {
			if n, err := strconv.ParseInt(digits, base, 64); err == nil {
				raw = strconv.FormatInt(n, 10)
			}
		}
		return l.tokenAt(typ, raw, start), nil
	}
	if end < len(src) && isIdentChar(src[end]) {
		return Token{}, l.badNumber(end)
	}
	l.st.pos = end
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return l.tokenAt(BIGNUM, raw, start), nil
	}
	tok := l.tokenAt(FIXNUM, raw, start)
	tok.Fixnum = n
	return tok, nil
}

// numericSuffix recognizes the r, i and ri suffixes.
func (l *Lexer) numericSuffix(pos int) (TokenType, int, bool) {
	src := l.src
	if pos >= len(src) {
		return "", pos, false
	}
	switch src[pos] {
	case 'r':
		if pos+1 < len(src) && src[pos+1] == 'i' {
			return RATIONAL_COMPLEX, pos + 2, true
		}
		return RATIONAL, pos + 1, true
	case 'i':
		return COMPLEX, pos + 1, true
	}
	return "", pos, false
}

func isBinary(c byte) bool {
	return c == '0' || c == '1'
}
