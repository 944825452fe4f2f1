package lexer

import (
	"strings"
	"unicode/utf8"
)

var namedEscapes = map[byte]byte{
	'n': '\n',
	't': '\t',
	'r': '\r',
	'a': '\a',
	'b': '\b',
	'f': '\f',
	'v': '\v',
	'e': 0x1b,
	's': ' ',
}

// decodeEscape decodes the escape sequence whose backslash is at pos and
// writes the result to buf. It returns the position after the sequence.
func (l *Lexer) decodeEscape(buf *strings.Builder, pos int) (int, error) {
	src := l.src
	pos++ // backslash
	if pos >= len(src) {
		buf.WriteByte('\\')
		return pos, nil
	}
	c := src[pos]
	if b, ok := namedEscapes[c]; ok {
		buf.WriteByte(b)
		return pos + 1, nil
	}
	switch {
	case c == '\n':
		return pos + 1, nil
	case isOctal(c):
		n, end := 0, pos
		for end < len(src) && end < pos+3 && isOctal(src[end]) {
			n = n*8 + int(src[end]-'0')
			end++
		}
		buf.WriteByte(byte(n))
		return end, nil
	case c == 'x':
		n, end := 0, pos+1
		for end < len(src) && end < pos+3 && isHex(src[end]) {
			n = n*16 + hexValue(src[end])
			end++
		}
		if end == pos+1 {
			return 0, l.badEscape(pos, "invalid hex escape")
		}
		buf.WriteByte(byte(n))
		return end, nil
	case c == 'u':
		return l.decodeUnicode(buf, pos+1)
	case c == 'c':
		b, end, err := l.decodeControlTarget(pos + 1)
		if err != nil {
			return 0, err
		}
		buf.WriteByte(b & 0x9f)
		return end, nil
	case c == 'C' && pos+1 < len(src) && src[pos+1] == '-':
		b, end, err := l.decodeControlTarget(pos + 2)
		if err != nil {
			return 0, err
		}
		buf.WriteByte(b & 0x9f)
		return end, nil
	case c == 'M' && pos+1 < len(src) && src[pos+1] == '-':
		b, end, err := l.decodeControlTarget(pos + 2)
		if err != nil {
			return 0, err
		}
		buf.WriteByte(b | 0x80)
		return end, nil
	}
	r, size := utf8.DecodeRuneInString(src[pos:])
	buf.WriteRune(r)
	return pos + size, nil
}

// decodeControlTarget reads the character a \c, \C- or \M- escape applies
// to, which may itself be an escape.
func (l *Lexer) decodeControlTarget(pos int) (byte, int, error) {
	if pos >= len(l.src) {
		return 0, 0, l.badEscape(pos, "invalid escape character syntax")
	}
	if l.src[pos] != '\\' {
		return l.src[pos], pos + 1, nil
	}
	var inner strings.Builder
	end, err := l.decodeEscape(&inner, pos)
	if err != nil {
		return 0, 0, err
	}
	s := inner.String()
	if len(s) != 1 {
		return 0, 0, l.badEscape(pos, "invalid escape character syntax")
	}
	return s[0], end, nil
}

func (l *Lexer) decodeUnicode(buf *strings.Builder, pos int) (int, error) {
	src := l.src
	if pos < len(src) && src[pos] == '{' {
		pos++
		count := 0
		for {
			for pos < len(src) && (src[pos] == ' ' || src[pos] == '\t') {
				pos++
			}
			if pos >= len(src) {
				return 0, l.badEscape(pos, "invalid Unicode escape")
			}
			if src[pos] == '}' {
				if count == 0 {
					return 0, l.badEscape(pos, "invalid Unicode escape")
				}
				return pos + 1, nil
			}
			n, start := 0, pos
			for pos < len(src) && isHex(src[pos]) && pos-start < 6 {
				n = n*16 + hexValue(src[pos])
				pos++
			}
			if pos == start || (pos < len(src) && src[pos] != ' ' && src[pos] != '\t' && src[pos] != '}') {
				return 0, l.badEscape(pos, "invalid Unicode escape")
			}
			buf.WriteRune(rune(n))
			count++
		}
	}
	if pos+4 > len(src) {
		return 0, l.badEscape(pos, "invalid Unicode escape")
	}
	n := 0
	for i := pos; i < pos+4; i++ {
		if !isHex(src[i]) {
			return 0, l.badEscape(i, "invalid Unicode escape")
		}
		n = n*16 + hexValue(src[i])
	}
	buf.WriteRune(rune(n))
	return pos + 4, nil
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return int(c - '0')
}
