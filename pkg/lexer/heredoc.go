package lexer

import (
	"strings"
)

// scanHeredoc reads a heredoc opener at start and its body. The body
// begins on the line after the opener, or after the body of an earlier
// heredoc opened on the same line. Lexing continues with the rest of the
// opener's line; the next newline jumps past the body.
func (l *Lexer) scanHeredoc(start int) ([]Token, error) {
	src := l.src
	pos := start + 2
	indented, squiggly := false, false
	switch src[pos] {
	case '-':
		indented = true
		pos++
	case '~':
		indented, squiggly = true, true
		pos++
	}

	kind := quoteDouble
	var name string
	switch q := src[pos]; q {
	case '\'', '"', '`':
		end := strings.IndexByte(src[pos+1:], q)
		if end < 0 || strings.Contains(src[pos+1:pos+1+end], "\n") {
			return nil, l.unterminated("heredoc identifier", string(q), start)
		}
		name = src[pos+1 : pos+1+end]
		pos += end + 2
		switch q {
		case '\'':
			kind = quoteRaw
		case '`':
			kind = quoteShell
		}
	default:
		nameStart := pos
		for pos < len(src) && isIdentChar(src[pos]) {
			pos++
		}
		name = src[nameStart:pos]
	}
	l.st.pos = pos

	bodyStart := l.st.heredocResume
	if bodyStart < 0 {
		nl := strings.IndexByte(src[pos:], '\n')
		if nl < 0 {
			return nil, l.unterminated("heredoc", name, start)
		}
		bodyStart = pos + nl + 1
	}

	bodyEnd, resume := -1, 0
	for lineStart := bodyStart; lineStart < len(src); {
		lineEnd := strings.IndexByte(src[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(src)
		} else {
			lineEnd += lineStart
		}
		line := strings.TrimRight(src[lineStart:lineEnd], "\r")
		if indented {
			line = strings.TrimLeft(line, " \t")
		}
		if line == name {
			bodyEnd = lineStart
			resume = min(lineEnd+1, len(src))
			break
		}
		lineStart = lineEnd + 1
	}
	if bodyEnd < 0 {
		return nil, l.unterminated("heredoc", name, start)
	}
	l.st.heredocResume = resume

	body := src[bodyStart:bodyEnd]
	if squiggly {
		body = dedent(body)
	}
	l.logger.Debug("heredoc", "name", name, "squiggly", squiggly, "bytes", len(body))

	bodyLine, _ := l.position(bodyStart)
	h := l.heredocLexer(body, bodyLine)
	b := h.newBodyScanner(kind, 0, 0)
	if err := b.scan(0); err != nil {
		return nil, err
	}

	p := &quotePolicies[kind]
	if p.static != "" {
		return []Token{l.tokenAt(p.static, b.text(), start)}, nil
	}
	toks := make([]Token, 0, len(b.parts)+2)
	toks = append(toks, l.tokenAt(p.begin, "", start))
	toks = append(toks, b.parts...)
	return append(toks, l.tokenAt(p.end, "", bodyEnd)), nil
}

// dedent removes the smallest indentation shared by the non-blank lines
// of a <<~ body. Tabs advance to the next multiple of eight.
func dedent(body string) string {
	lines := strings.SplitAfter(body, "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if w := indentWidth(line); indent < 0 || w < indent {
			indent = w
		}
	}
	if indent <= 0 {
		return body
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(trimIndent(line, indent))
	}
	return b.String()
}

func indentWidth(line string) int {
	w := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			w++
		case '\t':
			w = (w/8 + 1) * 8
		default:
			return w
		}
	}
	return w
}

func trimIndent(line string, width int) string {
	w := 0
	for i := 0; i < len(line); i++ {
		if w >= width {
			return line[i:]
		}
		switch line[i] {
		case ' ':
			w++
		case '\t':
			next := (w/8 + 1) * 8
			if next > width {
				return line[i:]
			}
			w = next
		default:
			return line[i:]
		}
	}
	return ""
}
