package lexer

import (
	"strings"
)

// quoteKind identifies a family of quoted literal. Every way of opening a
// literal (quote character, percent letter, heredoc style) maps to one.
type quoteKind int

const (
	quoteSingle        quoteKind = iota // '...' %q
	quoteDouble                         // "..." %Q %()
	quoteShell                          // `...` %x
	quoteRegexp                         // /.../ %r
	quoteSymbol                         // :"..."
	quoteSymbolSingle                   // %s
	quoteWords                          // %w
	quoteWordsInterp                    // %W
	quoteSymbols                        // %i
	quoteSymbolsInterp                  // %I
	quoteRaw                            // <<'EOS'
)

type escapeMode int

const (
	escapeNone   escapeMode = iota // backslashes are literal
	escapeQuotes                   // only \\ and an escaped delimiter
	escapeFull                     // the double-quote escape set
	escapeRegexp                   // only an escaped closing delimiter
)

// quotePolicy is how one kind of literal treats its body.
type quotePolicy struct {
	construct   string
	interpolate bool
	escapes     escapeMode
	begin, end  TokenType // wrappers for the dynamic form
	static      TokenType // single-token form when nothing is interpolated
	leadingText bool      // keep an empty first segment
	words       TokenType // set for word arrays
}

var quotePolicies = [...]quotePolicy{
	quoteSingle:        {construct: "string", escapes: escapeQuotes, static: STRING},
	quoteDouble:        {construct: "string", interpolate: true, escapes: escapeFull, begin: DSTR, end: DSTR_END, leadingText: true},
	quoteShell:         {construct: "string", interpolate: true, escapes: escapeFull, begin: DXSTR, end: DXSTR_END, leadingText: true},
	quoteRegexp:        {construct: "regexp", interpolate: true, escapes: escapeRegexp, begin: DREGX, end: DREGX_END},
	quoteSymbol:        {construct: "quoted string", interpolate: true, escapes: escapeFull, begin: DSYM, end: DSYM_END, static: SYMBOL, leadingText: true},
	quoteSymbolSingle:  {construct: "quoted string", escapes: escapeQuotes, static: SYMBOL},
	quoteWords:         {construct: "list", escapes: escapeQuotes, words: WORDS_LOWER_W},
	quoteWordsInterp:   {construct: "list", interpolate: true, escapes: escapeFull, words: WORDS_UPPER_W},
	quoteSymbols:       {construct: "list", escapes: escapeQuotes, words: WORDS_LOWER_I},
	quoteSymbolsInterp: {construct: "list", interpolate: true, escapes: escapeFull, words: WORDS_UPPER_I},
	quoteRaw:           {construct: "heredoc", escapes: escapeNone, static: STRING},
}

var percentLetters = map[byte]quoteKind{
	'q': quoteSingle,
	'Q': quoteDouble,
	'w': quoteWords,
	'W': quoteWordsInterp,
	'i': quoteSymbols,
	'I': quoteSymbolsInterp,
	'r': quoteRegexp,
	'x': quoteShell,
	's': quoteSymbolSingle,
}

var bracketPairs = map[byte]byte{
	'(': ')',
	'[': ']',
	'{': '}',
	'<': '>',
}

// regexpOptions are the flags accepted after a closing slash.
const regexpOptions = "imxounes"

func closingDelimiter(open byte) byte {
	if c, ok := bracketPairs[open]; ok {
		return c
	}
	return open
}

func isPercentDelimiter(c byte) bool {
	if _, ok := bracketPairs[c]; ok {
		return true
	}
	return c > ' ' && c < 0x7f && !isIdentChar(c)
}

// bodyScanner accumulates the parts of a literal body: text segments as
// STRING tokens and interpolations as evstr runs.
type bodyScanner struct {
	l            *Lexer
	p            *quotePolicy
	open, closer byte

	buf          strings.Builder
	textStart    int
	parts        []Token
	interpolated bool
}

func (l *Lexer) newBodyScanner(kind quoteKind, open, closer byte) *bodyScanner {
	return &bodyScanner{
		l:         l,
		p:         &quotePolicies[kind],
		open:      open,
		closer:    closer,
		textStart: l.st.pos,
	}
}

// flush ends the current text segment. Empty segments are kept only at
// the front of literals that always lead with text.
func (b *bodyScanner) flush() {
	if b.buf.Len() > 0 || (len(b.parts) == 0 && b.p.leadingText) {
		b.parts = append(b.parts, b.l.tokenAt(STRING, b.buf.String(), b.textStart))
	}
	b.buf.Reset()
	b.textStart = b.l.st.pos
}

// text returns the static text of the body.
func (b *bodyScanner) text() string {
	var s strings.Builder
	for _, part := range b.parts {
		if part.Type == STRING {
			s.WriteString(part.Literal)
		}
	}
	s.WriteString(b.buf.String())
	return s.String()
}

// escape handles the backslash at the current position.
func (b *bodyScanner) escape() error {
	l := b.l
	pos := l.st.pos
	next := l.peekNext()
	switch b.p.escapes {
	case escapeNone:
		b.buf.WriteByte('\\')
		l.st.pos++
		return nil
	case escapeQuotes:
		if next == '\\' || (next != 0 && (next == b.closer || next == b.open)) {
			b.buf.WriteByte(next)
			l.st.pos += 2
			return nil
		}
		if b.p.words != "" && isSpace(next) {
			b.buf.WriteByte(next)
			l.st.pos += 2
			return nil
		}
		b.buf.WriteByte('\\')
		l.st.pos++
		return nil
	case escapeRegexp:
		if next != 0 && next == b.closer {
			b.buf.WriteByte(next)
			l.st.pos += 2
			return nil
		}
		b.buf.WriteByte('\\')
		if pos+1 < len(l.src) {
			b.buf.WriteByte(next)
			l.st.pos += 2
		} else {
			l.st.pos++
		}
		return nil
	}
	if b.p.words != "" && next == '\n' {
		b.buf.WriteByte('\n')
		l.st.pos += 2
		return nil
	}
	end, err := l.decodeEscape(&b.buf, pos)
	if err != nil {
		return err
	}
	l.st.pos = end
	return nil
}

// interpolation handles #{...}, #@var and #$var at the current position.
// It reports false when the # is plain text.
func (b *bodyScanner) interpolation() (bool, error) {
	l := b.l
	start := l.st.pos
	next := l.peekNext()
	var inner []Token
	var resume int

	switch {
	case next == '{':
		if l.depth >= l.maxDepth {
			return false, l.tooDeep(start)
		}
		sub := l.interpolation(start + 2)
		toks, err := sub.Tokenize()
		if err != nil {
			return false, err
		}
		if sub.st.pos >= len(l.src) || l.src[sub.st.pos] != '}' {
			return false, l.unterminated(b.p.construct, string(b.closer), start)
		}
		inner, resume = toks, sub.st.pos+1
	case next == '@' || next == '$':
		sigil := start + 1
		first := sigil + 1
		if next == '@' && first < len(l.src) && l.src[first] == '@' {
			first++
		}
		if first >= len(l.src) || !isAlpha(l.src[first]) {
			return false, nil
		}
		l.st.pos = sigil
		var toks []Token
		var err error
		if next == '@' {
			toks, err = l.scanInstanceVariable(sigil, l.peekNext())
		} else {
			toks, err = l.scanGlobal(sigil, l.peekNext())
		}
		if err != nil {
			return false, err
		}
		inner, resume = toks, l.st.pos
	default:
		return false, nil
	}

	l.st.pos = start
	b.flush()
	if len(inner) == 0 || !inner[len(inner)-1].IsNewline() {
		inner = append(inner, l.tokenAt(NEWLINE, "", resume-1))
	}
	inner = append(inner, l.tokenAt(EVSTR_END, "", resume-1))
	// The run rides on the EVSTR token so each enclosing level moves one
	// token instead of the whole run.
	evstr := l.tokenAt(EVSTR, "", start)
	evstr.inner = inner
	b.parts = append(b.parts, evstr)
	b.interpolated = true
	l.st.pos = resume
	b.textStart = resume
	return true, nil
}

// scan reads the body up to the closing delimiter, leaving the position
// just past it. A zero closer reads to the end of the source.
func (b *bodyScanner) scan(start int) error {
	l := b.l
	depth := 0
	for {
		if l.isAtEnd() {
			if b.closer == 0 {
				b.flush()
				return nil
			}
			return l.unterminated(b.p.construct, string(b.closer), start)
		}
		c := l.peek()
		switch {
		case c == b.closer && depth == 0:
			b.flush()
			l.st.pos++
			return nil
		case c == b.closer:
			depth--
		case c == b.open && b.open != b.closer:
			depth++
		case c == '\\':
			if err := b.escape(); err != nil {
				return err
			}
			continue
		case c == '#' && b.p.interpolate:
			ok, err := b.interpolation()
			if err != nil {
				return err
			}
			if ok {
				continue
			}
		}
		b.buf.WriteByte(c)
		l.st.pos++
	}
}

// scanStringLiteral scans a quoted literal whose opening delimiter has
// been consumed. start is the offset of the literal's first character.
func (l *Lexer) scanStringLiteral(start int, kind quoteKind, open, closer byte) ([]Token, error) {
	p := &quotePolicies[kind]
	if p.words != "" {
		return l.scanWords(start, kind, open, closer)
	}
	b := l.newBodyScanner(kind, open, closer)
	if err := b.scan(start); err != nil {
		return nil, err
	}
	end := l.st.pos

	// "key": and 'key': inside hashes and argument lists
	symbolKey := (open == '"' || open == '\'') && l.src[start] == open && l.isSymbolKeyColon(end)

	if !b.interpolated && (p.static != "" || (symbolKey && kind == quoteDouble)) {
		typ := p.static
		if symbolKey {
			typ = SYMBOL_KEY
			l.st.pos = end + 1
		}
		return []Token{l.tokenAt(typ, b.text(), start)}, nil
	}

	toks := make([]Token, 0, len(b.parts)+2)
	toks = append(toks, l.tokenAt(p.begin, "", start))
	toks = append(toks, b.parts...)
	closeTok := l.tokenAt(p.end, "", end-1)
	switch {
	case kind == quoteRegexp:
		opts := end
		for opts < len(l.src) && strings.IndexByte(regexpOptions, l.src[opts]) >= 0 {
			opts++
		}
		closeTok.Options = l.src[end:opts]
		l.st.pos = opts
	case symbolKey && kind == quoteDouble:
		closeTok.Type = DSTR_SYMBOL_KEY
		l.st.pos = end + 1
	}
	return append(toks, closeTok), nil
}

// scanWords scans %w %W %i %I arrays into a single token.
func (l *Lexer) scanWords(start int, kind quoteKind, open, closer byte) ([]Token, error) {
	p := &quotePolicies[kind]
	var words []Word
	var texts []string
	depth := 0

	for {
		for !l.isAtEnd() && isSpace(l.peek()) {
			l.st.pos++
		}
		if l.isAtEnd() {
			return nil, l.unterminated(p.construct, string(closer), start)
		}
		if l.peek() == closer && depth == 0 {
			l.st.pos++
			break
		}

		wordStart := l.st.pos
		b := l.newBodyScanner(kind, open, closer)
		for !l.isAtEnd() {
			c := l.peek()
			if isSpace(c) || (c == closer && depth == 0) {
				break
			}
			if c == '\\' {
				if err := b.escape(); err != nil {
					return nil, err
				}
				continue
			}
			if c == '#' && p.interpolate {
				ok, err := b.interpolation()
				if err != nil {
					return nil, err
				}
				if ok {
					continue
				}
			}
			switch {
			case c == closer:
				depth--
			case c == open && open != closer:
				depth++
			}
			b.buf.WriteByte(c)
			l.st.pos++
		}

		word := Word{Text: b.text()}
		if b.interpolated {
			b.flush()
			parts := b.parts
			if parts[0].Type != STRING {
				lead := NewToken(STRING, "", parts[0].Line, parts[0].Column)
				parts = append([]Token{lead}, parts...)
			}
			word.Parts = make([]Token, 0, len(parts)+2)
			word.Parts = append(word.Parts, l.tokenAt(DSTR, "", wordStart))
			word.Parts = append(word.Parts, flatten(parts)...)
			word.Parts = append(word.Parts, l.tokenAt(DSTR_END, "", l.st.pos))
		}
		words = append(words, word)
		texts = append(texts, word.Text)
	}

	tok := l.tokenAt(p.words, strings.Join(texts, " "), start)
	tok.Words = words
	return []Token{tok}, nil
}
