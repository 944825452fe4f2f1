package lexer

import "fmt"

// ErrorKind classifies lexer failures.
type ErrorKind int

const (
	UnexpectedCharacter ErrorKind = iota
	UnterminatedConstruct
	InvalidEscape
	InvalidNumericSuffix
	NestingTooDeep
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedCharacter:
		return "UnexpectedCharacter"
	case UnterminatedConstruct:
		return "UnterminatedConstruct"
	case InvalidEscape:
		return "InvalidEscape"
	case InvalidNumericSuffix:
		return "InvalidNumericSuffix"
	case NestingTooDeep:
		return "NestingTooDeep"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned when the source cannot be tokenized.
//
// For UnterminatedConstruct, Line and Column give the end of input and
// OpenedLine and OpenedColumn give the opening delimiter.
type Error struct {
	Kind    ErrorKind
	Message string
	File    string
	Line    int
	Column  int

	Construct    string // string, regexp, shell, symbol, word array, heredoc
	Closer       string // delimiter that would have closed the construct
	OpenedLine   int
	OpenedColumn int
}

func (e *Error) Error() string {
	if e.Kind == UnterminatedConstruct {
		return fmt.Sprintf("%d: syntax error, unterminated %s meets end of file", e.OpenedLine, e.Construct)
	}
	return fmt.Sprintf("%d: %s", e.Line, e.Message)
}

func (l *Lexer) unexpectedChar(pos int) *Error {
	line, col := l.position(pos)
	return &Error{
		Kind:    UnexpectedCharacter,
		Message: fmt.Sprintf("syntax error, unexpected '%s'", charAt(l.src, pos)),
		File:    l.file,
		Line:    line,
		Column:  col,
	}
}

func (l *Lexer) badNumber(pos int) *Error {
	err := l.unexpectedChar(pos)
	err.Kind = InvalidNumericSuffix
	return err
}

func (l *Lexer) badEscape(pos int, msg string) *Error {
	line, col := l.position(pos)
	return &Error{Kind: InvalidEscape, Message: msg, File: l.file, Line: line, Column: col}
}

func (l *Lexer) tooDeep(pos int) *Error {
	line, col := l.position(pos)
	return &Error{
		Kind:    NestingTooDeep,
		Message: "syntax error, nesting too deep",
		File:    l.file,
		Line:    line,
		Column:  col,
	}
}

func (l *Lexer) unterminated(construct, closer string, openPos int) *Error {
	line, col := l.position(len(l.src))
	oline, ocol := l.position(openPos)
	return &Error{
		Kind:         UnterminatedConstruct,
		Message:      fmt.Sprintf("syntax error, unterminated %s meets end of file", construct),
		File:         l.file,
		Line:         line,
		Column:       col,
		Construct:    construct,
		Closer:       closer,
		OpenedLine:   oline,
		OpenedColumn: ocol,
	}
}

func charAt(src string, pos int) string {
	if pos >= len(src) {
		return "end-of-input"
	}
	return string(src[pos])
}
