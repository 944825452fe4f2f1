package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/rbparse/pkg/lexer"
)

// ErrorKind classifies parse failures.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	InvalidAssignmentTarget
	NotCallable
	SemanticConstraint
	ResourceExhausted
	LexicalError // the lexer failed; Err holds the *lexer.Error
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "UnexpectedToken"
	case InvalidAssignmentTarget:
		return "InvalidAssignmentTarget"
	case NotCallable:
		return "NotCallable"
	case SemanticConstraint:
		return "SemanticConstraint"
	case ResourceExhausted:
		return "ResourceExhausted"
	case LexicalError:
		return "LexicalError"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// SyntaxError is the only error Parse returns. Line and Column are
// 1-indexed and point at the offending token, or at the opening
// delimiter of an unterminated construct.
type SyntaxError struct {
	Kind    ErrorKind
	Message string // "syntax error, unexpected ')' (expected: 'end-of-line')"
	File    string
	Line    int
	Column  int

	Found      string // display form of the offending token
	Expected   string
	SourceLine string
	Err        error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s#%d: %s", e.File, e.Line, e.Message)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Detail returns the headline followed by the source line and a caret
// under the reported column.
func (e *SyntaxError) Detail() string {
	if e.SourceLine == "" {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	b.WriteByte('\n')
	b.WriteString(e.SourceLine)
	b.WriteByte('\n')
	if e.Column > 1 {
		b.WriteString(strings.Repeat(" ", e.Column-1))
	}
	b.WriteString("^ here")
	if e.Expected != "" {
		fmt.Fprintf(&b, ", expected '%s'", e.Expected)
	}
	return b.String()
}

// bailout carries a SyntaxError up the recursion to Parse.
type bailout struct {
	err *SyntaxError
}

func (p *Parser) fail(err *SyntaxError) {
	if err.File == "" {
		err.File = p.file
	}
	if err.SourceLine == "" && err.Line > 0 {
		err.SourceLine = p.lex.LineText(err.Line)
	}
	p.logger.Debug("syntax error", "kind", err.Kind, "line", err.Line, "message", err.Message)
	panic(bailout{err})
}

// unexpected fails on tok, naming what the current production wanted.
func (p *Parser) unexpected(tok lexer.Token, expected string) {
	found := describe(tok)
	msg := "syntax error, unexpected " + found
	if expected != "" {
		msg += fmt.Sprintf(" (expected: '%s')", expected)
	}
	p.fail(&SyntaxError{
		Kind:     UnexpectedToken,
		Message:  msg,
		Line:     tok.Line,
		Column:   tok.Column + 1,
		Found:    found,
		Expected: expected,
	})
}

// failAt reports a non-token error at tok's position.
func (p *Parser) failAt(tok lexer.Token, kind ErrorKind, format string, args ...any) {
	p.fail(&SyntaxError{
		Kind:    kind,
		Message: "syntax error, " + fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column + 1,
		Found:   describe(tok),
	})
}

func describe(tok lexer.Token) string {
	switch {
	case tok.IsEOF():
		return "end-of-input"
	case tok.IsNewline():
		return "end-of-line"
	case tok.Literal != "" && tok.Type != lexer.TokenType(tok.Literal):
		return fmt.Sprintf("%s '%s'", tok.TypeValue(), tok.Literal)
	}
	return fmt.Sprintf("'%s'", tok.TypeValue())
}

// fromLexError converts a lexer failure. Unterminated constructs are
// reported at their opening delimiter.
func (p *Parser) fromLexError(err error) *SyntaxError {
	var lexErr *lexer.Error
	if !errors.As(err, &lexErr) {
		return &SyntaxError{Kind: LexicalError, Message: err.Error(), File: p.file, Err: err}
	}
	out := &SyntaxError{
		Kind:   LexicalError,
		File:   p.file,
		Line:   lexErr.Line,
		Column: lexErr.Column + 1,
		Err:    lexErr,
	}
	if lexErr.Kind == lexer.UnterminatedConstruct {
		out.Line = lexErr.OpenedLine
		out.Column = lexErr.OpenedColumn + 1
		out.Expected = lexErr.Closer
		out.Message = fmt.Sprintf("syntax error, unterminated %s meets end of file", lexErr.Construct)
		if lexErr.Closer != "" {
			out.Message += fmt.Sprintf(" (expected: '%s')", lexErr.Closer)
		}
	} else {
		if lexErr.Kind == lexer.NestingTooDeep {
			out.Kind = ResourceExhausted
		}
		out.Message = lexErr.Message
		if !strings.HasPrefix(out.Message, "syntax error") {
			out.Message = "syntax error, " + out.Message
		}
	}
	out.SourceLine = p.lex.LineText(out.Line)
	return out
}
