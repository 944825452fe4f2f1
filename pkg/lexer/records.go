package lexer

import (
	"encoding/json"
)

// TokenRecord is the external form of a token, as printed by the tokens
// command and compared against recorded fixtures.
type TokenRecord struct {
	Type    string `json:"type" yaml:"type"`
	Literal any    `json:"literal,omitempty" yaml:"literal,omitempty"`
	Options string `json:"options,omitempty" yaml:"options,omitempty"`
	Line    *int   `json:"line,omitempty" yaml:"line,omitempty"`
	Column  *int   `json:"column,omitempty" yaml:"column,omitempty"`
}

// Record converts a token to its external form. Only tokens that carry a
// value get a literal.
func (t Token) Record(includePosition bool) TokenRecord {
	rec := TokenRecord{Type: t.TypeValue(), Options: t.Options}
	switch t.Type {
	case FIXNUM:
		rec.Literal = t.Fixnum
	case FLOAT:
		rec.Literal = t.Float
	case NTH_REF:
		rec.Literal = t.Fixnum
	case NAME, CONSTANT, IVAR, CVAR, GVAR, BACK_REF, SYMBOL_KEY, BIGNUM,
		RATIONAL, COMPLEX, RATIONAL_COMPLEX, STRING, SYMBOL,
		WORDS_LOWER_W, WORDS_UPPER_W, WORDS_LOWER_I, WORDS_UPPER_I:
		rec.Literal = t.Literal
	}
	if includePosition {
		line, col := t.Line, t.Column
		rec.Line, rec.Column = &line, &col
	}
	return rec
}

// Tokens tokenizes src one separator per line end, the way the token
// stream looks before the parser collapses it, and returns the external
// records without the final EOF.
func Tokens(src string, includePosition bool, opts ...Option) ([]TokenRecord, error) {
	l := New(src, opts...)
	l.collapse = false
	tokens, err := l.Tokenize()
	if err != nil {
		return nil, err
	}
	records := make([]TokenRecord, 0, len(tokens))
	for _, tok := range tokens {
		records = append(records, tok.Record(includePosition))
	}
	return records, nil
}

// TokenizeJSON tokenizes the input and returns the records as JSON.
func (l *Lexer) TokenizeJSON() (string, error) {
	tokens, err := l.Tokenize()
	if err != nil {
		return "", err
	}
	records := make([]TokenRecord, 0, len(tokens))
	for _, tok := range tokens {
		records = append(records, tok.Record(false))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
