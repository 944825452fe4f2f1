package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
)

// JSON form of a node:
//
//	{"tag":"call","children":[null,{"sym":"puts"},"hi"],"line":1,"column":1,"file":"x.rb"}
//
// Strings and integers are plain JSON values. Every other atom is an
// object keyed by its kind so the tree survives a round trip.
type jsonNode struct {
	Tag      string            `json:"tag"`
	Children []json.RawMessage `json:"children"`
	Line     int               `json:"line,omitempty"`
	Column   int               `json:"column,omitempty"`
	File     string            `json:"file,omitempty"`
	Comments string            `json:"comments,omitempty"`
}

type jsonAtom struct {
	Sym       *string          `json:"sym,omitempty"`
	Float     *json.RawMessage `json:"float,omitempty"`
	Bignum    *string          `json:"bignum,omitempty"`
	Rational  *string          `json:"rational,omitempty"`
	Complex   *json.RawMessage `json:"complex,omitempty"`
	Regexp    *string          `json:"regexp,omitempty"`
	Options   int              `json:"options,omitempty"`
	Range     *[2]int64        `json:"range,omitempty"`
	Exclusive bool             `json:"exclusive,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}
	out := jsonNode{
		Tag:      n.Tag,
		Children: make([]json.RawMessage, 0, len(n.Children)),
		Line:     n.Location.Line,
		Column:   n.Location.Col,
		File:     n.File,
		Comments: n.Comments,
	}
	for i, c := range n.Children {
		data, err := marshalAtom(c)
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", n.Tag, i, err)
		}
		out.Children = append(out.Children, data)
	}
	return json.Marshal(out)
}

func marshalAtom(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte("null"), nil
	case *Node:
		return x.MarshalJSON()
	case Symbol:
		s := string(x)
		return json.Marshal(jsonAtom{Sym: &s})
	case string:
		return json.Marshal(x)
	case int64:
		return []byte(strconv.FormatInt(x, 10)), nil
	case int:
		return []byte(strconv.Itoa(x)), nil
	case float64:
		var raw json.RawMessage
		if math.IsInf(x, 0) || math.IsNaN(x) {
			raw = json.RawMessage(strconv.Quote(inspectFloat(x)))
		} else {
			raw = json.RawMessage(strconv.FormatFloat(x, 'g', -1, 64))
		}
		return json.Marshal(jsonAtom{Float: &raw})
	case Bignum:
		s := x.String()
		return json.Marshal(jsonAtom{Bignum: &s})
	case Rational:
		s := x.RatString()
		if x.IsInt() {
			s += "/1"
		}
		return json.Marshal(jsonAtom{Rational: &s})
	case Complex:
		data, err := marshalAtom(x.Imag)
		if err != nil {
			return nil, err
		}
		raw := json.RawMessage(data)
		return json.Marshal(jsonAtom{Complex: &raw})
	case Regexp:
		src := x.Source
		return json.Marshal(jsonAtom{Regexp: &src, Options: x.Options})
	case Range:
		r := [2]int64{x.Low, x.High}
		return json.Marshal(jsonAtom{Range: &r, Exclusive: x.Exclusive})
	}
	return nil, fmt.Errorf("unsupported atom %T", v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in jsonNode
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Tag == "" {
		return fmt.Errorf("node without tag")
	}
	n.Tag = in.Tag
	n.Location = Location{Line: in.Line, Col: in.Column}
	n.File = in.File
	n.Comments = in.Comments
	n.Children = make([]any, 0, len(in.Children))
	for i, raw := range in.Children {
		v, err := unmarshalAtom(raw)
		if err != nil {
			return fmt.Errorf("%s child %d: %w", in.Tag, i, err)
		}
		n.Children = append(n.Children, v)
	}
	return nil
}

func unmarshalAtom(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	switch raw[0] {
	case 'n':
		return nil, nil
	case '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case '{':
		return unmarshalObject(raw)
	}
	i, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad integer %s", raw)
	}
	return i, nil
}

func unmarshalObject(raw json.RawMessage) (any, error) {
	var probe struct {
		Tag *string `json:"tag"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.Tag != nil {
		n := &Node{}
		if err := n.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		return n, nil
	}

	var a jsonAtom
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	switch {
	case a.Sym != nil:
		return Symbol(*a.Sym), nil
	case a.Float != nil:
		return unmarshalFloat(*a.Float)
	case a.Bignum != nil:
		return NewBignum(*a.Bignum)
	case a.Rational != nil:
		r, ok := new(big.Rat).SetString(*a.Rational)
		if !ok {
			return nil, fmt.Errorf("bad rational %q", *a.Rational)
		}
		return Rational{r}, nil
	case a.Complex != nil:
		imag, err := unmarshalAtom(*a.Complex)
		if err != nil {
			return nil, err
		}
		return Complex{Imag: imag}, nil
	case a.Regexp != nil:
		return Regexp{Source: *a.Regexp, Options: a.Options}, nil
	case a.Range != nil:
		return Range{Low: a.Range[0], High: a.Range[1], Exclusive: a.Exclusive}, nil
	}
	return nil, fmt.Errorf("unknown atom %s", raw)
}

func unmarshalFloat(raw json.RawMessage) (float64, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		switch s {
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "NaN":
			return math.NaN(), nil
		}
		return 0, fmt.Errorf("bad float %q", s)
	}
	return strconv.ParseFloat(string(raw), 64)
}

// Parse reads a tree in JSON form from a reader.
func Parse(r io.Reader) (*Node, error) {
	var n Node
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&n); err != nil {
		return nil, fmt.Errorf("failed to parse AST: %w", err)
	}
	return &n, nil
}

// ParseBytes parses a tree in JSON form from a byte slice.
func ParseBytes(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse AST: %w", err)
	}
	return &n, nil
}
