// Package codegen generates Go source that rebuilds a parsed tree, for use
// as test fixtures.
package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/chazu/rbparse/pkg/ast"
)

const astPath = "github.com/chazu/rbparse/pkg/ast"

// Options control the generated file.
type Options struct {
	Package    string // package clause, default "fixtures"
	FuncPrefix string // prepended to Name, default "Tree"
	Name       string // fixture name, default "Root"
	Source     string // optional file name mentioned in the doc comment
	Positions  bool   // emit .At(line, col, file) on every node
}

// Result contains the generated code and any warnings.
type Result struct {
	Code     string
	FuncName string
	Warnings []string
}

// Generate produces a Go file with one function returning a copy of root.
func Generate(root *ast.Node, opts Options) *Result {
	if opts.Package == "" {
		opts.Package = "fixtures"
	}
	if opts.FuncPrefix == "" {
		opts.FuncPrefix = "Tree"
	}
	if opts.Name == "" {
		opts.Name = "Root"
	}

	g := &generator{
		opts:    opts,
		helpers: map[string]bool{},
	}
	return g.generate(root)
}

type generator struct {
	opts     Options
	warnings []string
	helpers  map[string]bool // helper funcs the tree needs
}

func (g *generator) generate(root *ast.Node) *Result {
	f := jen.NewFile(g.opts.Package)
	f.HeaderComment("Code generated by rbparse fixture. DO NOT EDIT.")

	name := g.opts.FuncPrefix + exportName(g.opts.Name)
	doc := name + " rebuilds the parse tree"
	if g.opts.Source != "" {
		doc += " of " + g.opts.Source
	}
	f.Comment(doc + ".")

	var body jen.Code = jen.Nil()
	if root != nil {
		body = g.node(root)
	} else {
		g.warn("nil tree")
	}
	f.Func().Id(name).Params().Op("*").Qual(astPath, "Node").Block(
		jen.Return(body),
	)

	g.generateHelpers(f)

	buf := &bytes.Buffer{}
	if err := f.Render(buf); err != nil {
		return &Result{
			Code:     fmt.Sprintf("// Error rendering: %v", err),
			FuncName: name,
			Warnings: append(g.warnings, err.Error()),
		}
	}
	return &Result{
		Code:     buf.String(),
		FuncName: name,
		Warnings: g.warnings,
	}
}

func (g *generator) warn(format string, args ...any) {
	g.warnings = append(g.warnings, fmt.Sprintf(format, args...))
}

// node renders ast.S(tag, children...) with optional position and
// comment decorations.
func (g *generator) node(n *ast.Node) *jen.Statement {
	args := []jen.Code{jen.Lit(n.Tag)}
	for _, c := range n.Children {
		args = append(args, g.atom(c))
	}
	stmt := jen.Qual(astPath, "S").Call(args...)
	if g.opts.Positions && n.Location.Line > 0 {
		stmt = stmt.Dot("At").Call(jen.Lit(n.Location.Line), jen.Lit(n.Location.Col), jen.Lit(n.File))
	}
	if n.Comments != "" {
		g.helpers["commented"] = true
		stmt = jen.Id("commented").Call(stmt, jen.Lit(n.Comments))
	}
	return stmt
}

func (g *generator) atom(v any) jen.Code {
	switch x := v.(type) {
	case nil:
		return jen.Nil()
	case *ast.Node:
		if x == nil {
			return jen.Nil()
		}
		return g.node(x)
	case ast.Symbol:
		return jen.Qual(astPath, "Symbol").Call(jen.Lit(string(x)))
	case string:
		return jen.Lit(x)
	case int64:
		return jen.Lit(x)
	case int:
		return jen.Lit(int64(x))
	case float64:
		return jen.Lit(x)
	case bool:
		return jen.Lit(x)
	case ast.Bignum:
		g.helpers["bignum"] = true
		return jen.Id("bignum").Call(jen.Lit(x.String()))
	case ast.Rational:
		g.helpers["rational"] = true
		return jen.Id("rational").Call(jen.Lit(x.Rat.String()))
	case ast.Complex:
		return jen.Qual(astPath, "Complex").Values(jen.Dict{
			jen.Id("Imag"): g.atom(x.Imag),
		})
	case ast.Regexp:
		return jen.Qual(astPath, "Regexp").Values(jen.Dict{
			jen.Id("Source"):  jen.Lit(x.Source),
			jen.Id("Options"): jen.Lit(x.Options),
		})
	case ast.Range:
		return jen.Qual(astPath, "Range").Values(jen.Dict{
			jen.Id("Low"):       jen.Lit(x.Low),
			jen.Id("High"):      jen.Lit(x.High),
			jen.Id("Exclusive"): jen.Lit(x.Exclusive),
		})
	}
	g.warn("unsupported atom %T rendered as nil", v)
	return jen.Nil()
}

// generateHelpers appends the small constructors the tree referenced, in
// a stable order.
func (g *generator) generateHelpers(f *jen.File) {
	names := make([]string, 0, len(g.helpers))
	for name := range g.helpers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f.Line()
		switch name {
		case "bignum":
			f.Func().Id("bignum").Params(jen.Id("digits").String()).Qual(astPath, "Bignum").Block(
				jen.List(jen.Id("b"), jen.Err()).Op(":=").Qual(astPath, "NewBignum").Call(jen.Id("digits")),
				jen.If(jen.Err().Op("!=").Nil()).Block(jen.Panic(jen.Err())),
				jen.Return(jen.Id("b")),
			)
		case "rational":
			f.Func().Id("rational").Params(jen.Id("s").String()).Qual(astPath, "Rational").Block(
				jen.List(jen.Id("r"), jen.Id("ok")).Op(":=").New(jen.Qual("math/big", "Rat")).Dot("SetString").Call(jen.Id("s")),
				jen.If(jen.Op("!").Id("ok")).Block(
					jen.Panic(jen.Lit("bad rational ").Op("+").Id("s")),
				),
				jen.Return(jen.Qual(astPath, "Rational").Values(jen.Dict{jen.Id("Rat"): jen.Id("r")})),
			)
		case "commented":
			f.Func().Id("commented").Params(
				jen.Id("n").Op("*").Qual(astPath, "Node"),
				jen.Id("text").String(),
			).Op("*").Qual(astPath, "Node").Block(
				jen.Id("n").Dot("Comments").Op("=").Id("text"),
				jen.Return(jen.Id("n")),
			)
		}
	}
}

// exportName turns a file or fixture name into an exported Go identifier:
// "hello_world.rb" becomes "HelloWorld".
func exportName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				b.WriteRune(unicode.ToUpper(r))
				upper = false
			} else {
				b.WriteRune(r)
			}
		default:
			upper = true
		}
	}
	out := b.String()
	if out == "" {
		return "Root"
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "T" + out
	}
	return out
}
