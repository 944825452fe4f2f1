package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/config"
	"github.com/chazu/rbparse/pkg/parser"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "parse [file.rb]",
		Short: "Print the syntax tree",
		Long: `Parse a Ruby file, or stdin when no file or "-" is given, and print
the tree as an S-expression, JSON or YAML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, path, err := readInput(cmd, args, opts.cfg)
			if err != nil {
				return err
			}
			root, err := parser.Parse(src, path,
				parser.WithMaxDepth(opts.cfg.MaxDepth),
				parser.WithLogger(opts.logger),
			)
			if err != nil {
				return err
			}
			opts.logger.Debug("parsed", "file", path, "statements", root.Len())
			return writeTree(cmd.OutOrStdout(), root, opts.cfg, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent long S-expressions")
	return cmd
}

func writeTree(w io.Writer, root *ast.Node, cfg *config.Config, pretty bool) error {
	switch cfg.Format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(treeView(root, cfg.IncludePositions), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case config.FormatYAML:
		// YAML goes through the JSON form so both share one schema.
		data, err := json.Marshal(treeView(root, cfg.IncludePositions))
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}

	_, err := fmt.Fprintln(w, root.Format(ast.Options{
		CompatHash: cfg.CompatHash,
		Pretty:     pretty,
	}))
	return err
}

// treeView returns root, or a copy without line, column and file when
// positions are off.
func treeView(root *ast.Node, positions bool) *ast.Node {
	if positions || root == nil {
		return root
	}
	c := root.Copy()
	c.Location = ast.Location{}
	c.File = ""
	for i, child := range c.Children {
		if n, ok := child.(*ast.Node); ok && n != nil {
			c.Children[i] = treeView(n, false)
		}
	}
	return c
}
