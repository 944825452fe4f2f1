package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/codegen"
	"github.com/chazu/rbparse/pkg/parser"
)

func newFixtureCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "fixture [file.rb|tree.json]",
		Short: "Generate Go code that rebuilds a syntax tree",
		Long: `Parse a Ruby file and write a Go function returning the same tree,
for use as a test fixture. A .json argument is read as a tree previously
printed by "rbparse parse --format json".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, path, err := loadTree(cmd, args, opts)
			if err != nil {
				return err
			}
			var source string
			if len(args) == 1 && args[0] != "-" {
				source = filepath.Base(path)
			}
			if name == "" {
				name = source
			}

			result := codegen.Generate(root, codegen.Options{
				Package:    opts.cfg.Fixture.Package,
				FuncPrefix: opts.cfg.Fixture.FuncPrefix,
				Name:       name,
				Source:     source,
				Positions:  opts.cfg.IncludePositions,
			})
			for _, w := range result.Warnings {
				opts.logger.Warn("fixture", "func", result.FuncName, "warning", w)
			}

			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), result.Code)
				return err
			}
			if err := os.WriteFile(output, []byte(result.Code), 0o644); err != nil {
				return fmt.Errorf("writing fixture: %w", err)
			}
			opts.logger.Debug("fixture written", "file", output, "func", result.FuncName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&name, "name", "", "fixture name (default: input file name, or Root)")
	return cmd
}

func loadTree(cmd *cobra.Command, args []string, opts *rootOptions) (*ast.Node, string, error) {
	if len(args) == 1 && strings.EqualFold(filepath.Ext(args[0]), ".json") {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("reading file: %w", err)
		}
		defer f.Close()
		root, err := ast.Parse(f)
		if err != nil {
			return nil, "", err
		}
		return root, args[0], nil
	}

	src, path, err := readInput(cmd, args, opts.cfg)
	if err != nil {
		return nil, "", err
	}
	root, err := parser.Parse(src, path,
		parser.WithMaxDepth(opts.cfg.MaxDepth),
		parser.WithLogger(opts.logger),
	)
	if err != nil {
		return nil, "", err
	}
	return root, path, nil
}
