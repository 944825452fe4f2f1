package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/chazu/rbparse/pkg/ast"
	"github.com/chazu/rbparse/pkg/parser"
)

func newCompareCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <dir>",
		Short: "Check parse results against recorded trees",
		Long: `Walk a directory of cases, each a subdirectory holding input.rb and
expected.sexp, and report every case whose tree differs. Whitespace in
expected.sexp is not significant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := findCases(args[0])
			if err != nil {
				return err
			}

			var result *multierror.Error
			for _, dir := range cases {
				if err := compareCase(dir, opts); err != nil {
					result = multierror.Append(result, err)
					opts.logger.Debug("case failed", "case", filepath.Base(dir))
				}
			}

			failed := 0
			if result != nil {
				failed = len(result.Errors)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d cases, %d failed\n", opts.runID, len(cases), failed)
			return result.ErrorOrNil()
		},
	}
}

// findCases returns the directories under root that contain input.rb.
func findCases(root string) ([]string, error) {
	var cases []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == "input.rb" {
			cases = append(cases, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(cases)
	return cases, nil
}

func compareCase(dir string, opts *rootOptions) error {
	name := filepath.Base(dir)
	input, err := os.ReadFile(filepath.Join(dir, "input.rb"))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	expected, err := os.ReadFile(filepath.Join(dir, "expected.sexp"))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	root, err := parser.Parse(string(input), "input.rb",
		parser.WithMaxDepth(opts.cfg.MaxDepth),
		parser.WithLogger(opts.logger),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	actual := root.Format(ast.Options{CompatHash: true})
	if normalize(actual) != normalize(string(expected)) {
		return fmt.Errorf("%s: tree differs\n  expected: %s\n  actual:   %s", name, normalize(string(expected)), actual)
	}
	return nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
