// Command rbparse tokenizes and parses Ruby source into ruby_parser style
// S-expressions.
//
// Usage:
//
//	rbparse tokens <file.rb>     # token records as json, yaml or text
//	rbparse parse <file.rb>      # tree as sexp, json or yaml
//	rbparse fixture <file.rb>    # Go source that rebuilds the tree
//	rbparse compare <dir>        # check input.rb/expected.sexp cases
package main

import (
	"os"

	"github.com/chazu/rbparse/cmd/rbparse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
