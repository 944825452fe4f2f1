package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/rbparse/pkg/config"
	"github.com/chazu/rbparse/pkg/lexer"
)

func newTokensCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [file.rb]",
		Short: "Print the token stream",
		Long: `Tokenize a Ruby file, or stdin when no file or "-" is given.

The sexp format prints one token per line; json and yaml print the token
records.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, path, err := readInput(cmd, args, opts.cfg)
			if err != nil {
				return err
			}
			records, err := lexer.Tokens(src, opts.cfg.IncludePositions,
				lexer.WithFile(path),
				lexer.WithLogger(opts.logger),
			)
			if err != nil {
				return err
			}
			opts.logger.Debug("tokenized", "file", path, "tokens", len(records))
			return writeTokens(cmd.OutOrStdout(), records, opts.cfg.Format)
		},
	}
}

func writeTokens(w io.Writer, records []lexer.TokenRecord, format string) error {
	switch format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, rec := range records {
		line := rec.Type
		if rec.Literal != nil {
			line += fmt.Sprintf(" %#v", rec.Literal)
		}
		if rec.Options != "" {
			line += " /" + rec.Options
		}
		if rec.Line != nil {
			line += fmt.Sprintf(" @%d:%d", *rec.Line, *rec.Column)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
