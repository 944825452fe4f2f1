package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chazu/rbparse/pkg/config"
	"github.com/chazu/rbparse/pkg/parser"
)

// rootOptions carries the persistent flags and the state derived from them
// before any subcommand runs.
type rootOptions struct {
	cfgFile   string
	verbose   bool
	format    string
	positions bool

	cfg    *config.Config
	logger *slog.Logger
	runID  string
}

// NewRootCmd builds the command tree. Each call returns an independent
// tree so tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rbparse",
		Short: "Ruby lexer and parser producing ruby_parser S-expressions",
		Long: `rbparse reads Ruby source and prints its token stream or its
syntax tree in the S-expression form used by ruby_parser.

Settings come from --config (TOML or YAML) or RBPARSE_CONFIG, and the
--format and --positions flags override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (.toml, .yaml); default $RBPARSE_CONFIG")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")
	flags.StringVarP(&opts.format, "format", "f", "", "output format: sexp, json or yaml")
	flags.BoolVar(&opts.positions, "positions", false, "include line and column information")

	root.AddCommand(
		newTokensCmd(opts),
		newParseCmd(opts),
		newFixtureCmd(opts),
		newCompareCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line and reports any error on stderr.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	var err error
	if o.cfgFile != "" {
		o.cfg, err = config.Load(o.cfgFile)
	} else {
		o.cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("format") {
		o.cfg.Format = o.format
	}
	if cmd.Flags().Changed("positions") {
		o.cfg.IncludePositions = o.positions
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	o.runID = uuid.NewString()
	o.logger = newLogger(cmd.ErrOrStderr(), o.verbose || os.Getenv("RBPARSE_DEBUG") != "").
		With("run", o.runID)
	o.logger.Debug("config loaded", "file", o.cfgFile, "format", o.cfg.Format, "positions", o.cfg.IncludePositions)
	return nil
}

// newLogger writes plain key=value lines without time or level.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// printError shows syntax errors with their source line and caret.
func printError(w io.Writer, err error) {
	var synErr *parser.SyntaxError
	if errors.As(err, &synErr) {
		fmt.Fprintln(w, synErr.Detail())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// readInput returns the source named by args, or stdin for "-" or no
// argument. Stdin is reported under the configured path.
func readInput(cmd *cobra.Command, args []string, cfg *config.Config) (src, path string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), cfg.Path, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), args[0], nil
}
