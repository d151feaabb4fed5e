package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath    string
	Engine        string
	EngineArgs    []string
	TraceProtocol string
	LogFile       string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kibitz CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kibitz",
		Short: "kibitz - terminal chess analysis",
		Long: `A terminal front-end for UCI chess engines.

kibitz starts an engine (Stockfish by default), shows the board and the
engine's search, and asks for static evaluations on demand. Evaluations can
be kept in a SQLite history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				err := NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.Engine, "engine", "", "engine binary (overrides the config file, default stockfish)")
	flags.StringArrayVar(&opts.EngineArgs, "engine-arg", nil, "argument passed to the engine (repeatable)")
	flags.StringVar(&opts.TraceProtocol, "trace-protocol", "", "write the engine protocol transcript to this file")
	flags.StringVar(&opts.LogFile, "log-file", "", "write logs to this file instead of stderr")

	// Add subcommands
	cmd.AddCommand(NewTUICommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewOptionsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewFakeEngineCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
