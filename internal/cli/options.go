package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/kibitz/internal/uci"
)

// OptionOutput is one engine option in command output.
type OptionOutput struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Default any      `json:"default,omitempty"`
	Min     *int64   `json:"min,omitempty"`
	Max     *int64   `json:"max,omitempty"`
	Vars    []string `json:"vars,omitempty"`
}

// OptionsOutput is the option registry of an engine.
type OptionsOutput struct {
	Engine  string         `json:"engine"`
	Options []OptionOutput `json:"options"`
}

func (o OptionsOutput) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tTYPE\tDEFAULT\tRANGE\n")
	for _, opt := range o.Options {
		def := ""
		if opt.Default != nil {
			def = fmt.Sprint(opt.Default)
		}
		rng := ""
		switch {
		case opt.Min != nil && opt.Max != nil:
			rng = fmt.Sprintf("%d..%d", *opt.Min, *opt.Max)
		case len(opt.Vars) > 0:
			rng = strings.Join(opt.Vars, "|")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", opt.Name, opt.Type, def, rng)
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

func newOptionOutput(opt uci.Option) OptionOutput {
	out := OptionOutput{Name: opt.Name, Type: opt.Kind.String()}
	switch opt.Kind {
	case uci.KindCheck:
		out.Default = opt.Check
	case uci.KindSpin:
		out.Default = opt.SpinDefault
		out.Min = &opt.SpinMin
		out.Max = &opt.SpinMax
	case uci.KindCombo:
		out.Default = opt.Default
		out.Vars = opt.Vars
	case uci.KindString:
		out.Default = opt.Default
	}
	return out
}

// NewOptionsCommand creates the options command.
func NewOptionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the options the engine declares",
		Long: `Start the engine, complete the handshake and print the declared options.

Example:
  kibitz options
  kibitz options --engine /usr/local/bin/stockfish --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptions(cmd, rootOpts)
		},
	}
}

func runOptions(cmd *cobra.Command, opts *RootOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	settings, err := loadSettings(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load config", err)
	}
	closeLog, err := setupLogging(opts, settings.LogFile, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to set up logging", err)
	}
	defer closeLog()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng, stop, err := startEngine(ctx, opts, settings)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to start engine", err)
	}
	defer stop()

	out := OptionsOutput{Engine: engineName(settings), Options: []OptionOutput{}}
	for _, opt := range eng.Options() {
		out.Options = append(out.Options, newOptionOutput(opt))
	}
	return formatter.Success(out)
}
