package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kibitz/internal/config"
	"github.com/roach88/kibitz/internal/position"
	"github.com/roach88/kibitz/internal/store"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	FEN      string
	Database string
	Timeout  time.Duration

	// SessionGenerator allows overriding session ids (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionGenerator store.IDGenerator
}

// EvalOutput is the result of one static evaluation.
type EvalOutput struct {
	FEN        string     `json:"fen"`
	Scores     [3]float64 `json:"scores"`
	TotalLines int        `json:"total_lines"`
	SessionID  string     `json:"session_id,omitempty"`
}

func (o EvalOutput) String() string {
	s := fmt.Sprintf("FEN:    %s\nScores: %.2f %.2f %.2f\nLines:  %d",
		o.FEN, o.Scores[0], o.Scores[1], o.Scores[2], o.TotalLines)
	if o.SessionID != "" {
		s += "\nSession: " + o.SessionID
	}
	return s
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Print the engine's static evaluation of a position",
		Long: `Start the engine, send one position and print its static evaluation.

The three scores are the last three scored rows of the engine's eval dump,
most recent first.

Example:
  kibitz eval
  kibitz eval --fen "8/8/8/4k3/8/8/4P3/4K3 w - - 0 1" --format json
  kibitz eval --db ./kibitz.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.FEN, "fen", "", "position to evaluate (default: start FEN from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the evaluation to this history database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "how long to wait for the evaluation")

	return cmd
}

func runEval(cmd *cobra.Command, opts *EvalOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	settings, err := loadSettings(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load config", err)
	}
	closeLog, err := setupLogging(opts.RootOptions, settings.LogFile, false)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to set up logging", err)
	}
	defer closeLog()

	fen := settings.StartFEN
	if opts.FEN != "" {
		fen = opts.FEN
	}
	pos, err := position.New(fen)
	if err != nil {
		return formatter.Fail(ExitCommandError, "invalid position", err)
	}

	dbPath := historyPath(opts.Database, settings)
	st, err := openHistory(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open database", err)
	}
	defer closeHistory(st)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, stop, err := startEngine(ctx, opts.RootOptions, settings)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to start engine", err)
	}
	defer stop()
	formatter.VerboseLog("engine started: %s", engineName(settings))

	// Best effort; a queue failure surfaces as an evaluation error.
	_ = eng.SetPosition(pos.FEN())

	evalCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	result, err := eng.GetEvaluation(evalCtx)
	if err != nil {
		return formatter.Fail(ExitFailure, "evaluation failed", err)
	}

	out := EvalOutput{
		FEN:        pos.FEN(),
		Scores:     result.Scores,
		TotalLines: result.TotalLinesSeen,
	}

	if st != nil {
		gen := opts.SessionGenerator
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		sessionID, err := newSession(ctx, st, gen, engineName(settings), pos.FEN())
		if err != nil {
			return formatter.Fail(ExitFailure, "failed to record session", err)
		}
		if _, err := st.WriteEvaluation(ctx, store.Evaluation{
			SessionID:  sessionID,
			FEN:        out.FEN,
			Scores:     out.Scores,
			TotalLines: out.TotalLines,
		}); err != nil {
			return formatter.Fail(ExitFailure, "failed to store evaluation", fmt.Errorf("%w: %w", errHistory, err))
		}
		out.SessionID = sessionID
	}

	return formatter.Success(out)
}

// historyPath prefers --db over the config file.
func historyPath(flag string, s config.Settings) string {
	if flag != "" {
		return flag
	}
	return s.HistoryPath
}

func engineName(s config.Settings) string {
	if s.Engine.BinaryPath == "" {
		return "stockfish"
	}
	return filepath.Base(s.Engine.BinaryPath)
}
