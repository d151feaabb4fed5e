package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/kibitz/internal/position"
	"github.com/roach88/kibitz/internal/store"
	"github.com/roach88/kibitz/internal/tui"
)

// TUIOptions holds flags for the tui command.
type TUIOptions struct {
	*RootOptions
	FEN      string
	Database string

	// NewScreen allows substituting the terminal (for testing).
	// If nil, defaults to tcell.NewScreen.
	NewScreen func() (tcell.Screen, error)

	// SessionGenerator allows overriding session ids (for testing).
	SessionGenerator store.IDGenerator
}

// NewTUICommand creates the tui command.
func NewTUICommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TUIOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive board",
		Long: `Start the engine and the interactive terminal board.

Keys: q/Esc quit, s start search, x stop, e evaluate, arrows + Enter move a
piece, : type a move (e2e4), u undo, n new game.

Logs go to --log-file (discarded when unset) so they do not corrupt the
screen.

Example:
  kibitz tui
  kibitz tui --db ./kibitz.db --fen "8/8/8/4k3/8/8/4P3/4K3 w - - 0 1"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.FEN, "fen", "", "starting position (default: start FEN from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append evaluations to this history database")

	return cmd
}

func runTUI(cmd *cobra.Command, opts *TUIOptions) error {
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
	closeLog, err := setupLogging(opts.RootOptions, settings.LogFile, true)
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

	st, err := openHistory(historyPath(opts.Database, settings))
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open database", err)
	}
	defer closeHistory(st)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	eng, stop, err := startEngine(ctx, opts.RootOptions, settings)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to start engine", err)
	}
	defer stop()

	appOpts := tui.Options{Engine: eng, Position: pos}
	if st != nil {
		gen := opts.SessionGenerator
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		sessionID, err := newSession(ctx, st, gen, engineName(settings), pos.FEN())
		if err != nil {
			return formatter.Fail(ExitFailure, "failed to record session", err)
		}
		appOpts.History = st
		appOpts.SessionID = sessionID
	}

	newScreen := opts.NewScreen
	if newScreen == nil {
		newScreen = tcell.NewScreen
	}
	screen, err := newScreen()
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open terminal", err)
	}
	if err := screen.Init(); err != nil {
		return formatter.Fail(ExitCommandError, "failed to open terminal", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	slog.Info("tui started", "engine", engineName(settings), "session", appOpts.SessionID)
	if err := tui.New(screen, appOpts).Run(ctx); err != nil && ctx.Err() == nil {
		return WrapExitError(ExitFailure, "tui error", err)
	}
	slog.Info("tui stopped")
	return nil
}
