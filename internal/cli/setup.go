package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/roach88/kibitz/internal/config"
	"github.com/roach88/kibitz/internal/engine"
	"github.com/roach88/kibitz/internal/store"
)

// errHistory marks failures of the history database.
var errHistory = errors.New("history")

const closeTimeout = 5 * time.Second

// loadSettings reads --config and applies the global flags over it.
func loadSettings(opts *RootOptions) (config.Settings, error) {
	s, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.Engine != "" {
		s.Engine.BinaryPath = opts.Engine
	}
	if len(opts.EngineArgs) > 0 {
		s.Engine.Args = opts.EngineArgs
	}
	if opts.LogFile != "" {
		s.LogFile = opts.LogFile
	}
	return s, nil
}

// setupLogging installs the default slog handler. Commands that own the
// terminal pass quiet, which discards logs unless a log file is set.
// The returned func closes the log file.
func setupLogging(opts *RootOptions, logFile string, quiet bool) (func(), error) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	case quiet:
		w = io.Discard
	case !opts.Verbose:
		logLevel = slog.LevelWarn
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

// startEngine starts the engine described by s, with the protocol
// transcript going to --trace-protocol when set. The returned func closes
// the engine and the transcript.
func startEngine(ctx context.Context, opts *RootOptions, s config.Settings) (*engine.Engine, func(), error) {
	cfg := s.Engine

	var transcript *os.File
	if opts.TraceProtocol != "" {
		f, err := os.Create(opts.TraceProtocol)
		if err != nil {
			return nil, nil, fmt.Errorf("create protocol transcript: %w", err)
		}
		transcript = f
		cfg.Transcript = f
	}

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		if transcript != nil {
			transcript.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := eng.Close(closeCtx); err != nil {
			slog.Warn("engine did not shut down cleanly", "error", err)
		}
		if transcript != nil {
			transcript.Close()
		}
	}
	return eng, cleanup, nil
}

// openHistory opens the database at path. An empty path returns nil.
func openHistory(path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errHistory, err)
	}
	return st, nil
}

// newSession records the start of a run against the history.
func newSession(ctx context.Context, st *store.Store, gen store.IDGenerator, engineName, startFEN string) (string, error) {
	sess := store.Session{
		ID:        gen.Generate(),
		Engine:    engineName,
		StartFEN:  startFEN,
		StartedAt: time.Now().UTC(),
	}
	if err := st.CreateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("%w: %w", errHistory, err)
	}
	return sess.ID, nil
}

func closeHistory(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
