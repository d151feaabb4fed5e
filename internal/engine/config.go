package engine

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultBinary          = "stockfish"
	defaultIntroLines      = 3
	defaultQueueSize       = 8
	defaultMaxEvalLines    = 128
	defaultStartTimeout    = 10 * time.Second
	defaultResponseTimeout = 10 * time.Second
	defaultStopGrace       = 250 * time.Millisecond
	defaultShutdownTimeout = 2 * time.Second
)

// Config describes how to start and talk to the engine process.
// Zero values select the defaults.
type Config struct {
	// BinaryPath is looked up on PATH; empty means "stockfish".
	BinaryPath string
	Args       []string

	// SkipBanner is set for engines that print nothing before "uci".
	SkipBanner bool

	// IntroLines are discarded after "uci" and before the option listing
	// (id name, id author, blank line). Zero selects 3; negative means none.
	IntroLines int

	// Infinite sends "go infinite" instead of "go".
	Infinite bool

	QueueSize int

	// MaxEvalLines bounds the eval dump. A dump without a terminator inside
	// the bound is reported as malformed.
	MaxEvalLines int

	StartTimeout    time.Duration
	ResponseTimeout time.Duration
	// StopGrace bounds the single read after "stop" when no search runs.
	StopGrace       time.Duration
	ShutdownTimeout time.Duration

	// Transcript, when set, receives every protocol line ("> " out, "< " in).
	Transcript io.Writer
}

type validatedConfig struct {
	binaryPath      string
	args            []string
	expectBanner    bool
	introLines      int
	infinite        bool
	queueSize       int
	maxEvalLines    int
	startTimeout    time.Duration
	responseTimeout time.Duration
	stopGrace       time.Duration
	shutdownTimeout time.Duration
	transcript      io.Writer
}

func (cfg Config) validate() (validatedConfig, error) {
	introLines := cfg.IntroLines
	if introLines == 0 {
		introLines = defaultIntroLines
	}
	if introLines < 0 {
		introLines = 0
	}

	queueSize := cfg.QueueSize
	if queueSize < 0 {
		return validatedConfig{}, fmt.Errorf("queue size must be >= 0")
	}
	if queueSize == 0 {
		queueSize = defaultQueueSize
	}

	maxEvalLines := cfg.MaxEvalLines
	if maxEvalLines < 0 {
		return validatedConfig{}, fmt.Errorf("max eval lines must be >= 0")
	}
	if maxEvalLines == 0 {
		maxEvalLines = defaultMaxEvalLines
	}

	binaryPath, err := resolveBinaryPath(cfg.BinaryPath)
	if err != nil {
		return validatedConfig{}, spawnError("resolve binary", err)
	}

	return validatedConfig{
		binaryPath:      binaryPath,
		args:            append([]string(nil), cfg.Args...),
		expectBanner:    !cfg.SkipBanner,
		introLines:      introLines,
		infinite:        cfg.Infinite,
		queueSize:       queueSize,
		maxEvalLines:    maxEvalLines,
		startTimeout:    durationOr(cfg.StartTimeout, defaultStartTimeout),
		responseTimeout: durationOr(cfg.ResponseTimeout, defaultResponseTimeout),
		stopGrace:       durationOr(cfg.StopGrace, defaultStopGrace),
		shutdownTimeout: durationOr(cfg.ShutdownTimeout, defaultShutdownTimeout),
		transcript:      cfg.Transcript,
	}, nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func resolveBinaryPath(configured string) (string, error) {
	trimmed := strings.TrimSpace(configured)
	if trimmed == "" {
		trimmed = defaultBinary
	}
	found, err := exec.LookPath(trimmed)
	if err != nil {
		return "", fmt.Errorf("engine binary %q not found: %w", trimmed, err)
	}
	return found, nil
}

// NormalizeFEN trims fen and rejects values that would break the line
// protocol. Chess validity is the position package's concern.
func NormalizeFEN(fen string) (string, error) {
	trimmed := strings.TrimSpace(fen)
	if trimmed == "" {
		return "", errors.New("fen must not be empty")
	}
	if strings.ContainsAny(trimmed, "\r\n") {
		return "", errors.New("fen must be single-line")
	}
	return trimmed, nil
}
