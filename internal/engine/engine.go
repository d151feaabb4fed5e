package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/kibitz/internal/rendezvous"
	"github.com/roach88/kibitz/internal/uci"
)

// Engine is the handle for one running engine process.
//
// Every operation is a command on a bounded FIFO queue consumed by a single
// run loop goroutine, which owns the process pipes. GetEvaluation is the only
// blocking operation; it parks on a rendezvous cell the run loop publishes
// into.
//
// Thread-safety model:
//   - SetPosition, Start, Stop, GetEvaluation: safe from any goroutine
//   - Options, Option, Analysis, State, Err, Done: safe from any goroutine
//   - the run loop is started by New and is the only writer to the process
//
// INVARIANTS:
//   - command N is fully serviced before command N+1 is written
//   - an evaluation result is only returned to the request that produced it
//   - the child is terminated and reaped on every exit path
type Engine struct {
	cfg   validatedConfig
	proc  *process
	queue *commandQueue
	clock *Clock

	// options is filled by the handshake before New returns, then read-only.
	options *uci.Registry

	cell   *rendezvous.Cell[evalOutcome]
	evalMu sync.Mutex // one outstanding evaluation per handle

	analysis  analysisBox
	searching bool // run loop only

	// pendingDrain marks a timed-out dump whose tail is still in the pipe.
	// Run loop only.
	pendingDrain bool

	state atomic.Int32
	errMu sync.Mutex
	err   error

	cancel context.CancelFunc
	done   chan struct{}
}

// New starts the engine process, performs the handshake and starts the run
// loop. ctx bounds the handshake only.
//
// Spawn and handshake failures are returned here and are not retried; the
// child is killed before New returns an error.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	vc, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     vc,
		queue:   newCommandQueue(vc.queueSize),
		clock:   NewClock(),
		options: uci.NewRegistry(),
		cell:    rendezvous.New(evalOutcome{}),
		done:    make(chan struct{}),
	}
	e.setState(StateStarting)

	proc, err := startProcess(vc)
	if err != nil {
		return nil, err
	}
	e.proc = proc

	if err := e.handshake(ctx); err != nil {
		e.setState(StateHandshakeFailed)
		proc.kill()
		slog.Error("engine handshake failed", "path", vc.binaryPath, "error", err)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.setState(StateReady)
	go e.run(runCtx)

	slog.Info("engine ready", "path", vc.binaryPath, "options", e.options.Len())
	return e, nil
}

// SetPosition queues a position change. The engine does not acknowledge it;
// callers may ignore the error, which only reports that the command was not
// queued.
func (e *Engine) SetPosition(fen string) error {
	normalized, err := NormalizeFEN(fen)
	if err != nil {
		return err
	}
	return e.enqueue(uci.Command{Kind: uci.SetPosition, FEN: normalized})
}

// Start queues the start of an open-ended search.
func (e *Engine) Start() error {
	return e.enqueue(uci.Command{Kind: uci.StartAnalysis})
}

// Stop queues a stop. The run loop consumes the engine's reply before it
// services the next command.
func (e *Engine) Stop() error {
	return e.enqueue(uci.Command{Kind: uci.StopAnalysis})
}

// GetEvaluation requests a static evaluation of the current position and
// blocks until it is available, ctx is done, or the driver stops.
//
// A request abandoned through ctx is still serviced; its late result is
// discarded by id and never returned to a later call.
func (e *Engine) GetEvaluation(ctx context.Context) (uci.EvaluationResult, error) {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	id := e.clock.Next()

	// Arm before enqueueing so a result can never be missed.
	e.cell.SetWaiting()
	if err := e.enqueue(uci.Command{Kind: uci.RequestEvaluation, ID: id}); err != nil {
		return uci.EvaluationResult{}, err
	}

	for {
		out, err := e.cell.WaitContext(ctx)
		if err != nil {
			return uci.EvaluationResult{}, err
		}
		if out.final {
			return uci.EvaluationResult{}, stoppedError(e.Err())
		}
		if out.id == id {
			return out.result, out.err
		}
		slog.Debug("discarding stale evaluation", "id", out.id, "want", id)
		e.cell.SetWaitingIf(func(o evalOutcome) bool {
			return !o.final && o.id != id
		})
	}
}

// Options returns the options the engine declared at handshake, in order.
func (e *Engine) Options() []uci.Option {
	return e.options.Options()
}

// Option looks up a declared option by case-insensitive name.
func (e *Engine) Option(name string) (uci.Option, bool) {
	return e.options.Lookup(name)
}

// Analysis returns the latest search output.
func (e *Engine) Analysis() Analysis {
	return e.analysis.snapshot()
}

// State returns the driver's lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Err returns the error that stopped the driver, if any.
func (e *Engine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

// Done is closed once the run loop has exited and the child is reaped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Close stops accepting commands, lets the run loop finish the queued ones
// and terminates the engine. If ctx expires first the run loop is cancelled
// and Close still waits for the child to be reaped.
func (e *Engine) Close(ctx context.Context) error {
	e.queue.Close()
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		e.cancel()
		<-e.done
		return ctx.Err()
	}
}

func (e *Engine) enqueue(cmd uci.Command) error {
	err := e.queue.Enqueue(cmd)
	if errors.Is(err, errQueueClosed) {
		return stoppedError(e.Err())
	}
	return err
}

func (e *Engine) setState(s State) {
	old := State(e.state.Swap(int32(s)))
	if old != s {
		slog.Debug("engine state", "from", old, "to", s)
	}
}
