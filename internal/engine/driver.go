package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/kibitz/internal/uci"
)

// evalOutcome is the value handed through the rendezvous cell.
type evalOutcome struct {
	id     int64
	result uci.EvaluationResult
	err    error
	// final is published once when the run loop exits.
	final bool
}

// handshake performs the startup exchange and fills the option registry.
// The whole exchange is bounded by the configured start timeout.
func (e *Engine) handshake(ctx context.Context) error {
	e.setState(StateHandshaking)

	ctx, cancel := context.WithTimeout(ctx, e.cfg.startTimeout)
	defer cancel()

	read := func(what string) (string, error) {
		line, err := e.proc.readLine(ctx, 0)
		if err != nil {
			return "", handshakeError("reading "+what, err)
		}
		return line, nil
	}

	if e.cfg.expectBanner {
		banner, err := read("banner")
		if err != nil {
			return err
		}
		slog.Debug("engine banner", "line", banner)
	}

	if err := e.proc.send(uci.CmdUCI); err != nil {
		return handshakeError("sending uci", err)
	}

	for i := 0; i < e.cfg.introLines; i++ {
		if _, err := read("introduction"); err != nil {
			return err
		}
	}

	for {
		line, err := read("options")
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == uci.RespUCIOK:
			return e.finishHandshake()
		case trimmed == "", strings.HasPrefix(trimmed, "id "):
			continue
		case strings.HasPrefix(trimmed, "option "):
			opt, err := uci.ParseOption(trimmed)
			if err != nil {
				return handshakeError("parsing option", err)
			}
			if err := e.options.Add(opt); err != nil {
				return handshakeError("registering option", err)
			}
		default:
			return handshakeError(fmt.Sprintf("unexpected line %q", line), nil)
		}
	}
}

func (e *Engine) finishHandshake() error {
	if err := e.proc.send(uci.CmdNewGame); err != nil {
		return handshakeError("sending ucinewgame", err)
	}
	slog.Info("engine handshake complete", "options", e.options.Len())
	return nil
}

// run is the single-writer service loop. It owns the process pipes and the
// searching flag, and is the only producer for the rendezvous cell.
//
// It parks on a select over cancellation, the queue signal and engine output.
// Commands are serviced strictly in FIFO order, each to completion.
func (e *Engine) run(ctx context.Context) {
	defer e.shutdown()

	for {
		if cmd, ok := e.queue.TryDequeue(); ok {
			if err := e.execute(ctx, cmd); err != nil {
				if ctx.Err() != nil {
					return
				}
				e.fail(err)
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-e.queue.Wait():
			if e.queue.Drained() {
				return
			}
		case line, ok := <-e.proc.lines:
			if !ok {
				e.fail(ioError("read", e.proc.closedErr()))
				return
			}
			e.consume(line)
		}
	}
}

// execute writes one command and performs its bounded reads.
// A returned error is fatal to the driver.
func (e *Engine) execute(ctx context.Context, cmd uci.Command) error {
	instr, err := cmd.Instruction(e.cfg.infinite)
	if err != nil {
		slog.Error("dropping invalid command", "kind", cmd.Kind, "error", err)
		return nil
	}
	slog.Debug("engine command", "kind", cmd.Kind, "id", cmd.ID)

	switch cmd.Kind {
	case uci.StartAnalysis:
		if err := e.proc.send(instr); err != nil {
			return err
		}
		e.searching = true
		e.analysis.start()
		return nil
	case uci.StopAnalysis:
		if err := e.proc.send(instr); err != nil {
			return err
		}
		return e.drainStop(ctx)
	case uci.RequestEvaluation:
		return e.evaluate(ctx, cmd.ID, instr)
	default:
		return e.proc.send(instr)
	}
}

// drainStop performs the read that follows "stop".
//
// With a search running the engine answers with bestmove, possibly after a
// few more info lines. Without one most engines stay silent, so the single
// read is bounded by the stop grace and a timeout is not an error.
func (e *Engine) drainStop(ctx context.Context) error {
	if !e.searching {
		line, err := e.proc.readLine(ctx, e.cfg.stopGrace)
		if errors.Is(err, ErrTimeout) {
			return nil
		}
		if err != nil {
			return err
		}
		e.consume(line)
		return nil
	}

	deadline := time.Now().Add(e.cfg.responseTimeout)
	for e.searching {
		line, err := e.proc.readLine(ctx, until(deadline))
		if errors.Is(err, ErrTimeout) {
			slog.Warn("no bestmove after stop", "timeout", e.cfg.responseTimeout)
			e.searching = false
			e.analysis.abandon()
			return nil
		}
		if err != nil {
			return err
		}
		e.consume(line)
	}
	return nil
}

// evaluate sends "eval", collects the dump up to its terminator and
// publishes the parsed outcome under id.
func (e *Engine) evaluate(ctx context.Context, id int64, instr string) error {
	if e.pendingDrain {
		if err := e.discardStale(ctx); err != nil {
			e.publish(evalOutcome{id: id, err: err})
			return err
		}
	}
	if err := e.proc.send(instr); err != nil {
		e.publish(evalOutcome{id: id, err: err})
		return err
	}

	deadline := time.Now().Add(e.cfg.responseTimeout)
	var dump []string
	for {
		line, err := e.proc.readLine(ctx, until(deadline))
		if errors.Is(err, ErrTimeout) {
			slog.Warn("evaluation timed out", "id", id, "lines", len(dump))
			e.pendingDrain = true
			e.publish(evalOutcome{id: id, err: fmt.Errorf("evaluation %d: %w", id, err)})
			return nil
		}
		if err != nil {
			if ctx.Err() == nil {
				e.publish(evalOutcome{id: id, err: err})
			}
			return err
		}

		// Output left over from a search is not part of the dump.
		if uci.IsInfo(line) || uci.IsBestMove(line) {
			e.consume(line)
			continue
		}

		dump = append(dump, line)
		if uci.IsEvaluationTerminator(line) {
			break
		}
		if len(dump) > e.cfg.maxEvalLines {
			e.publish(evalOutcome{id: id, err: &uci.MalformedEvaluationError{
				Reason: fmt.Sprintf("no terminator within %d lines", e.cfg.maxEvalLines),
				Lines:  len(dump),
			}})
			return e.resync(ctx, deadline)
		}
	}

	res, err := uci.ParseEvaluation(strings.Join(dump, "\n"))
	if err != nil {
		slog.Warn("evaluation parse failed", "id", id, "error", err)
	} else {
		slog.Debug("evaluation complete", "id", id, "scores", res.Scores, "lines", res.TotalLinesSeen)
	}
	e.publish(evalOutcome{id: id, result: res, err: err})
	return nil
}

// resync discards the rest of an oversized dump so the next command starts
// on a clean line boundary.
func (e *Engine) resync(ctx context.Context, deadline time.Time) error {
	for {
		line, err := e.proc.readLine(ctx, until(deadline))
		if errors.Is(err, ErrTimeout) {
			slog.Warn("evaluation resync gave up")
			e.pendingDrain = true
			return nil
		}
		if err != nil {
			return err
		}
		if uci.IsEvaluationTerminator(line) {
			return nil
		}
	}
}

// discardStale reads away the tail of a dump whose evaluation timed out,
// up to its terminator. Failing to see the terminator within the response
// timeout is fatal: the stream can no longer be parsed.
func (e *Engine) discardStale(ctx context.Context) error {
	deadline := time.Now().Add(e.cfg.responseTimeout)
	for e.pendingDrain {
		line, err := e.proc.readLine(ctx, until(deadline))
		if errors.Is(err, ErrTimeout) {
			return ioError("discarding stale evaluation", err)
		}
		if err != nil {
			return err
		}
		e.consume(line)
	}
	return nil
}

// consume handles output that no command is waiting for.
func (e *Engine) consume(line string) {
	switch {
	case uci.IsInfo(line):
		if info, ok := uci.ParseInfo(line); ok {
			e.analysis.apply(info)
		}
	case uci.IsBestMove(line):
		best, ponder, _ := uci.ParseBestMove(line)
		e.searching = false
		e.analysis.finish(best, ponder)
		slog.Debug("search finished", "bestmove", best, "ponder", ponder)
	case e.pendingDrain && uci.IsEvaluationTerminator(line):
		e.pendingDrain = false
		slog.Debug("stale evaluation discarded")
	default:
		slog.Debug("unsolicited engine output", "line", line)
	}
}

func (e *Engine) publish(o evalOutcome) {
	e.cell.Publish(o)
}

func (e *Engine) fail(err error) {
	e.errMu.Lock()
	e.err = err
	e.errMu.Unlock()
	e.setState(StateIOFailed)
	slog.Error("engine driver failed", "error", err)
}

// shutdown terminates and reaps the child on every exit path of run, then
// releases any caller still parked in GetEvaluation.
func (e *Engine) shutdown() {
	e.queue.Close()
	if err := e.proc.terminate(e.cfg.shutdownTimeout); err != nil {
		slog.Warn("engine shutdown", "error", err)
	}
	if err := e.proc.exitErr(); err != nil {
		slog.Warn("engine exited", "status", err)
	}
	if !e.State().Terminal() {
		e.setState(StateTerminated)
	}
	e.publish(evalOutcome{final: true})
	e.cancel()
	close(e.done)
	slog.Info("engine stopped", "state", e.State())
}

// until converts a deadline into a positive read bound.
func until(deadline time.Time) time.Duration {
	return max(time.Until(deadline), time.Nanosecond)
}
