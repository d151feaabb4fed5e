package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/roach88/kibitz/internal/uci"
)

// ErrTimeout reports that the engine did not answer within its bound.
var ErrTimeout = errors.New("timed out waiting for engine output")

// process owns the engine child and its pipes.
//
// A reader goroutine turns stdout into a channel of lines so the run loop can
// select on output, commands and cancellation at once. A wait goroutine
// reaps the child and closes waitDone.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	lines   chan string
	readErr error // set by the reader before lines is closed

	stopCh   chan struct{}
	readDone chan struct{}
	waitDone chan struct{}
	waitErr  error // set before waitDone is closed

	transcriptMu sync.Mutex
	transcript   io.Writer

	stopOnce sync.Once
}

func startProcess(cfg validatedConfig) (*process, error) {
	cmd := exec.Command(cfg.binaryPath, cfg.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, spawnError("stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, spawnError("stdout pipe", err)
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, spawnError("start process", err)
	}

	p := &process{
		cmd:        cmd,
		stdin:      stdin,
		lines:      make(chan string, 256),
		stopCh:     make(chan struct{}),
		readDone:   make(chan struct{}),
		waitDone:   make(chan struct{}),
		transcript: cfg.transcript,
	}

	go p.readLoop(stdout)
	go func() {
		// Wait closes stdout; reap only after the reader saw EOF or was stopped.
		<-p.readDone
		p.waitErr = cmd.Wait()
		close(p.waitDone)
	}()

	slog.Debug("engine process started", "path", cfg.binaryPath, "pid", cmd.Process.Pid)
	return p, nil
}

func (p *process) readLoop(stdout io.Reader) {
	defer close(p.readDone)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		p.record("< ", line)
		select {
		case <-p.stopCh:
			close(p.lines)
			return
		case p.lines <- line:
		}
	}

	if err := scanner.Err(); err != nil {
		p.readErr = err
	} else {
		p.readErr = io.EOF
	}
	close(p.lines)
}

// send writes one instruction line.
func (p *process) send(line string) error {
	p.record("> ", line)
	if _, err := io.WriteString(p.stdin, line+"\n"); err != nil {
		return ioError("write "+verb(line), err)
	}
	return nil
}

// readLine returns the next output line. timeout <= 0 waits without bound.
func (p *process) readLine(ctx context.Context, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-expired:
		return "", ErrTimeout
	case line, ok := <-p.lines:
		if !ok {
			return "", ioError("read", p.closedErr())
		}
		return line, nil
	}
}

// closedErr must only be called after lines has been closed.
func (p *process) closedErr() error {
	if p.readErr == nil || errors.Is(p.readErr, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return p.readErr
}

// terminate asks the engine to quit, then kills it if it has not exited
// within timeout. It always waits for the child to be reaped.
func (p *process) terminate(timeout time.Duration) error {
	var killErr error
	p.stopOnce.Do(func() {
		_ = p.send(uci.CmdQuit)
		_ = p.stdin.Close()
		close(p.stopCh)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-p.waitDone:
		case <-timer.C:
			slog.Warn("engine did not exit, killing", "pid", p.cmd.Process.Pid)
			if err := p.cmd.Process.Kill(); err != nil {
				killErr = fmt.Errorf("kill engine: %w", err)
			}
			<-p.waitDone
		}
	})
	return killErr
}

// exitErr returns the child's exit status. It must only be called after
// terminate or kill returned.
func (p *process) exitErr() error {
	<-p.waitDone
	return p.waitErr
}

// kill terminates the child immediately. Used when the handshake fails.
func (p *process) kill() {
	p.stopOnce.Do(func() {
		_ = p.stdin.Close()
		close(p.stopCh)
		_ = p.cmd.Process.Kill()
		<-p.waitDone
	})
}

// verb is the first word of an instruction, used to name failed writes.
func verb(line string) string {
	if fields := strings.Fields(line); len(fields) > 0 {
		return fields[0]
	}
	return "line"
}

func (p *process) record(prefix, line string) {
	if p.transcript == nil {
		return
	}
	p.transcriptMu.Lock()
	defer p.transcriptMu.Unlock()
	fmt.Fprintf(p.transcript, "%s%s\n", prefix, line)
}
