package fakeengine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// startpos names the initial position in Evals.
const startpos = "startpos"

// ExitError is returned by Run when the script's ExitOn verb was read.
type ExitError struct {
	Verb string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("scripted exit on %q", e.Verb)
}

// Run answers UCI commands read from in according to s until "quit" or EOF.
//
// Supported commands: uci, isready, ucinewgame, position, go, stop, eval,
// quit. Anything else is ignored, as real engines mostly do.
func Run(in io.Reader, out io.Writer, s *Script) error {
	w := bufio.NewWriter(out)
	f := &fake{script: s, w: w, position: startpos}

	if s.Record != "" {
		rec, err := os.OpenFile(s.Record, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open record file: %w", err)
		}
		defer rec.Close()
		f.record = rec
	}

	if s.Banner != "" {
		f.println(s.Banner)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if f.record != nil {
			fmt.Fprintln(f.record, line)
		}

		verb, rest, _ := strings.Cut(line, " ")
		if s.ExitOn != "" && verb == s.ExitOn {
			return &ExitError{Verb: verb}
		}
		if verb == "quit" {
			if s.HangOnQuit {
				time.Sleep(time.Hour)
			}
			return w.Flush()
		}

		f.handle(verb, rest)
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return w.Flush()
}

type fake struct {
	script    *Script
	w         *bufio.Writer
	record    io.Writer
	position  string
	searching bool
}

func (f *fake) handle(verb, rest string) {
	switch verb {
	case "uci":
		for _, line := range f.script.ID {
			f.println(line)
		}
		for _, line := range f.script.Options {
			f.println(line)
		}
		if !f.script.OmitUCIOK {
			f.println("uciok")
		}
	case "isready":
		f.println("readyok")
	case "ucinewgame":
		f.position = startpos
	case "position":
		f.position = parsePosition(rest)
	case "go":
		f.searching = true
		for _, line := range f.script.Search.Info {
			f.println(line)
		}
	case "stop":
		if !f.searching {
			return
		}
		f.searching = false
		if !f.script.Search.SilentStop && f.script.Search.BestMove != "" {
			f.println("bestmove " + f.script.Search.BestMove)
		}
	case "eval":
		dump, ok := f.script.evalFor(f.position)
		if !ok {
			f.println("info string no evaluation scripted for " + f.position)
			return
		}
		delay := f.script.EvalDelay[f.position]
		for i, line := range dump {
			f.println(line)
			if i == 0 && delay > 0 {
				f.w.Flush()
				time.Sleep(delay)
			}
		}
	}
}

func (f *fake) println(line string) {
	f.w.WriteString(line)
	f.w.WriteByte('\n')
}

// parsePosition returns the FEN of "position fen <FEN> [moves ...]", or
// "startpos".
func parsePosition(args string) string {
	kind, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	if kind != "fen" {
		return startpos
	}
	fen, _, _ := strings.Cut(rest, " moves")
	return strings.TrimSpace(fen)
}

// Main loads the script at path and runs it over stdin and stdout.
// It returns a process exit status.
func Main(path string) int {
	s, err := LoadScript(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := Run(os.Stdin, os.Stdout, s); err != nil {
		var exit *ExitError
		if errors.As(err, &exit) {
			return 3
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
