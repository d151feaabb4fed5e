package fakeengine

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEval is the Evals key used when no dump is scripted for the
// current position.
const DefaultEval = "default"

// Script describes how the fake engine answers.
type Script struct {
	// Name identifies this script in logs and test failures.
	Name string `yaml:"name"`

	// Banner is printed on startup. Empty prints nothing.
	Banner string `yaml:"banner,omitempty"`

	// ID lines are printed after "uci", before the options. Blank entries
	// print empty lines.
	ID []string `yaml:"id,omitempty"`

	// Options are printed verbatim after the ID lines.
	Options []string `yaml:"options,omitempty"`

	// OmitUCIOK leaves the option listing unterminated.
	OmitUCIOK bool `yaml:"omit_uciok,omitempty"`

	// Evals maps a FEN (or "startpos") to the dump printed for "eval".
	// The "default" entry is used for positions without their own dump.
	Evals map[string][]string `yaml:"evals,omitempty"`

	// EvalDelay pauses the dump for the keyed position after its first
	// line, e.g. {"startpos": "400ms"}. Output before the pause is flushed.
	EvalDelay map[string]time.Duration `yaml:"eval_delay,omitempty"`

	// Search holds what "go" and "stop" print.
	Search Search `yaml:"search,omitempty"`

	// ExitOn makes the engine exit with status 3 as soon as it reads a
	// command with this verb.
	ExitOn string `yaml:"exit_on,omitempty"`

	// HangOnQuit makes the engine ignore "quit" and stop reading, so only a
	// kill ends it.
	HangOnQuit bool `yaml:"hang_on_quit,omitempty"`

	// Record, when set, is a file that receives every command line read.
	Record string `yaml:"record,omitempty"`
}

// Search scripts the answers to "go" and "stop".
type Search struct {
	// Info lines are printed immediately after "go".
	Info []string `yaml:"info,omitempty"`

	// BestMove is printed after "stop" while searching, e.g. "e2e4 ponder e7e5".
	BestMove string `yaml:"bestmove,omitempty"`

	// SilentStop suppresses the bestmove reply.
	SilentStop bool `yaml:"silent_stop,omitempty"`
}

// LoadScript reads and parses a script YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes a script from YAML.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScript(&script); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &script, nil
}

func validateScript(s *Script) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	for key, dump := range s.Evals {
		if len(dump) == 0 {
			return fmt.Errorf("eval dump %q is empty", key)
		}
	}
	for key, d := range s.EvalDelay {
		if d < 0 {
			return fmt.Errorf("eval_delay %q is negative", key)
		}
	}
	for i, opt := range s.Options {
		if !strings.HasPrefix(opt, "option ") {
			return fmt.Errorf("options[%d] must start with \"option \"", i)
		}
	}
	return nil
}

// evalFor returns the dump for position, falling back to DefaultEval.
func (s *Script) evalFor(position string) ([]string, bool) {
	if dump, ok := s.Evals[position]; ok {
		return dump, true
	}
	dump, ok := s.Evals[DefaultEval]
	return dump, ok
}
