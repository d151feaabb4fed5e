// Package config loads the optional kibitz configuration file.
//
// A file is YAML, checked against an embedded CUE schema (closed, so typos
// fail loudly) and then merged over the defaults. CLI flags are applied by
// the caller on top of the returned Settings.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/kibitz/internal/engine"
	"github.com/roach88/kibitz/internal/position"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalid is matched by every schema or value error.
var ErrInvalid = errors.New("invalid configuration")

// Settings is the merged configuration of one kibitz run.
type Settings struct {
	Engine engine.Config

	// HistoryPath is the SQLite file evaluations are appended to.
	// Empty disables history.
	HistoryPath string

	StartFEN string
	LogFile  string
}

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{StartFEN: position.StartFEN}
}

// File mirrors the YAML layout.
type File struct {
	Engine   EngineSection  `yaml:"engine"`
	History  HistorySection `yaml:"history"`
	StartFEN string         `yaml:"start_fen"`
	LogFile  string         `yaml:"log_file"`
}

// EngineSection is the engine block; durations are Go duration strings.
type EngineSection struct {
	Path            string   `yaml:"path"`
	Args            []string `yaml:"args"`
	Banner          *bool    `yaml:"banner"`
	IntroLines      *int     `yaml:"intro_lines"`
	Infinite        bool     `yaml:"infinite"`
	QueueSize       int      `yaml:"queue_size"`
	MaxEvalLines    int      `yaml:"max_eval_lines"`
	StartTimeout    string   `yaml:"start_timeout"`
	ResponseTimeout string   `yaml:"response_timeout"`
	StopGrace       string   `yaml:"stop_grace"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// HistorySection is the history block.
type HistorySection struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads the file at path. An empty path returns Default().
func Load(path string) (Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates a YAML document and merges it over Default().
func Parse(data []byte) (Settings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalid, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return Settings{}, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("%w: failed to decode YAML: %v", ErrInvalid, err)
	}

	s := Default()
	if err := f.apply(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// validate checks raw against #Config.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(raw)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}
	return nil
}

func (f *File) apply(s *Settings) error {
	e := f.Engine
	s.Engine.BinaryPath = e.Path
	s.Engine.Args = e.Args
	if e.Banner != nil {
		s.Engine.SkipBanner = !*e.Banner
	}
	if e.IntroLines != nil {
		// -1 in the file means none; the engine package uses any negative.
		s.Engine.IntroLines = *e.IntroLines
		if *e.IntroLines == 0 {
			s.Engine.IntroLines = -1
		}
	}
	s.Engine.Infinite = e.Infinite
	s.Engine.QueueSize = e.QueueSize
	s.Engine.MaxEvalLines = e.MaxEvalLines

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"engine.start_timeout", e.StartTimeout, &s.Engine.StartTimeout},
		{"engine.response_timeout", e.ResponseTimeout, &s.Engine.ResponseTimeout},
		{"engine.stop_grace", e.StopGrace, &s.Engine.StopGrace},
		{"engine.shutdown_timeout", e.ShutdownTimeout, &s.Engine.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, d.name, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, d.name)
		}
		*d.dst = parsed
	}

	if f.History.Enabled == nil || *f.History.Enabled {
		s.HistoryPath = f.History.Path
	}

	if f.StartFEN != "" {
		fen, err := position.NormalizeFEN(f.StartFEN)
		if err != nil {
			return fmt.Errorf("%w: start_fen: %v", ErrInvalid, err)
		}
		s.StartFEN = fen
	}
	s.LogFile = f.LogFile
	return nil
}
