package fakeengine

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, s *Script, input ...string) []string {
	t.Helper()
	var out bytes.Buffer
	err := Run(strings.NewReader(strings.Join(input, "\n")+"\n"), &out, s)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
}

func TestLoadScript(t *testing.T) {
	s, err := LoadScript("testdata/stockfish.yaml")
	require.NoError(t, err)

	assert.Equal(t, "stockfish-like", s.Name)
	assert.Len(t, s.ID, 3)
	assert.Len(t, s.Options, 9)
	assert.Equal(t, "d2d4 ponder d7d5", s.Search.BestMove)
	assert.Contains(t, s.Evals, DefaultEval)
}

func TestParseScript_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScript([]byte("name: x\nbaner: typo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScript_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "banner: x\n", "name is required"},
		{"empty dump", "name: x\nevals:\n  default: []\n", "eval dump"},
		{"bad option", "name: x\noptions: [\"name Foo type check\"]\n", "options[0]"},
		{"negative delay", "name: x\neval_delay:\n  startpos: -1s\n", "eval_delay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_Handshake(t *testing.T) {
	s, err := LoadScript("testdata/stockfish.yaml")
	require.NoError(t, err)

	lines := runScript(t, s, "uci", "isready", "quit")

	require.Len(t, lines, 1+3+9+1+1)
	assert.Equal(t, s.Banner, lines[0])
	assert.Equal(t, "id name Stockfish 16", lines[1])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "option name nodestime type spin default 0 min 0 max 10000", lines[11])
	assert.Equal(t, "uciok", lines[13])
	assert.Equal(t, "readyok", lines[14])
}

func TestRun_EvalPerPosition(t *testing.T) {
	s := &Script{
		Name: "per-position",
		Evals: map[string][]string{
			DefaultEval: {"default"},
			"8/8/8/8/8/8/8/K6k w - - 0 1": {"bare kings"},
		},
	}

	lines := runScript(t, s,
		"eval",
		"position fen 8/8/8/8/8/8/8/K6k w - - 0 1",
		"eval",
		"position startpos moves e2e4",
		"eval",
	)
	assert.Equal(t, []string{"default", "bare kings", "default"}, lines)
}

func TestRun_EvalDelay(t *testing.T) {
	s, err := ParseScript([]byte("name: slow\nevals:\n  default: [a, b]\neval_delay:\n  startpos: 50ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, s.EvalDelay[startpos])

	begin := time.Now()
	lines := runScript(t, s, "eval", "quit")
	assert.Equal(t, []string{"a", "b"}, lines)
	assert.GreaterOrEqual(t, time.Since(begin), 50*time.Millisecond)
}

func TestRun_SearchAndStop(t *testing.T) {
	s, err := LoadScript("testdata/stockfish.yaml")
	require.NoError(t, err)
	s.Banner = ""

	lines := runScript(t, s, "stop", "go", "stop", "stop")

	// The first and last stop arrive while idle and print nothing.
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "info depth 1"))
	assert.True(t, strings.HasPrefix(lines[1], "info depth 2"))
	assert.Equal(t, "bestmove d2d4 ponder d7d5", lines[2])
}

func TestRun_SilentStop(t *testing.T) {
	s := &Script{Name: "silent", Search: Search{BestMove: "e2e4", SilentStop: true}}

	var out bytes.Buffer
	require.NoError(t, Run(strings.NewReader("go\nstop\n"), &out, s))
	assert.Empty(t, out.String())
}

func TestRun_ExitOn(t *testing.T) {
	s := &Script{Name: "exit", ExitOn: "eval", Evals: map[string][]string{DefaultEval: {"x"}}}

	var out bytes.Buffer
	err := Run(strings.NewReader("isready\neval\nisready\n"), &out, s)

	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, "eval", exit.Verb)
	assert.Equal(t, "readyok\n", out.String())
}

func TestRun_Record(t *testing.T) {
	record := filepath.Join(t.TempDir(), "commands.log")
	s := &Script{Name: "record", Record: record}

	var out bytes.Buffer
	require.NoError(t, Run(strings.NewReader("uci\n\nposition fen 8/8/8/8/8/8/8/K6k w - - 0 1\nquit\nignored\n"), &out, s))

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Equal(t, "uci\nposition fen 8/8/8/8/8/8/8/K6k w - - 0 1\nquit\n", string(data))
}

func TestParsePosition(t *testing.T) {
	assert.Equal(t, "startpos", parsePosition("startpos"))
	assert.Equal(t, "startpos", parsePosition("startpos moves e2e4"))
	assert.Equal(t, "8/8/8/8/8/8/8/K6k w - - 0 1", parsePosition("fen 8/8/8/8/8/8/8/K6k w - - 0 1"))
	assert.Equal(t, "8/8/8/8/8/8/8/K6k w - - 0 1", parsePosition("fen 8/8/8/8/8/8/8/K6k w - - 0 1 moves a1a2"))
}
