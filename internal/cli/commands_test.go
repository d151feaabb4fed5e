package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kibitz/internal/position"
	"github.com/roach88/kibitz/internal/store"
	"github.com/roach88/kibitz/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.ServeFakeEngine()
	os.Exit(m.Run())
}

// useFakeEngine returns an --engine value that plays the stockfish-like
// script.
func useFakeEngine(t *testing.T) string {
	t.Helper()
	return testutil.FakeEngineScript(t, filepath.Join("..", "fakeengine", "testdata", "stockfish.yaml"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestEvalCommand(t *testing.T) {
	exe := useFakeEngine(t)

	out, err := execute(t, "--engine", exe, "--format", "json", "eval")
	require.NoError(t, err, out)

	var got EvalOutput
	decodeData(t, out, &got)
	assert.Equal(t, position.StartFEN, got.FEN)
	assert.Equal(t, [3]float64{0.30, 0.20, 0.10}, got.Scores)
	assert.Equal(t, 5, got.TotalLines)
	assert.Empty(t, got.SessionID)
}

func TestEvalCommand_Text(t *testing.T) {
	exe := useFakeEngine(t)

	out, err := execute(t, "--engine", exe, "eval", "--fen", "8/8/8/4k3/8/8/4P3/4K3 w - - 0 1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "FEN:    8/8/8/4k3/8/8/4P3/4K3 w - - 0 1")
	assert.Contains(t, out, "Scores: 0.30 0.20 0.10")
}

func TestEvalCommand_InvalidFEN(t *testing.T) {
	exe := useFakeEngine(t)

	out, err := execute(t, "--engine", exe, "eval", "--fen", "not a fen")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid position")
}

func TestEvalCommand_SpawnFailure(t *testing.T) {
	out, err := execute(t, "--engine", filepath.Join(t.TempDir(), "no-such-engine"), "--format", "json", "eval")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSpawn, resp.Error.Code)
}

func TestEvalCommand_History(t *testing.T) {
	exe := useFakeEngine(t)
	db := filepath.Join(t.TempDir(), "kibitz.db")

	out, err := execute(t, "--engine", exe, "--format", "json", "eval", "--db", db)
	require.NoError(t, err, out)
	var ev EvalOutput
	decodeData(t, out, &ev)
	require.NotEmpty(t, ev.SessionID)

	out, err = execute(t, "--format", "json", "history", "--db", db)
	require.NoError(t, err, out)
	var sessions SessionList
	decodeData(t, out, &sessions)
	require.Len(t, sessions.Sessions, 1)
	assert.Equal(t, ev.SessionID, sessions.Sessions[0].ID)
	assert.Equal(t, filepath.Base(exe), sessions.Sessions[0].Engine)

	out, err = execute(t, "--format", "json", "history", "--db", db, "--session", ev.SessionID)
	require.NoError(t, err, out)
	var detail SessionDetail
	decodeData(t, out, &detail)
	require.Len(t, detail.Evaluations, 1)
	assert.Equal(t, int64(1), detail.Evaluations[0].Seq)
	assert.Equal(t, [3]float64{0.30, 0.20, 0.10}, detail.Evaluations[0].Scores)
	assert.Empty(t, detail.Searches)

	out, err = execute(t, "history", "--db", db, "--session", ev.SessionID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "eval   #1  0.30 0.20 0.10  (5 lines)")
}

func TestHistoryCommand_Errors(t *testing.T) {
	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	missing := filepath.Join(t.TempDir(), "missing.db")
	_, err = execute(t, "history", "--db", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, missing)
}

func TestOptionsCommand(t *testing.T) {
	exe := useFakeEngine(t)

	out, err := execute(t, "--engine", exe, "--format", "json", "options")
	require.NoError(t, err, out)

	var got OptionsOutput
	decodeData(t, out, &got)
	require.Len(t, got.Options, 9)
	assert.Equal(t, "Debug Log File", got.Options[0].Name)
	assert.Equal(t, "string", got.Options[0].Type)

	threads := got.Options[1]
	assert.Equal(t, "Threads", threads.Name)
	assert.Equal(t, "spin", threads.Type)
	require.NotNil(t, threads.Min)
	require.NotNil(t, threads.Max)
	assert.Equal(t, int64(1), *threads.Min)
	assert.Equal(t, int64(1024), *threads.Max)

	assert.Equal(t, "button", got.Options[3].Type)
	assert.Equal(t, false, got.Options[4].Default)
	assert.Equal(t, "nodestime", got.Options[7].Name)
}

func TestOptionsCommand_Text(t *testing.T) {
	exe := useFakeEngine(t)

	out, err := execute(t, "--engine", exe, "options")
	require.NoError(t, err, out)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Move Overhead")
	assert.Contains(t, out, "0..5000")
}

func TestTraceProtocol(t *testing.T) {
	exe := useFakeEngine(t)
	trace := filepath.Join(t.TempDir(), "trace.txt")

	_, err := execute(t, "--engine", exe, "--trace-protocol", trace, "options")
	require.NoError(t, err)

	data, err := os.ReadFile(trace)
	require.NoError(t, err)
	assert.Contains(t, string(data), "> uci\n")
	assert.Contains(t, string(data), "< uciok\n")
	assert.Contains(t, string(data), "> quit\n")
}

func TestConfigFile(t *testing.T) {
	exe := useFakeEngine(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "kibitz.yaml")
	content := "engine:\n  path: " + exe + "\n  response_timeout: 5s\n" +
		"start_fen: \"8/8/8/4k3/8/8/4P3/4K3 w - - 0 1\"\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))

	out, err := execute(t, "--config", cfg, "--format", "json", "eval")
	require.NoError(t, err, out)
	var got EvalOutput
	decodeData(t, out, &got)
	assert.Equal(t, "8/8/8/4k3/8/8/4P3/4K3 w - - 0 1", got.FEN)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("engine:\n  colour: blue\n"), 0o644))
	out, err = execute(t, "--config", bad, "--format", "json", "eval")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
}

// quitScreen presses q as soon as the screen is up and notes whether mouse
// reporting was switched on.
type quitScreen struct {
	tcell.SimulationScreen
	mouse *bool
}

func (s quitScreen) EnableMouse(flags ...tcell.MouseFlags) {
	*s.mouse = true
	s.SimulationScreen.EnableMouse(flags...)
}

func (s quitScreen) Init() error {
	if err := s.SimulationScreen.Init(); err != nil {
		return err
	}
	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	return nil
}

func TestTUICommand(t *testing.T) {
	exe := useFakeEngine(t)
	db := filepath.Join(t.TempDir(), "kibitz.db")
	var mouse bool

	opts := &TUIOptions{
		RootOptions: &RootOptions{Format: "text", Engine: exe},
		Database:    db,
		NewScreen: func() (tcell.Screen, error) {
			return quitScreen{SimulationScreen: tcell.NewSimulationScreen("UTF-8"), mouse: &mouse}, nil
		},
		SessionGenerator: store.NewFixedGenerator("tui-session"),
	}
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})

	require.NoError(t, runTUI(cmd, opts))
	assert.True(t, mouse, "board clicks need mouse reporting")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "tui-session", sessions[0].ID)
	assert.Equal(t, position.StartFEN, sessions[0].StartFEN)
}
