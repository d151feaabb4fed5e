// Package testutil holds helpers shared by package tests: golden-file
// assertions and the scripted engine process.
//
// Packages that start engines re-execute their own test binary as the
// engine. Their TestMain must call ServeFakeEngine first:
//
//	func TestMain(m *testing.M) {
//		testutil.ServeFakeEngine()
//		os.Exit(m.Run())
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/kibitz/internal/fakeengine"
)

// FakeEngineEnv names the script the re-executed test binary plays.
const FakeEngineEnv = "KIBITZ_FAKE_ENGINE_SCRIPT"

// ServeFakeEngine turns the process into the scripted engine when it was
// started by FakeEngine or FakeEngineScript. It returns otherwise.
func ServeFakeEngine() {
	if path := os.Getenv(FakeEngineEnv); path != "" {
		os.Exit(fakeengine.Main(path))
	}
}

// FakeEngine writes s to a temp file and returns the binary that plays
// it: the running test binary.
func FakeEngine(t *testing.T, s *fakeengine.Script) string {
	t.Helper()
	data, err := yaml.Marshal(s)
	if err != nil {
		t.Fatalf("marshal script: %v", err)
	}
	path := filepath.Join(t.TempDir(), "script.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return FakeEngineScript(t, path)
}

// FakeEngineScript is FakeEngine for a script already on disk.
func FakeEngineScript(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("resolve script: %v", err)
	}
	t.Setenv(FakeEngineEnv, abs)
	return Self(t)
}

// Self returns the path of the running test binary.
func Self(t *testing.T) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	return exe
}

// AssertGolden compares data against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/... -update
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
