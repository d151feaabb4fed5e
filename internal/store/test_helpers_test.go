package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession inserts a session started at the given unix second.
func createTestSession(t *testing.T, s *Store, id string, startedAt int64) Session {
	t.Helper()
	sess := Session{
		ID:        id,
		Engine:    "stockfish",
		StartFEN:  "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		StartedAt: time.Unix(startedAt, 0).UTC(),
	}
	if err := s.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}
