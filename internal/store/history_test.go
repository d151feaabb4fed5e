package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	older := createTestSession(t, s, "session-a", 100)
	newer := createTestSession(t, s, "session-b", 200)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer, sessions[0], "newest first")
	assert.Equal(t, older, sessions[1])

	err = s.CreateSession(ctx, older)
	assert.Error(t, err, "duplicate id")
}

func TestWriteEvaluation_AssignsSeqPerSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "a", 1)
	createTestSession(t, s, "b", 2)

	seq, err := s.WriteEvaluation(ctx, Evaluation{SessionID: "a", FEN: "fen-1", Scores: [3]float64{0.3, 0.2, 0.1}, TotalLines: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	seq, err = s.WriteEvaluation(ctx, Evaluation{SessionID: "a", FEN: "fen-2", Scores: [3]float64{1, 2, 3}, TotalLines: 7, Seq: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq, "caller seq is ignored")

	seq, err = s.WriteEvaluation(ctx, Evaluation{SessionID: "b", FEN: "fen-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq, "seq restarts per session")

	evals, err := s.ListEvaluations(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []Evaluation{
		{SessionID: "a", Seq: 1, FEN: "fen-1", Scores: [3]float64{0.3, 0.2, 0.1}, TotalLines: 5},
		{SessionID: "a", Seq: 2, FEN: "fen-2", Scores: [3]float64{1, 2, 3}, TotalLines: 7},
	}, evals)

	none, err := s.ListEvaluations(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestWriteEvaluation_UnknownSession(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteEvaluation(context.Background(), Evaluation{SessionID: "missing", FEN: "fen"})
	assert.Error(t, err)
}

func TestLatestEvaluation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "old", 100)
	createTestSession(t, s, "new", 200)

	_, found, err := s.LatestEvaluation(ctx, "fen-x")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.WriteEvaluation(ctx, Evaluation{SessionID: "new", FEN: "fen-x", Scores: [3]float64{1, 1, 1}})
	require.NoError(t, err)
	_, err = s.WriteEvaluation(ctx, Evaluation{SessionID: "old", FEN: "fen-x", Scores: [3]float64{9, 9, 9}})
	require.NoError(t, err)
	_, err = s.WriteEvaluation(ctx, Evaluation{SessionID: "new", FEN: "fen-x", Scores: [3]float64{2, 2, 2}})
	require.NoError(t, err)

	ev, found, err := s.LatestEvaluation(ctx, "fen-x")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", ev.SessionID)
	assert.Equal(t, [3]float64{2, 2, 2}, ev.Scores)
}

func TestSearchResults(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "a", 1)

	cp := 46
	mate := -3
	_, err := s.WriteSearchResult(ctx, SearchResult{
		SessionID: "a", FEN: "fen-1", Depth: 20, ScoreCP: &cp, Nodes: 123456,
		PV: []string{"d2d4", "d7d5"}, BestMove: "d2d4", Ponder: "d7d5",
	})
	require.NoError(t, err)
	_, err = s.WriteSearchResult(ctx, SearchResult{
		SessionID: "a", FEN: "fen-2", Depth: 12, Mate: &mate, BestMove: "h5f7",
	})
	require.NoError(t, err)

	results, err := s.ListSearchResults(ctx, "a")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(1), results[0].Seq)
	require.NotNil(t, results[0].ScoreCP)
	assert.Equal(t, 46, *results[0].ScoreCP)
	assert.Nil(t, results[0].Mate)
	assert.Equal(t, []string{"d2d4", "d7d5"}, results[0].PV)

	assert.Nil(t, results[1].ScoreCP)
	require.NotNil(t, results[1].Mate)
	assert.Equal(t, -3, *results[1].Mate)
	assert.Equal(t, []string{}, results[1].PV, "nil PV round-trips as empty")
}

func TestMarshalPV(t *testing.T) {
	got, err := marshalPV(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	got, err = marshalPV([]string{"e7e8q", "a1<b"})
	require.NoError(t, err)
	assert.Equal(t, `["e7e8q","a1<b"]`, got, "no HTML escaping")

	_, err = unmarshalPV("not json")
	assert.Error(t, err)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}

	first := g.Generate()
	time.Sleep(2 * time.Millisecond)
	second := g.Generate()

	u, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())
	assert.Less(t, first, second, "UUIDv7 sorts by creation time")
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("s-1", "s-2")

	assert.Equal(t, "s-1", g.Generate())
	assert.Equal(t, "s-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
