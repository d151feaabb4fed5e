package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Evaluation is one stored static evaluation.
type Evaluation struct {
	SessionID  string
	Seq        int64
	FEN        string
	Scores     [3]float64
	TotalLines int
}

// SearchResult is the outcome of one stopped search.
type SearchResult struct {
	SessionID string
	Seq       int64
	FEN       string
	Depth     int
	ScoreCP   *int
	Mate      *int
	Nodes     int64
	PV        []string
	BestMove  string
	Ponder    string
}

// WriteEvaluation appends an evaluation to its session and returns the
// assigned seq. ev.Seq is ignored.
//
// Note: The session referenced by SessionID must exist (foreign key constraint).
func (s *Store) WriteEvaluation(ctx context.Context, ev Evaluation) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO evaluations
		(session_id, seq, fen, score_1, score_2, score_3, total_lines)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?
		FROM evaluations WHERE session_id = ?
		RETURNING seq
	`,
		ev.SessionID,
		ev.FEN,
		ev.Scores[0],
		ev.Scores[1],
		ev.Scores[2],
		ev.TotalLines,
		ev.SessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("write evaluation: %w", err)
	}
	return seq, nil
}

// WriteSearchResult appends a search result to its session and returns the
// assigned seq. r.Seq is ignored.
func (s *Store) WriteSearchResult(ctx context.Context, r SearchResult) (int64, error) {
	pvJSON, err := marshalPV(r.PV)
	if err != nil {
		return 0, fmt.Errorf("write search result: %w", err)
	}

	var seq int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO search_results
		(session_id, seq, fen, depth, score_cp, mate, nodes, pv, best_move, ponder)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?, ?, ?
		FROM search_results WHERE session_id = ?
		RETURNING seq
	`,
		r.SessionID,
		r.FEN,
		r.Depth,
		nullInt(r.ScoreCP),
		nullInt(r.Mate),
		r.Nodes,
		pvJSON,
		r.BestMove,
		r.Ponder,
		r.SessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("write search result: %w", err)
	}
	return seq, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
